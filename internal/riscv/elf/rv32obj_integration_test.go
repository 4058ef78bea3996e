package elf

import (
	"testing"

	"github.com/lightplayer/lp/internal/backend/rv32obj"
	"github.com/lightplayer/lp/internal/glsl/codegen"
	"github.com/lightplayer/lp/internal/glsl/parser"
	"github.com/lightplayer/lp/internal/glsl/sema"
	"github.com/lightplayer/lp/internal/riscv/interp"
)

// TestLinkedRV32ObjectExecutesUnderInterpreter chains the whole pipeline this
// backend exists for: GLSL source -> SSA -> rv32obj machine code -> a linked
// image -> the RV32IMAC interpreter, with no mock standing in for any stage.
// x+x stays entirely inside add/sub/store opcodes after Q32 lowering, so the
// object needs no externs and no second Object to link against.
func TestLinkedRV32ObjectExecutesUnderInterpreter(t *testing.T) {
	file, diags := parser.Parse(`float f(float x){ return x + x; }`)
	if len(diags) != 0 {
		t.Fatalf("parse diagnostics: %v", diags)
	}
	if diags := sema.Check(file); len(diags) != 0 {
		t.Fatalf("sema diagnostics: %v", diags)
	}
	mod, err := codegen.Compile(file, "f32")
	if err != nil {
		t.Fatalf("codegen: %v", err)
	}
	obj, err := rv32obj.Compile(mod)
	if err != nil {
		t.Fatalf("rv32obj.Compile: %v", err)
	}

	img, err := Link([]*rv32obj.Object{obj})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	entry, ok := img.Symbols["f"]
	if !ok {
		t.Fatal("expected a symbol for f")
	}

	const ramSize = 4096
	mem := interp.NewMemory(img.Bytes, ramSize)
	cpu := interp.NewCPU(mem, entry)
	cpu.X[2] = interp.RAMBase + ramSize // sp: top of RAM
	cpu.X[1] = 0xFFFFFFFC               // ra: an address that faults on return, marking completion
	cpu.X[10] = 3 << 16                 // a0: argument x, Q32 for 3.0

	var lastErr error
	for i := 0; i < 200; i++ {
		res, err := cpu.RunUntilYield(1)
		if err != nil {
			lastErr = err
			break
		}
		if res.Kind != interp.Continue {
			t.Fatalf("unexpected yield %+v before the sentinel return faulted", res)
		}
	}
	if lastErr == nil {
		t.Fatal("expected the sentinel return address to eventually fault")
	}

	want := uint32(6 << 16) // Q32 for 6.0 = f(3.0) = 3.0+3.0
	if cpu.X[10] != want {
		t.Fatalf("a0 = 0x%08x, want 0x%08x (f(3.0) in Q32)", cpu.X[10], want)
	}
}
