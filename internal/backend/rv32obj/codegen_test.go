package rv32obj

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/lightplayer/lp/internal/glsl/codegen"
	"github.com/lightplayer/lp/internal/glsl/parser"
	"github.com/lightplayer/lp/internal/glsl/sema"
	"github.com/lightplayer/lp/internal/ssair"
)

func compileSSA(t *testing.T, src string) *ssair.Module {
	t.Helper()
	file, diags := parser.Parse(src)
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
	return mod
}

func TestEncodeRFieldPlacement(t *testing.T) {
	// add x5, x6, x7 -> funct7=0 rs2=7 rs1=6 funct3=0 rd=5 opcode=0x33
	word := encodeR(0, 7, 6, 0, 5, opOP)
	if opcode := word & 0x7f; opcode != opOP {
		t.Fatalf("opcode = %#x, want %#x", opcode, opOP)
	}
	if rd := (word >> 7) & 0x1f; rd != 5 {
		t.Fatalf("rd = %d, want 5", rd)
	}
	if rs1 := (word >> 15) & 0x1f; rs1 != 6 {
		t.Fatalf("rs1 = %d, want 6", rs1)
	}
	if rs2 := (word >> 20) & 0x1f; rs2 != 7 {
		t.Fatalf("rs2 = %d, want 7", rs2)
	}
}

func TestEncodeIFieldPlacementAndSignExtension(t *testing.T) {
	word := encodeI(-1, 2, 0, 5, opOPIMM) // addi x5, x2, -1
	imm := int32(word) >> 20
	if imm != -1 {
		t.Fatalf("imm = %d, want -1", imm)
	}
}

func TestEncodeUPlacesImmInUpperBits(t *testing.T) {
	word := encodeU(0xFFFF0, 6, opLUI)
	got := word &^ 0xfff &^ (0x1f << 7) &^ 0x7f
	want := uint32(0xFFFF0) << 12
	if got != want {
		t.Fatalf("lui imm bits = %#x, want %#x", got, want)
	}
}

func TestLiChoosesSingleInstructionForSmallImmediate(t *testing.T) {
	if n := liWords(100); n != 1 {
		t.Fatalf("liWords(100) = %d, want 1", n)
	}
	if n := liWords(-2048); n != 1 {
		t.Fatalf("liWords(-2048) = %d, want 1", n)
	}
}

func TestLiChoosesTwoInstructionsForLargeImmediate(t *testing.T) {
	if n := liWords(1<<20 + 1); n != 2 {
		t.Fatalf("liWords(1<<20+1) = %d, want 2", n)
	}
}

func TestCompileProducesOneSymbolPerFunction(t *testing.T) {
	mod := compileSSA(t, `float f(float x){ return x*2.0+1.0; }`)
	obj, err := Compile(mod)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(obj.Symbols) != 1 || obj.Symbols[0].Name != "f" {
		t.Fatalf("symbols = %+v, want exactly one named f", obj.Symbols)
	}
	if obj.Symbols[0].Binding != BindGlobal {
		t.Fatalf("binding = %v, want BindGlobal", obj.Symbols[0].Binding)
	}
	if len(obj.Sections) != 1 || obj.Sections[0].Kind != SecText {
		t.Fatalf("sections = %+v, want exactly one .text", obj.Sections)
	}
	if len(obj.Sections[0].Data) == 0 {
		t.Fatal("expected non-empty text section")
	}
}

func TestCompileBuiltinCallEmitsCallPLTRelocation(t *testing.T) {
	mod := compileSSA(t, `float f(float t){ return sin(t); }`)
	obj, err := Compile(mod)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	found := false
	for _, r := range obj.Relocations {
		if r.Type == RelocCallPLT && r.Symbol == "lpfx_sin" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a RelocCallPLT against lpfx_sin among %+v", obj.Relocations)
	}
}

func TestCompileRejectsVectorLocals(t *testing.T) {
	mod := compileSSA(t, `vec4 f(vec4 v){ return v; }`)
	if _, err := Compile(mod); err == nil {
		t.Fatal("expected an error compiling a vector-typed function")
	}
}

func TestCompileMultiFunctionModuleGetsDistinctSymbols(t *testing.T) {
	mod := compileSSA(t, `
	float helper(float x){ return x + 1.0; }
	float f(float x){ return helper(x); }`)
	obj, err := Compile(mod)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	names := map[string]bool{}
	for _, s := range obj.Symbols {
		names[s.Name] = true
	}
	if !names["helper"] || !names["f"] {
		t.Fatalf("symbols = %+v, want helper and f", obj.Symbols)
	}
	foundCall := false
	for _, r := range obj.Relocations {
		if r.Symbol == "helper" {
			foundCall = true
		}
	}
	if !foundCall {
		t.Fatalf("expected a relocation calling helper among %+v", obj.Relocations)
	}
}

func TestBytesProducesParsableELF(t *testing.T) {
	mod := compileSSA(t, `float f(float x){ return x*2.0+1.0; }`)
	obj, err := Compile(mod)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	f, err := elf.NewFile(bytes.NewReader(obj.Bytes()))
	if err != nil {
		t.Fatalf("elf.NewFile: %v", err)
	}
	defer f.Close()
	if f.Class != elf.ELFCLASS32 {
		t.Fatalf("class = %v, want ELFCLASS32", f.Class)
	}
	if f.Machine != elf.EM_RISCV {
		t.Fatalf("machine = %v, want EM_RISCV", f.Machine)
	}
	if f.Type != elf.ET_REL {
		t.Fatalf("type = %v, want ET_REL", f.Type)
	}
	sec := f.Section(".text")
	if sec == nil {
		t.Fatal("expected a .text section")
	}
	data, err := sec.Data()
	if err != nil {
		t.Fatalf("reading .text data: %v", err)
	}
	if len(data) == 0 || len(data)%4 != 0 {
		t.Fatalf(".text length = %d, want a positive multiple of 4", len(data))
	}
}

func TestFrameLayoutReservesOutParamSlots(t *testing.T) {
	mod := compileSSA(t, `void bump(inout float x){ x = x + 1.0; }`)
	fn := mod.Func("bump")
	fl := computeFrame(fn)
	if fl.outBase <= fl.raOffset {
		t.Fatalf("outBase (%d) should sit after raOffset (%d)", fl.outBase, fl.raOffset)
	}
	if fl.frameSize%16 != 0 {
		t.Fatalf("frameSize = %d, want 16-byte aligned", fl.frameSize)
	}
}
