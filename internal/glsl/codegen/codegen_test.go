package codegen

import (
	"testing"

	"github.com/lightplayer/lp/internal/glsl/parser"
	"github.com/lightplayer/lp/internal/ssair"
)

func compile(t *testing.T, src string) *ssair.Module {
	t.Helper()
	file, diags := parser.Parse(src)
	if len(diags) != 0 {
		t.Fatalf("unexpected parse diagnostics: %v", diags)
	}
	mod, err := Compile(file, "f32")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return mod
}

func TestCompileSimpleFuncSignature(t *testing.T) {
	mod := compile(t, `float f(float x){ return x*2.0+1.0; }`)
	if mod.DecimalFormat != "f32" {
		t.Fatalf("DecimalFormat = %q, want f32", mod.DecimalFormat)
	}
	fn := mod.Func("f")
	if fn == nil {
		t.Fatal("expected function f")
	}
	if fn.Sig.Ret.Kind != ssair.F32 {
		t.Fatalf("return type = %+v, want F32", fn.Sig.Ret)
	}
	if len(fn.Sig.Params) != 1 || fn.Sig.Params[0].Type.Kind != ssair.F32 || fn.Sig.Params[0].Out {
		t.Fatalf("unexpected param shape: %+v", fn.Sig.Params)
	}
	entry := fn.Block("entry")
	if entry == nil {
		t.Fatal("expected an entry block")
	}
	if entry.Term.Kind != ssair.TermReturn {
		t.Fatalf("terminator = %+v, want TermReturn", entry.Term)
	}
}

func TestCompileIfElseProducesThreeExtraBlocks(t *testing.T) {
	mod := compile(t, `
	float f(float t){
		if (t > 0.5) {
			t = t - 0.5;
		} else {
			t = t + 0.5;
		}
		return t;
	}`)
	fn := mod.Func("f")
	if fn.Block("if.then1") == nil || fn.Block("if.else2") == nil || fn.Block("if.end3") == nil {
		var names []string
		for _, b := range fn.Blocks {
			names = append(names, b.Name)
		}
		t.Fatalf("expected if.then1/if.else2/if.end3 blocks, got %v", names)
	}
	entry := fn.Block("entry")
	if entry.Term.Kind != ssair.TermBranch {
		t.Fatalf("entry terminator = %+v, want TermBranch", entry.Term)
	}
}

func TestCompileForLoopProducesLoopBlocks(t *testing.T) {
	mod := compile(t, `
	float f(){
		float acc = 0.0;
		for (int i = 0; i < 4; i = i + 1) {
			acc = acc + 1.0;
		}
		return acc;
	}`)
	fn := mod.Func("f")
	var hasCond, hasBody, hasPost, hasExit bool
	for _, b := range fn.Blocks {
		switch {
		case hasPrefix(b.Name, "loop.cond"):
			hasCond = true
		case hasPrefix(b.Name, "loop.body"):
			hasBody = true
		case hasPrefix(b.Name, "loop.post"):
			hasPost = true
		case hasPrefix(b.Name, "loop.exit"):
			hasExit = true
		}
	}
	if !hasCond || !hasBody || !hasPost || !hasExit {
		t.Fatalf("missing loop blocks among %v", blockNames(fn))
	}
}

func TestCompileBuiltinCallDeclaresExtern(t *testing.T) {
	mod := compile(t, `float f(float t){ return sin(t); }`)
	if len(mod.Externs) != 1 {
		t.Fatalf("externs = %v, want exactly 1", mod.Externs)
	}
	if mod.Externs[0].Name != "lpfx_sin" {
		t.Fatalf("extern name = %q, want lpfx_sin", mod.Externs[0].Name)
	}
}

func TestCompileRepeatedBuiltinCallDoesNotDuplicateExtern(t *testing.T) {
	mod := compile(t, `float f(float t){ return sin(t) + sin(t*2.0); }`)
	if len(mod.Externs) != 1 {
		t.Fatalf("externs = %v, want exactly 1 (deduplicated)", mod.Externs)
	}
}

func TestCompileOutParamWritesBack(t *testing.T) {
	mod := compile(t, `void f(inout float x){ x = x + 1.0; }`)
	fn := mod.Func("f")
	found := false
	for _, b := range fn.Blocks {
		for _, i := range b.Instrs {
			if i.Op == ssair.OpParamWriteback && i.Index == 0 {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected an OpParamWriteback for the inout parameter")
	}
}

func TestCompileMissingReturnGetsImplicitTerminator(t *testing.T) {
	mod := compile(t, `void f(){ float x = 1.0; }`)
	fn := mod.Func("f")
	for _, b := range fn.Blocks {
		if b.Term.Targets == nil && b.Term.Kind != ssair.TermReturn && b.Term.Kind != ssair.TermTrap {
			t.Fatalf("block %q has no terminator", b.Name)
		}
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func blockNames(fn *ssair.Function) []string {
	var names []string
	for _, b := range fn.Blocks {
		names = append(names, b.Name)
	}
	return names
}
