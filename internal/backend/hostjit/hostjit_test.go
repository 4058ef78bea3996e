package hostjit

import (
	"testing"

	"github.com/lightplayer/lp/internal/glsl/codegen"
	"github.com/lightplayer/lp/internal/glsl/parser"
	"github.com/lightplayer/lp/internal/glsl/sema"
	"github.com/lightplayer/lp/internal/glslvalue"
)

func buildProgram(t *testing.T, src string) *Program {
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
	return Compile(mod)
}

func approxEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestCallArithmetic(t *testing.T) {
	p := buildProgram(t, `float f(float x){ return x*2.0+1.0; }`)
	ret, _, err := p.Call("f", []glslvalue.Value{glslvalue.Float(3)})
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(ret.F, 7, 1e-3) {
		t.Fatalf("f(3) = %v, want 7", ret.F)
	}
}

func TestCallBuiltinAbs(t *testing.T) {
	p := buildProgram(t, `float f(float x){ return abs(x); }`)
	ret, _, err := p.Call("f", []glslvalue.Value{glslvalue.Float(-4)})
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(ret.F, 4, 1e-3) {
		t.Fatalf("abs(-4) = %v, want 4", ret.F)
	}
}

func TestCallBuiltinClamp(t *testing.T) {
	p := buildProgram(t, `float f(float x){ return clamp(x, 0.0, 1.0); }`)
	ret, _, err := p.Call("f", []glslvalue.Value{glslvalue.Float(5)})
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(ret.F, 1, 1e-3) {
		t.Fatalf("clamp(5,0,1) = %v, want 1", ret.F)
	}
}

func TestCallIfElseBranching(t *testing.T) {
	p := buildProgram(t, `
	float f(float t){
		if (t > 0.5) {
			t = t - 0.5;
		} else {
			t = t + 0.5;
		}
		return t;
	}`)
	ret, _, err := p.Call("f", []glslvalue.Value{glslvalue.Float(0.8)})
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(ret.F, 0.3, 1e-2) {
		t.Fatalf("f(0.8) = %v, want ~0.3", ret.F)
	}

	ret2, _, err := p.Call("f", []glslvalue.Value{glslvalue.Float(0.1)})
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(ret2.F, 0.6, 1e-2) {
		t.Fatalf("f(0.1) = %v, want ~0.6", ret2.F)
	}
}

func TestCallForLoopAccumulates(t *testing.T) {
	p := buildProgram(t, `
	float f(){
		float acc = 0.0;
		for (int i = 0; i < 4; i = i + 1) {
			acc = acc + 1.0;
		}
		return acc;
	}`)
	ret, _, err := p.Call("f", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(ret.F, 4, 1e-3) {
		t.Fatalf("f() = %v, want 4", ret.F)
	}
}

func TestCallOutParamWriteback(t *testing.T) {
	p := buildProgram(t, `void bump(inout float x){ x = x + 1.0; }`)
	_, outs, err := p.Call("bump", []glslvalue.Value{glslvalue.Float(2)})
	if err != nil {
		t.Fatal(err)
	}
	if len(outs) != 1 || !approxEqual(outs[0].F, 3, 1e-3) {
		t.Fatalf("outs = %+v, want [3]", outs)
	}
}

func TestCallUnknownFunctionErrors(t *testing.T) {
	p := buildProgram(t, `float f(float x){ return x; }`)
	if _, _, err := p.Call("nope", []glslvalue.Value{glslvalue.Float(0)}); err == nil {
		t.Fatal("expected an error calling an undefined function")
	}
}

func TestCallArrayBoundsTrap(t *testing.T) {
	p := buildProgram(t, `
	float f(int i){
		float a[4];
		a[0] = 1.0;
		a[1] = 2.0;
		a[2] = 3.0;
		a[3] = 4.0;
		return a[i];
	}`)
	if _, _, err := p.Call("f", []glslvalue.Value{glslvalue.Int(10)}); err == nil {
		t.Fatal("expected a TrapError for an out-of-range array index")
	} else if _, ok := err.(*TrapError); !ok {
		t.Fatalf("error = %T, want *TrapError", err)
	}
}
