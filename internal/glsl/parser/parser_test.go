package parser

import "testing"

func TestParseSimpleFunc(t *testing.T) {
	src := `float f(float x){return x*2.0+1.0;}`
	f, diags := Parse(src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(f.Funcs) != 1 {
		t.Fatalf("expected 1 func, got %d", len(f.Funcs))
	}
	fn := f.Funcs[0]
	if fn.Name != "f" || len(fn.Params) != 1 {
		t.Fatalf("unexpected func shape: %+v", fn)
	}
}

func TestParseControlFlow(t *testing.T) {
	src := `
	vec4 main(vec2 fragCoord, vec2 outputSize, float time) {
		float t = mod(time, 1.0);
		if (t > 0.5) {
			t = t - 0.5;
		} else {
			t = t + 0.5;
		}
		for (int i = 0; i < 4; i = i + 1) {
			t = t + 0.01;
		}
		return vec4(t, 0.0, 0.0, 1.0);
	}`
	f, diags := Parse(src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(f.Funcs) != 1 {
		t.Fatalf("expected 1 func, got %d", len(f.Funcs))
	}
}

func TestParseArrayIndex(t *testing.T) {
	src := `int g(int i){int a[4] = int[4](10,20,30,40); return a[i];}`
	f, diags := Parse(src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(f.Funcs) != 1 {
		t.Fatalf("expected 1 func")
	}
}

func TestParseSwizzleAssign(t *testing.T) {
	src := `vec4 h(vec4 v){ v.xy = v.yx; return v; }`
	_, diags := Parse(src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
}
