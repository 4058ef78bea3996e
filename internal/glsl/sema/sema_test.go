package sema

import (
	"testing"

	"github.com/lightplayer/lp/internal/glsl/parser"
)

func check(t *testing.T, src string) []Diagnostic {
	t.Helper()
	file, diags := parser.Parse(src)
	if len(diags) != 0 {
		t.Fatalf("unexpected parse diagnostics: %v", diags)
	}
	return Check(file)
}

func TestCheckAcceptsWideningConversion(t *testing.T) {
	diags := check(t, `float f(int x){ float y = x; return y; }`)
	if len(diags) != 0 {
		t.Fatalf("widening int->float should be allowed, got %v", diags)
	}
}

func TestCheckRejectsNarrowingConversion(t *testing.T) {
	diags := check(t, `int f(float x){ int y = x; return y; }`)
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic for float->int narrowing")
	}
	if diags[0].Code != "E0201" {
		t.Fatalf("code = %q, want E0201", diags[0].Code)
	}
}

func TestCheckRejectsUndeclaredIdentifier(t *testing.T) {
	diags := check(t, `float f(){ return y; }`)
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic for undeclared y")
	}
	if diags[0].Code != "E0205" {
		t.Fatalf("code = %q, want E0205", diags[0].Code)
	}
}

func TestCheckRejectsNonBoolIfCondition(t *testing.T) {
	diags := check(t, `float f(){ if (1.0) { } return 0.0; }`)
	found := false
	for _, d := range diags {
		if d.Code == "E0202" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E0202 among %v", diags)
	}
}

func TestCheckRejectsDuplicateFunction(t *testing.T) {
	diags := check(t, `float f(){ return 0.0; } float f(){ return 1.0; }`)
	found := false
	for _, d := range diags {
		if d.Code == "E0200" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E0200 among %v", diags)
	}
}

func TestCheckValidSwizzleRead(t *testing.T) {
	diags := check(t, `float f(vec4 v){ return v.x; }`)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
}

func TestCheckRejectsOutOfRangeSwizzle(t *testing.T) {
	diags := check(t, `float f(vec2 v){ return v.z; }`)
	found := false
	for _, d := range diags {
		if d.Code == "E0213" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E0213 among %v", diags)
	}
}

func TestCheckRejectsRepeatedSwizzleAssignTarget(t *testing.T) {
	diags := check(t, `vec4 f(vec4 v){ v.xx = v.yy; return v; }`)
	found := false
	for _, d := range diags {
		if d.Code == "E0210" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E0210 among %v", diags)
	}
}

func TestCheckRejectsCallToUndeclaredFunction(t *testing.T) {
	diags := check(t, `float f(){ return notAFunction(1.0); }`)
	found := false
	for _, d := range diags {
		if d.Code == "E0216" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E0216 among %v", diags)
	}
}

func TestCheckAcceptsWellFormedShaderEntryPoint(t *testing.T) {
	diags := check(t, `
	vec4 main(vec2 fragCoord, vec2 outputSize, float time) {
		float t = mod(time, 1.0);
		vec4 c = vec4(t, 0.0, 0.0, 1.0);
		return c;
	}`)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
}
