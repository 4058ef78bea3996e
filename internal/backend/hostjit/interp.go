// Package hostjit implements the host JIT back-end as a tree-walking
// interpreter over an already Q32-lowered ssair.Module (spec §4.E "Host
// back-end"). This system has no practical need to emit native machine code
// on the workstation that runs the project server — the interpreter gives
// identical Q32 semantics to the RV32 target at a fraction of the
// implementation cost, and is documented as a deliberate simplification of
// the "JIT" back-end's literal meaning (see DESIGN.md).
package hostjit

import (
	"fmt"

	"github.com/lightplayer/lp/internal/glslvalue"
	"github.com/lightplayer/lp/internal/q32lower"
	"github.com/lightplayer/lp/internal/ssair"
)

// Program is a compiled module ready for repeated invocation.
type Program struct {
	mod *ssair.Module
}

// Compile lowers a float-domain module to Q32 and wraps it for execution.
// If mod is already in "q32" format it is used as-is.
func Compile(mod *ssair.Module) *Program {
	if mod.DecimalFormat == "q32" {
		return &Program{mod: mod}
	}
	return &Program{mod: q32lower.Lower(mod)}
}

// TrapError is returned when execution hits a BoundsCheck failure or an
// explicit trap terminator.
type TrapError struct {
	Code string
}

func (e *TrapError) Error() string { return fmt.Sprintf("trap: %s", e.Code) }

// Call invokes the named function with the given boundary arguments and
// returns its return value plus the final value of every out/inout
// parameter, in parameter order.
func (p *Program) Call(name string, args []glslvalue.Value) (ret glslvalue.Value, outs []glslvalue.Value, err error) {
	fn := p.mod.Func(name)
	if fn == nil {
		return glslvalue.Value{}, nil, fmt.Errorf("hostjit: no such function %q", name)
	}
	m := newMachine(p.mod, fn)
	for i, a := range fn.Sig.Params {
		m.vals[paramSeed(i)] = marshalArg(a.Type, args[i])
	}
	retVal, outVals, err := m.run()
	if err != nil {
		return glslvalue.Value{}, nil, err
	}
	ret = unmarshalResult(fn.Sig.Ret, retVal)
	for _, idx := range outIndices(fn.Sig) {
		outs = append(outs, unmarshalResult(fn.Sig.Params[idx].Type, outVals[idx]))
	}
	return ret, outs, nil
}

func outIndices(sig ssair.Signature) []int {
	var idx []int
	for i, p := range sig.Params {
		if p.Out {
			idx = append(idx, i)
		}
	}
	return idx
}

// paramSeed gives OpParam a stable synthetic key independent of block
// layout: the machine looks up seeded params by index, not by Value id,
// since OpParam's Result id is assigned fresh by the builder per function.
func paramSeed(i int) int { return -(i + 1) }

func marshalArg(t ssair.Type, v glslvalue.Value) any {
	switch t.Kind {
	case ssair.I32:
		if v.Kind == glslvalue.KFloat {
			return v.ToQ32Raw()
		}
		return v.I
	case ssair.U32:
		return v.I
	case ssair.Bool:
		return v.B
	case ssair.F32:
		return v.ToQ32Raw() // host JIT always runs the Q32-lowered module
	case ssair.Vec:
		return v.VecToQ32Raw()
	}
	return v.I
}

func unmarshalResult(t ssair.Type, raw any) glslvalue.Value {
	switch t.Kind {
	case ssair.Bool:
		return glslvalue.Bool(raw.(bool))
	case ssair.Vec:
		ints := raw.([]int64)
		fs := make([]float64, len(ints))
		for i, r := range ints {
			fs[i] = glslvalue.FromQ32Raw(r).F
		}
		return glslvalue.Vec(fs...)
	default:
		i, ok := raw.(int64)
		if !ok {
			return glslvalue.Value{}
		}
		return glslvalue.FromQ32Raw(i)
	}
}
