package hostjit

import (
	"fmt"

	"github.com/lightplayer/lp/internal/fixed32"
	"github.com/lightplayer/lp/internal/ssair"
)

type machine struct {
	mod      *ssair.Module
	fn       *ssair.Function
	vals     map[int]any
	mem      map[int][]any
	outs     map[int]any
	ptrSlots map[int]int
}

func newMachine(mod *ssair.Module, fn *ssair.Function) *machine {
	return &machine{
		mod: mod, fn: fn,
		vals: map[int]any{}, mem: map[int][]any{}, outs: map[int]any{}, ptrSlots: map[int]int{},
	}
}

func (m *machine) get(v ssair.Value) any { return m.vals[int(v)] }
func (m *machine) set(v ssair.Value, val any) { m.vals[int(v)] = val }

func (m *machine) run() (ret any, outs map[int]any, err error) {
	blk := m.fn.Blocks[0]
	for {
		for _, in := range blk.Instrs {
			if e := m.exec(in); e != nil {
				return nil, nil, e
			}
		}
		switch blk.Term.Kind {
		case ssair.TermJump:
			blk = m.fn.Block(blk.Term.Targets[0])
		case ssair.TermBranch:
			if m.get(blk.Term.Cond).(bool) {
				blk = m.fn.Block(blk.Term.Targets[0])
			} else {
				blk = m.fn.Block(blk.Term.Targets[1])
			}
		case ssair.TermReturn:
			if blk.Term.HasRet {
				return m.get(blk.Term.RetVal), m.outs, nil
			}
			return nil, m.outs, nil
		case ssair.TermTrap:
			return nil, nil, &TrapError{Code: blk.Term.TrapCode}
		}
	}
}

func (m *machine) exec(in ssair.Instr) error {
	switch in.Op {
	case ssair.OpConstInt:
		m.set(in.Result, in.ImmInt)
	case ssair.OpConstFloat:
		m.set(in.Result, int64(fixed32.FromFloat64(in.ImmFloat)))
	case ssair.OpConstBool:
		m.set(in.Result, in.ImmBool)

	case ssair.OpParam:
		m.set(in.Result, m.vals[paramSeed(in.Index)])

	case ssair.OpParamWriteback:
		m.outs[in.Index] = m.get(in.Args[0])

	case ssair.OpAdd, ssair.OpSub, ssair.OpMul, ssair.OpDiv, ssair.OpMod,
		ssair.OpMin, ssair.OpMax:
		m.set(in.Result, binArith(in.Op, in.Type, m.get(in.Args[0]), m.get(in.Args[1])))

	case ssair.OpNeg:
		m.set(in.Result, -m.get(in.Args[0]).(int64))
	case ssair.OpAbs:
		x := m.get(in.Args[0]).(int64)
		if x < 0 {
			x = -x
		}
		m.set(in.Result, x)

	case ssair.OpCmpEq, ssair.OpCmpNe, ssair.OpCmpLt, ssair.OpCmpLe, ssair.OpCmpGt, ssair.OpCmpGe:
		m.set(in.Result, cmp(in.Op, in.Type, m.get(in.Args[0]), m.get(in.Args[1])))

	case ssair.OpAnd:
		m.set(in.Result, m.get(in.Args[0]).(bool) && m.get(in.Args[1]).(bool))
	case ssair.OpOr:
		m.set(in.Result, m.get(in.Args[0]).(bool) || m.get(in.Args[1]).(bool))
	case ssair.OpNot:
		m.set(in.Result, !m.get(in.Args[0]).(bool))

	case ssair.OpSelect:
		if m.get(in.Args[0]).(bool) {
			m.set(in.Result, m.get(in.Args[1]))
		} else {
			m.set(in.Result, m.get(in.Args[2]))
		}

	case ssair.OpConvertSIntToFloat, ssair.OpConvertUIntToFloat:
		m.set(in.Result, m.get(in.Args[0]).(int64)<<16)
	case ssair.OpConvertFloatToSInt, ssair.OpConvertFloatToUInt:
		m.set(in.Result, m.get(in.Args[0]).(int64)>>16)
	case ssair.OpConvertIntToUint, ssair.OpConvertUintToInt:
		m.set(in.Result, m.get(in.Args[0]))

	case ssair.OpFloor:
		x := m.get(in.Args[0]).(int64)
		m.set(in.Result, x&^0xFFFF)
	case ssair.OpCeil:
		x := m.get(in.Args[0]).(int64)
		m.set(in.Result, (x+0xFFFF)&^0xFFFF)
	case ssair.OpTrunc:
		x := m.get(in.Args[0]).(int64)
		if x < 0 {
			m.set(in.Result, (x+0xFFFF)&^0xFFFF)
		} else {
			m.set(in.Result, x&^0xFFFF)
		}
	case ssair.OpRound, ssair.OpNearest:
		x := m.get(in.Args[0]).(int64)
		m.set(in.Result, int64(fixed32.RoundEven(fixed32.Q32(x))))
	case ssair.OpSqrt:
		x := m.get(in.Args[0]).(int64)
		m.set(in.Result, int64(fixed32.Sqrt(fixed32.Q32(x))))

	case ssair.OpVecMake:
		vec := make([]int64, len(in.Args))
		for i, a := range in.Args {
			vec[i] = m.get(a).(int64)
		}
		m.set(in.Result, vec)
	case ssair.OpVecExtract:
		vec := m.get(in.Args[0]).([]int64)
		m.set(in.Result, vec[in.Index])
	case ssair.OpVecInsert:
		src := m.get(in.Args[0]).([]int64)
		vec := append([]int64(nil), src...)
		vec[in.Index] = m.get(in.Args[1]).(int64)
		m.set(in.Result, vec)

	case ssair.OpAlloca:
		slot := m.fn.StackSlots[in.Index]
		size := slot.ArrayLen
		if size == 0 {
			size = slot.Type.Components()
			if size == 0 {
				size = 1
			}
		}
		m.mem[in.Index] = make([]any, size)
		m.ptrSlots[int(in.Result)] = in.Index
		m.set(in.Result, in.Index)
	case ssair.OpLoad:
		m.set(in.Result, m.mem[slotOf(in.Args[0], m)][0])
	case ssair.OpStore:
		idx := in.Index
		if idx < 0 {
			idx = 0
		}
		m.mem[slotOf(in.Args[0], m)][idx] = m.get(in.Args[1])
	case ssair.OpLoadIndexed:
		idx := int(m.get(in.Args[1]).(int64))
		m.set(in.Result, m.mem[slotOf(in.Args[0], m)][idx])
	case ssair.OpStoreIndexed:
		idx := int(m.get(in.Args[1]).(int64))
		m.mem[slotOf(in.Args[0], m)][idx] = m.get(in.Args[2])

	case ssair.OpBoundsCheck:
		idx := m.get(in.Args[0]).(int64)
		length := m.get(in.Args[1]).(int64)
		if idx < 0 || idx >= length {
			return &TrapError{Code: in.TrapCode}
		}

	case ssair.OpCallExtern:
		v, err := callBuiltin(in.Callee, m.argInts(in.Args))
		if err != nil {
			return err
		}
		m.set(in.Result, v)
	case ssair.OpCall:
		callee := m.mod.Func(in.Callee)
		sub := newMachine(m.mod, callee)
		for i, a := range in.Args {
			sub.vals[paramSeed(i)] = m.get(a)
		}
		retVal, _, err := sub.run()
		if err != nil {
			return err
		}
		m.set(in.Result, retVal)
	}
	return nil
}

// slotOf maps an Alloca Result Value to its stack-slot index; Alloca's
// Instr.Index carries the slot index directly, and every Ptr-typed value in
// this interpreter originates from exactly one Alloca.
func slotOf(ptr ssair.Value, m *machine) int {
	return m.ptrSlots[int(ptr)]
}

func (m *machine) argInts(args []ssair.Value) []int64 {
	out := make([]int64, len(args))
	for i, a := range args {
		out[i] = m.get(a).(int64)
	}
	return out
}

func binArith(op ssair.Op, t ssair.Type, x, y any) any {
	xi, xok := x.(int64)
	yi, yok := y.(int64)
	if xok && yok {
		switch op {
		case ssair.OpAdd:
			return xi + yi
		case ssair.OpSub:
			return xi - yi
		case ssair.OpMul:
			return xi * yi
		case ssair.OpDiv:
			if yi == 0 {
				return int64(0)
			}
			if t.Kind == ssair.U32 {
				return int64(uint32(xi) / uint32(yi))
			}
			return xi / yi
		case ssair.OpMod:
			if yi == 0 {
				return int64(0)
			}
			r := xi % yi
			if r != 0 && (r < 0) != (yi < 0) {
				r += yi
			}
			return r
		case ssair.OpMin:
			if xi < yi {
				return xi
			}
			return yi
		case ssair.OpMax:
			if xi > yi {
				return xi
			}
			return yi
		}
	}
	// vector operands: component-wise
	xv, _ := x.([]int64)
	yv, _ := y.([]int64)
	out := make([]int64, len(xv))
	for i := range xv {
		out[i] = binArith(op, t, xv[i], yv[i]).(int64)
	}
	return out
}

func cmp(op ssair.Op, t ssair.Type, x, y any) bool {
	xi := x.(int64)
	yi := y.(int64)
	if t.Kind == ssair.U32 {
		xu, yu := uint32(xi), uint32(yi)
		switch op {
		case ssair.OpCmpEq:
			return xu == yu
		case ssair.OpCmpNe:
			return xu != yu
		case ssair.OpCmpLt:
			return xu < yu
		case ssair.OpCmpLe:
			return xu <= yu
		case ssair.OpCmpGt:
			return xu > yu
		case ssair.OpCmpGe:
			return xu >= yu
		}
	}
	switch op {
	case ssair.OpCmpEq:
		return xi == yi
	case ssair.OpCmpNe:
		return xi != yi
	case ssair.OpCmpLt:
		return xi < yi
	case ssair.OpCmpLe:
		return xi <= yi
	case ssair.OpCmpGt:
		return xi > yi
	case ssair.OpCmpGe:
		return xi >= yi
	}
	return false
}

// callBuiltin wires every §4.A builtin (fixed32's full 32-function
// surface) to its extern symbol name. Both the `__lp_fixed32_*` names
// q32lower emits for the arithmetic operators and the `lpfx_*` names the
// GLSL builtin table declares are accepted, since both ultimately name
// the same fixed32 functions. An unrecognized name is a linker-level
// error, not a silent zero — a GLSL program calling a builtin this JIT
// doesn't know about is a bug in the JIT, not a runtime condition to
// paper over.
func callBuiltin(name string, args []int64) (int64, error) {
	a := fixed32.Q32(args[0])
	switch name {
	case "__lp_fixed32_mul", "lpfx_mul":
		return int64(fixed32.Mul(a, fixed32.Q32(args[1]))), nil
	case "__lp_fixed32_div", "lpfx_div":
		return int64(fixed32.Div(a, fixed32.Q32(args[1]))), nil
	case "__lp_fixed32_sqrt", "lpfx_sqrt":
		return int64(fixed32.Sqrt(a)), nil
	case "lpfx_inversesqrt":
		return int64(fixed32.InverseSqrt(a)), nil
	case "lpfx_sin", "__lp_fixed32_sin":
		return int64(fixed32.Sin(a)), nil
	case "lpfx_cos", "__lp_fixed32_cos":
		return int64(fixed32.Cos(a)), nil
	case "lpfx_tan":
		return int64(fixed32.Tan(a)), nil
	case "lpfx_asin":
		return int64(fixed32.Asin(a)), nil
	case "lpfx_acos":
		return int64(fixed32.Acos(a)), nil
	case "lpfx_atan":
		return int64(fixed32.Atan(a)), nil
	case "lpfx_atan2":
		return int64(fixed32.Atan2(a, fixed32.Q32(args[1]))), nil
	case "lpfx_sinh":
		return int64(fixed32.Sinh(a)), nil
	case "lpfx_cosh":
		return int64(fixed32.Cosh(a)), nil
	case "lpfx_tanh":
		return int64(fixed32.Tanh(a)), nil
	case "lpfx_asinh":
		return int64(fixed32.Asinh(a)), nil
	case "lpfx_acosh":
		return int64(fixed32.Acosh(a)), nil
	case "lpfx_atanh":
		return int64(fixed32.Atanh(a)), nil
	case "lpfx_floor":
		return int64(fixed32.Floor(a)), nil
	case "lpfx_ceil":
		return int64(fixed32.Ceil(a)), nil
	case "lpfx_trunc":
		return int64(fixed32.Trunc(a)), nil
	case "lpfx_round":
		return int64(fixed32.Round(a)), nil
	case "lpfx_roundeven":
		return int64(fixed32.RoundEven(a)), nil
	case "lpfx_nearest":
		return int64(fixed32.Nearest(a)), nil
	case "lpfx_abs":
		return int64(fixed32.Abs(a)), nil
	case "lpfx_sign":
		if a > 0 {
			return int64(fixed32.FromInt(1)), nil
		} else if a < 0 {
			return int64(fixed32.FromInt(-1)), nil
		}
		return 0, nil
	case "lpfx_exp":
		return int64(fixed32.Exp(a)), nil
	case "lpfx_exp2":
		return int64(fixed32.Exp2(a)), nil
	case "lpfx_log":
		return int64(fixed32.Log(a)), nil
	case "lpfx_log2":
		return int64(fixed32.Log2(a)), nil
	case "lpfx_pow":
		return int64(fixed32.Pow(a, fixed32.Q32(args[1]))), nil
	case "lpfx_ldexp":
		return int64(fixed32.Ldexp(a, int32(args[1]))), nil
	case "lpfx_fma":
		return int64(fixed32.Fma(a, fixed32.Q32(args[1]), fixed32.Q32(args[2]))), nil
	case "lpfx_mod":
		return int64(fixed32.Mod(a, fixed32.Q32(args[1]))), nil
	case "lpfx_min":
		return int64(fixed32.Min(a, fixed32.Q32(args[1]))), nil
	case "lpfx_max":
		return int64(fixed32.Max(a, fixed32.Q32(args[1]))), nil
	case "lpfx_clamp":
		return int64(fixed32.Clamp(a, fixed32.Q32(args[1]), fixed32.Q32(args[2]))), nil
	case "lpfx_mix":
		lo, hi, t := a, fixed32.Q32(args[1]), fixed32.Q32(args[2])
		return int64(lo + fixed32.Mul(hi-lo, t)), nil
	}
	return 0, fmt.Errorf("hostjit: unknown builtin %q", name)
}
