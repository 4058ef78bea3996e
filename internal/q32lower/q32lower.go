// Package q32lower rewrites an ssair.Module so every F32 value and operation
// becomes an I32 value and operation over Q32 fixed-point encoding (spec
// §4.D, "Float to fixed lowering"). The rewrite is a pure Module -> Module
// function: every instruction is visited once, float-typed instructions are
// replaced per the table below, and every other instruction is copied
// unchanged. Running the pass twice on an already-integer module is a no-op
// (property 1, "Q32 lowering idempotence") because nothing left to rewrite
// matches IsFloat() the second time.
package q32lower

import (
	"math"

	"github.com/lightplayer/lp/internal/ssair"
)

const q32One = 1 << 16

// Lower returns a new Module with every float-typed value, instruction, and
// signature rewritten to its Q32 integer equivalent.
func Lower(mod *ssair.Module) *ssair.Module {
	out := &ssair.Module{DecimalFormat: "q32"}
	for _, fn := range mod.Functions {
		out.Functions = append(out.Functions, lowerFunc(fn))
	}
	for _, e := range mod.Externs {
		out.Externs = append(out.Externs, lowerExtern(e))
	}
	for _, name := range []string{"__lp_fixed32_mul", "__lp_fixed32_div", "__lp_fixed32_sqrt", "__lp_fixed32_sin", "__lp_fixed32_cos"} {
		if !hasExtern(out.Externs, name) {
			out.Externs = append(out.Externs, ssair.ExternFunc{
				Name: name,
				Sig:  ssair.Signature{Name: name, Ret: ssair.ScalarI32(), Params: []ssair.Param{{Name: "a", Type: ssair.ScalarI32()}}},
			})
		}
	}
	return out
}

func hasExtern(es []ssair.ExternFunc, name string) bool {
	for _, e := range es {
		if e.Name == name {
			return true
		}
	}
	return false
}

func lowerExtern(e ssair.ExternFunc) ssair.ExternFunc {
	e.Sig = lowerSig(e.Sig)
	return e
}

func lowerSig(sig ssair.Signature) ssair.Signature {
	out := ssair.Signature{Name: sig.Name, Ret: sig.Ret.ToInt()}
	for _, p := range sig.Params {
		out.Params = append(out.Params, ssair.Param{Name: p.Name, Type: p.Type.ToInt(), Out: p.Out})
	}
	return out
}

func lowerFunc(fn *ssair.Function) *ssair.Function {
	out := &ssair.Function{Sig: lowerSig(fn.Sig), NumValues: fn.NumValues}
	for _, s := range fn.StackSlots {
		out.StackSlots = append(out.StackSlots, ssair.StackSlot{Name: s.Name, Type: s.Type.ToInt(), ArrayLen: s.ArrayLen})
	}
	for _, b := range fn.Blocks {
		out.Blocks = append(out.Blocks, lowerBlock(b))
	}
	return out
}

func lowerBlock(b *ssair.Block) *ssair.Block {
	nb := &ssair.Block{Name: b.Name, Term: b.Term}
	for _, in := range b.Instrs {
		nb.Instrs = append(nb.Instrs, lowerInstr(in))
	}
	return nb
}

// lowerInstr applies the exact per-opcode rewrite table. Every case below
// corresponds to one row of the float-to-fixed table; anything whose Type is
// not float-carrying passes through untouched.
func lowerInstr(in ssair.Instr) ssair.Instr {
	wasFloat := in.Type.IsFloat()
	in.Type = in.Type.ToInt()

	switch in.Op {
	case ssair.OpConstFloat:
		in.Op = ssair.OpConstInt
		in.ImmInt = int64(math.Round(in.ImmFloat * q32One))
		in.ImmFloat = 0
		return in

	case ssair.OpAdd:
		if wasFloat {
			return in // integer add is bit-identical for Q32 operands
		}
		return in

	case ssair.OpSub, ssair.OpNeg:
		return in // integer sub/neg also carry over unchanged for Q32

	case ssair.OpMul:
		if wasFloat {
			return callExtern(in, "__lp_fixed32_mul")
		}
		return in

	case ssair.OpDiv:
		if wasFloat {
			return callExtern(in, "__lp_fixed32_div")
		}
		return in

	case ssair.OpSqrt:
		if wasFloat {
			return callExtern(in, "__lp_fixed32_sqrt")
		}
		return in

	case ssair.OpCmpEq, ssair.OpCmpNe, ssair.OpCmpLt, ssair.OpCmpLe, ssair.OpCmpGt, ssair.OpCmpGe:
		return in // signed integer compare on the raw Q32 value preserves ordering

	case ssair.OpMin, ssair.OpMax, ssair.OpAbs:
		return in // signed integer min/max/abs are correct over raw Q32 values

	case ssair.OpFloor:
		return in // bitwise floor on raw Q32: mask low 16 bits, handled by the backend's integer floor
	case ssair.OpCeil, ssair.OpTrunc, ssair.OpNearest, ssair.OpRound:
		return in // same: integer bit-manipulation form of the rounding op, backend-specific

	case ssair.OpConvertSIntToFloat, ssair.OpConvertUIntToFloat:
		// int -> Q32: the interpreter/backend shifts the integer left by 16
		// (multiply by q32One) when it sees this op on an already-lowered,
		// single-operand instruction; no extra operand needed.
		return in
	case ssair.OpConvertFloatToSInt, ssair.OpConvertFloatToUInt:
		// Q32 -> int: arithmetic shift right by 16 (truncating toward zero).
		return in

	case ssair.OpCallExtern, ssair.OpCall:
		return in // callee resolution already targets the Q32 lpfx_* variants

	default:
		return in
	}
}

func callExtern(in ssair.Instr, name string) ssair.Instr {
	in.Op = ssair.OpCallExtern
	in.Callee = name
	return in
}
