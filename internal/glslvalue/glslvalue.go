// Package glslvalue defines the boundary value representation used to call
// into compiled node-shader functions from Go: the host JIT backend
// marshals arguments into Value, invokes the function, and unmarshals the
// result back out (spec §4.C "host call ABI").
package glslvalue

import "github.com/lightplayer/lp/internal/fixed32"

type Kind int

const (
	KInt Kind = iota
	KUint
	KFloat
	KBool
	KVec
)

// Value is a tagged union over the scalar and vector kinds a node-shader
// function signature can use. Float values are carried as float64 at this
// boundary and converted to/from Q32 only when crossing into the lowered
// module's integer world.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	B    bool
	Vec  []float64
}

func Int(v int64) Value    { return Value{Kind: KInt, I: v} }
func Uint(v int64) Value   { return Value{Kind: KUint, I: v} }
func Float(v float64) Value { return Value{Kind: KFloat, F: v} }
func Bool(v bool) Value    { return Value{Kind: KBool, B: v} }
func Vec(vs ...float64) Value { return Value{Kind: KVec, Vec: vs} }

// ToQ32Raw returns the raw Q32 fixed-point representation of a float/vector
// Value, the form the lowered module's integer instructions operate on.
func (v Value) ToQ32Raw() int64 {
	return int64(fixed32.FromFloat64(v.F))
}

func (v Value) VecToQ32Raw() []int64 {
	out := make([]int64, len(v.Vec))
	for i, f := range v.Vec {
		out[i] = int64(fixed32.FromFloat64(f))
	}
	return out
}

// FromQ32Raw builds a float Value from a raw Q32 integer.
func FromQ32Raw(raw int64) Value {
	return Value{Kind: KFloat, F: fixed32.Q32(raw).ToFloat64()}
}
