package fixed32

import "sync/atomic"

// Stats counts calls into four families of transcendental builtins (sqrt,
// trig including the hyperbolic functions, exp/log, pow) while counting is
// enabled. Purely additive instrumentation — never consulted by any Q32
// arithmetic itself; no package in this repository reads Snapshot.
//
// Grounded on the original Rust project's fixed32-metrics app
// (lp-glsl/apps/fixed32-metrics/src/stats.rs), dropped by the distilled
// spec.md but reintroduced here as a supplemented feature.
type Stats struct {
	enabled int32

	sqrtCalls atomic.Int64
	trigCalls atomic.Int64
	expCalls  atomic.Int64
	powCalls  atomic.Int64
}

var global Stats

// Enable turns on call counting. Disabled by default so the hot Q32 path
// pays nothing in the common case.
func Enable() { atomic.StoreInt32(&global.enabled, 1) }
func Disable() {
	atomic.StoreInt32(&global.enabled, 0)
	global.reset()
}

func (s *Stats) reset() {
	s.sqrtCalls.Store(0)
	s.trigCalls.Store(0)
	s.expCalls.Store(0)
	s.powCalls.Store(0)
}

// Snapshot returns the current call counters.
func Snapshot() (sqrtCalls, trigCalls, expCalls, powCalls int64) {
	return global.sqrtCalls.Load(), global.trigCalls.Load(), global.expCalls.Load(), global.powCalls.Load()
}

func countSqrt() {
	if atomic.LoadInt32(&global.enabled) != 0 {
		global.sqrtCalls.Add(1)
	}
}

func countTrig() {
	if atomic.LoadInt32(&global.enabled) != 0 {
		global.trigCalls.Add(1)
	}
}

func countExp() {
	if atomic.LoadInt32(&global.enabled) != 0 {
		global.expCalls.Add(1)
	}
}

func countPow() {
	if atomic.LoadInt32(&global.enabled) != 0 {
		global.powCalls.Add(1)
	}
}
