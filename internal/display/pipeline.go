// Package display implements the output display pipeline: a triple-buffered,
// timestamp-tagged frame store with Q16 linear interpolation between writes,
// a 256-entry gamma lookup table, brightness scaling, and carried-error
// dithering on the final 16-to-8 bit conversion (spec §4.H). The gamma LUT
// follows this repository's own precomputed-table-plus-init idiom
// (audio_lut.go's sinLUT).
package display

import "math"

// RGB16 is one pixel at 16 bits per channel, the pipeline's internal
// working precision.
type RGB16 struct {
	R, G, B uint16
}

const gammaLUTSize = 256
const q16One = 1 << 16

// Pipeline holds three timestamp-tagged frame buffers (previous, current,
// next) so a writer can push a new frame while readers still interpolate
// between the two most recently promoted ones.
type Pipeline struct {
	width, height         int
	prev, cur, next       []RGB16
	prevTS, curTS, nextTS uint32
	hasCurrent            bool
	pendingNext           bool

	gamma      [gammaLUTSize]uint8
	brightness uint32 // Q16: 65536 == 1.0

	interpEnabled bool
	lutEnabled    bool
	ditherEnabled bool

	ditherErr []int32 // carried quantization error, 3 per pixel (R,G,B)
}

func New(width, height int) *Pipeline {
	p := &Pipeline{
		width: width, height: height,
		brightness:    1 << 16,
		interpEnabled: true,
		lutEnabled:    true,
		ditherEnabled: true,
	}
	p.allocate()
	p.setDefaultGamma()
	return p
}

func (p *Pipeline) allocate() {
	n := p.width * p.height
	p.prev = make([]RGB16, n)
	p.cur = make([]RGB16, n)
	p.next = make([]RGB16, n)
	p.ditherErr = make([]int32, n*3)
}

// setDefaultGamma fills the LUT with an identity-ish sRGB-like curve
// (gamma 2.2), matching the "precompute once in a table" shape of the
// repository's LUT idiom rather than computing pow() per pixel per frame.
func (p *Pipeline) setDefaultGamma() {
	for i := 0; i < gammaLUTSize; i++ {
		x := float64(i) / float64(gammaLUTSize-1)
		p.gamma[i] = uint8(math.Round(math.Pow(x, 2.2) * 255))
	}
}

// SetGamma installs a caller-supplied 256-entry LUT (e.g. loaded from a
// fixture calibration profile).
func (p *Pipeline) SetGamma(lut [gammaLUTSize]uint8) { p.gamma = lut }

// SetBrightness sets a Q16 scale factor applied before gamma correction;
// 1<<16 is full brightness, 0 is black.
func (p *Pipeline) SetBrightness(q16 uint32) { p.brightness = q16 }

// SetInterpolationEnabled toggles the prev/current Q16 lerp step. Disabling
// it makes write_frame's rotation happen eagerly on tick instead, per
// spec.md §4.H ("if interpolation disabled and next exists, rotate").
func (p *Pipeline) SetInterpolationEnabled(enabled bool) { p.interpEnabled = enabled }

// SetLUTEnabled toggles the per-channel gamma lookup. Disabled, tick skips
// the table and quantizes the 16-bit channel straight down to 8 bits
// (rounded, or with carried error when dithering is on).
func (p *Pipeline) SetLUTEnabled(enabled bool) { p.lutEnabled = enabled }

// SetDitherEnabled toggles carried-error dithering on the final truncation.
func (p *Pipeline) SetDitherEnabled(enabled bool) { p.ditherEnabled = enabled }

// Resize reallocates all three buffers and drops any in-flight frame state;
// the next WriteFrame starts a fresh interpolation pair. Per spec.md §4.H,
// old frame data must never survive a resize.
func (p *Pipeline) Resize(width, height int) {
	p.width, p.height = width, height
	p.hasCurrent = false
	p.pendingNext = false
	p.prevTS, p.curTS, p.nextTS = 0, 0, 0
	p.allocate()
}

// rotate promotes the staged "next" buffer into "current", pushing the old
// "current" into "prev". Shared by WriteFrame (when a write arrives before
// the previous one was ever promoted) and Tick (when interpolation is
// disabled, per spec.md §4.H's "rotate" bullet).
func (p *Pipeline) rotate() {
	copy(p.prev, p.cur)
	p.prevTS = p.curTS
	copy(p.cur, p.next)
	p.curTS = p.nextTS
	p.hasCurrent = true
}

// WriteFrame pushes a new completed frame tagged with its completion
// timestamp. If an earlier write's "next" was never promoted by a Tick
// (interpolation-disabled pipelines rotate lazily), it is rotated into
// current/prev first so no frame is ever silently dropped.
func (p *Pipeline) WriteFrame(ts uint32, frame []RGB16) {
	if p.pendingNext {
		p.rotate()
	}
	copy(p.next, frame)
	p.nextTS = ts
	p.pendingNext = true
}

// WriteFrameFromU8 scales an 8-bit-per-channel RGB buffer up to 16-bit
// (x*257, the exact 0..255 -> 0..65535 mapping) before writing it.
func (p *Pipeline) WriteFrameFromU8(ts uint32, rgb8 []byte) {
	n := len(rgb8) / 3
	frame := make([]RGB16, n)
	for i := 0; i < n; i++ {
		frame[i] = RGB16{
			R: uint16(rgb8[i*3+0]) * 257,
			G: uint16(rgb8[i*3+1]) * 257,
			B: uint16(rgb8[i*3+2]) * 257,
		}
	}
	p.WriteFrame(ts, frame)
}

func lerpQ16(a, b uint16, t uint32) uint16 {
	av, bv := int64(a), int64(b)
	return uint16(av + (bv-av)*int64(t)/q16One)
}

// fraction computes t = (now - prevTS) / (curTS - prevTS) in Q16, clamped to
// [0,1]. A degenerate (non-positive or zero-width) interval — the case right
// after the first rotation, when prev and current share the same timestamp
// — resolves to t=1 (show current in full) rather than dividing by zero.
func (p *Pipeline) fraction(now uint32) uint32 {
	span := int64(p.curTS) - int64(p.prevTS)
	if span <= 0 {
		return q16One
	}
	elapsed := int64(now) - int64(p.prevTS)
	if elapsed < 0 {
		elapsed = 0
	}
	frac := elapsed * q16One / span
	if frac > q16One {
		frac = q16One
	}
	return uint32(frac)
}

// Tick produces the 8-bit output frame for time now, per spec.md §4.H:
// rotate (if interpolation is off and a write is pending), interpolate (if
// on), apply gamma, brightness, and dither. The invariant that out has been
// fully written by the time Tick returns holds even with zero frames ever
// written — the buffer is just all zeros in that case.
func (p *Pipeline) Tick(now uint32) []byte {
	if !p.interpEnabled && p.pendingNext {
		p.rotate()
		p.pendingNext = false
	}

	out := make([]byte, p.width*p.height*3)
	if !p.hasCurrent {
		return out
	}

	var t uint32 = q16One
	if p.interpEnabled {
		t = p.fraction(now)
	}

	for i := range p.cur {
		var r, g, b uint16
		if p.interpEnabled {
			r = lerpQ16(p.prev[i].R, p.cur[i].R, t)
			g = lerpQ16(p.prev[i].G, p.cur[i].G, t)
			b = lerpQ16(p.prev[i].B, p.cur[i].B, t)
		} else {
			r, g, b = p.cur[i].R, p.cur[i].G, p.cur[i].B
		}

		out[i*3+0] = p.quantize(i*3+0, p.scaleGamma(r))
		out[i*3+1] = p.quantize(i*3+1, p.scaleGamma(g))
		out[i*3+2] = p.quantize(i*3+2, p.scaleGamma(b))
	}
	return out
}

// Sample is Tick under the name previewwindow.Source expects: a read-only
// render at time now. It advances the same lazy-rotation state Tick does,
// since both are just "produce the frame visible at time now".
func (p *Pipeline) Sample(now uint32) []byte { return p.Tick(now) }

// scaleGamma applies brightness in the 16-bit domain, then (unless the LUT
// is disabled) the gamma LUT indexed by the top 8 bits, returning a
// fixed-point 8.8 value so the dithering step below still has sub-LSB
// precision to carry forward.
func (p *Pipeline) scaleGamma(v uint16) uint32 {
	scaled := uint32(v) * p.brightness >> 16
	if scaled > 0xFFFF {
		scaled = 0xFFFF
	}
	if !p.lutEnabled {
		return scaled
	}
	idx := scaled >> 8
	return uint32(p.gamma[idx]) << 8
}

// quantize converts an 8.8 fixed-point channel value to 8 bits. With
// dithering enabled, the truncation error is carried into the same channel
// slot's accumulator so systematic bias averages out across frames
// (temporal carried-error dithering rather than spatial error diffusion);
// disabled, it is a plain round-to-nearest with no carry.
func (p *Pipeline) quantize(slot int, v8_8 uint32) byte {
	if !p.ditherEnabled {
		q := (v8_8 + 0x80) >> 8
		if q > 255 {
			q = 255
		}
		return byte(q)
	}
	total := int32(v8_8) + p.ditherErr[slot]
	q := total >> 8
	if q < 0 {
		q = 0
	}
	if q > 255 {
		q = 255
	}
	p.ditherErr[slot] = total - q<<8
	return byte(q)
}
