package display

import "testing"

func TestZeroFrameBeforeAnyWrite(t *testing.T) {
	p := New(2, 2)
	out := p.Sample(1 << 15)
	for i, b := range out {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0 before any WriteFrame", i, b)
		}
	}
}

func TestInterpolationMonotonic(t *testing.T) {
	p := New(1, 1)
	p.SetBrightness(1 << 16)
	identity := [gammaLUTSize]uint8{}
	for i := range identity {
		identity[i] = uint8(i)
	}
	p.SetGamma(identity)

	p.WriteFrame(0, []RGB16{{R: 0, G: 0, B: 0}})
	p.WriteFrame(1000, []RGB16{{R: 65535, G: 65535, B: 65535}})
	// A third write rotates black into prev and white into cur, so Sample
	// interpolates black -> white across [0, 1000].
	p.WriteFrame(2000, []RGB16{{R: 65535, G: 65535, B: 65535}})

	prevVal := byte(0)
	for _, now := range []uint32{0, 250, 500, 750, 1000} {
		out := p.Sample(now)
		if out[0] < prevVal {
			t.Fatalf("now=%d: R=%d went below previous sample %d", now, out[0], prevVal)
		}
		prevVal = out[0]
	}
	if prevVal != 255 {
		t.Fatalf("full interval should reach 255, got %d", prevVal)
	}
}

func TestWriteFrameFromU8RoundTrips(t *testing.T) {
	p := New(1, 1)
	identity := [gammaLUTSize]uint8{}
	for i := range identity {
		identity[i] = uint8(i)
	}
	p.SetGamma(identity)
	p.WriteFrameFromU8(0, []byte{10, 20, 30})
	p.WriteFrameFromU8(1000, []byte{10, 20, 30})
	out := p.Sample(1000)
	if out[0] != 10 || out[1] != 20 || out[2] != 30 {
		t.Fatalf("got %v, want [10 20 30]", out[:3])
	}
}

// TestDisplayPipelineScenario implements spec.md §8 scenario S4: with the
// LUT disabled, dithering disabled, and full brightness, two identical
// 8-bit writes a second apart sample back exactly, regardless of the
// sampled timestamp falling strictly between them.
func TestDisplayPipelineScenario(t *testing.T) {
	p := New(1, 1)
	p.SetLUTEnabled(false)
	p.SetDitherEnabled(false)
	p.SetBrightness(1 << 16)

	p.WriteFrameFromU8(0, []byte{255, 0, 0})
	p.WriteFrameFromU8(1000, []byte{255, 0, 0})

	out := p.Tick(500)
	if out[0] != 255 || out[1] != 0 || out[2] != 0 {
		t.Fatalf("got %v, want [255 0 0]", out[:3])
	}
}

func TestResizeDiscardsStaleFrames(t *testing.T) {
	p := New(1, 1)
	p.WriteFrame(0, []RGB16{{R: 65535}})
	p.WriteFrame(1000, []RGB16{{R: 65535}})
	p.Resize(2, 2)
	out := p.Sample(500)
	for i, b := range out {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0 after resize", i, b)
		}
	}
}

func TestInterpolationDisabledRotatesOnTick(t *testing.T) {
	p := New(1, 1)
	p.SetInterpolationEnabled(false)
	p.SetLUTEnabled(false)
	p.SetDitherEnabled(false)

	p.WriteFrameFromU8(0, []byte{10, 20, 30})
	out := p.Tick(0)
	if out[0] != 10 || out[1] != 20 || out[2] != 30 {
		t.Fatalf("got %v, want [10 20 30] after interpolation-disabled rotate", out[:3])
	}
}
