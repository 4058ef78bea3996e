// Package texture implements the texture node source: decoding an image
// file from disk (PNG or JPEG via the stdlib decoders, BMP or TIFF via
// golang.org/x/image) and sampling it bilinearly in normalized UV
// space for shader nodes to read (spec's supplemented TextureSource feature,
// §6 item 2).
package texture

import (
	"image"
	"image/draw"
	"io"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Texture holds a decoded image in premultiplied RGBA, ready for repeated
// sampling without per-call decode overhead.
type Texture struct {
	Width, Height int
	pix           []uint8 // RGBA8, row-major, Width*Height*4
}

// Decode reads an image via the standard decoders (png, jpeg) plus the
// golang.org/x/image bmp/tiff decoders registered above, and converts it to
// a flat RGBA buffer.
func Decode(r io.Reader) (*Texture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return &Texture{Width: b.Dx(), Height: b.Dy(), pix: rgba.Pix}, nil
}

func (t *Texture) at(x, y int) (r, g, b, a float64) {
	if x < 0 {
		x = 0
	}
	if x >= t.Width {
		x = t.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= t.Height {
		y = t.Height - 1
	}
	i := (y*t.Width + x) * 4
	return float64(t.pix[i]) / 255, float64(t.pix[i+1]) / 255, float64(t.pix[i+2]) / 255, float64(t.pix[i+3]) / 255
}

// SampleBilinear samples the texture at normalized coordinates (u,v) in
// [0,1]x[0,1], wrapping neither axis (edge-clamped), returning the stored
// premultiplied RGBA as floats in [0,1].
func (t *Texture) SampleBilinear(u, v float64) (r, g, b, a float64) {
	fx := u*float64(t.Width) - 0.5
	fy := v*float64(t.Height) - 0.5
	x0 := int(floor(fx))
	y0 := int(floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	r00, g00, b00, a00 := t.at(x0, y0)
	r10, g10, b10, a10 := t.at(x0+1, y0)
	r01, g01, b01, a01 := t.at(x0, y0+1)
	r11, g11, b11, a11 := t.at(x0+1, y0+1)

	lerp := func(a, b, t float64) float64 { return a + (b-a)*t }
	r = lerp(lerp(r00, r10, tx), lerp(r01, r11, tx), ty)
	g = lerp(lerp(g00, g10, tx), lerp(g01, g11, tx), ty)
	b = lerp(lerp(b00, b10, tx), lerp(b01, b11, tx), ty)
	a = lerp(lerp(a00, a10, tx), lerp(a01, a11, tx), ty)
	return
}

func floor(f float64) float64 {
	i := int(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return float64(i)
}
