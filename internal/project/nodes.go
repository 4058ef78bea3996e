package project

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lightplayer/lp/internal/backend/hostjit"
	"github.com/lightplayer/lp/internal/glslvalue"
	"github.com/lightplayer/lp/internal/outputprovider"
	"github.com/lightplayer/lp/internal/texture"
)

// framesPerSecond is the project runtime's fixed tick rate (spec.md §4.I
// ticks on a producer-driven cadence; this system drives it at 60Hz, the
// same rate cmd/lp-host's ticker runs at).
const framesPerSecond = 60

func frameSeconds(frame FrameID) float64 { return float64(frame) / framesPerSecond }

func frameMillis(frame FrameID) uint32 { return uint32(uint64(frame) * 1000 / framesPerSecond) }

// TextureNode owns a pixel buffer: either a static decoded image asset (the
// supplemented TextureSource feature) or a mutable render target a shader
// writes into every tick (spec.md §4 "textures allocate a pixel buffer").
// Both shapes answer Sample the same way so a fixture never needs to know
// which kind of texture it is reading.
type TextureNode struct {
	id            string
	width, height int
	pix           []float64 // RGBA floats in [0,1], row-major, width*height*4; nil if backed by a static asset instead
	asset         *texture.Texture

	path Field[string]
}

// NewTextureNode creates a mutable width*height render-target texture, the
// kind a ShaderNode targets.
func NewTextureNode(id string, width, height int, frame FrameID) *TextureNode {
	return &TextureNode{id: id, width: width, height: height, pix: make([]float64, width*height*4)}
}

// NewAssetTextureNode wraps a decoded static image as a texture node.
func NewAssetTextureNode(id string, asset *texture.Texture, path string, frame FrameID) *TextureNode {
	n := &TextureNode{id: id, width: asset.Width, height: asset.Height, asset: asset}
	n.path.Set(path, frame)
	return n
}

func (n *TextureNode) ID() string { return n.id }
func (n *TextureNode) Kind() Kind { return KindTexture }
func (n *TextureNode) Render(ctx context.Context, frame FrameID) error { return nil }
func (n *TextureNode) Fields() []FieldView {
	return []FieldView{{
		Name: "path", ChangedFrame: n.path.ChangedFrame(),
		Marshal: func() (json.RawMessage, error) { return json.Marshal(n.path.Get()) },
	}}
}

// Size reports this texture's pixel dimensions, the "outputSize" a shader
// targeting it receives.
func (n *TextureNode) Size() (width, height int) { return n.width, n.height }

// WritePixel stores one shader-evaluated pixel into the mutable render
// target. A no-op on an asset-backed texture, which a shader never targets.
func (n *TextureNode) WritePixel(x, y int, r, g, b, a float64) {
	if n.pix == nil {
		return
	}
	i := (y*n.width + x) * 4
	n.pix[i+0], n.pix[i+1], n.pix[i+2], n.pix[i+3] = r, g, b, a
}

// Sample reads the texture at normalized (u,v) coordinates, bilinearly
// interpolated, edge-clamped — the same contract regardless of whether the
// backing store is a shader-written buffer or a decoded static asset.
func (n *TextureNode) Sample(u, v float64) (r, g, b, a float64) {
	if n.asset != nil {
		return n.asset.SampleBilinear(u, v)
	}
	if n.pix == nil || n.width == 0 || n.height == 0 {
		return 0, 0, 0, 0
	}
	return n.sampleBilinear(u, v)
}

func (n *TextureNode) at(x, y int) (r, g, b, a float64) {
	if x < 0 {
		x = 0
	}
	if x >= n.width {
		x = n.width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= n.height {
		y = n.height - 1
	}
	i := (y*n.width + x) * 4
	return n.pix[i], n.pix[i+1], n.pix[i+2], n.pix[i+3]
}

func (n *TextureNode) sampleBilinear(u, v float64) (r, g, b, a float64) {
	fx := u*float64(n.width) - 0.5
	fy := v*float64(n.height) - 0.5
	x0, y0 := ifloor(fx), ifloor(fy)
	tx, ty := fx-float64(x0), fy-float64(y0)

	r00, g00, b00, a00 := n.at(x0, y0)
	r10, g10, b10, a10 := n.at(x0+1, y0)
	r01, g01, b01, a01 := n.at(x0, y0+1)
	r11, g11, b11, a11 := n.at(x0+1, y0+1)

	lerp := func(a, b, t float64) float64 { return a + (b-a)*t }
	r = lerp(lerp(r00, r10, tx), lerp(r01, r11, tx), ty)
	g = lerp(lerp(g00, g10, tx), lerp(g01, g11, tx), ty)
	b = lerp(lerp(b00, b10, tx), lerp(b01, b11, tx), ty)
	a = lerp(lerp(a00, a10, tx), lerp(a01, a11, tx), ty)
	return
}

func ifloor(f float64) int {
	i := int(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return i
}

// ShaderNode owns one compiled executable and the single texture it
// targets. Every render tick it calls the compiled entry point once per
// pixel of its target with five float arguments (fragX, fragY, width,
// height, time), i.e. fragCoord, outputSize and time as scalars, and writes
// the clamped vec4 result back (spec.md §4 "Shader node").
type ShaderNode struct {
	id      string
	program *hostjit.Program
	entry   string
	target  *TextureNode
	time    Field[float64]
	lastErr Field[string]
}

func NewShaderNode(id string, program *hostjit.Program, entry string, target *TextureNode) *ShaderNode {
	return &ShaderNode{id: id, program: program, entry: entry, target: target}
}

func (n *ShaderNode) ID() string { return n.id }
func (n *ShaderNode) Kind() Kind { return KindShader }

// Recompile atomically swaps in a freshly compiled executable on a
// hot-reload of glsl_path (spec.md §4.I "Hot-reload of shaders"). The old
// program is simply dropped — the host JIT interpreter holds no in-flight
// state across calls, so there is nothing to tombstone beyond the pointer
// itself, and the swap is only ever made between Tick calls.
func (n *ShaderNode) Recompile(program *hostjit.Program) { n.program = program }

func (n *ShaderNode) Render(ctx context.Context, frame FrameID) error {
	if n.target == nil {
		return fmt.Errorf("project: shader %q has no target texture", n.id)
	}
	w, h := n.target.Size()
	t := frameSeconds(frame)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fragX := float64(x) + 0.5
			fragY := float64(y) + 0.5
			args := []glslvalue.Value{
				glslvalue.Float(fragX), glslvalue.Float(fragY),
				glslvalue.Float(float64(w)), glslvalue.Float(float64(h)),
				glslvalue.Float(t),
			}
			ret, _, err := n.program.Call(n.entry, args)
			if err != nil {
				n.lastErr.Set(err.Error(), frame)
				return err
			}
			r, g, b, a := vec4Of(ret)
			n.target.WritePixel(x, y, clamp01f(r), clamp01f(g), clamp01f(b), clamp01f(a))
		}
	}

	prevT := n.time.Get()
	if prevT != t {
		n.time.Set(t, frame)
	}
	return nil
}

// vec4Of extracts up to four channels from a shader's return Value,
// broadcasting a scalar across RGB with full alpha and zero-filling any
// component a short vector omits.
func vec4Of(v glslvalue.Value) (r, g, b, a float64) {
	if v.Kind != glslvalue.KVec {
		return v.F, v.F, v.F, 1
	}
	get := func(i int, def float64) float64 {
		if i < len(v.Vec) {
			return v.Vec[i]
		}
		return def
	}
	return get(0, 0), get(1, 0), get(2, 0), get(3, 1)
}

func clamp01f(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (n *ShaderNode) Fields() []FieldView {
	return []FieldView{
		{Name: "time", ChangedFrame: n.time.ChangedFrame(), Marshal: func() (json.RawMessage, error) { return json.Marshal(n.time.Get()) }},
		{Name: "compile_error", ChangedFrame: n.lastErr.ChangedFrame(), Marshal: func() (json.RawMessage, error) { return json.Marshal(n.lastErr.Get()) }},
	}
}

// FixtureNode binds an output to a texture via a geometric mapping and a
// color order (spec.md §4 "Fixture node"). On render it samples the
// texture at each lamp's (u,v), permutes channels, and writes the 16-bit
// result into its own lamp_colors field and into its output's channel
// buffer at its allocated offset.
type FixtureNode struct {
	id       string
	texture  *TextureNode
	output   *OutputNode
	offset   int // this fixture's lamp offset within output.channels
	mapping  FixtureMapping
	order    ColorOrder
	lampColors   Field[[]uint16]
	mappingCells Field[[]FixtureCell]
}

func NewFixtureNode(id string, tex *TextureNode, output *OutputNode, offset int, mapping FixtureMapping, order ColorOrder, frame FrameID) *FixtureNode {
	n := &FixtureNode{id: id, texture: tex, output: output, offset: offset, mapping: mapping, order: order}
	n.mappingCells.Set(mapping.Cells, frame)
	if output != nil {
		output.ensureCapacity(offset + len(mapping.Cells))
	}
	return n
}

func (n *FixtureNode) ID() string { return n.id }
func (n *FixtureNode) Kind() Kind { return KindFixture }

func (n *FixtureNode) Render(ctx context.Context, frame FrameID) error {
	colors := make([]uint16, len(n.mapping.Cells)*3)
	for i, cell := range n.mapping.Cells {
		r, g, b, _ := n.texture.Sample(cell.U, cell.V)
		r16, g16, b16 := n.order.permute(to16(r), to16(g), to16(b))
		colors[i*3+0], colors[i*3+1], colors[i*3+2] = r16, g16, b16
		if n.output != nil {
			n.output.setChannel(n.offset+i, r16, g16, b16)
		}
	}
	n.lampColors.Set(colors, frame)
	return nil
}

func to16(v float64) uint16 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint16(v * 65535)
}

func (n *FixtureNode) Fields() []FieldView {
	return []FieldView{
		{Name: "lamp_colors", ChangedFrame: n.lampColors.ChangedFrame(), Marshal: func() (json.RawMessage, error) { return json.Marshal(n.lampColors.Get()) }},
		{Name: "mapping_cells", ChangedFrame: n.mappingCells.ChangedFrame(), Marshal: func() (json.RawMessage, error) { return json.Marshal(n.mappingCells.Get()) }},
	}
}

func (n *FixtureNode) LampColors() []uint16 { return n.lampColors.Get() }

// OutputNode writes a contiguous `u16` channel buffer (3 channels per
// lamp), assembled from however many fixtures are allocated offsets into
// it, to a physical (or simulated) output pin and, if attached, stages the
// same frame into a display.Pipeline for local preview.
type OutputNode struct {
	id       string
	handle   outputprovider.Handle
	pipeline pipelineWriter
	channels []uint16
	status   Field[string]
}

// pipelineWriter is the subset of *display.Pipeline an OutputNode needs,
// kept as an interface so this package does not import internal/display
// just to stage frames — the two packages' only coupling is this one call.
type pipelineWriter interface {
	WriteFrameFromU8(ts uint32, rgb8 []byte)
}

func NewOutputNode(id string, handle outputprovider.Handle, pipeline pipelineWriter) *OutputNode {
	return &OutputNode{id: id, handle: handle, pipeline: pipeline}
}

// AttachPipeline wires (or replaces) the display pipeline this output
// stages frames into, e.g. once a preview window is constructed after Load
// has already built the node graph.
func (n *OutputNode) AttachPipeline(pipeline pipelineWriter) { n.pipeline = pipeline }

func (n *OutputNode) ensureCapacity(lamps int) {
	need := lamps * 3
	if len(n.channels) >= need {
		return
	}
	grown := make([]uint16, need)
	copy(grown, n.channels)
	n.channels = grown
}

func (n *OutputNode) setChannel(lamp int, r, g, b uint16) {
	i := lamp * 3
	if i+3 > len(n.channels) {
		n.ensureCapacity(lamp + 1)
	}
	n.channels[i+0], n.channels[i+1], n.channels[i+2] = r, g, b
}

func (n *OutputNode) ID() string { return n.id }
func (n *OutputNode) Kind() Kind { return KindOutput }

func (n *OutputNode) Render(ctx context.Context, frame FrameID) error {
	buf8 := make([]byte, len(n.channels))
	for i, c := range n.channels {
		buf8[i] = byte(c >> 8)
	}
	if n.handle != nil {
		if err := n.handle.Write(buf8); err != nil {
			n.status.Set("error: "+err.Error(), frame)
			return err
		}
	}
	if n.pipeline != nil {
		n.pipeline.WriteFrameFromU8(frameMillis(frame), buf8)
	}
	n.status.Set("ok", frame)
	return nil
}

func (n *OutputNode) Fields() []FieldView {
	return []FieldView{{
		Name: "status", ChangedFrame: n.status.ChangedFrame(),
		Marshal: func() (json.RawMessage, error) { return json.Marshal(n.status.Get()) },
	}}
}
