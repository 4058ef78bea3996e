package project

import "context"

type Kind int

const (
	KindTexture Kind = iota
	KindShader
	KindFixture
	KindOutput
)

func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindShader:
		return "shader"
	case KindFixture:
		return "fixture"
	case KindOutput:
		return "output"
	}
	return "unknown"
}

// Node is one vertex in the project graph. Fields reports every leaf field
// for the delta protocol; Render advances the node by one frame, reading
// whatever upstream nodes it depends on (resolved by the caller through the
// Graph's dependency edges, not by the node itself).
type Node interface {
	ID() string
	Kind() Kind
	Fields() []FieldView
	Render(ctx context.Context, frame FrameID) error
}

// initOrder is the order nodes are brought up during project load:
// outputs first (so a fixture's first Render call always has somewhere to
// write), then textures, then shaders, then fixtures, so every
// node-reference field (a shader's texture, a fixture's output and
// texture) names a node that is already constructed, though not yet
// rendering.
var initOrder = []Kind{KindOutput, KindTexture, KindShader, KindFixture}

// renderOrder is the data-flow order: textures produce pixels, shaders
// consume textures and produce colors, fixtures consume shader output and
// produce device frames, outputs consume fixture frames and write them out.
var renderOrder = []Kind{KindTexture, KindShader, KindFixture, KindOutput}
