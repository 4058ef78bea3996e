package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lightplayer/lp/internal/backend/hostjit"
	"github.com/lightplayer/lp/internal/fsys"
	"github.com/lightplayer/lp/internal/glsl/codegen"
	"github.com/lightplayer/lp/internal/glsl/parser"
	"github.com/lightplayer/lp/internal/glsl/sema"
	"github.com/lightplayer/lp/internal/outputprovider"
	"github.com/lightplayer/lp/internal/texture"
)

// NodeState is a node's runtime health, captured during Load and updated on
// hot-reload (spec.md §4.I "a runtime NodeStatus ∈ {Ok, InitError(msg),
// Error(msg)}").
type NodeState int

const (
	StatusOk NodeState = iota
	StatusInitError
	StatusError
)

func (s NodeState) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusInitError:
		return "init_error"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// NodeStatus reports one node's id, kind, and current health, optionally
// carrying the error message that produced a non-Ok state.
type NodeStatus struct {
	ID    string
	Kind  Kind
	State NodeState
	Msg   string
}

// ProjectConfig is the root /project.json document.
type ProjectConfig struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

type textureConfig struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type shaderConfig struct {
	GLSLPath    string `json:"glsl_path"`
	TextureSpec string `json:"texture_spec"`
	RenderOrder int32  `json:"render_order"`
}

type gpioStripOptions struct {
	Pin     string `json:"pin"`
	Options map[string]any `json:"options,omitempty"`
}

type outputConfig struct {
	GpioStrip *gpioStripOptions `json:"GpioStrip"`
}

type ringSpecJSON struct {
	CenterU        float64 `json:"center_u"`
	CenterV        float64 `json:"center_v"`
	Diameter       float64 `json:"diameter"`
	Rings          int     `json:"rings"`
	LampsPerRing   int     `json:"lamps_per_ring"`
	AngleOffsetDeg float64 `json:"angle_offset_deg"`
}

type linearSpecJSON struct {
	U0, V0, U1, V1 float64 `json:"u0,v0,u1,v1"`
	Count          int     `json:"count"`
}

type fixtureConfig struct {
	OutputSpec  string          `json:"output_spec"`
	TextureSpec string          `json:"texture_spec"`
	ColorOrder  string          `json:"color_order"`
	Ring        *ringSpecJSON   `json:"ring,omitempty"`
	Linear      *linearSpecJSON `json:"linear,omitempty"`
}

// Loader's view of the filesystem capability: exactly the two calls Load
// needs, so tests can satisfy it without a real fsys.FS on disk.
type loaderFS interface {
	ReadFile(path string) ([]byte, error)
	ListDir(path string) ([]fsys.Entry, error)
}

// Load implements spec.md §4.I "load(project_dir)": reads project.json,
// scans /src for node directories (named "<name>.<kind>"), parses each
// node's config, and brings nodes up in dependency order (outputs ->
// textures -> shaders -> fixtures) so a later stage can always resolve a
// node-reference field (texture_spec, output_spec) against an
// already-built earlier stage. A per-node failure is recorded as an
// InitError in the returned status list rather than aborting the whole
// load — one broken shader must not take down a project's other fixtures.
func Load(files loaderFS, providers outputprovider.Provider) (*Project, []NodeStatus, error) {
	raw, err := files.ReadFile("project.json")
	if err != nil {
		return nil, nil, fmt.Errorf("project: reading project.json: %w", err)
	}
	var cfg ProjectConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, nil, fmt.Errorf("project: parsing project.json: %w", err)
	}

	entries, err := files.ListDir("src")
	if err != nil {
		return nil, nil, fmt.Errorf("project: scanning src: %w", err)
	}

	type discovered struct {
		name, kindSuffix, dir string
	}
	var outputs, textures, shaders, fixtures []discovered
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		name, suffix, ok := splitKindSuffix(e.Name)
		if !ok {
			continue
		}
		d := discovered{name: name, kindSuffix: suffix, dir: "src/" + e.Name}
		switch suffix {
		case "output":
			outputs = append(outputs, d)
		case "texture":
			textures = append(textures, d)
		case "shader":
			shaders = append(shaders, d)
		case "fixture":
			fixtures = append(fixtures, d)
		}
	}

	registry := outputprovider.NewRegistry(providers)
	graph := NewGraph()
	var statuses []NodeStatus

	outputByName := map[string]*OutputNode{}
	for _, d := range outputs {
		n, err := loadOutput(files, registry, d.dir, d.name)
		if err != nil {
			statuses = append(statuses, NodeStatus{ID: d.name, Kind: KindOutput, State: StatusInitError, Msg: err.Error()})
			continue
		}
		outputByName[d.name] = n
		graph.Add(n)
		statuses = append(statuses, NodeStatus{ID: d.name, Kind: KindOutput, State: StatusOk})
	}

	textureByName := map[string]*TextureNode{}
	for _, d := range textures {
		n, err := loadTexture(files, d.dir, d.name)
		if err != nil {
			statuses = append(statuses, NodeStatus{ID: d.name, Kind: KindTexture, State: StatusInitError, Msg: err.Error()})
			continue
		}
		textureByName[d.name] = n
		graph.Add(n)
		statuses = append(statuses, NodeStatus{ID: d.name, Kind: KindTexture, State: StatusOk})
	}

	for _, d := range shaders {
		n, err := loadShader(files, d.dir, d.name, textureByName)
		if err != nil {
			statuses = append(statuses, NodeStatus{ID: d.name, Kind: KindShader, State: StatusInitError, Msg: err.Error()})
			continue
		}
		graph.Add(n)
		statuses = append(statuses, NodeStatus{ID: d.name, Kind: KindShader, State: StatusOk})
	}

	offsets := map[string]int{} // next free lamp offset per output name
	for _, d := range fixtures {
		n, err := loadFixture(files, d.dir, d.name, textureByName, outputByName, offsets)
		if err != nil {
			statuses = append(statuses, NodeStatus{ID: d.name, Kind: KindFixture, State: StatusInitError, Msg: err.Error()})
			continue
		}
		graph.Add(n)
		statuses = append(statuses, NodeStatus{ID: d.name, Kind: KindFixture, State: StatusOk})
	}

	p := New(graph)
	p.uid = cfg.UID
	p.name = cfg.Name
	p.statuses = statuses
	return p, statuses, nil
}

// splitKindSuffix splits a "<name>.<kind>" directory name into its parts,
// per the on-disk layout's "/src/<name>.texture/node.json" convention.
func splitKindSuffix(dirName string) (name, suffix string, ok bool) {
	i := strings.LastIndex(dirName, ".")
	if i < 0 {
		return "", "", false
	}
	return dirName[:i], dirName[i+1:], true
}

func loadOutput(files loaderFS, registry *outputprovider.Registry, dir, name string) (*OutputNode, error) {
	raw, err := files.ReadFile(dir + "/node.json")
	if err != nil {
		return nil, err
	}
	var cfg outputConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.GpioStrip == nil {
		return nil, fmt.Errorf("output %q: missing GpioStrip config", name)
	}
	handle, err := registry.Open(cfg.GpioStrip.Pin)
	if err != nil {
		return nil, err
	}
	return NewOutputNode(name, handle, nil), nil
}

func loadTexture(files loaderFS, dir, name string) (*TextureNode, error) {
	raw, err := files.ReadFile(dir + "/node.json")
	if err != nil {
		return nil, err
	}
	var cfg textureConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("texture %q: width/height must be positive", name)
	}
	return NewTextureNode(name, cfg.Width, cfg.Height, 0), nil
}

// loadAssetTexture decodes a static image asset into an asset-backed
// texture node (spec.md §6 supplemented TextureSource). Load does not call
// it: textureConfig has no image path field, so every texture node Load
// builds is a mutable render target.
func loadAssetTexture(files loaderFS, path, name string) (*TextureNode, error) {
	raw, err := files.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tex, err := texture.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return NewAssetTextureNode(name, tex, path, 0), nil
}

func loadShader(files loaderFS, dir, name string, textures map[string]*TextureNode) (*ShaderNode, error) {
	raw, err := files.ReadFile(dir + "/node.json")
	if err != nil {
		return nil, err
	}
	var cfg shaderConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	target, ok := textures[cfg.TextureSpec]
	if !ok {
		return nil, fmt.Errorf("shader %q: unknown texture_spec %q", name, cfg.TextureSpec)
	}
	src, err := files.ReadFile(dir + "/" + cfg.GLSLPath)
	if err != nil {
		return nil, err
	}
	program, err := compileShader(string(src))
	if err != nil {
		return nil, err
	}
	return NewShaderNode(name, program, "main", target), nil
}

// compileShader runs the full front-end-to-host-JIT pipeline (spec.md
// §4.B-E) on one GLSL source file: lex+parse, type-check, lower to SSA,
// then Q32-lower and wrap for interpretation.
func compileShader(src string) (*hostjit.Program, error) {
	file, diags := parser.Parse(src)
	if len(diags) > 0 {
		return nil, fmt.Errorf("parse error: %v", diags[0])
	}
	if diags := sema.Check(file); len(diags) > 0 {
		return nil, fmt.Errorf("sema error: %v", diags[0])
	}
	mod, err := codegen.Compile(file, "f32")
	if err != nil {
		return nil, err
	}
	return hostjit.Compile(mod), nil
}

func loadFixture(files loaderFS, dir, name string, textures map[string]*TextureNode, outputs map[string]*OutputNode, offsets map[string]int) (*FixtureNode, error) {
	raw, err := files.ReadFile(dir + "/node.json")
	if err != nil {
		return nil, err
	}
	var cfg fixtureConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	tex, ok := textures[cfg.TextureSpec]
	if !ok {
		return nil, fmt.Errorf("fixture %q: unknown texture_spec %q", name, cfg.TextureSpec)
	}
	out, ok := outputs[cfg.OutputSpec]
	if !ok {
		return nil, fmt.Errorf("fixture %q: unknown output_spec %q", name, cfg.OutputSpec)
	}
	order, err := ParseColorOrder(cfg.ColorOrder)
	if err != nil {
		return nil, fmt.Errorf("fixture %q: %w", name, err)
	}

	var mapping FixtureMapping
	switch {
	case cfg.Ring != nil:
		mapping = NewRingMapping(RingMappingSpec{
			CenterU: cfg.Ring.CenterU, CenterV: cfg.Ring.CenterV,
			Diameter: cfg.Ring.Diameter, Rings: cfg.Ring.Rings,
			LampsPerRing: cfg.Ring.LampsPerRing, AngleOffsetDeg: cfg.Ring.AngleOffsetDeg,
		})
	case cfg.Linear != nil:
		mapping = NewLinearMapping(cfg.Linear.U0, cfg.Linear.V0, cfg.Linear.U1, cfg.Linear.V1, cfg.Linear.Count)
	default:
		return nil, fmt.Errorf("fixture %q: mapping must specify ring or linear", name)
	}

	offset := offsets[cfg.OutputSpec]
	offsets[cfg.OutputSpec] = offset + len(mapping.Cells)

	return NewFixtureNode(name, tex, out, offset, mapping, order, 0), nil
}
