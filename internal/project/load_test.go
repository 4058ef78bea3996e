package project

import (
	"context"
	"fmt"
	"testing"

	"github.com/lightplayer/lp/internal/fsys"
	"github.com/lightplayer/lp/internal/outputprovider"
)

// fakeFiles is an in-memory loaderFS, the same role a real fsys.FS plays for
// Load against an on-disk project directory.
type fakeFiles struct {
	files map[string][]byte
	dirs  map[string][]fsys.Entry
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{files: map[string][]byte{}, dirs: map[string][]fsys.Entry{}}
}

func (f *fakeFiles) put(path, content string) { f.files[path] = []byte(content) }

func (f *fakeFiles) ReadFile(path string) ([]byte, error) {
	b, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("fakeFiles: no such file %q", path)
	}
	return b, nil
}

func (f *fakeFiles) ListDir(path string) ([]fsys.Entry, error) {
	return f.dirs[path], nil
}

type fakeOutputProvider struct{ writes [][]byte }

type fakeHandle struct{ p *fakeOutputProvider }

func (h *fakeHandle) Write(data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	h.p.writes = append(h.p.writes, cp)
	return nil
}
func (h *fakeHandle) Close() error { return nil }

func (p *fakeOutputProvider) Open(pin string) (outputprovider.Handle, error) {
	return &fakeHandle{p: p}, nil
}

// buildRingProject assembles a project.json + src/ tree with one output, one
// 4x4 render-target texture, a shader that writes a solid color, and a
// single-ring fixture sampling that texture — the same shape spec.md §4's
// worked example describes — wired entirely through fakeFiles/Load rather
// than constructing node structs directly, so the loader's own wiring (not
// just the node types in isolation) is under test.
func buildRingProject(t *testing.T) (*fakeFiles, *fakeOutputProvider) {
	t.Helper()
	files := newFakeFiles()
	files.put("project.json", `{"uid":"p1","name":"ring demo"}`)
	files.dirs["src"] = []fsys.Entry{
		{Name: "strip.output", IsDir: true},
		{Name: "main.texture", IsDir: true},
		{Name: "solid.shader", IsDir: true},
		{Name: "ring.fixture", IsDir: true},
	}
	files.put("src/strip.output/node.json", `{"GpioStrip":{"pin":"gpio18"}}`)
	files.put("src/main.texture/node.json", `{"width":4,"height":4}`)
	files.put("src/solid.shader/node.json", `{"glsl_path":"main.glsl","texture_spec":"main","render_order":0}`)
	files.put("src/solid.shader/main.glsl", `
	vec4 main(float fragX, float fragY, float width, float height, float time){
		return vec4(1.0, 0.5, 0.0, 1.0);
	}`)
	files.put("src/ring.fixture/node.json", `{
		"output_spec":"strip","texture_spec":"main","color_order":"Grb",
		"ring":{"center_u":0.5,"center_v":0.5,"diameter":1.0,"rings":1,"lamps_per_ring":4,"angle_offset_deg":0}
	}`)
	return files, &fakeOutputProvider{}
}

func TestLoadBuildsRealNodeGraphAndTicksEndToEnd(t *testing.T) {
	files, provider := buildRingProject(t)
	p, statuses, err := Load(files, provider)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, s := range statuses {
		if s.State != StatusOk {
			t.Fatalf("node %q: %v %s", s.ID, s.State, s.Msg)
		}
	}
	if p.UID() != "p1" || p.Name() != "ring demo" {
		t.Fatalf("uid/name = %q/%q", p.UID(), p.Name())
	}

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	fixtureNode, ok := p.Graph().Node("ring")
	if !ok {
		t.Fatal("expected a ring fixture node")
	}
	fixture, ok := fixtureNode.(*FixtureNode)
	if !ok {
		t.Fatalf("ring node is %T, not *FixtureNode", fixtureNode)
	}
	colors := fixture.LampColors()
	if len(colors) != 4*3 {
		t.Fatalf("lamp_colors length = %d, want 12 (4 lamps x 3 channels)", len(colors))
	}
	// The shader writes solid (1.0, 0.5, 0.0); color_order Grb swaps r and g
	// into the wire's first two channel slots.
	wantG, wantR, wantB := uint16(0.5*65535), uint16(65535), uint16(0)
	for lamp := 0; lamp < 4; lamp++ {
		g, r, b := colors[lamp*3], colors[lamp*3+1], colors[lamp*3+2]
		if g != wantG || r != wantR || b != wantB {
			t.Fatalf("lamp %d colors = (%d,%d,%d), want (%d,%d,%d)", lamp, g, r, b, wantG, wantR, wantB)
		}
	}

	if len(provider.writes) != 1 {
		t.Fatalf("expected exactly one write to the output handle, got %d", len(provider.writes))
	}
	if len(provider.writes[0]) != 4*3 {
		t.Fatalf("output write length = %d, want 12 bytes (4 lamps x 3 channels, 1 byte each)", len(provider.writes[0]))
	}

	changes := p.GetChanges(0)
	if len(changes.Changes) == 0 {
		t.Fatal("expected at least one field change after the first tick")
	}
}

func TestLoadRejectsUnknownOutputSpec(t *testing.T) {
	files, provider := buildRingProject(t)
	files.put("src/ring.fixture/node.json", `{
		"output_spec":"nope","texture_spec":"main","color_order":"Rgb",
		"ring":{"center_u":0.5,"center_v":0.5,"diameter":1.0,"rings":1,"lamps_per_ring":4,"angle_offset_deg":0}
	}`)
	_, statuses, err := Load(files, provider)
	if err != nil {
		t.Fatalf("Load itself should not fail on a per-node config error: %v", err)
	}
	var fixtureStatus *NodeStatus
	for i := range statuses {
		if statuses[i].ID == "ring" {
			fixtureStatus = &statuses[i]
		}
	}
	if fixtureStatus == nil || fixtureStatus.State != StatusInitError {
		t.Fatalf("ring fixture status = %+v, want StatusInitError", fixtureStatus)
	}
}

func TestHotReloadRecompilesShaderAtNextTick(t *testing.T) {
	files, provider := buildRingProject(t)
	p, _, err := Load(files, provider)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	files2, provider2 := buildRingProject(t)
	files2.put("src/solid.shader/main.glsl", `
	vec4 main(float fragX, float fragY, float width, float height, float time){
		return vec4(0.0, 1.0, 1.0, 1.0);
	}`)
	p2, _, err := Load(files2, provider2)
	if err != nil {
		t.Fatalf("Load (reload): %v", err)
	}
	p.HotReload(p2.Graph())

	if p.Generation() != 0 {
		t.Fatal("generation must not bump until the reload's first Tick")
	}
	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("Tick after reload: %v", err)
	}
	if p.Generation() != 1 {
		t.Fatalf("generation = %d, want 1", p.Generation())
	}

	fixtureNode, _ := p.Graph().Node("ring")
	fixture := fixtureNode.(*FixtureNode)
	colors := fixture.LampColors()
	// New shader returns (r,g,b)=(0.0,1.0,1.0); color_order Grb permutes the
	// sampled (r,g,b) into wire order (g,r,b) before storing.
	wantG, wantR, wantB := uint16(65535), uint16(0), uint16(65535)
	if colors[0] != wantG || colors[1] != wantR || colors[2] != wantB {
		t.Fatalf("post-reload lamp 0 colors = (%d,%d,%d), want (g,r,b)=(%d,%d,%d) from the new shader", colors[0], colors[1], colors[2], wantG, wantR, wantB)
	}
}
