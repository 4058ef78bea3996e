package project

import (
	"context"
	"encoding/json"
	"testing"
)

type counterNode struct {
	id    string
	kind  Kind
	count Field[int]
}

func (n *counterNode) ID() string { return n.id }
func (n *counterNode) Kind() Kind { return n.kind }
func (n *counterNode) Render(ctx context.Context, frame FrameID) error {
	n.count.Set(n.count.Get()+1, frame)
	return nil
}
func (n *counterNode) Fields() []FieldView {
	return []FieldView{{
		Name: "count", ChangedFrame: n.count.ChangedFrame(),
		Marshal: func() (json.RawMessage, error) { return json.Marshal(n.count.Get()) },
	}}
}

func TestTickAdvancesFrameAndStampsFields(t *testing.T) {
	g := NewGraph()
	g.Add(&counterNode{id: "tex1", kind: KindTexture})
	g.Add(&counterNode{id: "shade1", kind: KindShader})
	p := New(g)

	if err := p.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Frame() != 1 {
		t.Fatalf("frame = %d, want 1", p.Frame())
	}

	changes := p.GetChanges(0)
	if len(changes.Changes) != 2 {
		t.Fatalf("expected 2 field changes, got %d", len(changes.Changes))
	}

	if err := p.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	// A client synced at frame 1 should now only see the frame-2 delta.
	changes2 := p.GetChanges(1)
	if len(changes2.Changes) != 2 {
		t.Fatalf("expected 2 field changes since frame 1, got %d", len(changes2.Changes))
	}
	for _, c := range changes2.Changes {
		if c.ChangedFrame != 2 {
			t.Fatalf("change %+v should be stamped with frame 2", c)
		}
	}
}

func TestHotReloadAppliesAtTickBoundary(t *testing.T) {
	g1 := NewGraph()
	g1.Add(&counterNode{id: "a", kind: KindTexture})
	p := New(g1)
	if err := p.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	g2 := NewGraph()
	g2.Add(&counterNode{id: "b", kind: KindTexture})
	p.HotReload(g2)

	if _, ok := g2.Node("b"); !ok {
		t.Fatal("sanity: g2 should contain b")
	}
	if p.Generation() != 0 {
		t.Fatal("generation must not bump until the next Tick")
	}
	if err := p.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Generation() != 1 {
		t.Fatalf("generation = %d, want 1 after the reload's first Tick", p.Generation())
	}
	if _, ok := p.graph.Node("a"); ok {
		t.Fatal("old graph's node should be gone after reload")
	}
}
