package project

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lightplayer/lp/internal/wire"
)

// Project owns the currently loaded Graph and the monotonic frame counter.
// Reloads replace the Graph wholesale under generation, a counter bumped
// on every hot-reload and applied only at a tick boundary (never mid-Tick)
// so no node ever observes half of the old graph and half of the new one.
type Project struct {
	mu         sync.RWMutex
	graph      *Graph
	generation uint64
	frame      FrameID
	pending    *Graph // staged by HotReload, swapped in at the next Tick

	uid, name string
	statuses  []NodeStatus
}

func New(g *Graph) *Project {
	return &Project{graph: g}
}

// Statuses returns the per-node NodeStatus list captured at Load time (or
// nil for a Project built directly with New, e.g. in tests).
func (p *Project) Statuses() []NodeStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.statuses
}

func (p *Project) UID() string { p.mu.RLock(); defer p.mu.RUnlock(); return p.uid }
func (p *Project) Name() string { p.mu.RLock(); defer p.mu.RUnlock(); return p.name }

// HotReload stages a replacement graph. The swap happens at the start of
// the next Tick, never while a render is in flight — "tombstoning at tick
// boundaries" rather than interrupting whatever frame is currently being
// produced.
func (p *Project) HotReload(g *Graph) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = g
}

func (p *Project) Generation() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.generation
}

func (p *Project) Frame() FrameID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.frame
}

// Graph returns the currently active graph, for callers (status monitors,
// debug tooling) that only need to enumerate nodes, not render them.
func (p *Project) Graph() *Graph {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.graph
}

// Tick advances the project by one frame: applies any pending hot-reload,
// then renders every stage in renderOrder, fanning each stage's nodes out
// concurrently with errgroup and barrier-waiting before the next stage
// (a node never starts rendering before every upstream-stage node it might
// read from has finished this frame).
func (p *Project) Tick(ctx context.Context) error {
	p.mu.Lock()
	if p.pending != nil {
		p.graph = p.pending
		p.pending = nil
		p.generation++
	}
	p.frame++
	frame := p.frame
	graph := p.graph
	p.mu.Unlock()

	for _, k := range renderOrder {
		stage := graph.Stage(k)
		if len(stage) == 0 {
			continue
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, n := range stage {
			n := n
			g.Go(func() error { return n.Render(gctx, frame) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// GetChanges builds the delta response for every field that changed
// strictly after since, across every node in the currently loaded graph.
func (p *Project) GetChanges(since FrameID) wire.ChangesResponse {
	p.mu.RLock()
	defer p.mu.RUnlock()

	resp := wire.ChangesResponse{Frame: uint64(p.frame)}
	for _, n := range p.graph.All() {
		for _, f := range n.Fields() {
			if f.ChangedFrame <= since {
				continue
			}
			raw, err := f.Marshal()
			if err != nil {
				continue
			}
			resp.Changes = append(resp.Changes, wire.FieldChange{
				NodeID:       n.ID(),
				Field:        f.Name,
				Value:        raw,
				ChangedFrame: uint64(f.ChangedFrame),
			})
		}
	}
	return resp
}
