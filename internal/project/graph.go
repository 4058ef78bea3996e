package project

// Graph is the set of nodes making up one loaded project, partitioned by
// kind so the runtime can walk init/render order without a general
// topological sort: within this system every edge only ever points from a
// later stage to an earlier one (e.g. a fixture reads a shader's output),
// never within a stage, so bucketing by Kind is sufficient ordering.
type Graph struct {
	byKind map[Kind][]Node
	byID   map[string]Node
}

func NewGraph() *Graph {
	return &Graph{byKind: map[Kind][]Node{}, byID: map[string]Node{}}
}

func (g *Graph) Add(n Node) {
	g.byKind[n.Kind()] = append(g.byKind[n.Kind()], n)
	g.byID[n.ID()] = n
}

func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

func (g *Graph) Stage(k Kind) []Node { return g.byKind[k] }

func (g *Graph) All() []Node {
	out := make([]Node, 0, len(g.byID))
	for _, k := range renderOrder {
		out = append(out, g.byKind[k]...)
	}
	return out
}
