package wire

import "encoding/json"

// FieldState is one field's last known value and the frame it was set on,
// as tracked by a client's mirrored view of the project.
type FieldState struct {
	Value        json.RawMessage
	ChangedFrame uint64
}

// ClientView is a client-side mirror built by repeatedly applying
// ChangesResponse deltas. Untouched fields are never overwritten by a
// delta that doesn't mention them (spec §4.I "partial client view
// fidelity" — scenario S6), and a field is only overwritten when the
// incoming change is strictly newer than what the view already holds
// (the monotone field-wise merge property, property 3).
type ClientView struct {
	fields    map[string]map[string]FieldState
	LastFrame uint64
}

func NewClientView() *ClientView {
	return &ClientView{fields: map[string]map[string]FieldState{}}
}

// Apply merges one ChangesResponse into the view and advances LastFrame.
func (v *ClientView) Apply(resp ChangesResponse) {
	for _, c := range resp.Changes {
		node, ok := v.fields[c.NodeID]
		if !ok {
			node = map[string]FieldState{}
			v.fields[c.NodeID] = node
		}
		if existing, ok := node[c.Field]; ok && existing.ChangedFrame >= c.ChangedFrame {
			continue // a stale or duplicate delta must not regress the view
		}
		node[c.Field] = FieldState{Value: c.Value, ChangedFrame: c.ChangedFrame}
	}
	if resp.Frame > v.LastFrame {
		v.LastFrame = resp.Frame
	}
}

// Field returns the last known value for a node's field, and whether it
// has ever been observed.
func (v *ClientView) Field(nodeID, field string) (FieldState, bool) {
	node, ok := v.fields[nodeID]
	if !ok {
		return FieldState{}, false
	}
	fs, ok := node[field]
	return fs, ok
}

// Nodes returns the set of node IDs this view has any recorded field for.
func (v *ClientView) Nodes() []string {
	out := make([]string, 0, len(v.fields))
	for id := range v.fields {
		out = append(out, id)
	}
	return out
}
