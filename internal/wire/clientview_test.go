package wire

import (
	"encoding/json"
	"testing"
)

func TestClientViewPreservesUntouchedFields(t *testing.T) {
	v := NewClientView()
	v.Apply(ChangesResponse{Frame: 1, Changes: []FieldChange{
		{NodeID: "shaderA", Field: "speed", Value: json.RawMessage(`1.0`), ChangedFrame: 1},
		{NodeID: "shaderA", Field: "color", Value: json.RawMessage(`"red"`), ChangedFrame: 1},
	}})
	v.Apply(ChangesResponse{Frame: 2, Changes: []FieldChange{
		{NodeID: "shaderA", Field: "speed", Value: json.RawMessage(`2.0`), ChangedFrame: 2},
	}})

	speed, _ := v.Field("shaderA", "speed")
	if string(speed.Value) != "2.0" {
		t.Fatalf("speed = %s, want 2.0", speed.Value)
	}
	color, ok := v.Field("shaderA", "color")
	if !ok || string(color.Value) != `"red"` {
		t.Fatalf("color field was lost across a delta that didn't mention it: %v %v", ok, color.Value)
	}
}

func TestClientViewMonotoneMerge(t *testing.T) {
	v := NewClientView()
	v.Apply(ChangesResponse{Frame: 5, Changes: []FieldChange{
		{NodeID: "n", Field: "x", Value: json.RawMessage(`5`), ChangedFrame: 5},
	}})
	// A stale/out-of-order delta must not regress the field.
	v.Apply(ChangesResponse{Frame: 5, Changes: []FieldChange{
		{NodeID: "n", Field: "x", Value: json.RawMessage(`3`), ChangedFrame: 3},
	}})
	x, _ := v.Field("n", "x")
	if string(x.Value) != "5" {
		t.Fatalf("x = %s, want 5 (stale delta must not regress)", x.Value)
	}
}
