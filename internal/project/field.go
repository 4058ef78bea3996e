// Package project implements the node graph runtime: node types
// (texture/shader/fixture/output), the monotonic frame counter, field-level
// changed_frame tracking, dependency-ordered init and render, hot-reload
// with atomic executable swap, and the get_changes delta protocol (spec
// §4.I "Project runtime").
package project

import "encoding/json"

// FrameID is the monotonic frame counter driving the whole project; it
// only ever increases, and every field's ChangedFrame is stamped from it.
type FrameID uint64

// Field is one piece of a node's state, carrying the frame it was last
// written on so get_changes can report exactly what moved since a client's
// last sync (spec's delta protocol, testable property 3).
type Field[T any] struct {
	value   T
	changed FrameID
}

func NewField[T any](initial T) Field[T] {
	return Field[T]{value: initial, changed: 0}
}

func (f *Field[T]) Get() T { return f.value }

func (f *Field[T]) ChangedFrame() FrameID { return f.changed }

// Set unconditionally stamps the field as changed on frame, even if the
// value is unchanged — callers that only want a changed_frame bump on an
// actual value change should compare before calling Set (most node Tick
// implementations do this, since re-stamping an unchanged field would
// defeat the delta protocol's "only report what moved" contract).
func (f *Field[T]) Set(v T, frame FrameID) {
	f.value = v
	f.changed = frame
}

// FieldView is the type-erased form of a Field used when building a
// get_changes response, since a node's fields have heterogeneous T.
type FieldView struct {
	Name         string
	ChangedFrame FrameID
	Marshal      func() (json.RawMessage, error)
}
