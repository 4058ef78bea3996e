package server

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/lightplayer/lp/internal/fsys"
	"github.com/lightplayer/lp/internal/project"
	"github.com/lightplayer/lp/internal/wire"
)

type counterNode struct {
	id    string
	count project.Field[int]
}

func (n *counterNode) ID() string        { return n.id }
func (n *counterNode) Kind() project.Kind { return project.KindTexture }
func (n *counterNode) Render(ctx context.Context, frame project.FrameID) error {
	n.count.Set(n.count.Get()+1, frame)
	return nil
}
func (n *counterNode) Fields() []project.FieldView {
	return []project.FieldView{{
		Name: "count", ChangedFrame: n.count.ChangedFrame(),
		Marshal: func() (json.RawMessage, error) { return json.Marshal(n.count.Get()) },
	}}
}

func request(t *testing.T, id uint64, kind wire.RequestKind, payload any) wire.ClientMessage {
	t.Helper()
	env, err := wire.Wrap(string(kind), payload)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	return wire.ClientMessage{ID: id, Req: raw}
}

func decodeReply(t *testing.T, msg wire.ServerMessage) (wire.Envelope, []byte) {
	t.Helper()
	var env wire.Envelope
	if err := json.Unmarshal(msg.Resp, &env); err != nil {
		t.Fatalf("reply is not an envelope: %v", err)
	}
	return env, env.Payload
}

func TestDispatchGetChangesWithNoProject(t *testing.T) {
	fs, err := fsys.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv := New(fs)
	reply := srv.Dispatch(request(t, 1, wire.ReqGetChanges, wire.GetChangesRequest{Since: 0}))
	env, _ := decodeReply(t, reply)
	if wire.ResponseKind(env.Kind) != wire.RespError {
		t.Fatalf("kind = %q, want error", env.Kind)
	}
}

func TestDispatchGetChanges(t *testing.T) {
	fs, err := fsys.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv := New(fs)

	g := project.NewGraph()
	g.Add(&counterNode{id: "tex1"})
	p := project.New(g)
	if err := p.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	srv.SetProject(p)

	reply := srv.Dispatch(request(t, 7, wire.ReqGetChanges, wire.GetChangesRequest{Since: 0}))
	if reply.ID != 7 {
		t.Fatalf("reply id = %d, want 7 (must echo the request id)", reply.ID)
	}
	env, payload := decodeReply(t, reply)
	if wire.ResponseKind(env.Kind) != wire.RespChanges {
		t.Fatalf("kind = %q, want changes", env.Kind)
	}
	var changes wire.ChangesResponse
	if err := json.Unmarshal(payload, &changes); err != nil {
		t.Fatal(err)
	}
	if len(changes.Changes) != 1 || changes.Changes[0].NodeID != "tex1" {
		t.Fatalf("unexpected changes: %+v", changes)
	}
}

func TestDispatchFilesystemRoundTrip(t *testing.T) {
	fs, err := fsys.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv := New(fs)

	writeReply := srv.Dispatch(request(t, 1, wire.ReqWriteFile, wire.WriteFileRequest{Path: "a/b.txt", Data: []byte("hello")}))
	if env, _ := decodeReply(t, writeReply); wire.ResponseKind(env.Kind) != wire.RespOK {
		t.Fatalf("write_file kind = %q, want ok", env.Kind)
	}

	readReply := srv.Dispatch(request(t, 2, wire.ReqReadFile, wire.ReadFileRequest{Path: "a/b.txt"}))
	env, payload := decodeReply(t, readReply)
	if wire.ResponseKind(env.Kind) != wire.RespFileContent {
		t.Fatalf("read_file kind = %q, want file_content", env.Kind)
	}
	var content FileContentResponse
	if err := json.Unmarshal(payload, &content); err != nil {
		t.Fatal(err)
	}
	if string(content.Data) != "hello" {
		t.Fatalf("got %q, want %q", content.Data, "hello")
	}

	listReply := srv.Dispatch(request(t, 3, wire.ReqListDir, wire.ListDirRequest{Path: "a"}))
	env, payload = decodeReply(t, listReply)
	if wire.ResponseKind(env.Kind) != wire.RespDirListing {
		t.Fatalf("list_dir kind = %q, want dir_listing", env.Kind)
	}
	var listing DirListingResponse
	if err := json.Unmarshal(payload, &listing); err != nil {
		t.Fatal(err)
	}
	if len(listing.Entries) != 1 || listing.Entries[0].Name != "b.txt" {
		t.Fatalf("unexpected listing: %+v", listing)
	}
}

func TestDispatchUnknownRequestKind(t *testing.T) {
	fs, err := fsys.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv := New(fs)
	reply := srv.Dispatch(request(t, 1, wire.RequestKind("not_a_real_request"), struct{}{}))
	env, _ := decodeReply(t, reply)
	if wire.ResponseKind(env.Kind) != wire.RespError {
		t.Fatalf("kind = %q, want error", env.Kind)
	}
}

func TestDispatchSetFieldIsUnsupported(t *testing.T) {
	fs, err := fsys.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv := New(fs)
	reply := srv.Dispatch(request(t, 1, wire.ReqSetField, wire.SetFieldRequest{NodeID: "tex1", Field: "count"}))
	env, _ := decodeReply(t, reply)
	if wire.ResponseKind(env.Kind) != wire.RespError {
		t.Fatalf("kind = %q, want error", env.Kind)
	}
}

func TestPumpHandlesBackToBackMessages(t *testing.T) {
	fs, err := fsys.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv := New(fs)

	var in bytes.Buffer
	enc := json.NewEncoder(&in)
	for i := uint64(1); i <= 3; i++ {
		env, err := wire.Wrap(string(wire.ReqGetChanges), wire.GetChangesRequest{Since: 0})
		if err != nil {
			t.Fatal(err)
		}
		raw, err := json.Marshal(env)
		if err != nil {
			t.Fatal(err)
		}
		if err := enc.Encode(wire.ClientMessage{ID: i, Req: raw}); err != nil {
			t.Fatal(err)
		}
	}

	var out bytes.Buffer
	if err := srv.Pump(&in, &out); err != nil {
		t.Fatal(err)
	}

	dec := json.NewDecoder(&out)
	var ids []uint64
	for {
		var msg wire.ServerMessage
		if err := dec.Decode(&msg); err != nil {
			break
		}
		ids = append(ids, msg.ID)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("replies arrived out of order or incomplete: %v", ids)
	}
}
