// Package wire implements the client/server JSON message protocol described
// by spec §4.J: every request and response is wrapped in an envelope
// carrying a client-assigned correlation id, following this repository's
// own encoding/json request/response envelope idiom (runtime_ipc.go's
// ipcRequest/ipcResponse, generalized from a single fixed command to a
// tagged request/response enumeration).
package wire

import "encoding/json"

// ClientMessage is one envelope sent from a client to the project server.
type ClientMessage struct {
	ID  uint64          `json:"id"`
	Req json.RawMessage `json:"req"`
}

// ServerMessage is the server's reply to a ClientMessage with the same ID.
type ServerMessage struct {
	ID   uint64          `json:"id"`
	Resp json.RawMessage `json:"resp"`
}

// RequestKind tags the concrete payload carried in a ClientMessage's Req
// field, since json.RawMessage alone doesn't self-describe its shape.
type RequestKind string

const (
	ReqGetChanges  RequestKind = "get_changes"
	ReqGetProject  RequestKind = "get_project"
	ReqLoadProject RequestKind = "load_project"
	ReqSetField    RequestKind = "set_field"
	ReqListDir     RequestKind = "list_dir"
	ReqReadFile    RequestKind = "read_file"
	ReqWriteFile   RequestKind = "write_file"
)

type ResponseKind string

const (
	RespOK          ResponseKind = "ok"
	RespError       ResponseKind = "error"
	RespChanges     ResponseKind = "changes"
	RespProject     ResponseKind = "project"
	RespDirListing  ResponseKind = "dir_listing"
	RespFileContent ResponseKind = "file_content"
)

// Envelope wraps any tagged payload with its kind, so decoders can dispatch
// on Kind before unmarshaling Payload into the concrete type.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func Wrap(kind string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: kind, Payload: b}, nil
}

// GetChangesRequest asks the server for every field that changed strictly
// after Since (spec §4.I "delta protocol").
type GetChangesRequest struct {
	Since uint64 `json:"since_frame"`
}

// FieldChange is one leaf field's new value as of ChangedFrame.
type FieldChange struct {
	NodeID      string          `json:"node_id"`
	Field       string          `json:"field"`
	Value       json.RawMessage `json:"value"`
	ChangedFrame uint64         `json:"changed_frame"`
}

type ChangesResponse struct {
	Frame   uint64        `json:"frame"`
	Changes []FieldChange `json:"changes"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type LoadProjectRequest struct {
	Path string `json:"path"`
}

type SetFieldRequest struct {
	NodeID string          `json:"node_id"`
	Field  string          `json:"field"`
	Value  json.RawMessage `json:"value"`
}

type ListDirRequest struct{ Path string `json:"path"` }
type ReadFileRequest struct{ Path string `json:"path"` }
type WriteFileRequest struct {
	Path string `json:"path"`
	Data []byte `json:"data"`
}
