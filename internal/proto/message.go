package proto

import "encoding/json"

// Inbound is the envelope for commands coming from the UI over the socket.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeSend   = "send"
	InboundTypeSwitch = "switch"

	OutboundTypeSnapshot = "snapshot"
	OutboundTypeStatus   = "status"
	OutboundTypeError    = "error"
)

// SendData is a chat message from the UI.
type SendData struct {
	Body string `json:"body"`
}

// SwitchData requests binding to another room.
type SwitchData struct {
	RoomID int64  `json:"room_id"`
	Title  string `json:"title,omitempty"`
}

// Outbound is the envelope for events pushed to the UI.
type Outbound struct {
	Type     string        `json:"type"`
	Snapshot *SnapshotData `json:"snapshot,omitempty"`
	Status   *StatusData   `json:"status,omitempty"`
	Error    *Error        `json:"error,omitempty"`
}

// SnapshotData is the full ordered message list for the bound room. It
// replaces whatever the UI held before; the engine never sends diffs.
type SnapshotData struct {
	RoomID   int64         `json:"room_id"`
	Messages []MessageData `json:"messages"`
}

// MessageData is one chat message as the UI sees it.
type MessageData struct {
	Username string  `json:"username"`
	Body     string  `json:"body"`
	Time     float64 `json:"time"`
	Kind     string  `json:"kind"`
}

// StatusData reports the session binding.
type StatusData struct {
	Connected bool   `json:"connected"`
	RoomID    int64  `json:"room_id,omitempty"`
	RoomTitle string `json:"room_title,omitempty"`
	Username  string `json:"username"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
