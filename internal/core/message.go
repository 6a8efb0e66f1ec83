package core

import "strconv"

// MessageKind distinguishes regular chat text from control messages.
type MessageKind int

const (
	// KindText is a plain chat message.
	KindText MessageKind = iota
	// KindName announces that a user changed their display name.
	KindName
	// KindShare carries a shared file descriptor in the message body.
	KindShare
)

// Message is the domain model for a chat message. Identity is structural:
// two messages with identical username, body, timestamp and kind serialize
// to the same store key and are the same record.
type Message struct {
	Username string
	Body     string
	Time     float64 // seconds since epoch, fractional
	Kind     MessageKind
}

// FileShare describes a shared file. For KindShare messages the descriptor
// is serialized into the message body.
type FileShare struct {
	Name string `json:"name"`
	Size string `json:"size"`
	Link string `json:"link"`
}

// Room identifies a chat room. The ID doubles as the store partition: a room
// is whatever partition key clients agree to use, there is no registry.
type Room struct {
	ID    int64
	Title string
}

// Partition returns the store partition key for the room.
func (r Room) Partition() string {
	return strconv.FormatInt(r.ID, 10)
}
