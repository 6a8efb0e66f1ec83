package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

// wireMessage is the serialized form shared by every client of the store.
// Field order matters: struct order keeps encoding deterministic, so retries
// of identical content collapse into one record.
type wireMessage struct {
	Username string `json:"username"`
	Msg      string `json:"msg"`
	Time     string `json:"time"`
	Type     string `json:"type,omitempty"`
}

const (
	wireTypeName  = "name"
	wireTypeShare = "share"
)

// FormatStamp renders a timestamp the way it is stored: shortest decimal
// representation of the fractional seconds value.
func FormatStamp(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

// Encode serializes a message into its store key. The key is the full
// payload; the store never sees any other identity.
func Encode(m Message) string {
	w := wireMessage{
		Username: m.Username,
		Msg:      m.Body,
		Time:     FormatStamp(m.Time),
	}
	switch m.Kind {
	case KindName:
		w.Type = wireTypeName
	case KindShare:
		w.Type = wireTypeShare
	}
	data, err := json.Marshal(w)
	if err != nil {
		// Marshalling a struct of strings cannot fail.
		return ""
	}
	return string(data)
}

// Decode parses a store key back into a message. Decoding is total: any
// input yields a message, malformed keys come back with empty fields and a
// zero timestamp so one corrupt record never blocks the rest of the room.
func Decode(key string) Message {
	var raw struct {
		Username string          `json:"username"`
		Msg      string          `json:"msg"`
		Time     json.RawMessage `json:"time"`
		Type     string          `json:"type"`
	}
	if err := json.Unmarshal([]byte(key), &raw); err != nil {
		return Message{}
	}

	m := Message{
		Username: raw.Username,
		Body:     raw.Msg,
		Time:     parseStamp(raw.Time),
	}
	switch raw.Type {
	case wireTypeName:
		m.Kind = KindName
	case wireTypeShare:
		m.Kind = KindShare
	}
	return m
}

// parseStamp accepts the timestamp either as a JSON string (what this client
// writes) or a bare number (tolerated from other writers). Anything else is 0.
func parseStamp(raw json.RawMessage) float64 {
	s := strings.TrimSpace(string(raw))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	t, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return t
}
