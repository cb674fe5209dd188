// Package message defines the clipvise daemon protocol.
//
// All messages are newline-delimited JSON; binary payloads are base64-encoded
// so that images are safe to embed in JSON strings. Each message is exactly
// one line: <json>\n
//
// The protocol is request/response except for WATCH, which turns the
// connection into a one-way event stream (plus PING/PONG keepalives).
package message

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies the kind of message.
type Type string

const (
	TypeAuth           Type = "AUTH"
	TypeSet            Type = "SET"
	TypeGet            Type = "GET"
	TypeClear          Type = "CLEAR"
	TypeStatus         Type = "STATUS"
	TypeStatusResponse Type = "STATUS_RESPONSE"
	TypeWatch          Type = "WATCH"
	TypeEvent          Type = "EVENT"
	TypeResult         Type = "RESULT"
	TypePing           Type = "PING"
	TypePong           Type = "PONG"
	TypeError          Type = "ERROR"
)

// MIME types the daemon understands natively.
const (
	MIMEText  = "text/plain"
	MIMEImage = "image/png"
)

// Item is a single clipboard representation with a MIME type.
// Data is always base64-encoded.
type Item struct {
	MIME string `json:"mime"`
	Data string `json:"data"`
}

// NewTextItem creates a text/plain Item from a plain string.
func NewTextItem(text string) Item {
	return Item{
		MIME: MIMEText,
		Data: base64.StdEncoding.EncodeToString([]byte(text)),
	}
}

// NewBinaryItem creates an Item from raw bytes with the given MIME type.
func NewBinaryItem(mime string, data []byte) Item {
	return Item{
		MIME: mime,
		Data: base64.StdEncoding.EncodeToString(data),
	}
}

// Decode returns the raw bytes of the item payload.
func (it Item) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(it.Data)
}

// State mirrors the daemon's observable clipboard flags.
type State struct {
	HasText      bool `json:"has_text"`
	HasImage     bool `json:"has_image"`
	HasOwnership bool `json:"has_ownership"`
}

// Event is the payload of an EVENT message: the clipboard state at the
// moment the daemon's polling engine detected a change.
type Event struct {
	Time time.Time `json:"time"`
	State
}

// Message is the top-level wire envelope.
type Message struct {
	// Always present
	Type   Type   `json:"type"`
	Source string `json:"source,omitempty"`

	// SET / GET responses — the clipboard contents, one item per MIME type
	Items []Item `json:"items,omitempty"`

	// AUTH — base64-encoded shared token
	Payload string `json:"payload,omitempty"`

	// EVENT
	Event *Event `json:"event,omitempty"`

	// STATUS_RESPONSE
	State      *State `json:"state,omitempty"`
	Backend    string `json:"backend,omitempty"`
	Monitoring bool   `json:"monitoring,omitempty"`
	Version    string `json:"version,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	return &m, nil
}

// TextPayload returns the decoded content of the first text/plain item, or "".
func (m *Message) TextPayload() string {
	for _, it := range m.Items {
		if it.MIME == MIMEText {
			b, err := it.Decode()
			if err != nil {
				return ""
			}
			return string(b)
		}
	}
	return ""
}

// ItemOf returns the first item with the given MIME type.
func (m *Message) ItemOf(mime string) (Item, bool) {
	for _, it := range m.Items {
		if it.MIME == mime {
			return it, true
		}
	}
	return Item{}, false
}
