// Package message defines the tabclip bridge protocol.
//
// All messages are newline-delimited JSON, exactly one message per line:
// <json>\n. The same envelope is used on the local IPC socket and on the
// optional TCP listener. Requests that expect an answer carry an ID; the
// answer echoes it back so multiple exchanges can be in flight on one
// connection.
package message

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"go.klb.dev/tabclip/internal/command"
	"go.klb.dev/tabclip/internal/surface"
	"go.klb.dev/tabclip/internal/tabs"
)

// Type identifies the kind of message.
type Type string

const (
	// Bridge registration and liveness.
	TypeHello Type = "HELLO"
	TypePing  Type = "PING"
	TypePong  Type = "PONG"
	TypeAuth  Type = "AUTH"

	// Copy pipeline.
	TypeCopy      Type = "COPY"      // bridge/CLI → daemon: run a copy command
	TypeQuery     Type = "QUERY"     // daemon → bridge: list tabs matching Filter
	TypeTabs      Type = "TABS"      // bridge → daemon: query result
	TypeExtract   Type = "EXTRACT"   // daemon → bridge: pull the page selection of Tab
	TypeSelection Type = "SELECTION" // bridge → daemon: extraction result
	TypeNotify    Type = "NOTIFY"    // daemon → bridge: copy finished, for CallbackID

	// Introspection.
	TypeStatus         Type = "STATUS"
	TypeStatusResponse Type = "STATUS_RESPONSE"

	TypeError Type = "ERROR"
)

// BridgeInfo describes a connected browser bridge, shown in status output.
type BridgeInfo struct {
	Source      string `json:"source"`
	Addr        string `json:"addr"`
	ConnectedAt string `json:"connected_at"`
}

// Status is the daemon state returned for a STATUS request.
type Status struct {
	Version string        `json:"version"`
	Surface surface.Stats `json:"surface"`
	Bridges []BridgeInfo  `json:"bridges"`
}

// Message is the top-level wire envelope. Only the fields relevant to Type
// are populated.
type Message struct {
	Type Type `json:"type"`

	// ID correlates a request with its response. Set by NewID.
	ID string `json:"id,omitempty"`

	// HELLO / AUTH
	Source string `json:"source,omitempty"`
	Token  string `json:"token,omitempty"`

	// COPY
	Command *command.Command `json:"command,omitempty"`

	// QUERY / TABS
	Filter *tabs.Filter `json:"filter,omitempty"`
	Tabs   []tabs.Tab   `json:"tabs,omitempty"`

	// EXTRACT / SELECTION
	Tab       *tabs.Tab `json:"tab,omitempty"`
	Selection string    `json:"selection,omitempty"`

	// NOTIFY
	CallbackID string `json:"callback_id,omitempty"`
	Copied     int    `json:"copied,omitempty"` // number of tabs copied

	// STATUS_RESPONSE
	Status *Status `json:"status,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// NewID returns a fresh correlation id.
func NewID() string { return uuid.NewString() }

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

// Err builds an ERROR reply to m, preserving its correlation id.
func (m *Message) Err(err error) *Message {
	return &Message{Type: TypeError, ID: m.ID, Error: err.Error()}
}
