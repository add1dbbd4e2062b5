package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// CollabEventType tags the payload shape carried in a CollabEvent.
type CollabEventType string

// The fixed set of collaboration event types. The type fully determines
// the shape of the event payload.
const (
	CollabUserJoined      CollabEventType = "user_joined"
	CollabUserLeft        CollabEventType = "user_left"
	CollabCursorMove      CollabEventType = "cursor_move"
	CollabTextChange      CollabEventType = "text_change"
	CollabSelectionChange CollabEventType = "selection_change"
)

// Known reports whether t is one of the fixed collaboration event types.
func (t CollabEventType) Known() bool {
	switch t {
	case CollabUserJoined, CollabUserLeft, CollabCursorMove, CollabTextChange, CollabSelectionChange:
		return true
	}
	return false
}

// CollabEvent is the wire-level unit exchanged on a document collaboration
// channel. Data decodes to a typed payload selected by Type; receivers must
// not assume fields beyond the payload for the tagged type.
type CollabEvent struct {
	Type      CollabEventType `json:"type"`
	UserID    string          `json:"userId"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// CursorPosition is a participant's last known viewport position
type CursorPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SelectionRange is a text selection within the document body
type SelectionRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// TextChange describes an edit notification. It is relayed verbatim; the
// backend does not attempt to merge concurrent edits.
type TextChange struct {
	RangeStart int    `json:"rangeStart"`
	RangeEnd   int    `json:"rangeEnd"`
	Text       string `json:"text"`
	Version    int64  `json:"version"`
}

// Participant is one collaborator (local or remote) on a document session
type Participant struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Email    string          `json:"email,omitempty"`
	Cursor   *CursorPosition `json:"cursor,omitempty"`
	LastSeen time.Time       `json:"lastSeen"`
}

// NewCollabEvent builds an event of the given type around payload. UserID and
// Timestamp are left unset; the session controller or the server hub stamps
// them before transmission.
func NewCollabEvent(typ CollabEventType, payload interface{}) (CollabEvent, error) {
	ev := CollabEvent{Type: typ}
	if !typ.Known() {
		return ev, fmt.Errorf("unknown collab event type %q", typ)
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return ev, fmt.Errorf("failed to marshal %s payload: %w", typ, err)
		}
		ev.Data = data
	}
	return ev, nil
}

// Participant decodes the payload of a user_joined event
func (e CollabEvent) Participant() (Participant, error) {
	var p Participant
	if e.Type != CollabUserJoined {
		return p, fmt.Errorf("participant payload requires %s, got %s", CollabUserJoined, e.Type)
	}
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return p, err
	}
	return p, nil
}

// Cursor decodes the payload of a cursor_move event
func (e CollabEvent) Cursor() (CursorPosition, error) {
	var c CursorPosition
	if e.Type != CollabCursorMove {
		return c, fmt.Errorf("cursor payload requires %s, got %s", CollabCursorMove, e.Type)
	}
	if err := json.Unmarshal(e.Data, &c); err != nil {
		return c, err
	}
	return c, nil
}

// Selection decodes the payload of a selection_change event
func (e CollabEvent) Selection() (SelectionRange, error) {
	var s SelectionRange
	if e.Type != CollabSelectionChange {
		return s, fmt.Errorf("selection payload requires %s, got %s", CollabSelectionChange, e.Type)
	}
	if err := json.Unmarshal(e.Data, &s); err != nil {
		return s, err
	}
	return s, nil
}

// Change decodes the payload of a text_change event
func (e CollabEvent) Change() (TextChange, error) {
	var tc TextChange
	if e.Type != CollabTextChange {
		return tc, fmt.Errorf("text change payload requires %s, got %s", CollabTextChange, e.Type)
	}
	if err := json.Unmarshal(e.Data, &tc); err != nil {
		return tc, err
	}
	return tc, nil
}
