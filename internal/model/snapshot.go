package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the whole list at one point in time. It is the unit of
// persistence: every mutation publishes a new one.
type Snapshot struct {
	Items     []Item `json:"items"`
	Timestamp int64  `json:"timestamp"` // milliseconds since epoch
}

// NewSnapshot stamps items with t in milliseconds.
func NewSnapshot(items []Item, t time.Time) Snapshot {
	if items == nil {
		items = []Item{}
	}
	return Snapshot{Items: items, Timestamp: t.UnixMilli()}
}

// Time returns the snapshot timestamp as a time.Time.
func (s Snapshot) Time() time.Time { return time.UnixMilli(s.Timestamp) }

// wireSnapshot also accepts "todos", the key used by bodies published
// from the browser version of the app.
type wireSnapshot struct {
	Items     []Item `json:"items"`
	Todos     []Item `json:"todos,omitempty"`
	Timestamp *int64 `json:"timestamp"`
}

// Marshal encodes the snapshot as a record body.
func Marshal(s Snapshot) ([]byte, error) {
	if s.Items == nil {
		s.Items = []Item{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return b, nil
}

// Parse decodes a record body.
func Parse(b []byte) (Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(b, &w); err != nil {
		return Snapshot{}, fmt.Errorf("json unmarshal: %w", err)
	}
	if w.Timestamp == nil {
		return Snapshot{}, fmt.Errorf("json unmarshal: missing timestamp")
	}
	items := w.Items
	if items == nil {
		items = w.Todos
	}
	if items == nil {
		items = []Item{}
	}
	return Snapshot{Items: items, Timestamp: *w.Timestamp}, nil
}
