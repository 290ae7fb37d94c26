package models

import (
	"encoding/json"
	"time"
)

// Snapshot is one save action: the range bounds and the raw range response.
type Snapshot struct {
	Start   string          `json:"start"`
	End     string          `json:"end"`
	Payload json.RawMessage `json:"payload"`
}

// SavedSnapshot is the stored record. CreatedAt comes from the store, never
// from the caller's clock.
type SavedSnapshot struct {
	ID        string    `json:"id"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	CreatedAt time.Time `json:"created_at"`
}
