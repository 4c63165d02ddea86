package models

import (
	"encoding/json"
	"time"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Payload   json.RawMessage        `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Dock board event types.
const (
	EventRecordAdded     = "dock.record.added"
	EventRecordUpdated   = "dock.record.updated"
	EventRecordDeleted   = "dock.record.deleted"
	EventRecordAccepted  = "dock.record.accepted"
	EventBoardCleared    = "dock.board.cleared"
	EventBoardReplaced   = "dock.board.replaced"
	EventVariantChanged  = "dock.variant.changed"
	EventDocumentApplied = "dock.document.apply"
)
