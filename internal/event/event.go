package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeDocumentsInserted Type = "documents.inserted"
	TypeDocumentsArchived Type = "documents.archived"
	TypeDocumentsRestored Type = "documents.restored"
	TypeDocumentsDeleted  Type = "documents.deleted"
	TypeArchiveConfigured Type = "archive.configured"
)

type Event struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp string      `json:"timestamp"`
	ActorID   string      `json:"actor_id,omitempty"` // Who triggered the event
}

// DocumentsPayload describes a bulk change to one collection.
type DocumentsPayload struct {
	Collection string `json:"collection"`
	Archive    string `json:"archive,omitempty"`
	Count      int    `json:"count"`
}

// New stamps a fresh id and the current time on an event.
func New(t Type, payload any, actorID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ActorID:   actorID,
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
