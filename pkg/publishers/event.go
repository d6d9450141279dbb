package publishers

import (
	"time"

	"github.com/google/uuid"
)

// Event is the payload published downstream for one forwarded queue message.
type Event struct {
	ID            string    `json:"id"`
	Queue         string    `json:"queue"`
	MessageID     string    `json:"message_id"`
	Body          string    `json:"body"`
	ReservedCount int       `json:"reserved_count"`
	ForwardedAt   time.Time `json:"forwarded_at"`
}

// NewEvent builds an Event with a fresh id for a message taken from queue.
func NewEvent(queue, messageID, body string, reservedCount int) Event {
	return Event{
		ID:            uuid.NewString(),
		Queue:         queue,
		MessageID:     messageID,
		Body:          body,
		ReservedCount: reservedCount,
		ForwardedAt:   time.Now().UTC(),
	}
}

// attributes are attached to broker messages so consumers can route without decoding the body.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_id":   e.ID,
		"queue":      e.Queue,
		"message_id": e.MessageID,
	}
}
