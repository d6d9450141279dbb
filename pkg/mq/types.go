package mq

import "encoding/json"

// Queue types understood by the service.
const (
	QueueTypePull      = "pull"
	QueueTypeUnicast   = "unicast"
	QueueTypeMulticast = "multicast"
)

// QueueInfo is both the decoded queue object and the options sent on create
// and update. The client never validates it. Zero fields are omitted, so an
// explicit zero (message_expiration: 0, retries: 0) cannot be sent; the
// server keeps its current or default value instead.
type QueueInfo struct {
	Name              string    `json:"name,omitempty" yaml:"name,omitempty"`
	ProjectID         string    `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	Type              string    `json:"type,omitempty" yaml:"type,omitempty"`
	Size              int64     `json:"size,omitempty" yaml:"-"`
	TotalMessages     int64     `json:"total_messages,omitempty" yaml:"-"`
	MessageTimeout    int       `json:"message_timeout,omitempty" yaml:"message_timeout,omitempty"`
	MessageExpiration int       `json:"message_expiration,omitempty" yaml:"message_expiration,omitempty"`
	Push              *PushInfo `json:"push,omitempty" yaml:"push,omitempty"`
	Alerts            []Alert   `json:"alerts,omitempty" yaml:"alerts,omitempty"`
}

// PushInfo configures delivery of a push queue.
type PushInfo struct {
	Subscribers  []Subscriber `json:"subscribers,omitempty" yaml:"subscribers,omitempty"`
	Retries      int          `json:"retries,omitempty" yaml:"retries,omitempty"`
	RetriesDelay int          `json:"retries_delay,omitempty" yaml:"retries_delay,omitempty"`
	ErrorQueue   string       `json:"error_queue,omitempty" yaml:"error_queue,omitempty"`
	RateLimit    int          `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// Subscriber is an HTTP endpoint of a push queue.
type Subscriber struct {
	Name    string            `json:"name,omitempty" yaml:"name,omitempty"`
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Alert enqueues a notification to Queue when the size crosses Trigger.
// Only pull queues accept alerts.
type Alert struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Type      string `json:"type,omitempty" yaml:"type,omitempty"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty"`
	Trigger   int    `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Queue     string `json:"queue,omitempty" yaml:"queue,omitempty"`
	Snooze    int    `json:"snooze,omitempty" yaml:"snooze,omitempty"`
}

// QueueMessage is a message as returned by the server. ReservationID is only
// populated when the message was obtained by reserving it.
type QueueMessage struct {
	ID            string `json:"id"`
	Body          string `json:"body"`
	ReservedCount int    `json:"reserved_count,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`
	Timeout       int    `json:"timeout,omitempty"`
	Delay         int    `json:"delay,omitempty"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
}

// Reserved reports whether the message carries a reservation.
func (m QueueMessage) Reserved() bool { return m.ReservationID != "" }

// Ref returns the reference used to delete this message.
func (m QueueMessage) Ref() MessageRef {
	return MessageRef{ID: m.ID, ReservationID: m.ReservationID}
}

// PostResult is the response to posting messages. ID repeats IDs[0].
type PostResult struct {
	IDs []string `json:"ids"`
	ID  string   `json:"id,omitempty"`
	Msg string   `json:"msg,omitempty"`
}

// Reservation is the response to touching a message; the previous
// reservation id is no longer valid.
type Reservation struct {
	ReservationID string `json:"reservation_id"`
	Msg           string `json:"msg,omitempty"`
}

// Result is the generic {"msg": ...} acknowledgement.
type Result struct {
	Msg string `json:"msg"`
}

// DeleteResult is the envelope returned by a batch delete. IDs holds whatever
// per-message entries the server chose to report.
type DeleteResult struct {
	Msg string         `json:"msg"`
	IDs []DeleteStatus `json:"ids,omitempty"`
}

// DeleteStatus is one entry of a batch delete response.
type DeleteStatus struct {
	ID  string `json:"id"`
	Msg string `json:"msg,omitempty"`
}

// MessageRef identifies a message to delete. Without a reservation id it is
// sent as a plain id string.
type MessageRef struct {
	ID            string
	ReservationID string
}

// MarshalJSON encodes a plain id or an {id, reservation_id} object.
func (r MessageRef) MarshalJSON() ([]byte, error) {
	if r.ReservationID == "" {
		return json.Marshal(r.ID)
	}
	return json.Marshal(struct {
		ID            string `json:"id"`
		ReservationID string `json:"reservation_id"`
	}{ID: r.ID, ReservationID: r.ReservationID})
}

// RefsFromIDs wraps plain message ids.
func RefsFromIDs(ids []string) []MessageRef {
	refs := make([]MessageRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, MessageRef{ID: id})
	}
	return refs
}

// PushStatus is the delivery state of a push message for one subscriber.
type PushStatus struct {
	SubscriberName   string `json:"subscriber_name"`
	URL              string `json:"url,omitempty"`
	StatusCode       int    `json:"status_code,omitempty"`
	RetriesRemaining int    `json:"retries_remaining,omitempty"`
	Tries            int    `json:"tries,omitempty"`
	Msg              string `json:"msg,omitempty"`
	LastTryAt        string `json:"last_try_at,omitempty"`
}
