package mq

import (
	"encoding/json"
	"fmt"
)

const (
	// MaxExpiresIn is the longest a message may live on a queue (30 days).
	MaxExpiresIn = 2592000

	// DefaultMessageTimeout is the reservation timeout the server applies when none is sent.
	DefaultMessageTimeout = 60
	// DefaultMessageDelay is the delay the server applies when none is sent.
	DefaultMessageDelay = 0
)

// Message is a message to be posted. Timeout, delay and expiration are
// optional; an explicitly set zero is sent, an unset field is omitted so the
// server default applies.
type Message struct {
	body      string
	timeout   *int
	delay     *int
	expiresIn *int
}

// MessageOption sets an optional message property.
type MessageOption func(*Message) error

// WithTimeout sets the reservation timeout in seconds.
func WithTimeout(seconds int) MessageOption {
	return func(m *Message) error {
		m.SetTimeout(seconds)
		return nil
	}
}

// WithDelay sets the delay in seconds before the message becomes available.
func WithDelay(seconds int) MessageOption {
	return func(m *Message) error {
		m.SetDelay(seconds)
		return nil
	}
}

// WithExpiresIn sets how long in seconds the message is kept before deletion.
func WithExpiresIn(seconds int) MessageOption {
	return func(m *Message) error {
		return m.SetExpiresIn(seconds)
	}
}

// Properties is the mapping form of the optional message fields. A nil field is absent.
type Properties struct {
	Timeout   *int `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Delay     *int `json:"delay,omitempty" yaml:"delay,omitempty"`
	ExpiresIn *int `json:"expires_in,omitempty" yaml:"expires_in,omitempty"`
}

// Options converts the present properties into message options.
func (p Properties) Options() []MessageOption {
	var opts []MessageOption
	if p.Timeout != nil {
		opts = append(opts, WithTimeout(*p.Timeout))
	}
	if p.Delay != nil {
		opts = append(opts, WithDelay(*p.Delay))
	}
	if p.ExpiresIn != nil {
		opts = append(opts, WithExpiresIn(*p.ExpiresIn))
	}
	return opts
}

// NewMessage builds a message. It fails with a *ValidationError when body is
// empty or an option is out of range.
func NewMessage(body string, opts ...MessageOption) (*Message, error) {
	m := &Message{}
	if err := m.SetBody(body); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Body returns the message body.
func (m *Message) Body() string { return m.body }

// SetBody replaces the body. An empty body is rejected and the old one kept.
func (m *Message) SetBody(body string) error {
	if body == "" {
		return &ValidationError{Field: "body", Reason: "please specify a body"}
	}
	m.body = body
	return nil
}

// Timeout returns the reservation timeout and whether it was set.
func (m *Message) Timeout() (int, bool) { return optional(m.timeout) }

// SetTimeout sets the reservation timeout; zero is a valid explicit value.
func (m *Message) SetTimeout(seconds int) { m.timeout = &seconds }

// Delay returns the delay and whether it was set.
func (m *Message) Delay() (int, bool) { return optional(m.delay) }

// SetDelay sets the delay; zero is a valid explicit value.
func (m *Message) SetDelay(seconds int) { m.delay = &seconds }

// ExpiresIn returns the expiration and whether it was set.
func (m *Message) ExpiresIn() (int, bool) { return optional(m.expiresIn) }

// SetExpiresIn sets the expiration. Values above MaxExpiresIn are rejected.
func (m *Message) SetExpiresIn(seconds int) error {
	if seconds > MaxExpiresIn {
		return &ValidationError{
			Field:  "expires_in",
			Reason: fmt.Sprintf("expires_in can't be greater than %d", MaxExpiresIn),
		}
	}
	m.expiresIn = &seconds
	return nil
}

type wireMessage struct {
	Body      string `json:"body"`
	Timeout   *int   `json:"timeout,omitempty"`
	Delay     *int   `json:"delay,omitempty"`
	ExpiresIn *int   `json:"expires_in,omitempty"`
}

// MarshalJSON encodes the wire format: body plus the fields that were set.
func (m *Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		Body:      m.body,
		Timeout:   m.timeout,
		Delay:     m.delay,
		ExpiresIn: m.expiresIn,
	})
}

// WireFormat returns the mapping sent to the server.
func (m *Message) WireFormat() map[string]any {
	out := map[string]any{"body": m.body}
	if m.timeout != nil {
		out["timeout"] = *m.timeout
	}
	if m.delay != nil {
		out["delay"] = *m.delay
	}
	if m.expiresIn != nil {
		out["expires_in"] = *m.expiresIn
	}
	return out
}

func optional(v *int) (int, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}
