package mq

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewMessageRejectsEmptyBody(t *testing.T) {
	_, err := NewMessage("")
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "body" {
		t.Fatalf("expected body ValidationError, got %v", err)
	}

	m, err := NewMessage(" ")
	if err != nil {
		t.Fatalf("whitespace body should be accepted: %v", err)
	}
	if m.Body() != " " {
		t.Fatalf("unexpected body %q", m.Body())
	}
}

func TestMessageOptionalFieldsAreTriState(t *testing.T) {
	m, err := NewMessage("hello")
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if _, ok := m.Timeout(); ok {
		t.Fatalf("timeout should be unset")
	}

	wire := m.WireFormat()
	if len(wire) != 1 || wire["body"] != "hello" {
		t.Fatalf("unexpected wire format %v", wire)
	}

	m.SetTimeout(0)
	m.SetDelay(0)
	if v, ok := m.Timeout(); !ok || v != 0 {
		t.Fatalf("expected explicit zero timeout, got %d %v", v, ok)
	}

	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["timeout"]; !ok {
		t.Fatalf("explicit zero timeout must be sent: %s", raw)
	}
	if _, ok := decoded["delay"]; !ok {
		t.Fatalf("explicit zero delay must be sent: %s", raw)
	}
	if _, ok := decoded["expires_in"]; ok {
		t.Fatalf("unset expires_in must be omitted: %s", raw)
	}
}

func TestMessageExpiresInLimit(t *testing.T) {
	if _, err := NewMessage("x", WithExpiresIn(MaxExpiresIn)); err != nil {
		t.Fatalf("max expires_in should be accepted: %v", err)
	}

	_, err := NewMessage("x", WithExpiresIn(MaxExpiresIn+1))
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "expires_in" {
		t.Fatalf("expected expires_in ValidationError, got %v", err)
	}

	m, _ := NewMessage("x", WithExpiresIn(10))
	if err := m.SetExpiresIn(MaxExpiresIn + 1); err == nil {
		t.Fatalf("expected error")
	}
	if v, _ := m.ExpiresIn(); v != 10 {
		t.Fatalf("rejected value must not replace the old one, got %d", v)
	}
}

func TestSetBodyKeepsOldBodyOnError(t *testing.T) {
	m, _ := NewMessage("first")
	if err := m.SetBody(""); err == nil {
		t.Fatalf("expected error")
	}
	if m.Body() != "first" {
		t.Fatalf("unexpected body %q", m.Body())
	}
}

func TestPropertiesOptions(t *testing.T) {
	timeout, expires := 30, 120
	m, err := NewMessage("x", Properties{Timeout: &timeout, ExpiresIn: &expires}.Options()...)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if v, ok := m.Timeout(); !ok || v != 30 {
		t.Fatalf("unexpected timeout %d %v", v, ok)
	}
	if _, ok := m.Delay(); ok {
		t.Fatalf("delay should be unset")
	}
	if v, ok := m.ExpiresIn(); !ok || v != 120 {
		t.Fatalf("unexpected expires_in %d %v", v, ok)
	}
}

func TestMessageRefMarshal(t *testing.T) {
	raw, err := json.Marshal([]MessageRef{{ID: "1"}, {ID: "2", ReservationID: "r2"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `["1",{"id":"2","reservation_id":"r2"}]` {
		t.Fatalf("unexpected refs %s", raw)
	}
}
