package publishers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samvad-hq/ironmq-go/pkg/httpclient"
)

type capturedRequest struct {
	req httpclient.Request
}

func (c *capturedRequest) Do(_ context.Context, req httpclient.Request) (httpclient.Response, error) {
	c.req = req
	return acceptedResponse{}, nil
}

type acceptedResponse struct{}

func (acceptedResponse) Body() []byte    { return nil }
func (acceptedResponse) StatusCode() int { return http.StatusAccepted }

func TestHTTPPublisherSuccess(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if got := r.Header.Get("X-Test"); got != "1" {
			t.Errorf("missing header, got %s", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), SinkConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPSinkConfig{
			URL:            srv.URL,
			Method:         http.MethodPut,
			Headers:        map[string]string{"X-Test": "1"},
			TimeoutSeconds: 2,
		},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	evt := NewEvent("jobs", "42", "hello", 1)
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if received.ID != evt.ID || received.MessageID != "42" || received.Body != "hello" {
		t.Fatalf("server received unexpected event %+v", received)
	}
}

func TestHTTPPublisherErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	pub, err := newHTTPPublisher(context.Background(), SinkConfig{
		ID:   "hook",
		Type: TypeHTTP,
		HTTP: &HTTPSinkConfig{
			URL:            srv.URL,
			Method:         http.MethodPost,
			TimeoutSeconds: 1,
		},
	}, nil)
	if err != nil {
		t.Fatalf("newHTTPPublisher: %v", err)
	}

	if err := pub.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
}

func TestWebhookPublisherLeavesConfiguredHeadersAlone(t *testing.T) {
	headers := map[string]string{"Authorization": "Bearer x"}
	transport := &capturedRequest{}
	pub := newWebhookPublisher("hook", HTTPSinkConfig{URL: "http://sink.local/in", Headers: headers}, transport, nil)

	evt := NewEvent("jobs", "7", "payload", 2)
	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if transport.req.Method != http.MethodPost {
		t.Fatalf("expected default POST, got %s", transport.req.Method)
	}
	if transport.req.Headers["X-Event-Id"] != evt.ID || transport.req.Headers["Authorization"] != "Bearer x" {
		t.Fatalf("unexpected headers %v", transport.req.Headers)
	}
	if len(headers) != 1 {
		t.Fatalf("configured headers were mutated: %v", headers)
	}

	var sent Event
	if err := json.Unmarshal(transport.req.Body, &sent); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if sent.Queue != "jobs" || sent.ReservedCount != 2 {
		t.Fatalf("unexpected payload %+v", sent)
	}
}
