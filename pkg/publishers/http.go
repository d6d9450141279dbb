package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/ironmq-go/pkg/httpclient"
)

const maxWebhookErrorBody = 512

// webhookPublisher posts the event JSON to an HTTP endpoint through the
// shared transport.
type webhookPublisher struct {
	id        string
	method    string
	url       string
	headers   map[string]string
	transport httpclient.Client
	log       Logger
}

func newHTTPPublisher(_ context.Context, cfg SinkConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("sink %q missing http configuration", cfg.ID)
	}
	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	return newWebhookPublisher(cfg.ID, *cfg.HTTP, httpclient.NewRestyClient(timeout), log), nil
}

func newWebhookPublisher(id string, cfg HTTPSinkConfig, transport httpclient.Client, log Logger) *webhookPublisher {
	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodPost
	}
	return &webhookPublisher{
		id:        id,
		method:    method,
		url:       cfg.URL,
		headers:   cfg.Headers,
		transport: transport,
		log:       loggerOrNop(log),
	}
}

func (w *webhookPublisher) ID() string   { return w.id }
func (w *webhookPublisher) Type() string { return TypeHTTP }

func (w *webhookPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	headers := make(map[string]string, len(w.headers)+2)
	for k, v := range w.headers {
		headers[k] = v
	}
	headers["Content-Type"] = "application/json"
	headers["X-Event-Id"] = evt.ID

	resp, err := w.transport.Do(ctx, httpclient.Request{
		Method:  w.method,
		URL:     w.url,
		Headers: headers,
		Body:    payload,
	})
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		body := resp.Body()
		if len(body) > maxWebhookErrorBody {
			body = body[:maxWebhookErrorBody]
		}
		return fmt.Errorf("http response status %d: %s", status, strings.TrimSpace(string(body)))
	}

	w.log.DebugObj("http sink delivered event", "sink_http_delivery", map[string]any{
		"sink_id":    w.id,
		"event_id":   evt.ID,
		"message_id": evt.MessageID,
		"status":     status,
	})
	return nil
}
