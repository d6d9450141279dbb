package httpclient

import (
	"context"
	"net/url"
	"time"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Request describes one outbound HTTP exchange. Body, when set, is sent as is;
// callers encode it beforehand so encoding failures never reach the wire.
type Request struct {
	Method  string
	URL     string
	Query   url.Values
	Headers map[string]string
	Body    []byte
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// Observer is notified once per completed exchange. Status is 0 when the
// request failed before a response was read.
type Observer interface {
	ObserveRequest(method string, status int, elapsed time.Duration)
}
