package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client   *resty.Client
	observer Observer
}

// Option customises a RestyClient.
type Option func(*RestyClient)

// WithObserver reports every exchange to o.
func WithObserver(o Observer) Option {
	return func(r *RestyClient) {
		r.observer = o
	}
}

// NewRestyClient creates a new RestyClient with the specified timeout.
// A zero timeout leaves the deadline to the request context.
func NewRestyClient(timeout time.Duration, opts ...Option) *RestyClient {
	r := &RestyClient{client: newRestyBaseClient(timeout)}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
// Retries stay disabled: every call maps to exactly one request.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetRetryCount(0)
	return c
}

// Do executes req once and returns the raw response regardless of status.
func (r *RestyClient) Do(ctx context.Context, req Request) (Response, error) {
	if req.Method == "" {
		return nil, errors.New("request method is empty")
	}
	if req.URL == "" {
		return nil, errors.New("request url is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rr := r.client.R().SetContext(ctx)
	if len(req.Headers) > 0 {
		rr.SetHeaders(req.Headers)
	}
	if len(req.Query) > 0 {
		rr.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		rr.SetBody(req.Body)
	}

	start := time.Now()
	resp, err := rr.Execute(req.Method, req.URL)
	if err != nil {
		r.observe(req.Method, 0, time.Since(start))
		return nil, err
	}
	r.observe(req.Method, resp.StatusCode(), time.Since(start))

	// resty only undoes gzip; deflate arrives as sent.
	body := resp.Body()
	if strings.EqualFold(strings.TrimSpace(resp.Header().Get("Content-Encoding")), "deflate") && len(body) > 0 {
		if body, err = inflate(body); err != nil {
			return nil, fmt.Errorf("inflate %s %s response: %w", req.Method, req.URL, err)
		}
	}
	return &restyResponseAdapter{status: resp.StatusCode(), body: body}, nil
}

// inflate decodes a deflate body. Servers disagree on whether that means a
// zlib stream or raw deflate, so both are accepted.
func inflate(body []byte) ([]byte, error) {
	var rc io.ReadCloser
	if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
		rc = zr
	} else {
		rc = flate.NewReader(bytes.NewReader(body))
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (r *RestyClient) observe(method string, status int, elapsed time.Duration) {
	if r.observer == nil {
		return
	}
	r.observer.ObserveRequest(method, status, elapsed)
}

// restyResponseAdapter holds the status and the decoded body of a resty response.
type restyResponseAdapter struct {
	status int
	body   []byte
}

func (r *restyResponseAdapter) Body() []byte    { return r.body }
func (r *restyResponseAdapter) StatusCode() int { return r.status }
