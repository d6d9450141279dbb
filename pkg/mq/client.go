package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/ironmq-go/pkg/httpclient"
	"github.com/samvad-hq/ironmq-go/pkg/ironcore"
)

// Version is reported in the User-Agent header.
const Version = "1.0.0"

const (
	defaultHTTPTimeout = 30 * time.Second

	headerAccept         = "application/json"
	headerAcceptEncoding = "gzip, deflate"
	headerContentType    = "application/json"
)

// Client talks to one service endpoint on behalf of one active project.
// It is safe for concurrent use; SetProjectID affects every caller sharing
// the instance, so prefer ForProject when goroutines work on different projects.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	transport httpclient.Client
	log       Logger

	mu        sync.RWMutex
	projectID string
	debug     bool
}

type clientOptions struct {
	transport httpclient.Client
	log       Logger
	timeout   time.Duration
	userAgent string
	debug     bool
}

// ClientOption customises a Client.
type ClientOption func(*clientOptions)

// WithTransport replaces the default resty transport.
func WithTransport(t httpclient.Client) ClientOption {
	return func(o *clientOptions) { o.transport = t }
}

// WithLogger sets the logger used for debug output.
func WithLogger(log Logger) ClientOption {
	return func(o *clientOptions) { o.log = log }
}

// WithHTTPTimeout sets the deadline of every HTTP call made by the default transport.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = d }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(o *clientOptions) { o.userAgent = ua }
}

// WithDebug enables request/response logging.
func WithDebug(enabled bool) ClientOption {
	return func(o *clientOptions) { o.debug = enabled }
}

// New creates a client from a resolved configuration.
func New(cfg *ironcore.Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, &ConfigurationError{Reason: "config is nil"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &clientOptions{timeout: defaultHTTPTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.transport == nil {
		o.transport = httpclient.NewRestyClient(o.timeout)
	}
	if strings.TrimSpace(o.userAgent) == "" {
		o.userAgent = "ironmq-go/" + Version
	}
	if o.log == nil {
		o.log = discardLogger{}
	}

	return &Client{
		baseURL:   cfg.BaseURL(),
		token:     cfg.Token,
		userAgent: o.userAgent,
		transport: o.transport,
		log:       o.log,
		projectID: cfg.ProjectID,
		debug:     o.debug,
	}, nil
}

// NewFromSource creates a client from an options mapping or a config file
// path, merged with environment and default fallbacks.
func NewFromSource(src any, opts ...ClientOption) (*Client, error) {
	cfg, err := ironcore.LoadFrom(src)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// NewFromEnv creates a client using only the environment, discovered config
// files and defaults.
func NewFromEnv(opts ...ClientOption) (*Client, error) {
	cfg, err := ironcore.Load()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// BaseURL returns protocol://host:port/api_version/.
func (c *Client) BaseURL() string { return c.baseURL }

// ProjectID returns the active project.
func (c *Client) ProjectID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projectID
}

// SetProjectID switches the active project. An empty id keeps the current
// project and only fails when there is none.
func (c *Client) SetProjectID(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != "" {
		c.projectID = id
	}
	if c.projectID == "" {
		return &ValidationError{Field: "project_id", Reason: "please set project_id"}
	}
	return nil
}

// ForProject returns a client bound to another project. It shares the
// transport and settings of c and is unaffected by later SetProjectID calls on c.
func (c *Client) ForProject(id string) (*Client, error) {
	if id == "" {
		return nil, &ValidationError{Field: "project_id", Reason: "please set project_id"}
	}
	return &Client{
		baseURL:   c.baseURL,
		token:     c.token,
		userAgent: c.userAgent,
		transport: c.transport,
		log:       c.log,
		projectID: id,
		debug:     c.Debug(),
	}, nil
}

// SetDebug toggles request/response logging.
func (c *Client) SetDebug(enabled bool) {
	c.mu.Lock()
	c.debug = enabled
	c.mu.Unlock()
}

// Debug reports whether request/response logging is on.
func (c *Client) Debug() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.debug
}

// queuesPath builds projects/{pid}/queues. It fails fast without an active project.
func (c *Client) queuesPath() (string, error) {
	pid := c.ProjectID()
	if pid == "" {
		return "", &ValidationError{Field: "project_id", Reason: "please set project_id"}
	}
	return "projects/" + url.PathEscape(pid) + "/queues", nil
}

// queuePath builds projects/{pid}/queues/{name}[/parts...] with every
// dynamic segment escaped.
func (c *Client) queuePath(name string, parts ...string) (string, error) {
	base, err := c.queuesPath()
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", &ValidationError{Field: "queue_name", Reason: "queue name is empty"}
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("/")
	b.WriteString(url.PathEscape(name))
	for _, p := range parts {
		if p == "" {
			return "", &ValidationError{Field: "path", Reason: "empty path segment"}
		}
		b.WriteString("/")
		b.WriteString(url.PathEscape(p))
	}
	return b.String(), nil
}

func (c *Client) headers(method string, hasBody bool) map[string]string {
	h := map[string]string{
		"Authorization":   "OAuth " + c.token,
		"Accept":          headerAccept,
		"Accept-Encoding": headerAcceptEncoding,
		"User-Agent":      c.userAgent,
	}
	if hasBody || method != http.MethodDelete {
		h["Content-Type"] = headerContentType
	}
	return h
}

// do issues exactly one request. body, when non-nil, is JSON encoded; out,
// when non-nil, receives the decoded response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		payload = raw
	}

	endpoint := c.baseURL + path
	debug := c.Debug()
	if debug {
		c.log.DebugObj("mq request", "mq_request", map[string]any{
			"method": method,
			"url":    endpoint,
			"query":  query.Encode(),
			"body":   string(payload),
		})
	}

	resp, err := c.transport.Do(ctx, httpclient.Request{
		Method:  method,
		URL:     endpoint,
		Query:   query,
		Headers: c.headers(method, payload != nil),
		Body:    payload,
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	respBody := resp.Body()
	if debug {
		c.log.DebugObj("mq response", "mq_response", map[string]any{
			"method": method,
			"url":    endpoint,
			"status": status,
			"body":   readBodySnippet(respBody),
		})
	}

	if status < 200 || status > 299 {
		return &HTTPError{StatusCode: status, Body: respBody, Method: method, URL: endpoint}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &DecodeError{Body: respBody, Err: err}
	}
	return nil
}
