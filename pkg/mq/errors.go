package mq

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samvad-hq/ironmq-go/pkg/ironcore"
)

// Status codes the service is known to answer with. Any non-2xx status is an
// *HTTPError; these names only document what a caller may see.
const (
	StatusNotModified        = http.StatusNotModified
	StatusBadRequest         = http.StatusBadRequest
	StatusNotFound           = http.StatusNotFound
	StatusMethodNotAllowed   = http.StatusMethodNotAllowed
	StatusConflict           = http.StatusConflict
	StatusPreconditionFailed = http.StatusPreconditionFailed
	StatusInternalError      = http.StatusInternalServerError
)

const maxErrorBodySnippet = 512

// ConfigurationError is returned when the client cannot be configured.
type ConfigurationError = ironcore.ConfigurationError

// ValidationError reports invalid input detected before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "mq: " + e.Reason
	}
	return fmt.Sprintf("mq: invalid %s: %s", e.Field, e.Reason)
}

// HTTPError is returned for every non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       []byte
	Method     string
	URL        string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("mq: http error %d", e.StatusCode)
	if e.Method != "" {
		msg += fmt.Sprintf(" (%s %s)", e.Method, e.URL)
	}
	if snippet := readBodySnippet(e.Body); snippet != "" {
		msg += ": " + snippet
	}
	return msg
}

// DecodeError is returned when a response body is not the expected JSON.
type DecodeError struct {
	Body []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("mq: decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsStatus reports whether err is an *HTTPError with the given status.
func IsStatus(err error, code int) bool {
	return err != nil && StatusCode(err) == code
}

// IsNotFound reports a 404 response.
func IsNotFound(err error) bool { return IsStatus(err, StatusNotFound) }

// IsConflict reports a 409 response.
func IsConflict(err error) bool { return IsStatus(err, StatusConflict) }

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxErrorBodySnippet {
		body = body[:maxErrorBodySnippet]
	}
	return strings.TrimSpace(string(body))
}
