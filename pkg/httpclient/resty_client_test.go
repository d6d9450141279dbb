package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

type recordingObserver struct {
	mu      sync.Mutex
	methods []string
	codes   []int
}

func (r *recordingObserver) ObserveRequest(method string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods = append(r.methods, method)
	r.codes = append(r.codes, status)
}

func TestRestyClientDoSendsQueryHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if got := r.URL.Query().Get("n"); got != "3" {
			t.Fatalf("expected n=3, got %q", got)
		}
		if got := r.Header.Get("X-Test"); got != "1" {
			t.Fatalf("missing header, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"a":1}` {
			t.Fatalf("unexpected body %s", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	client := NewRestyClient(2*time.Second, WithObserver(obs))

	resp, err := client.Do(context.Background(), Request{
		Method:  http.MethodPost,
		URL:     srv.URL + "/x",
		Query:   url.Values{"n": []string{"3"}},
		Headers: map[string]string{"X-Test": "1", "Content-Type": "application/json"},
		Body:    []byte(`{"a":1}`),
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode())
	}
	if string(resp.Body()) != `{"ok":true}` {
		t.Fatalf("unexpected body %s", resp.Body())
	}
	if len(obs.methods) != 1 || obs.methods[0] != http.MethodPost || obs.codes[0] != http.StatusCreated {
		t.Fatalf("observer not notified correctly: %v %v", obs.methods, obs.codes)
	}
}

func TestRestyClientDoReturnsNon2xxWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"msg":"Queue not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewRestyClient(time.Second)
	resp, err := client.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode() != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode())
	}
}

func TestRestyClientDoRejectsIncompleteRequest(t *testing.T) {
	client := NewRestyClient(time.Second)
	if _, err := client.Do(context.Background(), Request{URL: "http://localhost"}); err == nil {
		t.Fatalf("expected error for missing method")
	}
	if _, err := client.Do(context.Background(), Request{Method: http.MethodGet}); err == nil {
		t.Fatalf("expected error for missing url")
	}
}

func TestRestyClientDoReportsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	obs := &recordingObserver{}
	client := NewRestyClient(time.Second, WithObserver(obs))
	if _, err := client.Do(context.Background(), Request{Method: http.MethodGet, URL: addr}); err == nil {
		t.Fatalf("expected connection error")
	}
	if len(obs.codes) != 1 || obs.codes[0] != 0 {
		t.Fatalf("expected observer status 0, got %v", obs.codes)
	}
}

func compress(t *testing.T, encoding string, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "zlib":
		w = zlib.NewWriter(&buf)
	case "raw-deflate":
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			t.Fatalf("flate writer: %v", err)
		}
		w = fw
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close compressor: %v", err)
	}
	return buf.Bytes()
}

func TestRestyClientDoDecodesCompressedBodies(t *testing.T) {
	payload := []byte(`{"queue":{"name":"q1","size":3}}`)
	cases := map[string]string{
		"gzip":        "gzip",
		"zlib":        "deflate",
		"raw-deflate": "deflate",
	}
	for encoding, header := range cases {
		t.Run(encoding, func(t *testing.T) {
			compressed := compress(t, encoding, payload)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Content-Encoding", header)
				_, _ = w.Write(compressed)
			}))
			defer srv.Close()

			client := NewRestyClient(time.Second)
			resp, err := client.Do(context.Background(), Request{
				Method:  http.MethodGet,
				URL:     srv.URL,
				Headers: map[string]string{"Accept-Encoding": "gzip, deflate"},
			})
			if err != nil {
				t.Fatalf("Do: %v", err)
			}
			if !bytes.Equal(resp.Body(), payload) {
				t.Fatalf("body not decoded: %q", resp.Body())
			}
		})
	}
}
