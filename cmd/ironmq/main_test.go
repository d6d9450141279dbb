package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

type capturedRequest struct {
	method string
	path   string
	body   map[string]any
}

func startFakeService(t *testing.T, response string) (*[]capturedRequest, func()) {
	t.Helper()
	var reqs []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		rec := capturedRequest{method: r.Method, path: r.URL.EscapedPath()}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.body)
		}
		reqs = append(reqs, rec)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, response)
	}))

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	for _, key := range []string{"TOKEN", "PROJECT_ID", "PROTOCOL", "HOST", "PORT", "API_VERSION"} {
		t.Setenv("IRON_MQ_"+key, "")
		t.Setenv("IRON_"+key, "")
	}
	t.Setenv("IRON_TOKEN", "tok")
	t.Setenv("IRON_PROJECT_ID", "proj")
	t.Setenv("IRON_PROTOCOL", "http")
	t.Setenv("IRON_HOST", u.Hostname())
	t.Setenv("IRON_PORT", u.Port())
	return &reqs, srv.Close
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return out.String()
}

func TestQueuesGetPrintsJSON(t *testing.T) {
	reqs, stop := startFakeService(t, `{"queue":{"name":"jobs","size":4}}`)
	defer stop()

	out := execute(t, "queues", "get", "jobs")

	var q map[string]any
	if err := json.Unmarshal([]byte(out), &q); err != nil {
		t.Fatalf("output is not JSON: %s", out)
	}
	if q["name"] != "jobs" || q["size"] != float64(4) {
		t.Fatalf("unexpected output %v", q)
	}
	if got := (*reqs)[0].path; got != "/3/projects/proj/queues/jobs" {
		t.Fatalf("unexpected path %s", got)
	}
}

func TestMessagesPostSendsOnlyChangedFlags(t *testing.T) {
	reqs, stop := startFakeService(t, `{"ids":["42"],"msg":"Messages put on queue."}`)
	defer stop()

	out := execute(t, "--project", "other", "messages", "post", "jobs", "hello", "--delay", "0")

	var res map[string]any
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %s", out)
	}
	if res["id"] != "42" {
		t.Fatalf("unexpected output %v", res)
	}

	req := (*reqs)[0]
	if req.path != "/3/projects/other/queues/jobs/messages" {
		t.Fatalf("--project should override the environment, got %s", req.path)
	}
	msg := req.body["messages"].([]any)[0].(map[string]any)
	if _, ok := msg["delay"]; !ok {
		t.Fatalf("explicit --delay 0 must be sent: %v", msg)
	}
	if _, ok := msg["timeout"]; ok {
		t.Fatalf("unset --timeout must be omitted: %v", msg)
	}
}

func TestDeleteBatchParsesReservations(t *testing.T) {
	reqs, stop := startFakeService(t, `{"msg":"Deleted"}`)
	defer stop()

	execute(t, "messages", "delete-batch", "jobs", "1", "2:r2")

	ids := (*reqs)[0].body["ids"].([]any)
	if ids[0] != "1" {
		t.Fatalf("unexpected first ref %v", ids[0])
	}
	if ref := ids[1].(map[string]any); ref["reservation_id"] != "r2" {
		t.Fatalf("unexpected second ref %v", ids[1])
	}
}

func TestParseSubscribers(t *testing.T) {
	subs := parseSubscribers([]string{"hook=https://example.com/a?x=1", "https://example.com/b"})
	if subs[0].Name != "hook" || subs[0].URL != "https://example.com/a?x=1" {
		t.Fatalf("unexpected first subscriber %+v", subs[0])
	}
	if subs[1].URL != "https://example.com/b" || subs[1].Name != "https://example.com/b" {
		t.Fatalf("unexpected second subscriber %+v", subs[1])
	}
}

func TestForwardOnceDeliversAndDeletes(t *testing.T) {
	reqs, stop := startFakeService(t, `{"messages":[{"id":"7","body":"hi","reserved_count":1,"reservation_id":"r7"}],"msg":"Deleted"}`)
	defer stop()

	var hits atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	dir := t.TempDir()
	sinks := filepath.Join(dir, "sinks.yaml")
	raw := "sinks:\n  - id: hook\n    type: http\n    http:\n      url: " + hook.URL + "\n"
	if err := os.WriteFile(sinks, []byte(raw), 0o644); err != nil {
		t.Fatalf("write sinks: %v", err)
	}
	ledgerPath := filepath.Join(dir, "forward.db")

	out := execute(t, "forward", "jobs", "--once", "--sinks", sinks, "--ledger", "bbolt", "--ledger-path", ledgerPath)

	var stats map[string]any
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("output is not JSON: %s", out)
	}
	if stats["forwarded"] != float64(1) {
		t.Fatalf("unexpected stats %v", stats)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("expected one webhook call, got %d", n)
	}
	if len(*reqs) != 2 {
		t.Fatalf("expected reserve and delete, got %d requests", len(*reqs))
	}
	del := (*reqs)[1]
	if del.method != http.MethodDelete || del.path != "/3/projects/proj/queues/jobs/messages/7" || del.body["reservation_id"] != "r7" {
		t.Fatalf("unexpected delete %+v", del)
	}
	if _, err := os.Stat(ledgerPath); err != nil {
		t.Fatalf("expected ledger file: %v", err)
	}
}
