package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/ironmq-go/internal/config"
	"github.com/samvad-hq/ironmq-go/internal/ledger"
	"github.com/samvad-hq/ironmq-go/internal/metrics"
	"github.com/samvad-hq/ironmq-go/pkg/mq"
	"github.com/samvad-hq/ironmq-go/pkg/publishers"
)

type fakeQueue struct {
	mu       sync.Mutex
	batches  [][]mq.QueueMessage
	reserves int
	deleted  []string
	released []string
	delays   []int
	lastN    int
}

func (q *fakeQueue) ReserveMessages(_ context.Context, _ string, n, _, _ int) ([]mq.QueueMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reserves++
	q.lastN = n
	if len(q.batches) == 0 {
		return nil, nil
	}
	batch := q.batches[0]
	q.batches = q.batches[1:]
	return batch, nil
}

func (q *fakeQueue) DeleteMessage(_ context.Context, _ string, id, reservationID string) (*mq.Result, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if reservationID == "" {
		return nil, errors.New("missing reservation id")
	}
	q.deleted = append(q.deleted, id)
	return &mq.Result{Msg: "Deleted"}, nil
}

func (q *fakeQueue) ReleaseMessage(_ context.Context, _ string, id, _ string, delay int) (*mq.Result, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.released = append(q.released, id)
	q.delays = append(q.delays, delay)
	return &mq.Result{Msg: "Released"}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	failOn map[string]bool
	events []publishers.Event
}

func (s *recordingSink) ID() string   { return "rec" }
func (s *recordingSink) Type() string { return "test" }
func (s *recordingSink) Publish(_ context.Context, evt publishers.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[evt.MessageID] {
		return errors.New("sink down")
	}
	s.events = append(s.events, evt)
	return nil
}

func reserved(id string) mq.QueueMessage {
	return mq.QueueMessage{ID: id, Body: "body-" + id, ReservedCount: 1, ReservationID: "r-" + id}
}

func TestRunOnceDeletesDeliveredAndReleasesFailed(t *testing.T) {
	queue := &fakeQueue{batches: [][]mq.QueueMessage{{reserved("1"), reserved("2")}}}
	sink := &recordingSink{failOn: map[string]bool{"2": true}}
	m := metrics.New()

	fwd, err := NewForwarder("jobs", queue, publishers.NewFanout([]publishers.Publisher{sink}),
		config.Forward{BatchSize: 5, ReservationTimeoutSeconds: 60, ReleaseDelaySeconds: 10}, nil, m)
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}

	stats, err := fwd.RunOnce(context.Background())
	if err == nil {
		t.Fatalf("expected sink error to be reported")
	}
	if stats.Reserved != 2 || stats.Forwarded != 1 || stats.Released != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(queue.deleted) != 1 || queue.deleted[0] != "1" {
		t.Fatalf("unexpected deletes %v", queue.deleted)
	}
	if len(queue.released) != 1 || queue.released[0] != "2" || queue.delays[0] != 10 {
		t.Fatalf("unexpected releases %v delays %v", queue.released, queue.delays)
	}
	if queue.lastN != 5 {
		t.Fatalf("expected batch size 5, got %d", queue.lastN)
	}
	if len(sink.events) != 1 || sink.events[0].Body != "body-1" || sink.events[0].Queue != "jobs" {
		t.Fatalf("unexpected events %+v", sink.events)
	}
}

func TestRunOnceSkipsRedeliveredMessage(t *testing.T) {
	// The first copy has no reservation id, so the fake queue refuses the delete.
	broken := reserved("1")
	broken.ReservationID = ""
	queue := &fakeQueue{batches: [][]mq.QueueMessage{{broken}, {reserved("1")}}}
	sink := &recordingSink{}

	led, err := ledger.Open("bbolt", filepath.Join(t.TempDir(), "forward.db"), ledger.Options{})
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	fwd, err := NewForwarder("jobs", queue, publishers.NewFanout([]publishers.Publisher{sink}),
		config.Forward{BatchSize: 1}, nil, nil, WithLedger(led))
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}
	defer fwd.Close()

	if _, err := fwd.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected delete error on first batch")
	}
	stats, err := fwd.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if stats.Skipped != 1 || stats.Forwarded != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(sink.events) != 1 {
		t.Fatalf("message published %d times, want 1", len(sink.events))
	}
	if len(queue.deleted) != 1 || queue.deleted[0] != "1" {
		t.Fatalf("unexpected deletes %v", queue.deleted)
	}
}

func TestRunOnceEmptyQueue(t *testing.T) {
	queue := &fakeQueue{}
	fwd, err := NewForwarder("jobs", queue, publishers.NewFanout([]publishers.Publisher{&recordingSink{}}), config.Forward{}, nil, nil)
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}
	stats, err := fwd.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if stats != (BatchStats{}) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestNewForwarderRequiresSinks(t *testing.T) {
	if _, err := NewForwarder("jobs", &fakeQueue{}, publishers.NewFanout(nil), config.Forward{}, nil, nil); err == nil {
		t.Fatalf("expected error without sinks")
	}
	if _, err := NewForwarder("", &fakeQueue{}, publishers.NewFanout([]publishers.Publisher{&recordingSink{}}), config.Forward{}, nil, nil); err == nil {
		t.Fatalf("expected error without queue")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	queue := &fakeQueue{batches: [][]mq.QueueMessage{{reserved("1")}}}
	sink := &recordingSink{}
	fwd, err := NewForwarder("jobs", queue, publishers.NewFanout([]publishers.Publisher{sink}),
		config.Forward{BatchSize: 10, Interval: 10 * time.Millisecond}, nil, nil)
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fwd.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		queue.mu.Lock()
		n := queue.reserves
		queue.mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("forwarder did not poll twice")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	queue.mu.Lock()
	defer queue.mu.Unlock()
	if len(queue.deleted) != 1 {
		t.Fatalf("expected the reserved message to be deleted, got %v", queue.deleted)
	}
}

func TestNewForwarderFromConfigLoadsSinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sinks.yaml")
	raw := "sinks:\n  - id: hook\n    type: http\n    http:\n      url: http://127.0.0.1:1/hook\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "ledger", "forward.db")
	cfg := &config.Config{SinksFile: path, Forward: config.Forward{
		BatchSize:  1,
		LedgerType: "bbolt",
		LedgerPath: dbPath,
		LedgerTTL:  time.Hour,
	}}
	fwd, err := NewForwarderFromConfig(context.Background(), cfg, "jobs", &fakeQueue{}, nil, nil)
	if err != nil {
		t.Fatalf("NewForwarderFromConfig: %v", err)
	}
	defer fwd.Close()
	if fwd.fanout.Size() != 1 {
		t.Fatalf("expected 1 sink, got %d", fwd.fanout.Size())
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected ledger file: %v", err)
	}
}
