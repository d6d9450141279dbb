package ledger

import (
	"path/filepath"
	"testing"
	"time"
)

func TestBoltLedgerMarksAndExpires(t *testing.T) {
	l, err := openBolt(filepath.Join(t.TempDir(), "ledger", "forward.db"), Options{
		TTL:             time.Minute,
		CleanupInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer l.Close()

	clock := time.Now()
	l.now = func() time.Time { return clock }

	key := Key("jobs", "42")
	if seen, err := l.Delivered(key); err != nil || seen {
		t.Fatalf("expected unseen key, seen=%v err=%v", seen, err)
	}
	if err := l.MarkDelivered(key); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if seen, err := l.Delivered(key); err != nil || !seen {
		t.Fatalf("expected key delivered, seen=%v err=%v", seen, err)
	}
	if seen, _ := l.Delivered(Key("other", "42")); seen {
		t.Fatalf("keys must be scoped by queue")
	}

	clock = clock.Add(2 * time.Minute)
	if seen, err := l.Delivered(key); err != nil || seen {
		t.Fatalf("expected key to expire, seen=%v err=%v", seen, err)
	}
	if l.count() != 1 {
		t.Fatalf("expired key should stay until the next sweep")
	}

	clock = clock.Add(2 * time.Hour)
	if _, err := l.Delivered(key); err != nil {
		t.Fatalf("Delivered: %v", err)
	}
	if l.count() != 0 {
		t.Fatalf("sweep should drop expired keys, %d left", l.count())
	}
}

func TestOpenNoop(t *testing.T) {
	l, err := Open("none", "", Options{})
	if err != nil {
		t.Fatalf("Open none: %v", err)
	}
	if err := l.MarkDelivered("x"); err != nil {
		t.Fatalf("noop MarkDelivered: %v", err)
	}
	if seen, _ := l.Delivered("x"); seen {
		t.Fatalf("noop ledger never reports deliveries")
	}
}

func TestOpenRejectsUnknownType(t *testing.T) {
	if _, err := Open("redis", "", Options{}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Open("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
