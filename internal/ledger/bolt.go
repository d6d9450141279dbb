package ledger

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	deliveredBucket = "delivered"
	expiryBytes     = 8
)

// boltLedger stores key -> expiry (unix seconds, big endian) in one bucket.
type boltLedger struct {
	db              *bolt.DB
	ttl             time.Duration
	cleanupInterval time.Duration

	cleanupMu   sync.Mutex
	lastCleanup atomic.Int64

	now func() time.Time
}

func openBolt(path string, opts Options) (*boltLedger, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(deliveredBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	l := &boltLedger{
		db:              db,
		ttl:             opts.TTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	l.lastCleanup.Store(l.now().Unix())
	return l, nil
}

func (l *boltLedger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Delivered reports whether key was marked and has not expired.
func (l *boltLedger) Delivered(key string) (bool, error) {
	now := l.now()
	if err := l.maybeSweep(now); err != nil {
		return false, err
	}

	var found bool
	err := l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(deliveredBucket))
		if b == nil {
			return fmt.Errorf("delivered bucket missing")
		}
		expiry, ok := decodeExpiry(b.Get([]byte(key)))
		found = ok && expiry.After(now)
		return nil
	})
	return found, err
}

// MarkDelivered records key until now+TTL.
func (l *boltLedger) MarkDelivered(key string) error {
	now := l.now()
	if err := l.maybeSweep(now); err != nil {
		return err
	}

	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(deliveredBucket))
		if b == nil {
			return fmt.Errorf("delivered bucket missing")
		}
		buf := make([]byte, expiryBytes)
		binary.BigEndian.PutUint64(buf, uint64(now.Add(l.ttl).Unix()))
		return b.Put([]byte(key), buf)
	})
}

// maybeSweep drops expired keys at most once per cleanup interval.
func (l *boltLedger) maybeSweep(now time.Time) error {
	if now.Sub(time.Unix(l.lastCleanup.Load(), 0)) < l.cleanupInterval {
		return nil
	}

	l.cleanupMu.Lock()
	defer l.cleanupMu.Unlock()
	if now.Sub(time.Unix(l.lastCleanup.Load(), 0)) < l.cleanupInterval {
		return nil
	}

	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(deliveredBucket))
		if b == nil {
			return fmt.Errorf("delivered bucket missing")
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if expiry, ok := decodeExpiry(v); !ok || !expiry.After(now) {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		l.lastCleanup.Store(now.Unix())
	}
	return err
}

// count returns the number of stored keys, expired or not.
func (l *boltLedger) count() int {
	var n int
	_ = l.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(deliveredBucket)).Stats().KeyN
		return nil
	})
	return n
}

func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) != expiryBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
