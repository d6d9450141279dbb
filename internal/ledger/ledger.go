// Package ledger remembers which queue messages the forwarder already
// delivered, so a message that comes back after a failed delete is not
// published to the sinks a second time.
package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Ledger records delivered message keys for a limited time.
type Ledger interface {
	Close() error
	Delivered(key string) (bool, error)
	MarkDelivered(key string) error
}

// Options controls retention.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

const (
	defaultTTL             = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// Key builds the ledger key of a message. Message ids are only unique per queue.
func Key(queue, messageID string) string {
	return queue + "/" + messageID
}

// Open creates the configured ledger backend: "none" (or empty) or "bbolt".
func Open(typ, path string, opts Options) (Ledger, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return Nop(), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt ledger requires a path")
		}
		l, err := openBolt(path, opts)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unsupported ledger type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

// Nop returns a ledger that remembers nothing.
func Nop() Ledger { return noopLedger{} }

type noopLedger struct{}

func (noopLedger) Close() error                   { return nil }
func (noopLedger) Delivered(string) (bool, error) { return false, nil }
func (noopLedger) MarkDelivered(string) error     { return nil }
