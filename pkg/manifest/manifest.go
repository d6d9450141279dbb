// Package manifest applies a declarative list of queues to a project.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samvad-hq/ironmq-go/pkg/mq"
	"gopkg.in/yaml.v3"
)

// Manifest is the file format:
//
//	queues:
//	  - name: jobs
//	    type: pull
//	    message_timeout: 120
//	    alerts:
//	      - {type: fixed, direction: asc, trigger: 1000, queue: jobs-alerts}
type Manifest struct {
	Queues []mq.QueueInfo `json:"queues" yaml:"queues"`
}

// Action is what Apply did to a queue.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionFailed  Action = "failed"
)

// Outcome reports the result for one manifest queue.
type Outcome struct {
	Name   string `json:"name"`
	Action Action `json:"action"`
	Alerts int    `json:"alerts,omitempty"`
	Error  string `json:"error,omitempty"`
}

// QueueAPI is the part of *mq.Client that Apply needs.
type QueueAPI interface {
	GetQueue(ctx context.Context, name string) (*mq.QueueInfo, error)
	CreateQueue(ctx context.Context, name string, opts mq.QueueInfo) (*mq.QueueInfo, error)
	UpdateQueue(ctx context.Context, name string, opts mq.QueueInfo) (*mq.QueueInfo, error)
	UpdateAlerts(ctx context.Context, name string, alerts []mq.Alert) (*mq.QueueInfo, error)
}

// Load reads a YAML or JSON manifest chosen by file extension.
func Load(path string) (*Manifest, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("manifest path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(raw, filepath.Ext(path))
}

// Parse decodes and validates a manifest. An empty ext tries YAML, which also accepts JSON.
func Parse(data []byte, ext string) (*Manifest, error) {
	var m Manifest
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case ".json":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode json manifest: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode yaml manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("manifest format %q not recognized (expected YAML or JSON)", ext)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks names and the pull-only alert rule.
func (m *Manifest) Validate() error {
	if len(m.Queues) == 0 {
		return errors.New("manifest contains no queues")
	}
	seen := make(map[string]struct{}, len(m.Queues))
	for i := range m.Queues {
		q := &m.Queues[i]
		q.Name = strings.TrimSpace(q.Name)
		q.Type = strings.ToLower(strings.TrimSpace(q.Type))
		if q.Name == "" {
			return fmt.Errorf("queues[%d]: name is required", i)
		}
		if _, dup := seen[q.Name]; dup {
			return fmt.Errorf("duplicate queue %q", q.Name)
		}
		seen[q.Name] = struct{}{}

		switch q.Type {
		case "", mq.QueueTypePull, mq.QueueTypeUnicast, mq.QueueTypeMulticast:
		default:
			return fmt.Errorf("queue %q: unknown type %q", q.Name, q.Type)
		}
		if len(q.Alerts) > 0 && !isPull(q.Type) {
			return fmt.Errorf("queue %q: alerts are only supported on pull queues", q.Name)
		}
		if !isPull(q.Type) && (q.Push == nil || len(q.Push.Subscribers) == 0) {
			return fmt.Errorf("queue %q: push queues need at least one subscriber", q.Name)
		}
	}
	return nil
}

func isPull(typ string) bool { return typ == "" || typ == mq.QueueTypePull }

// Apply creates missing queues and updates existing ones, then sets alerts.
// It keeps going after a failure and returns every error joined.
func Apply(ctx context.Context, api QueueAPI, m *Manifest) ([]Outcome, error) {
	if api == nil {
		return nil, errors.New("queue api is nil")
	}
	if m == nil {
		return nil, errors.New("manifest is nil")
	}

	outcomes := make([]Outcome, 0, len(m.Queues))
	var errs []error
	for _, q := range m.Queues {
		out, err := applyQueue(ctx, api, q)
		if err != nil {
			out.Action = ActionFailed
			out.Error = err.Error()
			errs = append(errs, fmt.Errorf("queue %q: %w", q.Name, err))
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, errors.Join(errs...)
}

func applyQueue(ctx context.Context, api QueueAPI, q mq.QueueInfo) (Outcome, error) {
	out := Outcome{Name: q.Name}

	alerts := q.Alerts
	opts := q
	opts.Name = ""
	opts.Alerts = nil
	opts.Size, opts.TotalMessages = 0, 0

	_, err := api.GetQueue(ctx, q.Name)
	switch {
	case mq.IsNotFound(err):
		if _, err := api.CreateQueue(ctx, q.Name, opts); err != nil {
			return out, fmt.Errorf("create: %w", err)
		}
		out.Action = ActionCreated
	case err != nil:
		return out, fmt.Errorf("get: %w", err)
	default:
		// The type of an existing queue cannot change.
		opts.Type = ""
		if _, err := api.UpdateQueue(ctx, q.Name, opts); err != nil {
			return out, fmt.Errorf("update: %w", err)
		}
		out.Action = ActionUpdated
	}

	if len(alerts) > 0 {
		if _, err := api.UpdateAlerts(ctx, q.Name, alerts); err != nil {
			return out, fmt.Errorf("alerts: %w", err)
		}
		out.Alerts = len(alerts)
	}
	return out, nil
}
