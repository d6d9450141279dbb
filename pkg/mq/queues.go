package mq

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultQueuesPerPage is the page size the server uses when per_page is not sent.
const DefaultQueuesPerPage = 30

type queuesEnvelope struct {
	Queues []QueueInfo `json:"queues"`
}

type queueEnvelope struct {
	Queue QueueInfo `json:"queue"`
}

type queueRequest struct {
	Queue QueueInfo `json:"queue"`
}

// ListQueues returns one page of queues (GET /queues). previous is the name
// of the last queue of the prior page; perPage <= 0 uses the server default.
func (c *Client) ListQueues(ctx context.Context, previous string, perPage int) ([]QueueInfo, error) {
	path, err := c.queuesPath()
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	if previous != "" {
		query.Set("previous", previous)
	}
	if perPage > 0 && perPage != DefaultQueuesPerPage {
		query.Set("per_page", strconv.Itoa(perPage))
	}

	var resp queuesEnvelope
	if err := c.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Queues, nil
}

// GetQueue returns a queue including its size (GET /queues/{name}).
func (c *Client) GetQueue(ctx context.Context, name string) (*QueueInfo, error) {
	path, err := c.queuePath(name)
	if err != nil {
		return nil, err
	}

	var resp queueEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Queue, nil
}

// CreateQueue creates a queue (PUT /queues/{name}).
func (c *Client) CreateQueue(ctx context.Context, name string, opts QueueInfo) (*QueueInfo, error) {
	return c.writeQueue(ctx, http.MethodPut, name, opts)
}

// UpdateQueue changes the given queue attributes (PATCH /queues/{name}).
func (c *Client) UpdateQueue(ctx context.Context, name string, opts QueueInfo) (*QueueInfo, error) {
	return c.writeQueue(ctx, http.MethodPatch, name, opts)
}

func (c *Client) writeQueue(ctx context.Context, method, name string, opts QueueInfo) (*QueueInfo, error) {
	path, err := c.queuePath(name)
	if err != nil {
		return nil, err
	}

	var resp queueEnvelope
	if err := c.do(ctx, method, path, nil, queueRequest{Queue: opts}, &resp); err != nil {
		return nil, err
	}
	return &resp.Queue, nil
}

// DeleteQueue deletes a queue and all its messages (DELETE /queues/{name}).
func (c *Client) DeleteQueue(ctx context.Context, name string) (*Result, error) {
	path, err := c.queuePath(name)
	if err != nil {
		return nil, err
	}

	var resp Result
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearQueue deletes every message but keeps the queue
// (DELETE /queues/{name}/messages with an empty object body). The body must
// stay: the service reads this DELETE as a batch delete of the listed ids and
// only clears the queue when it receives an empty object.
func (c *Client) ClearQueue(ctx context.Context, name string) (*Result, error) {
	path, err := c.queuePath(name, "messages")
	if err != nil {
		return nil, err
	}

	var resp Result
	if err := c.do(ctx, http.MethodDelete, path, nil, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
