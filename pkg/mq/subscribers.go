package mq

import (
	"context"
	"net/http"
)

type subscribersRequest struct {
	Subscribers []Subscriber `json:"subscribers"`
}

type subscribersEnvelope struct {
	Subscribers []PushStatus `json:"subscribers"`
}

// AddSubscribers adds endpoints to a push queue (POST /queues/{name}/subscribers).
func (c *Client) AddSubscribers(ctx context.Context, queue string, subs []Subscriber) (*Result, error) {
	return c.writeSubscribers(ctx, http.MethodPost, queue, subs)
}

// AddSubscriber adds one endpoint to a push queue.
func (c *Client) AddSubscriber(ctx context.Context, queue string, sub Subscriber) (*Result, error) {
	return c.AddSubscribers(ctx, queue, []Subscriber{sub})
}

// ReplaceSubscribers replaces every subscriber of a push queue (PUT /queues/{name}/subscribers).
func (c *Client) ReplaceSubscribers(ctx context.Context, queue string, subs []Subscriber) (*Result, error) {
	return c.writeSubscribers(ctx, http.MethodPut, queue, subs)
}

// ReplaceSubscriber makes sub the only subscriber of a push queue.
func (c *Client) ReplaceSubscriber(ctx context.Context, queue string, sub Subscriber) (*Result, error) {
	return c.ReplaceSubscribers(ctx, queue, []Subscriber{sub})
}

// RemoveSubscribers detaches endpoints from a push queue (DELETE /queues/{name}/subscribers).
func (c *Client) RemoveSubscribers(ctx context.Context, queue string, subs []Subscriber) (*Result, error) {
	return c.writeSubscribers(ctx, http.MethodDelete, queue, subs)
}

// RemoveSubscriber detaches one endpoint from a push queue.
func (c *Client) RemoveSubscriber(ctx context.Context, queue string, sub Subscriber) (*Result, error) {
	return c.RemoveSubscribers(ctx, queue, []Subscriber{sub})
}

func (c *Client) writeSubscribers(ctx context.Context, method, queue string, subs []Subscriber) (*Result, error) {
	if len(subs) == 0 {
		return nil, &ValidationError{Field: "subscribers", Reason: "at least one subscriber is required"}
	}
	path, err := c.queuePath(queue, "subscribers")
	if err != nil {
		return nil, err
	}

	var resp Result
	if err := c.do(ctx, method, path, nil, subscribersRequest{Subscribers: subs}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPushStatuses returns the per-subscriber delivery state of a push message
// (GET /queues/{name}/messages/{id}/subscribers).
func (c *Client) GetPushStatuses(ctx context.Context, queue, id string) ([]PushStatus, error) {
	path, err := c.queuePath(queue, "messages", id, "subscribers")
	if err != nil {
		return nil, err
	}

	var resp subscribersEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Subscribers, nil
}

// DeletePushMessage acknowledges a push message for one subscriber
// (DELETE /queues/{name}/messages/{id} with reservation and subscriber name).
func (c *Client) DeletePushMessage(ctx context.Context, queue, id, reservationID, subscriberName string) (*Result, error) {
	if subscriberName == "" {
		return nil, &ValidationError{Field: "subscriber_name", Reason: "subscriber name is required"}
	}
	path, err := c.queuePath(queue, "messages", id)
	if err != nil {
		return nil, err
	}

	var resp Result
	req := reservationRequest{ReservationID: reservationID, SubscriberName: subscriberName}
	if err := c.do(ctx, http.MethodDelete, path, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
