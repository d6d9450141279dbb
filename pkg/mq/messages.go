package mq

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

type messagesRequest struct {
	Messages []*Message `json:"messages"`
}

type messagesEnvelope struct {
	Messages []QueueMessage `json:"messages"`
}

type messageEnvelope struct {
	Message QueueMessage `json:"message"`
}

type reserveRequest struct {
	N       *int `json:"n,omitempty"`
	Timeout *int `json:"timeout,omitempty"`
	Wait    *int `json:"wait,omitempty"`
}

type reservationRequest struct {
	ReservationID  string `json:"reservation_id,omitempty"`
	Timeout        int    `json:"timeout,omitempty"`
	Delay          int    `json:"delay,omitempty"`
	SubscriberName string `json:"subscriber_name,omitempty"`
}

type deleteMessagesRequest struct {
	IDs []MessageRef `json:"ids"`
}

// PostMessage pushes one message (POST /queues/{name}/messages).
func (c *Client) PostMessage(ctx context.Context, queue string, msg *Message) (*PostResult, error) {
	if msg == nil {
		return nil, &ValidationError{Field: "message", Reason: "message is nil"}
	}
	return c.PostMessages(ctx, queue, []*Message{msg})
}

// PostMessages pushes several messages in one request. The first returned id
// is repeated in PostResult.ID.
func (c *Client) PostMessages(ctx context.Context, queue string, msgs []*Message) (*PostResult, error) {
	if len(msgs) == 0 {
		return nil, &ValidationError{Field: "messages", Reason: "at least one message is required"}
	}
	for i, m := range msgs {
		if m == nil {
			return nil, &ValidationError{Field: "messages", Reason: fmt.Sprintf("message %d is nil", i)}
		}
	}

	path, err := c.queuePath(queue, "messages")
	if err != nil {
		return nil, err
	}

	var resp PostResult
	if err := c.do(ctx, http.MethodPost, path, nil, messagesRequest{Messages: msgs}, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) > 0 {
		resp.ID = resp.IDs[0]
	}
	return &resp, nil
}

// PostBodies builds one message per body, applying the same options to each,
// and posts them in one request.
func (c *Client) PostBodies(ctx context.Context, queue string, bodies []string, opts ...MessageOption) (*PostResult, error) {
	msgs := make([]*Message, 0, len(bodies))
	for _, body := range bodies {
		m, err := NewMessage(body, opts...)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return c.PostMessages(ctx, queue, msgs)
}

// ReserveMessages reserves up to n messages (POST /queues/{name}/reservations).
// timeout is the reservation length and wait the long-poll duration, both in
// seconds; parameters equal to the server defaults are not sent. It returns
// nil when no message is available.
func (c *Client) ReserveMessages(ctx context.Context, queue string, n, timeout, wait int) ([]QueueMessage, error) {
	path, err := c.queuePath(queue, "reservations")
	if err != nil {
		return nil, err
	}

	req := reserveRequest{}
	if n != 1 {
		req.N = &n
	}
	if timeout != DefaultMessageTimeout {
		req.Timeout = &timeout
	}
	if wait != 0 {
		req.Wait = &wait
	}

	var resp messagesEnvelope
	if err := c.do(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}
	return resp.Messages, nil
}

// ReserveMessage reserves a single message, or returns nil when the queue is empty.
func (c *Client) ReserveMessage(ctx context.Context, queue string, timeout, wait int) (*QueueMessage, error) {
	msgs, err := c.ReserveMessages(ctx, queue, 1, timeout, wait)
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return &msgs[0], nil
}

// GetMessages is the former name of ReserveMessages.
//
// Deprecated: use ReserveMessages.
func (c *Client) GetMessages(ctx context.Context, queue string, n, timeout, wait int) ([]QueueMessage, error) {
	return c.ReserveMessages(ctx, queue, n, timeout, wait)
}

// GetMessage is the former name of ReserveMessage.
//
// Deprecated: use ReserveMessage.
func (c *Client) GetMessage(ctx context.Context, queue string, timeout, wait int) (*QueueMessage, error) {
	return c.ReserveMessage(ctx, queue, timeout, wait)
}

// GetMessageByID fetches a message without reserving it (GET /queues/{name}/messages/{id}).
func (c *Client) GetMessageByID(ctx context.Context, queue, id string) (*QueueMessage, error) {
	path, err := c.queuePath(queue, "messages", id)
	if err != nil {
		return nil, err
	}

	var resp messageEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// PeekMessages returns up to n upcoming messages without reserving them
// (GET /queues/{name}/messages?n=). It returns nil when the queue is empty.
func (c *Client) PeekMessages(ctx context.Context, queue string, n int) ([]QueueMessage, error) {
	path, err := c.queuePath(queue, "messages")
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	if n != 1 {
		query.Set("n", strconv.Itoa(n))
	}

	var resp messagesEnvelope
	if err := c.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}
	return resp.Messages, nil
}

// PeekMessage returns the next message without reserving it, or nil.
func (c *Client) PeekMessage(ctx context.Context, queue string) (*QueueMessage, error) {
	msgs, err := c.PeekMessages(ctx, queue, 1)
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return &msgs[0], nil
}

// TouchMessage extends a reservation (POST /queues/{name}/messages/{id}/touch).
// A zero timeout leaves the length to the server. The returned reservation id
// replaces reservationID, which stops being valid.
func (c *Client) TouchMessage(ctx context.Context, queue, id, reservationID string, timeout int) (*Reservation, error) {
	if reservationID == "" {
		return nil, &ValidationError{Field: "reservation_id", Reason: "reservation id is required to touch a message"}
	}
	path, err := c.queuePath(queue, "messages", id, "touch")
	if err != nil {
		return nil, err
	}

	var resp Reservation
	req := reservationRequest{ReservationID: reservationID, Timeout: timeout}
	if err := c.do(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReleaseMessage puts a reserved message back on the queue
// (POST /queues/{name}/messages/{id}/release). delay, when non-zero, holds
// it back for that many seconds.
func (c *Client) ReleaseMessage(ctx context.Context, queue, id, reservationID string, delay int) (*Result, error) {
	if reservationID == "" {
		return nil, &ValidationError{Field: "reservation_id", Reason: "reservation id is required to release a message"}
	}
	path, err := c.queuePath(queue, "messages", id, "release")
	if err != nil {
		return nil, err
	}

	var resp Result
	req := reservationRequest{ReservationID: reservationID, Delay: delay}
	if err := c.do(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteMessage deletes a message (DELETE /queues/{name}/messages/{id}).
// Reserved messages need their reservation id; pass "" for unreserved ones.
func (c *Client) DeleteMessage(ctx context.Context, queue, id, reservationID string) (*Result, error) {
	path, err := c.queuePath(queue, "messages", id)
	if err != nil {
		return nil, err
	}

	var body any
	if reservationID != "" {
		body = reservationRequest{ReservationID: reservationID}
	}

	var resp Result
	if err := c.do(ctx, http.MethodDelete, path, nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteMessages deletes several messages in one request
// (DELETE /queues/{name}/messages). The server's envelope is returned as is,
// including partial outcomes.
func (c *Client) DeleteMessages(ctx context.Context, queue string, refs []MessageRef) (*DeleteResult, error) {
	if len(refs) == 0 {
		return nil, &ValidationError{Field: "ids", Reason: "at least one message id is required"}
	}
	for i, ref := range refs {
		if ref.ID == "" {
			return nil, &ValidationError{Field: "ids", Reason: fmt.Sprintf("message %d has no id", i)}
		}
	}

	path, err := c.queuePath(queue, "messages")
	if err != nil {
		return nil, err
	}

	var resp DeleteResult
	if err := c.do(ctx, http.MethodDelete, path, nil, deleteMessagesRequest{IDs: refs}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteReservedMessages deletes messages obtained from ReserveMessages.
func (c *Client) DeleteReservedMessages(ctx context.Context, queue string, msgs []QueueMessage) (*DeleteResult, error) {
	refs := make([]MessageRef, 0, len(msgs))
	for _, m := range msgs {
		refs = append(refs, m.Ref())
	}
	return c.DeleteMessages(ctx, queue, refs)
}
