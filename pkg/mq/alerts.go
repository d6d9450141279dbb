package mq

import (
	"context"
	"net/http"
)

// alertsRequest keeps the alerts key even when the list is empty, which is
// how alerts are cleared.
type alertsRequest struct {
	Queue struct {
		Alerts []Alert `json:"alerts"`
	} `json:"queue"`
}

// AddAlerts sets the alerts of a pull queue (PUT /queues/{name} with {queue:{alerts}}).
func (c *Client) AddAlerts(ctx context.Context, queue string, alerts []Alert) (*QueueInfo, error) {
	path, err := c.queuePath(queue)
	if err != nil {
		return nil, err
	}

	var req alertsRequest
	req.Queue.Alerts = alerts
	if req.Queue.Alerts == nil {
		req.Queue.Alerts = []Alert{}
	}

	var resp queueEnvelope
	if err := c.do(ctx, http.MethodPut, path, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Queue, nil
}

// UpdateAlerts replaces the alerts of a pull queue.
func (c *Client) UpdateAlerts(ctx context.Context, queue string, alerts []Alert) (*QueueInfo, error) {
	return c.AddAlerts(ctx, queue, alerts)
}

// DeleteAlerts removes every alert of a pull queue.
//
// Deprecated: use UpdateAlerts with the alerts to keep.
func (c *Client) DeleteAlerts(ctx context.Context, queue string) (*QueueInfo, error) {
	return c.AddAlerts(ctx, queue, nil)
}

// DeleteAlertByID removes one alert (DELETE /queues/{name}/alerts/{id}).
//
// Deprecated: use UpdateAlerts with the alerts to keep.
func (c *Client) DeleteAlertByID(ctx context.Context, queue, alertID string) (*Result, error) {
	path, err := c.queuePath(queue, "alerts", alertID)
	if err != nil {
		return nil, err
	}

	var resp Result
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
