// Package mq is a client for the IronMQ v3 HTTP/JSON API.
//
// Create a client from explicit settings:
//
//	client, err := mq.NewFromSource(map[string]any{
//	    "token":      "TOKEN",
//	    "project_id": "PROJECT",
//	})
//
// or from the environment (IRON_MQ_TOKEN, IRON_TOKEN, ...) and iron.json files:
//
//	client, err := mq.NewFromEnv()
//
// Post, reserve and delete a message:
//
//	msg, _ := mq.NewMessage("hello", mq.WithDelay(0), mq.WithExpiresIn(3600))
//	posted, err := client.PostMessage(ctx, "jobs", msg)
//
//	reserved, err := client.ReserveMessage(ctx, "jobs", mq.DefaultMessageTimeout, 0)
//	if reserved != nil {
//	    _, err = client.DeleteMessage(ctx, "jobs", reserved.ID, reserved.ReservationID)
//	}
//
// Every call issues exactly one request. Non-2xx responses are returned as
// *HTTPError, undecodable bodies as *DecodeError and invalid input as
// *ValidationError. Nothing is retried.
package mq
