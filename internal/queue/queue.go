// Package queue carries pipeline work between the API and the workers.
//
// Delivery is at-least-once: a message stays pending until acked, and
// messages held past the visibility timeout are reclaimed and handed to
// another consumer. Handlers must tolerate replays.
package queue

import (
	"context"
	"time"

	"github.com/casegraph/backend/pkg/common"
)

// Envelope is the wire payload for one unit of pipeline work. The task
// row in the store is the source of truth; the envelope only routes.
type Envelope struct {
	TaskID     string          `json:"task_id"`
	Owner      common.Owner    `json:"owner"`
	Type       common.TaskType `json:"type"`
	DocumentID string          `json:"document_id,omitempty"`
}

// Delivery is one received message. ID identifies the delivery for Ack,
// not the task.
type Delivery struct {
	ID       string
	Envelope Envelope
}

type Queue interface {
	// Enqueue appends an envelope to the work log.
	Enqueue(ctx context.Context, env Envelope) error

	// Dequeue blocks up to the implementation's poll interval and
	// returns the next undelivered message, or nil when none arrived.
	Dequeue(ctx context.Context) (*Delivery, error)

	// Claim takes over messages another consumer has held longer than
	// minIdle without acking.
	Claim(ctx context.Context, minIdle time.Duration) ([]Delivery, error)

	// Ack marks a delivery as processed so it is never redelivered.
	Ack(ctx context.Context, deliveryID string) error

	Close() error
}
