package queue

import (
	"context"
	"testing"
	"time"

	"github.com/casegraph/backend/pkg/common"
)

func TestMemoryQueue_DequeueHoldsUntilAck(t *testing.T) {
	ctx := context.Background()
	q := NewMemory()

	env := Envelope{TaskID: "t-1", Owner: "owner-1", Type: common.TaskExtract, DocumentID: "doc-1"}
	if err := q.Enqueue(ctx, env); err != nil {
		t.Fatal(err)
	}

	d, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.Envelope.TaskID != "t-1" {
		t.Fatalf("unexpected delivery %+v", d)
	}

	// Still in flight, nothing else to dequeue.
	if d2, _ := q.Dequeue(ctx); d2 != nil {
		t.Fatalf("expected empty queue, got %+v", d2)
	}

	if err := q.Ack(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	claimed, err := q.Claim(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(claimed) != 0 {
		t.Fatalf("acked delivery should not be claimable, got %d", len(claimed))
	}
}

func TestMemoryQueue_ClaimReturnsStaleDeliveries(t *testing.T) {
	ctx := context.Background()
	q := NewMemory()

	if err := q.Enqueue(ctx, Envelope{TaskID: "t-1", Owner: "owner-1", Type: common.TaskResolve, DocumentID: "doc-1"}); err != nil {
		t.Fatal(err)
	}
	d, err := q.Dequeue(ctx)
	if err != nil || d == nil {
		t.Fatalf("dequeue: %v %v", d, err)
	}

	// Freshly taken deliveries are not idle yet.
	claimed, err := q.Claim(ctx, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(claimed) != 0 {
		t.Fatalf("expected no stale deliveries, got %d", len(claimed))
	}

	q.ExpireInflight()
	claimed, err = q.Claim(ctx, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(claimed) != 1 || claimed[0].Envelope.TaskID != "t-1" {
		t.Fatalf("unexpected claim result %+v", claimed)
	}

	// Claiming refreshes the idle clock.
	claimed, err = q.Claim(ctx, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(claimed) != 0 {
		t.Fatalf("claim should reset idle time, got %d", len(claimed))
	}
}

func TestMemoryQueue_FIFOOrder(t *testing.T) {
	ctx := context.Background()
	q := NewMemory()

	for _, id := range []string{"t-1", "t-2", "t-3"} {
		if err := q.Enqueue(ctx, Envelope{TaskID: id, Owner: "owner-1", Type: common.TaskExtract}); err != nil {
			t.Fatal(err)
		}
	}

	for _, want := range []string{"t-1", "t-2", "t-3"} {
		d, err := q.Dequeue(ctx)
		if err != nil || d == nil {
			t.Fatalf("dequeue: %v %v", d, err)
		}
		if d.Envelope.TaskID != want {
			t.Fatalf("got %s, want %s", d.Envelope.TaskID, want)
		}
	}
}
