package queue

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue used by tests and single-binary
// setups. It mirrors the redelivery semantics of RedisQueue: dequeued
// messages stay in flight until acked, and Claim returns the ones held
// past minIdle.
type MemoryQueue struct {
	mu       sync.Mutex
	next     int
	pending  []Delivery
	inflight map[string]inflightEntry
	closed   bool
}

type inflightEntry struct {
	delivery Delivery
	takenAt  time.Time
}

func NewMemory() *MemoryQueue {
	return &MemoryQueue{inflight: make(map[string]inflightEntry)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, env Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	q.pending = append(q.pending, Delivery{ID: strconv.Itoa(q.next), Envelope: env})
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	d := q.pending[0]
	q.pending = q.pending[1:]
	q.inflight[d.ID] = inflightEntry{delivery: d, takenAt: time.Now()}
	return &d, nil
}

func (q *MemoryQueue) Claim(ctx context.Context, minIdle time.Duration) ([]Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	var claimed []Delivery
	for id, entry := range q.inflight {
		if now.Sub(entry.takenAt) >= minIdle {
			claimed = append(claimed, entry.delivery)
			q.inflight[id] = inflightEntry{delivery: entry.delivery, takenAt: now}
		}
	}
	return claimed, nil
}

func (q *MemoryQueue) Ack(ctx context.Context, deliveryID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, deliveryID)
	return nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// ExpireInflight backdates every in-flight delivery so the next Claim
// call picks it up. Test hook.
func (q *MemoryQueue) ExpireInflight() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, entry := range q.inflight {
		entry.takenAt = time.Time{}
		q.inflight[id] = entry
	}
}
