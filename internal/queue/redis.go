package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/casegraph/backend/internal/util"
)

const (
	defaultStream = "casegraph:tasks"
	defaultGroup  = "workers"
)

// RedisQueue implements Queue on a Redis Stream with a consumer group.
// The stream is the ordered log; the group tracks the consumer offset
// and the pending set of unacked deliveries.
type RedisQueue struct {
	rdb      *goredis.Client
	stream   string
	group    string
	consumer string
}

// NewRedis connects to REDIS_ADDR and ensures the stream and consumer
// group exist. consumer names this worker within the group.
func NewRedis(ctx context.Context, consumer string) (*RedisQueue, error) {
	addr := strings.TrimSpace(util.GetEnvString("REDIS_ADDR", "localhost:6379"))

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	q := &RedisQueue{
		rdb:      rdb,
		stream:   util.GetEnvString("TASK_STREAM", defaultStream),
		group:    util.GetEnvString("TASK_GROUP", defaultGroup),
		consumer: consumer,
	}

	err := rdb.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		_ = rdb.Close()
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return q, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return q.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{"payload": payload},
	}).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	streams, err := q.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    2 * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			return decodeMessage(msg)
		}
	}
	return nil, nil
}

func (q *RedisQueue) Claim(ctx context.Context, minIdle time.Duration) ([]Delivery, error) {
	msgs, _, err := q.rdb.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  minIdle,
		Start:    "0",
		Count:    16,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	deliveries := make([]Delivery, 0, len(msgs))
	for _, msg := range msgs {
		d, err := decodeMessage(msg)
		if err != nil {
			// Unparseable message: ack it away instead of reclaiming it
			// forever.
			_ = q.rdb.XAck(ctx, q.stream, q.group, msg.ID).Err()
			continue
		}
		deliveries = append(deliveries, *d)
	}
	return deliveries, nil
}

func (q *RedisQueue) Ack(ctx context.Context, deliveryID string) error {
	return q.rdb.XAck(ctx, q.stream, q.group, deliveryID).Err()
}

func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}

func decodeMessage(msg goredis.XMessage) (*Delivery, error) {
	raw, ok := msg.Values["payload"].(string)
	if !ok {
		return nil, fmt.Errorf("message %s has no payload", msg.ID)
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("decode message %s: %w", msg.ID, err)
	}
	return &Delivery{ID: msg.ID, Envelope: env}, nil
}
