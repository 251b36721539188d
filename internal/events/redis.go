package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBus publishes changes on one pub/sub channel per table and appends
// tasks to a stream consumed by the worker.
type RedisBus struct {
	client *redis.Client
	stream string
	log    zerolog.Logger
}

func NewRedisBus(client *redis.Client, stream string, log zerolog.Logger) *RedisBus {
	return &RedisBus{client: client, stream: stream, log: log}
}

// Publish is best effort. A failed publish is logged and the write that
// caused it still stands.
func (b *RedisBus) Publish(ctx context.Context, c Change) {
	raw, err := json.Marshal(c)
	if err != nil {
		b.log.Error().Err(err).Str("table", c.Table).Msg("encode change failed")
		return
	}
	if err := b.client.Publish(ctx, channel(c.Table), raw).Err(); err != nil {
		b.log.Warn().Err(err).Str("table", c.Table).Str("id", c.ID).Msg("publish change failed")
	}
}

func (b *RedisBus) Subscribe(ctx context.Context, table string) (<-chan Change, func(), error) {
	var sub *redis.PubSub
	if table == "" {
		sub = b.client.PSubscribe(ctx, channel(""))
	} else {
		sub = b.client.Subscribe(ctx, channel(table))
	}
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", table, err)
	}

	out := make(chan Change, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("drop malformed change")
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, func() { _ = sub.Close() }, nil
}

func (b *RedisBus) Enqueue(ctx context.Context, t Task) error {
	values := map[string]any{"type": t.Type}
	for k, v := range t.Data {
		if k == "type" {
			continue
		}
		values[k] = v
	}
	_, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: values,
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", t.Type, err)
	}
	return nil
}

// DecodeTask rebuilds a Task from a stream entry written by Enqueue.
func DecodeTask(values map[string]any) (Task, error) {
	t := Task{Data: map[string]string{}}
	for k, v := range values {
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		if k == "type" {
			t.Type = s
			continue
		}
		t.Data[k] = s
	}
	if strings.TrimSpace(t.Type) == "" {
		return Task{}, fmt.Errorf("task without type")
	}
	return t, nil
}
