package events

import (
	"context"
	"sync"
)

const subscriberBuffer = 32

type subscriber struct {
	table string
	ch    chan Change
}

// Hub fans changes out to in-process subscribers. A subscriber that falls
// behind by more than its buffer misses changes rather than blocking writers.
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

func (h *Hub) Publish(_ context.Context, c Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if s.table != "" && s.table != c.Table {
			continue
		}
		select {
		case s.ch <- c:
		default:
		}
	}
}

func (h *Hub) Subscribe(ctx context.Context, table string) (<-chan Change, func(), error) {
	s := &subscriber{table: table, ch: make(chan Change, subscriberBuffer)}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, s)
			h.mu.Unlock()
			close(s.ch)
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return s.ch, cancel, nil
}

// InlineQueue runs tasks synchronously in the caller's goroutine. It stands
// in for the stream when there is no Redis.
type InlineQueue struct {
	runner Runner
}

func NewInlineQueue(r Runner) *InlineQueue {
	return &InlineQueue{runner: r}
}

// SetRunner wires the runner after construction, for services that both
// enqueue tasks and execute them.
func (q *InlineQueue) SetRunner(r Runner) {
	q.runner = r
}

func (q *InlineQueue) Enqueue(ctx context.Context, t Task) error {
	if q.runner == nil {
		return nil
	}
	return q.runner.Run(ctx, t)
}
