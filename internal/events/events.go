// Package events carries change notifications to live subscribers and
// follow-up work to the task worker.
package events

import (
	"context"
	"time"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one write to a table.
type Change struct {
	Table  string    `json:"table"`
	Op     Op        `json:"op"`
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
	Record any       `json:"record,omitempty"`
}

// Task types understood by the worker.
const (
	TaskExpireBookings = "expire-bookings"
	TaskSaleRecorded   = "sale-recorded"
)

// Task is a unit of background work. Data values are flat strings so a task
// fits in one stream entry.
type Task struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, c Change)
}

type Subscriber interface {
	// Subscribe delivers changes for table until the returned cancel func is
	// called or ctx ends. An empty table subscribes to every table.
	Subscribe(ctx context.Context, table string) (<-chan Change, func(), error)
}

type Queue interface {
	Enqueue(ctx context.Context, t Task) error
}

// Runner executes a task in process.
type Runner interface {
	Run(ctx context.Context, t Task) error
}

func channel(table string) string {
	if table == "" {
		return "zuco:changes:*"
	}
	return "zuco:changes:" + table
}
