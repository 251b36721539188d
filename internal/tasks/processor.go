// Package tasks executes the background work queued by the marketplace.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ldotspots/zuco-motors/internal/events"
)

type BookingExpirer interface {
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

type SalesRollup interface {
	RollupSale(ctx context.Context, userID string, amount decimal.Decimal) error
}

type Processor struct {
	bookings BookingExpirer
	sales    SalesRollup
	logger   zerolog.Logger
	now      func() time.Time
}

func NewProcessor(bookings BookingExpirer, sales SalesRollup, logger zerolog.Logger) *Processor {
	return &Processor{
		bookings: bookings,
		sales:    sales,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle runs a task read from the stream.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	task, err := events.DecodeTask(msg.Values)
	if err != nil {
		return fmt.Errorf("decode task %s: %w", msg.ID, err)
	}
	return p.Run(ctx, task)
}

func (p *Processor) Run(ctx context.Context, t events.Task) error {
	switch t.Type {
	case events.TaskExpireBookings:
		return p.handleExpireBookings(ctx)
	case events.TaskSaleRecorded:
		return p.handleSaleRecorded(ctx, t)
	default:
		p.logger.Warn().Str("type", t.Type).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleExpireBookings(ctx context.Context) error {
	n, err := p.bookings.ExpireStale(ctx, p.now())
	if err != nil {
		return fmt.Errorf("expire bookings: %w", err)
	}
	p.logger.Info().Int("expired", n).Msg("booking expiry finished")
	return nil
}

func (p *Processor) handleSaleRecorded(ctx context.Context, t events.Task) error {
	userID := t.Data["userId"]
	if userID == "" {
		return fmt.Errorf("sale-recorded task without userId")
	}
	amount, err := decimal.NewFromString(t.Data["amount"])
	if err != nil {
		return fmt.Errorf("sale-recorded amount: %w", err)
	}
	return p.sales.RollupSale(ctx, userID, amount)
}
