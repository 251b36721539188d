package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ldotspots/zuco-motors/internal/events"
	"github.com/ldotspots/zuco-motors/internal/ids"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/repository"
)

// UserStore is satisfied by both the Postgres and local user repositories.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	List(ctx context.Context, role models.UserRole) ([]models.User, error)
	IDs(ctx context.Context, prefix string) ([]string, error)
}

type VehicleStore interface {
	Create(ctx context.Context, v models.Vehicle) error
	GetByID(ctx context.Context, id string) (models.Vehicle, error)
	Update(ctx context.Context, v models.Vehicle) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Vehicle, error)
	IncrementViews(ctx context.Context, id string) (int, error)
	IDs(ctx context.Context, prefix string) ([]string, error)
}

type LedgerStore[T repository.Record] interface {
	Create(ctx context.Context, rec T) error
	Get(ctx context.Context, id string) (T, error)
	Update(ctx context.Context, rec T) error
	List(ctx context.Context, f repository.Filter) ([]T, error)
	IDs(ctx context.Context, prefix string) ([]string, error)
}

// Ledgers groups the record collections behind the marketplace.
type Ledgers struct {
	Inquiries         LedgerStore[models.Inquiry]
	Transactions      LedgerStore[models.Transaction]
	Allocations       LedgerStore[models.Allocation]
	TestDrives        LedgerStore[models.TestDrive]
	Viewings          LedgerStore[models.ViewingBooking]
	AgentSales        LedgerStore[models.AgentSale]
	Quotes            LedgerStore[models.QuoteRequest]
	AgentApplications LedgerStore[models.AgentApplication]
	Financing         LedgerStore[models.FinancingApplication]
}

type ImageStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

type idLister interface {
	IDs(ctx context.Context, prefix string) ([]string, error)
}

const createAttempts = 3

// createWithID allocates the next sequential id under prefix and hands it to
// create. Two writers can pick the same id; the loser sees ErrConflict and
// tries the following number.
func createWithID(ctx context.Context, store idLister, prefix string, create func(id string) error) (string, error) {
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		existing, err := store.IDs(ctx, prefix)
		if err != nil {
			return "", err
		}
		id := ids.Next(prefix, existing)
		err = create(id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

func publish(ctx context.Context, pub events.Publisher, table string, op events.Op, id string, rec any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, events.Change{Table: table, Op: op, ID: id, At: time.Now().UTC(), Record: rec})
}
