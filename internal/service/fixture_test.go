package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ldotspots/zuco-motors/internal/cache"
	"github.com/ldotspots/zuco-motors/internal/config"
	"github.com/ldotspots/zuco-motors/internal/events"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/repository"
	"github.com/ldotspots/zuco-motors/internal/repository/local"
	"github.com/ldotspots/zuco-motors/internal/security"
	"github.com/ldotspots/zuco-motors/internal/session"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// salesRunner runs sale-recorded tasks against the ledger the way the worker does.
type salesRunner struct {
	ledger *LedgerService
	tasks  []events.Task
}

func (r *salesRunner) Run(ctx context.Context, t events.Task) error {
	r.tasks = append(r.tasks, t)
	if t.Type != events.TaskSaleRecorded {
		return nil
	}
	amount, err := decimal.NewFromString(t.Data["amount"])
	if err != nil {
		return err
	}
	return r.ledger.RollupSale(ctx, t.Data["userId"], amount)
}

func fastHash(pw string) ([]byte, error) {
	return security.HashPasswordWithParams(pw, security.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8})
}

type fixture struct {
	ctx      context.Context
	clock    *testClock
	users    *local.UserRepository
	vehicles *local.VehicleRepository
	sessions *session.MemoryStore
	hub      *events.Hub
	runner   *salesRunner
	cfg      *config.AppConfig

	auth     *AuthService
	catalog  *CatalogService
	bookings *BookingService
	ledger   *LedgerService
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{
			JWTSecret:   "test-secret",
			SessionTTL:  8 * time.Hour,
			RememberTTL: 30 * 24 * time.Hour,
		},
		Pricing: config.PricingConfig{
			CompanyMarginRate:     0.89,
			TaxRate:               0.15,
			DocumentFee:           499,
			DefaultCommissionRate: 0.03,
		},
		Booking: config.BookingConfig{LockTTL: time.Second},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := local.Open("", local.Empty())
	require.NoError(t, err)

	f := &fixture{
		ctx:      context.Background(),
		clock:    &testClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		users:    local.NewUserRepository(store),
		vehicles: local.NewVehicleRepository(store),
		sessions: session.NewMemoryStore(),
		hub:      events.NewHub(),
		cfg:      testConfig(),
	}
	ledgers := Ledgers{
		Inquiries:         local.NewCollection[models.Inquiry](store, repository.TableInquiries),
		Transactions:      local.NewCollection[models.Transaction](store, repository.TableTransactions),
		Allocations:       local.NewCollection[models.Allocation](store, repository.TableAllocations),
		TestDrives:        local.NewCollection[models.TestDrive](store, repository.TableTestDrives),
		Viewings:          local.NewCollection[models.ViewingBooking](store, repository.TableViewingBookings),
		AgentSales:        local.NewCollection[models.AgentSale](store, repository.TableAgentSales),
		Quotes:            local.NewCollection[models.QuoteRequest](store, repository.TableQuoteRequests),
		AgentApplications: local.NewCollection[models.AgentApplication](store, repository.TableAgentApplications),
		Financing:         local.NewCollection[models.FinancingApplication](store, repository.TableFinancingApplications),
	}

	log := zerolog.Nop()
	queue := events.NewInlineQueue(nil)
	f.auth = NewAuthService(f.users, f.sessions, f.cfg, log).
		WithClock(f.clock.Now).
		WithPasswordHasher(fastHash)
	f.catalog = NewCatalogService(f.vehicles, f.users, nil, f.hub, f.cfg.Pricing.CompanyMarginRate, log).
		WithClock(f.clock.Now)
	f.bookings = NewBookingService(ledgers.TestDrives, ledgers.Viewings, f.vehicles, cache.NewMemoryLocker(), f.cfg.Booking.LockTTL, f.hub, log).
		WithClock(f.clock.Now)
	f.ledger = NewLedgerService(ledgers, f.users, f.vehicles, f.catalog, queue, f.hub, f.cfg.Pricing, log).
		WithClock(f.clock.Now)

	f.runner = &salesRunner{ledger: f.ledger}
	queue.SetRunner(f.runner)
	return f
}

func (f *fixture) register(t *testing.T, email string, role models.UserRole) models.User {
	t.Helper()
	u, err := f.auth.Register(f.ctx, RegisterInput{
		Email:     email,
		Password:  "Str0ng#Pass",
		Role:      role,
		FirstName: "Test",
		LastName:  string(role),
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) addVehicle(t *testing.T, mk, model string, year int, invoice, markup string) models.Vehicle {
	t.Helper()
	v, err := f.catalog.Create(f.ctx, models.Vehicle{
		Make:      mk,
		Model:     model,
		Year:      year,
		BodyStyle: "Sedan",
		Condition: "New",
		Specs:     models.Specs{FuelType: "Petrol"},
		Pricing: models.Pricing{
			InvoiceCost:   decimal.RequireFromString(invoice),
			CurrentMarkup: decimal.RequireFromString(markup),
		},
	})
	require.NoError(t, err)
	return v
}
