// Package app assembles the marketplace services for one storage backend.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ldotspots/zuco-motors/internal/cache"
	"github.com/ldotspots/zuco-motors/internal/carjam"
	"github.com/ldotspots/zuco-motors/internal/config"
	"github.com/ldotspots/zuco-motors/internal/database"
	"github.com/ldotspots/zuco-motors/internal/events"
	"github.com/ldotspots/zuco-motors/internal/handlers"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/repository"
	"github.com/ldotspots/zuco-motors/internal/repository/local"
	"github.com/ldotspots/zuco-motors/internal/security"
	"github.com/ldotspots/zuco-motors/internal/service"
	"github.com/ldotspots/zuco-motors/internal/session"
	"github.com/ldotspots/zuco-motors/internal/storage"
	"github.com/ldotspots/zuco-motors/internal/tasks"
)

type App struct {
	Config *config.AppConfig
	Log    zerolog.Logger

	Auth     *service.AuthService
	Catalog  *service.CatalogService
	Bookings *service.BookingService
	Ledger   *service.LedgerService

	Queue     events.Queue
	Changes   events.Subscriber
	Processor *tasks.Processor

	// Redis is nil on the local backend.
	Redis *redis.Client

	checks  map[string]handlers.Check
	closers []func()
}

// stores is what differs between the backends.
type stores struct {
	users    service.UserStore
	vehicles service.VehicleStore
	ledgers  service.Ledgers
	sessions session.Store
	locker   cache.Locker
	pub      events.Publisher
	sub      events.Subscriber
	queue    events.Queue
}

// Build connects the configured backend and wires the services on top.
func Build(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: logger, checks: map[string]handlers.Check{}}

	var (
		st     stores
		inline *events.InlineQueue
		err    error
	)
	switch cfg.Store.Backend {
	case config.BackendLocal:
		st, inline, err = a.local()
	default:
		st, err = a.hosted(ctx)
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	images, err := a.images(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Auth = service.NewAuthService(st.users, st.sessions, cfg, logger)
	a.Catalog = service.NewCatalogService(st.vehicles, st.users, images, st.pub, cfg.Pricing.CompanyMarginRate, logger)
	a.Bookings = service.NewBookingService(st.ledgers.TestDrives, st.ledgers.Viewings, st.vehicles, st.locker, cfg.Booking.LockTTL, st.pub, logger)
	a.Ledger = service.NewLedgerService(st.ledgers, st.users, st.vehicles, a.Catalog, st.queue, st.pub, cfg.Pricing, logger)
	a.Processor = tasks.NewProcessor(a.Bookings, a.Ledger, logger)
	if inline != nil {
		inline.SetRunner(a.Processor)
	}

	a.Queue = st.queue
	a.Changes = st.sub
	return a, nil
}

func (a *App) local() (stores, *events.InlineQueue, error) {
	store, err := local.Open(a.Config.Store.LocalPath, local.DemoSeed(security.HashPassword))
	if err != nil {
		return stores{}, nil, fmt.Errorf("open local store: %w", err)
	}
	a.Log.Info().Str("path", a.Config.Store.LocalPath).Msg("using local store")

	hub := events.NewHub()
	inline := events.NewInlineQueue(nil)
	return stores{
		users:    local.NewUserRepository(store),
		vehicles: local.NewVehicleRepository(store),
		ledgers: service.Ledgers{
			Inquiries:         local.NewCollection[models.Inquiry](store, repository.TableInquiries),
			Transactions:      local.NewCollection[models.Transaction](store, repository.TableTransactions),
			Allocations:       local.NewCollection[models.Allocation](store, repository.TableAllocations),
			TestDrives:        local.NewCollection[models.TestDrive](store, repository.TableTestDrives),
			Viewings:          local.NewCollection[models.ViewingBooking](store, repository.TableViewingBookings),
			AgentSales:        local.NewCollection[models.AgentSale](store, repository.TableAgentSales),
			Quotes:            local.NewCollection[models.QuoteRequest](store, repository.TableQuoteRequests),
			AgentApplications: local.NewCollection[models.AgentApplication](store, repository.TableAgentApplications),
			Financing:         local.NewCollection[models.FinancingApplication](store, repository.TableFinancingApplications),
		},
		sessions: session.NewMemoryStore(),
		locker:   cache.NewMemoryLocker(),
		pub:      hub,
		sub:      hub,
		queue:    inline,
	}, inline, nil
}

func (a *App) hosted(ctx context.Context) (stores, error) {
	cfg := a.Config

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return stores{}, fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	a.checks["postgres"] = pool.Ping

	if cfg.Postgres.Migrations != "" {
		n, err := database.Migrate(ctx, pool, cfg.Postgres.Migrations, a.Log)
		if err != nil {
			return stores{}, fmt.Errorf("migrate: %w", err)
		}
		a.Log.Info().Int("applied", n).Msg("migrations done")
	}

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return stores{}, fmt.Errorf("connect redis: %w", err)
	}
	a.Redis = client
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			a.Log.Error().Err(err).Msg("redis close error")
		}
	})
	a.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

	bus := events.NewRedisBus(client, cfg.Worker.Stream, a.Log)
	return stores{
		users:    repository.NewUserRepository(pool),
		vehicles: repository.NewVehicleRepository(pool),
		ledgers:  postgresLedgers(pool),
		sessions: session.NewRedisStore(client, cfg.Security.SessionGrace, cfg.Security.RememberTTL),
		locker:   cache.NewRedisLocker(client),
		pub:      bus,
		sub:      bus,
		queue:    bus,
	}, nil
}

func postgresLedgers(pool *pgxpool.Pool) service.Ledgers {
	return service.Ledgers{
		Inquiries:         repository.NewLedger[models.Inquiry](pool, repository.TableInquiries),
		Transactions:      repository.NewLedger[models.Transaction](pool, repository.TableTransactions),
		Allocations:       repository.NewLedger[models.Allocation](pool, repository.TableAllocations),
		TestDrives:        repository.NewLedger[models.TestDrive](pool, repository.TableTestDrives),
		Viewings:          repository.NewLedger[models.ViewingBooking](pool, repository.TableViewingBookings),
		AgentSales:        repository.NewLedger[models.AgentSale](pool, repository.TableAgentSales),
		Quotes:            repository.NewLedger[models.QuoteRequest](pool, repository.TableQuoteRequests),
		AgentApplications: repository.NewLedger[models.AgentApplication](pool, repository.TableAgentApplications),
		Financing:         repository.NewLedger[models.FinancingApplication](pool, repository.TableFinancingApplications),
	}
}

// images returns nil when no object store is configured so uploads answer
// 503 instead of failing on a nil client.
func (a *App) images(ctx context.Context) (service.ImageStore, error) {
	if a.Config.Storage.Endpoint == "" {
		a.Log.Warn().Msg("object storage not configured, image uploads disabled")
		return nil, nil
	}
	store, err := storage.NewObjectStore(a.Config.Storage)
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		a.Log.Warn().Err(err).Msg("ensure bucket failed")
	}
	a.checks["objectstore"] = store.Ping
	return store, nil
}

// Handlers builds the HTTP surface over the services.
func (a *App) Handlers() handlers.HandlerSet {
	return handlers.NewHandlerSet(a.Log, a.Config, handlers.Services{
		Auth:     a.Auth,
		Catalog:  a.Catalog,
		Bookings: a.Bookings,
		Ledger:   a.Ledger,
		Changes:  a.Changes,
		CarJam:   carjam.NewClient(a.Config.CarJam),
		Checks:   a.checks,
	})
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
