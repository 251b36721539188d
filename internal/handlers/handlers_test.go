package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldotspots/zuco-motors/internal/cache"
	"github.com/ldotspots/zuco-motors/internal/carjam"
	"github.com/ldotspots/zuco-motors/internal/config"
	"github.com/ldotspots/zuco-motors/internal/events"
	"github.com/ldotspots/zuco-motors/internal/middleware"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/repository"
	"github.com/ldotspots/zuco-motors/internal/repository/local"
	"github.com/ldotspots/zuco-motors/internal/security"
	"github.com/ldotspots/zuco-motors/internal/server"
	"github.com/ldotspots/zuco-motors/internal/service"
	"github.com/ldotspots/zuco-motors/internal/session"
)

const testPassword = "Str0ng#Pass"

type harness struct {
	engine  http.Handler
	auth    *service.AuthService
	catalog *service.CatalogService
	ledger  *service.LedgerService
}

func fastHash(pw string) ([]byte, error) {
	return security.HashPasswordWithParams(pw, security.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8})
}

func newHarness(t *testing.T, configure ...func(*config.AppConfig)) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := local.Open("", local.Empty())
	require.NoError(t, err)

	cfg := &config.AppConfig{
		Environment: "test",
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
		Store:   config.StoreConfig{Backend: config.BackendLocal},
		Booking: config.BookingConfig{LockTTL: time.Second},
	}
	for _, fn := range configure {
		fn(cfg)
	}

	log := zerolog.Nop()
	users := local.NewUserRepository(store)
	vehicles := local.NewVehicleRepository(store)
	ledgers := service.Ledgers{
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
	hub := events.NewHub()
	queue := events.NewInlineQueue(nil)

	auth := service.NewAuthService(users, session.NewMemoryStore(), cfg, log).WithPasswordHasher(fastHash)
	catalog := service.NewCatalogService(vehicles, users, nil, hub, cfg.Pricing.CompanyMarginRate, log)
	bookings := service.NewBookingService(ledgers.TestDrives, ledgers.Viewings, vehicles, cache.NewMemoryLocker(), cfg.Booking.LockTTL, hub, log)
	ledger := service.NewLedgerService(ledgers, users, vehicles, catalog, queue, hub, cfg.Pricing, log)

	h := NewHandlerSet(log, cfg, Services{
		Auth:     auth,
		Catalog:  catalog,
		Bookings: bookings,
		Ledger:   ledger,
		Changes:  hub,
		CarJam:   carjam.NewClient(config.CarJamConfig{}),
		Checks: map[string]Check{
			"store": func(context.Context) error { return nil },
		},
	})

	return &harness{
		engine:  server.NewHTTPServer(cfg, log, h).Handler(),
		auth:    auth,
		catalog: catalog,
		ledger:  ledger,
	}
}

func (hs *harness) do(t *testing.T, method, path, client string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if client != "" {
		req.Header.Set(middleware.ClientHeader, client)
	}
	w := httptest.NewRecorder()
	hs.engine.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (hs *harness) register(t *testing.T, email string, role models.UserRole) models.User {
	t.Helper()
	u, err := hs.auth.Register(context.Background(), service.RegisterInput{
		Email:     email,
		Password:  testPassword,
		Role:      role,
		FirstName: "Test",
	})
	require.NoError(t, err)
	return u
}

// login signs in with a fresh client and returns the issued client id.
func (hs *harness) login(t *testing.T, email string) string {
	t.Helper()
	w, body := hs.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": testPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	client := w.Header().Get(middleware.ClientHeader)
	require.NotEmpty(t, client)
	assert.Equal(t, client, body["clientId"])
	return client
}

func (hs *harness) createVehicle() (models.Vehicle, error) {
	return hs.catalog.Create(context.Background(), models.Vehicle{
		Make:  "Toyota",
		Model: "Corolla",
		Year:  2023,
		Pricing: models.Pricing{
			InvoiceCost:   decimal.NewFromInt(30000),
			CurrentMarkup: decimal.RequireFromString("0.08"),
		},
	})
}

func (hs *harness) addVehicle(t *testing.T) models.Vehicle {
	t.Helper()
	v, err := hs.createVehicle()
	require.NoError(t, err)
	return v
}

func TestLoginAndPortalGates(t *testing.T) {
	hs := newHarness(t)
	hs.register(t, "buyer@example.co.nz", models.UserRoleBuyer)

	w, body := hs.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "buyer@example.co.nz", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid email or password", body["error"])

	client := hs.login(t, "buyer@example.co.nz")

	w, _ = hs.do(t, http.MethodGet, "/api/v1/buyer/favorites", client, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = hs.do(t, http.MethodGet, "/api/v1/dealer/users", client, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/dealer-portal/login.html", body["redirect"])

	w, body = hs.do(t, http.MethodGet, "/api/v1/auth/me", client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := body["user"].(map[string]any)
	assert.Equal(t, "buyer@example.co.nz", user["email"])
	assert.NotContains(t, user, "passwordHash")

	w, _ = hs.do(t, http.MethodPost, "/api/v1/auth/logout", client, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, body = hs.do(t, http.MethodGet, "/api/v1/auth/session", client, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["authenticated"])
}

func TestRegisterRejectsDuplicateAndWeakPassword(t *testing.T) {
	hs := newHarness(t)

	w, _ := hs.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "new@example.co.nz", "password": testPassword})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, _ = hs.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "NEW@example.co.nz", "password": testPassword})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = hs.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "other@example.co.nz", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStaffRegistrationNeedsDealer(t *testing.T) {
	hs := newHarness(t)
	agent := gin.H{"email": "agent@zucomotors.co.nz", "password": testPassword, "role": "sales_agent"}

	w, _ := hs.do(t, http.MethodPost, "/api/v1/auth/register", "", agent)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = hs.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "boss@zucomotors.co.nz", "password": testPassword, "role": "dealer"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	hs.register(t, "buyer@example.co.nz", models.UserRoleBuyer)
	buyer := hs.login(t, "buyer@example.co.nz")
	w, _ = hs.do(t, http.MethodPost, "/api/v1/auth/register", buyer, agent)
	assert.Equal(t, http.StatusForbidden, w.Code)

	hs.register(t, "dealer@zucomotors.co.nz", models.UserRoleDealer)
	dealer := hs.login(t, "dealer@zucomotors.co.nz")
	w, body := hs.do(t, http.MethodPost, "/api/v1/auth/register", dealer, agent)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "sales_agent", body["user"].(map[string]any)["role"])
}

func TestOpenStaffSignup(t *testing.T) {
	hs := newHarness(t, func(cfg *config.AppConfig) { cfg.Security.OpenStaffSignup = true })

	w, _ := hs.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "boss@zucomotors.co.nz", "password": testPassword, "role": "dealer"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestPublicVehicleHidesCost(t *testing.T) {
	hs := newHarness(t)
	v := hs.addVehicle(t)

	w, body := hs.do(t, http.MethodGet, "/api/v1/vehicles/"+v.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "invoiceCost")
	pricing := body["vehicle"].(map[string]any)["pricing"].(map[string]any)
	assert.Equal(t, "32400", pricing["salePrice"])

	w, body = hs.do(t, http.MethodGet, "/api/v1/vehicles?sort=price&order=asc&make=toyota", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["count"])

	w, _ = hs.do(t, http.MethodGet, "/api/v1/vehicles?sort=colour", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = hs.do(t, http.MethodGet, "/api/v1/vehicles/VEH-999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingConflictAnswers409(t *testing.T) {
	hs := newHarness(t)
	v := hs.addVehicle(t)
	hs.register(t, "a@example.co.nz", models.UserRoleBuyer)
	hs.register(t, "b@example.co.nz", models.UserRoleBuyer)
	first := hs.login(t, "a@example.co.nz")
	second := hs.login(t, "b@example.co.nz")

	date := time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
	req := gin.H{"vehicleId": v.ID, "date": date, "time": "10:00"}

	w, _ := hs.do(t, http.MethodPost, "/api/v1/buyer/test-drives", first, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = hs.do(t, http.MethodPost, "/api/v1/buyer/test-drives", second, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body := hs.do(t, http.MethodGet, "/api/v1/vehicles/"+v.ID+"/slots/viewing?date="+date, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, body["slots"], "10:00")

	w, body = hs.do(t, http.MethodGet, "/api/v1/buyer/test-drives", second, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["items"])
}

func TestDealerSaleAndAgentPricing(t *testing.T) {
	hs := newHarness(t)
	v := hs.addVehicle(t)
	hs.register(t, "dealer@zucomotors.co.nz", models.UserRoleDealer)
	agent := hs.register(t, "agent@zucomotors.co.nz", models.UserRoleSalesAgent)
	buyer := hs.register(t, "buyer@example.co.nz", models.UserRoleBuyer)
	dealer := hs.login(t, "dealer@zucomotors.co.nz")
	agentClient := hs.login(t, "agent@zucomotors.co.nz")

	w, _ := hs.do(t, http.MethodPost, "/api/v1/dealer/allocations", dealer, gin.H{"vehicleId": v.ID, "agentId": agent.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, body := hs.do(t, http.MethodGet, "/api/v1/sales/vehicles", agentClient, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "invoiceCost")
	items := body["vehicles"].([]any)
	require.Len(t, items, 1)
	pricing := items[0].(map[string]any)["pricing"].(map[string]any)
	assert.Equal(t, "32136", pricing["agentCostPrice"])
	assert.Equal(t, "264", pricing["profitRoom"])

	w, _ = hs.do(t, http.MethodGet, "/api/v1/dealer/users", agentClient, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body = hs.do(t, http.MethodPost, "/api/v1/dealer/transactions", dealer, gin.H{"vehicleId": v.ID, "buyerId": buyer.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, models.TransactionStatusCompleted, body["transaction"].(map[string]any)["status"])

	w, body = hs.do(t, http.MethodGet, "/api/v1/vehicles/"+v.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(models.VehicleStatusSold), body["vehicle"].(map[string]any)["status"])

	w, body = hs.do(t, http.MethodGet, "/api/v1/dealer/users?perPage=1&page=2", dealer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, body["total"])
	assert.Len(t, body["items"], 1)
}

func TestQuoteAcceptsGuests(t *testing.T) {
	hs := newHarness(t)
	v := hs.addVehicle(t)

	w, body := hs.do(t, http.MethodPost, "/api/v1/quotes", "", gin.H{"vehicleId": v.ID, "name": "Guest", "email": "guest@example.co.nz"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, string(models.QuoteStatusNew), body["quote"].(map[string]any)["status"])

	w, _ = hs.do(t, http.MethodPost, "/api/v1/quotes", "", gin.H{"vehicleId": v.ID, "name": "Guest", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFinancingEstimate(t *testing.T) {
	hs := newHarness(t)

	w, body := hs.do(t, http.MethodGet, "/api/v1/financing/estimate?amount=20000&rate=6&months=60", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "386.66", body["monthlyPayment"])

	w, _ = hs.do(t, http.MethodGet, "/api/v1/financing/estimate?amount=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCarJamKeepsItsOwnHeaders(t *testing.T) {
	hs := newHarness(t)

	for _, path := range []string{"/carjam", "/api/carjam"} {
		w, body := hs.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, "Missing plate parameter", body["error"])
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))

		w, body = hs.do(t, http.MethodGet, path+"?plate=abc123", "", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "CARJAM_API_KEY not configured", body["error"])
	}
}

func TestHealth(t *testing.T) {
	hs := newHarness(t)

	w, body := hs.do(t, http.MethodGet, "/api/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, config.BackendLocal, body["backend"])
}

func TestFailMapsServiceErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := HandlerSet{log: zerolog.Nop()}

	cases := []struct {
		err  error
		want int
	}{
		{repository.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", service.ErrSlotUnavailable), http.StatusConflict},
		{service.ErrAlreadyAllocated, http.StatusConflict},
		{fmt.Errorf("%w: year", service.ErrInvalidInput), http.StatusBadRequest},
		{service.ErrInvalidCredential, http.StatusUnauthorized},
		{service.ErrNotAllocated, http.StatusForbidden},
		{service.ErrNoImageStore, http.StatusServiceUnavailable},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		h.fail(c, tc.err)
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	h.fail(c, errors.New("pq: password authentication failed"))
	assert.NotContains(t, w.Body.String(), "password")
}

// readVehicleChange dials the vehicles feed and keeps creating vehicles until
// a frame arrives, since the subscription lands just after the upgrade.
func (hs *harness) readVehicleChange(t *testing.T, query string) string {
	t.Helper()
	srv := httptest.NewServer(hs.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/changes/ws?table=vehicles" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_, _ = hs.createVehicle()
			}
		}
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func TestChangeFeedStreamsVehicleWrites(t *testing.T) {
	hs := newHarness(t)

	msg := hs.readVehicleChange(t, "")
	var change events.Change
	require.NoError(t, json.Unmarshal([]byte(msg), &change))
	assert.Equal(t, repository.TableVehicles, change.Table)
	assert.Equal(t, events.OpInsert, change.Op)
}

func TestChangeFeedHidesCostFromPublic(t *testing.T) {
	hs := newHarness(t)

	msg := hs.readVehicleChange(t, "")
	assert.NotContains(t, msg, "invoiceCost")
	assert.NotContains(t, msg, "netCost")
	assert.Contains(t, msg, `"salePrice":"32400"`)

	hs.register(t, "agent@zucomotors.co.nz", models.UserRoleSalesAgent)
	agent := hs.login(t, "agent@zucomotors.co.nz")
	msg = hs.readVehicleChange(t, "&client="+agent)
	assert.NotContains(t, msg, "invoiceCost")

	hs.register(t, "dealer@zucomotors.co.nz", models.UserRoleDealer)
	dealer := hs.login(t, "dealer@zucomotors.co.nz")
	msg = hs.readVehicleChange(t, "&client="+dealer)
	assert.Contains(t, msg, `"invoiceCost":"30000"`)
}

func TestPublicRecordDecodesBusPayload(t *testing.T) {
	v := models.Vehicle{
		ID:   "VEH001",
		Make: "Toyota",
		Pricing: models.Pricing{
			InvoiceCost: decimal.NewFromInt(30000),
			SalePrice:   decimal.NewFromInt(32400),
		},
	}
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for _, rec := range []any{v, &v, decoded} {
		out, err := json.Marshal(publicRecord(rec))
		require.NoError(t, err)
		assert.NotContains(t, string(out), "invoiceCost")
		assert.Contains(t, string(out), `"salePrice":"32400"`)
	}
	assert.Nil(t, publicRecord(nil))
	assert.Nil(t, publicRecord("not a vehicle"))
}

func TestChangeFeedNeedsDealerForLedgers(t *testing.T) {
	hs := newHarness(t)

	w, _ := hs.do(t, http.MethodGet, "/api/v1/changes/ws?table=transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = hs.do(t, http.MethodGet, "/api/v1/changes/ws?table=users", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
