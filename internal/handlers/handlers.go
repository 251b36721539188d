package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ldotspots/zuco-motors/internal/availability"
	"github.com/ldotspots/zuco-motors/internal/carjam"
	"github.com/ldotspots/zuco-motors/internal/config"
	"github.com/ldotspots/zuco-motors/internal/events"
	"github.com/ldotspots/zuco-motors/internal/middleware"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/repository"
	"github.com/ldotspots/zuco-motors/internal/service"
)

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

type Services struct {
	Auth     *service.AuthService
	Catalog  *service.CatalogService
	Bookings *service.BookingService
	Ledger   *service.LedgerService
	Changes  events.Subscriber
	CarJam   *carjam.Client
	Checks   map[string]Check
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *service.AuthService
	catalog  *service.CatalogService
	bookings *service.BookingService
	ledger   *service.LedgerService
	changes  events.Subscriber
	carjam   *carjam.Client
	checks   map[string]Check
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, svc Services) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     svc.Auth,
		catalog:  svc.Catalog,
		bookings: svc.Bookings,
		ledger:   svc.Ledger,
		changes:  svc.Changes,
		carjam:   svc.CarJam,
		checks:   svc.Checks,
	}
}

// Mount places the plate lookup at the root and everything else under /api.
func (h HandlerSet) Mount(engine *gin.Engine) {
	carjam.Register(engine, "/carjam", h.carjam, h.log)
	h.Register(engine.Group("/api"))
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
	carjam.Register(router, "/carjam", h.carjam, h.log)

	v1 := router.Group("/v1")
	v1.Use(middleware.Client(h.cfg.Security.JWTSecret))
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/session", h.Session)
		auth.POST("/password/validate", h.ValidatePassword)

		signedIn := auth.Group("", middleware.RequireRoles(h.auth, h.log))
		signedIn.GET("/me", h.Me)
		signedIn.PUT("/password", h.UpdatePassword)
		signedIn.PATCH("/profile", h.UpdateProfile)
	}

	v1.GET("/vehicles", h.ListVehicles)
	v1.GET("/vehicles/compare", h.CompareVehicles)
	v1.GET("/vehicles/:id", h.GetVehicle)
	v1.POST("/vehicles/:id/views", h.TrackView)
	v1.GET("/vehicles/:id/slots/test-drive", h.TestDriveSlots)
	v1.GET("/vehicles/:id/slots/viewing", h.ViewingSlots)
	v1.GET("/financing/estimate", h.FinancingEstimate)
	v1.POST("/quotes", h.RequestQuote)
	v1.GET("/changes/ws", h.Changes)

	buyer := v1.Group("/buyer",
		middleware.Portal(service.PortalBuyer),
		middleware.RequireRoles(h.auth, h.log, models.UserRoleBuyer),
	)
	buyer.GET("/inquiries", h.BuyerInquiries)
	buyer.POST("/inquiries", h.CreateInquiry)
	buyer.POST("/inquiries/:id/messages", h.AddInquiryMessage)
	buyer.GET("/test-drives", h.BuyerTestDrives)
	buyer.POST("/test-drives", h.BookTestDrive)
	buyer.POST("/test-drives/:id/cancel", h.CancelTestDrive)
	buyer.GET("/viewings", h.BuyerViewings)
	buyer.POST("/viewings", h.BookViewing)
	buyer.POST("/viewings/:id/cancel", h.CancelViewing)
	buyer.GET("/favorites", h.Favorites)
	buyer.POST("/favorites/:vehicleId", h.ToggleFavorite)
	buyer.GET("/financing", h.BuyerFinancing)
	buyer.POST("/financing", h.ApplyForFinancing)
	buyer.POST("/agent-application", h.ApplyAsAgent)

	dealer := v1.Group("/dealer",
		middleware.Portal(service.PortalDealer),
		middleware.RequireRoles(h.auth, h.log, models.UserRoleDealer),
	)
	dealer.POST("/vehicles", h.CreateVehicle)
	dealer.PUT("/vehicles/:id", h.UpdateVehicle)
	dealer.DELETE("/vehicles/:id", h.DeleteVehicle)
	dealer.PUT("/vehicles/:id/pricing", h.UpdatePricing)
	dealer.PUT("/vehicles/:id/status", h.SetVehicleStatus)
	dealer.PUT("/vehicles/:id/agent", h.AssignAgent)
	dealer.POST("/vehicles/:id/images", h.UploadVehicleImage)
	dealer.GET("/users", h.ListUsers)
	dealer.GET("/allocations", h.ListAllocations)
	dealer.POST("/allocations", h.Allocate)
	dealer.POST("/allocations/:id/release", h.ReleaseAllocation)
	dealer.GET("/transactions", h.ListTransactions)
	dealer.POST("/transactions", h.RecordTransaction)
	dealer.GET("/agent-sales", h.ListAgentSales)
	dealer.POST("/agent-sales/:id/review", h.ReviewAgentSale)
	dealer.GET("/quotes", h.ListQuotes)
	dealer.PUT("/quotes/:id", h.RespondQuote)
	dealer.GET("/agent-applications", h.ListAgentApplications)
	dealer.POST("/agent-applications/:id/review", h.ReviewAgentApplication)
	dealer.GET("/financing", h.ListFinancing)
	dealer.PUT("/financing/:id", h.SetFinancingStatus)
	dealer.GET("/inquiries", h.DealerInquiries)
	dealer.PUT("/inquiries/:id/status", h.SetInquiryStatus)
	dealer.POST("/inquiries/:id/messages", h.AddInquiryMessage)
	dealer.GET("/test-drives", h.DealerTestDrives)
	dealer.PUT("/test-drives/:id/status", h.SetTestDriveStatus)
	dealer.GET("/viewings", h.DealerViewings)
	dealer.PUT("/viewings/:id/status", h.SetViewingStatus)

	sales := v1.Group("/sales",
		middleware.Portal(service.PortalSales),
		middleware.RequireRoles(h.auth, h.log, models.UserRoleSalesAgent),
	)
	sales.GET("/vehicles", h.AgentVehicles)
	sales.GET("/vehicles/:id", h.AgentVehicle)
	sales.GET("/inquiries", h.AgentInquiries)
	sales.PUT("/inquiries/:id/status", h.SetInquiryStatus)
	sales.POST("/inquiries/:id/messages", h.AddInquiryMessage)
	sales.GET("/test-drives", h.AgentTestDrives)
	sales.PUT("/test-drives/:id/status", h.SetTestDriveStatus)
	sales.GET("/viewings", h.AgentViewings)
	sales.PUT("/viewings/:id/status", h.SetViewingStatus)
	sales.GET("/sales", h.MyAgentSales)
	sales.POST("/sales", h.RecordAgentSale)
}

// sessionOf returns the session placed by RequireRoles.
func sessionOf(c *gin.Context) models.Session {
	s, _ := middleware.CurrentSession(c)
	return s
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// fail maps a service error onto a response. Unknown errors are logged and
// hidden behind a 500.
func (h HandlerSet) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredential), errors.Is(err, service.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrNotAllocated):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrDuplicateEmail),
		errors.Is(err, service.ErrSlotUnavailable),
		errors.Is(err, service.ErrAlreadyAllocated),
		errors.Is(err, service.ErrVehicleSold),
		errors.Is(err, service.ErrAlreadyApplied),
		errors.Is(err, repository.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrTooManyCompared),
		errors.Is(err, availability.ErrInvalidDate),
		errors.Is(err, availability.ErrInvalidSlot):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNoImageStore):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", middleware.RequestIDOf(c)).
			Msg("request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
