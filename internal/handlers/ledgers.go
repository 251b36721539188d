package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ldotspots/zuco-motors/internal/middleware"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/service"
)

type inquiryRequest struct {
	VehicleID string `json:"vehicleId" binding:"required"`
	Subject   string `json:"subject"`
	Message   string `json:"message" binding:"required"`
}

func (h HandlerSet) CreateInquiry(c *gin.Context) {
	var req inquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	inq, err := h.ledger.CreateInquiry(c.Request.Context(), service.InquiryRequest{
		VehicleID: req.VehicleID,
		BuyerID:   sessionOf(c).UserID,
		Subject:   req.Subject,
		Message:   req.Message,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"inquiry": inq})
}

func (h HandlerSet) BuyerInquiries(c *gin.Context) {
	items, err := h.ledger.Inquiries(c.Request.Context(), service.BookingFilter{BuyerID: sessionOf(c).UserID})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) AgentInquiries(c *gin.Context) {
	items, err := h.ledger.Inquiries(c.Request.Context(), service.BookingFilter{AgentID: sessionOf(c).UserID})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// canSeeInquiry lets buyers reach their own inquiries and staff the ones
// they handle.
func canSeeInquiry(c *gin.Context, inq models.Inquiry) bool {
	if sessionOf(c).Role == models.UserRoleBuyer {
		return inq.BuyerID == sessionOf(c).UserID
	}
	return handles(c, inq.AgentID)
}

type messageRequest struct {
	Channel string `json:"channel"`
	Message string `json:"message" binding:"required"`
}

func (h HandlerSet) AddInquiryMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	inq, err := h.ledger.Inquiry(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !canSeeInquiry(c, inq) {
		notFound(c, "inquiry")
		return
	}
	inq, err = h.ledger.AddCommunication(ctx, inq.ID, sessionOf(c).UserID, req.Channel, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inquiry": inq})
}

func (h HandlerSet) SetInquiryStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	inq, err := h.ledger.Inquiry(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !canSeeInquiry(c, inq) {
		notFound(c, "inquiry")
		return
	}
	inq, err = h.ledger.SetInquiryStatus(ctx, inq.ID, models.InquiryStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inquiry": inq})
}

type quoteRequest struct {
	VehicleID string `json:"vehicleId" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
}

// RequestQuote accepts guests. A signed-in buyer is linked to the request.
func (h HandlerSet) RequestQuote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	var buyerID string
	if sess, ok, err := h.auth.Session(ctx, middleware.ClientID(c), service.PortalBuyer); err == nil && ok {
		buyerID = sess.UserID
	}

	q, err := h.ledger.RequestQuote(ctx, service.QuoteInput{
		VehicleID: req.VehicleID,
		BuyerID:   buyerID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Message:   req.Message,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"quote": q})
}

type quoteResponseRequest struct {
	Status      string           `json:"status" binding:"required"`
	QuotedPrice *decimal.Decimal `json:"quotedPrice"`
}

func (h HandlerSet) RespondQuote(c *gin.Context) {
	var req quoteResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	q, err := h.ledger.RespondQuote(c.Request.Context(), c.Param("id"), models.QuoteStatus(req.Status), req.QuotedPrice)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote": q})
}

type transactionRequest struct {
	VehicleID    string          `json:"vehicleId" binding:"required"`
	BuyerID      string          `json:"buyerId"`
	SellerID     string          `json:"sellerId"`
	SalePrice    decimal.Decimal `json:"salePrice"`
	TradeInValue decimal.Decimal `json:"tradeInValue"`
}

// RecordTransaction credits the signed-in dealer when no seller is named.
func (h HandlerSet) RecordTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.SellerID == "" {
		req.SellerID = sessionOf(c).UserID
	}
	tx, err := h.ledger.RecordTransaction(c.Request.Context(), service.TransactionInput{
		VehicleID:    req.VehicleID,
		BuyerID:      req.BuyerID,
		SellerID:     req.SellerID,
		SalePrice:    req.SalePrice,
		TradeInValue: req.TradeInValue,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

type allocationRequest struct {
	VehicleID string `json:"vehicleId" binding:"required"`
	AgentID   string `json:"agentId" binding:"required"`
}

func (h HandlerSet) Allocate(c *gin.Context) {
	var req allocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	a, err := h.ledger.Allocate(c.Request.Context(), req.VehicleID, req.AgentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"allocation": a})
}

func (h HandlerSet) ReleaseAllocation(c *gin.Context) {
	a, err := h.ledger.Release(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allocation": a})
}

type agentSaleRequest struct {
	VehicleID   string          `json:"vehicleId" binding:"required"`
	BuyerName   string          `json:"buyerName" binding:"required"`
	BuyerEmail  string          `json:"buyerEmail"`
	AgreedPrice decimal.Decimal `json:"agreedPrice"`
}

func (h HandlerSet) RecordAgentSale(c *gin.Context) {
	var req agentSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sale, err := h.ledger.RecordAgentSale(c.Request.Context(), service.AgentSaleInput{
		VehicleID:   req.VehicleID,
		AgentID:     sessionOf(c).UserID,
		BuyerName:   req.BuyerName,
		BuyerEmail:  req.BuyerEmail,
		AgreedPrice: req.AgreedPrice,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sale": sale})
}

func (h HandlerSet) MyAgentSales(c *gin.Context) {
	items, err := h.ledger.AgentSales(c.Request.Context(), sessionOf(c).UserID, models.ReviewStatus(c.Query("status")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type reviewRequest struct {
	Decision string `json:"decision" binding:"required"`
}

func (h HandlerSet) ReviewAgentSale(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sale, err := h.ledger.ReviewAgentSale(c.Request.Context(), c.Param("id"), models.ReviewStatus(req.Decision))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sale": sale})
}

type agentApplicationRequest struct {
	Region         string `json:"region" binding:"required"`
	Specialization string `json:"specialization"`
	Experience     string `json:"experience"`
}

func (h HandlerSet) ApplyAsAgent(c *gin.Context) {
	var req agentApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	app, err := h.ledger.ApplyAsAgent(c.Request.Context(), service.AgentApplicationInput{
		UserID:         sessionOf(c).UserID,
		Region:         req.Region,
		Specialization: req.Specialization,
		Experience:     req.Experience,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"application": app})
}

func (h HandlerSet) ReviewAgentApplication(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	app, err := h.ledger.ReviewAgentApplication(c.Request.Context(), c.Param("id"), models.ReviewStatus(req.Decision))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

type financingRequest struct {
	VehicleID  string          `json:"vehicleId" binding:"required"`
	LoanAmount decimal.Decimal `json:"loanAmount"`
	AnnualRate decimal.Decimal `json:"annualRate"`
	TermMonths int             `json:"termMonths" binding:"required"`
}

func (h HandlerSet) ApplyForFinancing(c *gin.Context) {
	var req financingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	app, err := h.ledger.ApplyForFinancing(c.Request.Context(), service.FinancingInput{
		UserID:     sessionOf(c).UserID,
		VehicleID:  req.VehicleID,
		LoanAmount: req.LoanAmount,
		AnnualRate: req.AnnualRate,
		TermMonths: req.TermMonths,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"application": app})
}

func (h HandlerSet) BuyerFinancing(c *gin.Context) {
	items, err := h.ledger.FinancingApplications(c.Request.Context(), sessionOf(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) SetFinancingStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	app, err := h.ledger.SetFinancingStatus(c.Request.Context(), c.Param("id"), models.FinancingStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}
