package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/service"
)

// page slices items by the perPage and page query parameters and answers
// with the slice and the unpaged total.
func page[T any](c *gin.Context, items []T) {
	limit := 50
	offset := 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}

	total := len(items)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	window := items[offset:end]
	if window == nil {
		window = []T{}
	}

	c.JSON(http.StatusOK, gin.H{
		"items": window,
		"total": total,
	})
}

func filterOf(c *gin.Context) service.BookingFilter {
	return service.BookingFilter{
		VehicleID: c.Query("vehicleId"),
		BuyerID:   c.Query("buyerId"),
		AgentID:   c.Query("agentId"),
	}
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	users, err := h.auth.Users(c.Request.Context(), models.UserRole(c.Query("role")))
	if err != nil {
		h.fail(c, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, viewOf(u))
	}
	page(c, views)
}

func (h HandlerSet) ListAllocations(c *gin.Context) {
	items, err := h.ledger.Allocations(c.Request.Context(), filterOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, items)
}

func (h HandlerSet) ListTransactions(c *gin.Context) {
	items, err := h.ledger.Transactions(c.Request.Context(), filterOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, items)
}

func (h HandlerSet) ListAgentSales(c *gin.Context) {
	items, err := h.ledger.AgentSales(c.Request.Context(), c.Query("agentId"), models.ReviewStatus(c.Query("status")))
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, items)
}

func (h HandlerSet) ListQuotes(c *gin.Context) {
	items, err := h.ledger.Quotes(c.Request.Context(), models.QuoteStatus(c.Query("status")))
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, items)
}

func (h HandlerSet) ListAgentApplications(c *gin.Context) {
	items, err := h.ledger.AgentApplications(c.Request.Context(), models.ReviewStatus(c.Query("status")))
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, items)
}

func (h HandlerSet) ListFinancing(c *gin.Context) {
	items, err := h.ledger.FinancingApplications(c.Request.Context(), c.Query("userId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, items)
}

func (h HandlerSet) DealerInquiries(c *gin.Context) {
	items, err := h.ledger.Inquiries(c.Request.Context(), filterOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, items)
}

func (h HandlerSet) DealerTestDrives(c *gin.Context) {
	items, err := h.bookings.TestDrives(c.Request.Context(), filterOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, items)
}

func (h HandlerSet) DealerViewings(c *gin.Context) {
	items, err := h.bookings.Viewings(c.Request.Context(), filterOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	page(c, items)
}
