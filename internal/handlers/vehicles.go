package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/pricing"
	"github.com/ldotspots/zuco-motors/internal/service"
)

type publicPricing struct {
	MSRP      decimal.Decimal `json:"msrp"`
	SalePrice decimal.Decimal `json:"salePrice"`
}

// publicVehicle hides the dealer's cost side of the pricing record.
type publicVehicle struct {
	models.Vehicle
	Pricing publicPricing `json:"pricing"`
}

func publicOf(v models.Vehicle) publicVehicle {
	return publicVehicle{
		Vehicle: v,
		Pricing: publicPricing{MSRP: v.Pricing.MSRP, SalePrice: v.Pricing.SalePrice},
	}
}

func publicList(vs []models.Vehicle) []publicVehicle {
	out := make([]publicVehicle, 0, len(vs))
	for _, v := range vs {
		out = append(out, publicOf(v))
	}
	return out
}

func parseVehicleQuery(c *gin.Context) (service.VehicleQuery, error) {
	q := service.VehicleQuery{
		Text:      c.Query("q"),
		Make:      c.Query("make"),
		Model:     c.Query("model"),
		BodyStyle: c.Query("bodyStyle"),
		FuelType:  c.Query("fuelType"),
		Condition: c.Query("condition"),
		Color:     c.Query("color"),
		Status:    models.VehicleStatus(c.Query("status")),
		AgentID:   c.Query("agentId"),
		Sort:      service.SortField(c.DefaultQuery("sort", string(service.SortAdded))),
		Desc:      c.DefaultQuery("order", "desc") == "desc",
	}
	if !q.Sort.Valid() {
		return q, fmt.Errorf("unknown sort %q", q.Sort)
	}

	ints := map[string]*int{"yearMin": &q.YearMin, "yearMax": &q.YearMax, "mileageMax": &q.MileageMax}
	for key, dst := range ints {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("%s must be a number", key)
		}
		*dst = n
	}

	decs := map[string]*decimal.Decimal{"priceMin": &q.PriceMin, "priceMax": &q.PriceMax}
	for key, dst := range decs {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return q, fmt.Errorf("%s must be a number", key)
		}
		*dst = d
	}
	return q, nil
}

func (h HandlerSet) ListVehicles(c *gin.Context) {
	q, err := parseVehicleQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	vehicles, err := h.catalog.Search(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": publicList(vehicles), "count": len(vehicles)})
}

func (h HandlerSet) GetVehicle(c *gin.Context) {
	v, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": publicOf(v)})
}

// CompareVehicles takes a comma separated ids list.
func (h HandlerSet) CompareVehicles(c *gin.Context) {
	var vehicleIDs []string
	for _, id := range strings.Split(c.Query("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			vehicleIDs = append(vehicleIDs, id)
		}
	}
	vehicles, err := h.catalog.Compare(c.Request.Context(), vehicleIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": publicList(vehicles)})
}

func (h HandlerSet) TrackView(c *gin.Context) {
	views, err := h.catalog.TrackView(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"views": views})
}

func (h HandlerSet) Favorites(c *gin.Context) {
	vehicles, err := h.catalog.Favorites(c.Request.Context(), sessionOf(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": publicList(vehicles)})
}

func (h HandlerSet) ToggleFavorite(c *gin.Context) {
	added, err := h.catalog.ToggleFavorite(c.Request.Context(), sessionOf(c).UserID, c.Param("vehicleId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorite": added})
}

func (h HandlerSet) FinancingEstimate(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil || !amount.IsPositive() {
		badRequest(c, fmt.Errorf("amount must be a positive number"))
		return
	}
	rate, err := decimal.NewFromString(c.DefaultQuery("rate", "0"))
	if err != nil || rate.IsNegative() {
		badRequest(c, fmt.Errorf("rate must be a non-negative number"))
		return
	}
	months, err := strconv.Atoi(c.DefaultQuery("months", "60"))
	if err != nil {
		badRequest(c, fmt.Errorf("months must be a number"))
		return
	}

	est, err := pricing.Estimate(amount, rate, months)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

// Dealer side.

func (h HandlerSet) CreateVehicle(c *gin.Context) {
	var v models.Vehicle
	if err := c.ShouldBindJSON(&v); err != nil {
		badRequest(c, err)
		return
	}
	created, err := h.catalog.Create(c.Request.Context(), v)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vehicle": created})
}

func (h HandlerSet) UpdateVehicle(c *gin.Context) {
	var v models.Vehicle
	if err := c.ShouldBindJSON(&v); err != nil {
		badRequest(c, err)
		return
	}
	updated, err := h.catalog.Update(c.Request.Context(), c.Param("id"), v)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": updated})
}

func (h HandlerSet) DeleteVehicle(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) UpdatePricing(c *gin.Context) {
	var p models.Pricing
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	v, breakdown, err := h.catalog.UpdatePricing(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": v, "breakdown": breakdown})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h HandlerSet) SetVehicleStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := h.catalog.SetStatus(c.Request.Context(), c.Param("id"), models.VehicleStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": v})
}

type agentRequest struct {
	AgentID string `json:"agentId"`
}

// AssignAgent sets the vehicle's agent; an empty agentId clears it.
func (h HandlerSet) AssignAgent(c *gin.Context) {
	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := h.catalog.AssignAgent(c.Request.Context(), c.Param("id"), req.AgentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": v})
}

// Sales agent side.

func (h HandlerSet) AgentVehicles(c *gin.Context) {
	vehicles, err := h.ledger.AgentVehicles(c.Request.Context(), sessionOf(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

// AgentVehicle only answers for vehicles the agent may sell.
func (h HandlerSet) AgentVehicle(c *gin.Context) {
	vehicles, err := h.ledger.AgentVehicles(c.Request.Context(), sessionOf(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	for _, v := range vehicles {
		if v.ID == c.Param("id") {
			c.JSON(http.StatusOK, gin.H{"vehicle": v})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
}
