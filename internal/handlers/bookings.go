package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/service"
)

func (h HandlerSet) TestDriveSlots(c *gin.Context) {
	slots, err := h.bookings.TestDriveSlots(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": c.Query("date"), "slots": slots})
}

func (h HandlerSet) ViewingSlots(c *gin.Context) {
	slots, err := h.bookings.ViewingSlots(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": c.Query("date"), "slots": slots})
}

// handles reports whether the signed-in user may act on a record assigned
// to agentID. Dealers act on everything, agents only on their own records.
func handles(c *gin.Context, agentID string) bool {
	s := sessionOf(c)
	return s.Role == models.UserRoleDealer || agentID == s.UserID
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

type testDriveRequest struct {
	VehicleID string `json:"vehicleId" binding:"required"`
	Date      string `json:"date" binding:"required"`
	Time      string `json:"time" binding:"required"`
	Notes     string `json:"notes"`
}

func (h HandlerSet) BookTestDrive(c *gin.Context) {
	var req testDriveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	td, err := h.bookings.BookTestDrive(c.Request.Context(), service.TestDriveRequest{
		VehicleID: req.VehicleID,
		BuyerID:   sessionOf(c).UserID,
		Date:      req.Date,
		Time:      req.Time,
		Notes:     req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"testDrive": td})
}

func (h HandlerSet) BuyerTestDrives(c *gin.Context) {
	items, err := h.bookings.TestDrives(c.Request.Context(), service.BookingFilter{BuyerID: sessionOf(c).UserID})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) CancelTestDrive(c *gin.Context) {
	ctx := c.Request.Context()
	td, err := h.bookings.TestDrive(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if td.BuyerID != sessionOf(c).UserID {
		notFound(c, "test drive")
		return
	}
	td, err = h.bookings.SetTestDriveStatus(ctx, td.ID, models.TestDriveStatusCancelled)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"testDrive": td})
}

func (h HandlerSet) SetTestDriveStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	td, err := h.bookings.TestDrive(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !handles(c, td.AgentID) {
		notFound(c, "test drive")
		return
	}
	td, err = h.bookings.SetTestDriveStatus(ctx, td.ID, models.TestDriveStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"testDrive": td})
}

func (h HandlerSet) AgentTestDrives(c *gin.Context) {
	items, err := h.bookings.TestDrives(c.Request.Context(), service.BookingFilter{AgentID: sessionOf(c).UserID})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type viewingRequest struct {
	VehicleID string `json:"vehicleId" binding:"required"`
	Date      string `json:"date" binding:"required"`
	TimeSlot  string `json:"timeSlot" binding:"required"`
	Notes     string `json:"notes"`
}

func (h HandlerSet) BookViewing(c *gin.Context) {
	var req viewingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	vb, err := h.bookings.BookViewing(c.Request.Context(), service.ViewingRequest{
		VehicleID: req.VehicleID,
		BuyerID:   sessionOf(c).UserID,
		Date:      req.Date,
		TimeSlot:  req.TimeSlot,
		Notes:     req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"viewing": vb})
}

func (h HandlerSet) BuyerViewings(c *gin.Context) {
	items, err := h.bookings.Viewings(c.Request.Context(), service.BookingFilter{BuyerID: sessionOf(c).UserID})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) CancelViewing(c *gin.Context) {
	ctx := c.Request.Context()
	vb, err := h.bookings.Viewing(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if vb.BuyerID != sessionOf(c).UserID {
		notFound(c, "viewing")
		return
	}
	vb, err = h.bookings.SetViewingStatus(ctx, vb.ID, models.ViewingStatusCancelled)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewing": vb})
}

func (h HandlerSet) SetViewingStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	vb, err := h.bookings.Viewing(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !handles(c, vb.AgentID) {
		notFound(c, "viewing")
		return
	}
	vb, err = h.bookings.SetViewingStatus(ctx, vb.ID, models.ViewingStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewing": vb})
}

func (h HandlerSet) AgentViewings(c *gin.Context) {
	items, err := h.bookings.Viewings(c.Request.Context(), service.BookingFilter{AgentID: sessionOf(c).UserID})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
