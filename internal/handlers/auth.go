package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ldotspots/zuco-motors/internal/middleware"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/repository"
	"github.com/ldotspots/zuco-motors/internal/service"
)

// userView is a user record without its password hash.
type userView struct {
	ID             string          `json:"id"`
	Email          string          `json:"email"`
	Role           models.UserRole `json:"role"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	Phone          string          `json:"phone"`
	EmployeeID     string          `json:"employeeId,omitempty"`
	CommissionRate float64         `json:"commissionRate,omitempty"`
	Profile        models.Profile  `json:"profile"`
	CreatedAt      time.Time       `json:"createdAt"`
	LastLogin      time.Time       `json:"lastLogin"`
}

func viewOf(u models.User) userView {
	return userView{
		ID:             u.ID,
		Email:          u.Email,
		Role:           u.Role,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Phone:          u.Phone,
		EmployeeID:     u.EmployeeID,
		CommissionRate: u.CommissionRate,
		Profile:        u.Profile,
		CreatedAt:      u.CreatedAt,
		LastLogin:      u.LastLogin,
	}
}

type registerRequest struct {
	Email          string `json:"email" binding:"required"`
	Password       string `json:"password" binding:"required"`
	Role           string `json:"role"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	EmployeeID     string `json:"employeeId"`
	Region         string `json:"region"`
	Specialization string `json:"specialization"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	role := models.UserRole(req.Role)
	if role.IsStaff() && !h.cfg.Security.OpenStaffSignup {
		res, err := h.auth.RequireAuth(c.Request.Context(), middleware.ClientID(c), service.PortalDealer, models.UserRoleDealer)
		if err != nil {
			h.fail(c, err)
			return
		}
		if res.Status != service.AuthAuthenticated {
			c.JSON(http.StatusForbidden, gin.H{"error": "staff accounts are created by a dealer"})
			return
		}
	}

	user, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:          req.Email,
		Password:       req.Password,
		Role:           role,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		Address:        req.Address,
		EmployeeID:     req.EmployeeID,
		Region:         req.Region,
		Specialization: req.Specialization,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": viewOf(user)})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

// Login answers with the client id in X-Zuco-Client so a first-time client
// can keep using it, plus a bearer token carrying the same id.
func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), middleware.ClientID(c), req.Email, req.Password, req.Remember)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, service.ErrInvalidCredential) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		h.fail(c, err)
		return
	}

	c.Header(middleware.ClientHeader, res.ClientID)
	c.JSON(http.StatusOK, gin.H{
		"session":   res.Session,
		"namespace": res.Namespace,
		"token":     res.Token,
		"clientId":  res.ClientID,
		"redirect":  portalHome(res.Session.Role),
	})
}

func portalHome(role models.UserRole) string {
	switch role {
	case models.UserRoleDealer:
		return "/dealer"
	case models.UserRoleSalesAgent:
		return "/sales"
	default:
		return "/buyer"
	}
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.ClientID(c), middleware.PortalOf(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Session reports the caller's session without failing when there is none.
func (h HandlerSet) Session(c *gin.Context) {
	sess, ok, err := h.auth.Session(c.Request.Context(), middleware.ClientID(c), middleware.PortalOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "session": sess})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, err := h.auth.CurrentUser(c.Request.Context(), middleware.ClientID(c), middleware.PortalOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": viewOf(user)})
}

type passwordRequest struct {
	Current string `json:"currentPassword" binding:"required"`
	Next    string `json:"newPassword" binding:"required"`
}

func (h HandlerSet) UpdatePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.auth.UpdatePassword(c.Request.Context(), middleware.ClientID(c), middleware.PortalOf(c), req.Current, req.Next); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type profileRequest struct {
	FirstName *string        `json:"firstName"`
	LastName  *string        `json:"lastName"`
	Phone     *string        `json:"phone"`
	Profile   map[string]any `json:"profile"`
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), middleware.ClientID(c), middleware.PortalOf(c), service.ProfilePatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Profile:   req.Profile,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": viewOf(user)})
}

type validatePasswordRequest struct {
	Password string `json:"password"`
}

func (h HandlerSet) ValidatePassword(c *gin.Context) {
	var req validatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ok, checks := h.auth.ValidatePassword(req.Password)
	c.JSON(http.StatusOK, gin.H{"valid": ok, "checks": checks})
}
