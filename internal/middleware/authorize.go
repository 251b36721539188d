package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/service"
)

type Gate interface {
	RequireAuth(ctx context.Context, client string, portal service.Portal, roles ...models.UserRole) (service.AuthResult, error)
}

// RequireRoles admits requests whose client holds a live session in the
// current portal with one of roles. No roles admits any signed-in user.
func RequireRoles(gate Gate, log zerolog.Logger, roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := gate.RequireAuth(c.Request.Context(), ClientID(c), PortalOf(c), roles...)
		if err != nil {
			log.Error().Err(err).Str("request_id", RequestIDOf(c)).Msg("session lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		switch res.Status {
		case service.AuthAuthenticated:
			c.Set(keySession, res.Session)
			c.Next()
		case service.AuthWrongRole:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "redirect": res.Redirect})
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated", "redirect": res.Redirect})
		}
	}
}
