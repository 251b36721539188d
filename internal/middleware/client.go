package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/security"
	"github.com/ldotspots/zuco-motors/internal/service"
)

const (
	ClientHeader = "X-Zuco-Client"
	PortalHeader = "X-Zuco-Portal"

	keyClient  = "zuco_client"
	keyPortal  = "zuco_portal"
	keySession = "zuco_session"
	keyClaims  = "zuco_claims"
)

// Client resolves the client context of a request. The X-Zuco-Client header
// wins; otherwise a valid bearer token supplies its client id. The portal
// comes from X-Zuco-Portal and may be overridden per route group.
func Client(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := strings.TrimSpace(c.GetHeader(ClientHeader))

		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			claims, err := security.ParseSessionToken(strings.TrimPrefix(header, "Bearer "), jwtSecret)
			if err == nil {
				c.Set(keyClaims, *claims)
				if client == "" {
					client = claims.ClientID
				}
			}
		}
		if client != "" {
			c.Set(keyClient, client)
		}

		if p, ok := service.ParsePortal(c.GetHeader(PortalHeader)); ok {
			c.Set(keyPortal, p)
		}
		c.Next()
	}
}

// Portal pins the portal for a route group.
func Portal(p service.Portal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(keyPortal, p)
		c.Next()
	}
}

func ClientID(c *gin.Context) string {
	return c.GetString(keyClient)
}

func PortalOf(c *gin.Context) service.Portal {
	if v, ok := c.Get(keyPortal); ok {
		if p, ok := v.(service.Portal); ok {
			return p
		}
	}
	return service.PortalNone
}

func CurrentSession(c *gin.Context) (models.Session, bool) {
	v, ok := c.Get(keySession)
	if !ok {
		return models.Session{}, false
	}
	s, ok := v.(models.Session)
	return s, ok
}

func Claims(c *gin.Context) (security.SessionClaims, bool) {
	v, ok := c.Get(keyClaims)
	if !ok {
		return security.SessionClaims{}, false
	}
	claims, ok := v.(security.SessionClaims)
	return claims, ok
}
