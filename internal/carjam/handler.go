package carjam

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Response bodies keep the wording browsers already depend on.
const (
	msgMissingPlate  = "Missing plate parameter"
	msgNotConfigured = "CARJAM_API_KEY not configured"
	msgFailed        = "CarJam request failed"
)

func setHeaders(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

// Handler serves GET and OPTIONS for the plate lookup.
func Handler(client *Client, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		setHeaders(c)
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		plate := NormalizePlate(c.Query("plate"))
		res, err := client.Lookup(c.Request.Context(), plate)
		switch {
		case errors.Is(err, ErrMissingPlate):
			c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingPlate})
			return
		case errors.Is(err, ErrNotConfigured):
			log.Error().Msg("carjam lookup without api key")
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgNotConfigured})
			return
		case err != nil:
			log.Warn().Err(err).Str("plate", plate).Msg("carjam lookup failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": msgFailed, "details": Details(err)})
			return
		}

		status := http.StatusOK
		if !res.OK {
			status = http.StatusBadGateway
		}
		c.Data(status, "application/json", res.Body)
	}
}

// Register mounts the lookup at path for GET and OPTIONS.
func Register(r gin.IRoutes, path string, client *Client, log zerolog.Logger) {
	h := Handler(client, log)
	r.GET(path, h)
	r.OPTIONS(path, h)
}

// Proxy serves the plate lookup on its own.
type Proxy struct {
	Client *Client
	Log    zerolog.Logger
}

func (p Proxy) Mount(engine *gin.Engine) {
	Register(engine, "/carjam", p.Client, p.Log)
	Register(engine, "/api/carjam", p.Client, p.Log)
}
