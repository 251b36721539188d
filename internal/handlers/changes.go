package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ldotspots/zuco-motors/internal/middleware"
	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/repository"
	"github.com/ldotspots/zuco-motors/internal/service"
)

const (
	changeWriteWait = 10 * time.Second
	changePingEvery = 30 * time.Second
)

func feedTable(table string) bool {
	if table == "" || table == repository.TableVehicles {
		return true
	}
	for _, t := range repository.LedgerTables() {
		if t == table {
			return true
		}
	}
	return false
}

// publicRecord projects a vehicle change record for non-dealer subscribers.
// Records that crossed the Redis bus arrive as decoded JSON; anything that
// does not decode as a vehicle is dropped.
func publicRecord(rec any) any {
	switch v := rec.(type) {
	case nil:
		return nil
	case models.Vehicle:
		return publicOf(v)
	case *models.Vehicle:
		return publicOf(*v)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil
	}
	var v models.Vehicle
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return publicOf(v)
}

func (h HandlerSet) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowCORSOrigins) == 0 {
		return true
	}
	for _, o := range h.cfg.AllowCORSOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Changes streams table writes over a websocket. The vehicles feed is
// public but carries the cost side of pricing only to a dealer; every other
// feed needs a dealer session. The client id may come in the "client" query
// parameter since browsers cannot set headers on the upgrade request.
func (h HandlerSet) Changes(c *gin.Context) {
	if h.changes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "change feed unavailable"})
		return
	}
	table := c.Query("table")
	if !feedTable(table) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown table"})
		return
	}

	client := middleware.ClientID(c)
	if client == "" {
		client = c.Query("client")
	}
	dealer := false
	if client != "" || table != repository.TableVehicles {
		res, err := h.auth.RequireAuth(c.Request.Context(), client, service.PortalDealer, models.UserRoleDealer)
		if err != nil {
			h.fail(c, err)
			return
		}
		dealer = res.Status == service.AuthAuthenticated
		if !dealer && table != repository.TableVehicles {
			if res.Status == service.AuthWrongRole {
				c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "redirect": res.Redirect})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated", "redirect": res.Redirect})
			}
			return
		}
	}

	upgrader := websocket.Upgrader{CheckOrigin: h.originAllowed}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	feed, stop, err := h.changes.Subscribe(ctx, table)
	if err != nil {
		h.log.Error().Err(err).Str("table", table).Msg("change feed subscribe failed")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(changeWriteWait))
		return
	}
	defer stop()

	_ = conn.SetReadDeadline(time.Now().Add(2 * changePingEvery))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * changePingEvery))
	})

	// The client only ever sends control frames; reading them keeps pongs
	// and close frames flowing and tells us when it goes away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	h.log.Debug().Str("table", table).Msg("change feed opened")
	ticker := time.NewTicker(changePingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-feed:
			if !ok {
				return
			}
			if !dealer && change.Table == repository.TableVehicles {
				change.Record = publicRecord(change.Record)
			}
			_ = conn.SetWriteDeadline(time.Now().Add(changeWriteWait))
			if err := conn.WriteJSON(change); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(changeWriteWait)); err != nil {
				return
			}
		}
	}
}
