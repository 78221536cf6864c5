package controllers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"otoil-backend/services"
	"otoil-backend/utils"
)

const liveWriteTimeout = 10 * time.Second

type liveFrame struct {
	Type string                 `json:"type"`
	Data *services.ReminderView `json:"data,omitempty"`
}

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || h.Config == nil {
				return true
			}
			return slices.Contains(h.Config.Server.AllowOrigins, origin)
		},
	}
}

// Live upgrades to a WebSocket and pushes a reminder view on every record
// snapshot until the client leaves or the session ends.
func (h *Handler) Live(c *gin.Context) {
	claims, ok := utils.CurrentClaims(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	tracker, ok := h.tracker(c)
	if !ok {
		return
	}

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The client never sends anything meaningful; reading only detects close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var writeMu sync.Mutex
	write := func(frame liveFrame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		return conn.WriteJSON(frame)
	}

	resolve := func(context.Context) (*services.Session, error) {
		if h.Revocations != nil && h.Revocations.IsRevoked(claims.TokenID) {
			return nil, nil
		}
		session := sessionFromClaims(claims)
		return &session, nil
	}
	render := func(view services.ReminderView) error {
		return write(liveFrame{Type: "reminders", Data: &view})
	}

	logger := log.WithField("userId", claims.UserID)
	err = h.pipeline(tracker).Run(ctx, resolve, render)
	switch {
	case errors.Is(err, services.ErrSignedOut):
		_ = write(liveFrame{Type: "signed_out"})
		writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "signed out"),
			time.Now().Add(time.Second))
		writeMu.Unlock()
	case err != nil && !errors.Is(err, context.Canceled):
		logger.WithError(err).Warn("live connection ended")
	}
}
