package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/readypixelgo/venue-booking/internal/realtime"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
)

// LiveHandler streams a date's public availability over a websocket.  The
// current view is sent on connect and again after every change signal.
type LiveHandler struct {
	availability Availability
	feed         realtime.Feed
	upgrader     websocket.Upgrader
	log          *zap.Logger
}

// NewLiveHandler returns a handler accepting websocket upgrades from
// allowedOrigin.  An empty allowedOrigin accepts any origin.
func NewLiveHandler(av Availability, feed realtime.Feed, allowedOrigin string, log *zap.Logger) *LiveHandler {
	allowedOrigin = strings.TrimRight(allowedOrigin, "/")
	return &LiveHandler{
		availability: av,
		feed:         feed,
		log:          log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || strings.TrimRight(origin, "/") == allowedOrigin
			},
		},
	}
}

// Stream handles GET /v1/availability/live?date=YYYY-MM-DD.  Invalid dates
// are rejected with a plain HTTP error before the upgrade.
func (h *LiveHandler) Stream(c echo.Context) error {
	date := c.QueryParam("date")
	first, err := h.availability.Public(c.Request().Context(), date)
	if err != nil {
		return respondError(c, h.log, err)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return nil
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals, err := h.feed.Subscribe(ctx, date)
	if err != nil {
		h.log.Warn("live availability subscribe failed", zap.String("date", date), zap.Error(err))
		_ = h.write(ws, first)
		return nil
	}

	// the read side only handles pongs and notices the client leaving
	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(livePongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(livePongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := h.write(ws, first); err != nil {
		return nil
	}
	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-signals:
			if !ok {
				return nil
			}
			av, err := h.availability.Public(ctx, date)
			if err != nil {
				h.log.Warn("live availability refresh failed", zap.String("date", date), zap.Error(err))
				continue
			}
			if err := h.write(ws, av); err != nil {
				return nil
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return nil
			}
		}
	}
}

func (h *LiveHandler) write(ws *websocket.Conn, v any) error {
	_ = ws.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return ws.WriteJSON(v)
}
