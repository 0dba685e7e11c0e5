package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/readypixelgo/venue-booking/internal/apperr"
	"github.com/readypixelgo/venue-booking/internal/model"
	"github.com/readypixelgo/venue-booking/internal/realtime"
	"github.com/readypixelgo/venue-booking/internal/service"
)

// flipAvailability reports 10:00 as taken once booked is set.
type flipAvailability struct{ booked atomic.Bool }

func (f *flipAvailability) Public(_ context.Context, date string) (*service.PublicAvailability, error) {
	if date != "2025-06-01" {
		return nil, apperr.Validation("date is in the past")
	}
	return &service.PublicAvailability{Date: date, Slots: []model.TimeSlot{{Time: "10:00", Available: !f.booked.Load()}}}, nil
}

func TestLiveStream_PushesOnChange(t *testing.T) {
	av := &flipAvailability{}
	feed := realtime.NewLocalFeed()
	e := echo.New()
	e.GET("/v1/availability/live", NewLiveHandler(av, feed, "", zap.NewNop()).Stream)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/availability/live?date=2025-06-01"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first service.PublicAvailability
	require.NoError(t, ws.ReadJSON(&first))
	assert.True(t, first.Slots[0].Available)

	av.booked.Store(true)
	// the subscription is registered before the first frame is written
	require.NoError(t, feed.Publish(context.Background(), "2025-06-01"))

	var next service.PublicAvailability
	require.NoError(t, ws.ReadJSON(&next))
	assert.False(t, next.Slots[0].Available)
}

func TestLiveStream_RejectsBadDateBeforeUpgrade(t *testing.T) {
	e := echo.New()
	e.GET("/v1/availability/live", NewLiveHandler(&flipAvailability{}, realtime.NewLocalFeed(), "", zap.NewNop()).Stream)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/availability/live?date=2020-01-01"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLiveStream_ChecksOrigin(t *testing.T) {
	e := echo.New()
	e.GET("/v1/availability/live", NewLiveHandler(&flipAvailability{}, realtime.NewLocalFeed(), "https://readypixelgo.se/", zap.NewNop()).Stream)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/availability/live?date=2025-06-01"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://readypixelgo.se"}})
	require.NoError(t, err)
	ws.Close()
}
