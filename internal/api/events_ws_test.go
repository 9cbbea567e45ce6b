package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/lightcheck/internal/eventbus"
)

func dialEvents(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	var hello StreamMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "subscribed", hello.Kind)
	return conn
}

func TestEventStream_FiltersByChannel(t *testing.T) {
	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()
	rs := NewRestServer(Config{World: testWorld(), Registry: prometheus.NewRegistry(), Events: bus})
	srv := httptest.NewServer(rs.Handler())
	defer srv.Close()

	conn := dialEvents(t, srv, "?type=LightViolation&channel=block")

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, &eventbus.Envelope{
		ID: "sky-1", EventType: eventbus.EventLightViolation, Priority: 9,
		Metadata: map[string]string{"channel": "sky"}, Payload: []byte(`{"rule":"A"}`),
	}))
	require.NoError(t, bus.Publish(ctx, &eventbus.Envelope{
		ID: "block-1", EventType: eventbus.EventLightViolation, Priority: 9, CorrelationID: "run-7",
		Metadata: map[string]string{"channel": "block"}, Payload: []byte(`{"rule":"B"}`),
	}))

	var msg StreamMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "event", msg.Kind)
	assert.Equal(t, "block-1", msg.ID, "событие канала sky должно быть отфильтровано")
	assert.Equal(t, "run-7", msg.RunID)
	assert.JSONEq(t, `{"rule":"B"}`, string(msg.Payload))
	assert.Zero(t, msg.Dropped)
}

func TestEventStream_ClosedOnStop(t *testing.T) {
	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()
	rs := NewRestServer(Config{World: testWorld(), Registry: prometheus.NewRegistry(), Events: bus})
	srv := httptest.NewServer(rs.Handler())
	defer srv.Close()

	conn := dialEvents(t, srv, "")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = rs.Stop(ctx)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "ожидалось закрытие going away, получено %v", err)
}

func TestEventStream_NoBus(t *testing.T) {
	rs := newTestServer(testWorld(), nil)
	rec, resp := do(t, rs, http.MethodGet, "/api/events", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, resp.Success)
}
