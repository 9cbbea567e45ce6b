package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/annel0/lightcheck/internal/eventbus"
)

const (
	eventStreamBuffer = 512
	eventPingInterval = 30 * time.Second
	eventWriteTimeout = 5 * time.Second
)

// StreamMessage: одно сообщение потока /api/events
type StreamMessage struct {
	Kind      string            `json:"kind"` // subscribed | event
	ID        string            `json:"id,omitempty"`
	EventType string            `json:"event_type,omitempty"`
	RunID     string            `json:"run_id,omitempty"`
	Timestamp time.Time         `json:"timestamp,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	// Dropped: сколько событий не досталось клиенту, потому что он не успевал читать
	Dropped uint64 `json:"dropped"`
}

var eventUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
}

// handleEvents транслирует события шины в WebSocket.
// Фильтры: ?type=LightViolation&channel=sky&run=<run id>, каждый можно повторять.
// Первым сообщением сервер шлёт kind=subscribed: после него события уже не теряются.
func (rs *RestServer) handleEvents(c *gin.Context) {
	if rs.events == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{
			Success: false,
			Message: "Шина событий не подключена",
		})
		return
	}

	filter := eventbus.Filter{
		Types:    c.QueryArray("type"),
		Channels: c.QueryArray("channel"),
		RunIDs:   c.QueryArray("run"),
	}

	conn, err := eventUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		rs.logger.Debug("WebSocket не установлен: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan *eventbus.Envelope, eventStreamBuffer)
	var dropped atomic.Uint64
	sub, err := rs.events.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		select {
		case out <- ev:
		default:
			dropped.Add(1)
		}
	})
	if err != nil {
		rs.logger.Warn("Подписка потока событий не удалась: %v", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "event bus unavailable"),
			time.Now().Add(time.Second))
		return
	}
	defer sub.Unsubscribe()

	// Клиент ничего не шлёт; чтение нужно, чтобы заметить закрытие соединения
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg StreamMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
		return conn.WriteJSON(msg)
	}
	if err := write(StreamMessage{Kind: "subscribed"}); err != nil {
		return
	}
	rs.logger.Debug("Поток событий открыт: %+v", filter)

	ping := time.NewTicker(eventPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-rs.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
				time.Now().Add(time.Second))
			return
		case ev := <-out:
			msg := StreamMessage{
				Kind:      "event",
				ID:        ev.ID,
				EventType: ev.EventType,
				RunID:     ev.CorrelationID,
				Timestamp: ev.Timestamp,
				Metadata:  ev.Metadata,
				Payload:   json.RawMessage(ev.Payload),
				Dropped:   dropped.Load(),
			}
			if err := write(msg); err != nil {
				rs.logger.Debug("Поток событий закрыт: %v", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteTimeout)); err != nil {
				return
			}
		}
	}
}
