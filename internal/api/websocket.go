package api

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/VoidMesh/terrain/internal/logging"
	assets "github.com/VoidMesh/terrain/internal/render"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// EventStream upgrades clients to websockets and forwards every chunk
// event published on the hub as one JSON text message.
type EventStream struct {
	hub      *assets.Hub
	upgrader websocket.Upgrader
	logger   *log.Logger
}

func NewEventStream(hub *assets.Hub) *EventStream {
	return &EventStream{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logging.WithComponent("event_stream"),
	}
}

func (s *EventStream) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	events, cancel := s.hub.Subscribe()
	s.logger.Debug("Event subscriber connected", "remote", r.RemoteAddr, "subscribers", s.hub.Subscribers())

	done := make(chan struct{})
	go s.writePump(conn, events, done)
	s.readPump(conn)

	cancel()
	<-done
	s.logger.Debug("Event subscriber disconnected", "remote", r.RemoteAddr)
}

// readPump discards client messages and returns once the connection dies.
func (s *EventStream) readPump(conn *websocket.Conn) {
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("WebSocket error", "error", err)
			}
			return
		}
	}
}

func (s *EventStream) writePump(conn *websocket.Conn, events <-chan assets.Event, done chan<- struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
		close(done)
	}()

	for {
		select {
		case ev, ok := <-events:
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
