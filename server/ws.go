package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rentezy-chat/domain"
	"rentezy-chat/observability"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	maxFrameSize  = 8 * 1024
	sessionBuffer = 16
)

// Hub upgrades websocket requests on /ws/chat/{room}/ and relays frames
// between the sessions attached to the same room. The live channel is
// best-effort: a slow session drops frames rather than stalling the
// sender, durability belongs to the message store.
type Hub struct {
	log      *slog.Logger
	registry *Registry
	monitor  *observability.Monitor
	upgrader websocket.Upgrader
}

func NewHub(log *slog.Logger, registry *Registry, monitor *observability.Monitor) *Hub {
	return &Hub{
		log:      log,
		registry: registry,
		monitor:  monitor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The chat frontends are served from another origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles "GET /ws/chat/{room}/".
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	room := domain.RoomKey(r.PathValue("room"))
	if room == "" {
		http.Error(w, "missing room key", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "room", string(room), "error", err)
		return
	}

	s := &session{
		hub:  h,
		room: room,
		conn: conn,
		send: make(chan domain.Frame, sessionBuffer),
	}
	h.registry.Attach(room, s)
	h.monitor.SocketOpened()
	h.log.Info("session attached", "room", string(room))

	go s.writePump()
	go s.readPump()
}

// session is one attached websocket connection. The read pump is the
// only reader of conn, the write pump the only writer; Deliver never
// touches the socket directly.
type session struct {
	hub  *Hub
	room domain.RoomKey
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan domain.Frame
	closed bool
}

// Deliver queues a frame for the session. Non-blocking: when the buffer
// is full the frame is dropped and counted, the peer will still see the
// message on its next history load. Delivery to a closed session is a
// silent no-op, peers race against teardown.
func (s *session) Deliver(frame domain.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.send <- frame:
	default:
		s.hub.monitor.IncrFramesDropped()
	}
	return nil
}

func (s *session) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// readPump decodes inbound frames and relays them to the other sessions
// of the room. It owns detaching the session: whatever ends the loop,
// the registry entry and the connection are released.
func (s *session) readPump() {
	defer func() {
		s.hub.registry.Detach(s.room, s)
		s.hub.monitor.SocketClosed()
		s.shutdown()
		_ = s.conn.Close()
		s.hub.log.Info("session detached", "room", string(s.room))
	}()

	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame domain.Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.log.Warn("session read failed", "room", string(s.room), "error", err)
			}
			return
		}
		if frame.Content == "" || !s.room.Contains(frame.Sender) {
			s.hub.log.Debug("discarding malformed frame", "room", string(s.room))
			continue
		}
		for _, peer := range s.hub.registry.Peers(s.room, s) {
			_ = peer.Deliver(frame)
			s.hub.monitor.IncrFramesRelayed()
		}
	}
}

// writePump owns all writes to the socket, including pings. It exits
// when readPump closes the send channel.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
