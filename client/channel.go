package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"rentezy-chat/contract"
	"rentezy-chat/domain"
	"rentezy-chat/errors"
)

// ChannelState follows the lifecycle of one live connection.
type ChannelState int32

const (
	StateConnecting ChannelState = iota
	StateOpen
	StateClosed
)

const inboundBuffer = 32

// ChannelManager owns at most one live channel at a time. Opening a room
// that is already open returns the existing channel; opening a different
// room closes the previous channel first, so two conversations can never
// hold connections simultaneously.
type ChannelManager struct {
	log              *slog.Logger
	wsBaseURL        string
	handshakeTimeout time.Duration

	mu      sync.Mutex
	current *LiveChannel
}

func NewChannelManager(log *slog.Logger, wsBaseURL string, handshakeTimeout time.Duration) *ChannelManager {
	return &ChannelManager{
		log:              log,
		wsBaseURL:        wsBaseURL,
		handshakeTimeout: handshakeTimeout,
	}
}

// Open dials ws://host/ws/chat/{roomKey}/. Idempotent while the same
// room is open. A failed or timed-out handshake is ErrConnect: not
// fatal, the caller may retry.
func (m *ChannelManager) Open(ctx context.Context, room domain.RoomKey) (contract.Channel, error) {
	m.mu.Lock()
	if m.current != nil && m.current.room == room && m.current.State() == StateOpen {
		channel := m.current
		m.mu.Unlock()
		return channel, nil
	}
	if m.current != nil {
		_ = m.current.Close()
		m.current = nil
	}
	m.mu.Unlock()

	// Dial without holding the lock so Close and Opens for other rooms
	// stay responsive during a slow handshake.
	dialer := &websocket.Dialer{HandshakeTimeout: m.handshakeTimeout}
	url := fmt.Sprintf("%s/ws/chat/%s/", m.wsBaseURL, room)

	channel := &LiveChannel{
		log:    m.log,
		room:   room,
		frames: make(chan domain.Frame, inboundBuffer),
	}
	channel.state.Store(int32(StateConnecting))

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		channel.state.Store(int32(StateClosed))
		return nil, fmt.Errorf("%w: %v", errors.ErrConnect, err)
	}
	channel.conn = conn
	channel.state.Store(int32(StateOpen))

	m.mu.Lock()
	if m.current != nil && m.current.room == room && m.current.State() == StateOpen {
		// A concurrent Open won the race for the same room; keep it.
		existing := m.current
		m.mu.Unlock()
		_ = channel.Close()
		return existing, nil
	}
	if m.current != nil {
		_ = m.current.Close()
	}
	m.current = channel
	m.mu.Unlock()

	go channel.readLoop()
	m.log.Debug("channel open", "room", string(room))
	return channel, nil
}

// Close shuts the current channel, if any. Safe to call at any time.
func (m *ChannelManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		_ = m.current.Close()
		m.current = nil
	}
}

// LiveChannel is one websocket connection to a conversation room.
type LiveChannel struct {
	log    *slog.Logger
	room   domain.RoomKey
	conn   *websocket.Conn
	frames chan domain.Frame

	state   atomic.Int32
	writeMu sync.Mutex

	errMu sync.Mutex
	err   error
}

// Room returns the key this channel serves.
func (c *LiveChannel) Room() domain.RoomKey { return c.room }

// State reports the current lifecycle state.
func (c *LiveChannel) State() ChannelState { return ChannelState(c.state.Load()) }

// Send transmits a frame to the peer, best-effort. Only valid while
// Open; a write fault closes the channel and reports ErrConnectionLost.
func (c *LiveChannel) Send(frame domain.Frame) error {
	if c.State() != StateOpen {
		return fmt.Errorf("%w: channel %s", errors.ErrNotConnected, c.room)
	}
	c.writeMu.Lock()
	err := c.conn.WriteJSON(frame)
	c.writeMu.Unlock()
	if err != nil {
		c.fail(fmt.Errorf("%w: %v", errors.ErrConnectionLost, err))
		_ = c.Close()
		return c.Err()
	}
	return nil
}

// Frames is the inbound stream. It is closed when the channel dies;
// after that Err tells whether the closure was local or a fault.
func (c *LiveChannel) Frames() <-chan domain.Frame { return c.frames }

// Err reports why the channel died. Nil while open and after a clean
// local Close.
func (c *LiveChannel) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close releases the connection. Idempotent, safe on every path.
func (c *LiveChannel) Close() error {
	if !c.transitionToClosed() {
		return nil
	}
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return c.conn.Close()
	}
	return nil
}

// readLoop decodes inbound frames until the connection dies. Undecodable
// frames are logged and skipped, they never kill the channel.
func (c *LiveChannel) readLoop() {
	defer close(c.frames)

	for {
		var frame domain.Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if c.transitionToClosed() {
				// Remote closure or transport fault while we thought the
				// channel was open.
				c.fail(fmt.Errorf("%w: %v", errors.ErrConnectionLost, err))
				_ = c.conn.Close()
				c.log.Warn("channel lost", "room", string(c.room), "error", err)
			}
			return
		}
		if frame.Content == "" {
			c.log.Debug("skipping malformed inbound frame", "room", string(c.room))
			continue
		}
		select {
		case c.frames <- frame:
		default:
			c.log.Warn("inbound buffer full, dropping frame", "room", string(c.room))
		}
	}
}

func (c *LiveChannel) transitionToClosed() bool {
	return c.state.CompareAndSwap(int32(StateOpen), int32(StateClosed)) ||
		c.state.CompareAndSwap(int32(StateConnecting), int32(StateClosed))
}

func (c *LiveChannel) fail(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}
