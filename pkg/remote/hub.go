package remote

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/livedom/pkg/mount"
	"github.com/vango-dev/livedom/pkg/protocol"
)

// ErrHubClosed is returned by ServeHTTP after Close.
var ErrHubClosed = errors.New("remote: hub closed")

// Runner runs fn on the goroutine that owns the document and waits for
// it. mount.Ticker.Call is a Runner.
type Runner func(ctx context.Context, fn func() error) error

// Hub mirrors a Provider's document onto websocket clients. New clients
// receive a snapshot; afterwards every batch the Provider flushes is
// broadcast to all of them. Events from clients are dispatched on the
// render goroutine through the Runner.
//
// Hub is a mount.Middleware: installed on the Renderer it publishes the
// patches of every render pass.
type Hub struct {
	provider *Provider
	run      Runner
	logger   *slog.Logger
	upgrader websocket.Upgrader

	sendBuffer   int
	pingInterval time.Duration
	writeTimeout time.Duration
	readTimeout  time.Duration

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

var _ mount.Middleware = (*Hub)(nil)

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithRunner sets how work reaches the render goroutine. The default runs
// fn on the calling goroutine, which is only correct when nothing else
// touches the document concurrently.
func WithRunner(run Runner) HubOption {
	return func(h *Hub) {
		if run != nil {
			h.run = run
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSendBuffer sets how many frames may queue per client before the
// client is dropped as too slow.
func WithSendBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithPingInterval sets the heartbeat interval; clients silent for twice
// that long are dropped.
func WithPingInterval(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
			h.readTimeout = 2 * d
		}
	}
}

// WithCheckOrigin sets the websocket origin check. The default accepts
// same-origin requests only.
func WithCheckOrigin(fn func(r *http.Request) bool) HubOption {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = fn
	}
}

// NewHub returns a hub publishing p.
func NewHub(p *Provider, opts ...HubOption) *Hub {
	h := &Hub{
		provider: p,
		run:      func(_ context.Context, fn func() error) error { return fn() },
		logger:   slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		sendBuffer:   64,
		pingInterval: 30 * time.Second,
		writeTimeout: 10 * time.Second,
		readTimeout:  60 * time.Second,
		clients:      make(map[string]*client),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Provider returns the published provider.
func (h *Hub) Provider() *Provider { return h.provider }

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handle implements mount.Middleware.
func (h *Hub) Handle(p *mount.Pass, next func() error) error {
	err := next()
	h.Publish()
	return err
}

// Publish flushes the provider and broadcasts the batch. It must run on
// the render goroutine.
func (h *Hub) Publish() {
	pf := h.provider.Flush()
	if pf == nil {
		return
	}
	h.broadcast(protocol.PatchesMessage(pf, 0))
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		if !c.enqueue(msg) {
			h.logger.Warn("dropping slow client", "client", c.id)
			h.dropLocked(c, protocol.CloseSlowConsumer)
		}
	}
}

// ServeHTTP upgrades the request to a websocket and serves it until the
// connection ends.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	err = h.run(r.Context(), func() error {
		// Pending patches go to the clients that already hold the state
		// they apply to; the newcomer starts from the snapshot.
		h.Publish()
		snap := protocol.PatchesMessage(h.provider.Snapshot(), protocol.FlagSnapshot)
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.closed {
			return ErrHubClosed
		}
		c.enqueue(snap)
		h.clients[c.id] = c
		return nil
	})
	if err != nil {
		h.logger.Debug("client join failed", "error", err)
		conn.Close()
		return
	}
	h.logger.Info("client connected", "client", c.id, "remote", r.RemoteAddr)

	go h.writeLoop(c)
	h.readLoop(r.Context(), c)
}

// readLoop reads frames until the connection fails or closes.
func (h *Hub) readLoop(ctx context.Context, c *client) {
	defer h.drop(c, protocol.CloseNormal)

	for {
		c.conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				h.logger.Error("read error", "client", c.id, "error", err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			h.logger.Warn("frame decode error", "client", c.id, "error", err)
			continue
		}

		switch frame.Type {
		case protocol.FrameEvent:
			ev, err := protocol.DecodeEvent(frame.Payload)
			if err != nil {
				h.logger.Warn("event decode error", "client", c.id, "error", err)
				continue
			}
			err = h.run(ctx, func() error {
				if !h.provider.Dispatch(ev) {
					h.logger.Debug("event without handler", "client", c.id, "node", ev.Node, "type", ev.Type)
				}
				h.Publish()
				return nil
			})
			if err != nil {
				return
			}

		case protocol.FrameControl:
			ctl, err := protocol.DecodeControl(frame.Payload)
			if err != nil {
				h.logger.Warn("control decode error", "client", c.id, "error", err)
				continue
			}
			switch ctl.Type {
			case protocol.ControlPing:
				c.enqueue(protocol.ControlMessage(&protocol.Control{Type: protocol.ControlPong, Timestamp: ctl.Timestamp}))
			case protocol.ControlPong:
				h.logger.Debug("received pong", "client", c.id)
			case protocol.ControlClose:
				h.logger.Info("client closing", "client", c.id, "reason", ctl.Reason, "message", ctl.Message)
				return
			}

		default:
			h.logger.Warn("unexpected frame type", "client", c.id, "type", frame.Type)
		}
	}
}

// writeLoop drains the client's queue and sends heartbeats.
func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	defer c.conn.Close()

	write := func(msg []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		return c.conn.WriteMessage(websocket.BinaryMessage, msg)
	}

	for {
		select {
		case msg := <-c.send:
			if err := write(msg); err != nil {
				h.logger.Debug("write error", "client", c.id, "error", err)
				h.drop(c, protocol.CloseNormal)
				return
			}
		case <-ticker.C:
			ping := &protocol.Control{Type: protocol.ControlPing, Timestamp: uint64(time.Now().UnixMilli())}
			if err := write(protocol.ControlMessage(ping)); err != nil {
				h.drop(c, protocol.CloseNormal)
				return
			}
		case <-c.done:
			// Flush what was queued before the drop, then say goodbye.
			for {
				select {
				case msg := <-c.send:
					if write(msg) != nil {
						return
					}
				default:
					_ = write(protocol.ControlMessage(&protocol.Control{Type: protocol.ControlClose, Reason: c.reason}))
					c.conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(h.writeTimeout))
					return
				}
			}
		}
	}
}

func (h *Hub) drop(c *client, reason protocol.CloseReason) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c, reason)
}

func (h *Hub) dropLocked(c *client, reason protocol.CloseReason) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	c.close(reason)
	h.logger.Info("client disconnected", "client", c.id, "reason", reason)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, c := range h.clients {
		h.dropLocked(c, protocol.CloseServerShutdown)
	}
	return nil
}

// client is one websocket connection.
type client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	reason protocol.CloseReason
	once   sync.Once
}

// enqueue queues msg without blocking. It reports false when the queue is
// full or the client is closed.
func (c *client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close(reason protocol.CloseReason) {
	c.once.Do(func() {
		c.reason = reason
		close(c.done)
	})
}
