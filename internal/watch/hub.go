package watch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SendHandler performs the actual dispatch for a watch-originated request.
// Exactly one handler is registered by the composition root.
type SendHandler func(ctx context.Context, templateID string) error

type conn struct {
	hub  *Hub
	ws   *websocket.Conn
	send chan []byte
}

// Hub is the phone side of the cross-surface transport. It retains the last
// persistent-context payload and replays it to every peer on (re)connect, so
// context pushes are eventually delivered across arbitrary disconnection.
// Immediate pushes go only to currently connected peers and are not retried.
type Hub struct {
	logger *slog.Logger

	register   chan *conn
	unregister chan *conn

	mu          sync.Mutex
	runCtx      context.Context
	conns       map[*conn]bool
	lastContext []byte
	onSend      SendHandler
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		register:   make(chan *conn),
		unregister: make(chan *conn),
		conns:      make(map[*conn]bool),
	}
}

// OnSend registers the single dispatch handler.
func (h *Hub) OnSend(fn SendHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSend = fn
}

// Run owns peer registration. ctx is the hub's lifecycle: canceling it closes
// every peer and stops accepting new ones.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.runCtx = ctx
	h.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.conns {
				close(c.send)
				delete(h.conns, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.conns[c] = true
			if h.lastContext != nil {
				if frame, err := templatesFrame(h.lastContext); err == nil {
					c.send <- frame
				}
			}
			h.mu.Unlock()
			h.logger.Info("watch peer connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.conns[c]; ok {
				delete(h.conns, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("watch peer disconnected")
		}
	}
}

// lifetime is the run context; Background until Run has been started.
func (h *Hub) lifetime() context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.runCtx == nil {
		return context.Background()
	}
	return h.runCtx
}

// PushContext retains the payload for replay and delivers it to every
// connected peer.
func (h *Hub) PushContext(payload []byte) {
	h.mu.Lock()
	h.lastContext = payload
	h.mu.Unlock()

	h.push(payload)
}

// PushImmediate delivers without retaining; unreachable peers miss it.
func (h *Hub) PushImmediate(payload []byte) {
	h.push(payload)
}

// push writes the frame into every connected peer's send buffer. A peer too
// slow to drain its buffer is disconnected; it picks the retained context
// back up on reconnect, so nothing is silently lost.
func (h *Hub) push(payload []byte) {
	frame, err := templatesFrame(payload)
	if err != nil {
		h.logger.Error("templates frame encode failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		select {
		case c.send <- frame:
		default:
			close(c.send)
			delete(h.conns, c)
		}
	}
}

// ServeWS upgrades the connection and starts the read/write pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	c := &conn{hub: h, ws: ws, send: make(chan []byte, 16)}

	select {
	case h.register <- c:
	case <-h.lifetime().Done():
		ws.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *conn) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.lifetime().Done():
		}
		c.ws.Close()
	}()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.hub.logger.Warn("bad frame from watch peer", "error", err)
			continue
		}
		if env.Type != TypeSendTemplate {
			continue
		}
		go c.handleSend(env)
	}
}

// handleSend dispatches under the hub's lifecycle context: the HTTP request
// that carried the upgrade is long gone by the time a frame arrives, so its
// context must not govern the send.
func (c *conn) handleSend(env Envelope) {
	c.hub.mu.Lock()
	handler := c.hub.onSend
	ctx := c.hub.runCtx
	c.hub.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	var sendErr error
	if handler == nil {
		sendErr = errNoHandler
	} else {
		sendErr = handler(ctx, env.TemplateID)
	}

	frame, err := resultFrame(env.RequestID, sendErr)
	if err != nil {
		c.hub.logger.Error("result frame encode failed", "error", err)
		return
	}
	select {
	case c.send <- frame:
	default:
		c.hub.logger.Warn("watch peer send buffer full, dropping result")
	}
}

func (c *conn) writePump() {
	defer c.ws.Close()
	for frame := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
	_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
}
