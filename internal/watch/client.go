package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sitex/tgtemplates/internal/domain"
	"github.com/sitex/tgtemplates/internal/mirror"
)

var (
	errNoHandler = errors.New("no send handler registered")

	// ErrUnreachable means the phone did not reply within the
	// reachability timeout.
	ErrUnreachable = errors.New("phone not reachable")
)

// DefaultReachabilityTimeout bounds how long a watch-originated send blocks
// waiting for the phone's reply. An implementation choice, not a protocol
// guarantee.
const DefaultReachabilityTimeout = 10 * time.Second

// Client is the watch side of the transport: it mirrors the template list
// pushed by the phone into a local cache and routes send requests to the
// phone, blocking until the correlated result arrives.
type Client struct {
	url     string
	cache   *FileCache
	codec   mirror.Codec
	logger  *slog.Logger
	timeout time.Duration

	connMu    sync.Mutex
	ws        *websocket.Conn
	pendingMu sync.Mutex
	pending   map[string]chan Envelope

	onTemplates func([]domain.WidgetTemplate)
}

func NewClient(url string, cache *FileCache, logger *slog.Logger) *Client {
	return &Client{
		url:     url,
		cache:   cache,
		logger:  logger,
		timeout: DefaultReachabilityTimeout,
		pending: make(map[string]chan Envelope),
	}
}

// SetReachabilityTimeout overrides the default reply timeout.
func (c *Client) SetReachabilityTimeout(d time.Duration) {
	c.timeout = d
}

// OnTemplates registers the callback invoked with every received mirror.
func (c *Client) OnTemplates(fn func([]domain.WidgetTemplate)) {
	c.onTemplates = fn
}

// Templates returns the last known mirror from the local cache. A corrupt
// cache degrades to an empty list.
func (c *Client) Templates() []domain.WidgetTemplate {
	return c.cache.Load()
}

// Connect dials the phone and starts the read loop. The loop exits when the
// context is canceled or the connection drops.
func (c *Client) Connect(ctx context.Context) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.connMu.Lock()
	c.ws = ws
	c.connMu.Unlock()

	go func() {
		<-ctx.Done()
		ws.Close()
	}()
	go c.readLoop(ws)

	return nil
}

func (c *Client) readLoop(ws *websocket.Conn) {
	defer ws.Close()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.failPending()
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("bad frame from phone", "error", err)
			continue
		}

		switch env.Type {
		case TypeTemplates:
			c.handleTemplates(env.Payload)
		case TypeSendResult:
			c.handleResult(env)
		}
	}
}

func (c *Client) handleTemplates(payload []byte) {
	templates, err := c.codec.Decode(payload)
	if err != nil {
		// Keep the last known state; an empty decode replaces nothing.
		c.logger.Warn("mirror decode failed, keeping cached state", "error", err)
		return
	}

	c.cache.Store(templates)
	c.logger.Info("mirror updated", "templates", len(templates))

	if c.onTemplates != nil {
		c.onTemplates(templates)
	}
}

func (c *Client) handleResult(env Envelope) {
	c.pendingMu.Lock()
	ch, ok := c.pending[env.RequestID]
	if ok {
		delete(c.pending, env.RequestID)
	}
	c.pendingMu.Unlock()

	if ok {
		ch <- env
	}
}

func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// SendTemplate asks the phone to dispatch the template and blocks until the
// correlated result or the reachability timeout.
func (c *Client) SendTemplate(ctx context.Context, templateID uuid.UUID) error {
	c.connMu.Lock()
	ws := c.ws
	c.connMu.Unlock()
	if ws == nil {
		return ErrUnreachable
	}

	requestID := uuid.NewString()
	reply := make(chan Envelope, 1)

	c.pendingMu.Lock()
	c.pending[requestID] = reply
	c.pendingMu.Unlock()

	frame, err := json.Marshal(Envelope{
		Type:       TypeSendTemplate,
		RequestID:  requestID,
		TemplateID: templateID.String(),
	})
	if err != nil {
		return err
	}
	if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.dropPending(requestID)
		return fmt.Errorf("write request: %w", err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		c.dropPending(requestID)
		return ctx.Err()
	case <-timer.C:
		c.dropPending(requestID)
		return ErrUnreachable
	case env, ok := <-reply:
		if !ok {
			return ErrUnreachable
		}
		if !env.Success {
			return errors.New(env.Error)
		}
		return nil
	}
}

func (c *Client) dropPending(requestID string) {
	c.pendingMu.Lock()
	delete(c.pending, requestID)
	c.pendingMu.Unlock()
}
