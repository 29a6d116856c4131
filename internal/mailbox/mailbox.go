package mailbox

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sitex/tgtemplates/internal/dispatch"
	"github.com/sitex/tgtemplates/internal/ports"
)

// Sender dispatches one template by id; satisfied by dispatch.Resolver.
type Sender interface {
	Send(ctx context.Context, id uuid.UUID) error
}

// Consumer drains the single pending-template-id marker that out-of-process
// triggers (widget tap, voice shortcut, deep link) leave in the shared store
// when they cannot hold a live channel to the owning surface.
type Consumer struct {
	shared ports.SharedStore
	sender Sender
	logger *slog.Logger
}

func NewConsumer(shared ports.SharedStore, sender Sender, logger *slog.Logger) *Consumer {
	return &Consumer{shared: shared, sender: sender, logger: logger}
}

// Check takes the marker, if any, and acts on it exactly once. No marker is a
// no-op. A marker that does not resolve (unknown template, malformed id) is
// still consumed: there is no stale retry.
func (c *Consumer) Check(ctx context.Context) {
	raw, ok, err := c.shared.TakePending(ctx)
	if err != nil {
		c.logger.Error("pending marker read failed", "error", err)
		return
	}
	if !ok {
		return
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		c.logger.Warn("pending marker malformed, dropped", "marker", raw)
		return
	}

	if err := c.sender.Send(ctx, id); err != nil {
		if errors.Is(err, dispatch.ErrTemplateNotFound) {
			c.logger.Warn("pending template no longer exists, dropped", "template_id", id)
			return
		}
		c.logger.Error("pending template send failed", "template_id", id, "error", err)
		return
	}

	c.logger.Info("pending template sent", "template_id", id)
}
