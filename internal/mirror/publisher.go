package mirror

import (
	"context"
	"log/slog"
	"time"

	"github.com/sitex/tgtemplates/internal/domain"
	"github.com/sitex/tgtemplates/internal/ports"
)

// Transport pushes mirror payloads toward the watch. PushContext is durable:
// the payload is retained and replayed until a newer one replaces it.
// PushImmediate is attempted only against currently reachable peers and is
// not retried.
type Transport interface {
	PushContext(payload []byte)
	PushImmediate(payload []byte)
}

// Publisher re-derives the full widget projection on every mutation of the
// owning list and pushes the entire list, never a delta, to the shared store
// and the watch transport. Push failures degrade to last-known-state and are
// never surfaced to the mutating caller.
type Publisher struct {
	codec     Codec
	shared    ports.SharedStore
	transport Transport
	log       *slog.Logger

	timeout time.Duration
}

func NewPublisher(shared ports.SharedStore, transport Transport, log *slog.Logger) *Publisher {
	return &Publisher{
		shared:    shared,
		transport: transport,
		log:       log,
		timeout:   5 * time.Second,
	}
}

func (p *Publisher) Publish(templates []domain.Template) {
	payload, err := p.codec.Encode(domain.Project(templates))
	if err != nil {
		p.log.Error("mirror encode failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.shared.StoreMirror(ctx, payload); err != nil {
		p.log.Error("mirror store failed", "error", err)
	}

	if p.transport != nil {
		p.transport.PushContext(payload)
		p.transport.PushImmediate(payload)
	}

	p.log.Debug("mirror published", "templates", len(templates))
}
