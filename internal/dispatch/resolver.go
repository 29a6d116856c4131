package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sitex/tgtemplates/internal/domain"
	"github.com/sitex/tgtemplates/internal/ports"
	"github.com/sitex/tgtemplates/internal/store"
)

// Resolver maps a template id to a single delivered message on the owning
// surface. It is the only component that talks to the Telegram client for
// sends, regardless of which surface the request originated from.
type Resolver struct {
	auth    ports.AuthStateReader
	repo    ports.TemplateRepo
	tgc     ports.TelegramClient
	locator ports.Locator
	logger  *slog.Logger
}

func NewResolver(
	auth ports.AuthStateReader,
	repo ports.TemplateRepo,
	tgc ports.TelegramClient,
	locator ports.Locator,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		auth:    auth,
		repo:    repo,
		tgc:     tgc,
		locator: locator,
		logger:  logger,
	}
}

// Send resolves and dispatches one template. Preconditions are checked in
// order: auth ready, template exists, template sendable. A location-fix
// failure is non-fatal: the message goes out with the unmodified body.
func (r *Resolver) Send(ctx context.Context, id uuid.UUID) error {
	if r.auth.Status().State != ports.StateReady {
		return ErrNotAuthenticated
	}

	tpl, err := r.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrTemplateNotFound
	}
	if err != nil {
		return err
	}

	if !tpl.Sendable() {
		return ErrNoTargetGroup
	}

	var fix *domain.Fix
	if tpl.IncludeLocation {
		f, err := r.locator.Current(ctx)
		if err != nil {
			// Best-effort: dispatch proceeds without the link.
			r.logger.Warn("location fix failed, sending without location",
				"template_id", tpl.ID, "error", err)
		} else {
			fix = &f
		}
	}

	text := domain.ComposeMessage(tpl.MessageText, fix)
	if err := r.tgc.SendText(ctx, *tpl.TargetGroupID, text); err != nil {
		return &DeliveryError{Reason: err.Error()}
	}

	r.logger.Info("template dispatched",
		"template_id", tpl.ID, "name", tpl.Name, "chat_id", *tpl.TargetGroupID)
	return nil
}

// Resolve finds a template by id string or, where an id is unavailable, by
// case-insensitive name against the owner list.
func (r *Resolver) Resolve(ctx context.Context, idOrName string) (domain.Template, error) {
	if id, err := uuid.Parse(idOrName); err == nil {
		tpl, err := r.repo.Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return domain.Template{}, ErrTemplateNotFound
		}
		return tpl, err
	}

	templates, err := r.repo.List(ctx)
	if err != nil {
		return domain.Template{}, err
	}
	for _, t := range templates {
		if strings.EqualFold(t.Name, idOrName) {
			return t, nil
		}
	}
	return domain.Template{}, ErrTemplateNotFound
}
