package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sitex/tgtemplates/internal/domain"
	"github.com/sitex/tgtemplates/internal/ports"
)

// GroupRefresher replaces the cached group snapshot wholesale from the chat
// client. The operation is idempotent and re-runnable; the cache is a
// best-effort snapshot, never authoritative.
type GroupRefresher struct {
	auth   ports.AuthStateReader
	tgc    ports.TelegramClient
	shared ports.SharedStore
	logger *slog.Logger
}

func NewGroupRefresher(
	auth ports.AuthStateReader,
	tgc ports.TelegramClient,
	shared ports.SharedStore,
	logger *slog.Logger,
) *GroupRefresher {
	return &GroupRefresher{auth: auth, tgc: tgc, shared: shared, logger: logger}
}

func (g *GroupRefresher) Refresh(ctx context.Context) ([]domain.Group, error) {
	if g.auth.Status().State != ports.StateReady {
		return nil, ErrNotAuthenticated
	}

	groups, err := g.tgc.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch groups: %w", err)
	}

	if err := g.shared.StoreGroups(ctx, groups); err != nil {
		// The fetch succeeded; a stale cache degrades, not fails.
		g.logger.Error("group cache store failed", "error", err)
	}

	g.logger.Info("group snapshot replaced", "groups", len(groups))
	return groups, nil
}

func (g *GroupRefresher) Cached(ctx context.Context) ([]domain.Group, error) {
	return g.shared.LoadGroups(ctx)
}
