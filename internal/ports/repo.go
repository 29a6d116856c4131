package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/sitex/tgtemplates/internal/domain"
)

// TemplateRepo is the durable template list owned by the phone surface.
// Mutations are fully persisted before the call returns.
type TemplateRepo interface {
	List(ctx context.Context) ([]domain.Template, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Template, error)
	Upsert(ctx context.Context, t domain.Template) (domain.Template, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Duplicate copies everything except id and timestamps, derives the
	// name from the source and places the copy adjacent to it.
	Duplicate(ctx context.Context, id uuid.UUID) (domain.Template, error)
}
