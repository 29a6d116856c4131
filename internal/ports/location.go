package ports

import (
	"context"

	"github.com/sitex/tgtemplates/internal/domain"
)

// Locator acquires a single current-location fix with a bounded one-shot
// request. Implementations do not retry; failure is reported to the caller,
// which treats it as best-effort.
type Locator interface {
	Current(ctx context.Context) (domain.Fix, error)
}
