package ports

import (
	"context"

	"github.com/sitex/tgtemplates/internal/domain"
)

// SharedStore is the persisted state readable by every surface in the trust
// group: the widget mirror, the cached group snapshot, the single pending
// send marker and the API credentials.
type SharedStore interface {
	StoreMirror(ctx context.Context, payload []byte) error
	LoadMirror(ctx context.Context) ([]byte, error)

	StoreGroups(ctx context.Context, groups []domain.Group) error
	LoadGroups(ctx context.Context) ([]domain.Group, error)

	// SetPending writes the pending-template-id marker. TakePending reads
	// and clears it atomically; ok is false when no marker was set.
	SetPending(ctx context.Context, id string) error
	TakePending(ctx context.Context) (id string, ok bool, err error)

	Credentials(ctx context.Context) (apiID int32, apiHash string, err error)
	StoreCredentials(ctx context.Context, apiID int32, apiHash string) error
}
