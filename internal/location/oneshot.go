package location

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/sitex/tgtemplates/internal/domain"
	"github.com/sitex/tgtemplates/internal/ports"
)

// OneShot guards a Locator with a single pending request slot. Concurrent
// callers coalesce onto the in-flight fix, so a second caller receives the
// first caller's result instead of issuing a second request.
type OneShot struct {
	inner ports.Locator
	group singleflight.Group
}

func NewOneShot(inner ports.Locator) *OneShot {
	return &OneShot{inner: inner}
}

func (o *OneShot) Current(ctx context.Context) (domain.Fix, error) {
	v, err, _ := o.group.Do("fix", func() (any, error) {
		return o.inner.Current(ctx)
	})
	if err != nil {
		return domain.Fix{}, err
	}
	return v.(domain.Fix), nil
}
