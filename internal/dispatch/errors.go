package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated means the Telegram client is not in ready state.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrTemplateNotFound means the id does not resolve against the store.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrNoTargetGroup means the template has no target chat configured.
	ErrNoTargetGroup = errors.New("template has no target group")
)

// DeliveryError is a non-recoverable send failure carrying the client's
// diagnostic. The resolver never retries; the calling surface decides whether
// to offer a manual retry.
type DeliveryError struct {
	Reason string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed: %s", e.Reason)
}
