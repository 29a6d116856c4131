package ports

import (
	"context"

	"github.com/sitex/tgtemplates/internal/domain"
)

// AuthState is the authorization state machine driven by the Telegram client.
// Dispatch is permitted only in StateReady.
type AuthState string

const (
	StateLoading         AuthState = "loading"
	StateWaitingPhone    AuthState = "waitingPhoneNumber"
	StateWaitingCode     AuthState = "waitingCode"
	StateWaitingPassword AuthState = "waitingPassword"
	StateReady           AuthState = "ready"
	StateClosed          AuthState = "closed"
	StateError           AuthState = "error"
)

// AuthStatus is the observable snapshot of the state machine. Detail carries
// the code-delivery description or password hint for the waiting states, and
// the diagnostic for StateError.
type AuthStatus struct {
	State  AuthState
	Detail string
}

// AuthStateReader exposes the current authorization state to consumers that
// only need to gate on it.
type AuthStateReader interface {
	Status() AuthStatus
}

// AuthSubmitter forwards user-entered values to the client's corresponding
// submit operations. A failed submit leaves the state where it was.
type AuthSubmitter interface {
	SubmitPhone(phone string)
	SubmitCode(code string)
	SubmitPassword(password string)
}

// TelegramClient is the messaging backend, implemented by the TDLib adapter.
type TelegramClient interface {
	// SendText delivers a single message to the chat: no reply threading,
	// no formatting entities, draft cleared.
	SendText(ctx context.Context, chatID int64, text string) error
	// ListGroups lists non-channel groups and supergroups with member
	// counts. Per-chat lookup failures omit that chat.
	ListGroups(ctx context.Context) ([]domain.Group, error)
	Close()
}
