package tg

import (
	"errors"
	"sync"

	"github.com/zelenin/go-tdlib/client"

	"github.com/sitex/tgtemplates/internal/ports"
)

var errAuthClosed = errors.New("authorizer closed")

// Authorizer drives TDLib's authorization flow and exposes it as the
// observable state machine the UI surfaces gate on. User-entered values
// arrive through the Submit* methods; a failed check records an inline error
// and stays in the same state, so the state-specific screen remains active.
type Authorizer struct {
	params *client.SetTdlibParametersRequest

	phone    chan string
	code     chan string
	password chan string
	done     chan struct{}

	mu     sync.Mutex
	status ports.AuthStatus
}

func NewAuthorizer(params *client.SetTdlibParametersRequest) *Authorizer {
	return &Authorizer{
		params:   params,
		phone:    make(chan string, 1),
		code:     make(chan string, 1),
		password: make(chan string, 1),
		done:     make(chan struct{}),
		status:   ports.AuthStatus{State: ports.StateLoading},
	}
}

func (a *Authorizer) Status() ports.AuthStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

func (a *Authorizer) SubmitPhone(phone string) { submit(a.phone, phone) }

func (a *Authorizer) SubmitCode(code string) { submit(a.code, code) }

func (a *Authorizer) SubmitPassword(password string) { submit(a.password, password) }

// submit replaces any not-yet-consumed value so the latest entry wins.
func submit(ch chan string, v string) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// Handle implements client.AuthorizationStateHandler. It is called from the
// TDLib update loop; blocking here on a submit channel is the library's own
// authorizer pattern.
func (a *Authorizer) Handle(c *client.Client, state client.AuthorizationState) error {
	switch state.AuthorizationStateType() {
	case client.TypeAuthorizationStateWaitTdlibParameters:
		a.transition(ports.StateLoading, "")
		if _, err := c.SetTdlibParameters(a.params); err != nil {
			a.transition(ports.StateError, err.Error())
			return err
		}
		return nil

	case client.TypeAuthorizationStateWaitPhoneNumber:
		a.transition(ports.StateWaitingPhone, "")
		return a.await(a.phone, func(phone string) error {
			_, err := c.SetAuthenticationPhoneNumber(&client.SetAuthenticationPhoneNumberRequest{
				PhoneNumber: phone,
			})
			return err
		})

	case client.TypeAuthorizationStateWaitCode:
		detail := ""
		if s, ok := state.(*client.AuthorizationStateWaitCode); ok && s.CodeInfo != nil {
			detail = describeCodeType(s.CodeInfo.Type)
		}
		a.transition(ports.StateWaitingCode, detail)
		return a.await(a.code, func(code string) error {
			_, err := c.CheckAuthenticationCode(&client.CheckAuthenticationCodeRequest{
				Code: code,
			})
			return err
		})

	case client.TypeAuthorizationStateWaitPassword:
		hint := ""
		if s, ok := state.(*client.AuthorizationStateWaitPassword); ok {
			hint = s.PasswordHint
		}
		a.transition(ports.StateWaitingPassword, hint)
		return a.await(a.password, func(password string) error {
			_, err := c.CheckAuthenticationPassword(&client.CheckAuthenticationPasswordRequest{
				Password: password,
			})
			return err
		})

	case client.TypeAuthorizationStateReady:
		a.transition(ports.StateReady, "")
		return nil

	case client.TypeAuthorizationStateClosed:
		a.transition(ports.StateClosed, "")
		return nil

	default:
		return nil
	}
}

func (a *Authorizer) Close() {
	select {
	case <-a.done:
	default:
		close(a.done)
	}
}

// await feeds submitted values to the check operation until one succeeds.
// A failed check does not advance the state: the inline error is recorded
// and the next submitted value is tried.
func (a *Authorizer) await(ch chan string, check func(string) error) error {
	for {
		select {
		case <-a.done:
			return errAuthClosed
		case v := <-ch:
			if err := check(v); err != nil {
				a.inlineError(err.Error())
				continue
			}
			return nil
		}
	}
}

func (a *Authorizer) transition(state ports.AuthState, detail string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = ports.AuthStatus{State: state, Detail: detail}
}

func (a *Authorizer) inlineError(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status.Detail = msg
}

func describeCodeType(t client.AuthenticationCodeType) string {
	if t == nil {
		return ""
	}
	switch t.AuthenticationCodeTypeType() {
	case client.TypeAuthenticationCodeTypeTelegramMessage:
		return "Code sent via Telegram message"
	case client.TypeAuthenticationCodeTypeSms:
		return "Code sent via SMS"
	case client.TypeAuthenticationCodeTypeCall:
		return "Code will be delivered via phone call"
	case client.TypeAuthenticationCodeTypeFlashCall:
		return "Code will be delivered via flash call"
	default:
		return "Code sent"
	}
}
