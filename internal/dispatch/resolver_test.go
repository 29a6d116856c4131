package dispatch_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/sitex/tgtemplates/internal/dispatch"
	"github.com/sitex/tgtemplates/internal/domain"
	"github.com/sitex/tgtemplates/internal/ports"
	"github.com/sitex/tgtemplates/internal/store"
)

type fakeAuth struct {
	state ports.AuthState
}

var _ ports.AuthStateReader = (*fakeAuth)(nil)

func (f *fakeAuth) Status() ports.AuthStatus {
	return ports.AuthStatus{State: f.state}
}

type fakeRepo struct {
	templates []domain.Template
}

var _ ports.TemplateRepo = (*fakeRepo)(nil)

func (f *fakeRepo) List(ctx context.Context) ([]domain.Template, error) {
	return f.templates, nil
}

func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (domain.Template, error) {
	for _, t := range f.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Template{}, store.ErrNotFound
}

func (f *fakeRepo) Upsert(ctx context.Context, t domain.Template) (domain.Template, error) {
	return t, errors.New("not implemented")
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.New("not implemented")
}

func (f *fakeRepo) Duplicate(ctx context.Context, id uuid.UUID) (domain.Template, error) {
	return domain.Template{}, errors.New("not implemented")
}

type fakeClient struct {
	// capture args
	gotChatID int64
	gotText   string
	calls     int

	// behavior
	err error
}

var _ ports.TelegramClient = (*fakeClient)(nil)

func (f *fakeClient) SendText(ctx context.Context, chatID int64, text string) error {
	f.calls++
	f.gotChatID = chatID
	f.gotText = text
	return f.err
}

func (f *fakeClient) ListGroups(ctx context.Context) ([]domain.Group, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) Close() {}

type fakeLocator struct {
	fix   domain.Fix
	err   error
	calls int
}

var _ ports.Locator = (*fakeLocator)(nil)

func (f *fakeLocator) Current(ctx context.Context) (domain.Fix, error) {
	f.calls++
	return f.fix, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func sendableTemplate(name string, includeLocation bool) domain.Template {
	groupID := int64(-100500)
	groupName := "Family"
	return domain.Template{
		ID:              uuid.New(),
		Name:            name,
		MessageText:     "on my way",
		TargetGroupID:   &groupID,
		TargetGroupName: &groupName,
		IncludeLocation: includeLocation,
	}
}

func TestSend_NotAuthenticated(t *testing.T) {
	t.Parallel()

	tpl := sendableTemplate("a", false)
	client := &fakeClient{}
	r := dispatch.NewResolver(
		&fakeAuth{state: ports.StateWaitingCode},
		&fakeRepo{templates: []domain.Template{tpl}},
		client,
		&fakeLocator{},
		discardLogger(),
	)

	// Same answer whether or not the id exists: auth is checked first.
	for _, id := range []uuid.UUID{tpl.ID, uuid.New()} {
		if err := r.Send(context.Background(), id); !errors.Is(err, dispatch.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
	}
	if client.calls != 0 {
		t.Fatalf("client invoked %d times while unauthenticated", client.calls)
	}
}

func TestSend_TemplateNotFound(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	r := dispatch.NewResolver(
		&fakeAuth{state: ports.StateReady},
		&fakeRepo{},
		client,
		&fakeLocator{},
		discardLogger(),
	)

	if err := r.Send(context.Background(), uuid.New()); !errors.Is(err, dispatch.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if client.calls != 0 {
		t.Fatal("client invoked for unknown template")
	}
}

func TestSend_NoTargetGroupNeverInvokesClient(t *testing.T) {
	t.Parallel()

	tpl := domain.Template{ID: uuid.New(), Name: "draft", MessageText: "hi"}
	client := &fakeClient{}
	r := dispatch.NewResolver(
		&fakeAuth{state: ports.StateReady},
		&fakeRepo{templates: []domain.Template{tpl}},
		client,
		&fakeLocator{},
		discardLogger(),
	)

	if err := r.Send(context.Background(), tpl.ID); !errors.Is(err, dispatch.ErrNoTargetGroup) {
		t.Fatalf("expected ErrNoTargetGroup, got %v", err)
	}
	if client.calls != 0 {
		t.Fatal("client invoked without a target group")
	}
}

func TestSend_DeliversLiteralText(t *testing.T) {
	t.Parallel()

	tpl := sendableTemplate("a", false)
	client := &fakeClient{}
	locator := &fakeLocator{}
	r := dispatch.NewResolver(
		&fakeAuth{state: ports.StateReady},
		&fakeRepo{templates: []domain.Template{tpl}},
		client,
		locator,
		discardLogger(),
	)

	if err := r.Send(context.Background(), tpl.ID); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if client.gotChatID != *tpl.TargetGroupID {
		t.Fatalf("sent to chat %d, want %d", client.gotChatID, *tpl.TargetGroupID)
	}
	if client.gotText != tpl.MessageText {
		t.Fatalf("text modified: %q", client.gotText)
	}
	if locator.calls != 0 {
		t.Fatal("location requested for a template without includeLocation")
	}
}

func TestSend_AppendsLocationLink(t *testing.T) {
	t.Parallel()

	tpl := sendableTemplate("a", true)
	client := &fakeClient{}
	locator := &fakeLocator{fix: domain.Fix{Lat: 47.5, Lon: 19.04}}
	r := dispatch.NewResolver(
		&fakeAuth{state: ports.StateReady},
		&fakeRepo{templates: []domain.Template{tpl}},
		client,
		locator,
		discardLogger(),
	)

	if err := r.Send(context.Background(), tpl.ID); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	want := tpl.MessageText + "\n" + locator.fix.MapsLink()
	if client.gotText != want {
		t.Fatalf("text = %q, want %q", client.gotText, want)
	}
}

func TestSend_LocationFailureStillDelivers(t *testing.T) {
	t.Parallel()

	tpl := sendableTemplate("a", true)
	client := &fakeClient{}
	locator := &fakeLocator{err: errors.New("gps denied")}
	r := dispatch.NewResolver(
		&fakeAuth{state: ports.StateReady},
		&fakeRepo{templates: []domain.Template{tpl}},
		client,
		locator,
		discardLogger(),
	)

	if err := r.Send(context.Background(), tpl.ID); err != nil {
		t.Fatalf("expected delivery despite location failure, got %v", err)
	}
	if client.gotText != tpl.MessageText {
		t.Fatalf("expected unmodified body, got %q", client.gotText)
	}
}

func TestSend_DeliveryFailureIsTyped(t *testing.T) {
	t.Parallel()

	tpl := sendableTemplate("a", false)
	client := &fakeClient{err: errors.New("FLOOD_WAIT_30")}
	r := dispatch.NewResolver(
		&fakeAuth{state: ports.StateReady},
		&fakeRepo{templates: []domain.Template{tpl}},
		client,
		&fakeLocator{},
		discardLogger(),
	)

	err := r.Send(context.Background(), tpl.ID)

	var de *dispatch.DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DeliveryError, got %T %v", err, err)
	}
	if !strings.Contains(de.Reason, "FLOOD_WAIT_30") {
		t.Fatalf("diagnostic lost: %q", de.Reason)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tpl := sendableTemplate("On My Way", false)
	r := dispatch.NewResolver(
		&fakeAuth{state: ports.StateReady},
		&fakeRepo{templates: []domain.Template{tpl}},
		&fakeClient{},
		&fakeLocator{},
		discardLogger(),
	)

	tests := []struct {
		name     string
		idOrName string
		wantID   uuid.UUID
		wantErr  error
	}{
		{name: "by id", idOrName: tpl.ID.String(), wantID: tpl.ID},
		{name: "by exact name", idOrName: "On My Way", wantID: tpl.ID},
		{name: "case-insensitive name", idOrName: "on my way", wantID: tpl.ID},
		{name: "unknown name", idOrName: "nope", wantErr: dispatch.ErrTemplateNotFound},
		{name: "unknown id", idOrName: uuid.NewString(), wantErr: dispatch.ErrTemplateNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.Resolve(context.Background(), tt.idOrName)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve failed: %v", err)
			}
			if got.ID != tt.wantID {
				t.Fatalf("resolved %s, want %s", got.ID, tt.wantID)
			}
		})
	}
}
