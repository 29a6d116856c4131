package shared_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sitex/tgtemplates/internal/domain"
	"github.com/sitex/tgtemplates/internal/shared"
)

func newStore(t *testing.T) *shared.RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return shared.NewRedisStore(rdb, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestMirrorRoundTrip(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	if err := s.StoreMirror(ctx, []byte(`[{"name":"a"}]`)); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	got, err := s.LoadMirror(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if string(got) != `[{"name":"a"}]` {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestLoadMirror_MissingIsNil(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	got, err := s.LoadMirror(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil payload, got %q", got)
	}
}

func TestGroupsRoundTrip(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	in := []domain.Group{
		{ID: -1001, Title: "Family", MemberCount: 4},
		{ID: -1002, Title: "Hiking", MemberCount: 12},
	}
	if err := s.StoreGroups(ctx, in); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	got, err := s.LoadGroups(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != 2 || got[0].Title != "Family" || got[1].MemberCount != 12 {
		t.Fatalf("unexpected groups %+v", got)
	}
}

func TestLoadGroups_CorruptDegradesToEmpty(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := shared.NewRedisStore(rdb, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	mr.Set("tgtemplates:cachedGroups", "{{{not json")

	got, err := s.LoadGroups(context.Background())
	if err != nil {
		t.Fatalf("expected degrade, got error %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}
}

func TestTakePending_ExactlyOnce(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	id := uuid.NewString()
	if err := s.SetPending(ctx, id); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, ok, err := s.TakePending(ctx)
	if err != nil || !ok {
		t.Fatalf("first take: ok=%v err=%v", ok, err)
	}
	if got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}

	_, ok, err = s.TakePending(ctx)
	if err != nil {
		t.Fatalf("second take errored: %v", err)
	}
	if ok {
		t.Fatal("marker taken twice")
	}
}

func TestTakePending_ConcurrentTakesYieldOneWinner(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	if err := s.SetPending(ctx, uuid.NewString()); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	const takers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < takers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.TakePending(ctx)
			if err != nil {
				t.Errorf("take failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestCredentials(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()
	hash := strings.Repeat("f", 32)

	if _, _, err := s.Credentials(ctx); !errors.Is(err, shared.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	if err := s.StoreCredentials(ctx, 12345, hash); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	id, gotHash, err := s.Credentials(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if id != 12345 || gotHash != hash {
		t.Fatalf("unexpected credentials %d %q", id, gotHash)
	}
}

func TestStoreCredentials_RejectsInvalid(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	if err := s.StoreCredentials(ctx, 0, strings.Repeat("f", 32)); !errors.Is(err, shared.ErrNotConfigured) {
		t.Fatalf("expected rejection of zero api id, got %v", err)
	}
	if err := s.StoreCredentials(ctx, 1, "short"); !errors.Is(err, shared.ErrNotConfigured) {
		t.Fatalf("expected rejection of short hash, got %v", err)
	}
}
