package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/sitex/tgtemplates/internal/domain"
)

// Key layout of the shared trust-group store. All surfaces read these keys;
// only the phone surface writes the mirror and group cache.
const (
	keyMirror  = "tgtemplates:widgetTemplates"
	keyGroups  = "tgtemplates:cachedGroups"
	keyPending = "tgtemplates:pendingTemplateId"
	keyAPIID   = "tgtemplates:apiId"
	keyAPIHash = "tgtemplates:apiHash"
)

const apiHashLen = 32

// ErrNotConfigured is returned when the credential pair is absent or invalid.
var ErrNotConfigured = errors.New("telegram api credentials not configured")

// RedisStore implements ports.SharedStore on Redis, the stand-in for the
// app-group storage every surface can reach.
type RedisStore struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisStore(rdb *redis.Client, log *slog.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, log: log}
}

func (s *RedisStore) StoreMirror(ctx context.Context, payload []byte) error {
	return s.rdb.Set(ctx, keyMirror, payload, 0).Err()
}

func (s *RedisStore) LoadMirror(ctx context.Context) ([]byte, error) {
	data, err := s.rdb.Get(ctx, keyMirror).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

func (s *RedisStore) StoreGroups(ctx context.Context, groups []domain.Group) error {
	if groups == nil {
		groups = []domain.Group{}
	}
	b, err := json.Marshal(groups)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyGroups, b, 0).Err()
}

// LoadGroups returns the last cached snapshot. A corrupt value degrades to an
// empty list; the snapshot is never authoritative and is re-fetchable.
func (s *RedisStore) LoadGroups(ctx context.Context) ([]domain.Group, error) {
	data, err := s.rdb.Get(ctx, keyGroups).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.Group{}, nil
	}
	if err != nil {
		return nil, err
	}

	var groups []domain.Group
	if err := json.Unmarshal(data, &groups); err != nil {
		s.log.Warn("corrupt group cache, ignoring", "error", err)
		return []domain.Group{}, nil
	}
	return groups, nil
}

func (s *RedisStore) SetPending(ctx context.Context, id string) error {
	return s.rdb.Set(ctx, keyPending, id, 0).Err()
}

// TakePending reads and clears the pending marker atomically, so a marker is
// consumed exactly once even under concurrent activations.
func (s *RedisStore) TakePending(ctx context.Context) (string, bool, error) {
	id, err := s.rdb.GetDel(ctx, keyPending).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *RedisStore) Credentials(ctx context.Context) (int32, string, error) {
	id, err := s.rdb.Get(ctx, keyAPIID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, "", ErrNotConfigured
	}
	if err != nil {
		return 0, "", err
	}

	hash, err := s.rdb.Get(ctx, keyAPIHash).Result()
	if errors.Is(err, redis.Nil) {
		return 0, "", ErrNotConfigured
	}
	if err != nil {
		return 0, "", err
	}

	if id == 0 || len(hash) != apiHashLen {
		return 0, "", ErrNotConfigured
	}
	return int32(id), hash, nil
}

func (s *RedisStore) StoreCredentials(ctx context.Context, apiID int32, apiHash string) error {
	if apiID == 0 || len(apiHash) != apiHashLen {
		return ErrNotConfigured
	}
	if err := s.rdb.Set(ctx, keyAPIID, int(apiID), 0).Err(); err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyAPIHash, apiHash, 0).Err()
}
