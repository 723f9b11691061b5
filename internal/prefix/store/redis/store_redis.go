package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"

	"postcheck/internal/prefix/models"
	"postcheck/internal/prefix/store"
)

// DefaultKey is the set holding the registry.
const DefaultKey = "postal_prefixes"

// bootstrapScript marks the registry as bootstrapped and seeds it, in one
// atomic step. KEYS[1] is the prefix set, KEYS[2] the marker; ARGV[1] is the
// marker value and ARGV[2:] the seed.
var bootstrapScript = redis.NewScript(`
if not redis.call('SET', KEYS[2], ARGV[1], 'NX') then
	return 0
end
if redis.call('SCARD', KEYS[1]) > 0 then
	return 0
end
if #ARGV > 1 then
	redis.call('SADD', KEYS[1], unpack(ARGV, 2))
end
return 1
`)

// RedisStore keeps the registry in a single Redis set. SADD and SREM report
// how many members changed, which makes them the uniqueness arbiters.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKey overrides the set key.
func WithKey(key string) RedisStoreOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}

// NewRedis constructs a Redis-backed prefix store. The client lifecycle is
// managed by the caller.
func NewRedis(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client, key: DefaultKey}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) markerKey() string {
	return s.key + ":bootstrap"
}

func (s *RedisStore) List(ctx context.Context) ([]models.Prefix, error) {
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, wrap("list prefixes", err)
	}
	slices.Sort(members)
	prefixes := make([]models.Prefix, len(members))
	for i, m := range members {
		prefixes[i] = models.Prefix(m)
	}
	return prefixes, nil
}

func (s *RedisStore) Exists(ctx context.Context, prefix models.Prefix) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key, prefix.String()).Result()
	if err != nil {
		return false, wrap("check prefix", err)
	}
	return ok, nil
}

func (s *RedisStore) Add(ctx context.Context, prefix models.Prefix) error {
	added, err := s.client.SAdd(ctx, s.key, prefix.String()).Result()
	if err != nil {
		return wrap("add prefix", err)
	}
	if added == 0 {
		return fmt.Errorf("add prefix %s: %w", prefix, store.ErrAlreadyUsed)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, prefix models.Prefix) error {
	removed, err := s.client.SRem(ctx, s.key, prefix.String()).Result()
	if err != nil {
		return wrap("remove prefix", err)
	}
	if removed == 0 {
		return fmt.Errorf("remove prefix %s: %w", prefix, store.ErrNotFound)
	}
	return nil
}

func (s *RedisStore) Bootstrap(ctx context.Context, seed []models.Prefix) (bool, error) {
	args := make([]any, 0, len(seed)+1)
	args = append(args, store.BootstrapName)
	for _, p := range seed {
		args = append(args, p.String())
	}
	n, err := bootstrapScript.Run(ctx, s.client, []string{s.key, s.markerKey()}, args...).Int()
	if err != nil {
		return false, wrap("bootstrap prefixes", err)
	}
	return n == 1, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return wrap("ping redis", s.client.Ping(ctx).Err())
}

func wrap(op string, err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
	}
	return store.Wrap(op, err)
}
