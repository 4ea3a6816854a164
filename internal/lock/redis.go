package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fundprep/examgen/internal/exam"
)

const keyPrefix = "examgen:session:"

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another replica is left alone.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// NewClient creates a Redis client and pings the server to ensure
// connectivity.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return client, nil
}

// RedisGuard is an exam.Guard shared by every replica that talks to the
// same Redis. A held session expires after ttl even if its holder dies.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	token  func() string
	log    *zap.Logger
}

// NewRedisGuard creates a guard. ttl must exceed the action timeout.
func NewRedisGuard(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisGuard {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisGuard{client: client, ttl: ttl, token: uuid.NewString, log: log}
}

func (g *RedisGuard) Acquire(ctx context.Context, session string) (func(), error) {
	key := keyPrefix + session
	token := g.token()

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, exam.ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The action context may be gone by now.
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := g.client.Eval(rctx, releaseScript, []string{key}, token).Err(); err != nil {
				g.log.Warn("failed to release session lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}
