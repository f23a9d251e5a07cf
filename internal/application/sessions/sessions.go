package sessions

import (
	"context"

	"assetverse-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const userSessionsPrefix = "user_sessions:"

func userKey(email string) string {
	return userSessionsPrefix + email
}

// Track records sid under the identity so every session of that identity can be revoked.
func Track(ctx context.Context, rdb *redis.Client, email, sid string) error {
	return rdb.SAdd(ctx, userKey(email), sid).Err()
}

// Forget drops one session: its data and its entry in the identity's set.
func Forget(ctx context.Context, rdb *redis.Client, email, sid string) error {
	pipe := rdb.TxPipeline()
	if email != "" {
		pipe.SRem(ctx, userKey(email), sid)
	}
	pipe.Del(ctx, middleware.SessionRedisPrefix+sid)
	_, err := pipe.Exec(ctx)
	return err
}

// DestroyAll removes every session recorded for email and returns how many were revoked.
func DestroyAll(ctx context.Context, rdb *redis.Client, email string) (int, error) {
	if email == "" {
		return 0, nil
	}
	key := userKey(email)
	ids, err := rdb.SMembers(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, sid := range ids {
		keys = append(keys, middleware.SessionRedisPrefix+sid)
	}
	keys = append(keys, key)
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, err
	}
	return len(ids), nil
}
