package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores the session under "<prefix>:token" and "<prefix>:user".
// Writes and deletes go through MULTI/EXEC so a reader never sees one key
// without the other.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "portal"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) key(k string) string { return r.prefix + ":" + k }

func (r *Redis) Load(ctx context.Context) (string, string, error) {
	vals, err := r.rdb.MGet(ctx, r.key(KeyToken), r.key(KeyUser)).Result()
	if err != nil {
		return "", "", fmt.Errorf("load session: %w", err)
	}
	return asString(vals, 0), asString(vals, 1), nil
}

func (r *Redis) Save(ctx context.Context, token, user string) error {
	if token == "" || user == "" {
		return errors.New("save session: token and user are both required")
	}
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.key(KeyToken), token, 0)
		p.Set(ctx, r.key(KeyUser), user, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key(KeyToken), r.key(KeyUser)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func asString(vals []interface{}, i int) string {
	if i >= len(vals) || vals[i] == nil {
		return ""
	}
	s, _ := vals[i].(string)
	return s
}
