package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "transfer:"
	redisResumableZs = "transfers:resumable"
)

// RedisStore is a key-value alternative to the Postgres store. Each transfer
// lives under transfer:<id>; ids of transfers awaiting continuation sit in a
// sorted set scored by creation time.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (r *RedisStore) Close() error { return r.rdb.Close() }

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisStore) Save(ctx context.Context, state *State) error {
	if state.ID == "" {
		return errors.New("transfer id is required")
	}
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode transfer: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, redisKeyPrefix+state.ID, blob, 0)
	if state.Phase == PhaseAttesting || state.Phase == PhaseMinting {
		pipe.ZAdd(ctx, redisResumableZs, redis.Z{
			Score:  float64(state.CreatedAt.UnixNano()),
			Member: state.ID,
		})
	} else {
		pipe.ZRem(ctx, redisResumableZs, state.ID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Load(ctx context.Context, id string) (*State, error) {
	blob, err := r.rdb.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var state State
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("decode transfer %s: %w", id, err)
	}
	return &state, nil
}

func (r *RedisStore) ListResumable(ctx context.Context, limit int) ([]*State, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := r.rdb.ZRange(ctx, redisResumableZs, 0, stop).Result()
	if err != nil {
		return nil, err
	}

	var out []*State
	for _, id := range ids {
		state, err := r.Load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Membership can outlive the record; drop the stale entry.
			r.rdb.ZRem(ctx, redisResumableZs, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
