package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/supersteprun/graph/graph"
)

// RedisStore is a graph.Store backed by Redis: each checkpoint is a JSON
// blob under "<prefix>:<thread>:<step>", and a per-thread sorted set
// "<prefix>:<thread>:steps" tracks known step numbers so ListSteps and "load
// latest" don't require a key scan.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisStoreOptions configures NewRedisStore.
type RedisStoreOptions struct {
	// Client is a pre-constructed go-redis client (e.g. pointed at a real
	// Redis instance, or one wrapping a miniredis.Server in tests).
	Client *redis.Client
	// Prefix namespaces every key this store writes. Defaults to "graph".
	Prefix string
}

// NewRedisStore wraps opts.Client as a graph.Store.
func NewRedisStore(opts RedisStoreOptions) *RedisStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "graph"
	}
	return &RedisStore{client: opts.Client, prefix: prefix}
}

func (r *RedisStore) stepsKey(thread string) string {
	return fmt.Sprintf("%s:%s:steps", r.prefix, thread)
}

func (r *RedisStore) checkpointKey(thread string, step int) string {
	return fmt.Sprintf("%s:%s:%d", r.prefix, thread, step)
}

func (r *RedisStore) threadsKey() string {
	return r.prefix + ":threads"
}

// Save implements graph.Store.
func (r *RedisStore) Save(ctx context.Context, cp graph.Checkpoint) error {
	rec := toRecord(cp)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: marshal checkpoint: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.checkpointKey(cp.ThreadID, cp.Step), data, 0)
	pipe.ZAdd(ctx, r.stepsKey(cp.ThreadID), redis.Z{Score: float64(cp.Step), Member: cp.Step})
	pipe.SAdd(ctx, r.threadsKey(), cp.ThreadID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: save checkpoint: %w", err)
	}
	return nil
}

// Load implements graph.Store.
func (r *RedisStore) Load(ctx context.Context, thread string, step int, hasStep bool) (graph.Checkpoint, bool, error) {
	if !hasStep {
		latest, err := r.client.ZRevRangeWithScores(ctx, r.stepsKey(thread), 0, 0).Result()
		if err != nil {
			return graph.Checkpoint{}, false, fmt.Errorf("store: find latest step: %w", err)
		}
		if len(latest) == 0 {
			return graph.Checkpoint{}, false, nil
		}
		step = int(latest[0].Score)
	}

	data, err := r.client.Get(ctx, r.checkpointKey(thread, step)).Bytes()
	if err == redis.Nil {
		return graph.Checkpoint{}, false, nil
	}
	if err != nil {
		return graph.Checkpoint{}, false, fmt.Errorf("store: load checkpoint: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return graph.Checkpoint{}, false, fmt.Errorf("store: unmarshal checkpoint: %w", err)
	}
	return rec.toCheckpoint(), true, nil
}

// ListThreads implements graph.Store.
func (r *RedisStore) ListThreads(ctx context.Context) ([]string, error) {
	threads, err := r.client.SMembers(ctx, r.threadsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("store: list threads: %w", err)
	}
	sort.Strings(threads)
	return threads, nil
}

// ListSteps implements graph.Store.
func (r *RedisStore) ListSteps(ctx context.Context, thread string) ([]int, error) {
	members, err := r.client.ZRangeWithScores(ctx, r.stepsKey(thread), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: list steps: %w", err)
	}
	out := make([]int, 0, len(members))
	for _, m := range members {
		out = append(out, int(m.Score))
	}
	sort.Ints(out)
	return out, nil
}

// Delete implements graph.Store.
func (r *RedisStore) Delete(ctx context.Context, thread string) error {
	steps, err := r.ListSteps(ctx, thread)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(steps)+1)
	for _, step := range steps {
		keys = append(keys, r.checkpointKey(thread, step))
	}
	keys = append(keys, r.stepsKey(thread))

	pipe := r.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.SRem(ctx, r.threadsKey(), thread)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: delete thread: %w", err)
	}
	return nil
}
