package cache

import (
	"context"
	"time"

	"github.com/genflow/genflow/engine/core"
	"github.com/genflow/genflow/engine/queue"
)

const defaultStopFlagTTL = 10 * time.Minute

// RedisFlagStore implements queue.FlagStore on Redis. Flag entries are
// write-once with a TTL so a stop request issued against a task that already
// finished expires on its own.
type RedisFlagStore struct {
	client RedisInterface
	ttl    time.Duration
}

func NewRedisFlagStore(client RedisInterface, ttl time.Duration) *RedisFlagStore {
	if ttl <= 0 {
		ttl = defaultStopFlagTTL
	}
	return &RedisFlagStore{client: client, ttl: ttl}
}

func (s *RedisFlagStore) SetStopFlag(
	ctx context.Context,
	taskID core.ID,
	invokeFrom core.InvokeFrom,
	userID string,
) error {
	key := queue.StopFlagKey(taskID, invokeFrom, userID)
	return s.client.Set(ctx, key, "1", s.ttl).Err()
}

func (s *RedisFlagStore) IsStopped(
	ctx context.Context,
	taskID core.ID,
	invokeFrom core.InvokeFrom,
	userID string,
) (bool, error) {
	key := queue.StopFlagKey(taskID, invokeFrom, userID)
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisFlagStore) ClearStopFlag(
	ctx context.Context,
	taskID core.ID,
	invokeFrom core.InvokeFrom,
	userID string,
) error {
	key := queue.StopFlagKey(taskID, invokeFrom, userID)
	return s.client.Del(ctx, key).Err()
}
