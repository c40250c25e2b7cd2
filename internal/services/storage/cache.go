package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/phambaophuc/watermark-tool/internal/models"
	"github.com/redis/go-redis/v9"
)

const ResultKeyPrefix = "watermark_result:"

// ResultKey is the Redis key of a stored result.
func ResultKey(messageID string) string {
	return ResultKeyPrefix + messageID
}

// SaveResult stores the result under its messageId and, when set, under the
// id of the request that produced it.
func (s *StorageService) SaveResult(ctx context.Context, stored *models.StoredResult) error {
	if stored == nil || stored.Result == nil {
		return fmt.Errorf("nothing to store")
	}
	if stored.StoredAt.IsZero() {
		stored.StoredAt = time.Now()
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	pipe := s.redisClient.TxPipeline()
	pipe.Set(ctx, ResultKey(stored.Result.MessageID), data, s.resultTTL)
	if stored.RequestID != "" && stored.RequestID != stored.Result.MessageID {
		pipe.Set(ctx, ResultKey(stored.RequestID), data, s.resultTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// GetResult returns nil, nil on a cache miss.
func (s *StorageService) GetResult(ctx context.Context, id string) (*models.StoredResult, error) {
	data, err := s.redisClient.Get(ctx, ResultKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	var stored models.StoredResult
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}
	return &stored, nil
}

func (s *StorageService) GetCacheStats(ctx context.Context) (map[string]interface{}, error) {
	pipeline := s.redisClient.Pipeline()

	infoCmd := pipeline.Info(ctx, "memory")
	dbSizeCmd := pipeline.DBSize(ctx)

	if _, err := pipeline.Exec(ctx); err != nil {
		return nil, fmt.Errorf("pipeline error: %w", err)
	}

	return map[string]interface{}{
		"db_keys": dbSizeCmd.Val(),
		"info":    infoCmd.Val(),
	}, nil
}
