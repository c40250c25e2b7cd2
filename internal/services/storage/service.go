package storage

import (
	"time"

	"github.com/phambaophuc/watermark-tool/internal/config"
	"github.com/redis/go-redis/v9"
	storage_go "github.com/supabase-community/storage-go"
)

type StorageService struct {
	sbClient    *storage_go.Client
	redisClient *redis.Client
	bucket      string
	resultTTL   time.Duration
}

// NewStorageService wires Redis for results and, when configured, Supabase
// Storage for archived outputs.
func NewStorageService(cfg *config.Config) (*StorageService, error) {
	var sbClient *storage_go.Client
	if cfg.Supabase.Configured() {
		sbClient = storage_go.NewClient(cfg.Supabase.URL+"/storage/v1", cfg.Supabase.KEY, nil)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	return &StorageService{
		sbClient:    sbClient,
		redisClient: redisClient,
		bucket:      cfg.Supabase.BUCKET,
		resultTTL:   cfg.Redis.ResultTTL,
	}, nil
}

// ArchiveEnabled reports whether Upload can reach Supabase.
func (s *StorageService) ArchiveEnabled() bool {
	return s.sbClient != nil
}

// Close releases the Redis pool.
func (s *StorageService) Close() error {
	return s.redisClient.Close()
}
