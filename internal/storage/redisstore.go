package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/vtsentry/vtsentry/internal/storage/models"
)

const historyKey = "vtsentry:scan_history"

// RedisStore implements ResultStore using a redis list. LPUSH keeps the
// list newest-first, so LRANGE returns history in contract order.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(cfg *Config) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}
	return &RedisStore{client: rdb}, nil
}

// Append pushes the record onto the head of the history list.
func (r *RedisStore) Append(ctx context.Context, record models.ScanRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}
	if err := r.client.LPush(ctx, historyKey, data).Err(); err != nil {
		return &PersistenceError{Op: "append", Err: err}
	}
	return nil
}

// Load retrieves all records, newest-first. Undecodable entries are
// skipped with a warning.
func (r *RedisStore) Load(ctx context.Context) ([]models.ScanRecord, error) {
	values, err := r.client.LRange(ctx, historyKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	var records []models.ScanRecord
	for _, val := range values {
		var record models.ScanRecord
		if err := json.Unmarshal([]byte(val), &record); err != nil {
			logrus.WithError(err).Warn("Skipping undecodable scan record")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// FindFreshByHash linearly scans history for the head-most match within maxAge.
func (r *RedisStore) FindFreshByHash(ctx context.Context, hash string, maxAge time.Duration) (*models.ScanRecord, error) {
	records, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	return findFresh(records, hash, maxAge, time.Now().UTC()), nil
}

func (r *RedisStore) Close(ctx context.Context) error {
	return r.client.Close()
}
