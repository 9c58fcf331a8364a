package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledgerimport/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "ledgerimport"

// ImportStatusCache tracks queued imports and throttles uploads per tenant.
type ImportStatusCache interface {
	SetImport(ctx context.Context, job *models.ImportJob, ttl time.Duration) error
	// GetImport returns nil without error on a cache miss.
	GetImport(ctx context.Context, tenantID, importID uuid.UUID) (*models.ImportJob, error)
	DeleteImport(ctx context.Context, tenantID, importID uuid.UUID) error

	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	Ping(ctx context.Context) error
}

type redisImportCache struct {
	client *redis.Client
}

// NormalizeAddr strips a redis:// or rediss:// scheme from addr.
func NormalizeAddr(addr string) string {
	for _, scheme := range []string{"redis://", "rediss://"} {
		if strings.HasPrefix(addr, scheme) {
			return strings.TrimPrefix(addr, scheme)
		}
	}
	return addr
}

func NewRedisImportCache(addr, password string, db int, logger logrus.FieldLogger) ImportStatusCache {
	client := redis.NewClient(&redis.Options{
		Addr:     NormalizeAddr(addr),
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.WithError(err).WithField("addr", NormalizeAddr(addr)).Warn("redis ping failed on initialization")
	}

	return &redisImportCache{client: client}
}

// NewImportCacheFromClient wraps an existing client.
func NewImportCacheFromClient(client *redis.Client) ImportStatusCache {
	return &redisImportCache{client: client}
}

func importKey(tenantID, importID uuid.UUID) string {
	return fmt.Sprintf("%s:import:%s:%s", keyPrefix, tenantID, importID)
}

func rateLimitKey(key string) string {
	return fmt.Sprintf("%s:ratelimit:%s", keyPrefix, key)
}

func (r *redisImportCache) SetImport(ctx context.Context, job *models.ImportJob, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, importKey(job.TenantID, job.ID), data, ttl).Err()
}

func (r *redisImportCache) GetImport(ctx context.Context, tenantID, importID uuid.UUID) (*models.ImportJob, error) {
	data, err := r.client.Get(ctx, importKey(tenantID, importID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var job models.ImportJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *redisImportCache) DeleteImport(ctx context.Context, tenantID, importID uuid.UUID) error {
	return r.client.Del(ctx, importKey(tenantID, importID)).Err()
}

func (r *redisImportCache) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := rateLimitKey(key)
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return true, err
	}

	// first hit in the window
	if count == 1 {
		r.client.Expire(ctx, cacheKey, window)
	}

	return count > int64(limit), nil
}

func (r *redisImportCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
