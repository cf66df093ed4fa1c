package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ziwuxx-intake/utils"
)

const (
	listCacheKey      = "inquiries:all"
	listGenerationKey = "inquiries:gen"
	initialGeneration = "0"
)

// CachedRepository keeps the FindAll result in Redis under a key that
// carries the current list generation. Every successful Create bumps the
// generation, so a list read before the write can only ever be stored
// under a generation no later reader will ask for. Cache errors never
// fail a call; the wrapped repository is used instead.
type CachedRepository struct {
	Repository
	cache  utils.RedisClient
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedRepository(repo Repository, cache utils.RedisClient, ttl time.Duration, logger *zap.Logger) *CachedRepository {
	return &CachedRepository{
		Repository: repo,
		cache:      cache,
		ttl:        ttl,
		logger:     logger,
	}
}

func listKey(generation string) string {
	return listCacheKey + ":" + generation
}

func (r *CachedRepository) Create(ctx context.Context, inquiry *Inquiry) error {
	if err := r.Repository.Create(ctx, inquiry); err != nil {
		return err
	}
	if _, err := r.cache.IncrementCounter(ctx, listGenerationKey); err != nil {
		r.logger.Warn("failed to bump inquiry list generation", zap.Error(err))
		r.dropCurrent(ctx)
	}
	return nil
}

// dropCurrent deletes the entry of the current generation when the
// generation itself could not be advanced.
func (r *CachedRepository) dropCurrent(ctx context.Context) {
	generation, err := r.generation(ctx)
	if err != nil {
		return
	}
	if err := r.cache.DeleteFromCache(ctx, listKey(generation)); err != nil {
		r.logger.Warn("failed to invalidate inquiry list cache", zap.Error(err))
	}
}

func (r *CachedRepository) generation(ctx context.Context) (string, error) {
	generation, err := r.cache.GetFromCache(ctx, listGenerationKey)
	if errors.Is(err, redis.Nil) {
		return initialGeneration, nil
	}
	return generation, err
}

func (r *CachedRepository) FindAll(ctx context.Context) ([]Inquiry, error) {
	// The generation must be read before the table so a concurrent Create
	// moves readers past whatever this call stores.
	generation, err := r.generation(ctx)
	if err != nil {
		r.logger.Warn("inquiry list cache read failed", zap.Error(err))
		return r.Repository.FindAll(ctx)
	}
	key := listKey(generation)

	raw, err := r.cache.GetFromCache(ctx, key)
	switch {
	case err == nil:
		var inquiries []Inquiry
		decodeErr := json.Unmarshal([]byte(raw), &inquiries)
		if decodeErr == nil {
			return inquiries, nil
		}
		r.logger.Warn("discarding corrupt inquiry list cache entry", zap.Error(decodeErr))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("inquiry list cache read failed", zap.Error(err))
	}

	inquiries, err := r.Repository.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(inquiries)
	if err != nil {
		r.logger.Warn("failed to encode inquiry list for cache", zap.Error(err))
		return inquiries, nil
	}
	if err := r.cache.SetToCache(ctx, key, string(payload), r.ttl); err != nil {
		r.logger.Warn("failed to cache inquiry list", zap.Error(err))
	}
	return inquiries, nil
}
