package tutorRepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"tutorhive/models"
	"tutorhive/utils"
)

// TutorCachePrefix namespaces tutor profile entries in redis.
const TutorCachePrefix = "tutor:"

const tutorCacheTTL = 5 * time.Minute

// CachedTutorRepo is a read-through cache in front of a TutorRepository.
// Conflict checks hit the tutor profile on every booking attempt; caching it
// keeps that off Mongo. Writes invalidate the entry.
type CachedTutorRepo struct {
	inner TutorRepository
	cache *redis.Client
}

// NewCachedTutorRepo wraps a repository with the redis cache.
func NewCachedTutorRepo(inner TutorRepository, cache *redis.Client) *CachedTutorRepo {
	return &CachedTutorRepo{inner: inner, cache: cache}
}

func (r *CachedTutorRepo) GetByID(ctx context.Context, id string) (*models.TutorProfile, error) {
	key := TutorCachePrefix + id
	if raw, err := r.cache.Get(ctx, key).Result(); err == nil {
		var t models.TutorProfile
		if err := json.Unmarshal([]byte(raw), &t); err == nil {
			return &t, nil
		}
		// A corrupt entry falls through to the source and gets rewritten.
		_ = r.cache.Del(ctx, key).Err()
	}

	t, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(t); err == nil {
		if err := r.cache.Set(ctx, key, raw, tutorCacheTTL).Err(); err != nil {
			utils.GetLogger().Warn("failed to cache tutor profile",
				zap.String("tutorID", id), zap.Error(err))
		}
	}
	return t, nil
}

func (r *CachedTutorRepo) Upsert(ctx context.Context, tutor *models.TutorProfile) error {
	if err := r.inner.Upsert(ctx, tutor); err != nil {
		return err
	}
	r.invalidate(ctx, tutor.ID)
	return nil
}

func (r *CachedTutorRepo) SetWeeklyAvailability(ctx context.Context, id string, weekly models.WeeklyAvailability) error {
	if err := r.inner.SetWeeklyAvailability(ctx, id, weekly); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedTutorRepo) invalidate(ctx context.Context, id string) {
	if err := r.cache.Del(ctx, TutorCachePrefix+id).Err(); err != nil {
		utils.GetLogger().Error("failed to clear tutor cache",
			zap.String("tutorID", id), zap.Error(err))
	}
}
