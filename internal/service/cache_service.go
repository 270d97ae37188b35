package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

// Cache keys for registrar reference data. Keys are scoped per user since the registrar
// answers with department-specific lists.
const (
	CacheKeyAdminContext = "admin_context"
	CacheKeyCourses      = "courses"
	CacheKeyStudents     = "students"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type prefixPurger interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// CacheService orchestrates cache operations and related metrics.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry for the caller. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, name string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	key := scopedKey(ctx, name)
	err := s.repo.Get(ctx, key, dest)
	if err != nil {
		s.metrics.RecordCacheLookup(false)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheLookup(true)
	return true, nil
}

// Set stores the value for the caller.
func (s *CacheService) Set(ctx context.Context, name string, value interface{}) error {
	if !s.Enabled() {
		return nil
	}
	key := scopedKey(ctx, name)
	if err := s.repo.Set(ctx, key, value, s.defaultTTL); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Invalidate drops the caller's cached values for the given names.
func (s *CacheService) Invalidate(ctx context.Context, names ...string) error {
	if !s.Enabled() {
		return nil
	}
	var errs []error
	for _, name := range names {
		key := scopedKey(ctx, name)
		if err := s.repo.Delete(ctx, key); err != nil {
			s.logger.Warn("cache invalidate failed", zap.String("key", key), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Purge drops everything cached for the caller. Stores without prefix deletes fall back to
// the known list keys.
func (s *CacheService) Purge(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	purger, ok := s.repo.(prefixPurger)
	if !ok {
		return s.Invalidate(ctx, CacheKeyAdminContext, CacheKeyCourses, CacheKeyStudents)
	}
	prefix := scopedKey(ctx, "")
	n, err := purger.DeletePrefix(ctx, prefix)
	if err != nil {
		s.logger.Warn("cache purge failed", zap.String("prefix", prefix), zap.Error(err))
		return err
	}
	s.logger.Debug("cache purged", zap.String("prefix", prefix), zap.Int("keys", n))
	return nil
}

func scopedKey(ctx context.Context, name string) string {
	actor := session.FromContext(ctx).Actor()
	if actor == "" {
		actor = "anonymous"
	}
	return strings.Join([]string{"cache", actor, name}, ":")
}

// cached serves name from the cache when present, otherwise loads it and stores the result.
// Cache failures never fail the request.
func cached[T any](ctx context.Context, cache *CacheService, name string, load func(context.Context) (T, error)) (T, error) {
	var out T
	if hit, _ := cache.Get(ctx, name, &out); hit {
		return out, nil
	}
	out, err := load(ctx)
	if err != nil {
		return out, err
	}
	_ = cache.Set(ctx, name, out)
	return out, nil
}
