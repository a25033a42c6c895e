package analyzer

import (
	"context"

	"github.com/flanksource/commons/logger"

	"github.com/crittrail/crittrail/internal/cache"
)

// CachingEngine wraps another engine with the content-addressed result
// cache. Results are keyed by engine name, content hash, profile hash and
// minimum severity, so a cached entry is only reused when the same bytes
// would be analyzed under the same settings. Cache failures are logged and
// the wrapped engine is consulted directly; the cache never turns a
// successful analysis into an error.
type CachingEngine struct {
	engine Engine
	cache  *cache.ResultCache
}

func WithCache(engine Engine, results *cache.ResultCache) *CachingEngine {
	return &CachingEngine{engine: engine, cache: results}
}

func (c *CachingEngine) Name() string { return c.engine.Name() }

func (c *CachingEngine) Version(ctx context.Context) (string, error) {
	return c.engine.Version(ctx)
}

func (c *CachingEngine) Analyze(ctx context.Context, req Request) (*Result, error) {
	key, ok := c.key(req)
	if !ok {
		return c.engine.Analyze(ctx, req)
	}

	set, metrics, hit, err := c.cache.Get(key)
	if err != nil {
		logger.Warnf("result cache lookup failed for %s: %v", req.Path, err)
	} else if hit {
		logger.Debugf("result cache hit for %s (%s)", req.Path, key.ContentHash[:12])
		return &Result{Set: set, Metrics: metrics}, nil
	}

	result, err := c.engine.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Put(key, result.Set, result.Metrics); err != nil {
		logger.Warnf("result cache store failed for %s: %v", req.Path, err)
	}
	return result, nil
}

// key derives the cache key for a request. Hashing can fail when the
// request points at an unreadable file; in that case the wrapped engine is
// called directly so the caller sees the engine's own error.
func (c *CachingEngine) key(req Request) (cache.Key, bool) {
	var contentHash string
	if req.Content != nil {
		contentHash = cache.ContentHash(req.Content)
	} else {
		h, err := cache.FileHash(req.Path)
		if err != nil {
			logger.Debugf("skipping result cache for %s: %v", req.Path, err)
			return cache.Key{}, false
		}
		contentHash = h
	}

	var profileHash string
	if req.Profile != "" {
		h, err := cache.FileHash(req.Profile)
		if err != nil {
			logger.Debugf("skipping result cache for %s: profile unreadable: %v", req.Path, err)
			return cache.Key{}, false
		}
		profileHash = h
	}

	return cache.Key{
		Engine:      c.engine.Name(),
		ContentHash: contentHash,
		ProfileHash: profileHash,
		MinSeverity: req.MinSeverity,
	}, true
}
