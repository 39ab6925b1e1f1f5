package itemgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// CredentialOracle is the remote authority on credential validity.
// Implementations return (false, nil) when the oracle explicitly rejects the
// credential, and a non-nil error (ideally wrapping ErrOracleUnavailable) when
// no verdict could be obtained.
type CredentialOracle interface {
	Validate(ctx context.Context, credential string) (bool, error)
}

// CacheObserver receives validation cache events, typically for metrics.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
	OracleError()
}

type noopCacheObserver struct{}

func (noopCacheObserver) CacheHit()    {}
func (noopCacheObserver) CacheMiss()   {}
func (noopCacheObserver) OracleError() {}

const (
	// DefaultCacheMaxEntries bounds the cache when CacheConfig.MaxEntries is zero.
	DefaultCacheMaxEntries = 10000
	// DefaultCacheTTL applies when CacheConfig.TTL is zero.
	DefaultCacheTTL = 24 * time.Hour
)

// CacheConfig configures a ValidationCache. Zero values select defaults.
type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
	Now        func() time.Time
	Observer   CacheObserver
}

type cacheEntry struct {
	valid     bool
	checkedAt time.Time
}

// ValidationCache memoizes oracle verdicts, bounded by entry count and by a
// fixed time-to-live per entry. It is safe for concurrent use. Concurrent
// misses for the same credential share a single oracle call.
type ValidationCache struct {
	oracle   CredentialOracle
	entries  *lru.Cache[string, cacheEntry]
	ttl      time.Duration
	now      func() time.Time
	observer CacheObserver
	group    singleflight.Group
}

// NewValidationCache creates a ValidationCache in front of oracle.
func NewValidationCache(oracle CredentialOracle, cfg CacheConfig) (*ValidationCache, error) {
	if oracle == nil {
		return nil, errors.New("new validation cache: oracle cannot be nil")
	}

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	var observer CacheObserver = noopCacheObserver{}
	if cfg.Observer != nil {
		observer = cfg.Observer
	}

	entries, err := lru.New[string, cacheEntry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("new validation cache: %w", err)
	}

	return &ValidationCache{
		oracle:   oracle,
		entries:  entries,
		ttl:      ttl,
		now:      now,
		observer: observer,
	}, nil
}

// Check reports whether credential is valid. A live entry answers without
// contacting the oracle. Otherwise the oracle is asked once, and its verdict,
// valid or not, is stored. Oracle failures are returned wrapped in
// ErrOracleUnavailable and are never cached.
//
// The oracle call is shared by every concurrent caller for the same
// credential, so it runs detached from ctx cancellation. Bounding its
// duration is left to the oracle.
func (c *ValidationCache) Check(ctx context.Context, credential string) (bool, error) {
	if entry, ok := c.lookup(credential); ok {
		c.observer.CacheHit()
		return entry.valid, nil
	}

	v, err, _ := c.group.Do(credential, func() (any, error) {
		// a concurrent flight may have finished between lookup and Do
		if entry, ok := c.lookup(credential); ok {
			c.observer.CacheHit()
			return entry.valid, nil
		}

		c.observer.CacheMiss()
		valid, err := c.oracle.Validate(context.WithoutCancel(ctx), credential)
		if err != nil {
			c.observer.OracleError()
			return false, err
		}

		c.entries.Add(credential, cacheEntry{valid: valid, checkedAt: c.now()})
		return valid, nil
	})
	if err != nil {
		if errors.Is(err, ErrOracleUnavailable) {
			return false, fmt.Errorf("check credential: %w", err)
		}
		return false, fmt.Errorf("check credential: %w: %w", ErrOracleUnavailable, err)
	}

	return v.(bool), nil
}

// lookup returns the live entry for credential. Peek keeps insertion order
// intact, so overflow evicts the oldest check rather than the least used.
func (c *ValidationCache) lookup(credential string) (cacheEntry, bool) {
	entry, ok := c.entries.Peek(credential)
	if !ok {
		return cacheEntry{}, false
	}

	if c.now().Sub(entry.checkedAt) >= c.ttl {
		return cacheEntry{}, false
	}

	return entry, true
}

// Len returns the number of entries, expired ones included.
func (c *ValidationCache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry.
func (c *ValidationCache) Purge() {
	c.entries.Purge()
}
