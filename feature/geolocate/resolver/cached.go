package resolver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"geofuse/core/cache"
	"geofuse/feature/geolocate/models"

	"golang.org/x/sync/singleflight"
)

// CacheTTLConfig holds the per-resolver cache lifetimes.
type CacheTTLConfig struct {
	// GeocodeTTLSeconds caches geocoding results; place names do not
	// move, so a day is conservative.
	GeocodeTTLSeconds int `mapstructure:"geocode_ttl_seconds" default:"86400"`
	// WifiCellTTLSeconds caches positioning fixes for a radio
	// fingerprint. Access points do occasionally relocate.
	WifiCellTTLSeconds int `mapstructure:"wifi_cell_ttl_seconds" default:"86400"`
	// NegativeTTLSeconds caches "no result" outcomes, shorter than the
	// positive TTL so a provider blip does not blind us for a day.
	NegativeTTLSeconds int `mapstructure:"negative_ttl_seconds" default:"3600"`
}

// CachedResolver is the contract for resolvers that can sit behind the
// cache wrapper: a resolver that also knows how to fingerprint its
// relevant input.
type CachedResolver interface {
	Resolver
	Keyer
}

// Cached memoizes a remote-backed resolver in a cache.Store.
//
// Hits return the cached signal (or cached "no signal") without a
// remote call. Misses go through singleflight so concurrent resolutions
// of the same fingerprint make one provider call; that is best-effort,
// a duplicate remote call after a race is wasteful but never incorrect.
// Resolver errors are not cached: a provider outage should not poison
// the fingerprint for the full negative TTL.
type Cached struct {
	inner  CachedResolver
	store  cache.Store
	ttl    time.Duration
	negTTL time.Duration
	group  singleflight.Group
}

// NewCached wraps inner with the cache. A nil store turns the wrapper
// into a pass-through.
func NewCached(inner CachedResolver, store cache.Store, ttl, negTTL time.Duration) *Cached {
	return &Cached{inner: inner, store: store, ttl: ttl, negTTL: negTTL}
}

func (c *Cached) Name() string  { return c.inner.Name() }
func (c *Cached) Enabled() bool { return c.inner.Enabled() }

// key builds the cache key from the resolver name and the hashed
// fingerprint, so raw inputs (addresses, BSSIDs) never appear in the
// cache backend.
func (c *Cached) key(fp string) string {
	sum := sha256.Sum256([]byte(fp))
	return "geo:" + c.inner.Name() + ":" + hex.EncodeToString(sum[:])
}

// Resolve serves from cache when possible, otherwise calls the wrapped
// resolver and stores the outcome. The cached value is the JSON signal,
// with JSON null standing for a cached miss.
func (c *Cached) Resolve(ctx context.Context, rec *models.Record) (*models.Signal, error) {
	if !c.inner.Enabled() {
		return nil, nil
	}

	fp, ok := c.inner.Fingerprint(rec)
	if !ok || c.store == nil {
		return c.inner.Resolve(ctx, rec)
	}
	key := c.key(fp)

	if raw, hit := c.store.Get(ctx, key); hit {
		var sig *models.Signal
		if err := json.Unmarshal(raw, &sig); err == nil {
			return sig, nil
		}
		// Undecodable entry: fall through and refresh it.
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		sig, err := c.inner.Resolve(ctx, rec)
		if err != nil {
			return nil, err
		}

		ttl := c.ttl
		if sig == nil {
			ttl = c.negTTL
		}
		if raw, err := json.Marshal(sig); err == nil {
			c.store.Set(ctx, key, raw, ttl)
		}
		return sig, nil
	})
	if err != nil {
		return nil, err
	}
	sig, _ := v.(*models.Signal)
	return sig, nil
}
