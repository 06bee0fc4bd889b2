package resolver

import (
	"context"

	"geofuse/feature/geolocate/models"
)

// Resolver converts part of a record into at most one location signal.
//
// Implementations are fail-safe toward fusion: they return (nil, err)
// on any internal failure and the service logs it and counts it as "no
// signal". Returning (nil, nil) means the resolver had nothing to work
// with, which is the normal case for most records. Resolvers must honor
// context cancellation; the service derives a per-call timeout context
// for every dispatch.
type Resolver interface {
	// Name identifies the resolver in logs and cache keys.
	Name() string
	// Enabled reports whether the resolver should be dispatched at all.
	// Disabled resolvers are skipped without work.
	Enabled() bool
	// Resolve inspects the record and produces zero or one signal.
	Resolve(ctx context.Context, rec *models.Record) (*models.Signal, error)
}

// Keyer is implemented by resolvers whose remote calls are worth
// caching. The fingerprint must be a normalized, order-independent
// digest of the resolver's relevant input; ok=false means the record
// carries nothing for this resolver and caching is moot.
type Keyer interface {
	Fingerprint(rec *models.Record) (fp string, ok bool)
}
