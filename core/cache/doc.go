// Package cache provides the shared TTL cache behind the remote-backed
// resolvers.
//
// The Store interface is injected explicitly (no global singleton) so the
// geolocate feature's tests can substitute fakes, and so a Redis-backed
// implementation can be swapped in without touching resolver code. The
// in-tree Memory implementation keeps per-entry TTLs with lazy expiry,
// mirroring the behavior the platform previously got from its Redis
// layer's in-process fallback.
package cache
