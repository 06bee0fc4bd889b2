// Package resolver holds the pluggable signal resolvers: each one maps
// part of an input record (IP, free text, Wi-Fi/cell observations,
// embedded media metadata, visual landmarks, explicit coordinates) to
// zero or one location signal. Resolvers are independent, individually
// disable-able, and fail-safe; the Cached wrapper memoizes the ones
// backed by billed or rate-limited remote services.
package resolver
