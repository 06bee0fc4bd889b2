// Package geolocate is the signal-fusion feature: it dispatches the
// configured resolvers over an input record, fuses whatever signals
// come back into a single location estimate, and optionally persists
// the result to the spatial store. The HTTP surface and the one-shot
// CLI both sit on the Service in this package.
package geolocate
