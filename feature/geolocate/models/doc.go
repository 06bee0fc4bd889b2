// Package models defines the data types flowing through the geolocate
// feature: the caller-supplied Record, the per-resolver Signal, and the
// fused Estimate.
//
// Signals and Estimates are transient: created and consumed within a
// single resolution call, never mutated after creation. Only the
// persisted estimate row (feature/geolocate/store) has a store-level
// lifecycle.
//
// The package also contains the sidecar XMP extraction helpers
// (ISO 6709 atoms, exif:GPS* tags, network hints) since those are pure
// data normalization over record fields.
package models
