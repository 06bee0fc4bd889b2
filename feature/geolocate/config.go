package geolocate

import (
	"time"

	"geofuse/feature/geolocate/fusion"
	"geofuse/feature/geolocate/resolver"
)

// Config is the feature's configuration surface: per-resolver sections,
// cache TTLs, the fusion policy, and the two time bounds of a record
// resolution.
type Config struct {
	Enabled bool `mapstructure:"enabled" default:"true"`

	// ResolverTimeoutSeconds bounds every individual resolver call.
	ResolverTimeoutSeconds int `mapstructure:"resolver_timeout_seconds" default:"8"`
	// RecordDeadlineSeconds is the soft per-record deadline: at the
	// deadline fusion proceeds with whatever signals have arrived.
	RecordDeadlineSeconds int `mapstructure:"record_deadline_seconds" default:"20"`

	IP       resolver.IPConfig       `mapstructure:"ip"`
	Geocode  resolver.GeocodeConfig  `mapstructure:"geocode"`
	WifiCell resolver.WifiCellConfig `mapstructure:"wifi_cell"`
	EXIF     resolver.EXIFConfig     `mapstructure:"exif"`
	Video    resolver.VideoConfig    `mapstructure:"video"`
	Landmark resolver.LandmarkConfig `mapstructure:"landmark"`
	Manual   resolver.ManualConfig   `mapstructure:"manual"`

	Cache  resolver.CacheTTLConfig `mapstructure:"cache"`
	Fusion fusion.Config           `mapstructure:"fusion"`
}

// ResolverTimeout returns the per-call timeout as a duration.
func (c Config) ResolverTimeout() time.Duration {
	if c.ResolverTimeoutSeconds <= 0 {
		return 8 * time.Second
	}
	return time.Duration(c.ResolverTimeoutSeconds) * time.Second
}

// RecordDeadline returns the soft per-record deadline as a duration.
func (c Config) RecordDeadline() time.Duration {
	if c.RecordDeadlineSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.RecordDeadlineSeconds) * time.Second
}
