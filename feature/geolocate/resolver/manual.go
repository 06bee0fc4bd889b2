package resolver

import (
	"context"
	"time"

	"geofuse/feature/geolocate/models"
)

// manualRadiusM is the accuracy radius assigned to coordinates supplied
// directly on the record. They are analyst-entered or collector-trusted
// check-ins, so they get a tight radius but not a zero one.
const manualRadiusM = 50

// ManualConfig configures the manual-coordinates resolver.
type ManualConfig struct {
	Enabled bool `mapstructure:"enabled" default:"true"`
}

// Manual turns explicit lat/lon fields on the record into a signal.
type Manual struct {
	cfg ManualConfig
}

// NewManual creates the manual resolver.
func NewManual(cfg ManualConfig) *Manual {
	return &Manual{cfg: cfg}
}

func (r *Manual) Name() string  { return "manual" }
func (r *Manual) Enabled() bool { return r.cfg.Enabled }

// Resolve returns a signal when the record carries both coordinates and
// they are in range.
func (r *Manual) Resolve(_ context.Context, rec *models.Record) (*models.Signal, error) {
	if !r.Enabled() || rec.Lat == nil || rec.Lon == nil {
		return nil, nil
	}

	s := models.Signal{
		Type:       models.TypeManual,
		Lat:        *rec.Lat,
		Lon:        *rec.Lon,
		RadiusM:    manualRadiusM,
		Confidence: 1,
		Source:     "record",
		Timestamp:  time.Now().UTC(),
	}
	if !s.Valid() {
		return nil, nil
	}
	return &s, nil
}
