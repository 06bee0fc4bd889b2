package resolver

import (
	"bytes"
	"context"
	"os"
	"time"

	"geofuse/feature/geolocate/models"

	"github.com/rwcarlsen/goexif/exif"
)

// exifRadiusM is the accuracy radius for GPS coordinates embedded by
// the capture device. Consumer GPS fixes are good to tens of meters.
const exifRadiusM = 50

// EXIFConfig configures the still-image metadata resolver.
type EXIFConfig struct {
	Enabled bool `mapstructure:"enabled" default:"true"`
}

// EXIFImage extracts GPS coordinates from a still image's EXIF block,
// falling back to the sidecar XMP text when the image itself carries
// none (some pipelines strip EXIF but keep the sidecar).
type EXIFImage struct {
	cfg EXIFConfig
}

// NewEXIFImage creates the resolver.
func NewEXIFImage(cfg EXIFConfig) *EXIFImage {
	return &EXIFImage{cfg: cfg}
}

func (r *EXIFImage) Name() string  { return "exif_image" }
func (r *EXIFImage) Enabled() bool { return r.cfg.Enabled }

// Resolve reads the image bytes (inline or from the materialized path)
// and pulls the GPS tags. Undecodable or GPS-less images degrade to the
// XMP fallback then to no signal, never to an error: stripped metadata
// is the common case, not a failure.
func (r *EXIFImage) Resolve(ctx context.Context, rec *models.Record) (*models.Signal, error) {
	if !r.Enabled() {
		return nil, nil
	}

	data := rec.ImageBytes
	if len(data) == 0 && rec.ImagePath != "" {
		b, err := os.ReadFile(rec.ImagePath)
		if err == nil {
			data = b
		}
	}

	if len(data) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if x, err := exif.Decode(bytes.NewReader(data)); err == nil {
			if lat, lon, err := x.LatLong(); err == nil {
				s := models.Signal{
					Type:       models.TypeEXIFImage,
					Lat:        lat,
					Lon:        lon,
					RadiusM:    exifRadiusM,
					Confidence: 0.9,
					Source:     "exif:gps",
					Timestamp:  time.Now().UTC(),
				}
				if s.Valid() {
					return &s, nil
				}
			}
		}
	}

	// Sidecar fallback.
	if rec.XMPText != "" {
		if lat, lon, ok := models.ExtractXMPGPS(rec.XMPText); ok {
			s := models.Signal{
				Type:       models.TypeEXIFImage,
				Lat:        lat,
				Lon:        lon,
				RadiusM:    exifRadiusM,
				Confidence: 0.85,
				Source:     "xmp:gps",
				Timestamp:  time.Now().UTC(),
			}
			if s.Valid() {
				return &s, nil
			}
		}
	}

	return nil, nil
}
