package resolver

import (
	"context"
	"fmt"
	"net"
	"time"

	"geofuse/feature/geolocate/models"

	"github.com/oschwald/geoip2-golang"
)

// defaultIPRadiusM is used when the database reports no accuracy radius
// for an address. IP geolocation is city-level at best.
const defaultIPRadiusM = 20000

// IPConfig configures the IP geolocation resolver.
type IPConfig struct {
	Enabled bool `mapstructure:"enabled" default:"true"`
	// DBPath is the MaxMind-format city database file. Empty disables
	// the resolver regardless of the flag, since there is nothing to
	// query.
	DBPath string `mapstructure:"db_path" default:""`
}

// cityReader is the slice of *geoip2.Reader the resolver uses; tests
// substitute a fake.
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// IP resolves a record's IP address against a local MaxMind-format
// database. Purely local, so it never goes through the cache wrapper.
type IP struct {
	cfg IPConfig
	db  cityReader
}

// NewIP opens the configured database. A missing or unreadable database
// is not an error: the resolver comes up disabled and the caller logs
// the degradation once at startup.
func NewIP(cfg IPConfig) (*IP, error) {
	r := &IP{cfg: cfg}
	if !cfg.Enabled || cfg.DBPath == "" {
		return r, nil
	}

	db, err := geoip2.Open(cfg.DBPath)
	if err != nil {
		return r, fmt.Errorf("open ip database %s: %w", cfg.DBPath, err)
	}
	r.db = db
	return r, nil
}

// newIPWithReader wires a fake database reader for tests.
func newIPWithReader(cfg IPConfig, db cityReader) *IP {
	return &IP{cfg: cfg, db: db}
}

func (r *IP) Name() string  { return "ip" }
func (r *IP) Enabled() bool { return r.cfg.Enabled && r.db != nil }

// Close releases the database handle.
func (r *IP) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Resolve looks up the record's IP. Private, loopback, and unlocatable
// addresses produce no signal.
func (r *IP) Resolve(_ context.Context, rec *models.Record) (*models.Signal, error) {
	if !r.Enabled() || rec.IP == "" {
		return nil, nil
	}

	ip := net.ParseIP(rec.IP)
	if ip == nil {
		return nil, fmt.Errorf("unparseable ip %q", rec.IP)
	}
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsUnspecified() {
		return nil, nil
	}

	city, err := r.db.City(ip)
	if err != nil {
		return nil, fmt.Errorf("ip lookup: %w", err)
	}
	// MaxMind returns a zero struct for addresses it has no data for.
	if city.Location.Latitude == 0 && city.Location.Longitude == 0 && city.City.GeoNameID == 0 {
		return nil, nil
	}

	// AccuracyRadius is kilometers in the database.
	radius := float64(city.Location.AccuracyRadius) * 1000
	if radius <= 0 {
		radius = defaultIPRadiusM
	}

	return &models.Signal{
		Type:       models.TypeIP,
		Lat:        city.Location.Latitude,
		Lon:        city.Location.Longitude,
		RadiusM:    radius,
		Confidence: 0.3,
		Source:     "maxmind:" + rec.IP,
		Timestamp:  time.Now().UTC(),
	}, nil
}
