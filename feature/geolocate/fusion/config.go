package fusion

import "geofuse/feature/geolocate/models"

// DefaultCellPrecision is the geohash length stamped on estimates and
// persisted rows.
const DefaultCellPrecision = 9

// Multipliers is the priority-multiplier table for the weighting
// policy. Higher-priority signal types get a larger multiplier; the
// declared order is exif > landmark > wifi_cell > geocode > ip, with
// manual coordinates trusted like exif. The engine consumes this as
// data; no weighting decision branches on provider identity.
type Multipliers struct {
	EXIF     float64 `mapstructure:"exif" default:"4"`
	Manual   float64 `mapstructure:"manual" default:"4"`
	Landmark float64 `mapstructure:"landmark" default:"3"`
	WifiCell float64 `mapstructure:"wifi_cell" default:"2"`
	Geocode  float64 `mapstructure:"geocode" default:"1.5"`
	IP       float64 `mapstructure:"ip" default:"1"`
}

// Table expands the struct into the per-type lookup the engine works
// with. Unset (zero or negative) values fall back to the defaults so a
// partially configured table cannot zero out a signal type.
func (m Multipliers) Table() map[models.SignalType]float64 {
	def := DefaultConfig().Multipliers
	pick := func(v, d float64) float64 {
		if v <= 0 {
			return d
		}
		return v
	}
	return map[models.SignalType]float64{
		models.TypeEXIFImage: pick(m.EXIF, def.EXIF),
		models.TypeEXIFVideo: pick(m.EXIF, def.EXIF),
		models.TypeManual:    pick(m.Manual, def.Manual),
		models.TypeLandmark:  pick(m.Landmark, def.Landmark),
		models.TypeWifiCell:  pick(m.WifiCell, def.WifiCell),
		models.TypeGeocode:   pick(m.Geocode, def.Geocode),
		models.TypeIP:        pick(m.IP, def.IP),
	}
}

// Config tunes the fusion policy. All knobs are plain data so the
// weighting behavior is testable and tunable without code changes.
type Config struct {
	// Multipliers is the priority-multiplier table.
	Multipliers Multipliers `mapstructure:"multipliers"`
	// Damping caps the fused radius at Damping x the smallest
	// contributing radius, so combining signals never claims more
	// than slightly better precision than the best single signal.
	Damping float64 `mapstructure:"damping" default:"1.5"`
	// AgreementFactor scales the pairwise consistency test: two
	// signals agree when their distance is at most
	// AgreementFactor x (radius_i + radius_j). Below 1.0 the test is
	// stricter than plain circle overlap, which is what lets a precise
	// pin sitting in the outer reaches of a wide blob get flagged.
	AgreementFactor float64 `mapstructure:"agreement_factor" default:"0.75"`
	// CellPrecision is the geohash length for Estimate.SpatialCell.
	CellPrecision int `mapstructure:"cell_precision" default:"9"`
}

// DefaultConfig returns the policy used when configuration is absent.
func DefaultConfig() Config {
	return Config{
		Multipliers: Multipliers{
			EXIF:     4,
			Manual:   4,
			Landmark: 3,
			WifiCell: 2,
			Geocode:  1.5,
			IP:       1,
		},
		Damping:         1.5,
		AgreementFactor: 0.75,
		CellPrecision:   DefaultCellPrecision,
	}
}

// defaultRadiusM is the per-type accuracy radius substituted when a
// degenerate signal (zero/negative/NaN radius) survives into the
// fallback path. Values carried over from the platform's provider
// defaults.
var defaultRadiusM = map[models.SignalType]float64{
	models.TypeEXIFImage: 50,
	models.TypeEXIFVideo: 50,
	models.TypeManual:    50,
	models.TypeLandmark:  100,
	models.TypeWifiCell:  200,
	models.TypeGeocode:   5000,
	models.TypeIP:        20000,
}

// unknownRadiusM is the substitute for types missing from the table.
const unknownRadiusM = 10000

// priorityRank fixes the tie-break order between signal types when
// multipliers are equal. Lower rank wins.
var priorityRank = map[models.SignalType]int{
	models.TypeEXIFImage: 0,
	models.TypeEXIFVideo: 1,
	models.TypeManual:    2,
	models.TypeLandmark:  3,
	models.TypeWifiCell:  4,
	models.TypeGeocode:   5,
	models.TypeIP:        6,
}

// rank returns the tie-break rank for a type; unknown types sort last.
func rank(t models.SignalType) int {
	if r, ok := priorityRank[t]; ok {
		return r
	}
	return len(priorityRank)
}
