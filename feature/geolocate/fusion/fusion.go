package fusion

import (
	"math"
	"sort"

	"geofuse/feature/geolocate/models"
)

// Engine combines the signals produced for one record into a single
// estimate. Fuse is a pure function of its signal set: no I/O, no
// clock, no hidden state, and the same signals in any order produce a
// bit-identical estimate (inputs are canonically sorted before any
// arithmetic).
type Engine struct {
	table     map[models.SignalType]float64
	damping   float64
	agreement float64
	precision int
}

// New builds an engine from the given policy. Zero or out-of-range
// knobs fall back to the defaults so a partially configured policy
// stays usable.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Damping <= 0 {
		cfg.Damping = def.Damping
	}
	if cfg.AgreementFactor <= 0 {
		cfg.AgreementFactor = def.AgreementFactor
	}
	if cfg.CellPrecision <= 0 || cfg.CellPrecision > 12 {
		cfg.CellPrecision = def.CellPrecision
	}
	return &Engine{
		table:     cfg.Multipliers.Table(),
		damping:   cfg.Damping,
		agreement: cfg.AgreementFactor,
		precision: cfg.CellPrecision,
	}
}

// Fuse merges 0..N signals into an estimate. Returns nil when no
// usable signal exists; the caller reports that as method "none".
func (e *Engine) Fuse(signals []models.Signal) *models.Estimate {
	n := len(signals)
	if n == 0 {
		return nil
	}

	sorted := make([]models.Signal, n)
	copy(sorted, signals)
	sortCanonical(sorted)

	if n == 1 {
		s := sorted[0]
		if !s.Valid() {
			return e.fallback(sorted)
		}
		return &models.Estimate{
			Lat:         s.Lat,
			Lon:         s.Lon,
			RadiusM:     s.RadiusM,
			Method:      models.MethodSingle(s.Type),
			Signals:     sorted,
			SpatialCell: CellID(s.Lat, s.Lon, e.precision),
		}
	}

	// Degenerate inputs route to the fallback path rather than
	// poisoning the weighted sums.
	for _, s := range sorted {
		if !s.Valid() {
			return e.fallback(sorted)
		}
	}
	if identicalCoords(sorted) {
		return e.fallback(sorted)
	}

	var sumW, sumWLat, sumWLon, sumWOverR float64
	minRadius := math.Inf(1)
	for _, s := range sorted {
		w := e.weight(s)
		sumW += w
		sumWLat += w * s.Lat
		sumWLon += w * s.Lon
		sumWOverR += w / s.RadiusM
		if s.RadiusM < minRadius {
			minRadius = s.RadiusM
		}
	}
	if !finite(sumW) || !finite(sumWLat) || !finite(sumWLon) || !finite(sumWOverR) || sumW <= 0 || sumWOverR <= 0 {
		return e.fallback(sorted)
	}

	lat := ClampLat(sumWLat / sumW)
	lon := WrapLon(sumWLon / sumW)

	// Pairwise agreement check. The disagreement distance of the worst
	// pair drives the inflated radius so the uncertainty circle still
	// covers both camps instead of collapsing to a false-precise point.
	consistent := true
	maxDisagreeM := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := HaversineM(sorted[i].Lat, sorted[i].Lon, sorted[j].Lat, sorted[j].Lon)
			if d > e.agreement*(sorted[i].RadiusM+sorted[j].RadiusM) {
				consistent = false
				if d > maxDisagreeM {
					maxDisagreeM = d
				}
			}
		}
	}

	// Weighted harmonic mean of the radii, capped so the combination
	// never claims much better precision than its tightest member.
	radius := sumW / sumWOverR
	if maxRadius := e.damping * minRadius; radius > maxRadius {
		radius = maxRadius
	}

	low := false
	if !consistent {
		low = true
		if half := maxDisagreeM / 2; radius < half {
			radius = half
		}
	}

	if !finite(lat) || !finite(lon) || !finite(radius) || radius <= 0 {
		return e.fallback(sorted)
	}

	return &models.Estimate{
		Lat:           lat,
		Lon:           lon,
		RadiusM:       radius,
		Method:        models.MethodFused(n),
		LowConfidence: low,
		Signals:       sorted,
		SpatialCell:   CellID(lat, lon, e.precision),
	}
}

// weight implements the policy: inverse-square accuracy radius scaled
// by the type's priority multiplier.
func (e *Engine) weight(s models.Signal) float64 {
	mult, ok := e.table[s.Type]
	if !ok || mult <= 0 {
		mult = 1
	}
	return mult / (s.RadiusM * s.RadiusM)
}

// fallback returns the single highest-priority signal with usable
// coordinates, substituting the type's default radius when the
// signal's own radius is unusable. Returns nil when every signal has
// broken coordinates.
func (e *Engine) fallback(sorted []models.Signal) *models.Estimate {
	idx := -1
	for i, s := range sorted {
		if coordsUsable(s) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	s := sorted[idx]
	radius := s.RadiusM
	if !finite(radius) || radius <= 0 {
		def, ok := defaultRadiusM[s.Type]
		if !ok {
			def = unknownRadiusM
		}
		radius = def
	}

	return &models.Estimate{
		Lat:         s.Lat,
		Lon:         s.Lon,
		RadiusM:     radius,
		Method:      models.MethodFallback(s.Type),
		Signals:     sorted,
		SpatialCell: CellID(s.Lat, s.Lon, e.precision),
	}
}

// sortCanonical orders signals by priority rank and then by every
// remaining field, giving a total order. Fusing a signal set in any
// input order therefore walks the exact same float additions. NaN
// fields sort last within their key so degenerate signals cannot make
// the order input-dependent.
func sortCanonical(signals []models.Signal) {
	sort.Slice(signals, func(i, j int) bool {
		a, b := signals[i], signals[j]
		if ra, rb := rank(a.Type), rank(b.Type); ra != rb {
			return ra < rb
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if differ(a.RadiusM, b.RadiusM) {
			return floatLess(a.RadiusM, b.RadiusM)
		}
		if differ(a.Lat, b.Lat) {
			return floatLess(a.Lat, b.Lat)
		}
		if differ(a.Lon, b.Lon) {
			return floatLess(a.Lon, b.Lon)
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Confidence < b.Confidence
	})
}

// differ reports whether two floats order differently, treating all
// NaNs as equal to each other.
func differ(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return false
	}
	return a != b
}

// floatLess orders floats with NaN after every number.
func floatLess(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a < b
}

func identicalCoords(signals []models.Signal) bool {
	for _, s := range signals[1:] {
		if s.Lat != signals[0].Lat || s.Lon != signals[0].Lon {
			return false
		}
	}
	return true
}

func coordsUsable(s models.Signal) bool {
	return !math.IsNaN(s.Lat) && !math.IsInf(s.Lat, 0) && s.Lat >= -90 && s.Lat <= 90 &&
		!math.IsNaN(s.Lon) && !math.IsInf(s.Lon, 0) && s.Lon >= -180 && s.Lon <= 180
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
