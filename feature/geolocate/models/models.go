package models

import (
	"fmt"
	"math"
	"time"
)

// SignalType identifies which kind of resolver produced a signal.
type SignalType string

const (
	TypeIP        SignalType = "ip"
	TypeGeocode   SignalType = "geocode"
	TypeWifiCell  SignalType = "wifi_cell"
	TypeEXIFImage SignalType = "exif_image"
	TypeEXIFVideo SignalType = "exif_video"
	TypeLandmark  SignalType = "landmark_visual"
	// TypeManual covers coordinates supplied directly on the record
	// (analyst-entered or collector-trusted check-ins).
	TypeManual SignalType = "manual"
)

// Signal is a single resolver's location estimate with provenance.
// Signals are produced fresh per resolution call and never mutated
// after creation.
type Signal struct {
	Type SignalType `json:"type"`
	Lat  float64    `json:"lat"`
	Lon  float64    `json:"lon"`
	// RadiusM is the accuracy radius in meters (uncertainty, not
	// confidence): the resolver believes the true location lies within
	// this distance of (Lat, Lon).
	RadiusM float64 `json:"radius_m"`
	// Confidence in [0,1] is provider-reported quality where available
	// (landmark similarity score); informational, the fusion weighting
	// works off RadiusM.
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

// Valid reports whether the signal carries usable coordinates and a
// positive, finite radius.
func (s Signal) Valid() bool {
	if math.IsNaN(s.Lat) || math.IsInf(s.Lat, 0) || s.Lat < -90 || s.Lat > 90 {
		return false
	}
	if math.IsNaN(s.Lon) || math.IsInf(s.Lon, 0) || s.Lon < -180 || s.Lon > 180 {
		return false
	}
	if math.IsNaN(s.RadiusM) || math.IsInf(s.RadiusM, 0) || s.RadiusM <= 0 {
		return false
	}
	return true
}

// WifiAP is one observed wireless access point.
type WifiAP struct {
	BSSID string `json:"bssid"`
	RSSI  int    `json:"rssi,omitempty"`
}

// CellTower is one observed cell tower.
type CellTower struct {
	MCC int `json:"mcc"`
	MNC int `json:"mnc"`
	LAC int `json:"lac"`
	CID int `json:"cid"`
}

// Record is the caller-supplied bag of optional fields describing one
// OSINT artifact. No two fields are mutually required; any subset may
// be absent. Resolvers pick out the parts they understand.
type Record struct {
	IP         string     `json:"ip,omitempty"`
	Text       string     `json:"text,omitempty"`
	ImagePath  string     `json:"image_path,omitempty"`
	ImageBytes []byte     `json:"image_bytes,omitempty"`
	VideoPath  string     `json:"video_path,omitempty"`
	Wifi       []WifiAP   `json:"wifi,omitempty"`
	Cell       *CellTower `json:"cell,omitempty"`
	Lat        *float64   `json:"lat,omitempty"`
	Lon        *float64   `json:"lon,omitempty"`
	XMPText    string     `json:"xmp_text,omitempty"`
}

// Clone returns an independent copy of the record. The service mutates
// its copy when injecting sidecar network hints; the caller's record
// must stay untouched.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.ImageBytes != nil {
		out.ImageBytes = append([]byte(nil), r.ImageBytes...)
	}
	if r.Wifi != nil {
		out.Wifi = append([]WifiAP(nil), r.Wifi...)
	}
	if r.Cell != nil {
		cell := *r.Cell
		out.Cell = &cell
	}
	if r.Lat != nil {
		lat := *r.Lat
		out.Lat = &lat
	}
	if r.Lon != nil {
		lon := *r.Lon
		out.Lon = &lon
	}
	return &out
}

// Empty reports whether the record carries nothing any resolver could
// work with.
func (r *Record) Empty() bool {
	return r == nil || (r.IP == "" && r.Text == "" && r.ImagePath == "" &&
		len(r.ImageBytes) == 0 && r.VideoPath == "" && len(r.Wifi) == 0 &&
		r.Cell == nil && r.Lat == nil && r.XMPText == "")
}

// Estimate is the fused location result for one record.
type Estimate struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	RadiusM float64 `json:"radius_m"`
	// Method records how the estimate was produced: "single:<type>",
	// "fused:<n>", or "fallback:<type>".
	Method string `json:"method"`
	// LowConfidence marks estimates whose contributing signals disagree
	// with each other; the radius then encodes the disagreement instead
	// of hiding it.
	LowConfidence bool     `json:"low_confidence,omitempty"`
	Signals       []Signal `json:"signals"`
	// SpatialCell is the geohash cell of the fused point at the
	// configured precision.
	SpatialCell string `json:"spatial_cell,omitempty"`
}

// Method strings. Kept as constructors so fusion, service and tests
// cannot drift apart on formatting.
const MethodNone = "none"

// MethodSingle is the method for an estimate backed by exactly one signal.
func MethodSingle(t SignalType) string { return "single:" + string(t) }

// MethodFused is the method for the normal weighted path over n signals.
func MethodFused(n int) string { return fmt.Sprintf("fused:%d", n) }

// MethodFallback is the method when degenerate inputs forced the engine
// to fall back to the single highest-priority signal.
func MethodFallback(t SignalType) string { return "fallback:" + string(t) }
