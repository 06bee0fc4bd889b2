package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"geofuse/feature/geolocate/models"

	"golang.org/x/time/rate"
)

// Radii for the two text-derived signal shapes: an explicit coordinate
// pair pasted into a post is trusted to block level, a geocoded "in
// <City>" mention only to city level.
const (
	textLatLonRadiusM  = 2000
	geocodedCityRadius = 5000
)

var (
	// latLonRe matches a decimal coordinate pair like "48.8584, 2.2945".
	latLonRe = regexp.MustCompile(`(-?\d{1,2}\.\d+),\s*(-?\d{1,3}\.\d+)`)
	// inCityRe matches "in <Capitalized Place>" mentions, up to three
	// capitalized words ("in Rio de Janeiro" loses its particles but
	// still geocodes).
	inCityRe = regexp.MustCompile(`\bin\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+){0,2})`)
)

// Geocoder turns a place name into coordinates. Implementations wrap
// third-party services and are chained first-wins by the resolver.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, place string) (lat, lon float64, err error)
}

// GeocodeConfig configures the free-text geocoding resolver.
type GeocodeConfig struct {
	Enabled bool `mapstructure:"enabled" default:"true"`
	// PreferOrder is the comma-separated provider chain; the first
	// provider to return coordinates wins.
	PreferOrder string `mapstructure:"prefer_order" default:"nominatim,mapbox,google"`
	// NominatimURL is the Nominatim base URL. The public instance
	// requires an identifying User-Agent and at most one request per
	// second; both are enforced by the client.
	NominatimURL string `mapstructure:"nominatim_url" default:"https://nominatim.openstreetmap.org"`
	UserAgent    string `mapstructure:"user_agent" default:"geofuse/1.0"`
	// MapboxKey and GoogleKey enable the paid fallbacks; empty keys
	// drop the provider from the chain.
	MapboxKey string `mapstructure:"mapbox_key" default:""`
	GoogleKey string `mapstructure:"google_key" default:""`
}

// Geocode resolves location mentions in a record's free text. An
// explicit "lat, lon" pair in the text wins without any remote call;
// otherwise an "in <City>" mention is geocoded through the provider
// chain.
type Geocode struct {
	cfg       GeocodeConfig
	geocoders []Geocoder
}

// NewGeocode builds the resolver with the provider chain assembled from
// configuration. Providers without credentials are skipped.
func NewGeocode(cfg GeocodeConfig, httpClient *http.Client) *Geocode {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	available := map[string]Geocoder{}
	if cfg.NominatimURL != "" {
		available["nominatim"] = NewNominatim(cfg.NominatimURL, cfg.UserAgent, httpClient)
	}
	if cfg.MapboxKey != "" {
		available["mapbox"] = &Mapbox{Token: cfg.MapboxKey, Client: httpClient}
	}
	if cfg.GoogleKey != "" {
		available["google"] = &GoogleGeocoder{Key: cfg.GoogleKey, Client: httpClient}
	}

	var chain []Geocoder
	for _, name := range strings.Split(cfg.PreferOrder, ",") {
		if g, ok := available[strings.TrimSpace(strings.ToLower(name))]; ok {
			chain = append(chain, g)
		}
	}

	return &Geocode{cfg: cfg, geocoders: chain}
}

// newGeocodeWithChain wires an explicit provider chain for tests.
func newGeocodeWithChain(cfg GeocodeConfig, chain ...Geocoder) *Geocode {
	return &Geocode{cfg: cfg, geocoders: chain}
}

func (r *Geocode) Name() string  { return "geocode" }
func (r *Geocode) Enabled() bool { return r.cfg.Enabled }

// Fingerprint keys the cache on the normalized text, since the whole
// resolution is a pure function of it.
func (r *Geocode) Fingerprint(rec *models.Record) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(rec.Text))
	if t == "" {
		return "", false
	}
	return t, true
}

// Resolve scans the record text for location content.
func (r *Geocode) Resolve(ctx context.Context, rec *models.Record) (*models.Signal, error) {
	if !r.Enabled() || strings.TrimSpace(rec.Text) == "" {
		return nil, nil
	}

	// Explicit coordinates in the text need no provider.
	if m := latLonRe.FindStringSubmatch(rec.Text); m != nil {
		lat, err1 := strconv.ParseFloat(m[1], 64)
		lon, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil {
			s := models.Signal{
				Type:       models.TypeGeocode,
				Lat:        lat,
				Lon:        lon,
				RadiusM:    textLatLonRadiusM,
				Confidence: 0.6,
				Source:     "text:latlon",
				Timestamp:  time.Now().UTC(),
			}
			if s.Valid() {
				return &s, nil
			}
		}
	}

	m := inCityRe.FindStringSubmatch(rec.Text)
	if m == nil || len(r.geocoders) == 0 {
		return nil, nil
	}
	place := m[1]

	var lastErr error
	for _, g := range r.geocoders {
		lat, lon, err := g.Geocode(ctx, place)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", g.Name(), err)
			continue
		}
		s := models.Signal{
			Type:       models.TypeGeocode,
			Lat:        lat,
			Lon:        lon,
			RadiusM:    geocodedCityRadius,
			Confidence: 0.4,
			Source:     "geocode:" + g.Name() + ":" + place,
			Timestamp:  time.Now().UTC(),
		}
		if s.Valid() {
			return &s, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("geocode %q: %w", place, lastErr)
	}
	return nil, nil
}

// Nominatim is the OpenStreetMap geocoder client, rate-limited to one
// request per second per the public usage policy.
type Nominatim struct {
	base      string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

// NewNominatim creates a rate-limited Nominatim client.
func NewNominatim(base, userAgent string, client *http.Client) *Nominatim {
	return &Nominatim{
		base:      strings.TrimRight(base, "/"),
		userAgent: userAgent,
		client:    client,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (n *Nominatim) Name() string { return "nominatim" }

// Geocode queries /search with format=json and takes the first hit.
func (n *Nominatim) Geocode(ctx context.Context, place string) (float64, float64, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return 0, 0, err
	}

	u := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", n.base, url.QueryEscape(place))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("status %d", resp.StatusCode)
	}

	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return 0, 0, err
	}
	if len(hits) == 0 {
		return 0, 0, fmt.Errorf("no result")
	}

	lat, err1 := strconv.ParseFloat(hits[0].Lat, 64)
	lon, err2 := strconv.ParseFloat(hits[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("unparseable coordinates %q,%q", hits[0].Lat, hits[0].Lon)
	}
	return lat, lon, nil
}

// Mapbox is the Mapbox geocoding API client.
type Mapbox struct {
	Token  string
	Client *http.Client
	// BaseURL overrides the production endpoint in tests.
	BaseURL string
}

func (m *Mapbox) Name() string { return "mapbox" }

// Geocode queries the places endpoint and takes the first feature.
func (m *Mapbox) Geocode(ctx context.Context, place string) (float64, float64, error) {
	base := m.BaseURL
	if base == "" {
		base = "https://api.mapbox.com/geocoding/v5/mapbox.places"
	}
	u := fmt.Sprintf("%s/%s.json?access_token=%s&limit=1", strings.TrimRight(base, "/"), url.PathEscape(place), url.QueryEscape(m.Token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := m.Client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out struct {
		Features []struct {
			Center []float64 `json:"center"` // [lon, lat]
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, 0, err
	}
	if len(out.Features) == 0 || len(out.Features[0].Center) < 2 {
		return 0, 0, fmt.Errorf("no result")
	}
	return out.Features[0].Center[1], out.Features[0].Center[0], nil
}

// GoogleGeocoder is the Google Maps geocoding API client.
type GoogleGeocoder struct {
	Key    string
	Client *http.Client
	// BaseURL overrides the production endpoint in tests.
	BaseURL string
}

func (g *GoogleGeocoder) Name() string { return "google" }

// Geocode queries the geocode endpoint and takes the first result.
func (g *GoogleGeocoder) Geocode(ctx context.Context, place string) (float64, float64, error) {
	base := g.BaseURL
	if base == "" {
		base = "https://maps.googleapis.com/maps/api/geocode/json"
	}
	u := fmt.Sprintf("%s?address=%s&key=%s", base, url.QueryEscape(place), url.QueryEscape(g.Key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, 0, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Results []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, 0, err
	}
	if len(out.Results) == 0 {
		return 0, 0, fmt.Errorf("no result")
	}
	loc := out.Results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}
