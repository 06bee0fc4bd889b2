package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"geofuse/feature/geolocate/models"
)

// defaultWifiCellRadiusM is assumed when a positioning provider returns
// a location without an accuracy figure.
const defaultWifiCellRadiusM = 200

// WifiCellConfig configures the Wi-Fi / cell-tower positioning
// resolver.
type WifiCellConfig struct {
	Enabled bool `mapstructure:"enabled" default:"true"`
	// GoogleKey enables the Google geolocation API provider.
	GoogleKey string `mapstructure:"google_key" default:""`
	// IchnaeaURL enables a self-hosted Ichnaea-schema provider (the
	// Mozilla Location Service API shape). Same request and response
	// JSON as Google's endpoint.
	IchnaeaURL string `mapstructure:"ichnaea_url" default:""`
	// IchnaeaKey is the optional API key for the Ichnaea endpoint.
	IchnaeaKey string `mapstructure:"ichnaea_key" default:""`
}

// Positioner turns radio observations into coordinates. Implementations
// are chained first-wins.
type Positioner interface {
	Name() string
	Locate(ctx context.Context, wifi []models.WifiAP, cell *models.CellTower) (lat, lon, accuracyM float64, err error)
}

// WifiCell resolves the record's radio environment (observed access
// points and/or the serving cell) through positioning providers. Every
// provider call is billed or rate-limited, so this resolver always runs
// behind the cache wrapper in production.
type WifiCell struct {
	cfg         WifiCellConfig
	positioners []Positioner
}

// NewWifiCell assembles the provider chain from configuration.
// Providers without credentials are skipped.
func NewWifiCell(cfg WifiCellConfig, httpClient *http.Client) *WifiCell {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	var chain []Positioner
	if cfg.GoogleKey != "" {
		chain = append(chain, &GeolocationAPI{
			ProviderName: "google",
			Endpoint:     "https://www.googleapis.com/geolocation/v1/geolocate",
			Key:          cfg.GoogleKey,
			Client:       httpClient,
		})
	}
	if cfg.IchnaeaURL != "" {
		chain = append(chain, &GeolocationAPI{
			ProviderName: "ichnaea",
			Endpoint:     strings.TrimRight(cfg.IchnaeaURL, "/") + "/v1/geolocate",
			Key:          cfg.IchnaeaKey,
			Client:       httpClient,
		})
	}

	return &WifiCell{cfg: cfg, positioners: chain}
}

// newWifiCellWithChain wires an explicit provider chain for tests.
func newWifiCellWithChain(cfg WifiCellConfig, chain ...Positioner) *WifiCell {
	return &WifiCell{cfg: cfg, positioners: chain}
}

func (r *WifiCell) Name() string { return "wifi_cell" }

func (r *WifiCell) Enabled() bool {
	return r.cfg.Enabled && len(r.positioners) > 0
}

// Fingerprint digests the radio environment order-independently: the
// sorted set of lower-cased BSSIDs plus the cell tuple. RSSI is left
// out, it fluctuates between observations of the same spot and would
// defeat the cache.
func (r *WifiCell) Fingerprint(rec *models.Record) (string, bool) {
	if len(rec.Wifi) == 0 && rec.Cell == nil {
		return "", false
	}

	bssids := make([]string, 0, len(rec.Wifi))
	for _, ap := range rec.Wifi {
		if ap.BSSID != "" {
			bssids = append(bssids, strings.ToLower(ap.BSSID))
		}
	}
	sort.Strings(bssids)

	var b strings.Builder
	b.WriteString(strings.Join(bssids, ","))
	if rec.Cell != nil {
		fmt.Fprintf(&b, "|%d:%d:%d:%d", rec.Cell.MCC, rec.Cell.MNC, rec.Cell.LAC, rec.Cell.CID)
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

// Resolve queries the provider chain with the record's observations.
func (r *WifiCell) Resolve(ctx context.Context, rec *models.Record) (*models.Signal, error) {
	if !r.Enabled() {
		return nil, nil
	}
	if len(rec.Wifi) == 0 && rec.Cell == nil {
		return nil, nil
	}

	var lastErr error
	for _, p := range r.positioners {
		lat, lon, acc, err := p.Locate(ctx, rec.Wifi, rec.Cell)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", p.Name(), err)
			continue
		}
		if acc <= 0 {
			acc = defaultWifiCellRadiusM
		}
		s := models.Signal{
			Type:       models.TypeWifiCell,
			Lat:        lat,
			Lon:        lon,
			RadiusM:    acc,
			Confidence: 0.7,
			Source:     "wifi_cell:" + p.Name(),
			Timestamp:  time.Now().UTC(),
		}
		if s.Valid() {
			return &s, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("wifi_cell: %w", lastErr)
	}
	return nil, nil
}

// GeolocationAPI speaks the geolocate JSON schema shared by Google's
// geolocation API and Ichnaea (Mozilla Location Service) deployments:
// POST observations, receive {"location": {"lat", "lng"}, "accuracy"}.
type GeolocationAPI struct {
	ProviderName string
	Endpoint     string
	Key          string
	Client       *http.Client
}

func (g *GeolocationAPI) Name() string { return g.ProviderName }

type geolocateRequest struct {
	ConsiderIP       bool               `json:"considerIp"`
	WifiAccessPoints []wifiAccessPoint  `json:"wifiAccessPoints,omitempty"`
	CellTowers       []cellTowerPayload `json:"cellTowers,omitempty"`
}

type wifiAccessPoint struct {
	MacAddress     string `json:"macAddress"`
	SignalStrength int    `json:"signalStrength,omitempty"`
}

type cellTowerPayload struct {
	MobileCountryCode int `json:"mobileCountryCode"`
	MobileNetworkCode int `json:"mobileNetworkCode"`
	LocationAreaCode  int `json:"locationAreaCode"`
	CellID            int `json:"cellId"`
}

// Locate posts the observations and decodes the fix.
func (g *GeolocationAPI) Locate(ctx context.Context, wifi []models.WifiAP, cell *models.CellTower) (float64, float64, float64, error) {
	payload := geolocateRequest{ConsiderIP: false}
	for _, ap := range wifi {
		if ap.BSSID == "" {
			continue
		}
		payload.WifiAccessPoints = append(payload.WifiAccessPoints, wifiAccessPoint{
			MacAddress:     strings.ToLower(ap.BSSID),
			SignalStrength: ap.RSSI,
		})
	}
	if cell != nil {
		payload.CellTowers = append(payload.CellTowers, cellTowerPayload{
			MobileCountryCode: cell.MCC,
			MobileNetworkCode: cell.MNC,
			LocationAreaCode:  cell.LAC,
			CellID:            cell.CID,
		})
	}
	if len(payload.WifiAccessPoints) == 0 && len(payload.CellTowers) == 0 {
		return 0, 0, 0, fmt.Errorf("no usable observations")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, 0, 0, err
	}

	endpoint := g.Endpoint
	if g.Key != "" {
		endpoint += "?key=" + url.QueryEscape(g.Key)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return 0, 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, 0, 0, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		Accuracy float64 `json:"accuracy"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, 0, 0, err
	}
	return out.Location.Lat, out.Location.Lng, out.Accuracy, nil
}
