package geolocate

import (
	"context"
	"net/http"
	"time"

	"geofuse/core/cache"
	"geofuse/core/storage"
	"geofuse/feature/geolocate/fusion"
	"geofuse/feature/geolocate/landmark"
	"geofuse/feature/geolocate/resolver"
	"geofuse/feature/geolocate/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	cfg     Config
	service *Service
	handler *Handler
	cache   cache.Store
}

// NewFeature assembles the geolocate feature from configuration: the
// resolver set, the cache wrapping for the remote-backed ones, the
// fusion engine, and (when available) the persistence adapter and
// media fetcher. Resolvers whose backing is absent (no IP database, no
// landmark index) come up disabled and are reported once here; the
// feature itself still loads.
func NewFeature(cfg Config, logg *zap.Logger, db *gorm.DB, client storage.Client, bucket string, cacheStore cache.Store) *Feature {
	httpClient := &http.Client{Timeout: cfg.ResolverTimeout()}

	ipRes, err := resolver.NewIP(cfg.IP)
	if err != nil {
		logg.Warn("ip resolver disabled", zap.Error(err))
	}

	var matcher *landmark.Matcher
	if cfg.Landmark.Enabled && cfg.Landmark.IndexDir != "" && cfg.Landmark.EmbedderURL != "" {
		idx, err := landmark.OpenIndex(cfg.Landmark.IndexDir)
		if err != nil {
			logg.Warn("landmark resolver disabled", zap.Error(err))
		} else {
			matcher = landmark.NewMatcher(
				idx,
				landmark.NewHTTPEmbedder(cfg.Landmark.EmbedderURL, httpClient),
				&landmark.FFmpegSampler{Bin: cfg.Video.FFmpegPath},
				cfg.Landmark.Threshold,
				cfg.Landmark.TopK,
				cfg.Landmark.DefaultRadiusM,
			)
		}
	}

	geocodeTTL := time.Duration(cfg.Cache.GeocodeTTLSeconds) * time.Second
	wifiTTL := time.Duration(cfg.Cache.WifiCellTTLSeconds) * time.Second
	negTTL := time.Duration(cfg.Cache.NegativeTTLSeconds) * time.Second

	resolvers := []resolver.Resolver{
		resolver.NewManual(cfg.Manual),
		resolver.NewEXIFImage(cfg.EXIF),
		resolver.NewEXIFVideo(cfg.Video),
		resolver.NewLandmark(cfg.Landmark, cfg.Video, matcher),
		resolver.NewCached(resolver.NewWifiCell(cfg.WifiCell, httpClient), cacheStore, wifiTTL, negTTL),
		resolver.NewCached(resolver.NewGeocode(cfg.Geocode, httpClient), cacheStore, geocodeTTL, negTTL),
		ipRes,
	}

	var st *store.Store
	if db != nil {
		st = store.New(db, cfg.Fusion.CellPrecision)
		if err := st.Migrate(context.Background()); err != nil {
			logg.Error("estimate store migration failed, persistence disabled", zap.Error(err))
			st = nil
		}
	}

	var fetcher *Fetcher
	if client != nil {
		fetcher = NewFetcher(client, bucket)
	}

	svc := NewService(resolvers, fusion.New(cfg.Fusion), st, fetcher, logg,
		cfg.ResolverTimeout(), cfg.RecordDeadline())

	return &Feature{
		cfg:     cfg,
		service: svc,
		handler: NewHandler(svc),
		cache:   cacheStore,
	}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "geolocate"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.cfg.Enabled
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Service exposes the fusion service for the CLI and health endpoint.
func (f *Feature) Service() *Service {
	return f.service
}

// HealthHandler returns a handler reporting component status. Mounted
// outside the authenticated API group so probes need no key.
func (f *Feature) HealthHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := f.service.Health(c.Context())
		if f.cache == nil {
			status["cache"] = "not configured"
		} else {
			status["cache"] = "ok"
		}
		return c.JSON(status)
	}
}
