package resolver

import (
	"context"
	"fmt"
	"os"
	"time"

	"geofuse/feature/geolocate/landmark"
	"geofuse/feature/geolocate/models"

	"golang.org/x/sync/semaphore"
)

// LandmarkConfig configures the visual landmark resolver.
type LandmarkConfig struct {
	Enabled bool `mapstructure:"enabled" default:"false"`
	// IndexDir holds the prebuilt reference index snapshot.
	IndexDir string `mapstructure:"index_dir" default:""`
	// EmbedderURL is the remote embedding service endpoint.
	EmbedderURL string `mapstructure:"embedder_url" default:""`
	// Threshold is the minimum cosine similarity for a match.
	Threshold float64 `mapstructure:"threshold" default:"0.25"`
	// TopK is how many candidates to pull per query.
	TopK int `mapstructure:"top_k" default:"5"`
	// DefaultRadiusM is substituted for index entries without a
	// registered radius.
	DefaultRadiusM float64 `mapstructure:"default_radius_m" default:"100"`
}

// Landmark matches record imagery against the reference landmark index.
// Video analysis is expensive (frame extraction plus one embedding call
// per frame), so it runs under a weighted semaphore; excess requests
// queue until a slot frees or their context expires.
type Landmark struct {
	cfg      LandmarkConfig
	video    VideoConfig
	matcher  *landmark.Matcher
	videoSem *semaphore.Weighted
}

// NewLandmark wires the resolver around an already-loaded matcher. A
// nil matcher leaves the resolver disabled.
func NewLandmark(cfg LandmarkConfig, video VideoConfig, matcher *landmark.Matcher) *Landmark {
	maxVideo := int64(video.MaxConcurrent)
	if maxVideo <= 0 {
		maxVideo = 2
	}
	return &Landmark{
		cfg:      cfg,
		video:    video,
		matcher:  matcher,
		videoSem: semaphore.NewWeighted(maxVideo),
	}
}

func (r *Landmark) Name() string  { return "landmark" }
func (r *Landmark) Enabled() bool { return r.cfg.Enabled && r.matcher != nil }

// Resolve matches the record's still image when present, otherwise its
// video. A match below threshold is no signal.
func (r *Landmark) Resolve(ctx context.Context, rec *models.Record) (*models.Signal, error) {
	if !r.Enabled() {
		return nil, nil
	}

	var (
		cand *landmark.Candidate
		err  error
	)
	switch {
	case len(rec.ImageBytes) > 0:
		cand, err = r.matcher.MatchImage(ctx, rec.ImageBytes)
	case rec.ImagePath != "":
		var data []byte
		data, err = os.ReadFile(rec.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		cand, err = r.matcher.MatchImage(ctx, data)
	case rec.VideoPath != "" && r.video.Enabled:
		// Queue for a video slot; a wait outliving the resolver timeout
		// surfaces as ctx.Err() and counts as no signal upstream.
		if err := r.videoSem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer r.videoSem.Release(1)
		cand, err = r.matcher.MatchVideo(ctx, rec.VideoPath, r.video.FrameEverySec, r.video.FrameLimit)
	default:
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	if cand == nil {
		return nil, nil
	}

	radius := cand.RadiusM
	if radius <= 0 {
		radius = r.matcher.DefaultRadiusM()
	}
	s := models.Signal{
		Type:       models.TypeLandmark,
		Lat:        cand.Lat,
		Lon:        cand.Lon,
		RadiusM:    radius,
		Confidence: cand.Similarity,
		Source:     "landmark:" + cand.ID,
		Timestamp:  time.Now().UTC(),
	}
	if !s.Valid() {
		return nil, nil
	}
	return &s, nil
}
