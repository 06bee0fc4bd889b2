package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"geofuse/feature/geolocate/models"
)

// VideoConfig configures video handling: the metadata prober here plus
// the frame sampling knobs consumed by the landmark resolver.
type VideoConfig struct {
	Enabled bool `mapstructure:"enabled" default:"true"`
	// FFprobePath is the ffprobe binary; empty means PATH lookup.
	FFprobePath string `mapstructure:"ffprobe_path" default:"ffprobe"`
	// FFmpegPath is the ffmpeg binary used for frame sampling.
	FFmpegPath string `mapstructure:"ffmpeg_path" default:"ffmpeg"`
	// FrameEverySec is the landmark frame sampling interval.
	FrameEverySec float64 `mapstructure:"frame_every_sec" default:"2"`
	// FrameLimit caps sampled frames per video.
	FrameLimit int `mapstructure:"frame_limit" default:"8"`
	// MaxConcurrent bounds simultaneous video analyses.
	MaxConcurrent int `mapstructure:"max_concurrent" default:"2"`
}

// Prober reads container metadata from a video file. The production
// implementation shells out to ffprobe; tests fake the JSON.
type Prober interface {
	Probe(ctx context.Context, path string) ([]byte, error)
}

// FFprobe runs the ffprobe binary with JSON output.
type FFprobe struct {
	// Bin is the ffprobe binary; empty means "ffprobe" on PATH.
	Bin string
}

// Probe returns ffprobe's -show_format JSON for the file.
func (p *FFprobe) Probe(ctx context.Context, path string) ([]byte, error) {
	bin := p.Bin
	if bin == "" {
		bin = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	return out, nil
}

// EXIFVideo extracts the recording location a capture device wrote into
// the video container, most commonly the QuickTime ISO 6709 atom.
type EXIFVideo struct {
	cfg    VideoConfig
	prober Prober
}

// NewEXIFVideo creates the resolver with the ffprobe-backed prober.
func NewEXIFVideo(cfg VideoConfig) *EXIFVideo {
	return &EXIFVideo{cfg: cfg, prober: &FFprobe{Bin: cfg.FFprobePath}}
}

// newEXIFVideoWithProber wires a fake prober for tests.
func newEXIFVideoWithProber(cfg VideoConfig, p Prober) *EXIFVideo {
	return &EXIFVideo{cfg: cfg, prober: p}
}

func (r *EXIFVideo) Name() string  { return "exif_video" }
func (r *EXIFVideo) Enabled() bool { return r.cfg.Enabled }

// locationTagKeys lists the container tags that carry an ISO 6709
// location, in preference order.
var locationTagKeys = []string{
	"com.apple.quicktime.location.ISO6709",
	"location",
	"location-eng",
}

// Resolve probes the video container for a location tag.
func (r *EXIFVideo) Resolve(ctx context.Context, rec *models.Record) (*models.Signal, error) {
	if !r.Enabled() || rec.VideoPath == "" {
		return nil, nil
	}

	raw, err := r.prober.Probe(ctx, rec.VideoPath)
	if err != nil {
		return nil, err
	}

	var out struct {
		Format struct {
			Tags map[string]string `json:"tags"`
		} `json:"format"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, key := range locationTagKeys {
		v, ok := out.Format.Tags[key]
		if !ok {
			continue
		}
		lat, lon, ok := models.ParseISO6709(v)
		if !ok {
			continue
		}
		s := models.Signal{
			Type:       models.TypeEXIFVideo,
			Lat:        lat,
			Lon:        lon,
			RadiusM:    exifRadiusM,
			Confidence: 0.9,
			Source:     "video:" + key,
			Timestamp:  time.Now().UTC(),
		}
		if s.Valid() {
			return &s, nil
		}
	}
	return nil, nil
}
