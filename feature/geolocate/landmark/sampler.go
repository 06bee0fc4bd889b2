package landmark

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
)

// FFmpegSampler extracts frames by shelling out to ffmpeg. Frames are
// written to a temp directory as JPEGs and read back; the directory is
// removed before returning.
type FFmpegSampler struct {
	// Bin is the ffmpeg binary; empty means "ffmpeg" on PATH.
	Bin string
}

// Sample extracts up to limit frames, one every everySec seconds.
func (s *FFmpegSampler) Sample(ctx context.Context, videoPath string, everySec float64, limit int) ([][]byte, error) {
	if everySec <= 0 {
		everySec = 2
	}
	if limit <= 0 {
		limit = 8
	}
	bin := s.Bin
	if bin == "" {
		bin = "ffmpeg"
	}

	dir, err := os.MkdirTemp("", "geofuse-frames-*")
	if err != nil {
		return nil, fmt.Errorf("frame temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pattern := filepath.Join(dir, "frame_%04d.jpg")
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%s", strconv.FormatFloat(everySec, 'f', -1, 64)),
		"-frames:v", strconv.Itoa(limit),
		"-q:v", "2",
		pattern,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, out)
	}

	names, err := filepath.Glob(filepath.Join(dir, "frame_*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	sort.Strings(names)

	frames := make([][]byte, 0, len(names))
	for _, name := range names {
		b, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		frames = append(frames, b)
	}
	return frames, nil
}
