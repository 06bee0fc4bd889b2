package landmark

import (
	"context"
	"fmt"
)

// Searcher is the index surface the matcher needs. *Index satisfies it.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]Candidate, error)
}

// Embedder turns an encoded image into the embedding space the index
// was built in.
type Embedder interface {
	Embed(ctx context.Context, image []byte) ([]float32, error)
}

// FrameSampler extracts still frames from a video file, one every
// everySec seconds, up to limit frames.
type FrameSampler interface {
	Sample(ctx context.Context, videoPath string, everySec float64, limit int) ([][]byte, error)
}

// Matcher runs the embed-then-search pipeline and applies the
// similarity threshold.
type Matcher struct {
	index     Searcher
	embedder  Embedder
	sampler   FrameSampler
	threshold float64
	topK      int

	// defaultRadiusM is substituted when the matched index entry has no
	// registered radius.
	defaultRadiusM float64
}

// NewMatcher wires a matcher. Zero threshold/topK/radius fall back to
// the package defaults (0.25, 5, 100 m).
func NewMatcher(index Searcher, embedder Embedder, sampler FrameSampler, threshold float64, topK int, defaultRadiusM float64) *Matcher {
	if threshold <= 0 {
		threshold = 0.25
	}
	if topK <= 0 {
		topK = 5
	}
	if defaultRadiusM <= 0 {
		defaultRadiusM = 100
	}
	return &Matcher{
		index:          index,
		embedder:       embedder,
		sampler:        sampler,
		threshold:      threshold,
		topK:           topK,
		defaultRadiusM: defaultRadiusM,
	}
}

// DefaultRadiusM returns the radius substituted for entries without a
// registered one.
func (m *Matcher) DefaultRadiusM() float64 { return m.defaultRadiusM }

// MatchImage embeds one still image and returns the best candidate at
// or above the similarity threshold, or nil when nothing clears it.
func (m *Matcher) MatchImage(ctx context.Context, image []byte) (*Candidate, error) {
	vec, err := m.embedder.Embed(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}

	hits, err := m.index.Search(ctx, vec, m.topK)
	if err != nil {
		return nil, err
	}

	var best *Candidate
	for i := range hits {
		c := hits[i]
		if c.Similarity < m.threshold {
			continue
		}
		if best == nil || c.Similarity > best.Similarity {
			best = &c
		}
	}
	return best, nil
}

// MatchVideo samples frames from the video and returns the single best
// candidate across all sampled frames, or nil when no frame produces a
// match above threshold. A frame that fails to embed or search is
// skipped; the remaining frames still count.
func (m *Matcher) MatchVideo(ctx context.Context, videoPath string, everySec float64, limit int) (*Candidate, error) {
	if m.sampler == nil {
		return nil, fmt.Errorf("no frame sampler configured")
	}

	frames, err := m.sampler.Sample(ctx, videoPath, everySec, limit)
	if err != nil {
		return nil, fmt.Errorf("sample frames: %w", err)
	}

	var best *Candidate
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := m.MatchImage(ctx, frame)
		if err != nil || c == nil {
			continue
		}
		if best == nil || c.Similarity > best.Similarity {
			best = c
		}
	}
	return best, nil
}
