package resolver

import (
	"context"
	"strings"
	"testing"
	"time"

	"geofuse/feature/geolocate/landmark"
	"geofuse/feature/geolocate/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const landmarkManifest = `{"id":"eiffel","name":"Eiffel Tower","lat":48.8584,"lon":2.2945,"radius_m":150,"embedding":[1,0]}
{"id":"opera","name":"Sydney Opera House","lat":-33.8568,"lon":151.2153,"embedding":[0,1]}
`

// byteEmbedder returns a fixed vector per payload, standing in for the
// remote embedding service.
type byteEmbedder struct {
	vectors map[string][]float32
}

func (b *byteEmbedder) Embed(_ context.Context, image []byte) ([]float32, error) {
	return b.vectors[string(image)], nil
}

type stubSampler struct {
	frames [][]byte
}

func (s *stubSampler) Sample(context.Context, string, float64, int) ([][]byte, error) {
	return s.frames, nil
}

func newLandmarkResolver(t *testing.T, sampler landmark.FrameSampler) *Landmark {
	t.Helper()
	idx, err := landmark.BuildIndex(context.Background(), strings.NewReader(landmarkManifest))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	emb := &byteEmbedder{vectors: map[string][]float32{
		"tower-photo": {0.99, 0.05},
		"opera-frame": {0.1, 0.95},
	}}
	matcher := landmark.NewMatcher(idx, emb, sampler, 0.25, 5, 100)
	return NewLandmark(
		LandmarkConfig{Enabled: true, Threshold: 0.25, TopK: 5, DefaultRadiusM: 100},
		VideoConfig{Enabled: true, FrameEverySec: 2, FrameLimit: 8, MaxConcurrent: 1},
		matcher,
	)
}

func TestLandmark_ResolveImage(t *testing.T) {
	r := newLandmarkResolver(t, nil)

	sig, err := r.Resolve(context.Background(), &models.Record{ImageBytes: []byte("tower-photo")})
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.TypeLandmark, sig.Type)
	assert.Equal(t, 48.8584, sig.Lat)
	assert.Equal(t, 150.0, sig.RadiusM) // registered radius wins
	assert.Equal(t, "landmark:eiffel", sig.Source)
	assert.Greater(t, sig.Confidence, 0.9)
}

func TestLandmark_ResolveVideo(t *testing.T) {
	r := newLandmarkResolver(t, &stubSampler{frames: [][]byte{[]byte("opera-frame")}})

	sig, err := r.Resolve(context.Background(), &models.Record{VideoPath: "clip.mp4"})
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "landmark:opera", sig.Source)
	// No registered radius on the opera entry: default substituted.
	assert.Equal(t, 100.0, sig.RadiusM)
}

func TestLandmark_VideoQueueRespectsContext(t *testing.T) {
	r := newLandmarkResolver(t, &stubSampler{frames: [][]byte{[]byte("opera-frame")}})

	// Occupy the single video slot, then resolve with an expired
	// context: the queued request must give up, not block.
	require.NoError(t, r.videoSem.Acquire(context.Background(), 1))
	defer r.videoSem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	sig, err := r.Resolve(ctx, &models.Record{VideoPath: "clip.mp4"})
	assert.Error(t, err)
	assert.Nil(t, sig)
}

func TestLandmark_NoMedia(t *testing.T) {
	r := newLandmarkResolver(t, nil)

	sig, err := r.Resolve(context.Background(), &models.Record{Text: "just text"})
	assert.NoError(t, err)
	assert.Nil(t, sig)
}

func TestLandmark_DisabledWithoutMatcher(t *testing.T) {
	r := NewLandmark(LandmarkConfig{Enabled: true}, VideoConfig{}, nil)
	assert.False(t, r.Enabled())

	sig, err := r.Resolve(context.Background(), &models.Record{ImageBytes: []byte("x")})
	assert.NoError(t, err)
	assert.Nil(t, sig)
}
