package resolver

import (
	"context"
	"fmt"
	"testing"

	"geofuse/feature/geolocate/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEXIFImage_XMPSidecarFallback(t *testing.T) {
	r := NewEXIFImage(EXIFConfig{Enabled: true})

	t.Run("ISO6709 atom", func(t *testing.T) {
		sig, err := r.Resolve(context.Background(), &models.Record{
			XMPText: `<x:xmpmeta>+37.3349-122.0090+011.579/</x:xmpmeta>`,
		})
		require.NoError(t, err)
		require.NotNil(t, sig)
		assert.Equal(t, models.TypeEXIFImage, sig.Type)
		assert.Equal(t, 37.3349, sig.Lat)
		assert.Equal(t, -122.0090, sig.Lon)
		assert.Equal(t, float64(exifRadiusM), sig.RadiusM)
		assert.Equal(t, "xmp:gps", sig.Source)
	})

	t.Run("exif GPS tags", func(t *testing.T) {
		sig, err := r.Resolve(context.Background(), &models.Record{
			XMPText: `<exif:GPSLatitude>48,51.4908N</exif:GPSLatitude><exif:GPSLongitude>2,17.667E</exif:GPSLongitude>`,
		})
		require.NoError(t, err)
		require.NotNil(t, sig)
		assert.InDelta(t, 48.8582, sig.Lat, 0.001)
		assert.InDelta(t, 2.2945, sig.Lon, 0.001)
	})
}

func TestEXIFImage_NoSignal(t *testing.T) {
	r := NewEXIFImage(EXIFConfig{Enabled: true})

	t.Run("Empty record", func(t *testing.T) {
		sig, err := r.Resolve(context.Background(), &models.Record{})
		assert.NoError(t, err)
		assert.Nil(t, sig)
	})

	t.Run("Undecodable image without sidecar", func(t *testing.T) {
		sig, err := r.Resolve(context.Background(), &models.Record{
			ImageBytes: []byte("definitely not a jpeg"),
		})
		assert.NoError(t, err)
		assert.Nil(t, sig)
	})

	t.Run("Missing image file without sidecar", func(t *testing.T) {
		sig, err := r.Resolve(context.Background(), &models.Record{
			ImagePath: "/nonexistent/photo.jpg",
		})
		assert.NoError(t, err)
		assert.Nil(t, sig)
	})

	t.Run("Disabled", func(t *testing.T) {
		disabled := NewEXIFImage(EXIFConfig{Enabled: false})
		sig, err := disabled.Resolve(context.Background(), &models.Record{
			XMPText: `+37.3349-122.0090/`,
		})
		assert.NoError(t, err)
		assert.Nil(t, sig)
	})
}

type fakeProber struct {
	out []byte
	err error
}

func (f *fakeProber) Probe(context.Context, string) ([]byte, error) { return f.out, f.err }

func TestEXIFVideo_QuicktimeLocation(t *testing.T) {
	probe := []byte(`{"format":{"filename":"clip.mov","tags":{
		"com.apple.quicktime.location.ISO6709":"+35.6580+139.7016+040.000/",
		"major_brand":"qt"
	}}}`)
	r := newEXIFVideoWithProber(VideoConfig{Enabled: true}, &fakeProber{out: probe})

	sig, err := r.Resolve(context.Background(), &models.Record{VideoPath: "clip.mov"})
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.TypeEXIFVideo, sig.Type)
	assert.Equal(t, 35.6580, sig.Lat)
	assert.Equal(t, 139.7016, sig.Lon)
	assert.Equal(t, "video:com.apple.quicktime.location.ISO6709", sig.Source)
}

func TestEXIFVideo_PlainLocationTag(t *testing.T) {
	probe := []byte(`{"format":{"tags":{"location":"-33.8688+151.2093/"}}}`)
	r := newEXIFVideoWithProber(VideoConfig{Enabled: true}, &fakeProber{out: probe})

	sig, err := r.Resolve(context.Background(), &models.Record{VideoPath: "clip.mp4"})
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, -33.8688, sig.Lat)
	assert.Equal(t, 151.2093, sig.Lon)
}

func TestEXIFVideo_NoSignal(t *testing.T) {
	t.Run("No location tag", func(t *testing.T) {
		r := newEXIFVideoWithProber(VideoConfig{Enabled: true}, &fakeProber{out: []byte(`{"format":{"tags":{"major_brand":"isom"}}}`)})
		sig, err := r.Resolve(context.Background(), &models.Record{VideoPath: "clip.mp4"})
		assert.NoError(t, err)
		assert.Nil(t, sig)
	})

	t.Run("No video on record", func(t *testing.T) {
		r := newEXIFVideoWithProber(VideoConfig{Enabled: true}, &fakeProber{out: []byte(`{}`)})
		sig, err := r.Resolve(context.Background(), &models.Record{})
		assert.NoError(t, err)
		assert.Nil(t, sig)
	})

	t.Run("Probe failure", func(t *testing.T) {
		r := newEXIFVideoWithProber(VideoConfig{Enabled: true}, &fakeProber{err: fmt.Errorf("ffprobe: executable not found")})
		sig, err := r.Resolve(context.Background(), &models.Record{VideoPath: "clip.mp4"})
		assert.Error(t, err)
		assert.Nil(t, sig)
	})

	t.Run("Malformed probe output", func(t *testing.T) {
		r := newEXIFVideoWithProber(VideoConfig{Enabled: true}, &fakeProber{out: []byte("not json")})
		sig, err := r.Resolve(context.Background(), &models.Record{VideoPath: "clip.mp4"})
		assert.Error(t, err)
		assert.Nil(t, sig)
	})
}

func TestManual_Resolve(t *testing.T) {
	r := NewManual(ManualConfig{Enabled: true})
	lat, lon := 59.437, 24.7536

	sig, err := r.Resolve(context.Background(), &models.Record{Lat: &lat, Lon: &lon})
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.TypeManual, sig.Type)
	assert.Equal(t, 59.437, sig.Lat)
	assert.Equal(t, float64(manualRadiusM), sig.RadiusM)
	assert.Equal(t, 1.0, sig.Confidence)
}

func TestManual_NoSignal(t *testing.T) {
	r := NewManual(ManualConfig{Enabled: true})
	lat := 59.437
	bad := 420.0

	t.Run("Missing lon", func(t *testing.T) {
		sig, err := r.Resolve(context.Background(), &models.Record{Lat: &lat})
		assert.NoError(t, err)
		assert.Nil(t, sig)
	})

	t.Run("Out of range", func(t *testing.T) {
		sig, err := r.Resolve(context.Background(), &models.Record{Lat: &lat, Lon: &bad})
		assert.NoError(t, err)
		assert.Nil(t, sig)
	})

	t.Run("Disabled", func(t *testing.T) {
		lon := 24.7536
		disabled := NewManual(ManualConfig{Enabled: false})
		sig, err := disabled.Resolve(context.Background(), &models.Record{Lat: &lat, Lon: &lon})
		assert.NoError(t, err)
		assert.Nil(t, sig)
	})
}
