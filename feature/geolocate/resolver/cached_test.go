package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"geofuse/feature/geolocate/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a cache.Store with manual expiry control so TTL tests
// do not sleep.
type fakeStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *fakeStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	f.ttls[key] = ttl
}

// expireAll simulates TTL expiry of every entry.
func (f *fakeStore) expireAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = map[string][]byte{}
}

// remoteResolver is a counting fake standing in for a billed provider.
type remoteResolver struct {
	mu     sync.Mutex
	calls  int
	signal *models.Signal
	err    error
}

func (r *remoteResolver) Name() string  { return "wifi_cell" }
func (r *remoteResolver) Enabled() bool { return true }

func (r *remoteResolver) Fingerprint(rec *models.Record) (string, bool) {
	if len(rec.Wifi) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(rec.Wifi))
	for _, ap := range rec.Wifi {
		parts = append(parts, strings.ToLower(ap.BSSID))
	}
	return strings.Join(parts, ","), true
}

func (r *remoteResolver) Resolve(context.Context, *models.Record) (*models.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.signal, r.err
}

func (r *remoteResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func cachedSignal() *models.Signal {
	return &models.Signal{
		Type:      models.TypeWifiCell,
		Lat:       51.5,
		Lon:       -0.12,
		RadiusM:   40,
		Source:    "wifi_cell:test",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCached_HitWithinTTL(t *testing.T) {
	inner := &remoteResolver{signal: cachedSignal()}
	store := newFakeStore()
	c := NewCached(inner, store, time.Hour, time.Minute)
	rec := wifiRecord()

	first, err := c.Resolve(context.Background(), rec)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := c.Resolve(context.Background(), rec)
	require.NoError(t, err)
	require.NotNil(t, second)

	// Same fingerprint twice within TTL: exactly one provider call.
	assert.Equal(t, 1, inner.callCount())
	assert.Equal(t, first.Lat, second.Lat)
	assert.Equal(t, first.Timestamp, second.Timestamp)

	// A third call after expiry invokes the provider again.
	store.expireAll()
	_, err = c.Resolve(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.callCount())
}

func TestCached_NegativeCaching(t *testing.T) {
	inner := &remoteResolver{signal: nil}
	store := newFakeStore()
	c := NewCached(inner, store, time.Hour, time.Minute)
	rec := wifiRecord()

	sig, err := c.Resolve(context.Background(), rec)
	require.NoError(t, err)
	assert.Nil(t, sig)

	sig, err = c.Resolve(context.Background(), rec)
	require.NoError(t, err)
	assert.Nil(t, sig)

	// The "no result" outcome was cached too.
	assert.Equal(t, 1, inner.callCount())

	// And it was stored with the shorter negative TTL.
	for key, ttl := range store.ttls {
		assert.Equal(t, time.Minute, ttl, "key %s", key)
	}
}

func TestCached_ErrorsNotCached(t *testing.T) {
	inner := &remoteResolver{err: fmt.Errorf("provider down")}
	store := newFakeStore()
	c := NewCached(inner, store, time.Hour, time.Minute)
	rec := wifiRecord()

	_, err := c.Resolve(context.Background(), rec)
	assert.Error(t, err)
	_, err = c.Resolve(context.Background(), rec)
	assert.Error(t, err)

	// An outage must not poison the fingerprint.
	assert.Equal(t, 2, inner.callCount())
	assert.Empty(t, store.data)
}

func TestCached_NilStorePassthrough(t *testing.T) {
	inner := &remoteResolver{signal: cachedSignal()}
	c := NewCached(inner, nil, time.Hour, time.Minute)
	rec := wifiRecord()

	for i := 0; i < 3; i++ {
		sig, err := c.Resolve(context.Background(), rec)
		require.NoError(t, err)
		require.NotNil(t, sig)
	}
	assert.Equal(t, 3, inner.callCount())
}

func TestCached_NoFingerprintPassthrough(t *testing.T) {
	inner := &remoteResolver{signal: cachedSignal()}
	store := newFakeStore()
	c := NewCached(inner, store, time.Hour, time.Minute)

	// Record without wifi has no fingerprint; the wrapper goes straight
	// to the resolver and caches nothing.
	_, err := c.Resolve(context.Background(), &models.Record{})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.callCount())
	assert.Empty(t, store.data)
}

func TestCached_ConcurrentSingleflight(t *testing.T) {
	inner := &remoteResolver{signal: cachedSignal()}
	store := newFakeStore()
	c := NewCached(inner, store, time.Hour, time.Minute)
	rec := wifiRecord()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sig, err := c.Resolve(context.Background(), rec)
			assert.NoError(t, err)
			assert.NotNil(t, sig)
		}()
	}
	wg.Wait()

	// Best-effort collapsing: far fewer provider calls than resolutions.
	// With a cold cache and singleflight this is exactly one.
	assert.Equal(t, 1, inner.callCount())
}
