package geolocate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"geofuse/feature/geolocate/fusion"
	"geofuse/feature/geolocate/models"
	"geofuse/feature/geolocate/resolver"
	"geofuse/feature/geolocate/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeResolver is a scriptable resolver for service tests.
type fakeResolver struct {
	name    string
	enabled bool
	signal  *models.Signal
	err     error
	delay   time.Duration
	panics  bool
	calls   atomic.Int32
}

func (f *fakeResolver) Name() string  { return f.name }
func (f *fakeResolver) Enabled() bool { return f.enabled }

func (f *fakeResolver) Resolve(ctx context.Context, _ *models.Record) (*models.Signal, error) {
	f.calls.Add(1)
	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.signal, f.err
}

func berlinSignal(t models.SignalType, radius float64) *models.Signal {
	return &models.Signal{
		Type:      t,
		Lat:       52.52,
		Lon:       13.405,
		RadiusM:   radius,
		Source:    "test",
		Timestamp: time.Now().UTC(),
	}
}

func newTestService(resolvers ...resolver.Resolver) *Service {
	return NewService(resolvers, fusion.New(fusion.DefaultConfig()), nil, nil, zap.NewNop(), time.Second, 5*time.Second)
}

func ipRecord() *models.Record {
	return &models.Record{IP: "203.0.113.7"}
}

func TestService_Locate_SingleSignal(t *testing.T) {
	ip := &fakeResolver{name: "ip", enabled: true, signal: berlinSignal(models.TypeIP, 20000)}
	off := &fakeResolver{name: "landmark", enabled: false}

	svc := newTestService(ip, off)
	est, err := svc.Locate(context.Background(), ipRecord())
	require.NoError(t, err)
	require.NotNil(t, est)

	assert.Equal(t, "single:ip", est.Method)
	assert.InDelta(t, 52.52, est.Lat, 1e-9)
	assert.Equal(t, int32(1), ip.calls.Load())
	assert.Equal(t, int32(0), off.calls.Load(), "disabled resolver must not be dispatched")
}

func TestService_Locate_EmptyRecord(t *testing.T) {
	ip := &fakeResolver{name: "ip", enabled: true, signal: berlinSignal(models.TypeIP, 20000)}

	svc := newTestService(ip)
	est, err := svc.Locate(context.Background(), &models.Record{})
	require.NoError(t, err)
	assert.Nil(t, est)
	assert.Equal(t, int32(0), ip.calls.Load())
}

func TestService_Locate_AllNull(t *testing.T) {
	svc := newTestService(
		&fakeResolver{name: "ip", enabled: true},
		&fakeResolver{name: "geocode", enabled: true},
	)
	est, err := svc.Locate(context.Background(), ipRecord())
	require.NoError(t, err)
	assert.Nil(t, est)
}

func TestService_Locate_ErrorDegradesToNoSignal(t *testing.T) {
	svc := newTestService(
		&fakeResolver{name: "wifi_cell", enabled: true, err: errors.New("positioner down")},
		&fakeResolver{name: "exif", enabled: true, signal: berlinSignal(models.TypeEXIFImage, 50)},
	)
	est, err := svc.Locate(context.Background(), ipRecord())
	require.NoError(t, err, "resolver errors must not surface to the caller")
	require.NotNil(t, est)
	assert.Equal(t, "single:exif_image", est.Method)
}

func TestService_Locate_PanicRecovered(t *testing.T) {
	svc := newTestService(
		&fakeResolver{name: "landmark", enabled: true, panics: true},
		&fakeResolver{name: "exif", enabled: true, signal: berlinSignal(models.TypeEXIFImage, 50)},
	)
	est, err := svc.Locate(context.Background(), ipRecord())
	require.NoError(t, err)
	require.NotNil(t, est)
	assert.Equal(t, "single:exif_image", est.Method)
}

func TestService_Locate_InvalidSignalDropped(t *testing.T) {
	bad := berlinSignal(models.TypeIP, 20000)
	bad.Lat = 95

	svc := newTestService(&fakeResolver{name: "ip", enabled: true, signal: bad})
	est, err := svc.Locate(context.Background(), ipRecord())
	require.NoError(t, err)
	assert.Nil(t, est)
}

func TestService_Locate_DeadlineFusesPartialSet(t *testing.T) {
	fast := &fakeResolver{name: "exif", enabled: true, signal: berlinSignal(models.TypeEXIFImage, 50)}
	slow := &fakeResolver{name: "landmark", enabled: true, delay: 10 * time.Second, signal: berlinSignal(models.TypeLandmark, 100)}

	svc := NewService(
		[]resolver.Resolver{fast, slow},
		fusion.New(fusion.DefaultConfig()),
		nil, nil, zap.NewNop(),
		time.Second,         // per-resolver timeout, not hit by fast
		50*time.Millisecond, // record deadline, hit by slow
	)

	start := time.Now()
	est, err := svc.Locate(context.Background(), ipRecord())
	require.NoError(t, err)
	require.NotNil(t, est, "the arrived signal must still be fused")
	assert.Equal(t, "single:exif_image", est.Method)
	assert.Less(t, time.Since(start), 5*time.Second, "slow resolver must not be awaited")
}

func TestService_Locate_CallerCancel(t *testing.T) {
	slow := &fakeResolver{name: "ip", enabled: true, delay: 10 * time.Second, signal: berlinSignal(models.TypeIP, 20000)}
	svc := newTestService(slow)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	est, err := svc.Locate(ctx, ipRecord())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, est, "cancellation discards partial results")
}

func TestService_LocateAndStore_Persists(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	st := store.New(db, 9)
	require.NoError(t, st.Migrate(context.Background()))

	svc := NewService(
		[]resolver.Resolver{&fakeResolver{name: "ip", enabled: true, signal: berlinSignal(models.TypeIP, 20000)}},
		fusion.New(fusion.DefaultConfig()),
		st, nil, zap.NewNop(), time.Second, 5*time.Second,
	)

	est, id, err := svc.LocateAndStore(context.Background(), "user", "alice", ipRecord())
	require.NoError(t, err)
	require.NotNil(t, est)
	assert.NotZero(t, id)

	rows, err := st.History(context.Background(), "user", "alice", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ID)
}

func TestService_LocateAndStore_NoSignalSkipsPersistence(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	st := store.New(db, 9)
	require.NoError(t, st.Migrate(context.Background()))

	svc := NewService(
		[]resolver.Resolver{&fakeResolver{name: "ip", enabled: true}},
		fusion.New(fusion.DefaultConfig()),
		st, nil, zap.NewNop(), time.Second, 5*time.Second,
	)

	est, id, err := svc.LocateAndStore(context.Background(), "user", "bob", ipRecord())
	require.NoError(t, err)
	assert.Nil(t, est)
	assert.Zero(t, id)

	rows, err := st.History(context.Background(), "user", "bob", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestService_Health(t *testing.T) {
	svc := newTestService(
		&fakeResolver{name: "ip", enabled: true},
		&fakeResolver{name: "landmark", enabled: false},
	)

	status := svc.Health(context.Background())
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "enabled", status["resolver:ip"])
	assert.Equal(t, "disabled", status["resolver:landmark"])
	assert.Equal(t, "not configured", status["database"])
}

func TestService_Health_DegradedWithoutResolvers(t *testing.T) {
	svc := newTestService(&fakeResolver{name: "ip", enabled: false})
	status := svc.Health(context.Background())
	assert.Equal(t, "degraded", status["status"])
}
