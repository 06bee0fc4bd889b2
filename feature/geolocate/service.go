package geolocate

import (
	"context"
	"time"

	"geofuse/core/logger"
	"geofuse/feature/geolocate/fusion"
	"geofuse/feature/geolocate/models"
	"geofuse/feature/geolocate/resolver"
	"geofuse/feature/geolocate/store"

	"go.uber.org/zap"
)

// Service orchestrates one record resolution: hint extraction, media
// materialization, concurrent fail-safe resolver dispatch, fusion, and
// optional persistence.
type Service struct {
	resolvers []resolver.Resolver
	engine    *fusion.Engine
	store     *store.Store // nil when no database is configured
	fetcher   *Fetcher     // nil when no object storage is configured
	logger    *zap.Logger

	timeout  time.Duration
	deadline time.Duration
}

// NewService wires a service. store and fetcher may be nil; the
// service then resolves without persistence / without remote media.
func NewService(resolvers []resolver.Resolver, engine *fusion.Engine, st *store.Store, fetcher *Fetcher, logg *zap.Logger, timeout, deadline time.Duration) *Service {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if deadline <= 0 {
		deadline = 20 * time.Second
	}
	return &Service{
		resolvers: resolvers,
		engine:    engine,
		store:     st,
		fetcher:   fetcher,
		logger:    logg,
		timeout:   timeout,
		deadline:  deadline,
	}
}

// Store returns the persistence adapter, nil when none is configured.
func (s *Service) Store() *store.Store { return s.store }

// outcome is one resolver's settled result.
type outcome struct {
	name   string
	signal *models.Signal
	err    error
}

// Locate resolves a record into an estimate, or nil when no resolver
// produced a signal. The only error case is caller cancellation: every
// resolver failure is logged here and degraded to "no signal".
func (s *Service) Locate(ctx context.Context, rec *models.Record) (*models.Estimate, error) {
	if rec.Empty() {
		return nil, nil
	}

	// Work on a copy: hint injection and media path rewriting must not
	// touch the caller's record.
	rec = rec.Clone()
	models.ApplyXMPHints(rec)

	if s.fetcher != nil {
		temps, err := s.fetcher.Materialize(ctx, rec)
		defer Cleanup(temps)
		if err != nil {
			// The media-based resolvers will simply find nothing; the
			// rest of the record still resolves.
			s.logger.Warn("media materialization failed", zap.Error(err))
		}
	}

	// Soft per-record deadline. Resolver goroutines get at most this
	// window; at expiry fusion proceeds with what has arrived.
	dispatchCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	results := make(chan outcome, len(s.resolvers))
	dispatched := 0
	for _, r := range s.resolvers {
		if !r.Enabled() {
			continue
		}
		dispatched++
		go func(r resolver.Resolver) {
			callCtx, cancelCall := context.WithTimeout(dispatchCtx, s.timeout)
			defer cancelCall()

			out := outcome{name: r.Name()}
			defer func() {
				if p := recover(); p != nil {
					out.signal = nil
					out.err = nil
					logger.WithResolver(s.logger, r.Name()).Error("resolver panicked", zap.Any("panic", p))
				}
				results <- out
			}()

			out.signal, out.err = r.Resolve(callCtx, rec)
		}(r)
	}

	var signals []models.Signal
collect:
	for i := 0; i < dispatched; i++ {
		select {
		case out := <-results:
			l := logger.WithResolver(s.logger, out.name)
			switch {
			case out.err != nil:
				// Fail-safe: an erroring resolver is a null signal.
				l.Warn("resolver failed", zap.Error(out.err))
			case out.signal == nil:
				l.Debug("no signal")
			case !out.signal.Valid():
				l.Warn("resolver produced invalid signal", zap.Float64("lat", out.signal.Lat), zap.Float64("lon", out.signal.Lon), zap.Float64("radius_m", out.signal.RadiusM))
			default:
				signals = append(signals, *out.signal)
			}
		case <-dispatchCtx.Done():
			if ctx.Err() != nil {
				// Caller cancelled: discard partial signals, do not fuse.
				return nil, ctx.Err()
			}
			// Soft deadline: stragglers count as null.
			s.logger.Warn("record deadline reached, fusing partial signal set",
				zap.Int("arrived", len(signals)), zap.Int("dispatched", dispatched))
			break collect
		}
	}

	est := s.engine.Fuse(signals)
	if est == nil {
		return nil, nil
	}
	return est, nil
}

// LocateAndStore resolves a record and, when an estimate was produced,
// appends it for the entity. The persistence error is surfaced: it is
// the one failure the caller must see, since it means a computed result
// would otherwise be lost. Re-submission is the recovery path.
func (s *Service) LocateAndStore(ctx context.Context, entityType, entityID string, rec *models.Record) (*models.Estimate, uint64, error) {
	est, err := s.Locate(ctx, rec)
	if err != nil || est == nil {
		return nil, 0, err
	}
	if s.store == nil {
		return est, 0, nil
	}

	id, err := s.store.Save(ctx, entityType, entityID, est)
	if err != nil {
		logger.WithEntity(s.logger, entityType, entityID).Error("persist estimate failed", zap.Error(err))
		return est, 0, err
	}
	return est, id, nil
}

// Health reports component status for the health endpoint.
func (s *Service) Health(ctx context.Context) map[string]string {
	status := map[string]string{}

	enabled := 0
	for _, r := range s.resolvers {
		state := "disabled"
		if r.Enabled() {
			state = "enabled"
			enabled++
		}
		status["resolver:"+r.Name()] = state
	}

	if s.store == nil {
		status["database"] = "not configured"
	} else if err := s.store.Ping(ctx); err != nil {
		status["database"] = "unreachable"
	} else {
		status["database"] = "ok"
	}

	if enabled == 0 {
		status["status"] = "degraded"
	} else {
		status["status"] = "ok"
	}
	return status
}
