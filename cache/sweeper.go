package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultExpireInterval is how often expired entries are swept
	DefaultExpireInterval = time.Hour
	// DefaultRefreshInterval is how often entries past half their TTL are
	// refreshed
	DefaultRefreshInterval = 12 * time.Hour
)

// SweeperConfig controls the background maintenance loops
type SweeperConfig struct {
	ExpireInterval  time.Duration
	RefreshInterval time.Duration

	// MaintenanceInterval enables an extra refresh loop with an explicit
	// age threshold. Zero disables it.
	MaintenanceInterval  time.Duration
	MaintenanceThreshold time.Duration
}

// DefaultSweeperConfig returns the reference schedule: expire hourly,
// refresh every twelve hours, no extra maintenance loop
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		ExpireInterval:       DefaultExpireInterval,
		RefreshInterval:      DefaultRefreshInterval,
		MaintenanceThreshold: DefaultMaintenanceThreshold,
	}
}

// Sweeper owns the running maintenance loops. Stop cancels them.
type Sweeper struct {
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	logger   zerolog.Logger
}

// StartSweepers launches the expiration and refresh loops against store.
// Loops run until ctx is cancelled or Stop is called.
func StartSweepers(ctx context.Context, store Maintainer, cfg SweeperConfig, logger zerolog.Logger) *Sweeper {
	ctx, cancel := context.WithCancel(ctx)
	s := &Sweeper{
		cancel: cancel,
		logger: logger.With().Str("component", "cache-sweeper").Logger(),
	}

	if cfg.ExpireInterval > 0 {
		s.start(ctx, "expire", cfg.ExpireInterval, func() {
			store.SweepExpired()
		})
	}

	if cfg.RefreshInterval > 0 {
		s.start(ctx, "refresh", cfg.RefreshInterval, func() {
			res := RefreshOlderThan(store, HalfTTL(store))
			s.logRefresh("refresh", res)
		})
	}

	if cfg.MaintenanceInterval > 0 {
		threshold := cfg.MaintenanceThreshold
		if threshold <= 0 {
			threshold = DefaultMaintenanceThreshold
		}
		s.start(ctx, "maintenance", cfg.MaintenanceInterval, func() {
			res := RefreshOlderThan(store, threshold)
			s.logRefresh("maintenance", res)
		})
	}

	s.logger.Info().
		Dur("expire_interval", cfg.ExpireInterval).
		Dur("refresh_interval", cfg.RefreshInterval).
		Dur("maintenance_interval", cfg.MaintenanceInterval).
		Msg("cache sweepers started")

	return s
}

// Stop cancels every loop and waits for in-flight ticks to finish. It is
// safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.logger.Info().Msg("cache sweepers stopped")
	})
}

func (s *Sweeper) start(ctx context.Context, name string, interval time.Duration, tick func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx, name, interval, tick)
	}()
}

// loop blocks until ctx is cancelled, running tick on every interval
func (s *Sweeper) loop(ctx context.Context, name string, interval time.Duration, tick func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runTick(name, tick)
		}
	}
}

// runTick isolates a single tick so a failure never ends the loop
func (s *Sweeper) runTick(name string, tick func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("sweep", name).Interface("panic", r).Msg("cache sweep failed")
		}
	}()
	tick()
}

func (s *Sweeper) logRefresh(name string, res RefreshResult) {
	if res.Candidates == 0 {
		s.logger.Debug().Str("sweep", name).Msg("no cache entries need refreshing")
		return
	}
	s.logger.Info().
		Str("sweep", name).
		Int("refreshed", res.Refreshed).
		Int("size", res.After.Size).
		Msg("cache refresh complete")
}
