package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// SyncScheduler is the periodic driver for the reconciliation engine. Each
// tick runs the registration sweep and the schedule sweep; a tick that finds
// a sweep already in flight is skipped rather than queued.
type SyncScheduler struct {
	reconciler *ReconcileService
	differ     *ScheduleDiffer
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewSyncScheduler creates a new scheduler
func NewSyncScheduler(reconciler *ReconcileService, differ *ScheduleDiffer, interval time.Duration) *SyncScheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncScheduler{
		reconciler: reconciler,
		differ:     differ,
		interval:   interval,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins the periodic loop and runs one sweep immediately
func (s *SyncScheduler) Start() {
	go s.run()
	log.Info().Dur("interval", s.interval).Msg("sync scheduler started")
}

// Stop halts the periodic loop; a sweep already in flight finishes
func (s *SyncScheduler) Stop() {
	s.cancel()
	log.Info().Msg("sync scheduler stopped")
}

func (s *SyncScheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *SyncScheduler) runOnce() {
	if _, err := s.differ.SyncAll(s.ctx); err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			log.Warn().Msg("schedule sweep still running, skipping tick")
		} else {
			log.Error().Err(err).Msg("schedule sweep failed")
		}
	}

	if _, err := s.reconciler.SyncAll(s.ctx); err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			log.Warn().Msg("registration sweep still running, skipping tick")
		} else {
			log.Error().Err(err).Msg("registration sweep failed")
		}
	}
}
