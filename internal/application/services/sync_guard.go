package services

import "sync/atomic"

const (
	guardIdle int32 = iota
	guardRunning
)

// SyncGuard is a process-wide single-flight guard for one sync type. It holds
// an explicit Idle/Running state; a caller who fails TryAcquire must report
// "already running" rather than queue. Safe only within a single process.
type SyncGuard struct {
	state atomic.Int32
}

// NewSyncGuard creates a guard in the Idle state
func NewSyncGuard() *SyncGuard {
	return &SyncGuard{}
}

// TryAcquire attempts the Idle -> Running transition. It returns false when a
// run is already in flight.
func (g *SyncGuard) TryAcquire() bool {
	return g.state.CompareAndSwap(guardIdle, guardRunning)
}

// Release returns the guard to Idle. Callers must release on every exit path,
// normally via defer immediately after a successful TryAcquire.
func (g *SyncGuard) Release() {
	g.state.Store(guardIdle)
}

// Running reports whether a run is currently in flight
func (g *SyncGuard) Running() bool {
	return g.state.Load() == guardRunning
}
