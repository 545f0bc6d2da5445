package services

import "github.com/cliniclink/record-bridge/pkg/config"

// FeatureFlags gates behavior that is deliberately switchable at runtime.
type FeatureFlags struct {
	notifyOnInferredChange bool
}

// NewFeatureFlags builds flags from sync configuration
func NewFeatureFlags(cfg *config.SyncConfig) *FeatureFlags {
	return &FeatureFlags{
		notifyOnInferredChange: cfg.NotifyOnInferredChange,
	}
}

// NotifyOnInferredChange reports whether sync-inferred reschedules and
// cancellations notify patients. Off by default: timestamp reconstruction
// across the legacy bridge is lossy enough to produce false positives, so
// only manual administrative changes notify unless this is enabled.
func (f *FeatureFlags) NotifyOnInferredChange() bool {
	return f.notifyOnInferredChange
}
