package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cliniclink/record-bridge/internal/domain/entities"
	"github.com/cliniclink/record-bridge/internal/domain/providers"
	"github.com/cliniclink/record-bridge/internal/domain/repositories"
)

// SlotModification pairs a local slot with the external slot that replaces it
type SlotModification struct {
	Local    *entities.ScheduleSlot
	External entities.ExternalScheduleSlot
}

// SlotDiff is the typed partition produced by DiffSlots. External slots with
// no counterpart at all land in Added; local slots left unmatched after both
// phases land in Deleted.
type SlotDiff struct {
	Matched  []entities.ExternalScheduleSlot
	Modified []SlotModification
	Added    []entities.ExternalScheduleSlot
	Deleted  []*entities.ScheduleSlot
}

// NormalizeClock truncates a clock string to minute precision ("08:00:30"
// becomes "08:00") to absorb seconds-level noise from the source.
func NormalizeClock(clock string) string {
	clock = strings.TrimSpace(clock)
	if len(clock) > 5 {
		return clock[:5]
	}
	return clock
}

// DiffSlots matches a doctor's external weekly slots against the current
// local set. Slots have no stable external identity, so matching runs in two
// phases: phase 1 pairs slots identical in (day, start, end, location);
// phase 2 pairs the remainder on (day, location) alone and reports them as
// modifications. Input order does not affect the result partition.
func DiffSlots(local []*entities.ScheduleSlot, external []entities.ExternalScheduleSlot) SlotDiff {
	var diff SlotDiff
	localMatched := make([]bool, len(local))
	externalMatched := make([]bool, len(external))

	// Phase 1: exact time-window matches emit nothing.
	for i, ext := range external {
		for j, loc := range local {
			if localMatched[j] {
				continue
			}
			if loc.DayOfWeek == ext.DayOfWeek &&
				loc.LocationCode == ext.LocationCode &&
				NormalizeClock(loc.StartTime) == NormalizeClock(ext.StartTime) &&
				NormalizeClock(loc.EndTime) == NormalizeClock(ext.EndTime) {
				localMatched[j] = true
				externalMatched[i] = true
				diff.Matched = append(diff.Matched, ext)
				break
			}
		}
	}

	// Phase 2: same day and location with a different window is a modification.
	for i, ext := range external {
		if externalMatched[i] {
			continue
		}
		paired := false
		for j, loc := range local {
			if localMatched[j] {
				continue
			}
			if loc.DayOfWeek == ext.DayOfWeek && loc.LocationCode == ext.LocationCode {
				localMatched[j] = true
				externalMatched[i] = true
				diff.Modified = append(diff.Modified, SlotModification{Local: loc, External: ext})
				paired = true
				break
			}
		}
		if !paired {
			diff.Added = append(diff.Added, ext)
		}
	}

	for j, loc := range local {
		if !localMatched[j] {
			diff.Deleted = append(diff.Deleted, loc)
		}
	}

	return diff
}

// ScheduleDiffer reconciles doctors' weekly schedules against the record
// system and notifies patients affected by modified or removed slots.
type ScheduleDiffer struct {
	schedules  repositories.ScheduleRepository
	source     providers.RecordSource
	notifier   *NotificationService
	reconciler *ReconcileService
	guard      *SyncGuard
	population PopulationLister
}

// PopulationLister enumerates the doctor population for full sweeps
type PopulationLister interface {
	ListDoctorIDs(ctx context.Context) ([]string, error)
}

// NewScheduleDiffer creates a new schedule differ
func NewScheduleDiffer(
	schedules repositories.ScheduleRepository,
	source providers.RecordSource,
	notifier *NotificationService,
	reconciler *ReconcileService,
	population PopulationLister,
) *ScheduleDiffer {
	return &ScheduleDiffer{
		schedules:  schedules,
		source:     source,
		notifier:   notifier,
		reconciler: reconciler,
		guard:      NewSyncGuard(),
		population: population,
	}
}

// Guard exposes the differ's single-flight guard
func (d *ScheduleDiffer) Guard() *SyncGuard {
	return d.guard
}

// DiffAndApply classifies external slots against the doctor's local set,
// replaces the local set wholesale, and dispatches notifications for
// modified and deleted slots. Newly added slots affect no existing patients
// and emit no event. The returned events are what drove notification.
func (d *ScheduleDiffer) DiffAndApply(ctx context.Context, doctorID string, external []entities.ExternalScheduleSlot) ([]entities.ScheduleChange, error) {
	local, err := d.schedules.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	diff := DiffSlots(local, external)

	events := make([]entities.ScheduleChange, 0, len(diff.Modified)+len(diff.Deleted))
	for _, mod := range diff.Modified {
		events = append(events, entities.ScheduleChange{
			DoctorID:     doctorID,
			DayOfWeek:    mod.External.DayOfWeek,
			LocationCode: mod.External.LocationCode,
			Kind:         entities.ScheduleChangeModified,
			OldStart:     NormalizeClock(mod.Local.StartTime),
			OldEnd:       NormalizeClock(mod.Local.EndTime),
			NewStart:     NormalizeClock(mod.External.StartTime),
			NewEnd:       NormalizeClock(mod.External.EndTime),
		})
	}
	for _, deleted := range diff.Deleted {
		events = append(events, entities.ScheduleChange{
			DoctorID:     doctorID,
			DayOfWeek:    deleted.DayOfWeek,
			LocationCode: deleted.LocationCode,
			Kind:         entities.ScheduleChangeDeleted,
			OldStart:     NormalizeClock(deleted.StartTime),
			OldEnd:       NormalizeClock(deleted.EndTime),
		})
	}

	// The diff exists to drive notification; persistence is always a full
	// replace because slots carry no external identity to update in place.
	slots := make([]*entities.ScheduleSlot, 0, len(external))
	for _, ext := range external {
		slots = append(slots, &entities.ScheduleSlot{
			DoctorID:     doctorID,
			DayOfWeek:    ext.DayOfWeek,
			StartTime:    NormalizeClock(ext.StartTime),
			EndTime:      NormalizeClock(ext.EndTime),
			LocationCode: ext.LocationCode,
			Quota:        ext.Quota,
		})
	}
	if err := d.schedules.ReplaceForDoctor(ctx, doctorID, slots); err != nil {
		return nil, err
	}

	for _, event := range events {
		d.notifier.NotifyScheduleChange(ctx, doctorID, event)
	}

	return events, nil
}

// SyncDoctor re-reads one doctor's weekly schedule and reconciles it. When
// the schedule changed, future registrations are re-synced as well to catch
// patients who booked through channels outside the normal flow.
func (d *ScheduleDiffer) SyncDoctor(ctx context.Context, doctorID string) ([]entities.ScheduleChange, error) {
	external, err := d.source.ListScheduleSlots(ctx, doctorID)
	if err != nil {
		log.Warn().Err(err).Str("doctor_id", doctorID).Msg("schedule snapshot fetch failed, skipping doctor")
		return nil, nil
	}

	events, err := d.DiffAndApply(ctx, doctorID, external)
	if err != nil {
		return nil, err
	}

	if len(events) > 0 && d.reconciler != nil {
		d.reconciler.SyncAllFuture(ctx, doctorID)
	}
	return events, nil
}

// SyncAll sweeps the whole doctor population under the single-flight guard.
// It returns ErrSyncInProgress when a sweep is already running.
func (d *ScheduleDiffer) SyncAll(ctx context.Context) (int, error) {
	if !d.guard.TryAcquire() {
		return 0, ErrSyncInProgress
	}
	defer d.guard.Release()

	d.notifier.ResetPass()

	doctors, err := d.population.ListDoctorIDs(ctx)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, doctorID := range doctors {
		events, err := d.SyncDoctor(ctx, doctorID)
		if err != nil {
			log.Error().Err(err).Str("doctor_id", doctorID).Msg("schedule reconciliation failed, skipping doctor")
			continue
		}
		changed += len(events)
	}

	log.Info().Int("doctors", len(doctors)).Int("changed_slots", changed).Msg("schedule sweep finished")
	return changed, nil
}
