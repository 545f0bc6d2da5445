package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cliniclink/record-bridge/internal/domain/entities"
	"github.com/cliniclink/record-bridge/internal/domain/providers"
	"github.com/cliniclink/record-bridge/internal/domain/repositories"
	apperrors "github.com/cliniclink/record-bridge/pkg/errors"
)

// ErrSyncInProgress is returned when a full-population sync is requested
// while another run holds the single-flight guard.
var ErrSyncInProgress = apperrors.NewConflictError("sync already in progress")

// syncCachePattern covers the response cache other surfaces build over the
// projection; it is cleared before every full sweep so stale reads cannot
// outlive a reconciliation pass.
const syncCachePattern = "http:cache:*"

// ReconcileService reconstructs semantic changes (new registration, time
// change, cancellation, reschedule) from unordered snapshot reads of the
// hospital record system and applies them idempotently to the local
// projection. Per-unit failures are logged and skipped, never propagated:
// one doctor's failure must not abort a population sweep.
type ReconcileService struct {
	appointments repositories.AppointmentRepository
	source       providers.RecordSource
	notifier     *NotificationService
	cache        providers.CacheProvider
	guard        *SyncGuard
	lookahead    time.Duration
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(
	appointments repositories.AppointmentRepository,
	source providers.RecordSource,
	notifier *NotificationService,
	cache providers.CacheProvider,
	lookaheadDays int,
) *ReconcileService {
	if lookaheadDays <= 0 {
		lookaheadDays = 30
	}
	return &ReconcileService{
		appointments: appointments,
		source:       source,
		notifier:     notifier,
		cache:        cache,
		guard:        NewSyncGuard(),
		lookahead:    time.Duration(lookaheadDays) * 24 * time.Hour,
	}
}

// Guard exposes the reconciler's single-flight guard
func (s *ReconcileService) Guard() *SyncGuard {
	return s.guard
}

// Reconcile runs one read-classify-write cycle for a single (doctor, date)
// unit and returns the number of records processed. An external read failure
// yields zero: the unit is skipped and the next pass retries naturally since
// every pass re-reads full state.
func (s *ReconcileService) Reconcile(ctx context.Context, doctorID string, date time.Time) int {
	records, err := s.source.ListRegistrations(ctx, doctorID, date)
	if err != nil {
		log.Warn().Err(err).Str("doctor_id", doctorID).Str("date", date.Format("2006-01-02")).
			Msg("registration snapshot fetch failed, skipping unit")
		return 0
	}

	processed := 0
	for _, record := range records {
		existing, err := s.appointments.GetByExternalKey(ctx, record.RegistrationID)
		if err != nil && !apperrors.IsNotFound(err) {
			log.Error().Err(err).Str("external_key", record.RegistrationID).
				Msg("projection lookup failed, skipping record")
			continue
		}

		kind := ClassifyRegistration(record, existing)
		appointment := project(record, existing)

		if err := s.appointments.UpsertByExternalKey(ctx, appointment); err != nil {
			log.Error().Err(err).Str("external_key", record.RegistrationID).
				Msg("projection upsert failed, skipping record")
			continue
		}
		processed++

		switch kind {
		case RegistrationTimeMoved:
			log.Info().Str("external_key", record.RegistrationID).
				Time("scheduled_at", appointment.ScheduledAt).Msg("registration time moved")
			s.notifier.NotifyAppointmentChange(ctx, appointment, entities.NotificationRescheduled, true)
		case RegistrationCancelled:
			log.Info().Str("external_key", record.RegistrationID).Msg("registration cancelled in source")
			s.notifier.NotifyAppointmentChange(ctx, appointment, entities.NotificationCancelled, true)
		case RegistrationNew:
			log.Debug().Str("external_key", record.RegistrationID).Msg("new registration projected")
		}
	}

	return processed
}

// project builds the upsert row for a snapshot record, preserving local
// identity and audit notes when the row already exists.
func project(record entities.ExternalRegistrationRecord, existing *entities.Appointment) *entities.Appointment {
	appointment := &entities.Appointment{
		ExternalKey:  record.RegistrationID,
		DoctorID:     record.DoctorID,
		PatientID:    record.PatientID,
		PatientName:  record.PatientName,
		PatientPhone: record.PatientPhone,
		ScheduledAt:  NormalizeScheduledAt(record),
		Status:       MapStatus(record.StatusCode),
		LocationCode: record.LocationCode,
	}
	if existing != nil {
		appointment.ID = existing.ID
		appointment.Notes = existing.Notes
		appointment.CreatedAt = existing.CreatedAt
	}
	return appointment
}

// ProcessReschedules re-checks every locally scheduled future appointment
// against the record system. A registration whose key vanished from its
// original date is either a reschedule (a replacement record exists for the
// same doctor and patient) or a pure cancellation; the two present
// identically at the key level, so the replacement search is what tells
// them apart.
func (s *ReconcileService) ProcessReschedules(ctx context.Context) {
	today := startOfDay(time.Now())

	scheduled, err := s.appointments.List(ctx, repositories.AppointmentFilter{
		Status: entities.AppointmentStatusScheduled,
		From:   &today,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to list scheduled appointments for orphan check")
		return
	}

	for _, appointment := range scheduled {
		record, err := s.source.FindRegistration(ctx, appointment.ExternalKey)
		if err != nil && !apperrors.IsNotFound(err) {
			log.Warn().Err(err).Str("external_key", appointment.ExternalKey).
				Msg("registration lookup failed, skipping appointment")
			continue
		}
		if record != nil && MapStatus(record.StatusCode) != entities.AppointmentStatusCancelled {
			// Still present and live; time changes are Reconcile's concern.
			continue
		}

		replacement := s.findReplacement(ctx, appointment, today)
		if replacement == nil {
			log.Info().Str("external_key", appointment.ExternalKey).Msg("pure cancellation inferred")
			if err := s.appointments.MarkCancelled(ctx, appointment.ID, "[sync] cancelled in source system with no successor"); err != nil {
				log.Error().Err(err).Str("appointment_id", appointment.ID).Msg("failed to mark cancelled")
				continue
			}
			appointment.Status = entities.AppointmentStatusCancelled
			s.notifier.NotifyAppointmentChange(ctx, appointment, entities.NotificationCancelled, true)
			continue
		}

		newDate := replacement.ScheduledAt.Format("2006-01-02")
		note := fmt.Sprintf("[sync] rescheduled to %s (registration %s)", newDate, replacement.RegistrationID)
		log.Info().Str("external_key", appointment.ExternalKey).
			Str("replacement_key", replacement.RegistrationID).Str("new_date", newDate).
			Msg("reschedule inferred")

		if err := s.appointments.MarkCancelled(ctx, appointment.ID, note); err != nil {
			log.Error().Err(err).Str("appointment_id", appointment.ID).Msg("failed to mark superseded appointment")
			continue
		}

		if _, err := s.appointments.GetByExternalKey(ctx, replacement.RegistrationID); apperrors.IsNotFound(err) {
			// The replacement's date has not been synced yet; pull it in now.
			s.Reconcile(ctx, appointment.DoctorID, replacement.ScheduledAt)
		}

		moved := *appointment
		moved.Status = entities.AppointmentStatusCancelled
		moved.ScheduledAt = NormalizeScheduledAt(*replacement)
		s.notifier.NotifyAppointmentChange(ctx, &moved, entities.NotificationRescheduled, true)
	}
}

// findReplacement scans future dates in ascending order for a live
// registration of the same doctor and patient under a different key. The
// earliest date wins; within a date the lowest registration ID wins, which
// keeps ambiguous multi-candidate cases deterministic.
func (s *ReconcileService) findReplacement(ctx context.Context, appointment *entities.Appointment, from time.Time) *entities.ExternalRegistrationRecord {
	dates, err := s.source.ListActiveDates(ctx, appointment.DoctorID, from)
	if err != nil {
		log.Warn().Err(err).Str("doctor_id", appointment.DoctorID).Msg("active-date enumeration failed")
		return nil
	}

	for _, date := range dates {
		records, err := s.source.ListRegistrations(ctx, appointment.DoctorID, date)
		if err != nil {
			log.Warn().Err(err).Str("date", date.Format("2006-01-02")).Msg("replacement scan failed for date")
			continue
		}

		var best *entities.ExternalRegistrationRecord
		for i := range records {
			record := &records[i]
			if record.PatientID != appointment.PatientID {
				continue
			}
			if record.RegistrationID == appointment.ExternalKey {
				continue
			}
			if MapStatus(record.StatusCode) == entities.AppointmentStatusCancelled {
				continue
			}
			if best == nil || record.RegistrationID < best.RegistrationID {
				best = record
			}
		}
		if best != nil {
			return best
		}
	}
	return nil
}

// SyncAllFuture reconciles every future date with at least one registration
// for the doctor and returns the number of records processed.
func (s *ReconcileService) SyncAllFuture(ctx context.Context, doctorID string) int {
	today := startOfDay(time.Now())
	dates, err := s.source.ListActiveDates(ctx, doctorID, today)
	if err != nil {
		log.Warn().Err(err).Str("doctor_id", doctorID).Msg("active-date enumeration failed, skipping doctor")
		return 0
	}

	horizon := today.Add(s.lookahead)
	processed := 0
	for _, date := range dates {
		if date.After(horizon) {
			break
		}
		processed += s.Reconcile(ctx, doctorID, date)
	}
	return processed
}

// SyncAll runs a full-population sweep under the single-flight guard: cache
// invalidation, per-doctor future reconciliation, then orphan/reschedule
// detection. It returns ErrSyncInProgress when a sweep is already running.
func (s *ReconcileService) SyncAll(ctx context.Context) (int, error) {
	if !s.guard.TryAcquire() {
		return 0, ErrSyncInProgress
	}
	defer s.guard.Release()

	s.notifier.ResetPass()

	if s.cache != nil {
		if err := s.cache.DeletePattern(ctx, syncCachePattern); err != nil {
			log.Warn().Err(err).Msg("pre-sync cache invalidation failed")
		}
	}

	doctors, err := s.appointments.ListDoctorIDs(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, doctorID := range doctors {
		processed += s.SyncAllFuture(ctx, doctorID)
	}

	s.ProcessReschedules(ctx)

	log.Info().Int("doctors", len(doctors)).Int("processed", processed).Msg("registration sweep finished")
	return processed, nil
}
