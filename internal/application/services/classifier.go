package services

import (
	"strings"
	"time"

	"github.com/cliniclink/record-bridge/internal/domain/entities"
)

// RegistrationChangeKind classifies one external registration against the
// local projection. Classification drives notification only; persistence is
// an unconditional idempotent upsert regardless of kind.
type RegistrationChangeKind string

const (
	RegistrationUnchanged RegistrationChangeKind = "unchanged"
	RegistrationNew       RegistrationChangeKind = "new"
	RegistrationTimeMoved RegistrationChangeKind = "time_moved"
	RegistrationCancelled RegistrationChangeKind = "cancelled"
)

// scheduledAtTolerance absorbs seconds-level drift introduced by the
// booked-at fallback in NormalizeScheduledAt. Differences at or below the
// tolerance are not a time change.
const scheduledAtTolerance = 60 * time.Second

// NormalizeScheduledAt resolves the effective appointment time for a
// registration row. The record system writes a midnight placeholder for
// registrations created through the online booking channel; for those rows
// the clock is recovered from the booking timestamp.
func NormalizeScheduledAt(record entities.ExternalRegistrationRecord) time.Time {
	t := record.ScheduledAt
	if !isMidnight(t) || record.BookedAt == nil || isMidnight(*record.BookedAt) {
		return t
	}
	b := *record.BookedAt
	return time.Date(t.Year(), t.Month(), t.Day(), b.Hour(), b.Minute(), b.Second(), 0, t.Location())
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}

// MapStatus maps the record system's free-text status domain onto the local
// three-state domain. Unknown codes are treated as still scheduled.
func MapStatus(code string) entities.AppointmentStatus {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "served":
		return entities.AppointmentStatusCompleted
	case "cancelled", "canceled":
		return entities.AppointmentStatusCancelled
	default:
		return entities.AppointmentStatusScheduled
	}
}

// ClassifyRegistration compares one snapshot row against the current local
// appointment, if any.
func ClassifyRegistration(record entities.ExternalRegistrationRecord, existing *entities.Appointment) RegistrationChangeKind {
	if existing == nil {
		return RegistrationNew
	}

	status := MapStatus(record.StatusCode)
	if status == entities.AppointmentStatusCancelled && existing.Status != entities.AppointmentStatusCancelled {
		return RegistrationCancelled
	}

	delta := NormalizeScheduledAt(record).Sub(existing.ScheduledAt)
	if delta > scheduledAtTolerance || delta < -scheduledAtTolerance {
		return RegistrationTimeMoved
	}

	return RegistrationUnchanged
}
