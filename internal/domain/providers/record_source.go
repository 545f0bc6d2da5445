package providers

import (
	"context"
	"time"

	"github.com/cliniclink/record-bridge/internal/domain/entities"
)

// RecordSource is a read-only query facade over the hospital record system.
// The record system offers point-in-time snapshots keyed by natural
// identifiers only; it has no change tracking and imposes no ordering.
type RecordSource interface {
	// ListRegistrations returns every registration for a doctor on a date,
	// cancellations included.
	ListRegistrations(ctx context.Context, doctorID string, date time.Time) ([]entities.ExternalRegistrationRecord, error)

	// ListScheduleSlots returns the full weekly recurrence for one doctor.
	ListScheduleSlots(ctx context.Context, doctorID string) ([]entities.ExternalScheduleSlot, error)

	// FindRegistration is a point lookup by registration ID. Returns a
	// NOT_FOUND error when the key no longer exists.
	FindRegistration(ctx context.Context, registrationID string) (*entities.ExternalRegistrationRecord, error)

	// ListActiveDates returns, in ascending order, every distinct date on or
	// after from with at least one registration for the doctor.
	ListActiveDates(ctx context.Context, doctorID string, from time.Time) ([]time.Time, error)
}
