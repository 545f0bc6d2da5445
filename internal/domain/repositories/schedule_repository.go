package repositories

import (
	"context"
	"time"

	"github.com/cliniclink/record-bridge/internal/domain/entities"
)

// ScheduleRepository is the local projection store for weekly schedule slots
type ScheduleRepository interface {
	// ListByDoctor returns the doctor's current reconciled slot set.
	ListByDoctor(ctx context.Context, doctorID string) ([]*entities.ScheduleSlot, error)

	// ReplaceForDoctor deletes all slots for the doctor and inserts the given
	// set in one transaction.
	ReplaceForDoctor(ctx context.Context, doctorID string, slots []*entities.ScheduleSlot) error

	// ListExceptions returns override records for the doctor within [from, to].
	ListExceptions(ctx context.Context, doctorID string, from, to time.Time) ([]*entities.ScheduleException, error)
}
