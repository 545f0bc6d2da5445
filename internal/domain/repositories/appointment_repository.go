package repositories

import (
	"context"
	"time"

	"github.com/cliniclink/record-bridge/internal/domain/entities"
)

// AppointmentFilter narrows appointment queries
type AppointmentFilter struct {
	DoctorID     string
	Status       entities.AppointmentStatus
	LocationCode string
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// AppointmentRepository is the local projection store for appointments
type AppointmentRepository interface {
	// UpsertByExternalKey inserts or updates the row keyed on external_key.
	// The write is idempotent; repeating it with the same snapshot is a no-op.
	UpsertByExternalKey(ctx context.Context, appointment *entities.Appointment) error

	// GetByExternalKey returns the appointment for one registration key, or a
	// NOT_FOUND error.
	GetByExternalKey(ctx context.Context, externalKey string) (*entities.Appointment, error)

	// GetByID returns the appointment with the given local ID, or a NOT_FOUND
	// error.
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// List returns appointments matching the filter, ordered by scheduled_at.
	List(ctx context.Context, filter AppointmentFilter) ([]*entities.Appointment, error)

	// MarkCancelled flips the row to cancelled and appends a system note.
	MarkCancelled(ctx context.Context, id string, note string) error

	// ListDoctorIDs returns every distinct doctor present in the projection.
	ListDoctorIDs(ctx context.Context) ([]string, error)
}
