package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/cliniclink/record-bridge/internal/domain/entities"
	"github.com/cliniclink/record-bridge/internal/domain/repositories"
	"github.com/cliniclink/record-bridge/internal/infrastructure/clients/postgres"
	apperrors "github.com/cliniclink/record-bridge/pkg/errors"
)

// ScheduleAdapter implements the ScheduleRepository interface
type ScheduleAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewScheduleAdapter creates a new schedule adapter
func NewScheduleAdapter(client *postgres.Client) repositories.ScheduleRepository {
	return &ScheduleAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListByDoctor returns the doctor's current reconciled slot set
func (a *ScheduleAdapter) ListByDoctor(ctx context.Context, doctorID string) ([]*entities.ScheduleSlot, error) {
	query, args, err := a.db.Select(
		"id", "doctor_id", "day_of_week", "start_time", "end_time",
		"location_code", "quota", "created_at", "updated_at",
	).From("schedule_slots").
		Where(goqu.Ex{"doctor_id": doctorID}).
		Order(goqu.I("day_of_week").Asc(), goqu.I("start_time").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build slot query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list schedule slots", err)
	}
	defer rows.Close()

	var slots []*entities.ScheduleSlot
	for rows.Next() {
		slot := &entities.ScheduleSlot{}
		err := rows.Scan(
			&slot.ID, &slot.DoctorID, &slot.DayOfWeek, &slot.StartTime,
			&slot.EndTime, &slot.LocationCode, &slot.Quota,
			&slot.CreatedAt, &slot.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan schedule slot", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// ReplaceForDoctor deletes all slots for the doctor and inserts the given set
// in one transaction.
func (a *ScheduleAdapter) ReplaceForDoctor(ctx context.Context, doctorID string, slots []*entities.ScheduleSlot) error {
	tx, err := a.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	deleteQuery, deleteArgs, err := a.db.Delete("schedule_slots").
		Where(goqu.Ex{"doctor_id": doctorID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return apperrors.NewInternalError("failed to delete schedule slots", err)
	}

	if len(slots) > 0 {
		now := time.Now()
		records := make([]any, 0, len(slots))
		for _, slot := range slots {
			if slot.ID == "" {
				slot.ID = uuid.New().String()
			}
			if slot.CreatedAt.IsZero() {
				slot.CreatedAt = now
			}
			slot.UpdatedAt = now
			records = append(records, goqu.Record{
				"id":            slot.ID,
				"doctor_id":     doctorID,
				"day_of_week":   slot.DayOfWeek,
				"start_time":    slot.StartTime,
				"end_time":      slot.EndTime,
				"location_code": slot.LocationCode,
				"quota":         slot.Quota,
				"created_at":    slot.CreatedAt,
				"updated_at":    slot.UpdatedAt,
			})
		}

		insertQuery, insertArgs, err := a.db.Insert("schedule_slots").Rows(records...).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build insert query", err)
		}
		if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
			return apperrors.NewInternalError("failed to insert schedule slots", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit schedule replace", err)
	}
	return nil
}

// ListExceptions returns override records for the doctor within [from, to]
func (a *ScheduleAdapter) ListExceptions(ctx context.Context, doctorID string, from, to time.Time) ([]*entities.ScheduleException, error) {
	query, args, err := a.db.Select("id", "doctor_id", "date", "reason").
		From("schedule_exceptions").
		Where(
			goqu.Ex{"doctor_id": doctorID},
			goqu.C("date").Gte(from),
			goqu.C("date").Lte(to),
		).
		Order(goqu.I("date").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build exception query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list schedule exceptions", err)
	}
	defer rows.Close()

	var exceptions []*entities.ScheduleException
	for rows.Next() {
		exc := &entities.ScheduleException{}
		if err := rows.Scan(&exc.ID, &exc.DoctorID, &exc.Date, &exc.Reason); err != nil {
			return nil, apperrors.NewInternalError("failed to scan schedule exception", err)
		}
		exceptions = append(exceptions, exc)
	}
	return exceptions, rows.Err()
}
