package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/cliniclink/record-bridge/internal/domain/entities"
	"github.com/cliniclink/record-bridge/internal/domain/repositories"
	"github.com/cliniclink/record-bridge/internal/infrastructure/clients/postgres"
	apperrors "github.com/cliniclink/record-bridge/pkg/errors"
)

var appointmentColumns = []any{
	"id", "external_key", "doctor_id", "patient_id", "patient_name",
	"patient_phone", "scheduled_at", "status", "location_code", "notes",
	"created_at", "updated_at",
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// UpsertByExternalKey inserts or updates the row for one registration key
func (a *AppointmentAdapter) UpsertByExternalKey(ctx context.Context, appointment *entities.Appointment) error {
	now := time.Now()
	if appointment.ID == "" {
		appointment.ID = uuid.New().String()
	}
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = now
	}
	appointment.UpdatedAt = now

	record := goqu.Record{
		"id":            appointment.ID,
		"external_key":  appointment.ExternalKey,
		"doctor_id":     appointment.DoctorID,
		"patient_id":    appointment.PatientID,
		"patient_name":  appointment.PatientName,
		"patient_phone": appointment.PatientPhone,
		"scheduled_at":  appointment.ScheduledAt,
		"status":        appointment.Status,
		"location_code": appointment.LocationCode,
		"notes":         appointment.Notes,
		"created_at":    appointment.CreatedAt,
		"updated_at":    appointment.UpdatedAt,
	}

	query, args, err := a.db.Insert("appointments").
		Rows(record).
		OnConflict(goqu.DoUpdate("external_key", goqu.Record{
			"doctor_id":     appointment.DoctorID,
			"patient_id":    appointment.PatientID,
			"patient_name":  appointment.PatientName,
			"patient_phone": appointment.PatientPhone,
			"scheduled_at":  appointment.ScheduledAt,
			"status":        appointment.Status,
			"location_code": appointment.LocationCode,
			"updated_at":    appointment.UpdatedAt,
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to upsert appointment", err)
	}
	return nil
}

// GetByExternalKey retrieves the appointment for one registration key
func (a *AppointmentAdapter) GetByExternalKey(ctx context.Context, externalKey string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"external_key": externalKey}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with external key %s not found", externalKey))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}
	return appointment, nil
}

// GetByID retrieves an appointment by its local ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}
	return appointment, nil
}

// List retrieves appointments matching the filter, ascending by scheduled_at
func (a *AppointmentAdapter) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).From("appointments")

	if filter.DoctorID != "" {
		ds = ds.Where(goqu.Ex{"doctor_id": filter.DoctorID})
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}
	if filter.LocationCode != "" {
		ds = ds.Where(goqu.Ex{"location_code": filter.LocationCode})
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("scheduled_at").Gte(*filter.From))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("scheduled_at").Lte(*filter.To))
	}

	ds = ds.Order(goqu.I("scheduled_at").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	var appointments []*entities.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}
	return appointments, rows.Err()
}

// MarkCancelled flips an appointment to cancelled and appends a system note
func (a *AppointmentAdapter) MarkCancelled(ctx context.Context, id string, note string) error {
	record := goqu.Record{
		"status":     entities.AppointmentStatusCancelled,
		"updated_at": time.Now(),
	}
	if note != "" {
		record["notes"] = goqu.L("trim(both E'\\n' from notes || E'\\n' || ?)", note)
	}

	query, args, err := a.db.Update("appointments").
		Set(record).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build cancel query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to cancel appointment", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	return nil
}

// ListDoctorIDs returns every distinct doctor present in the projection
func (a *AppointmentAdapter) ListDoctorIDs(ctx context.Context) ([]string, error) {
	query, args, err := a.db.Select(goqu.DISTINCT("doctor_id")).
		From("appointments").
		Order(goqu.I("doctor_id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build doctor query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list doctors", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewInternalError("failed to scan doctor id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var patientPhone, locationCode, notes sql.NullString

	err := row.Scan(
		&appointment.ID,
		&appointment.ExternalKey,
		&appointment.DoctorID,
		&appointment.PatientID,
		&appointment.PatientName,
		&patientPhone,
		&appointment.ScheduledAt,
		&appointment.Status,
		&locationCode,
		&notes,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	appointment.PatientPhone = patientPhone.String
	appointment.LocationCode = locationCode.String
	appointment.Notes = notes.String
	return appointment, nil
}
