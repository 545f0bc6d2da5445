package recordsource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cliniclink/record-bridge/internal/domain/entities"
	"github.com/cliniclink/record-bridge/internal/domain/providers"
	"github.com/cliniclink/record-bridge/internal/infrastructure/clients/hospitalapi"
	apperrors "github.com/cliniclink/record-bridge/pkg/errors"
)

// HospitalAdapter implements RecordSource over the hospital bridge API
type HospitalAdapter struct {
	client hospitalapi.Client
}

// NewHospitalAdapter creates a record source backed by the bridge API
func NewHospitalAdapter(client hospitalapi.Client) providers.RecordSource {
	return &HospitalAdapter{client: client}
}

// ListRegistrations returns every registration for the doctor on the date
func (a *HospitalAdapter) ListRegistrations(ctx context.Context, doctorID string, date time.Time) ([]entities.ExternalRegistrationRecord, error) {
	rows, err := a.client.ListRegistrations(ctx, doctorID, date)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to list registrations", err)
	}

	records := make([]entities.ExternalRegistrationRecord, 0, len(rows))
	for _, row := range rows {
		record, err := toRegistrationRecord(row)
		if err != nil {
			return nil, apperrors.NewExternalError("malformed registration row", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// ListScheduleSlots returns the doctor's full weekly recurrence
func (a *HospitalAdapter) ListScheduleSlots(ctx context.Context, doctorID string) ([]entities.ExternalScheduleSlot, error) {
	rows, err := a.client.ListScheduleSlots(ctx, doctorID)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to list schedule slots", err)
	}

	slots := make([]entities.ExternalScheduleSlot, 0, len(rows))
	for _, row := range rows {
		slots = append(slots, entities.ExternalScheduleSlot{
			DoctorID:     row.DoctorID,
			DayOfWeek:    row.DayOfWeek,
			StartTime:    row.StartTime,
			EndTime:      row.EndTime,
			LocationCode: row.LocationCode,
			Quota:        row.Quota,
		})
	}
	return slots, nil
}

// FindRegistration is a point lookup by registration ID
func (a *HospitalAdapter) FindRegistration(ctx context.Context, registrationID string) (*entities.ExternalRegistrationRecord, error) {
	row, err := a.client.GetRegistration(ctx, registrationID)
	if errors.Is(err, hospitalapi.ErrNotFound) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("registration %s not found", registrationID))
	}
	if err != nil {
		return nil, apperrors.NewExternalError("failed to fetch registration", err)
	}

	record, err := toRegistrationRecord(*row)
	if err != nil {
		return nil, apperrors.NewExternalError("malformed registration row", err)
	}
	return &record, nil
}

// ListActiveDates returns ascending distinct registration dates on or after from
func (a *HospitalAdapter) ListActiveDates(ctx context.Context, doctorID string, from time.Time) ([]time.Time, error) {
	raw, err := a.client.ListRegistrationDates(ctx, doctorID, from)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to list registration dates", err)
	}

	dates := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		d, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			return nil, apperrors.NewExternalError("malformed registration date", err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// The legacy bridge emits timestamps in either RFC3339 or the bare
// "YYYY-MM-DD HH:MM:SS" form depending on which upstream table the row
// originated from.
var timestampLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func toRegistrationRecord(row hospitalapi.RegistrationRow) (entities.ExternalRegistrationRecord, error) {
	scheduledAt, err := parseTimestamp(row.ScheduledAt)
	if err != nil {
		return entities.ExternalRegistrationRecord{}, err
	}

	record := entities.ExternalRegistrationRecord{
		RegistrationID: row.RegistrationID,
		DoctorID:       row.DoctorID,
		PatientID:      row.PatientID,
		PatientName:    row.PatientName,
		PatientPhone:   row.PatientPhone,
		ScheduledAt:    scheduledAt,
		StatusCode:     row.Status,
		LocationCode:   row.LocationCode,
	}

	if row.BookedAt != nil && *row.BookedAt != "" {
		bookedAt, err := parseTimestamp(*row.BookedAt)
		if err != nil {
			return entities.ExternalRegistrationRecord{}, err
		}
		record.BookedAt = &bookedAt
	}
	return record, nil
}
