package database_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliniclink/record-bridge/internal/adapters/database"
	"github.com/cliniclink/record-bridge/internal/domain/entities"
	"github.com/cliniclink/record-bridge/internal/domain/repositories"
	"github.com/cliniclink/record-bridge/internal/infrastructure/clients/postgres"
	apperrors "github.com/cliniclink/record-bridge/pkg/errors"
)

func setupAdapter(t *testing.T) (repositories.AppointmentRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return database.NewAppointmentAdapter(postgres.NewClientWithDB(mockDB)), mock
}

func appointmentRows(rows ...*entities.Appointment) *sqlmock.Rows {
	out := sqlmock.NewRows([]string{
		"id", "external_key", "doctor_id", "patient_id", "patient_name",
		"patient_phone", "scheduled_at", "status", "location_code", "notes",
		"created_at", "updated_at",
	})
	for _, a := range rows {
		out.AddRow(
			a.ID, a.ExternalKey, a.DoctorID, a.PatientID, a.PatientName,
			a.PatientPhone, a.ScheduledAt, string(a.Status), a.LocationCode,
			a.Notes, a.CreatedAt, a.UpdatedAt,
		)
	}
	return out
}

func TestAppointmentAdapter_UpsertByExternalKey(t *testing.T) {
	adapter, mock := setupAdapter(t)

	mock.ExpectExec(`INSERT INTO "appointments" .* ON CONFLICT \(.?external_key.?\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	appointment := &entities.Appointment{
		ExternalKey: "R-1",
		DoctorID:    "D-1",
		PatientID:   "P-1",
		PatientName: "Jane Doe",
		ScheduledAt: time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC),
		Status:      entities.AppointmentStatusScheduled,
	}
	err := adapter.UpsertByExternalKey(context.Background(), appointment)

	require.NoError(t, err)
	assert.NotEmpty(t, appointment.ID, "a local ID is assigned on first insert")
	assert.False(t, appointment.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_GetByExternalKey(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		adapter, mock := setupAdapter(t)

		want := &entities.Appointment{
			ID:          "appt-1",
			ExternalKey: "R-1",
			DoctorID:    "D-1",
			PatientID:   "P-1",
			PatientName: "Jane Doe",
			ScheduledAt: time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC),
			Status:      entities.AppointmentStatusScheduled,
			CreatedAt:   time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
			UpdatedAt:   time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
		}
		mock.ExpectQuery(`SELECT .* FROM "appointments" WHERE`).
			WillReturnRows(appointmentRows(want))

		got, err := adapter.GetByExternalKey(context.Background(), "R-1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("not found", func(t *testing.T) {
		adapter, mock := setupAdapter(t)

		mock.ExpectQuery(`SELECT .* FROM "appointments" WHERE`).
			WillReturnError(sql.ErrNoRows)

		got, err := adapter.GetByExternalKey(context.Background(), "R-404")
		assert.Nil(t, got)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestAppointmentAdapter_MarkCancelled(t *testing.T) {
	t.Run("appends note and flips status", func(t *testing.T) {
		adapter, mock := setupAdapter(t)

		mock.ExpectExec(`UPDATE "appointments" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := adapter.MarkCancelled(context.Background(), "appt-1", "[sync] cancelled in source system with no successor")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is not found", func(t *testing.T) {
		adapter, mock := setupAdapter(t)

		mock.ExpectExec(`UPDATE "appointments" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := adapter.MarkCancelled(context.Background(), "appt-404", "note")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestAppointmentAdapter_ListDoctorIDs(t *testing.T) {
	adapter, mock := setupAdapter(t)

	mock.ExpectQuery(`SELECT DISTINCT.*doctor_id.* FROM "appointments"`).
		WillReturnRows(sqlmock.NewRows([]string{"doctor_id"}).AddRow("D-1").AddRow("D-2"))

	ids, err := adapter.ListDoctorIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"D-1", "D-2"}, ids)
}
