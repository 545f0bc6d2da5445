package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliniclink/record-bridge/internal/adapters/database"
	"github.com/cliniclink/record-bridge/internal/domain/entities"
	"github.com/cliniclink/record-bridge/internal/domain/repositories"
	"github.com/cliniclink/record-bridge/internal/infrastructure/clients/postgres"
)

func setupScheduleAdapter(t *testing.T) (repositories.ScheduleRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return database.NewScheduleAdapter(postgres.NewClientWithDB(mockDB)), mock
}

func TestScheduleAdapter_ListByDoctor(t *testing.T) {
	adapter, mock := setupScheduleAdapter(t)

	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .* FROM "schedule_slots" WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "doctor_id", "day_of_week", "start_time", "end_time",
			"location_code", "quota", "created_at", "updated_at",
		}).AddRow("slot-1", "D-1", 1, "08:00", "12:00", "A", 20, now, now))

	slots, err := adapter.ListByDoctor(context.Background(), "D-1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 1, slots[0].DayOfWeek)
	assert.Equal(t, "08:00", slots[0].StartTime)
}

func TestScheduleAdapter_ReplaceForDoctor(t *testing.T) {
	t.Run("deletes and inserts in one transaction", func(t *testing.T) {
		adapter, mock := setupScheduleAdapter(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "schedule_slots" WHERE`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`INSERT INTO "schedule_slots"`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := adapter.ReplaceForDoctor(context.Background(), "D-1", []*entities.ScheduleSlot{
			{DoctorID: "D-1", DayOfWeek: 1, StartTime: "08:00", EndTime: "12:00", LocationCode: "A", Quota: 20},
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty set only deletes", func(t *testing.T) {
		adapter, mock := setupScheduleAdapter(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "schedule_slots" WHERE`).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		err := adapter.ReplaceForDoctor(context.Background(), "D-1", nil)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
