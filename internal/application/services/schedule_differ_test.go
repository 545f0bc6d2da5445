package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cliniclink/record-bridge/internal/adapters/recordsource"
	"github.com/cliniclink/record-bridge/internal/application/services"
	"github.com/cliniclink/record-bridge/internal/domain/entities"
)

type MockPopulation struct {
	mock.Mock
}

func (m *MockPopulation) ListDoctorIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// nextMondayAt returns the first Monday strictly after today, offset by
// whole weeks, at the given hour.
func nextMondayAt(weeks, hour int) time.Time {
	d := time.Now().AddDate(0, 0, 1)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	d = d.AddDate(0, 0, 7*weeks)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.Local)
}

func seedMondaySlot(t *testing.T, schedules *fakeScheduleRepo) {
	t.Helper()
	require.NoError(t, schedules.ReplaceForDoctor(context.Background(), "D-1", []*entities.ScheduleSlot{
		{DoctorID: "D-1", DayOfWeek: int(time.Monday), StartTime: "08:00", EndTime: "12:00", LocationCode: "A", Quota: 20},
	}))
}

func TestScheduleDiffer_DiffAndApply_Modification(t *testing.T) {
	ctx := context.Background()

	schedules := newFakeScheduleRepo()
	seedMondaySlot(t, schedules)

	repo := newFakeAppointmentRepo()
	for i, key := range []string{"R-500", "R-501"} {
		require.NoError(t, repo.UpsertByExternalKey(ctx, &entities.Appointment{
			ExternalKey:  key,
			DoctorID:     "D-1",
			PatientID:    "P-" + key,
			PatientName:  "Patient " + key,
			PatientPhone: "+6281100" + key,
			ScheduledAt:  nextMondayAt(i, 9),
			Status:       entities.AppointmentStatusScheduled,
			LocationCode: "A",
		}))
	}
	// A Tuesday booking at the same location is unaffected by a Monday change.
	require.NoError(t, repo.UpsertByExternalKey(ctx, &entities.Appointment{
		ExternalKey:  "R-502",
		DoctorID:     "D-1",
		PatientID:    "P-R-502",
		PatientName:  "Patient R-502",
		PatientPhone: "+6281100R-502",
		ScheduledAt:  nextMondayAt(0, 9).AddDate(0, 0, 1),
		Status:       entities.AppointmentStatusScheduled,
		LocationCode: "A",
	}))

	sender := &captureSender{}
	notifier := newTestNotifier(t, repo, schedules, false, sender)
	differ := services.NewScheduleDiffer(schedules, recordsource.NewMockAdapter(), notifier, nil, repo)

	external := []entities.ExternalScheduleSlot{
		{DoctorID: "D-1", DayOfWeek: int(time.Monday), StartTime: "09:00:00", EndTime: "13:00:00", LocationCode: "A", Quota: 20},
	}

	events, err := differ.DiffAndApply(ctx, "D-1", external)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, entities.ScheduleChangeModified, events[0].Kind)
	assert.Equal(t, "08:00", events[0].OldStart)
	assert.Equal(t, "09:00", events[0].NewStart)

	slots, err := schedules.ListByDoctor(ctx, "D-1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.Equal(t, "13:00", slots[0].EndTime)

	// Only the two Monday bookings heard about it.
	assert.Equal(t, 2, sender.count())
	assert.Contains(t, sender.joined(), "09:00-13:00")

	// Reconciliation has converged: applying the same snapshot again is
	// silent.
	events, err = differ.DiffAndApply(ctx, "D-1", external)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 2, sender.count())
}

func TestScheduleDiffer_DiffAndApply_Removal(t *testing.T) {
	ctx := context.Background()

	schedules := newFakeScheduleRepo()
	seedMondaySlot(t, schedules)

	repo := newFakeAppointmentRepo()
	require.NoError(t, repo.UpsertByExternalKey(ctx, &entities.Appointment{
		ExternalKey:  "R-510",
		DoctorID:     "D-1",
		PatientID:    "P-7",
		PatientName:  "Patient P-7",
		PatientPhone: "+6281100P-7",
		ScheduledAt:  nextMondayAt(0, 9),
		Status:       entities.AppointmentStatusScheduled,
		LocationCode: "A",
	}))

	sender := &captureSender{}
	notifier := newTestNotifier(t, repo, schedules, false, sender)
	differ := services.NewScheduleDiffer(schedules, recordsource.NewMockAdapter(), notifier, nil, repo)

	events, err := differ.DiffAndApply(ctx, "D-1", nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, entities.ScheduleChangeDeleted, events[0].Kind)

	slots, err := schedules.ListByDoctor(ctx, "D-1")
	require.NoError(t, err)
	assert.Empty(t, slots)

	require.Equal(t, 1, sender.count())
	assert.Contains(t, sender.joined(), "discontinued")
}

func TestScheduleDiffer_SyncDoctor_ResyncsRegistrationsOnChange(t *testing.T) {
	ctx := context.Background()

	schedules := newFakeScheduleRepo()
	seedMondaySlot(t, schedules)

	repo := newFakeAppointmentRepo()
	source := recordsource.NewMockAdapter()
	source.SetScheduleSlots("D-1", []entities.ExternalScheduleSlot{
		{DoctorID: "D-1", DayOfWeek: int(time.Monday), StartTime: "10:00", EndTime: "14:00", LocationCode: "A", Quota: 20},
	})
	// A registration the projection has never seen; the schedule change
	// should pull it in.
	source.PutRegistration(registration("R-520", "D-1", "P-3", nextMondayAt(0, 11), "active"))

	sender := &captureSender{}
	notifier := newTestNotifier(t, repo, schedules, false, sender)
	reconciler := services.NewReconcileService(repo, source, notifier, nil, 30)
	differ := services.NewScheduleDiffer(schedules, source, notifier, reconciler, repo)

	events, err := differ.SyncDoctor(ctx, "D-1")
	require.NoError(t, err)
	require.Len(t, events, 1)

	pulled, err := repo.GetByExternalKey(ctx, "R-520")
	require.NoError(t, err)
	assert.Equal(t, entities.AppointmentStatusScheduled, pulled.Status)
}

func TestScheduleDiffer_SyncAll_PopulationError(t *testing.T) {
	ctx := context.Background()

	population := new(MockPopulation)
	population.On("ListDoctorIDs", mock.Anything).Return(nil, errors.New("projection unavailable"))

	sender := &captureSender{}
	notifier := newTestNotifier(t, newFakeAppointmentRepo(), newFakeScheduleRepo(), false, sender)
	differ := services.NewScheduleDiffer(newFakeScheduleRepo(), recordsource.NewMockAdapter(), notifier, nil, population)

	_, err := differ.SyncAll(ctx)
	assert.Error(t, err)
	population.AssertExpectations(t)

	// The guard must be released on the error path.
	_, err = differ.SyncAll(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrSyncInProgress)
}

func TestScheduleDiffer_SyncAll_AlreadyRunning(t *testing.T) {
	ctx := context.Background()

	schedules := newFakeScheduleRepo()
	repo := newFakeAppointmentRepo()
	sender := &captureSender{}
	notifier := newTestNotifier(t, repo, schedules, false, sender)
	differ := services.NewScheduleDiffer(schedules, recordsource.NewMockAdapter(), notifier, nil, repo)

	require.True(t, differ.Guard().TryAcquire())
	_, err := differ.SyncAll(ctx)
	assert.ErrorIs(t, err, services.ErrSyncInProgress)
	differ.Guard().Release()

	_, err = differ.SyncAll(ctx)
	assert.NoError(t, err)
}
