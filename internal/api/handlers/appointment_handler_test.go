package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliniclink/record-bridge/internal/api/handlers"
	"github.com/cliniclink/record-bridge/internal/domain/entities"
)

func cancelRequest(id, body string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/appointments/"+id+"/cancel", reader)
	req.SetPathValue("id", id)
	return req
}

func TestAppointmentHandler_Cancel(t *testing.T) {
	t.Run("cancels and notifies", func(t *testing.T) {
		f := newSyncFixture(t)
		f.repo.appointment = &entities.Appointment{
			ID:           "appt-1",
			ExternalKey:  "R-1",
			DoctorID:     "D-1",
			PatientID:    "P-1",
			PatientName:  "Jane Doe",
			PatientPhone: "+628110001",
			ScheduledAt:  time.Now().AddDate(0, 0, 3),
			Status:       entities.AppointmentStatusScheduled,
		}
		handler := handlers.NewAppointmentHandler(f.repo, f.notifier)

		rec := httptest.NewRecorder()
		handler.Cancel(rec, cancelRequest("appt-1", `{"reason":"patient request"}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, entities.AppointmentStatusCancelled, f.repo.appointment.Status)
		assert.Equal(t, "[admin] cancelled: patient request", f.repo.note)

		// Manual cancellations notify even though inferred changes are muted.
		assert.Equal(t, 1, f.sender.count())
	})

	t.Run("missing appointment is 404", func(t *testing.T) {
		f := newSyncFixture(t)
		handler := handlers.NewAppointmentHandler(f.repo, f.notifier)

		rec := httptest.NewRecorder()
		handler.Cancel(rec, cancelRequest("appt-404", ""))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("double cancel is 409", func(t *testing.T) {
		f := newSyncFixture(t)
		f.repo.appointment = &entities.Appointment{
			ID:     "appt-1",
			Status: entities.AppointmentStatusCancelled,
		}
		handler := handlers.NewAppointmentHandler(f.repo, f.notifier)

		rec := httptest.NewRecorder()
		handler.Cancel(rec, cancelRequest("appt-1", ""))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Zero(t, f.sender.count())
	})

	t.Run("reason is optional", func(t *testing.T) {
		f := newSyncFixture(t)
		f.repo.appointment = &entities.Appointment{
			ID:           "appt-1",
			PatientName:  "Jane Doe",
			PatientPhone: "+628110001",
			ScheduledAt:  time.Now().AddDate(0, 0, 3),
			Status:       entities.AppointmentStatusScheduled,
		}
		handler := handlers.NewAppointmentHandler(f.repo, f.notifier)

		rec := httptest.NewRecorder()
		handler.Cancel(rec, cancelRequest("appt-1", ""))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[admin] cancelled", f.repo.note)
	})
}
