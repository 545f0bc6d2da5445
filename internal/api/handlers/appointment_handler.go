package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/cliniclink/record-bridge/internal/application/services"
	"github.com/cliniclink/record-bridge/internal/domain/entities"
	"github.com/cliniclink/record-bridge/internal/domain/repositories"
	apperrors "github.com/cliniclink/record-bridge/pkg/errors"
)

// AppointmentHandler serves the administrative cancellation path. Unlike
// sync-inferred changes, a manual cancellation always notifies the patient.
type AppointmentHandler struct {
	appointments repositories.AppointmentRepository
	notifier     *services.NotificationService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(appointments repositories.AppointmentRepository, notifier *services.NotificationService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments, notifier: notifier}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel marks an appointment cancelled and sends the cancellation notice
func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "appointment id is required"})
		return
	}

	var req cancelRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	appointment, err := h.appointments.GetByID(r.Context(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "appointment not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if appointment.Status == entities.AppointmentStatusCancelled {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "appointment already cancelled"})
		return
	}

	note := "[admin] cancelled"
	if req.Reason != "" {
		note += ": " + req.Reason
	}
	if err := h.appointments.MarkCancelled(r.Context(), id, note); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	appointment.Status = entities.AppointmentStatusCancelled
	h.notifier.NotifyAppointmentChange(r.Context(), appointment, entities.NotificationCancelled, false)

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
