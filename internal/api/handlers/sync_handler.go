package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cliniclink/record-bridge/internal/application/services"
)

// SyncHandler exposes the manual/administrative trigger surface. Both the
// scheduled driver and these endpoints call the same reconciliation entry
// points; a request that arrives while a sweep is in flight receives 409,
// not a queued run.
type SyncHandler struct {
	reconciler *services.ReconcileService
	differ     *services.ScheduleDiffer
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(reconciler *services.ReconcileService, differ *services.ScheduleDiffer) *SyncHandler {
	return &SyncHandler{reconciler: reconciler, differ: differ}
}

// TriggerRegistrationSync runs a full registration sweep
func (h *SyncHandler) TriggerRegistrationSync(w http.ResponseWriter, r *http.Request) {
	processed, err := h.reconciler.SyncAll(r.Context())
	if err != nil {
		writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":    "completed",
		"processed": processed,
	})
}

// TriggerScheduleSync runs a full schedule sweep
func (h *SyncHandler) TriggerScheduleSync(w http.ResponseWriter, r *http.Request) {
	changed, err := h.differ.SyncAll(r.Context())
	if err != nil {
		writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":        "completed",
		"changed_slots": changed,
	})
}

func writeSyncError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrSyncInProgress) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "sync already in progress"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
