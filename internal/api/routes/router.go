package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/cliniclink/record-bridge/internal/api/handlers"
	"github.com/cliniclink/record-bridge/internal/api/middleware"
)

// Pinger verifies connectivity to one backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	syncHandler        *handlers.SyncHandler
	appointmentHandler *handlers.AppointmentHandler

	db    Pinger
	cache Pinger
}

// NewRouter creates a new router
func NewRouter(
	syncHandler *handlers.SyncHandler,
	appointmentHandler *handlers.AppointmentHandler,
	db Pinger,
	cache Pinger,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		syncHandler:        syncHandler,
		appointmentHandler: appointmentHandler,
		db:                 db,
		cache:              cache,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.health)

	r.mux.HandleFunc("POST /api/sync/registrations", r.syncHandler.TriggerRegistrationSync)
	r.mux.HandleFunc("POST /api/sync/schedules", r.syncHandler.TriggerScheduleSync)

	r.mux.HandleFunc("POST /api/appointments/{id}/cancel", r.appointmentHandler.Cancel)

	return middleware.LoggingMiddleware(r.mux)
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	if r.db != nil {
		if err := r.db.Ping(ctx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
	}
	if r.cache != nil {
		if err := r.cache.Ping(ctx); err != nil {
			http.Error(w, "cache unreachable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
