package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/cliniclink/record-bridge/internal/domain/entities"
	"github.com/cliniclink/record-bridge/internal/domain/providers"
	"github.com/cliniclink/record-bridge/internal/domain/repositories"
)

var weekdayNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

const (
	scheduleModifiedTemplate = "Dear {{patient_name}}, the clinic hours for your {{weekday}} appointment on {{date}} have changed from {{old_window}} to {{new_window}}. Your booking remains valid; please arrive within the new hours."
	scheduleRemovedTemplate  = "Dear {{patient_name}}, the {{weekday}} clinic session for your appointment on {{date}} has been discontinued. Please contact the clinic to rebook."
	rescheduledTemplate      = "Dear {{patient_name}}, your appointment has been moved to {{date}}. Please contact the clinic if this does not suit you."
	cancelledTemplate        = "Dear {{patient_name}}, your appointment on {{date}} has been cancelled. Please contact the clinic to rebook."
)

// NotificationService dispatches patient notifications for reconciled
// changes and writes one append-only audit row per attempt. Dispatch is
// fire-and-forget: failures are logged and audited, never propagated, so a
// reconciliation pass always completes regardless of delivery outcomes.
type NotificationService struct {
	db           *sqlx.DB
	sender       providers.MessageSender
	appointments repositories.AppointmentRepository
	schedules    repositories.ScheduleRepository
	flags        *FeatureFlags

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	db *sqlx.DB,
	sender providers.MessageSender,
	appointments repositories.AppointmentRepository,
	schedules repositories.ScheduleRepository,
	flags *FeatureFlags,
) *NotificationService {
	return &NotificationService{
		db:           db,
		sender:       sender,
		appointments: appointments,
		schedules:    schedules,
		flags:        flags,
		seen:         make(map[string]struct{}),
	}
}

// ResetPass clears the per-pass dedup set. Reconciliation entry points call
// it once at the start of a pass so each (appointment, event kind) pair is
// notified at most once within the pass.
func (n *NotificationService) ResetPass() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = make(map[string]struct{})
}

func (n *NotificationService) alreadyNotified(appointmentID string, notifType entities.NotificationType) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := appointmentID + "|" + string(notifType)
	if _, ok := n.seen[key]; ok {
		return true
	}
	n.seen[key] = struct{}{}
	return false
}

// NotifyScheduleChange notifies every scheduled future appointment affected
// by a modified or deleted slot. Dates covered by an exception record
// (planned leave, override) are excluded to avoid duplicate notices; added
// slots affect no existing patients and are ignored.
func (n *NotificationService) NotifyScheduleChange(ctx context.Context, doctorID string, change entities.ScheduleChange) {
	if change.Kind == entities.ScheduleChangeAdded {
		return
	}

	today := startOfDay(time.Now())
	affected, err := n.appointments.List(ctx, repositories.AppointmentFilter{
		DoctorID:     doctorID,
		Status:       entities.AppointmentStatusScheduled,
		LocationCode: change.LocationCode,
		From:         &today,
	})
	if err != nil {
		log.Error().Err(err).Str("doctor_id", doctorID).Msg("failed to query affected appointments")
		return
	}
	if len(affected) == 0 {
		return
	}

	// List is ordered ascending, so the last row bounds the exception lookup.
	horizon := affected[len(affected)-1].ScheduledAt
	exceptions, err := n.schedules.ListExceptions(ctx, doctorID, today, horizon)
	if err != nil {
		log.Error().Err(err).Str("doctor_id", doctorID).Msg("failed to query schedule exceptions")
		return
	}
	excepted := make(map[string]struct{}, len(exceptions))
	for _, exc := range exceptions {
		excepted[exc.Date.Format("2006-01-02")] = struct{}{}
	}

	notifType := entities.NotificationScheduleChanged
	template := scheduleModifiedTemplate
	if change.Kind == entities.ScheduleChangeDeleted {
		notifType = entities.NotificationScheduleRemoved
		template = scheduleRemovedTemplate
	}

	for _, appointment := range affected {
		if int(appointment.ScheduledAt.Weekday()) != change.DayOfWeek {
			continue
		}
		if _, ok := excepted[appointment.ScheduledAt.Format("2006-01-02")]; ok {
			continue
		}
		if n.alreadyNotified(appointment.ID, notifType) {
			continue
		}

		message := renderTemplate(template, map[string]string{
			"{{patient_name}}": appointment.PatientName,
			"{{weekday}}":      weekdayNames[change.DayOfWeek%7],
			"{{date}}":         appointment.ScheduledAt.Format("Monday, January 2, 2006"),
			"{{old_window}}":   change.OldStart + "-" + change.OldEnd,
			"{{new_window}}":   change.NewStart + "-" + change.NewEnd,
		})
		n.dispatch(ctx, notifType, appointment.PatientPhone, &appointment.ID, message)
	}
}

// NotifyAppointmentChange sends one reschedule or cancellation notice for a
// single appointment. Changes inferred by the sync engine are gated behind
// the NotifyOnInferredChange flag; manual administrative changes always send.
func (n *NotificationService) NotifyAppointmentChange(ctx context.Context, appointment *entities.Appointment, notifType entities.NotificationType, inferred bool) {
	if inferred && !n.flags.NotifyOnInferredChange() {
		log.Debug().Str("appointment_id", appointment.ID).Str("type", string(notifType)).
			Msg("inferred-change notification suppressed by flag")
		return
	}
	if n.alreadyNotified(appointment.ID, notifType) {
		return
	}

	template := cancelledTemplate
	if notifType == entities.NotificationRescheduled {
		template = rescheduledTemplate
	}
	message := renderTemplate(template, map[string]string{
		"{{patient_name}}": appointment.PatientName,
		"{{date}}":         appointment.ScheduledAt.Format("Monday, January 2, 2006"),
	})
	n.dispatch(ctx, notifType, appointment.PatientPhone, &appointment.ID, message)
}

// dispatch attempts delivery and writes the audit row. Both the send and the
// audit write are best-effort.
func (n *NotificationService) dispatch(ctx context.Context, notifType entities.NotificationType, recipient string, appointmentID *string, message string) {
	if recipient == "" {
		log.Warn().Str("type", string(notifType)).Msg("no recipient contact, skipping notification")
		return
	}

	entry := &entities.NotificationLog{
		ID:            uuid.New().String(),
		Type:          notifType,
		Recipient:     recipient,
		AppointmentID: appointmentID,
		Status:        entities.NotificationStatusSent,
		Message:       message,
		SentAt:        time.Now(),
	}

	if _, err := n.sender.Send(ctx, recipient, message); err != nil {
		errMsg := err.Error()
		entry.Status = entities.NotificationStatusFailed
		entry.ErrorMessage = &errMsg
		log.Warn().Err(err).Str("recipient", recipient).Str("type", string(notifType)).
			Msg("notification delivery failed")
	}

	if err := n.insertLog(ctx, entry); err != nil {
		log.Error().Err(err).Str("recipient", recipient).Msg("failed to write notification audit entry")
	}
}

func (n *NotificationService) insertLog(ctx context.Context, entry *entities.NotificationLog) error {
	query := `
		INSERT INTO notification_logs
		(id, type, recipient, appointment_id, status, message, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := n.db.ExecContext(ctx, query,
		entry.ID, entry.Type, entry.Recipient, entry.AppointmentID,
		entry.Status, entry.Message, entry.ErrorMessage, entry.SentAt,
	)
	return err
}

// renderTemplate replaces placeholders in template
func renderTemplate(template string, replacements map[string]string) string {
	result := template
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
