package entities

import "time"

// NotificationType identifies what a message was about
type NotificationType string

const (
	NotificationScheduleChanged NotificationType = "schedule_changed"
	NotificationScheduleRemoved NotificationType = "schedule_removed"
	NotificationRescheduled     NotificationType = "appointment_rescheduled"
	NotificationCancelled       NotificationType = "appointment_cancelled"
)

// NotificationStatus is the delivery outcome of one attempt
type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)

// NotificationLog is an append-only audit row, written once per dispatch
// attempt and never mutated.
type NotificationLog struct {
	ID            string             `json:"id" db:"id"`
	Type          NotificationType   `json:"type" db:"type"`
	Recipient     string             `json:"recipient" db:"recipient"`
	AppointmentID *string            `json:"appointment_id,omitempty" db:"appointment_id"`
	Status        NotificationStatus `json:"status" db:"status"`
	Message       string             `json:"message" db:"message"`
	ErrorMessage  *string            `json:"error_message,omitempty" db:"error_message"`
	SentAt        time.Time          `json:"sent_at" db:"sent_at"`
}
