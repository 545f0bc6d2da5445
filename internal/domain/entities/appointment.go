package entities

import (
	"time"
)

// AppointmentStatus represents the status of a reconciled appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is the local projection of an external registration record.
// ExternalKey maps 1:1 to the registration identifier assigned by the hospital
// record system; at most one Appointment exists per ExternalKey. Rows are never
// hard-deleted, only marked cancelled.
type Appointment struct {
	ID           string            `json:"id" db:"id"`
	ExternalKey  string            `json:"external_key" db:"external_key"`
	DoctorID     string            `json:"doctor_id" db:"doctor_id"`
	PatientID    string            `json:"patient_id" db:"patient_id"`
	PatientName  string            `json:"patient_name" db:"patient_name"`
	PatientPhone string            `json:"patient_phone" db:"patient_phone"`
	ScheduledAt  time.Time         `json:"scheduled_at" db:"scheduled_at"`
	Status       AppointmentStatus `json:"status" db:"status"`
	LocationCode string            `json:"location_code" db:"location_code"`
	Notes        string            `json:"notes" db:"notes"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}
