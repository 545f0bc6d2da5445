package entities

import "time"

// ExternalRegistrationRecord is a point-in-time snapshot row from the hospital
// record system. The registration ID is a composite of doctor, date and daily
// sequence; the record system assigns a new ID when a registration's business
// date changes, so the same visit can reappear under a different key.
type ExternalRegistrationRecord struct {
	RegistrationID string     `json:"registration_id"`
	DoctorID       string     `json:"doctor_id"`
	PatientID      string     `json:"patient_id"`
	PatientName    string     `json:"patient_name"`
	PatientPhone   string     `json:"patient_phone"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	BookedAt       *time.Time `json:"booked_at,omitempty"`
	StatusCode     string     `json:"status_code"`
	LocationCode   string     `json:"location_code"`
}

// ExternalScheduleSlot is a snapshot of one recurring weekly availability slot
// for a doctor. Slots carry no stable identity across snapshots; identity is
// inferred from (doctor, day of week, location) plus time-window similarity.
type ExternalScheduleSlot struct {
	DoctorID     string `json:"doctor_id"`
	DayOfWeek    int    `json:"day_of_week"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	LocationCode string `json:"location_code"`
	Quota        int    `json:"quota"`
}
