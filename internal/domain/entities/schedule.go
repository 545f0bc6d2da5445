package entities

import "time"

// ScheduleSlot is a reconciled weekly availability slot for a doctor. The full
// slot set for a doctor is replaced on every reconciliation pass; diffing only
// exists to drive notifications.
type ScheduleSlot struct {
	ID           string    `json:"id" db:"id"`
	DoctorID     string    `json:"doctor_id" db:"doctor_id"`
	DayOfWeek    int       `json:"day_of_week" db:"day_of_week"`
	StartTime    string    `json:"start_time" db:"start_time"`
	EndTime      string    `json:"end_time" db:"end_time"`
	LocationCode string    `json:"location_code" db:"location_code"`
	Quota        int       `json:"quota" db:"quota"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ScheduleException marks a planned deviation (leave day, override) that
// suppresses otherwise-automatic change notifications for that date.
type ScheduleException struct {
	ID       string    `json:"id" db:"id"`
	DoctorID string    `json:"doctor_id" db:"doctor_id"`
	Date     time.Time `json:"date" db:"date"`
	Reason   string    `json:"reason" db:"reason"`
}

// ScheduleChangeKind classifies one diffed schedule slot
type ScheduleChangeKind string

const (
	ScheduleChangeAdded    ScheduleChangeKind = "added"
	ScheduleChangeModified ScheduleChangeKind = "modified"
	ScheduleChangeDeleted  ScheduleChangeKind = "deleted"
)

// ScheduleChange is an ephemeral change event produced by the schedule differ.
// It is consumed by the notification dispatcher and never persisted.
type ScheduleChange struct {
	DoctorID     string             `json:"doctor_id"`
	DayOfWeek    int                `json:"day_of_week"`
	LocationCode string             `json:"location_code"`
	Kind         ScheduleChangeKind `json:"kind"`
	OldStart     string             `json:"old_start,omitempty"`
	OldEnd       string             `json:"old_end,omitempty"`
	NewStart     string             `json:"new_start,omitempty"`
	NewEnd       string             `json:"new_end,omitempty"`
}
