package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Doctor maps to the doctor table. FullName is denormalized from the owning
// user row on reads.
type Doctor struct {
	ID              uuid.UUID `db:"id" json:"id"`
	UserID          uuid.UUID `db:"user_id" json:"user_id"`
	FullName        string    `db:"full_name" json:"full_name"`
	Specialty       string    `db:"specialty" json:"specialty"`
	Location        *string   `db:"location" json:"location,omitempty"`
	ConsultationFee float64   `db:"consultation_fee" json:"consultation_fee"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultSpecialty is assigned when a doctor registers without one.
const DefaultSpecialty = "General"

// AvailabilityWindow is one weekly slot in a doctor's schedule: a weekday plus
// a start and end time of day in "HH:MM" form. A window marked unavailable
// stays on the schedule but is never offered as a bookable slot.
type AvailabilityWindow struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Weekday   string    `db:"weekday" json:"weekday"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Available bool      `db:"available" json:"available"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProfileUpdate carries the editable fields of a doctor profile.
type ProfileUpdate struct {
	Specialty       string  `json:"specialty"`
	Location        *string `json:"location"`
	ConsultationFee float64 `json:"consultation_fee"`
}
