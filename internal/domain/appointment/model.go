package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VisitType distinguishes offline (in-person) visits from online consultations.
type VisitType string

const (
	VisitOffline VisitType = "offline"
	VisitOnline  VisitType = "online"
)

// ParseVisitType converts a wire string to a VisitType. Unknown values are an
// error.
func ParseVisitType(s string) (VisitType, error) {
	switch VisitType(s) {
	case VisitOffline, VisitOnline:
		return VisitType(s), nil
	}
	return "", fmt.Errorf("invalid visit type: %q", s)
}

// Status is the appointment lifecycle state. Completed and cancelled are
// terminal.
type Status string

const (
	StatusBooked    Status = "booked"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus converts a stored string to a Status. Unknown values are an
// error so corrupt rows surface instead of flowing through the state machine.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusBooked, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid appointment status: %q", s)
}

// IsTerminal reports whether the status accepts no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusBooked && (next == StatusCompleted || next == StatusCancelled)
}

// PaymentStatus is the payment lifecycle state. Completed and failed are terminal.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// ParsePaymentStatus converts a stored string to a PaymentStatus.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("invalid payment status: %q", s)
}

// CanTransitionTo reports whether the payment may move to next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentPending && (next == PaymentCompleted || next == PaymentFailed)
}

// Appointment maps to the appointment table. Date is a civil date; the time
// of day is carried by the referenced availability window.
type Appointment struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	WindowID  uuid.UUID  `db:"window_id" json:"window_id"`
	Date      time.Time  `db:"date" json:"date"`
	Type      VisitType  `db:"type" json:"type"`
	Status    Status     `db:"status" json:"status"`
	PaymentID *uuid.UUID `db:"payment_id" json:"payment_id,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Payment maps to the payment table. Amount is the doctor's consultation fee
// snapshotted at booking time; later fee changes never alter it.
type Payment struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	Amount        float64       `db:"amount" json:"amount"`
	TransactionID string        `db:"transaction_id" json:"transaction_id"`
	Status        PaymentStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// BookableSlot is an availability window projected onto its next concrete
// date, offered to patients for booking.
type BookableSlot struct {
	WindowID  uuid.UUID `json:"window_id"`
	Weekday   string    `json:"weekday"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Date      string    `json:"date"`
}

// PatientAppointment is an appointment as seen by the booking patient.
type PatientAppointment struct {
	Appointment
	DoctorName string `db:"doctor_name" json:"doctor_name"`
	Specialty  string `db:"specialty" json:"specialty"`
}

// DoctorAppointment is an appointment as seen by the treating doctor.
type DoctorAppointment struct {
	Appointment
	PatientName  string  `db:"patient_name" json:"patient_name"`
	PatientPhone *string `db:"patient_phone" json:"patient_phone,omitempty"`
}
