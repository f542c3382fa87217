package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	// ExistsActive reports whether a non-cancelled appointment already holds
	// the (window, date) slot.
	ExistsActive(ctx context.Context, windowID uuid.UUID, date time.Time) (bool, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PatientAppointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, params map[string]string, limit, offset int) ([]*DoctorAppointment, int, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error
}
