package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/medbook/internal/domain/doctor"
	"github.com/medbook/medbook/internal/platform/db"
)

var (
	// ErrNotFound is returned when no appointment matches the given id.
	ErrNotFound = errors.New("appointment not found")

	// ErrSlotTaken is returned when a non-cancelled appointment already
	// holds the requested (window, date) slot.
	ErrSlotTaken = errors.New("slot already booked for that date")

	// ErrInvalidTransition is returned for lifecycle moves the state machine
	// forbids, including any transition out of a terminal state.
	ErrInvalidTransition = errors.New("invalid appointment status transition")

	// ErrInvalidBooking is the umbrella error for malformed booking requests.
	ErrInvalidBooking = errors.New("invalid booking request")

	// ErrPaymentNotFound is returned when no payment matches the given id.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrPaymentSettled is returned when confirming or failing a payment
	// that already left the pending state.
	ErrPaymentSettled = errors.New("payment already settled")

	// ErrNotOwner is returned when the acting user may not touch the
	// appointment.
	ErrNotOwner = errors.New("appointment belongs to another user")
)

// DoctorDirectory is the slice of the doctor domain the appointment service
// needs. doctor.Repository satisfies it.
type DoctorDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*doctor.Doctor, error)
	GetWindow(ctx context.Context, id uuid.UUID) (*doctor.AvailabilityWindow, error)
	ListWindows(ctx context.Context, doctorID uuid.UUID) ([]*doctor.AvailabilityWindow, error)
}

type Service struct {
	appts    AppointmentRepository
	payments PaymentRepository
	doctors  DoctorDirectory
	tx       db.TxRunner
}

func NewService(appts AppointmentRepository, payments PaymentRepository, doctors DoctorDirectory, tx db.TxRunner) *Service {
	return &Service{appts: appts, payments: payments, doctors: doctors, tx: tx}
}

// BookRequest is a patient's request to hold a slot.
type BookRequest struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	WindowID uuid.UUID `json:"window_id"`
	Date     string    `json:"date"`
	Type     string    `json:"type"`
}

// Book places an appointment for the given slot. Online visits also create a
// pending payment whose amount snapshots the doctor's current consultation
// fee. The slot check and the insert run in one transaction, backed by a
// partial unique index, so concurrent requests for the same slot yield
// exactly one booking.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, req BookRequest) (*Appointment, *Payment, error) {
	visitType, err := ParseVisitType(req.Type)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidBooking, err)
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid date %q", ErrInvalidBooking, req.Date)
	}

	win, err := s.doctors.GetWindow(ctx, req.WindowID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil, doctor.ErrWindowNotFound
		}
		return nil, nil, err
	}
	// The window must belong to the doctor being booked.
	if win.DoctorID != req.DoctorID {
		return nil, nil, doctor.ErrWindowNotFound
	}

	weekday, err := doctor.ParseWeekday(win.Weekday)
	if err != nil {
		return nil, nil, err
	}
	if date.Weekday() != weekday {
		return nil, nil, fmt.Errorf("%w: %s does not fall on %s", ErrInvalidBooking, req.Date, strings.ToLower(win.Weekday))
	}

	doc, err := s.doctors.GetByID(ctx, req.DoctorID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil, doctor.ErrDoctorNotFound
		}
		return nil, nil, err
	}

	var appt *Appointment
	var payment *Payment

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		taken, err := s.appts.ExistsActive(ctx, win.ID, date)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}

		appt = &Appointment{
			PatientID: patientID,
			DoctorID:  doc.ID,
			WindowID:  win.ID,
			Date:      date,
			Type:      visitType,
			Status:    StatusBooked,
		}

		if visitType == VisitOnline {
			payment = &Payment{
				Amount:        doc.ConsultationFee,
				TransactionID: uuid.NewString(),
				Status:        PaymentPending,
			}
			if err := s.payments.Create(ctx, payment); err != nil {
				return err
			}
			appt.PaymentID = &payment.ID
		}

		if err := s.appts.Create(ctx, appt); err != nil {
			// A concurrent booking slipped in between the check and the
			// insert; the unique index turns it into a conflict.
			if db.IsUniqueViolation(err) {
				return ErrSlotTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return appt, payment, nil
}

// Get returns an appointment with its payment, restricted to the booking
// patient, the treating doctor and admins.
func (s *Service) Get(ctx context.Context, actorID uuid.UUID, role string, id uuid.UUID) (*Appointment, *Payment, error) {
	appt, err := s.appts.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	if err := s.authorize(ctx, actorID, role, appt); err != nil {
		return nil, nil, err
	}

	var payment *Payment
	if appt.PaymentID != nil {
		payment, err = s.payments.GetByID(ctx, *appt.PaymentID)
		if err != nil && !db.IsNoRows(err) {
			return nil, nil, err
		}
	}
	return appt, payment, nil
}

func (s *Service) authorize(ctx context.Context, actorID uuid.UUID, role string, appt *Appointment) error {
	if role == "admin" || appt.PatientID == actorID {
		return nil
	}
	if role == "doctor" {
		doc, err := s.doctors.GetByUserID(ctx, actorID)
		if err == nil && doc.ID == appt.DoctorID {
			return nil
		}
	}
	return ErrNotOwner
}

// Cancel moves a booked appointment to cancelled, freeing its slot for
// rebooking. Only the booking patient may cancel.
func (s *Service) Cancel(ctx context.Context, patientID uuid.UUID, id uuid.UUID) (*Appointment, error) {
	appt, err := s.appts.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if appt.PatientID != patientID {
		return nil, ErrNotOwner
	}
	if !appt.Status.CanTransitionTo(StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, StatusCancelled)
	}
	if err := s.appts.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return nil, err
	}
	appt.Status = StatusCancelled
	return appt, nil
}

// Complete marks a booked visit as completed. Only the treating doctor may
// complete it.
func (s *Service) Complete(ctx context.Context, doctorUserID uuid.UUID, id uuid.UUID) (*Appointment, error) {
	doc, err := s.doctors.GetByUserID(ctx, doctorUserID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, doctor.ErrDoctorNotFound
		}
		return nil, err
	}

	appt, err := s.appts.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if appt.DoctorID != doc.ID {
		return nil, ErrNotOwner
	}
	if !appt.Status.CanTransitionTo(StatusCompleted) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, StatusCompleted)
	}
	if err := s.appts.UpdateStatus(ctx, id, StatusCompleted); err != nil {
		return nil, err
	}
	appt.Status = StatusCompleted
	return appt, nil
}

// ConfirmPayment settles a pending payment as completed.
func (s *Service) ConfirmPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.settlePayment(ctx, id, PaymentCompleted)
}

// FailPayment settles a pending payment as failed.
func (s *Service) FailPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.settlePayment(ctx, id, PaymentFailed)
}

func (s *Service) settlePayment(ctx context.Context, id uuid.UUID, status PaymentStatus) (*Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if !payment.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrPaymentSettled, payment.Status, status)
	}
	if err := s.payments.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	payment.Status = status
	return payment, nil
}

// ListBookableSlots projects every window of the doctor onto its next
// concrete date at or after today, dropping slots already held by a
// non-cancelled appointment.
func (s *Service) ListBookableSlots(ctx context.Context, doctorID uuid.UUID, today time.Time) ([]*BookableSlot, error) {
	if _, err := s.doctors.GetByID(ctx, doctorID); err != nil {
		if db.IsNoRows(err) {
			return nil, doctor.ErrDoctorNotFound
		}
		return nil, err
	}

	windows, err := s.doctors.ListWindows(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	slots := make([]*BookableSlot, 0, len(windows))
	for _, w := range windows {
		if !w.Available {
			continue
		}
		weekday, err := doctor.ParseWeekday(w.Weekday)
		if err != nil {
			// Stored windows are validated on write; a bad weekday here is
			// corrupt data and must not silently project to some default day.
			return nil, err
		}
		date := doctor.NextDate(weekday, today)

		taken, err := s.appts.ExistsActive(ctx, w.ID, date)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}
		slots = append(slots, &BookableSlot{
			WindowID:  w.ID,
			Weekday:   strings.ToLower(w.Weekday),
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
			Date:      date.Format("2006-01-02"),
		})
	}
	return slots, nil
}

// ListForPatient returns the patient's appointments, newest first.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PatientAppointment, int, error) {
	return s.appts.ListByPatient(ctx, patientID, limit, offset)
}

// ListForDoctor returns the appointments of the doctor owned by the given
// user, filtered by status, type and date range.
func (s *Service) ListForDoctor(ctx context.Context, doctorUserID uuid.UUID, params map[string]string, limit, offset int) ([]*DoctorAppointment, int, error) {
	doc, err := s.doctors.GetByUserID(ctx, doctorUserID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, 0, doctor.ErrDoctorNotFound
		}
		return nil, 0, err
	}
	return s.appts.ListByDoctor(ctx, doc.ID, params, limit, offset)
}
