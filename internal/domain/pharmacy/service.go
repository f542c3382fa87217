package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/medbook/medbook/internal/platform/db"
)

var (
	// ErrPharmacyNotFound is returned when no pharmacy matches the given id.
	ErrPharmacyNotFound = errors.New("pharmacy not found")

	// ErrOrderNotFound is returned when no order matches the given id.
	ErrOrderNotFound = errors.New("prescription order not found")

	// ErrInvalidOrder is the umbrella error for malformed order requests.
	ErrInvalidOrder = errors.New("invalid prescription order")

	// ErrInvalidOrderTransition is returned for status moves the order
	// lifecycle forbids.
	ErrInvalidOrderTransition = errors.New("invalid order status transition")

	// ErrNotOwner is returned when the order belongs to another pharmacy.
	ErrNotOwner = errors.New("order belongs to another pharmacy")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// OrderRequest is a patient's prescription order: one free-text line per
// medication plus an optional note to the pharmacist.
type OrderRequest struct {
	Medications []string `json:"medications"`
	Note        *string  `json:"note"`
}

// Search returns pharmacies filtered by name and location.
func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Pharmacy, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// SendOrder files a pending prescription order with the pharmacy.
func (s *Service) SendOrder(ctx context.Context, patientID, pharmacyID uuid.UUID, req OrderRequest) (*PrescriptionOrder, error) {
	if len(req.Medications) == 0 {
		return nil, fmt.Errorf("%w: no medications", ErrInvalidOrder)
	}
	meds := make([]string, 0, len(req.Medications))
	for _, m := range req.Medications {
		m = strings.TrimSpace(m)
		if m == "" {
			return nil, fmt.Errorf("%w: blank medication line", ErrInvalidOrder)
		}
		meds = append(meds, m)
	}

	if _, err := s.repo.GetByID(ctx, pharmacyID); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrPharmacyNotFound
		}
		return nil, err
	}

	order := &PrescriptionOrder{
		PatientID:   patientID,
		PharmacyID:  pharmacyID,
		Medications: meds,
		Note:        req.Note,
		Status:      OrderPending,
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns the orders of the pharmacy owned by the given user,
// optionally filtered by status.
func (s *Service) ListOrders(ctx context.Context, pharmacyUserID uuid.UUID, status string, limit, offset int) ([]*PharmacyOrder, int, error) {
	ph, err := s.pharmacyByUser(ctx, pharmacyUserID)
	if err != nil {
		return nil, 0, err
	}
	if status != "" {
		if _, err := ParseOrderStatus(status); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
		}
	}
	return s.repo.ListOrders(ctx, ph.ID, status, limit, offset)
}

// ListPatients returns the distinct patients who have ordered from the
// pharmacy owned by the given user.
func (s *Service) ListPatients(ctx context.Context, pharmacyUserID uuid.UUID) ([]*OrderPatient, error) {
	ph, err := s.pharmacyByUser(ctx, pharmacyUserID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPatients(ctx, ph.ID)
}

// UpdateOrderStatus moves an order through its lifecycle on behalf of the
// receiving pharmacy.
func (s *Service) UpdateOrderStatus(ctx context.Context, pharmacyUserID, orderID uuid.UUID, statusStr string) (*PrescriptionOrder, error) {
	status, err := ParseOrderStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	ph, err := s.pharmacyByUser(ctx, pharmacyUserID)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.PharmacyID != ph.ID {
		return nil, ErrNotOwner
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidOrderTransition, order.Status, status)
	}
	if err := s.repo.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return nil, err
	}
	order.Status = status
	return order, nil
}

func (s *Service) pharmacyByUser(ctx context.Context, userID uuid.UUID) (*Pharmacy, error) {
	ph, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrPharmacyNotFound
		}
		return nil, err
	}
	return ph, nil
}
