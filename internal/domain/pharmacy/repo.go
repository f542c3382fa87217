package pharmacy

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Pharmacy) error
	GetByID(ctx context.Context, id uuid.UUID) (*Pharmacy, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Pharmacy, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Pharmacy, int, error)

	CreateOrder(ctx context.Context, o *PrescriptionOrder) error
	GetOrder(ctx context.Context, id uuid.UUID) (*PrescriptionOrder, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error
	ListOrders(ctx context.Context, pharmacyID uuid.UUID, status string, limit, offset int) ([]*PharmacyOrder, int, error)
	// ListPatients returns the distinct patients who have ordered from the
	// pharmacy, with their order counts.
	ListPatients(ctx context.Context, pharmacyID uuid.UUID) ([]*OrderPatient, error)
}
