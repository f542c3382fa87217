package pharmacy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockRepo struct {
	pharmacies map[uuid.UUID]*Pharmacy
	orders     map[uuid.UUID]*PrescriptionOrder
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		pharmacies: make(map[uuid.UUID]*Pharmacy),
		orders:     make(map[uuid.UUID]*PrescriptionOrder),
	}
}

func (m *mockRepo) Create(ctx context.Context, p *Pharmacy) error {
	p.ID = uuid.New()
	cp := *p
	m.pharmacies[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Pharmacy, error) {
	p, ok := m.pharmacies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*Pharmacy, error) {
	for _, p := range m.pharmacies {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Pharmacy, int, error) {
	var items []*Pharmacy
	for _, p := range m.pharmacies {
		cp := *p
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockRepo) CreateOrder(ctx context.Context, o *PrescriptionOrder) error {
	o.ID = uuid.New()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockRepo) GetOrder(ctx context.Context, id uuid.UUID) (*PrescriptionOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func (m *mockRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error {
	o, ok := m.orders[id]
	if !ok {
		return pgx.ErrNoRows
	}
	o.Status = status
	return nil
}

func (m *mockRepo) ListOrders(ctx context.Context, pharmacyID uuid.UUID, status string, limit, offset int) ([]*PharmacyOrder, int, error) {
	var items []*PharmacyOrder
	for _, o := range m.orders {
		if o.PharmacyID != pharmacyID {
			continue
		}
		if status != "" && string(o.Status) != status {
			continue
		}
		items = append(items, &PharmacyOrder{PrescriptionOrder: *o})
	}
	return items, len(items), nil
}

func (m *mockRepo) ListPatients(ctx context.Context, pharmacyID uuid.UUID) ([]*OrderPatient, error) {
	counts := map[uuid.UUID]int{}
	for _, o := range m.orders {
		if o.PharmacyID == pharmacyID {
			counts[o.PatientID]++
		}
	}
	var items []*OrderPatient
	for id, n := range counts {
		items = append(items, &OrderPatient{PatientID: id, OrderCount: n})
	}
	return items, nil
}

func newTestService(t *testing.T) (*Service, *mockRepo, *Pharmacy) {
	t.Helper()
	repo := newMockRepo()
	ph := &Pharmacy{UserID: uuid.New(), Name: "City Pharmacy"}
	if err := repo.Create(context.Background(), ph); err != nil {
		t.Fatalf("create pharmacy: %v", err)
	}
	return NewService(repo), repo, ph
}

func TestSendOrder(t *testing.T) {
	svc, _, ph := newTestService(t)
	patientID := uuid.New()

	order, err := svc.SendOrder(context.Background(), patientID, ph.ID, OrderRequest{
		Medications: []string{"Amoxicillin 500mg", " Ibuprofen 200mg "},
	})
	if err != nil {
		t.Fatalf("SendOrder failed: %v", err)
	}
	if order.Status != OrderPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if order.Medications[1] != "Ibuprofen 200mg" {
		t.Errorf("medication line not trimmed: %q", order.Medications[1])
	}
}

func TestSendOrderValidation(t *testing.T) {
	svc, _, ph := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SendOrder(ctx, uuid.New(), ph.ID, OrderRequest{}); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("empty order: error = %v, want ErrInvalidOrder", err)
	}
	if _, err := svc.SendOrder(ctx, uuid.New(), ph.ID, OrderRequest{Medications: []string{"  "}}); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("blank line: error = %v, want ErrInvalidOrder", err)
	}
	if _, err := svc.SendOrder(ctx, uuid.New(), uuid.New(), OrderRequest{Medications: []string{"x"}}); !errors.Is(err, ErrPharmacyNotFound) {
		t.Errorf("unknown pharmacy: error = %v, want ErrPharmacyNotFound", err)
	}
}

func TestOrderStatusLifecycle(t *testing.T) {
	svc, _, ph := newTestService(t)
	ctx := context.Background()

	order, err := svc.SendOrder(ctx, uuid.New(), ph.ID, OrderRequest{Medications: []string{"x"}})
	if err != nil {
		t.Fatalf("SendOrder failed: %v", err)
	}

	// pending -> fulfilled skips accepted and must be rejected.
	if _, err := svc.UpdateOrderStatus(ctx, ph.UserID, order.ID, "fulfilled"); !errors.Is(err, ErrInvalidOrderTransition) {
		t.Errorf("pending->fulfilled: error = %v, want ErrInvalidOrderTransition", err)
	}

	updated, err := svc.UpdateOrderStatus(ctx, ph.UserID, order.ID, "accepted")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if updated.Status != OrderAccepted {
		t.Errorf("status = %s, want accepted", updated.Status)
	}

	if _, err := svc.UpdateOrderStatus(ctx, ph.UserID, order.ID, "fulfilled"); err != nil {
		t.Fatalf("fulfil failed: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, ph.UserID, order.ID, "accepted"); !errors.Is(err, ErrInvalidOrderTransition) {
		t.Errorf("fulfilled->accepted: error = %v, want ErrInvalidOrderTransition", err)
	}

	if _, err := svc.UpdateOrderStatus(ctx, ph.UserID, order.ID, "archived"); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("unknown status: error = %v, want ErrInvalidOrder", err)
	}
}

func TestUpdateOrderStatusOwnership(t *testing.T) {
	svc, repo, ph := newTestService(t)
	ctx := context.Background()

	order, err := svc.SendOrder(ctx, uuid.New(), ph.ID, OrderRequest{Medications: []string{"x"}})
	if err != nil {
		t.Fatalf("SendOrder failed: %v", err)
	}

	other := &Pharmacy{UserID: uuid.New(), Name: "Rival Pharmacy"}
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("create pharmacy: %v", err)
	}

	if _, err := svc.UpdateOrderStatus(ctx, other.UserID, order.ID, "accepted"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("other pharmacy: error = %v, want ErrNotOwner", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, ph.UserID, uuid.New(), "accepted"); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("unknown order: error = %v, want ErrOrderNotFound", err)
	}
}

func TestRejectedIsTerminal(t *testing.T) {
	svc, _, ph := newTestService(t)
	ctx := context.Background()

	order, err := svc.SendOrder(ctx, uuid.New(), ph.ID, OrderRequest{Medications: []string{"x"}})
	if err != nil {
		t.Fatalf("SendOrder failed: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, ph.UserID, order.ID, "rejected"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(ctx, ph.UserID, order.ID, "fulfilled"); !errors.Is(err, ErrInvalidOrderTransition) {
		t.Errorf("rejected->fulfilled: error = %v, want ErrInvalidOrderTransition", err)
	}
}

func TestListOrdersAndPatients(t *testing.T) {
	svc, _, ph := newTestService(t)
	ctx := context.Background()

	patientA, patientB := uuid.New(), uuid.New()
	for _, pid := range []uuid.UUID{patientA, patientA, patientB} {
		if _, err := svc.SendOrder(ctx, pid, ph.ID, OrderRequest{Medications: []string{"x"}}); err != nil {
			t.Fatalf("SendOrder failed: %v", err)
		}
	}

	orders, total, err := svc.ListOrders(ctx, ph.UserID, "", 20, 0)
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if total != 3 || len(orders) != 3 {
		t.Errorf("got %d orders (total %d), want 3", len(orders), total)
	}

	if _, _, err := svc.ListOrders(ctx, ph.UserID, "bogus", 20, 0); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("bogus status filter: error = %v, want ErrInvalidOrder", err)
	}

	patients, err := svc.ListPatients(ctx, ph.UserID)
	if err != nil {
		t.Fatalf("ListPatients failed: %v", err)
	}
	if len(patients) != 2 {
		t.Errorf("got %d distinct patients, want 2", len(patients))
	}

	if _, err := svc.ListPatients(ctx, uuid.New()); !errors.Is(err, ErrPharmacyNotFound) {
		t.Errorf("unknown user: error = %v, want ErrPharmacyNotFound", err)
	}
}
