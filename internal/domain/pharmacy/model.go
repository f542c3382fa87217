package pharmacy

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Pharmacy maps to the pharmacy table. Name is denormalized from the owning
// user row on reads.
type Pharmacy struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Location  *string   `db:"location" json:"location,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OrderStatus is the prescription order lifecycle state. Rejected and
// fulfilled are terminal.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderAccepted  OrderStatus = "accepted"
	OrderRejected  OrderStatus = "rejected"
	OrderFulfilled OrderStatus = "fulfilled"
)

// ParseOrderStatus converts a wire or stored string to an OrderStatus.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderPending, OrderAccepted, OrderRejected, OrderFulfilled:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("invalid order status: %q", s)
}

// CanTransitionTo reports whether the order may move to next. Pharmacies
// accept or reject pending orders and fulfil accepted ones.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderPending:
		return next == OrderAccepted || next == OrderRejected
	case OrderAccepted:
		return next == OrderFulfilled
	}
	return false
}

// PrescriptionOrder maps to the prescription_order table. Medications holds
// one free-text line per prescribed item.
type PrescriptionOrder struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	PatientID   uuid.UUID   `db:"patient_id" json:"patient_id"`
	PharmacyID  uuid.UUID   `db:"pharmacy_id" json:"pharmacy_id"`
	Medications []string    `db:"medications" json:"medications"`
	Note        *string     `db:"note" json:"note,omitempty"`
	Status      OrderStatus `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// PharmacyOrder is an order as seen by the receiving pharmacy.
type PharmacyOrder struct {
	PrescriptionOrder
	PatientName  string  `db:"patient_name" json:"patient_name"`
	PatientPhone *string `db:"patient_phone" json:"patient_phone,omitempty"`
}

// OrderPatient is one distinct patient who has ordered from the pharmacy.
type OrderPatient struct {
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Phone      *string   `db:"phone" json:"phone,omitempty"`
	OrderCount int       `db:"order_count" json:"order_count"`
}
