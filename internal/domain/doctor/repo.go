package doctor

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	UpdateProfile(ctx context.Context, d *Doctor) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error)

	ListWindows(ctx context.Context, doctorID uuid.UUID) ([]*AvailabilityWindow, error)
	GetWindow(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error)
	// ReplaceWindows deletes the doctor's current window set and inserts the
	// new one. Run it inside a transaction so a failed insert leaves the old
	// set intact.
	ReplaceWindows(ctx context.Context, doctorID uuid.UUID, windows []*AvailabilityWindow) error
}
