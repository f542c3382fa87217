package doctor

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/medbook/medbook/internal/platform/db"
)

type Service struct {
	repo Repository
	tx   db.TxRunner
}

func NewService(repo Repository, tx db.TxRunner) *Service {
	return &Service{repo: repo, tx: tx}
}

// GetProfile returns the doctor owned by the given user together with the
// current weekly schedule.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Doctor, []*AvailabilityWindow, error) {
	doc, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil, ErrDoctorNotFound
		}
		return nil, nil, err
	}
	windows, err := s.repo.ListWindows(ctx, doc.ID)
	if err != nil {
		return nil, nil, err
	}
	return doc, windows, nil
}

// Get returns a doctor by id with the weekly schedule, for public profile
// views.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, []*AvailabilityWindow, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil, ErrDoctorNotFound
		}
		return nil, nil, err
	}
	windows, err := s.repo.ListWindows(ctx, doc.ID)
	if err != nil {
		return nil, nil, err
	}
	return doc, windows, nil
}

// UpdateProfile applies the editable profile fields for the doctor owned by
// the given user.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*Doctor, error) {
	if upd.ConsultationFee < 0 {
		return nil, ErrNegativeFee
	}

	doc, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	if spec := strings.TrimSpace(upd.Specialty); spec != "" {
		doc.Specialty = spec
	}
	doc.Location = upd.Location
	doc.ConsultationFee = upd.ConsultationFee

	if err := s.repo.UpdateProfile(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ReplaceSchedule validates the proposed window set and atomically replaces
// the doctor's current schedule with it. When validation or the replacement
// fails the stored schedule is left untouched.
func (s *Service) ReplaceSchedule(ctx context.Context, userID uuid.UUID, windows []*AvailabilityWindow) ([]*AvailabilityWindow, error) {
	doc, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	if err := ValidateWindows(windows); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.ReplaceWindows(ctx, doc.ID, windows)
	})
	if err != nil {
		return nil, err
	}
	return windows, nil
}

// Search finds doctors by specialty, name or location.
func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
