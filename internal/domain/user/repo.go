package user

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error
	SetTOTPEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
}
