package user

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role determines which routes a user may call and which profile row backs
// the account.
type Role string

const (
	RolePatient  Role = "patient"
	RoleDoctor   Role = "doctor"
	RolePharmacy Role = "pharmacy"
	RoleAdmin    Role = "admin"
)

// ParseRole converts a wire or stored string to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RolePharmacy, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role: %q", s)
}

// User maps to the app_user table. Credentials never serialize to JSON.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"full_name"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Role         Role      `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`
	TOTPSecret   *string   `db:"totp_secret" json:"-"`
	TOTPEnabled  bool      `db:"totp_enabled" json:"totp_enabled"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
