package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	"github.com/medbook/medbook/internal/domain/doctor"
	"github.com/medbook/medbook/internal/domain/pharmacy"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/internal/platform/db"
)

var (
	// ErrEmailTaken is returned when registering with an email already in use.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers both unknown emails and wrong passwords so
	// login failures never reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidRegistration is the umbrella error for malformed sign-ups.
	ErrInvalidRegistration = errors.New("invalid registration")

	// ErrUserNotFound is returned when no user matches the given id.
	ErrUserNotFound = errors.New("user not found")

	// ErrTOTPRequired is returned when a TOTP-enabled account logs in without
	// a code.
	ErrTOTPRequired = errors.New("totp code required")

	// ErrInvalidTOTPCode is returned for wrong or expired TOTP codes.
	ErrInvalidTOTPCode = errors.New("invalid totp code")

	// ErrTOTPNotSetup is returned when enabling TOTP before running setup.
	ErrTOTPNotSetup = errors.New("totp not set up")
)

// DoctorProfiles creates the doctor profile row backing a doctor account.
// doctor.Repository satisfies it.
type DoctorProfiles interface {
	Create(ctx context.Context, d *doctor.Doctor) error
}

// PharmacyProfiles creates the pharmacy profile row backing a pharmacy
// account. pharmacy.Repository satisfies it.
type PharmacyProfiles interface {
	Create(ctx context.Context, p *pharmacy.Pharmacy) error
}

type Service struct {
	repo       Repository
	doctors    DoctorProfiles
	pharmacies PharmacyProfiles
	tx         db.TxRunner
	jwt        auth.JWTConfig
	totpIssuer string
}

func NewService(repo Repository, doctors DoctorProfiles, pharmacies PharmacyProfiles, tx db.TxRunner, jwt auth.JWTConfig, totpIssuer string) *Service {
	return &Service{
		repo:       repo,
		doctors:    doctors,
		pharmacies: pharmacies,
		tx:         tx,
		jwt:        jwt,
		totpIssuer: totpIssuer,
	}
}

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName string  `json:"full_name"`
	Phone    *string `json:"phone"`
	Role     string  `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code"`
}

// AuthResponse carries a signed access token plus the authenticated user.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Register creates the account and its role profile row in one transaction.
// Admin accounts are provisioned out of band, never through this endpoint.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	role, err := ParseRole(req.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistration, err)
	}
	if role == RoleAdmin {
		return nil, fmt.Errorf("%w: cannot self-register as admin", ErrInvalidRegistration)
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidRegistration)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidRegistration)
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, fmt.Errorf("%w: full name required", ErrInvalidRegistration)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:        email,
		FullName:     fullName,
		Phone:        req.Phone,
		Role:         role,
		PasswordHash: hash,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, u); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		switch role {
		case RoleDoctor:
			return s.doctors.Create(ctx, &doctor.Doctor{
				UserID:    u.ID,
				Specialty: doctor.DefaultSpecialty,
			})
		case RolePharmacy:
			return s.pharmacies.Create(ctx, &pharmacy.Pharmacy{UserID: u.ID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.issue(u)
}

// Login verifies the credentials and, when TOTP is enabled, the second
// factor, then issues an access token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	if u.TOTPEnabled {
		if req.TOTPCode == "" {
			return nil, ErrTOTPRequired
		}
		if u.TOTPSecret == nil || !totp.Validate(req.TOTPCode, *u.TOTPSecret) {
			return nil, ErrInvalidTOTPCode
		}
	}

	return s.issue(u)
}

func (s *Service) issue(u *User) (*AuthResponse, error) {
	token, err := auth.IssueToken(s.jwt, u.ID, string(u.Role), u.FullName)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: u}, nil
}

// TOTPSetup is the enrolment material returned by SetupTOTP. The URL is an
// otpauth:// URI authenticator apps import directly.
type TOTPSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// SetupTOTP generates and stores a fresh TOTP secret for the user. The
// second factor stays off until EnableTOTP confirms a code against it.
func (s *Service) SetupTOTP(ctx context.Context, userID uuid.UUID) (*TOTPSetup, error) {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.totpIssuer,
		AccountName: u.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}
	if err := s.repo.SetTOTPSecret(ctx, u.ID, key.Secret()); err != nil {
		return nil, err
	}
	return &TOTPSetup{Secret: key.Secret(), URL: key.URL()}, nil
}

// EnableTOTP turns the second factor on after verifying one code against
// the stored secret.
func (s *Service) EnableTOTP(ctx context.Context, userID uuid.UUID, code string) error {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.TOTPSecret == nil {
		return ErrTOTPNotSetup
	}
	if !totp.Validate(code, *u.TOTPSecret) {
		return ErrInvalidTOTPCode
	}
	return s.repo.SetTOTPEnabled(ctx, u.ID, true)
}

// Get returns the user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.getUser(ctx, id)
}

func (s *Service) getUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
