package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pquerna/otp/totp"

	"github.com/medbook/medbook/internal/domain/doctor"
	"github.com/medbook/medbook/internal/domain/pharmacy"
	"github.com/medbook/medbook/internal/platform/auth"
)

type mockRepo struct {
	users map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(ctx context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Email == strings.ToLower(u.Email) {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	u.ID = uuid.New()
	cp := *u
	cp.Email = strings.ToLower(cp.Email)
	m.users[u.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error {
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.TOTPSecret = &secret
	u.TOTPEnabled = false
	return nil
}

func (m *mockRepo) SetTOTPEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.TOTPEnabled = enabled
	return nil
}

type mockDoctorProfiles struct {
	created []*doctor.Doctor
}

func (m *mockDoctorProfiles) Create(ctx context.Context, d *doctor.Doctor) error {
	d.ID = uuid.New()
	m.created = append(m.created, d)
	return nil
}

type mockPharmacyProfiles struct {
	created []*pharmacy.Pharmacy
}

func (m *mockPharmacyProfiles) Create(ctx context.Context, p *pharmacy.Pharmacy) error {
	p.ID = uuid.New()
	m.created = append(m.created, p)
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var testJWT = auth.JWTConfig{
	SigningKey: []byte("test-signing-key-0123456789abcdef"),
	Issuer:     "medbook-test",
	TTL:        time.Hour,
}

func newTestService() (*Service, *mockRepo, *mockDoctorProfiles, *mockPharmacyProfiles) {
	repo := newMockRepo()
	docs := &mockDoctorProfiles{}
	pharms := &mockPharmacyProfiles{}
	svc := NewService(repo, docs, pharms, passthroughTx{}, testJWT, "medbook-test")
	return svc, repo, docs, pharms
}

func registerReq(role string) RegisterRequest {
	return RegisterRequest{
		Email:    "alice@example.com",
		Password: "sup3rsecret",
		FullName: "Alice Osei",
		Role:     role,
	}
}

func TestRegisterPatient(t *testing.T) {
	svc, _, docs, pharms := newTestService()

	resp, err := svc.Register(context.Background(), registerReq("patient"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if resp.Token == "" {
		t.Error("register must return a token")
	}
	if resp.User.Role != RolePatient {
		t.Errorf("role = %s, want patient", resp.User.Role)
	}
	if len(docs.created) != 0 || len(pharms.created) != 0 {
		t.Error("patient registration must not create role profiles")
	}

	claims, err := auth.ParseToken(testJWT, resp.Token)
	if err != nil {
		t.Fatalf("token does not parse: %v", err)
	}
	if claims.Role != "patient" || claims.Subject != resp.User.ID.String() {
		t.Errorf("claims = (%s, %s), want (patient, %s)", claims.Role, claims.Subject, resp.User.ID)
	}
}

func TestRegisterDoctorCreatesProfile(t *testing.T) {
	svc, _, docs, _ := newTestService()

	resp, err := svc.Register(context.Background(), registerReq("doctor"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if len(docs.created) != 1 {
		t.Fatalf("got %d doctor profiles, want 1", len(docs.created))
	}
	if docs.created[0].UserID != resp.User.ID {
		t.Error("doctor profile must reference the new user")
	}
	if docs.created[0].Specialty != doctor.DefaultSpecialty {
		t.Errorf("specialty = %q, want %q", docs.created[0].Specialty, doctor.DefaultSpecialty)
	}
}

func TestRegisterPharmacyCreatesProfile(t *testing.T) {
	svc, _, _, pharms := newTestService()

	resp, err := svc.Register(context.Background(), registerReq("pharmacy"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if len(pharms.created) != 1 || pharms.created[0].UserID != resp.User.ID {
		t.Error("pharmacy profile must reference the new user")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{"admin role", registerReq("admin")},
		{"unknown role", registerReq("superuser")},
		{"bad email", RegisterRequest{Email: "nope", Password: "sup3rsecret", FullName: "A", Role: "patient"}},
		{"short password", RegisterRequest{Email: "a@b.c", Password: "short", FullName: "A", Role: "patient"}},
		{"blank name", RegisterRequest{Email: "a@b.c", Password: "sup3rsecret", FullName: "  ", Role: "patient"}},
	}
	for _, tc := range cases {
		if _, err := svc.Register(ctx, tc.req); !errors.Is(err, ErrInvalidRegistration) {
			t.Errorf("%s: error = %v, want ErrInvalidRegistration", tc.name, err)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, registerReq("patient")); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	req := registerReq("patient")
	req.Email = "ALICE@example.com" // emails compare case-insensitively
	if _, err := svc.Register(ctx, req); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("error = %v, want ErrEmailTaken", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, registerReq("patient")); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	resp, err := svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "sup3rsecret"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Token == "" {
		t.Error("login must return a token")
	}

	if _, err := svc.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "sup3rsecret"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: error = %v, want ErrInvalidCredentials", err)
	}
}

func TestTOTPFlow(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, registerReq("patient"))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	userID := reg.User.ID

	// Enabling before setup must fail.
	if err := svc.EnableTOTP(ctx, userID, "000000"); !errors.Is(err, ErrTOTPNotSetup) {
		t.Errorf("enable before setup: error = %v, want ErrTOTPNotSetup", err)
	}

	setup, err := svc.SetupTOTP(ctx, userID)
	if err != nil {
		t.Fatalf("SetupTOTP failed: %v", err)
	}
	if setup.Secret == "" || !strings.HasPrefix(setup.URL, "otpauth://") {
		t.Errorf("unexpected setup material: %+v", setup)
	}

	// Setup alone must not turn the second factor on.
	if u, _ := repo.GetByID(ctx, userID); u.TOTPEnabled {
		t.Error("totp must stay off until a code is confirmed")
	}
	login := LoginRequest{Email: "alice@example.com", Password: "sup3rsecret"}
	if _, err := svc.Login(ctx, login); err != nil {
		t.Errorf("login before enable should not require totp: %v", err)
	}

	if err := svc.EnableTOTP(ctx, userID, "000000"); !errors.Is(err, ErrInvalidTOTPCode) {
		t.Errorf("bad code: error = %v, want ErrInvalidTOTPCode", err)
	}

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if err := svc.EnableTOTP(ctx, userID, code); err != nil {
		t.Fatalf("EnableTOTP failed: %v", err)
	}

	// Now login demands the second factor.
	if _, err := svc.Login(ctx, login); !errors.Is(err, ErrTOTPRequired) {
		t.Errorf("login without code: error = %v, want ErrTOTPRequired", err)
	}
	login.TOTPCode = "111111"
	if _, err := svc.Login(ctx, login); !errors.Is(err, ErrInvalidTOTPCode) {
		t.Errorf("login with bad code: error = %v, want ErrInvalidTOTPCode", err)
	}
	login.TOTPCode, err = totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if _, err := svc.Login(ctx, login); err != nil {
		t.Errorf("login with valid code failed: %v", err)
	}
}
