package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var testCfg = JWTConfig{
	SigningKey: []byte("test-signing-key-0123456789abcdef"),
	Issuer:     "medbook-test",
	TTL:        time.Hour,
}

func TestIssueAndParseToken(t *testing.T) {
	userID := uuid.New()
	token, err := IssueToken(testCfg, userID, "doctor", "Dr. Ada Osei")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ParseToken(testCfg, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Errorf("expected subject %s, got %s", userID, claims.Subject)
	}
	if claims.Role != "doctor" {
		t.Errorf("expected role doctor, got %s", claims.Role)
	}
	if claims.FullName != "Dr. Ada Osei" {
		t.Errorf("expected full name, got %s", claims.FullName)
	}
}

func TestParseToken_WrongKey(t *testing.T) {
	token, err := IssueToken(testCfg, uuid.New(), "patient", "P")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := testCfg
	other.SigningKey = []byte("another-signing-key-xxxxxxxxxxxx")
	if _, err := ParseToken(other, token); err == nil {
		t.Error("expected error for token signed with different key")
	}
}

func TestParseToken_Expired(t *testing.T) {
	expired := testCfg
	expired.TTL = -time.Minute
	token, err := IssueToken(expired, uuid.New(), "patient", "P")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseToken(testCfg, token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	token, _ := IssueToken(testCfg, userID, "pharmacy", "Corner Pharmacy")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		ctx := c.Request().Context()
		if UserIDFromContext(ctx) != userID {
			t.Errorf("expected user id %s in context", userID)
		}
		if RoleFromContext(ctx) != "pharmacy" {
			t.Errorf("expected role pharmacy, got %s", RoleFromContext(ctx))
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := JWTMiddleware(testCfg)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	err := JWTMiddleware(testCfg)(handler)(c)
	if err == nil {
		t.Fatal("expected error for missing authorization header")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_GarbageToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	err := JWTMiddleware(testCfg)(handler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func requireRoleContext(role string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), UserRoleKey, role)
	req = req.WithContext(ctx)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequireRole(t *testing.T) {
	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	mw := RequireRole("doctor")

	if err := mw(handler)(requireRoleContext("doctor")); err != nil {
		t.Errorf("doctor should pass: %v", err)
	}
	if err := mw(handler)(requireRoleContext("admin")); err != nil {
		t.Errorf("admin should always pass: %v", err)
	}
	err := mw(handler)(requireRoleContext("patient"))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 for patient, got %v", err)
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "s3cret-password" {
		t.Error("hash must not equal plaintext")
	}
	if !CheckPassword(hash, "s3cret-password") {
		t.Error("expected matching password to verify")
	}
	if CheckPassword(hash, "wrong-password") {
		t.Error("expected wrong password to fail")
	}
}
