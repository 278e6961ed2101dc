package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/folio/internal/apperr"
)

const testSecret = "test-secret-key-for-unit-tests-0123456789"

func newPasswordService(t *testing.T, password string) *Service {
	t.Helper()
	// Use the minimum cost for fast tests.
	hash, err := HashPassword(password, 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	s, err := New(Options{Mode: ModePassword, PasswordHash: hash, Secret: testSecret})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestLoginAndValidate(t *testing.T) {
	s := newPasswordService(t, "hunter22")

	token, expires, err := s.Login("hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if d := time.Until(expires); d < 23*time.Hour || d > 25*time.Hour {
		t.Errorf("expiry in %v, want about 24h", d)
	}
	if err := s.Validate(token); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := newPasswordService(t, "hunter22")
	if _, _, err := s.Login("nope"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestValidateRejects(t *testing.T) {
	s := newPasswordService(t, "pw")
	token, _, _ := s.Login("pw")

	other := newPasswordService(t, "pw")
	other.secret = []byte(strings.Repeat("x", 32))
	foreign, _, _ := other.Login("pw")

	s.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	if err := s.Validate(token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expired token = %v", err)
	}
	s.now = time.Now

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "admin"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, tok := range map[string]string{
		"empty":        "",
		"garbage":      "invalid.jwt.token",
		"wrong secret": foreign,
		"alg none":     unsigned,
	} {
		if err := s.Validate(tok); !errors.Is(err, apperr.ErrUnauthorized) {
			t.Errorf("%s: err = %v, want ErrUnauthorized", name, err)
		}
	}
}

func TestValidateRequiresAdminSubject(t *testing.T) {
	s := newPasswordService(t, "pw")
	claims := jwt.RegisteredClaims{
		Subject:   "someone",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Validate(tok); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestDisabledMode(t *testing.T) {
	s, err := New(Options{Mode: ModeDisabled})
	if err != nil {
		t.Fatal(err)
	}
	if s.Enabled() {
		t.Error("disabled service reports enabled")
	}
	if err := s.Validate(""); err != nil {
		t.Errorf("Validate in disabled mode = %v", err)
	}
	if _, _, err := s.Login("anything"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("Login in disabled mode = %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	hash, _ := HashPassword("pw", 4)
	cases := map[string]Options{
		"unknown mode": {Mode: "open"},
		"bad hash":     {Mode: ModePassword, PasswordHash: "plain", Secret: testSecret},
		"short secret": {Mode: ModePassword, PasswordHash: hash, Secret: "short"},
	}
	for name, opts := range cases {
		if _, err := New(opts); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	s, err := New(Options{Mode: ModePassword, PasswordHash: hash, Secret: testSecret, TTL: time.Hour})
	if err != nil || s.TTL() != time.Hour {
		t.Errorf("New = %v, %v", s, err)
	}
}

func TestHashPasswordRequiresInput(t *testing.T) {
	if _, err := HashPassword("", 4); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want validation error", err)
	}
}
