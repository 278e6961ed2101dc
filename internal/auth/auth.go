// Package auth implements the single-administrator session gate: a bcrypt
// password check that issues HS256 session tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/starford/folio/internal/apperr"
)

// CookieName is the session cookie set on login.
const CookieName = "admin-auth"

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 24 * time.Hour

const subject = "admin"

// Mode selects how admin requests are authorized.
type Mode string

const (
	// ModeDisabled lets every request through. Local development only.
	ModeDisabled Mode = "disabled"
	// ModePassword requires a session token obtained with the admin password.
	ModePassword Mode = "password"
)

// Options configure a Service.
type Options struct {
	Mode         Mode
	PasswordHash string
	Secret       string
	TTL          time.Duration
}

// Service checks the admin password and issues and validates session tokens.
type Service struct {
	mode   Mode
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New returns a Service. Password mode needs a bcrypt hash and a secret of
// at least 32 bytes.
func New(opts Options) (*Service, error) {
	s := &Service{mode: opts.Mode, ttl: opts.TTL, now: time.Now}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	switch opts.Mode {
	case ModeDisabled:
		return s, nil
	case ModePassword:
		if _, err := bcrypt.Cost([]byte(opts.PasswordHash)); err != nil {
			return nil, fmt.Errorf("auth: password hash: %w", err)
		}
		if len(opts.Secret) < 32 {
			return nil, errors.New("auth: secret must be at least 32 bytes")
		}
		s.hash = []byte(opts.PasswordHash)
		s.secret = []byte(opts.Secret)
		return s, nil
	default:
		return nil, fmt.Errorf("auth: unknown mode %q", opts.Mode)
	}
}

// Enabled reports whether admin requests need a session.
func (s *Service) Enabled() bool { return s.mode == ModePassword }

// TTL returns the session lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Login checks password and returns a signed session token with its expiry.
// A wrong password yields apperr.ErrUnauthorized.
func (s *Service) Login(password string) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, fmt.Errorf("auth: login with auth disabled: %w", apperr.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(password)); err != nil {
		return "", time.Time{}, apperr.ErrUnauthorized
	}
	now := s.now()
	expires := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return token, expires, nil
}

// Validate checks a session token. Any problem yields apperr.ErrUnauthorized.
func (s *Service) Validate(token string) error {
	if !s.Enabled() {
		return nil
	}
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired(), jwt.WithSubject(subject))
	if err != nil || !parsed.Valid {
		return apperr.ErrUnauthorized
	}
	return nil
}

// HashPassword returns the bcrypt hash of password for the config file.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", apperr.Validation("password is required")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}
