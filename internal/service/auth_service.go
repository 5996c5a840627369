package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrAuthenticationFailed = errors.New("authentication failed: invalid password")
	ErrAuthDisabled         = errors.New("authentication is not configured")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
)

// OwnerSubject is the subject of every token; the server has a single owner.
const OwnerSubject = "owner"

type AuthService interface {
	Login(ctx context.Context, password string) (token string, expiresAt time.Time, err error)
	// Enabled reports whether a password hash is configured.
	Enabled() bool
	GetJWTSecret() string
}

// authService implements the AuthService interface.
type authService struct {
	passwordHash  string
	jwtSecret     string
	jwtExpiration time.Duration
	now           func() time.Time
}

// NewAuthService creates a new instance of authService. An empty passwordHash
// disables authentication.
func NewAuthService(passwordHash, jwtSecret string, jwtExpiration time.Duration) (AuthService, error) {
	if passwordHash != "" && jwtSecret == "" {
		return nil, errors.New("JWT secret cannot be empty when a password is configured")
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	return &authService{
		passwordHash:  passwordHash,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		now:           time.Now,
	}, nil
}

// HashPassword produces the bcrypt hash expected in auth.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", ErrHashingFailed
	}
	return string(hashed), nil
}

func (s *authService) Enabled() bool {
	return s.passwordHash != ""
}

// Login checks the owner's password and issues a JWT.
func (s *authService) Login(ctx context.Context, password string) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrAuthDisabled
	}
	if password == "" {
		return "", time.Time{}, ErrAuthenticationFailed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", time.Time{}, ErrAuthenticationFailed
	}

	token, expiresAt, err := s.generateJWT()
	if err != nil {
		return "", time.Time{}, ErrTokenGeneration
	}
	return token, expiresAt, nil
}

// --- JWT Helper ---

func (s *authService) generateJWT() (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.jwtExpiration)
	claims := &jwt.RegisteredClaims{
		Subject:   OwnerSubject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    "gym-manager",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// GetJWTSecret returns the JWT secret for middleware authentication
func (s *authService) GetJWTSecret() string {
	return s.jwtSecret
}
