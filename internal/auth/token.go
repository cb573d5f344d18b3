package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ancsystem/anc-notifier/internal/config"
)

// Caller token errors
var (
	ErrAuthDisabled = errors.New("caller authentication is not configured")
	ErrInvalidToken = errors.New("invalid or expired caller token")
)

// CallerClaims are the claims of a token authorizing calls to the send-email endpoint
type CallerClaims struct {
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 caller tokens signed with a shared secret.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenService creates a new TokenService
func NewTokenService(cfg config.CallableConfig) *TokenService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{
		secret: []byte(cfg.AuthSecret),
		issuer: cfg.Issuer,
		ttl:    ttl,
	}
}

// Enabled reports whether a signing secret is configured
func (s *TokenService) Enabled() bool {
	return len(s.secret) > 0
}

// Issue signs a token for subject
func (s *TokenService) Issue(subject string) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrAuthDisabled
	}

	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign caller token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses tokenString and checks signature, expiry and issuer
func (s *TokenService) Validate(tokenString string) (*CallerClaims, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims CallerClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &claims, nil
}
