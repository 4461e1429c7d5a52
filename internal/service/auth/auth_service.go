// Package auth validates API bearer tokens. Tokens are HMAC-signed JWTs
// minted by the deployment that fronts this service; an empty signing secret
// disables auth entirely, which is the expected mode for local use.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gh-intel/internal/domain"
	"gh-intel/internal/service"
	"gh-intel/pkg/errors"
	"gh-intel/pkg/logger"
)

// Service implements the AuthService interface
type Service struct {
	secret []byte
	logger *logger.Logger
}

// NewService creates a new auth service. An empty secret produces a service
// whose Enabled reports false.
func NewService(secret string, logger *logger.Logger) service.AuthService {
	var key []byte
	if secret != "" {
		key = []byte(secret)
	}
	return &Service{
		secret: key,
		logger: logger,
	}
}

// Enabled reports whether bearer auth is configured
func (s *Service) Enabled() bool {
	return len(s.secret) > 0
}

// ValidateToken validates an API bearer token and returns its claims
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*domain.APIClaims, error) {
	if !s.Enabled() {
		s.logger.Error("Token validation requested but no signing secret is configured")
		return nil, errors.NewAuthenticationError("API authentication is not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))

	if err != nil {
		s.logger.WithError(err).Debug("Token validation failed")
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}
	if !token.Valid {
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.NewAuthenticationError("Invalid token claims")
	}

	subject, _ := claims.GetSubject()
	if subject == "" {
		return nil, errors.NewAuthenticationError("Token has no subject")
	}

	apiClaims := &domain.APIClaims{Subject: subject}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		apiClaims.ExpiresAt = exp.Time
	}

	s.logger.WithField("subject", subject).Debug("API token validated")
	return apiClaims, nil
}

// SignToken mints a token for the given subject. Used by operational tooling
// and tests; the service itself never hands tokens out over the API.
func SignToken(secret, subject string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}
