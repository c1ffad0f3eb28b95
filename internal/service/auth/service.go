// Package auth holds the framework-agnostic authentication logic used by the
// HTTP layer: credential checks for token issuing and user lookup for session
// tokens presented to the notification endpoints.
package auth

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidCredentials is returned when a login does not match a known user.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUnknownUser is returned when a subject is not a configured user.
var ErrUnknownUser = errors.New("user not found")

// Credentials represents authentication credentials.
type Credentials struct {
	Username string
	Password string
}

// AuthProvider defines the interface for authentication providers.
type AuthProvider interface {
	// ValidateCredentials validates user credentials.
	ValidateCredentials(ctx context.Context, creds Credentials) error

	// IdentifyUser returns the role of a known user, or ErrUnknownUser.
	IdentifyUser(ctx context.Context, username string) (string, error)

	// Name returns the name of this provider.
	Name() string
}

// AuthService handles authentication business logic.
type AuthService struct {
	provider AuthProvider
}

// NewAuthService creates a new authentication service.
func NewAuthService(provider AuthProvider) *AuthService {
	return &AuthService{provider: provider}
}

// Authenticate validates the credentials and returns the user's role.
func (s *AuthService) Authenticate(ctx context.Context, creds Credentials) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.provider.ValidateCredentials(ctx, creds); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidCredentials, s.provider.Name())
	}
	role, err := s.provider.IdentifyUser(ctx, creds.Username)
	if err != nil {
		return "", fmt.Errorf("identify user: %w", err)
	}
	return role, nil
}

// Lookup resolves the role of a session token subject.
func (s *AuthService) Lookup(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", ErrUnknownUser
	}
	return s.provider.IdentifyUser(ctx, username)
}

// Provider returns the configured authentication provider.
func (s *AuthService) Provider() AuthProvider {
	return s.provider
}
