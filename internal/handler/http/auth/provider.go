package auth

import (
	"context"
	"crypto/subtle"
	"os"

	authservice "publish-notifier/internal/service/auth"
)

// User is a configured login.
type User struct {
	Name     string
	Password string
	Role     string
}

// UsersFromEnv reads the admin (ADMIN_USER/ADMIN_USER_PASSWORD) and optional
// viewer (DEMO_USER/DEMO_USER_PASSWORD) logins. Unset users are omitted.
func UsersFromEnv() []User {
	var users []User
	if name := os.Getenv("ADMIN_USER"); name != "" {
		users = append(users, User{Name: name, Password: os.Getenv("ADMIN_USER_PASSWORD"), Role: RoleAdmin})
	}
	if name := os.Getenv("DEMO_USER"); name != "" {
		users = append(users, User{Name: name, Password: os.Getenv("DEMO_USER_PASSWORD"), Role: RoleViewer})
	}
	return users
}

// UserProvider authenticates against a fixed set of users.
type UserProvider struct {
	users []User
}

var _ authservice.AuthProvider = (*UserProvider)(nil)

// NewUserProvider creates a provider over users. The slice is copied.
func NewUserProvider(users []User) *UserProvider {
	return &UserProvider{users: append([]User(nil), users...)}
}

// ValidateCredentials compares against every user in constant time so the
// response time does not reveal which user names exist.
func (p *UserProvider) ValidateCredentials(ctx context.Context, creds authservice.Credentials) error {
	if creds.Username == "" || creds.Password == "" {
		return authservice.ErrInvalidCredentials
	}

	matched := 0
	for _, u := range p.users {
		userMatch := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(u.Name))
		passMatch := subtle.ConstantTimeCompare([]byte(creds.Password), []byte(u.Password))
		matched |= userMatch & passMatch
	}
	if matched != 1 {
		return authservice.ErrInvalidCredentials
	}
	return nil
}

// IdentifyUser returns the role of username.
func (p *UserProvider) IdentifyUser(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", authservice.ErrUnknownUser
	}
	for _, u := range p.users {
		if subtle.ConstantTimeCompare([]byte(username), []byte(u.Name)) == 1 {
			return u.Role, nil
		}
	}
	return "", authservice.ErrUnknownUser
}

// Name returns the provider name.
func (p *UserProvider) Name() string {
	return "env"
}
