package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// weakPasswordList contains common weak passwords that must be rejected.
var weakPasswordList = []string{
	"admin",
	"password",
	"123456",
	"secret",
	"admin123",
	"password123",
	"qwerty",
	"abc123",
	"letmein",
	"welcome",
	"monkey",
	"test",
	"default",
	"root",
	"slack",
	"webhook",
}

var keyboardPatterns = []string{
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
	"qwerty",
	"asdfgh",
	"zxcvb",
}

const minPasswordLength = 12

// ValidateUsers checks configured logins at startup.
//
// A weak admin password fails startup. A misconfigured viewer is dropped with
// a warning and the service runs admin-only. No admin at all disables the
// destination endpoints; notifications still work with the service key.
func ValidateUsers(users []User, logger *slog.Logger) ([]User, error) {
	var (
		valid     []User
		adminName string
	)

	for _, u := range users {
		if u.Role != RoleAdmin {
			continue
		}
		if err := checkPasswordStrength(u.Password); err != nil {
			return nil, fmt.Errorf("admin credentials validation failed: ADMIN_USER_PASSWORD %w", err)
		}
		adminName = u.Name
		valid = append(valid, u)
	}
	if adminName == "" {
		logger.Info("admin user not configured - destination management disabled")
	}

	for _, u := range users {
		if u.Role != RoleViewer {
			continue
		}
		switch err := checkPasswordStrength(u.Password); {
		case u.Name == adminName:
			logger.Warn("DEMO_USER cannot be the same as ADMIN_USER - disabling viewer role")
		case err != nil:
			logger.Warn("DEMO_USER_PASSWORD rejected - disabling viewer role", slog.String("reason", err.Error()))
		default:
			logger.Info("viewer role configured", slog.String("user", u.Name))
			valid = append(valid, u)
		}
	}

	return valid, nil
}

func checkPasswordStrength(pass string) error {
	if pass == "" {
		return errors.New("must not be empty")
	}
	if len(pass) < minPasswordLength {
		return fmt.Errorf("must be at least %d characters", minPasswordLength)
	}
	if isSimpleNumericPattern(pass) {
		return errors.New("must not be a simple numeric pattern")
	}
	if isKeyboardPattern(pass) {
		return errors.New("must not be a keyboard pattern")
	}

	lower := strings.ToLower(pass)
	for _, weak := range weakPasswordList {
		if lower == weak {
			return errors.New("must not be a weak password")
		}
		// admin1234567 など
		if strings.HasPrefix(lower, weak) && len(pass) < minPasswordLength+5 {
			return errors.New("must not be based on common weak passwords")
		}
	}
	return nil
}

// isSimpleNumericPattern: "111111111111", "123456789012", "987654321098"
func isSimpleNumericPattern(pass string) bool {
	if isRepeatedChar(pass) {
		return true
	}
	for _, ch := range pass {
		if ch < '0' || ch > '9' {
			return false
		}
	}

	ascending, descending := true, true
	for i := 1; i < len(pass); i++ {
		diff := int(pass[i]) - int(pass[i-1])
		if diff != 1 && diff != -9 {
			ascending = false
		}
		if diff != -1 && diff != 9 {
			descending = false
		}
	}
	return ascending || descending
}

func isRepeatedChar(pass string) bool {
	if pass == "" {
		return false
	}
	return strings.Count(pass, pass[:1]) == len(pass)
}

func isKeyboardPattern(pass string) bool {
	lower := strings.ToLower(pass)
	for _, pattern := range keyboardPatterns {
		if strings.Contains(lower, pattern) || strings.Contains(lower, reverse(pattern)) {
			return true
		}
	}
	return false
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
