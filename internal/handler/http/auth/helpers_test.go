package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	authservice "publish-notifier/internal/service/auth"
)

const (
	testSecret     = "test-secret-key-for-session-tokens-32b"
	testServiceKey = "service-role-key-0123456789"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestIssuer() *TokenIssuer {
	t := NewTokenIssuer(testSecret, time.Hour)
	t.now = func() time.Time { return fixedNow }
	return t
}

func testUsers() []User {
	return []User{
		{Name: "admin@example.com", Password: "Str0ng-Admin-Pass!", Role: RoleAdmin},
		{Name: "viewer@example.com", Password: "Viewer-Pass-2026!", Role: RoleViewer},
	}
}

func testAuthService() *authservice.AuthService {
	return authservice.NewAuthService(NewUserProvider(testUsers()))
}

func mustIssue(issuer *TokenIssuer, sub, role string) string {
	tok, _, err := issuer.Issue(sub, role)
	if err != nil {
		panic(err)
	}
	return tok
}

// principalEcho writes the principal subject set by the middleware.
var principalEcho = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	w.Header().Set("X-Principal", p.Kind+":"+p.Subject+":"+p.Role)
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, method, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil).WithContext(context.Background())
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
