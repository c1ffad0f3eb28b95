package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCallerAuth(t *testing.T) {
	issuer := newTestIssuer()
	h := CallerAuth(testServiceKey, issuer, testAuthService())(principalEcho)

	unknown := mustIssue(issuer, "stranger@example.com", RoleAdmin)
	expiredIssuer := NewTokenIssuer(testSecret, time.Minute)
	expiredIssuer.now = func() time.Time { return fixedNow.Add(-time.Hour) }

	tests := []struct {
		name          string
		authz         string
		wantCode      int
		wantPrincipal string
		wantBody      string
	}{
		{
			name:          "service key",
			authz:         "Bearer " + testServiceKey,
			wantCode:      http.StatusOK,
			wantPrincipal: "service:service:",
		},
		{
			name:          "session token of known user",
			authz:         "Bearer " + mustIssue(issuer, "viewer@example.com", RoleViewer),
			wantCode:      http.StatusOK,
			wantPrincipal: "user:viewer@example.com:viewer",
		},
		{
			name:     "missing header",
			wantCode: http.StatusUnauthorized,
			wantBody: "unauthorized: missing bearer token",
		},
		{
			name:     "basic scheme",
			authz:    "Basic dXNlcjpwYXNz",
			wantCode: http.StatusUnauthorized,
			wantBody: "unauthorized: missing bearer token",
		},
		{
			name:     "near miss service key",
			authz:    "Bearer " + testServiceKey + "x",
			wantCode: http.StatusUnauthorized,
			wantBody: "unauthorized: invalid token",
		},
		{
			name:     "valid token unknown subject",
			authz:    "Bearer " + unknown,
			wantCode: http.StatusUnauthorized,
			wantBody: "unauthorized: unknown subject",
		},
		{
			name:     "expired token",
			authz:    "Bearer " + mustIssue(expiredIssuer, "admin@example.com", RoleAdmin),
			wantCode: http.StatusUnauthorized,
			wantBody: "unauthorized: token expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, http.MethodPost, "/notifications/slack", tt.authz)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantPrincipal != "" {
				assert.Equal(t, tt.wantPrincipal, rec.Header().Get("X-Principal"))
			}
			if tt.wantBody != "" {
				assert.JSONEq(t, `{"error":"`+tt.wantBody+`"}`, rec.Body.String())
			}
		})
	}
}

func TestCallerAuth_EmptyServiceKeyNeverMatches(t *testing.T) {
	h := CallerAuth("", newTestIssuer(), testAuthService())(principalEcho)

	rec := serve(h, http.MethodPost, "/notifications/slack", "Bearer ")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallerAuth_Metrics(t *testing.T) {
	h := CallerAuth(testServiceKey, newTestIssuer(), testAuthService())(principalEcho)
	before := testutil.ToFloat64(callerAuthTotal.WithLabelValues(KindService, "success"))

	serve(h, http.MethodPost, "/notifications/slack", "Bearer "+testServiceKey)

	assert.Equal(t, before+1, testutil.ToFloat64(callerAuthTotal.WithLabelValues(KindService, "success")))
}

func TestAuthz(t *testing.T) {
	issuer := newTestIssuer()
	h := Authz(issuer)(principalEcho)
	admin := "Bearer " + mustIssue(issuer, "admin@example.com", RoleAdmin)
	viewer := "Bearer " + mustIssue(issuer, "viewer@example.com", RoleViewer)

	tests := []struct {
		name     string
		method   string
		path     string
		authz    string
		wantCode int
	}{
		{name: "admin list", method: http.MethodGet, path: "/destinations", authz: admin, wantCode: http.StatusOK},
		{name: "admin create", method: http.MethodPost, path: "/destinations", authz: admin, wantCode: http.StatusOK},
		{name: "admin update", method: http.MethodPut, path: "/destinations/abc", authz: admin, wantCode: http.StatusOK},
		{name: "admin delete not allowed", method: http.MethodDelete, path: "/destinations/abc", authz: admin, wantCode: http.StatusForbidden},
		{name: "viewer read", method: http.MethodGet, path: "/destinations/abc", authz: viewer, wantCode: http.StatusOK},
		{name: "viewer write", method: http.MethodPost, path: "/destinations", authz: viewer, wantCode: http.StatusForbidden},
		{name: "service key is not a session", method: http.MethodGet, path: "/destinations", authz: "Bearer " + testServiceKey, wantCode: http.StatusUnauthorized},
		{name: "no token", method: http.MethodGet, path: "/destinations", wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.method, tt.path, tt.authz)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
