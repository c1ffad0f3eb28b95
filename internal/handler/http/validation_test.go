package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestInputValidation(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		authz       string
		contentType string
		body        string
		wantCode    int
		wantReached bool
	}{
		{
			name:        "valid json post",
			method:      http.MethodPost,
			path:        "/notifications/slack",
			authz:       "Bearer token",
			contentType: "application/json; charset=utf-8",
			body:        `{"category":"workflow"}`,
			wantCode:    http.StatusOK,
			wantReached: true,
		},
		{
			name:        "get without body",
			method:      http.MethodGet,
			path:        "/destinations",
			wantCode:    http.StatusOK,
			wantReached: true,
		},
		{
			name:     "authorization header too large",
			method:   http.MethodGet,
			path:     "/destinations",
			authz:    "Bearer " + strings.Repeat("a", 8193),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "path too long",
			method:   http.MethodGet,
			path:     "/" + strings.Repeat("a", 2048),
			wantCode: http.StatusRequestURITooLong,
		},
		{
			name:        "form post rejected",
			method:      http.MethodPost,
			path:        "/notifications/slack",
			contentType: "application/x-www-form-urlencoded",
			body:        "category=workflow",
			wantCode:    http.StatusUnsupportedMediaType,
		},
		{
			name:     "post without content type",
			method:   http.MethodPut,
			path:     "/destinations/x",
			body:     `{}`,
			wantCode: http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			handler := InputValidation(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			}))

			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.authz != "" {
				req.Header.Set("Authorization", tt.authz)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if reached != tt.wantReached {
				t.Errorf("handler reached = %v, want %v", reached, tt.wantReached)
			}
		})
	}
}

func TestInputValidation_BodySizeLimit(t *testing.T) {
	var readErr error
	handler := InputValidation(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/notifications/slack/news", strings.NewReader(strings.Repeat("a", 64)))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if readErr == nil {
		t.Error("expected body read to fail past the limit")
	}
}
