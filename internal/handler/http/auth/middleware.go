package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"publish-notifier/internal/handler/http/requestid"
	"publish-notifier/internal/handler/http/respond"
)

// Principal kinds.
const (
	KindService = "service"
	KindUser    = "user"
)

// Principal is the authenticated caller.
type Principal struct {
	Kind    string
	Subject string
	Role    string
}

type ctxKey string

const ctxPrincipal ctxKey = "principal"

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

// PrincipalFromContext returns the caller set by CallerAuth or Authz.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxPrincipal).(Principal)
	return p, ok
}

// UserLookup resolves a token subject to a role.
type UserLookup interface {
	Lookup(ctx context.Context, username string) (string, error)
}

// CallerAuth admits a request whose bearer token is either the service key or
// a valid session token whose subject is a known user. Everything else gets
// 401 before the handler runs.
func CallerAuth(serviceKey string, tokens *TokenIssuer, users UserLookup) func(http.Handler) http.Handler {
	key := []byte(serviceKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				reject(w, r, "none", err)
				return
			}

			if len(key) > 0 && subtle.ConstantTimeCompare([]byte(raw), key) == 1 {
				RecordCallerAuth(KindService, "success")
				ctx := WithPrincipal(r.Context(), Principal{Kind: KindService, Subject: KindService})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				reject(w, r, KindUser, err)
				return
			}
			role, err := users.Lookup(r.Context(), claims.Subject)
			if err != nil {
				reject(w, r, KindUser, errors.New("unknown subject"))
				return
			}

			RecordCallerAuth(KindUser, "success")
			ctx := WithPrincipal(r.Context(), Principal{Kind: KindUser, Subject: claims.Subject, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authz requires a session token whose role grants the method and path.
func Authz(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			defer func() { RecordAuthzCheckDuration(time.Since(start).Seconds()) }()

			raw, err := bearerToken(r)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, unauthorized(err))
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, unauthorized(err))
				return
			}
			if !checkRolePermission(claims.Role, r.Method, r.URL.Path) {
				RecordForbiddenAttempt(claims.Role, r.Method)
				respond.Error(w, http.StatusForbidden, errors.New("forbidden"))
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{Kind: KindUser, Subject: claims.Subject, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	const prefix = "Bearer "
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, prefix) {
		return "", errors.New("missing bearer token")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
	if raw == "" {
		return "", errors.New("missing bearer token")
	}
	return raw, nil
}

func unauthorized(err error) error {
	return errors.New("unauthorized: " + err.Error())
}

func reject(w http.ResponseWriter, r *http.Request, kind string, err error) {
	RecordCallerAuth(kind, "failure")
	slog.Warn("caller rejected",
		slog.String("request_id", requestid.FromContext(r.Context())),
		slog.String("path", r.URL.Path),
		slog.String("reason", err.Error()))
	respond.Error(w, http.StatusUnauthorized, unauthorized(err))
}
