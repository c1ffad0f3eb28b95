// Package notification exposes the Slack notification entry points.
package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"publish-notifier/internal/domain/entity"
	"publish-notifier/internal/handler/http/auth"
	"publish-notifier/internal/handler/http/requestid"
	"publish-notifier/internal/handler/http/respond"
	"publish-notifier/internal/usecase/notify"
)

// Notifier is implemented by *notify.Service.
type Notifier interface {
	Notify(ctx context.Context, req notify.Request) notify.Response
	NotifyNews(ctx context.Context, ids []string) notify.BatchResponse
}

type newsRequest struct {
	NewsIDs []string `json:"news_ids"`
}

// SlackHandler handles POST /notifications/slack.
type SlackHandler struct {
	Svc Notifier
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (h SlackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req notify.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.JSON(w, http.StatusBadRequest, notify.Response{
			Status: string(entity.DeliveryStatusFailed),
			Error:  "invalid request body",
		})
		return
	}

	resp := h.Svc.Notify(r.Context(), req)
	logOutcome(r, h.Logger, resp.Status, resp.Reason,
		slog.String("category", req.Category),
		slog.String("content_id", req.ContentID))
	respond.JSON(w, StatusCode(resp.Reason), resp)
}

// NewsHandler handles POST /notifications/slack/news.
type NewsHandler struct {
	Svc    Notifier
	Logger *slog.Logger
}

func (h NewsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req newsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.JSON(w, http.StatusBadRequest, notify.BatchResponse{
			Status: string(entity.DeliveryStatusFailed),
			Error:  "invalid request body",
		})
		return
	}

	resp := h.Svc.NotifyNews(r.Context(), req.NewsIDs)
	logOutcome(r, h.Logger, resp.Status, resp.Reason,
		slog.Int("news_ids", len(req.NewsIDs)),
		slog.Int("messages_sent", resp.MessagesSent))
	respond.JSON(w, StatusCode(resp.Reason), resp)
}

// logOutcome records who asked for a notification and how it ended.
func logOutcome(r *http.Request, logger *slog.Logger, status string, reason notify.Reason, attrs ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	caller, kind := "anonymous", ""
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		caller, kind = p.Subject, p.Kind
	}
	logger.Info("notification requested", append([]any{
		slog.String("request_id", requestid.FromContext(r.Context())),
		slog.String("caller", caller),
		slog.String("caller_kind", kind),
		slog.String("status", status),
		slog.String("reason", string(reason)),
	}, attrs...)...)
}

// StatusCode maps a notification outcome to an HTTP status.
// Success and skip both answer 200; the body tells them apart.
func StatusCode(reason notify.Reason) int {
	switch reason {
	case notify.ReasonNone:
		return http.StatusOK
	case notify.ReasonValidation:
		return http.StatusBadRequest
	case notify.ReasonNotFound:
		return http.StatusNotFound
	case notify.ReasonDelivery:
		return http.StatusBadGateway
	case notify.ReasonRateLimited:
		return http.StatusServiceUnavailable
	case notify.ReasonTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// TimeoutBody renders the 504 body written by the HTTP timeout guard in the
// same shape as a failed notify.Response.
func TimeoutBody(timeout time.Duration) func(elapsed time.Duration) any {
	return func(elapsed time.Duration) any {
		ms := elapsed.Milliseconds()
		if floor := timeout.Milliseconds(); ms < floor {
			ms = floor
		}
		return notify.Response{
			Status:         string(entity.DeliveryStatusFailed),
			DeliveryTimeMs: ms,
			Error:          notify.TimeoutMessage(timeout),
		}
	}
}
