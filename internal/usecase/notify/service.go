package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"publish-notifier/internal/domain/entity"
	"publish-notifier/internal/infra/notifier"
	"publish-notifier/internal/observability/logging"
	"publish-notifier/internal/observability/tracing"
	"publish-notifier/internal/repository"
)

// DefaultTimeout bounds one notification from lookup to the last log write.
const DefaultTimeout = 10 * time.Second

// Formatter builds Slack messages from content records.
type Formatter interface {
	Format(action entity.Action, c *entity.Content) (notifier.Message, error)
	FormatNewsBatch(items []*entity.NewsItem) (notifier.Message, error)
}

// Deliverer sends a message to a webhook, retrying failed attempts.
type Deliverer interface {
	Deliver(ctx context.Context, webhookURL string, msg notifier.Message) (notifier.Delivery, error)
}

// Request asks for one content record to be announced.
type Request struct {
	Category  string `json:"category"`
	ContentID string `json:"content_id"`
	// Action is required: published, updated or deleted.
	Action string `json:"action"`
}

// Response is the outcome of a notification. Success is true iff Status is "success".
type Response struct {
	Success        bool   `json:"success"`
	Status         string `json:"status"`
	DeliveryTimeMs int64  `json:"delivery_time_ms"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`

	Reason Reason `json:"-"`
}

// BatchResponse is the outcome of a news digest notification.
type BatchResponse struct {
	Success        bool   `json:"success"`
	Status         string `json:"status"`
	DeliveryTimeMs int64  `json:"delivery_time_ms"`
	MessagesSent   int    `json:"messages_sent"`
	Items          int    `json:"items"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`

	Reason Reason `json:"-"`
}

// Config configures a Service.
type Config struct {
	// Timeout is the deadline for a whole notification. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Service runs the resolve → fetch → format → deliver → log pipeline.
// All outcomes are converted into a Response; nothing is returned as an error.
type Service struct {
	timeout   time.Duration
	resolver  *Resolver
	content   repository.ContentRepository
	formatter Formatter
	deliverer Deliverer
	recorder  *Recorder
}

// NewService wires a Service.
func NewService(
	cfg Config,
	resolver *Resolver,
	content repository.ContentRepository,
	formatter Formatter,
	deliverer Deliverer,
	recorder *Recorder,
) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Service{
		timeout:   cfg.Timeout,
		resolver:  resolver,
		content:   content,
		formatter: formatter,
		deliverer: deliverer,
		recorder:  recorder,
	}
}

// Timeout returns the configured notification deadline.
func (s *Service) Timeout() time.Duration {
	return s.timeout
}

// TimeoutMessage is the error text reported when the deadline fires.
func TimeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("notification timed out after %s", timeout)
}

// Notify announces one content record on its category's destination.
func (s *Service) Notify(ctx context.Context, req Request) Response {
	start := time.Now()
	ctx, span := tracing.GetTracer().Start(ctx, "notify.Notify")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	category, resp := s.notify(ctx, req)
	resp.DeliveryTimeMs = s.elapsedMs(start, resp.Reason)
	resp.Success = resp.Status == string(entity.DeliveryStatusSuccess)

	span.SetAttributes(
		attribute.String("notify.category", req.Category),
		attribute.String("notify.content_id", req.ContentID),
		attribute.String("notify.status", resp.Status),
		attribute.Int64("notify.delivery_time_ms", resp.DeliveryTimeMs),
	)
	if !resp.Success && resp.Status != string(entity.DeliveryStatusSkipped) {
		span.SetStatus(codes.Error, string(resp.Reason))
	}
	recordOutcome(category, entity.DeliveryStatus(resp.Status), time.Since(start))

	logging.WithRequestID(ctx, slog.Default()).Info("notification finished",
		slog.String("category", req.Category),
		slog.String("content_id", req.ContentID),
		slog.String("status", resp.Status),
		slog.String("reason", string(resp.Reason)),
		slog.Int64("delivery_time_ms", resp.DeliveryTimeMs))
	return resp
}

func (s *Service) notify(ctx context.Context, req Request) (entity.Category, Response) {
	category, action, contentID, err := parseRequest(req)
	if err != nil {
		return category, failed(ReasonValidation, err.Error())
	}

	dest, err := s.resolver.Resolve(ctx, category)
	if err != nil {
		return category, s.lookupFailure(ctx, err)
	}
	if dest == nil {
		s.recorder.RecordSkip(ctx, category, contentID)
		return category, Response{
			Status:  string(entity.DeliveryStatusSkipped),
			Message: fmt.Sprintf("no enabled destination for %s", category),
		}
	}

	content, err := s.content.Get(ctx, category, contentID)
	if err != nil {
		return category, s.lookupFailure(ctx, err)
	}
	if content == nil {
		return category, Response{
			Status:  string(entity.DeliveryStatusFailed),
			Message: fmt.Sprintf("%s %s not found", category, contentID),
			Error:   ErrContentNotFound.Error(),
			Reason:  ReasonNotFound,
		}
	}

	msg, err := s.formatter.Format(action, content)
	if err != nil {
		return category, failed(ReasonValidation, fmt.Sprintf("format message: %v", err))
	}

	delivery, err := s.deliverer.Deliver(ctx, dest.WebhookURL, msg)
	s.recorder.RecordDelivery(ctx, dest, category, contentID, delivery, TimeoutMessage(s.timeout))
	return category, s.deliveryResponse(ctx, category, delivery, err)
}

// NotifyNews announces a set of news items as digests of up to
// notifier.MaxNewsPerMessage items each, oldest first.
func (s *Service) NotifyNews(ctx context.Context, ids []string) BatchResponse {
	start := time.Now()
	ctx, span := tracing.GetTracer().Start(ctx, "notify.NotifyNews")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp := s.notifyNews(ctx, ids)
	resp.DeliveryTimeMs = s.elapsedMs(start, resp.Reason)
	resp.Success = resp.Status == string(entity.DeliveryStatusSuccess)

	span.SetAttributes(
		attribute.Int("notify.items", resp.Items),
		attribute.Int("notify.messages_sent", resp.MessagesSent),
		attribute.String("notify.status", resp.Status),
	)
	if !resp.Success && resp.Status != string(entity.DeliveryStatusSkipped) {
		span.SetStatus(codes.Error, string(resp.Reason))
	}
	recordOutcome(entity.CategoryNews, entity.DeliveryStatus(resp.Status), time.Since(start))

	logging.WithRequestID(ctx, slog.Default()).Info("news notification finished",
		slog.Int("items", resp.Items),
		slog.Int("messages_sent", resp.MessagesSent),
		slog.String("status", resp.Status),
		slog.Int64("delivery_time_ms", resp.DeliveryTimeMs))
	return resp
}

func (s *Service) notifyNews(ctx context.Context, ids []string) BatchResponse {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return batchFailed(ReasonValidation, fmt.Sprintf("%v: news_ids is required", ErrInvalidRequest))
	}
	if len(ids) > MaxNewsIDs {
		return batchFailed(ReasonValidation, fmt.Sprintf("%v: %v: got %d, max %d", ErrInvalidRequest, ErrTooManyItems, len(ids), MaxNewsIDs))
	}

	dest, err := s.resolver.Resolve(ctx, entity.CategoryNews)
	if err != nil {
		r := s.lookupFailure(ctx, err)
		return batchFailed(r.Reason, r.Error)
	}
	if dest == nil {
		s.recorder.RecordSkip(ctx, entity.CategoryNews, strings.Join(ids, ","))
		return BatchResponse{
			Status:  string(entity.DeliveryStatusSkipped),
			Message: "no enabled destination for news",
		}
	}

	items, err := s.content.GetNewsItems(ctx, ids)
	if err != nil {
		r := s.lookupFailure(ctx, err)
		return batchFailed(r.Reason, r.Error)
	}
	if len(items) == 0 {
		resp := batchFailed(ReasonNotFound, ErrContentNotFound.Error())
		resp.Message = "news items not found"
		return resp
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.Before(items[j].PublishedAt)
	})

	resp := BatchResponse{Status: string(entity.DeliveryStatusSuccess), Items: len(items)}
	for _, chunk := range notifier.ChunkNews(items, notifier.MaxNewsPerMessage) {
		contentID := joinNewsIDs(chunk)

		msg, err := s.formatter.FormatNewsBatch(chunk)
		if err != nil {
			return withBatchFailure(resp, failed(ReasonValidation, fmt.Sprintf("format message: %v", err)))
		}

		delivery, err := s.deliverer.Deliver(ctx, dest.WebhookURL, msg)
		s.recorder.RecordDelivery(ctx, dest, entity.CategoryNews, contentID, delivery, TimeoutMessage(s.timeout))
		r := s.deliveryResponse(ctx, entity.CategoryNews, delivery, err)
		if r.Status == string(entity.DeliveryStatusSuccess) {
			resp.MessagesSent++
			newsMessagesTotal.Inc()
			continue
		}

		resp = withBatchFailure(resp, r)
		if r.Reason == ReasonTimeout || r.Reason == ReasonRateLimited {
			// later chunks would hit the same wall
			break
		}
	}
	return resp
}

// deliveryResponse converts a delivery result into a Response.
func (s *Service) deliveryResponse(ctx context.Context, category entity.Category, delivery notifier.Delivery, err error) Response {
	for _, a := range delivery.Attempts {
		recordAttempt(category, attemptResult(a.Err))
	}

	if err == nil && delivery.Succeeded() {
		last, _ := delivery.Last()
		return Response{
			Status:  string(entity.DeliveryStatusSuccess),
			Message: fmt.Sprintf("delivered on attempt %d", last.Number),
		}
	}
	if err == nil {
		err = errNoSuccessfulAttempt
	}

	switch {
	case errors.Is(err, notifier.ErrQueueFull):
		return failed(ReasonRateLimited, notifier.ErrQueueFull.Error())
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return failed(ReasonTimeout, TimeoutMessage(s.timeout))
	}

	msg := err.Error()
	if last, ok := delivery.Last(); ok && last.Err != nil {
		msg = last.Err.Error()
	}
	return failed(ReasonDelivery, msg)
}

func (s *Service) lookupFailure(ctx context.Context, err error) Response {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failed(ReasonTimeout, TimeoutMessage(s.timeout))
	}
	logging.WithRequestID(ctx, slog.Default()).Error("notification lookup failed", slog.Any("error", err))
	return failed(ReasonLookup, "lookup failed")
}

// elapsedMs reports at least the deadline when it fired.
func (s *Service) elapsedMs(start time.Time, reason Reason) int64 {
	ms := time.Since(start).Milliseconds()
	if reason == ReasonTimeout {
		ms = max(ms, s.timeout.Milliseconds())
	}
	return ms
}

func parseRequest(req Request) (entity.Category, entity.Action, string, error) {
	if strings.TrimSpace(req.Category) == "" {
		return "", "", "", fmt.Errorf("%w: category is required", ErrInvalidRequest)
	}
	category, err := entity.ParseCategory(req.Category)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	contentID := strings.TrimSpace(req.ContentID)
	if contentID == "" {
		return category, "", "", fmt.Errorf("%w: content_id is required", ErrInvalidRequest)
	}

	if strings.TrimSpace(req.Action) == "" {
		return category, "", "", fmt.Errorf("%w: action is required", ErrInvalidRequest)
	}
	action, err := entity.ParseAction(req.Action)
	if err != nil {
		return category, "", "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return category, action, contentID, nil
}

func attemptResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, notifier.ErrQueueFull):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "failed"
	}
}

func failed(reason Reason, msg string) Response {
	return Response{Status: string(entity.DeliveryStatusFailed), Error: msg, Reason: reason}
}

func batchFailed(reason Reason, msg string) BatchResponse {
	return BatchResponse{Status: string(entity.DeliveryStatusFailed), Error: msg, Reason: reason}
}

// withBatchFailure keeps the first failure reason of a batch.
func withBatchFailure(resp BatchResponse, r Response) BatchResponse {
	if resp.Status != string(entity.DeliveryStatusFailed) {
		resp.Status = string(entity.DeliveryStatusFailed)
		resp.Reason = r.Reason
		resp.Error = r.Error
	}
	return resp
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func joinNewsIDs(items []*entity.NewsItem) string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return strings.Join(ids, ",")
}
