package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"publish-notifier/internal/domain/entity"
	"publish-notifier/internal/infra/notifier"
	"publish-notifier/internal/resilience/retry"
)

type fixture struct {
	dests     *stubDestinations
	content   *stubContent
	logs      *stubLogs
	deliverer *fakeDeliverer
	svc       *Service
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		dests: &stubDestinations{dest: map[entity.Category]*entity.Destination{}},
		content: &stubContent{
			records: map[string]*entity.Content{},
			news:    map[string]*entity.NewsItem{},
		},
		logs:      &stubLogs{},
		deliverer: &fakeDeliverer{},
	}
	f.svc = NewService(
		Config{Timeout: timeout},
		NewResolver(f.dests),
		f.content,
		notifier.NewFormatter("https://site.example"),
		f.deliverer,
		NewRecorder(f.logs),
	)
	return f
}

func (f *fixture) withDestination(c entity.Category) {
	f.dests.dest[c] = enabledDestination(c)
}

func (f *fixture) withContent(c entity.Category, id string) {
	f.content.records[string(c)+"/"+id] = &entity.Content{
		ID: id, Category: c, Title: "Deploy pipeline", Slug: "deploy-pipeline",
		Summary: "Ship to prod", Tags: []string{"ci"},
	}
}

func TestNotify_Success(t *testing.T) {
	// Arrange
	f := newFixture(t, time.Second)
	f.withDestination(entity.CategoryWorkflow)
	f.withContent(entity.CategoryWorkflow, "42")

	// Act
	resp := f.svc.Notify(context.Background(), Request{Category: "workflow", ContentID: "42", Action: "published"})

	// Assert
	assert.True(t, resp.Success)
	assert.Equal(t, "success", resp.Status)
	assert.GreaterOrEqual(t, resp.DeliveryTimeMs, int64(0))
	assert.Empty(t, resp.Error)

	msgs := f.deliverer.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Deploy pipeline")

	rows := f.logs.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, entity.DeliveryStatusSuccess, rows[0].Status)
	assert.Equal(t, 1, rows[0].Attempt)
	size, err := msgs[0].PayloadSize()
	require.NoError(t, err)
	assert.Equal(t, size, rows[0].PayloadSize)
}

func TestNotify_MissingActionRejected(t *testing.T) {
	f := newFixture(t, time.Second)
	f.withDestination(entity.CategoryWorkflow)
	f.withContent(entity.CategoryWorkflow, "42")

	resp := f.svc.Notify(context.Background(), Request{Category: "workflow", ContentID: "42", Action: " "})

	assert.False(t, resp.Success)
	assert.Equal(t, ReasonValidation, resp.Reason)
	assert.Contains(t, resp.Error, "action is required")
	assert.Empty(t, f.deliverer.Messages())
	assert.Empty(t, f.logs.Rows())
	assert.Equal(t, 0, f.dests.Calls())
}

func TestNotify_Skip(t *testing.T) {
	f := newFixture(t, time.Second)

	resp := f.svc.Notify(context.Background(), Request{Category: "article", ContentID: "3", Action: "published"})

	assert.False(t, resp.Success)
	assert.Equal(t, "skipped", resp.Status)
	assert.GreaterOrEqual(t, resp.DeliveryTimeMs, int64(0))
	assert.Empty(t, f.deliverer.Messages())

	rows := f.logs.Rows()
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].DestinationID)
	assert.Equal(t, entity.DeliveryStatusSkipped, rows[0].Status)
	assert.Equal(t, 0, rows[0].Attempt)
	assert.Equal(t, 0, rows[0].PayloadSize)
	assert.Equal(t, entity.CategoryArticle, rows[0].Category)
}

func TestNotify_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"missing category", Request{ContentID: "1", Action: "published"}},
		{"unknown category", Request{Category: "video", ContentID: "1", Action: "published"}},
		{"missing content id", Request{Category: "plugin", ContentID: "  ", Action: "published"}},
		{"unknown action", Request{Category: "plugin", ContentID: "1", Action: "archived"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, time.Second)
			f.withDestination(entity.CategoryPlugin)

			resp := f.svc.Notify(context.Background(), tt.req)

			assert.False(t, resp.Success)
			assert.Equal(t, "failed", resp.Status)
			assert.Equal(t, ReasonValidation, resp.Reason)
			assert.Contains(t, resp.Error, ErrInvalidRequest.Error())
			assert.Empty(t, f.logs.Rows(), "nothing attempted, nothing logged")
			assert.Equal(t, 0, f.dests.Calls())
		})
	}
}

func TestNotify_ContentNotFound(t *testing.T) {
	f := newFixture(t, time.Second)
	f.withDestination(entity.CategoryPlugin)

	resp := f.svc.Notify(context.Background(), Request{Category: "plugin", ContentID: "404", Action: "published"})

	assert.False(t, resp.Success)
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, ReasonNotFound, resp.Reason)
	assert.Equal(t, "plugin 404 not found", resp.Message)
	assert.Empty(t, f.deliverer.Messages())
	assert.Empty(t, f.logs.Rows())
}

func TestNotify_LookupFailure(t *testing.T) {
	f := newFixture(t, time.Second)
	f.dests.err = errBoom

	resp := f.svc.Notify(context.Background(), Request{Category: "plugin", ContentID: "1", Action: "published"})

	assert.Equal(t, ReasonLookup, resp.Reason)
	assert.Equal(t, "lookup failed", resp.Error)
	assert.NotContains(t, resp.Error, "boom")
}

func TestNotify_DeliveryFailure(t *testing.T) {
	f := newFixture(t, time.Second)
	f.withDestination(entity.CategoryWorkflow)
	f.withContent(entity.CategoryWorkflow, "42")
	f.deliverer.outcome = func(context.Context, int) (notifier.Delivery, error) {
		attempts := make([]notifier.Attempt, 3)
		for i := range attempts {
			attempts[i] = notifier.Attempt{Number: i + 1, StatusCode: 500, Err: &notifier.WebhookError{StatusCode: 500, Body: "oops"}}
		}
		return notifier.Delivery{Attempts: attempts}, fmt.Errorf("slack delivery failed after 3 attempt(s): %w", attempts[2].Err)
	}

	resp := f.svc.Notify(context.Background(), Request{Category: "workflow", ContentID: "42", Action: "published"})

	assert.False(t, resp.Success)
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, ReasonDelivery, resp.Reason)
	assert.Equal(t, "slack webhook returned HTTP 500: oops", resp.Error)
	rows := f.logs.Rows()
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, entity.DeliveryStatusFailed, row.Status)
	}
}

func TestNotify_QueueFull(t *testing.T) {
	f := newFixture(t, time.Second)
	f.withDestination(entity.CategoryWorkflow)
	f.withContent(entity.CategoryWorkflow, "42")
	f.deliverer.outcome = func(context.Context, int) (notifier.Delivery, error) {
		return notifier.Delivery{Attempts: []notifier.Attempt{{Number: 1, Err: notifier.ErrQueueFull}}},
			fmt.Errorf("slack delivery failed after 1 attempt(s): %w", notifier.ErrQueueFull)
	}

	resp := f.svc.Notify(context.Background(), Request{Category: "workflow", ContentID: "42", Action: "published"})

	assert.Equal(t, ReasonRateLimited, resp.Reason)
	assert.Equal(t, "rate limiter queue full", resp.Error)
	rows := f.logs.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, entity.DeliveryStatusFailed, rows[0].Status)
	assert.Equal(t, "rate limiter queue full", *rows[0].ErrorMessage)
	assert.Nil(t, rows[0].StatusCode)
}

func TestNotify_NoAttemptIsNotSuccess(t *testing.T) {
	f := newFixture(t, time.Second)
	f.withDestination(entity.CategoryArticle)
	f.withContent(entity.CategoryArticle, "6")
	f.deliverer.outcome = func(context.Context, int) (notifier.Delivery, error) {
		return notifier.Delivery{}, nil
	}

	resp := f.svc.Notify(context.Background(), Request{Category: "article", ContentID: "6", Action: "published"})

	assert.False(t, resp.Success)
	assert.Equal(t, ReasonDelivery, resp.Reason)
	assert.Equal(t, errNoSuccessfulAttempt.Error(), resp.Error)
	assert.Empty(t, f.logs.Rows())
}

func TestNotify_Timeout(t *testing.T) {
	const timeout = 60 * time.Millisecond
	f := newFixture(t, timeout)
	f.withDestination(entity.CategoryArticle)
	f.withContent(entity.CategoryArticle, "5")
	f.deliverer.outcome = func(ctx context.Context, _ int) (notifier.Delivery, error) {
		<-ctx.Done()
		return notifier.Delivery{Attempts: []notifier.Attempt{{Number: 1, Err: ctx.Err()}}},
			fmt.Errorf("slack delivery failed after 1 attempt(s): %w", ctx.Err())
	}

	resp := f.svc.Notify(context.Background(), Request{Category: "article", ContentID: "5", Action: "published"})

	assert.False(t, resp.Success)
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, ReasonTimeout, resp.Reason)
	assert.Equal(t, "notification timed out after 60ms", resp.Error)
	assert.GreaterOrEqual(t, resp.DeliveryTimeMs, timeout.Milliseconds())

	rows := f.logs.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "notification timed out after 60ms", *rows[0].ErrorMessage)
}

// TestNotify_EndToEndRetries drives the real delivery engine against a
// webhook that always fails.
func TestNotify_EndToEndRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	limiter := notifier.NewLimiter(notifier.LimiterConfig{Spacing: 10 * time.Millisecond})
	defer limiter.Close()
	policy := retry.WebhookConfig()
	policy.InitialDelay = 20 * time.Millisecond
	policy.MaxDelay = 40 * time.Millisecond
	deliverer := notifier.NewDeliverer(notifier.DelivererConfig{Retry: policy, HTTPClient: srv.Client()}, limiter)

	dests := &stubDestinations{dest: map[entity.Category]*entity.Destination{
		entity.CategoryWorkflow: {ID: "d1", Category: entity.CategoryWorkflow, WebhookURL: srv.URL, Enabled: true},
	}}
	content := &stubContent{records: map[string]*entity.Content{
		"workflow/9": {ID: "9", Category: entity.CategoryWorkflow, Title: "Nightly", Slug: "nightly"},
	}}
	logs := &stubLogs{}
	svc := NewService(Config{Timeout: 5 * time.Second}, NewResolver(dests), content,
		notifier.NewFormatter("https://site.example"), deliverer, NewRecorder(logs))

	start := time.Now()
	resp := svc.Notify(context.Background(), Request{Category: "workflow", ContentID: "9", Action: "published"})

	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, int32(3), hits.Load())
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	rows := logs.Rows()
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, i+1, row.Attempt)
		require.NotNil(t, row.StatusCode)
		assert.Equal(t, 500, *row.StatusCode)
	}
}

/*────────────────────  NotifyNews  ────────────────────*/

func seedNews(f *fixture, n int) []string {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]string, 0, n)
	// newest first so ordering is exercised
	for i := n; i >= 1; i-- {
		id := strconv.Itoa(i)
		f.content.news[id] = &entity.NewsItem{
			ID: id, Title: "News " + id, Slug: "news-" + id,
			URL: "https://src.example/" + id, SourceName: "Src",
			PublishedAt: base.Add(time.Duration(i) * time.Minute),
		}
		ids = append(ids, id)
	}
	return ids
}

func TestNotifyNews_ChunksTwelveIntoTwoMessages(t *testing.T) {
	f := newFixture(t, time.Second)
	f.withDestination(entity.CategoryNews)
	ids := seedNews(f, 12)

	resp := f.svc.NotifyNews(context.Background(), ids)

	assert.True(t, resp.Success)
	assert.Equal(t, 12, resp.Items)
	assert.Equal(t, 2, resp.MessagesSent)

	msgs := f.deliverer.Messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Blocks[0].Text.Text, "10 new news items")
	assert.Contains(t, msgs[1].Blocks[0].Text.Text, "2 new news items")
	// oldest first
	assert.Contains(t, msgs[0].Blocks[1].Text.Text, "News 1")

	rows := f.logs.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "1,2,3,4,5,6,7,8,9,10", rows[0].ContentID)
	assert.Equal(t, "11,12", rows[1].ContentID)
}

func TestNotifyNews_Skip(t *testing.T) {
	f := newFixture(t, time.Second)
	ids := seedNews(f, 2)

	resp := f.svc.NotifyNews(context.Background(), ids)

	assert.Equal(t, "skipped", resp.Status)
	assert.False(t, resp.Success)
	rows := f.logs.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "2,1", rows[0].ContentID)
	assert.Nil(t, rows[0].DestinationID)
}

func TestNotifyNews_Validation(t *testing.T) {
	f := newFixture(t, time.Second)

	resp := f.svc.NotifyNews(context.Background(), []string{" ", ""})

	assert.Equal(t, ReasonValidation, resp.Reason)
	assert.True(t, strings.HasPrefix(resp.Error, ErrInvalidRequest.Error()))
}

func TestNotifyNews_TooManyItems(t *testing.T) {
	f := newFixture(t, time.Second)
	f.withDestination(entity.CategoryNews)
	ids := seedNews(f, MaxNewsIDs+1)

	resp := f.svc.NotifyNews(context.Background(), ids)

	assert.Equal(t, ReasonValidation, resp.Reason)
	assert.Contains(t, resp.Error, ErrTooManyItems.Error())
	assert.Empty(t, f.deliverer.Messages())
	assert.Empty(t, f.logs.Rows())
}

func TestNotifyNews_NotFound(t *testing.T) {
	f := newFixture(t, time.Second)
	f.withDestination(entity.CategoryNews)

	resp := f.svc.NotifyNews(context.Background(), []string{"404"})

	assert.Equal(t, ReasonNotFound, resp.Reason)
	assert.Empty(t, f.logs.Rows())
}

func TestNotifyNews_PartialFailure(t *testing.T) {
	f := newFixture(t, time.Second)
	f.withDestination(entity.CategoryNews)
	ids := seedNews(f, 15)
	f.deliverer.outcome = func(_ context.Context, call int) (notifier.Delivery, error) {
		if call == 1 {
			a := notifier.Attempt{Number: 1, StatusCode: 400, Err: &notifier.WebhookError{StatusCode: 400}}
			return notifier.Delivery{Attempts: []notifier.Attempt{a}}, a.Err
		}
		return notifier.Delivery{Attempts: []notifier.Attempt{{Number: 1, StatusCode: 200}}}, nil
	}

	resp := f.svc.NotifyNews(context.Background(), ids)

	assert.False(t, resp.Success)
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, ReasonDelivery, resp.Reason)
	assert.Equal(t, 1, resp.MessagesSent)
	assert.Len(t, f.deliverer.Messages(), 2)
}
