package notify

import (
	"context"
	"errors"
	"sync"

	"publish-notifier/internal/domain/entity"
	"publish-notifier/internal/infra/notifier"
)

/*────────────────────  インメモリスタブ  ────────────────────*/

type stubDestinations struct {
	mu    sync.Mutex
	dest  map[entity.Category]*entity.Destination
	err   error
	calls int
	block chan struct{} // 非nilなら解放されるまで待つ
}

func (s *stubDestinations) FindEnabledByCategory(ctx context.Context, c entity.Category) (*entity.Destination, error) {
	s.mu.Lock()
	s.calls++
	block := s.block
	s.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dest[c], s.err
}
func (s *stubDestinations) List(context.Context) ([]*entity.Destination, error) { return nil, nil }
func (s *stubDestinations) Get(context.Context, string) (*entity.Destination, error) {
	return nil, nil
}
func (s *stubDestinations) Create(context.Context, *entity.Destination) error { return nil }
func (s *stubDestinations) Update(context.Context, *entity.Destination) error { return nil }

func (s *stubDestinations) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubContent struct {
	records map[string]*entity.Content
	news    map[string]*entity.NewsItem
	err     error
}

func (s *stubContent) Get(_ context.Context, c entity.Category, id string) (*entity.Content, error) {
	if s.err != nil {
		return nil, s.err
	}
	rec, ok := s.records[string(c)+"/"+id]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (s *stubContent) GetNewsItems(_ context.Context, ids []string) ([]*entity.NewsItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*entity.NewsItem
	for _, id := range ids {
		if n, ok := s.news[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *stubContent) ListNewsAfter(context.Context, entity.NewsPosition, int) ([]*entity.NewsItem, error) {
	return nil, s.err
}

type stubLogs struct {
	mu   sync.Mutex
	rows []entity.DeliveryLog
	err  error
	// ctxErrs holds ctx.Err() observed by each Append
	ctxErrs []error
}

func (s *stubLogs) Append(ctx context.Context, log *entity.DeliveryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, *log)
	return nil
}

func (s *stubLogs) Rows() []entity.DeliveryLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.DeliveryLog(nil), s.rows...)
}

// fakeDeliverer replays scripted attempts without touching the network.
type fakeDeliverer struct {
	mu       sync.Mutex
	urls     []string
	messages []notifier.Message
	// outcome builds the result of each Deliver call
	outcome func(ctx context.Context, call int) (notifier.Delivery, error)
}

func (f *fakeDeliverer) Deliver(ctx context.Context, url string, msg notifier.Message) (notifier.Delivery, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.messages = append(f.messages, msg)
	call := len(f.messages)
	f.mu.Unlock()

	size, _ := msg.PayloadSize()
	if f.outcome == nil {
		return notifier.Delivery{PayloadSize: size, Attempts: []notifier.Attempt{{Number: 1, StatusCode: 200}}}, nil
	}
	d, err := f.outcome(ctx, call)
	d.PayloadSize = size
	return d, err
}

func (f *fakeDeliverer) Messages() []notifier.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifier.Message(nil), f.messages...)
}

var errBoom = errors.New("boom")

const testWebhook = "https://hooks.slack.com/services/T000/B000/XXXX"

func enabledDestination(c entity.Category) *entity.Destination {
	return &entity.Destination{
		ID:         "dest-" + string(c),
		Category:   c,
		WebhookURL: testWebhook,
		Channel:    "#" + string(c),
		Enabled:    true,
	}
}
