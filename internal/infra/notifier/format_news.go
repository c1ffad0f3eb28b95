package notifier

import (
	"errors"
	"fmt"
	"strings"

	"publish-notifier/internal/domain/entity"
)

// MaxNewsPerMessage caps the items in one batched news message.
const MaxNewsPerMessage = 10

var (
	// ErrTooManyItems is returned when a news batch exceeds MaxNewsPerMessage.
	ErrTooManyItems = errors.New("too many news items for one message")

	// ErrEmptyBatch is returned when a news batch has no items.
	ErrEmptyBatch = errors.New("news batch is empty")
)

// FormatNewsBatch builds one message listing up to ten news items.
// Callers split larger sets with ChunkNews.
func (f *Formatter) FormatNewsBatch(items []*entity.NewsItem) (Message, error) {
	if len(items) == 0 {
		return Message{}, ErrEmptyBatch
	}
	if len(items) > MaxNewsPerMessage {
		return Message{}, fmt.Errorf("%d items: %w", len(items), ErrTooManyItems)
	}

	noun := "news items"
	if len(items) == 1 {
		noun = "news item"
	}
	header := fmt.Sprintf("%s %d new %s", styles[entity.CategoryNews].emoji, len(items), noun)

	blocks := make([]Block, 0, len(items)+2)
	blocks = append(blocks, headerBlock(header))
	for _, item := range items {
		blocks = append(blocks, sectionBlock(f.newsItemText(item)))
	}
	blocks = append(blocks, contextBlock(link(f.NewsIndexURL(), "View all news")))

	return Message{
		Blocks: blocks,
		Text:   TruncateText(fmt.Sprintf("%d new %s: %s", len(items), noun, items[0].Title), maxFallbackLength),
	}, nil
}

func (f *Formatter) newsItemText(item *entity.NewsItem) string {
	url := item.URL
	if url == "" {
		url = f.PublicURL(entity.CategoryNews, item.Slug)
	}

	var b strings.Builder
	b.WriteString("*" + link(url, TruncateText(item.Title, maxTitleLength)) + "*")
	if s := strings.TrimSpace(item.Summary); s != "" {
		b.WriteString("\n" + escapeMrkdwn(s))
	}
	if item.SourceName != "" {
		b.WriteString("\n_" + escapeMrkdwn(item.SourceName) + "_")
	}
	return b.String()
}

// ChunkNews splits items into consecutive groups of at most size.
func ChunkNews(items []*entity.NewsItem, size int) [][]*entity.NewsItem {
	if size <= 0 {
		size = MaxNewsPerMessage
	}
	chunks := make([][]*entity.NewsItem, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
