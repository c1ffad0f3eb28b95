package entity

import "time"

// Content is the subset of a published record needed to build a notification.
// SecondaryURL is the source repository for plugins and the original article for news.
type Content struct {
	ID           string
	Category     Category
	Title        string
	Slug         string
	Summary      string
	Body         string
	ImageURL     string
	Tags         []string
	SecondaryURL string
	Author       string
	PublishedAt  *time.Time
}

// NewsItem is one aggregated news entry.
type NewsItem struct {
	ID          string
	Title       string
	Slug        string
	Summary     string
	URL         string
	SourceName  string
	PublishedAt time.Time
}

// NewsPosition is a point in the (published_at, id) order of news items.
// The id breaks ties between items published at the same instant.
type NewsPosition struct {
	PublishedAt time.Time
	ID          string
}

// PositionOf returns the position of n.
func PositionOf(n *NewsItem) NewsPosition {
	return NewsPosition{PublishedAt: n.PublishedAt, ID: n.ID}
}

// IsZero reports whether p was never set.
func (p NewsPosition) IsZero() bool {
	return p.PublishedAt.IsZero() && p.ID == ""
}

// After reports whether p sorts strictly after q. IDs compare bytewise.
func (p NewsPosition) After(q NewsPosition) bool {
	if !p.PublishedAt.Equal(q.PublishedAt) {
		return p.PublishedAt.After(q.PublishedAt)
	}
	return p.ID > q.ID
}
