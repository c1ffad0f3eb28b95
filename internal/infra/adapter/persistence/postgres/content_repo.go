package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"publish-notifier/internal/domain/entity"
	"publish-notifier/internal/repository"
	"publish-notifier/internal/resilience/circuitbreaker"
)

// contentQueries read each content store into the same column order:
// id, title, slug, summary, body, image_url, tags (JSON), secondary_url, author, published_at.
var contentQueries = map[entity.Category]string{
	entity.CategoryWorkflow: `
SELECT id::text, title, slug, COALESCE(description, ''), COALESCE(body, ''),
       COALESCE(thumbnail_url, ''), COALESCE(array_to_json(tags)::text, '[]'),
       '', COALESCE(author_name, ''), published_at
FROM workflows
WHERE id::text = $1`,
	entity.CategoryPlugin: `
SELECT id::text, name, slug, COALESCE(description, ''), COALESCE(readme, ''),
       COALESCE(icon_url, ''), COALESCE(array_to_json(tags)::text, '[]'),
       COALESCE(repository_url, ''), COALESCE(author_name, ''), published_at
FROM plugins
WHERE id::text = $1`,
	entity.CategoryArticle: `
SELECT id::text, title, slug, COALESCE(excerpt, ''), COALESCE(body, ''),
       COALESCE(cover_image_url, ''), COALESCE(array_to_json(tags)::text, '[]'),
       '', COALESCE(author_name, ''), published_at
FROM articles
WHERE id::text = $1`,
	entity.CategoryNews: `
SELECT id::text, title, slug, COALESCE(summary, ''), '',
       COALESCE(image_url, ''), '[]',
       COALESCE(url, ''), COALESCE(source_name, ''), published_at
FROM news
WHERE id::text = $1`,
}

const newsItemColumns = `id::text, title, slug, COALESCE(summary, ''), COALESCE(url, ''), COALESCE(source_name, ''), published_at`

type ContentRepo struct{ db circuitbreaker.DB }

func NewContentRepo(db circuitbreaker.DB) repository.ContentRepository {
	return &ContentRepo{db: db}
}

func (repo *ContentRepo) Get(ctx context.Context, category entity.Category, id string) (*entity.Content, error) {
	query, ok := contentQueries[category]
	if !ok {
		return nil, fmt.Errorf("Get: %w: category %q", entity.ErrInvalidInput, category)
	}
	rows, err := repo.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, rows.Err()
	}

	c := entity.Content{Category: category}
	var tagsJSON string
	var publishedAt sql.NullTime
	if err := rows.Scan(
		&c.ID, &c.Title, &c.Slug, &c.Summary, &c.Body,
		&c.ImageURL, &tagsJSON, &c.SecondaryURL, &c.Author, &publishedAt,
	); err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &c.Tags); err != nil {
		return nil, fmt.Errorf("Get: decode tags: %w", err)
	}
	if publishedAt.Valid {
		c.PublishedAt = &publishedAt.Time
	}
	return &c, nil
}

func (repo *ContentRepo) GetNewsItems(ctx context.Context, ids []string) ([]*entity.NewsItem, error) {
	if len(ids) == 0 {
		return []*entity.NewsItem{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}
	query := `
SELECT ` + newsItemColumns + `
FROM news
WHERE id::text IN (` + strings.Join(placeholders, ", ") + `)
ORDER BY published_at ASC, id ASC`

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("GetNewsItems: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items, err := scanNewsItems(rows, len(ids))
	if err != nil {
		return nil, fmt.Errorf("GetNewsItems: %w", err)
	}
	return items, nil
}

// ListNewsAfter pages by the (published_at, id) keyset so items sharing a
// publish time are never skipped between pages. ids compare in "C" collation
// to match entity.NewsPosition.After.
func (repo *ContentRepo) ListNewsAfter(ctx context.Context, after entity.NewsPosition, limit int) ([]*entity.NewsItem, error) {
	const query = `
SELECT ` + newsItemColumns + `
FROM news
WHERE (published_at, id::text COLLATE "C") > ($1, $2)
ORDER BY published_at ASC, id::text COLLATE "C" ASC
LIMIT $3`
	rows, err := repo.db.QueryContext(ctx, query, after.PublishedAt, after.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListNewsAfter: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items, err := scanNewsItems(rows, limit)
	if err != nil {
		return nil, fmt.Errorf("ListNewsAfter: %w", err)
	}
	return items, nil
}

func scanNewsItems(rows *sql.Rows, sizeHint int) ([]*entity.NewsItem, error) {
	items := make([]*entity.NewsItem, 0, max(0, min(sizeHint, 100)))
	for rows.Next() {
		var n entity.NewsItem
		if err := rows.Scan(
			&n.ID, &n.Title, &n.Slug, &n.Summary, &n.URL, &n.SourceName, &n.PublishedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &n)
	}
	return items, rows.Err()
}
