package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"publish-notifier/internal/domain/entity"
	"publish-notifier/internal/repository"
	"publish-notifier/internal/resilience/circuitbreaker"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const destinationColumns = `id, category, webhook_url, channel_name, enabled, created_at, updated_at`

type DestinationRepo struct{ db circuitbreaker.DB }

func NewDestinationRepo(db circuitbreaker.DB) repository.DestinationRepository {
	return &DestinationRepo{db: db}
}

func scanDestination(rows *sql.Rows) (*entity.Destination, error) {
	var d entity.Destination
	if err := rows.Scan(
		&d.ID, &d.Category, &d.WebhookURL, &d.Channel, &d.Enabled, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func (repo *DestinationRepo) FindEnabledByCategory(ctx context.Context, category entity.Category) (*entity.Destination, error) {
	const query = `
SELECT ` + destinationColumns + `
FROM slack_webhook_configs
WHERE category = $1 AND enabled = TRUE
ORDER BY updated_at DESC
LIMIT 1`
	rows, err := repo.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("FindEnabledByCategory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, rows.Err()
	}
	d, err := scanDestination(rows)
	if err != nil {
		return nil, fmt.Errorf("FindEnabledByCategory: %w", err)
	}
	return d, nil
}

func (repo *DestinationRepo) List(ctx context.Context) ([]*entity.Destination, error) {
	const query = `
SELECT ` + destinationColumns + `
FROM slack_webhook_configs
ORDER BY category ASC, created_at ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// カテゴリ数 × チャンネル数程度なので小さく確保
	destinations := make([]*entity.Destination, 0, 8)
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		destinations = append(destinations, d)
	}
	return destinations, rows.Err()
}

func (repo *DestinationRepo) Get(ctx context.Context, id string) (*entity.Destination, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	const query = `
SELECT ` + destinationColumns + `
FROM slack_webhook_configs
WHERE id = $1`
	rows, err := repo.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, rows.Err()
	}
	d, err := scanDestination(rows)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return d, nil
}

func (repo *DestinationRepo) Create(ctx context.Context, d *entity.Destination) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	const query = `
INSERT INTO slack_webhook_configs (id, category, webhook_url, channel_name, enabled)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at`
	err := repo.db.QueryRowContext(ctx, query,
		d.ID, d.Category, d.WebhookURL, d.Channel, d.Enabled,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", mapConstraintError(err))
	}
	return nil
}

func (repo *DestinationRepo) Update(ctx context.Context, d *entity.Destination) error {
	const query = `
UPDATE slack_webhook_configs SET
       webhook_url  = $1,
       channel_name = $2,
       enabled      = $3,
       updated_at   = now()
WHERE id = $4
RETURNING updated_at`
	err := repo.db.QueryRowContext(ctx, query,
		d.WebhookURL, d.Channel, d.Enabled, d.ID,
	).Scan(&d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("Update: %w", mapConstraintError(err))
	}
	return nil
}

// mapConstraintError turns a unique violation into entity.ErrDuplicate.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", entity.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
