package destination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"publish-notifier/internal/domain/entity"
	"publish-notifier/internal/repository"
)

// CreateInput represents the input parameters for creating a destination.
type CreateInput struct {
	Category   string
	WebhookURL string
	Channel    string
	// Enabled defaults to true when nil.
	Enabled *bool
}

// UpdateInput represents the editable fields of a destination.
// Empty strings and a nil Enabled are left unchanged.
type UpdateInput struct {
	ID         string
	WebhookURL string
	Channel    string
	Enabled    *bool
}

// Service provides destination management use cases.
type Service struct {
	Repo repository.DestinationRepository
}

// List retrieves all destinations, enabled or not.
func (s *Service) List(ctx context.Context) ([]*entity.Destination, error) {
	destinations, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}
	return destinations, nil
}

// Get retrieves one destination. Returns ErrDestinationNotFound when unknown.
func (s *Service) Get(ctx context.Context, id string) (*entity.Destination, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &entity.ValidationError{Field: "id", Message: "is required"}
	}
	d, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get destination: %w", err)
	}
	if d == nil {
		return nil, ErrDestinationNotFound
	}
	return d, nil
}

// Create validates and stores a new destination.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Destination, error) {
	category, err := entity.ParseCategory(in.Category)
	if err != nil {
		return nil, err
	}
	d := &entity.Destination{
		Category:   category,
		WebhookURL: strings.TrimSpace(in.WebhookURL),
		Channel:    in.Channel,
		Enabled:    in.Enabled == nil || *in.Enabled,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if err := s.Repo.Create(ctx, d); err != nil {
		return nil, mapRepoError("create destination", err)
	}
	slog.Info("destination created",
		slog.String("id", d.ID),
		slog.String("category", string(d.Category)),
		slog.String("channel", d.Channel),
		slog.String("webhook_url", d.MaskedWebhookURL()))
	return d, nil
}

// Update edits the webhook URL, channel or enabled flag of a destination.
// Category and creation time are immutable.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*entity.Destination, error) {
	d, err := s.Get(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if in.WebhookURL != "" {
		d.WebhookURL = strings.TrimSpace(in.WebhookURL)
	}
	if in.Channel != "" {
		d.Channel = in.Channel
	}
	if in.Enabled != nil {
		d.Enabled = *in.Enabled
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if err := s.Repo.Update(ctx, d); err != nil {
		return nil, mapRepoError("update destination", err)
	}
	slog.Info("destination updated",
		slog.String("id", d.ID),
		slog.String("category", string(d.Category)),
		slog.Bool("enabled", d.Enabled))
	return d, nil
}

// Seed makes the stored destinations match entries, matching on
// (category, channel). Existing rows are updated in place; missing ones are
// created. Destinations not listed are left untouched.
func (s *Service) Seed(ctx context.Context, entries []CreateInput) error {
	existing, err := s.List(ctx)
	if err != nil {
		return err
	}
	byKey := make(map[string]*entity.Destination, len(existing))
	for _, d := range existing {
		byKey[seedKey(string(d.Category), d.Channel)] = d
	}

	for i, in := range entries {
		current, ok := byKey[seedKey(in.Category, in.Channel)]
		if !ok {
			if _, err := s.Create(ctx, in); err != nil {
				return fmt.Errorf("seed entry %d: %w", i, err)
			}
			continue
		}

		enabled := in.Enabled == nil || *in.Enabled
		if current.WebhookURL == strings.TrimSpace(in.WebhookURL) && current.Enabled == enabled {
			continue
		}
		if _, err := s.Update(ctx, UpdateInput{ID: current.ID, WebhookURL: in.WebhookURL, Enabled: &enabled}); err != nil {
			return fmt.Errorf("seed entry %d: %w", i, err)
		}
	}
	return nil
}

func seedKey(category, channel string) string {
	return strings.TrimSpace(category) + "\x00" + strings.TrimSpace(channel)
}

func mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, entity.ErrDuplicate):
		return fmt.Errorf("%s: %w", op, ErrDuplicateDestination)
	case errors.Is(err, entity.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrDestinationNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
