package notify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"publish-notifier/internal/domain/entity"
	"publish-notifier/internal/repository"
)

const lookupTimeout = 5 * time.Second

// Resolver finds the enabled webhook destination for a category.
// Concurrent lookups of the same category share one query.
type Resolver struct {
	repo  repository.DestinationRepository
	group singleflight.Group
}

// NewResolver creates a Resolver backed by repo.
func NewResolver(repo repository.DestinationRepository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the enabled destination for category, or nil when none is
// configured. A nil result is a skip, not an error.
func (r *Resolver) Resolve(ctx context.Context, category entity.Category) (*entity.Destination, error) {
	// the shared query must not die with whichever caller started it
	ch := r.group.DoChan(string(category), func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		return r.repo.FindEnabledByCategory(lookupCtx, category)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("resolve destination for %s: %w", category, res.Err)
		}
		d, _ := res.Val.(*entity.Destination)
		if d == nil {
			return nil, nil
		}
		cp := *d
		return &cp, nil
	}
}
