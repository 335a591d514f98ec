package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// tier is one source in a fallback chain.
type tier[T any] struct {
	name  string
	fetch func(ctx context.Context) (T, error)
}

// resolve returns the result of the first tier that succeeds, along with
// its name. Failed tiers are logged. When every tier fails the joined error
// is returned with the zero value.
func resolve[T any](ctx context.Context, log zerolog.Logger, tiers ...tier[T]) (T, string, error) {
	var errs []error
	for _, t := range tiers {
		v, err := t.fetch(ctx)
		if err == nil {
			return v, t.name, nil
		}
		log.Warn().Err(err).Str("tier", t.name).Msg("tier failed, falling back")
		errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
	}
	var zero T
	return zero, "", errors.Join(errs...)
}
