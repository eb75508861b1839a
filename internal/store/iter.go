package store

import (
	"context"
	"fmt"
	"iter"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
)

// All lazily yields every record of a collection, following continuation tokens until exhausted.
// Each call starts a fresh listing. A failed page or a repeated token ends the sequence with an error.
func All[T any](ctx context.Context, c Collection[T], filter Filter, pageSize int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		seen := make(map[string]bool)
		token := ""

		for {
			page, err := c.List(ctx, filter, pageSize, token)
			if err != nil {
				yield(zero, fmt.Errorf("failed to list %s: %w", c.Name(), err))
				return
			}

			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}

			if page.NextToken == "" {
				return
			}
			if seen[page.NextToken] {
				yield(zero, fmt.Errorf("%w: %s", domain.ErrPaginationLoop, c.Name()))
				return
			}
			seen[page.NextToken] = true
			token = page.NextToken
		}
	}
}

// Snapshot reads the whole collection into memory.
// Any failure is reported as ErrIncompleteSnapshot: a partial read is never returned.
func Snapshot[T any](ctx context.Context, c Collection[T], filter Filter, pageSize int) ([]T, error) {
	var items []T
	for item, err := range All(ctx, c, filter, pageSize) {
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIncompleteSnapshot, err)
		}
		items = append(items, item)
	}
	return items, nil
}
