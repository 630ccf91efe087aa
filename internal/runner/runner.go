// Package runner provides a bounded fan-out executor for process-heavy work
// such as clip encoding. Results come back in task order no matter how
// completion interleaves, which is what lets the assembler dispatch encodes
// concurrently and still concatenate deterministically.
package runner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Collect runs every task with at most limit in flight and returns their
// results indexed by task position. The first failure cancels the shared
// context and propagates; tasks that already finished keep their results on
// disk as valid cache entries for the next attempt.
func Collect[T any](ctx context.Context, limit int, tasks []func(context.Context) (T, error)) ([]T, error) {
	if limit < 1 {
		limit = 1
	}
	results := make([]T, len(tasks))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for i, task := range tasks {
		group.Go(func() error {
			value, err := task(groupCtx)
			if err != nil {
				return fmt.Errorf("task %d: %w", i, err)
			}
			results[i] = value
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Run is Collect for tasks without results.
func Run(ctx context.Context, limit int, tasks []func(context.Context) error) error {
	wrapped := make([]func(context.Context) (struct{}, error), len(tasks))
	for i, task := range tasks {
		wrapped[i] = func(ctx context.Context) (struct{}, error) {
			return struct{}{}, task(ctx)
		}
	}
	_, err := Collect(ctx, limit, wrapped)
	return err
}
