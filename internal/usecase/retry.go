package usecase

import (
	"context"
	"errors"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// retryOnce calls fn and repeats it a single time if the error satisfies
// retryable. Lookup misses and context errors are returned as is.
func retryOnce(ctx context.Context, fn func() error, retryable func(error) bool) error {
	err := fn()
	if err == nil || errors.Is(err, entity.ErrURLNotFound) || ctx.Err() != nil || !retryable(err) {
		return err
	}

	return fn()
}

// notApplied allows a retry only when the failed write never reached the storage.
func notApplied(err error) bool {
	return errors.Is(err, entity.ErrNotApplied)
}

// anyError allows a retry of writes that are idempotent.
func anyError(error) bool {
	return true
}
