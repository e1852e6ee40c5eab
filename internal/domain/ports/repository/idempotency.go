package repository

import "context"

// IdempotencyStore fences duplicate charge submissions. Begin reserves a
// key before the provider call; Complete marks it settled; Clear releases a
// reservation after a failed call so the caller may retry.
//
// Begin returns domain.ErrDuplicateRequest for a key already completed and
// domain.ErrRequestInProgress for a key another call currently holds.
type IdempotencyStore interface {
	Begin(ctx context.Context, key string) error
	Complete(ctx context.Context, key string) error
	Clear(ctx context.Context, key string) error
}
