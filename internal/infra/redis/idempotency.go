package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"momo-gateway/internal/domain"
	"momo-gateway/internal/domain/ports/repository"
)

const (
	stateInProgress = "IN_PROGRESS"
	stateCompleted  = "COMPLETED"

	// A crashed process must not hold a key forever.
	inProgressTTL = 30 * time.Second
	completedTTL  = 24 * time.Hour
)

var _ repository.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore fences duplicate charge submissions with SETNX.
type IdempotencyStore struct {
	cli Client
}

func NewIdempotencyStore(cli Client) *IdempotencyStore {
	return &IdempotencyStore{cli: cli}
}

func key(k string) string { return "idem:" + k }

// Begin atomically reserves k. SETNX is what makes concurrent submissions
// of the same key safe.
func (s *IdempotencyStore) Begin(ctx context.Context, k string) error {
	state, err := s.cli.Get(ctx, key(k))
	if err == nil && state == stateCompleted {
		return domain.ErrDuplicateRequest
	}
	if err != nil && !errors.Is(err, Nil) {
		return fmt.Errorf("idempotency get: %w", err)
	}

	set, err := s.cli.SetNX(ctx, key(k), stateInProgress, inProgressTTL)
	if err != nil {
		return fmt.Errorf("idempotency setnx: %w", err)
	}
	if !set {
		return domain.ErrRequestInProgress
	}
	return nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, k string) error {
	return s.cli.Set(ctx, key(k), stateCompleted, completedTTL)
}

func (s *IdempotencyStore) Clear(ctx context.Context, k string) error {
	return s.cli.Del(ctx, key(k))
}
