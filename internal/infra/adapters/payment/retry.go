package payment

import (
	"context"
	"time"

	"momo-gateway/internal/domain"
	"momo-gateway/internal/domain/model"
	"momo-gateway/internal/domain/ports/adapter"
)

// RetryPolicy bounds how transport failures are retried. Business declines
// are never retried; only NETWORK_ERROR and TIMEOUT qualify.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 200 * time.Millisecond
	}
	return p
}

var _ adapter.ProviderAdapter = (*retryingAdapter)(nil)

type retryingAdapter struct {
	next   adapter.ProviderAdapter
	policy RetryPolicy
}

// WithRetry wraps next so that Charge, Status and Refund retry transport
// failures with exponential backoff. Validation and webhook paths never
// touch the network and pass through untouched.
func WithRetry(next adapter.ProviderAdapter, policy RetryPolicy) adapter.ProviderAdapter {
	return &retryingAdapter{next: next, policy: policy.normalized()}
}

func (r *retryingAdapter) Name() model.Provider { return r.next.Name() }

func (r *retryingAdapter) ValidatePhone(msisdn string) adapter.PhoneValidation {
	return r.next.ValidatePhone(msisdn)
}

func (r *retryingAdapter) HandleWebhook(ctx context.Context, payload []byte, signature string) (*adapter.WebhookEvent, error) {
	return r.next.HandleWebhook(ctx, payload, signature)
}

func (r *retryingAdapter) Charge(ctx context.Context, req model.ChargeRequest) (*adapter.ChargeResult, error) {
	var res *adapter.ChargeResult
	err := r.attempt(ctx, func() error {
		var err error
		res, err = r.next.Charge(ctx, req)
		return err
	})
	return res, err
}

func (r *retryingAdapter) Status(ctx context.Context, transactionID string) (*adapter.StatusResult, error) {
	var res *adapter.StatusResult
	err := r.attempt(ctx, func() error {
		var err error
		res, err = r.next.Status(ctx, transactionID)
		return err
	})
	return res, err
}

func (r *retryingAdapter) Refund(ctx context.Context, req model.RefundRequest) (*adapter.RefundResult, error) {
	var res *adapter.RefundResult
	err := r.attempt(ctx, func() error {
		var err error
		res, err = r.next.Refund(ctx, req)
		return err
	})
	return res, err
}

func (r *retryingAdapter) attempt(ctx context.Context, fn func() error) error {
	var err error
	delay := r.policy.BaseDelay
	for i := 0; i < r.policy.MaxAttempts; i++ {
		if err = fn(); err == nil || !domain.Retryable(err) {
			return err
		}
		if i == r.policy.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
