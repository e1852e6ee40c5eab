package payment

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"momo-gateway/internal/domain"
	"momo-gateway/internal/domain/model"
	"momo-gateway/internal/domain/ports/adapter"
)

var _ adapter.ProviderAdapter = (*breakerAdapter)(nil)

// breakerAdapter guards a provider with a circuit breaker so that a
// degraded network does not stall every incoming request behind its
// timeout. Only transport failures count toward tripping.
type breakerAdapter struct {
	next adapter.ProviderAdapter
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps next in a per-provider circuit breaker.
func WithBreaker(next adapter.ProviderAdapter) adapter.ProviderAdapter {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    string(next.Name()),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &breakerAdapter{next: next, cb: cb}
}

func (b *breakerAdapter) Name() model.Provider { return b.next.Name() }

func (b *breakerAdapter) ValidatePhone(msisdn string) adapter.PhoneValidation {
	return b.next.ValidatePhone(msisdn)
}

func (b *breakerAdapter) HandleWebhook(ctx context.Context, payload []byte, signature string) (*adapter.WebhookEvent, error) {
	return b.next.HandleWebhook(ctx, payload, signature)
}

func (b *breakerAdapter) Charge(ctx context.Context, req model.ChargeRequest) (*adapter.ChargeResult, error) {
	res, err := b.execute(func() (any, error) { return b.next.Charge(ctx, req) })
	if err != nil {
		return nil, err
	}
	return res.(*adapter.ChargeResult), nil
}

func (b *breakerAdapter) Status(ctx context.Context, transactionID string) (*adapter.StatusResult, error) {
	res, err := b.execute(func() (any, error) { return b.next.Status(ctx, transactionID) })
	if err != nil {
		return nil, err
	}
	return res.(*adapter.StatusResult), nil
}

func (b *breakerAdapter) Refund(ctx context.Context, req model.RefundRequest) (*adapter.RefundResult, error) {
	res, err := b.execute(func() (any, error) { return b.next.Refund(ctx, req) })
	if err != nil {
		return nil, err
	}
	return res.(*adapter.RefundResult), nil
}

func (b *breakerAdapter) execute(fn func() (any, error)) (any, error) {
	res, err := b.cb.Execute(func() (any, error) {
		res, err := fn()
		if err != nil && !domain.Retryable(err) {
			// Business declines must not trip the breaker; report them as
			// success to the breaker and carry the error alongside.
			return result{res: res, err: err}, nil
		}
		return result{res: res}, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.WrapPaymentError(domain.ErrCodeNetwork, "provider temporarily unavailable", err)
		}
		return nil, err
	}
	r := res.(result)
	return r.res, r.err
}

type result struct {
	res any
	err error
}
