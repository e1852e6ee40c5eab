package payment

import (
	"context"
	"testing"
	"time"

	"momo-gateway/internal/domain"
	"momo-gateway/internal/domain/model"
	"momo-gateway/internal/domain/ports/adapter"
)

// flakyAdapter fails a configurable number of times before succeeding.
type flakyAdapter struct {
	failures int
	err      error
	calls    int
}

func (f *flakyAdapter) Name() model.Provider { return model.ProviderMTN }

func (f *flakyAdapter) Charge(context.Context, model.ChargeRequest) (*adapter.ChargeResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &adapter.ChargeResult{TransactionID: "TX-OK", Status: model.PaymentStatusPending}, nil
}

func (f *flakyAdapter) Status(context.Context, string) (*adapter.StatusResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &adapter.StatusResult{Status: model.PaymentStatusPending}, nil
}

func (f *flakyAdapter) Refund(context.Context, model.RefundRequest) (*adapter.RefundResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &adapter.RefundResult{Status: model.PaymentStatusRefunded}, nil
}

func (f *flakyAdapter) ValidatePhone(string) adapter.PhoneValidation {
	return adapter.PhoneValidation{Valid: true}
}

func (f *flakyAdapter) HandleWebhook(context.Context, []byte, string) (*adapter.WebhookEvent, error) {
	return nil, nil
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	t.Run("should retry transport failures until success", func(t *testing.T) {
		flaky := &flakyAdapter{failures: 2, err: domain.NewPaymentError(domain.ErrCodeNetwork, "down")}
		ad := WithRetry(flaky, policy)

		res, err := ad.Charge(ctx, model.ChargeRequest{})
		if err != nil {
			t.Fatalf("expected success after retries, got %v", err)
		}
		if res.TransactionID != "TX-OK" {
			t.Errorf("unexpected result %+v", res)
		}
		if flaky.calls != 3 {
			t.Errorf("expected 3 attempts, got %d", flaky.calls)
		}
	})

	t.Run("should give up after max attempts", func(t *testing.T) {
		flaky := &flakyAdapter{failures: 10, err: domain.NewPaymentError(domain.ErrCodeTimeout, "slow")}
		ad := WithRetry(flaky, policy)

		_, err := ad.Charge(ctx, model.ChargeRequest{})
		if domain.CodeOf(err) != domain.ErrCodeTimeout {
			t.Fatalf("expected the final TIMEOUT, got %v", err)
		}
		if flaky.calls != 3 {
			t.Errorf("expected 3 attempts, got %d", flaky.calls)
		}
	})

	t.Run("should never retry business declines", func(t *testing.T) {
		flaky := &flakyAdapter{failures: 10, err: domain.NewPaymentError(domain.ErrCodeInsufficientFunds, "solde insuffisant")}
		ad := WithRetry(flaky, policy)

		_, err := ad.Charge(ctx, model.ChargeRequest{})
		if domain.CodeOf(err) != domain.ErrCodeInsufficientFunds {
			t.Fatalf("expected INSUFFICIENT_FUNDS, got %v", err)
		}
		if flaky.calls != 1 {
			t.Errorf("expected a single attempt, got %d", flaky.calls)
		}
	})

	t.Run("should stop when the context is cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		flaky := &flakyAdapter{failures: 10, err: domain.NewPaymentError(domain.ErrCodeNetwork, "down")}
		ad := WithRetry(flaky, policy)

		_, err := ad.Charge(cctx, model.ChargeRequest{})
		if err == nil {
			t.Fatal("expected an error")
		}
		if flaky.calls != 1 {
			t.Errorf("expected a single attempt before cancellation, got %d", flaky.calls)
		}
	})
}
