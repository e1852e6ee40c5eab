package usecase

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"momo-gateway/internal/domain"
	"momo-gateway/internal/domain/model"
	"momo-gateway/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// mockAdapter lets each test script exactly one provider's behavior.
type mockAdapter struct {
	name          model.Provider
	chargeFunc    func(ctx context.Context, req model.ChargeRequest) (*adapter.ChargeResult, error)
	statusFunc    func(ctx context.Context, transactionID string) (*adapter.StatusResult, error)
	refundFunc    func(ctx context.Context, req model.RefundRequest) (*adapter.RefundResult, error)
	validateFunc  func(msisdn string) adapter.PhoneValidation
	webhookFunc   func(ctx context.Context, payload []byte, signature string) (*adapter.WebhookEvent, error)
	chargeCalls   int
	lastChargeReq model.ChargeRequest
}

func (m *mockAdapter) Name() model.Provider { return m.name }

func (m *mockAdapter) Charge(ctx context.Context, req model.ChargeRequest) (*adapter.ChargeResult, error) {
	m.chargeCalls++
	m.lastChargeReq = req
	if m.chargeFunc != nil {
		return m.chargeFunc(ctx, req)
	}
	return &adapter.ChargeResult{
		TransactionID: "TX-" + string(m.name),
		Status:        model.PaymentStatusPending,
		Verification:  &adapter.VerificationData{Kind: adapter.VerificationOTP},
	}, nil
}

func (m *mockAdapter) Status(ctx context.Context, transactionID string) (*adapter.StatusResult, error) {
	if m.statusFunc != nil {
		return m.statusFunc(ctx, transactionID)
	}
	return &adapter.StatusResult{TransactionID: transactionID, Status: model.PaymentStatusPending}, nil
}

func (m *mockAdapter) Refund(ctx context.Context, req model.RefundRequest) (*adapter.RefundResult, error) {
	if m.refundFunc != nil {
		return m.refundFunc(ctx, req)
	}
	return &adapter.RefundResult{TransactionID: req.TransactionID, Status: model.PaymentStatusRefunded, RefundedAt: time.Now()}, nil
}

func (m *mockAdapter) ValidatePhone(msisdn string) adapter.PhoneValidation {
	if m.validateFunc != nil {
		return m.validateFunc(msisdn)
	}
	return adapter.PhoneValidation{Valid: true, Formatted: msisdn, Network: m.name, Country: "CI"}
}

func (m *mockAdapter) HandleWebhook(ctx context.Context, payload []byte, signature string) (*adapter.WebhookEvent, error) {
	if m.webhookFunc != nil {
		return m.webhookFunc(ctx, payload, signature)
	}
	return &adapter.WebhookEvent{Provider: m.name}, nil
}

// memPaymentRepo is an in-memory PaymentRepository for facade tests.
type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*model.Payment
	saveErr  error
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[string]*model.Payment)}
}

func (r *memPaymentRepo) Save(_ context.Context, p *model.Payment) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memPaymentRepo) FindByID(_ context.Context, id string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memPaymentRepo) FindByTransactionID(_ context.Context, provider model.Provider, transactionID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.Provider == provider && p.TransactionID == transactionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPaymentRepo) FindByIdempotencyKey(_ context.Context, key string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.IdempotencyKey == key {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPaymentRepo) UpdateStatus(_ context.Context, id string, status model.PaymentStatus, failureCode string, confirmedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	if failureCode != "" {
		p.FailureCode = failureCode
	}
	p.ConfirmedAt = confirmedAt
	p.UpdatedAt = time.Now()
	return nil
}

func (r *memPaymentRepo) SumByPeriod(_ context.Context, provider model.Provider, _ string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for _, p := range r.payments {
		if p.Provider == provider && p.Status == model.PaymentStatusSucceeded {
			sum += p.Amount
		}
	}
	return sum, nil
}

// memIdemStore mirrors the Redis fence semantics in memory.
type memIdemStore struct {
	mu       sync.Mutex
	states   map[string]string
	beginErr error
}

func newMemIdemStore() *memIdemStore {
	return &memIdemStore{states: make(map[string]string)}
}

func (s *memIdemStore) Begin(_ context.Context, key string) error {
	if s.beginErr != nil {
		return s.beginErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.states[key] {
	case "COMPLETED":
		return domain.ErrDuplicateRequest
	case "IN_PROGRESS":
		return domain.ErrRequestInProgress
	}
	s.states[key] = "IN_PROGRESS"
	return nil
}

func (s *memIdemStore) Complete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[key] = "COMPLETED"
	return nil
}

func (s *memIdemStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
	return nil
}
