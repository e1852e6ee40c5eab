package usecase

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"momo-gateway/internal/domain"
	"momo-gateway/internal/domain/model"
	"momo-gateway/internal/domain/ports/adapter"
	"momo-gateway/internal/domain/ports/repository"
	"momo-gateway/internal/infra/logging"
	"momo-gateway/internal/infra/metrics"
)

// Compile-time check
var _ GatewayUseCase = (*gatewayUC)(nil)

// ChargeReceipt is the enriched result of a charge going through the
// gateway.
type ChargeReceipt struct {
	Provider      model.Provider
	ProviderName  string
	PaymentID     string
	TransactionID string
	Status        model.PaymentStatus
	AmountDisplay string
	Verification  *adapter.VerificationData
	Duplicate     bool // replay of an already-completed idempotency key
}

type StatusReceipt struct {
	Provider      model.Provider
	ProviderName  string
	TransactionID string
	Status        model.PaymentStatus
	Amount        float64
	AmountDisplay string
	Currency      string
	Msisdn        string
}

type RefundReceipt struct {
	Provider      model.Provider
	ProviderName  string
	TransactionID string
	Status        model.PaymentStatus
	RefundedAt    time.Time
}

// Candidate is one adapter that accepted a phone number during detection.
type Candidate struct {
	Provider   model.Provider
	Validation adapter.PhoneValidation
}

// Detection holds every candidate plus a best-guess pick. Numbering plans
// overlap, so the pick is a heuristic, not a guarantee.
type Detection struct {
	Msisdn     string
	Candidates []Candidate
	Detected   model.Provider
}

type LimitCheck struct {
	Valid  bool
	Issues []string
}

type ProviderInfo struct {
	Provider model.Provider
	Config   model.ProviderConfig
}

// GatewayUseCase is the single entry point in front of the provider
// adapters. It hides which adapter serves a request and adds the
// cross-cutting checks the adapters do not perform themselves.
type GatewayUseCase interface {
	Charge(ctx context.Context, provider model.Provider, req model.ChargeRequest) (*ChargeReceipt, error)
	Status(ctx context.Context, provider model.Provider, transactionID string) (*StatusReceipt, error)
	Refund(ctx context.Context, provider model.Provider, req model.RefundRequest) (*RefundReceipt, error)
	Detect(ctx context.Context, msisdn string) (*Detection, error)
	Fees(provider model.Provider, amount float64) float64
	CheckLimits(provider model.Provider, amount float64) LimitCheck
	ProviderStats() []ProviderInfo
	Volume(ctx context.Context, provider model.Provider, period string) (float64, error)
	HandleWebhook(ctx context.Context, provider model.Provider, payload []byte, signature string) (*adapter.WebhookEvent, error)
}

type gatewayUC struct {
	reg      *Registry
	payments repository.PaymentRepository
	idem     repository.IdempotencyStore
	log      *zerolog.Logger
}

func NewGatewayUseCase(reg *Registry, payments repository.PaymentRepository, idem repository.IdempotencyStore, logger *zerolog.Logger) *gatewayUC {
	return &gatewayUC{reg: reg, payments: payments, idem: idem, log: logger}
}

func (u *gatewayUC) Charge(ctx context.Context, provider model.Provider, req model.ChargeRequest) (*ChargeReceipt, error) {
	ctx = logging.WithProvider(ctx, string(provider))
	ctx = logging.WithOrderID(ctx, req.OrderID)

	ad, cfg, err := u.lookup(provider)
	if err != nil {
		return nil, err
	}
	if err := u.checkEligibility(provider, cfg, ad, req); err != nil {
		metrics.IncCharge(string(provider), "ineligible")
		return nil, err
	}

	key := req.IdempotencyKey
	if key == "" {
		key = ulid.Make().String()
		req.IdempotencyKey = key
	}
	if replay, err := u.fence(ctx, key); err != nil {
		return nil, err
	} else if replay != nil {
		return replay, nil
	}

	start := time.Now()
	res, err := ad.Charge(ctx, req)
	metrics.ObserveProviderCall(string(provider), "charge", time.Since(start))
	if err != nil {
		u.clearFence(ctx, key)
		code := domain.CodeOf(err)
		metrics.IncCharge(string(provider), "rejected")
		metrics.IncProviderError(string(provider), string(code))
		logging.With(ctx, u.log).Warn().
			Str("code", string(code)).
			Err(err).
			Msg("charge rejected")
		return nil, err
	}

	now := time.Now()
	p := &model.Payment{
		ID:             uuid.NewString(),
		Provider:       provider,
		OrderID:        req.OrderID,
		Msisdn:         req.Msisdn,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Status:         res.Status,
		TransactionID:  res.TransactionID,
		IdempotencyKey: key,
		Description:    req.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if res.Verification != nil {
		p.Verification = string(res.Verification.Kind)
	}
	if u.payments != nil {
		if err := u.payments.Save(ctx, p); err != nil {
			// The provider already accepted the charge; losing the record must
			// not fail the caller. The webhook path re-syncs from the provider.
			logging.With(ctx, u.log).Error().Err(err).
				Str("transaction_id", res.TransactionID).
				Msg("failed to persist payment record")
		}
	}
	if u.idem != nil {
		if err := u.idem.Complete(ctx, key); err != nil {
			logging.With(ctx, u.log).Warn().Err(err).Msg("failed to mark idempotency key completed")
		}
	}

	metrics.IncCharge(string(provider), string(res.Status))
	metrics.AddChargeVolume(string(provider), req.Currency, req.Amount)
	logging.With(ctx, u.log).Info().
		Str("transaction_id", res.TransactionID).
		Str("msisdn", logging.RedactMsisdn(req.Msisdn)).
		Str("status", string(res.Status)).
		Msg("charge accepted")

	return &ChargeReceipt{
		Provider:      provider,
		ProviderName:  cfg.DisplayName,
		PaymentID:     p.ID,
		TransactionID: res.TransactionID,
		Status:        res.Status,
		AmountDisplay: formatAmount(req.Amount, req.Currency),
		Verification:  res.Verification,
	}, nil
}

// fence reserves the idempotency key. A completed key replays the stored
// payment instead of charging twice.
func (u *gatewayUC) fence(ctx context.Context, key string) (*ChargeReceipt, error) {
	if u.idem == nil {
		return nil, nil
	}
	err := u.idem.Begin(ctx, key)
	switch {
	case err == nil:
		return nil, nil
	case err == domain.ErrDuplicateRequest:
		if u.payments != nil {
			if p, ferr := u.payments.FindByIdempotencyKey(ctx, key); ferr == nil {
				cfg, _ := u.reg.Config(p.Provider)
				return &ChargeReceipt{
					Provider:      p.Provider,
					ProviderName:  cfg.DisplayName,
					PaymentID:     p.ID,
					TransactionID: p.TransactionID,
					Status:        p.Status,
					AmountDisplay: formatAmount(p.Amount, p.Currency),
					Duplicate:     true,
				}, nil
			}
		}
		return nil, domain.NewPaymentError(domain.ErrCodeValidation, "duplicate payment request")
	case err == domain.ErrRequestInProgress:
		return nil, domain.NewPaymentError(domain.ErrCodeValidation, "payment request already in progress")
	default:
		// The fence is advisory; a broken store must not block payments.
		logging.With(ctx, u.log).Warn().Err(err).Msg("idempotency store unavailable, proceeding unfenced")
		return nil, nil
	}
}

func (u *gatewayUC) clearFence(ctx context.Context, key string) {
	if u.idem == nil {
		return
	}
	if err := u.idem.Clear(ctx, key); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Msg("failed to clear idempotency key")
	}
}

func (u *gatewayUC) Status(ctx context.Context, provider model.Provider, transactionID string) (*StatusReceipt, error) {
	ad, cfg, err := u.lookup(provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := ad.Status(ctx, transactionID)
	metrics.ObserveProviderCall(string(provider), "status", time.Since(start))
	if err != nil {
		metrics.IncProviderError(string(provider), string(domain.CodeOf(err)))
		return nil, err
	}

	u.syncPayment(ctx, provider, res.TransactionID, res.Status)

	return &StatusReceipt{
		Provider:      provider,
		ProviderName:  cfg.DisplayName,
		TransactionID: res.TransactionID,
		Status:        res.Status,
		Amount:        res.Amount,
		AmountDisplay: formatAmount(res.Amount, res.Currency),
		Currency:      res.Currency,
		Msisdn:        res.Msisdn,
	}, nil
}

func (u *gatewayUC) Refund(ctx context.Context, provider model.Provider, req model.RefundRequest) (*RefundReceipt, error) {
	ad, cfg, err := u.lookup(provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := ad.Refund(ctx, req)
	metrics.ObserveProviderCall(string(provider), "refund", time.Since(start))
	if err != nil {
		metrics.IncRefund(string(provider), "failed")
		metrics.IncProviderError(string(provider), string(domain.CodeOf(err)))
		return nil, err
	}

	u.syncPayment(ctx, provider, req.TransactionID, model.PaymentStatusRefunded)
	metrics.IncRefund(string(provider), "settled")
	logging.With(ctx, u.log).Info().
		Str("provider", string(provider)).
		Str("transaction_id", req.TransactionID).
		Msg("refund settled")

	return &RefundReceipt{
		Provider:      provider,
		ProviderName:  cfg.DisplayName,
		TransactionID: res.TransactionID,
		Status:        res.Status,
		RefundedAt:    res.RefundedAt,
	}, nil
}

// Detect runs every adapter's numbering-plan check concurrently and keeps
// registration order in the candidate list.
func (u *gatewayUC) Detect(_ context.Context, msisdn string) (*Detection, error) {
	providers := u.reg.Providers()
	validations := make([]adapter.PhoneValidation, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		ad, ok := u.reg.Adapter(p)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(i int, ad adapter.ProviderAdapter) {
			defer wg.Done()
			validations[i] = ad.ValidatePhone(msisdn)
		}(i, ad)
	}
	wg.Wait()

	var candidates []Candidate
	for i, p := range providers {
		if validations[i].Valid {
			candidates = append(candidates, Candidate{Provider: p, Validation: validations[i]})
		}
	}
	if len(candidates) == 0 {
		return nil, domain.NewPaymentError(domain.ErrCodeDetection,
			fmt.Sprintf("no provider recognizes %q", msisdn))
	}

	detected := candidates[0].Provider
	for _, c := range candidates {
		if c.Validation.Network == c.Provider {
			detected = c.Provider
			break
		}
	}
	return &Detection{Msisdn: msisdn, Candidates: candidates, Detected: detected}, nil
}

// Fees returns the flat percentage fee for amount, 0 when the provider or
// its fee is unconfigured.
func (u *gatewayUC) Fees(provider model.Provider, amount float64) float64 {
	cfg, ok := u.reg.Config(provider)
	if !ok || cfg.FeePercent <= 0 {
		return 0
	}
	return math.Round(amount * cfg.FeePercent / 100)
}

func (u *gatewayUC) CheckLimits(provider model.Provider, amount float64) LimitCheck {
	cfg, ok := u.reg.Config(provider)
	if !ok {
		return LimitCheck{Valid: true}
	}
	currency := "XOF"
	if len(cfg.Currencies) > 0 {
		currency = cfg.Currencies[0]
	}
	var issues []string
	if cfg.MinAmount > 0 && amount < cfg.MinAmount {
		issues = append(issues, fmt.Sprintf("Montant minimum: %s", formatAmount(cfg.MinAmount, currency)))
	}
	if cfg.MaxAmount > 0 && amount > cfg.MaxAmount {
		issues = append(issues, fmt.Sprintf("Montant maximum: %s", formatAmount(cfg.MaxAmount, currency)))
	}
	return LimitCheck{Valid: len(issues) == 0, Issues: issues}
}

// ProviderStats is a read-only snapshot for display purposes.
func (u *gatewayUC) ProviderStats() []ProviderInfo {
	providers := u.reg.Providers()
	out := make([]ProviderInfo, 0, len(providers))
	for _, p := range providers {
		cfg, _ := u.reg.Config(p)
		out = append(out, ProviderInfo{Provider: p, Config: cfg})
	}
	return out
}

// Volume sums confirmed charge amounts for the current period ("day",
// "week" or "month"). It needs the payment store; without one it reports
// the store as unavailable rather than a silent zero.
func (u *gatewayUC) Volume(ctx context.Context, provider model.Provider, period string) (float64, error) {
	if _, _, err := u.lookup(provider); err != nil {
		return 0, err
	}
	switch period {
	case "day", "week", "month":
	default:
		return 0, domain.NewPaymentError(domain.ErrCodeValidation,
			fmt.Sprintf("unknown period %q, want day, week or month", period))
	}
	if u.payments == nil {
		return 0, domain.NewPaymentError(domain.ErrCodeValidation, "payment store is not configured")
	}
	sum, err := u.payments.SumByPeriod(ctx, provider, period)
	if err != nil {
		return 0, domain.WrapPaymentError(domain.ErrCodeValidation, "volume lookup failed", err)
	}
	return sum, nil
}

func (u *gatewayUC) HandleWebhook(ctx context.Context, provider model.Provider, payload []byte, signature string) (*adapter.WebhookEvent, error) {
	ad, _, err := u.lookup(provider)
	if err != nil {
		return nil, err
	}
	event, err := ad.HandleWebhook(ctx, payload, signature)
	if err != nil {
		metrics.IncWebhook(string(provider), "rejected")
		logging.With(ctx, u.log).Warn().Err(err).
			Str("provider", string(provider)).
			Msg("webhook rejected")
		return nil, err
	}

	u.syncPayment(ctx, provider, event.TransactionID, event.Status)
	metrics.IncWebhook(string(provider), string(event.Status))
	return event, nil
}

func (u *gatewayUC) lookup(provider model.Provider) (adapter.ProviderAdapter, model.ProviderConfig, error) {
	ad, ok := u.reg.Adapter(provider)
	if !ok {
		return nil, model.ProviderConfig{}, domain.NewPaymentError(
			domain.ErrCodeUnsupportedProvider,
			fmt.Sprintf("unsupported provider %q", provider),
		)
	}
	cfg, _ := u.reg.Config(provider)
	return ad, cfg, nil
}

// checkEligibility runs the facade-level gate: provider state, currency,
// country from the phone number, and amount limits. Failing here
// guarantees the adapter (and the network) was never touched.
func (u *gatewayUC) checkEligibility(provider model.Provider, cfg model.ProviderConfig, ad adapter.ProviderAdapter, req model.ChargeRequest) error {
	if !cfg.Enabled {
		return domain.NewPaymentError(domain.ErrCodeValidation,
			fmt.Sprintf("provider %q is disabled", provider))
	}
	if !cfg.Available {
		return domain.NewPaymentError(domain.ErrCodeValidation,
			fmt.Sprintf("provider %q is temporarily unavailable", provider))
	}
	if !cfg.SupportsCurrency(req.Currency) {
		return domain.NewPaymentError(domain.ErrCodeValidation,
			fmt.Sprintf("currency %q not supported by %q", req.Currency, provider))
	}
	pv := ad.ValidatePhone(req.Msisdn)
	if !pv.Valid {
		return domain.NewPaymentError(domain.ErrCodeInvalidPhone,
			fmt.Sprintf("msisdn %q is not valid for %q", req.Msisdn, provider))
	}
	if len(cfg.Countries) > 0 && !cfg.SupportsCountry(pv.Country) {
		return domain.NewPaymentError(domain.ErrCodeValidation,
			fmt.Sprintf("country %q not supported by %q", pv.Country, provider))
	}
	if lc := u.CheckLimits(provider, req.Amount); !lc.Valid {
		return domain.NewPaymentError(domain.ErrCodeValidation, joinIssues(lc.Issues))
	}
	return nil
}

// syncPayment reconciles the stored record with a provider-reported status.
// Missing records are fine: persistence is best-effort and webhooks can
// arrive for charges initiated before the store existed.
func (u *gatewayUC) syncPayment(ctx context.Context, provider model.Provider, transactionID string, status model.PaymentStatus) {
	if u.payments == nil || transactionID == "" {
		return
	}
	p, err := u.payments.FindByTransactionID(ctx, provider, transactionID)
	if err != nil {
		return
	}
	if p.Status == status {
		return
	}
	// A late or replayed pending notification must not roll back a settled
	// record.
	if p.Status.Terminal() && status == model.PaymentStatusPending {
		return
	}
	var confirmedAt *time.Time
	if status == model.PaymentStatusSucceeded {
		now := time.Now()
		confirmedAt = &now
	}
	if err := u.payments.UpdateStatus(ctx, p.ID, status, "", confirmedAt); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).
			Str("payment_id", p.ID).
			Msg("failed to sync payment status")
	}
}

// formatAmount renders a whole-unit amount the way West African locales
// group digits: space-separated thousands, currency suffix.
func formatAmount(amount float64, currency string) string {
	n := int64(math.Round(amount))
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var out []byte
	for i, d := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ' ')
		}
		out = append(out, d)
	}
	formatted := string(out)
	if neg {
		formatted = "-" + formatted
	}
	if currency == "" {
		return formatted
	}
	return formatted + " " + currency
}

func joinIssues(issues []string) string {
	out := ""
	for i, s := range issues {
		if i > 0 {
			out += "; "
		}
		out += s
	}
	return out
}
