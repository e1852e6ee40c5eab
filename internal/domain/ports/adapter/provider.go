package adapter

import (
	"context"
	"time"

	"momo-gateway/internal/domain/model"
)

// VerificationKind tells the caller how the customer confirms the charge.
type VerificationKind string

const (
	VerificationOTP      VerificationKind = "otp"      // approval prompt / one-time code on the handset
	VerificationRedirect VerificationKind = "redirect" // provider-hosted payment page
	VerificationQR       VerificationKind = "qr"       // scan-to-pay QR code
)

// VerificationData describes the out-of-band confirmation step. A charge is
// never confirmed synchronously; one of these always accompanies an accepted
// charge.
type VerificationData struct {
	Kind         VerificationKind
	Instructions string
	PayURL       string // set for redirect flows
	QRCode       string // set for qr flows
}

// ChargeResult is returned by an adapter once the provider accepted the
// charge. Status reflects the provider's view at acceptance time, almost
// always pending.
type ChargeResult struct {
	TransactionID string
	Status        model.PaymentStatus
	Verification  *VerificationData
}

// StatusResult carries the provider's current view of a transaction plus the
// reconciliation fields providers echo back.
type StatusResult struct {
	TransactionID string
	Status        model.PaymentStatus
	Amount        float64
	Currency      string
	Msisdn        string
}

// RefundResult is returned only when the provider reports the refund as
// settled; any other provider outcome surfaces as an error.
type RefundResult struct {
	TransactionID string
	Status        model.PaymentStatus
	RefundedAt    time.Time
}

// PhoneValidation is the outcome of a numbering-plan check. It never
// involves a network call.
type PhoneValidation struct {
	Valid     bool
	Formatted string         // E.164 with country code, e.g. +2250748123456
	Network   model.Provider // owning network of the matched plan
	Country   string         // ISO 3166-1 alpha-2
}

// WebhookEvent is the canonical form of a provider callback after signature
// verification and status mapping.
type WebhookEvent struct {
	Provider      model.Provider
	TransactionID string
	Status        model.PaymentStatus
	Amount        float64
	Currency      string
	Msisdn        string
	OccurredAt    time.Time
}

// ProviderAdapter is the hex port each mobile money network implements.
// Implementations hold only immutable configuration; all methods are safe
// for concurrent use. No method retries: every failure is terminal for that
// call and surfaces as a *domain.PaymentError.
type ProviderAdapter interface {
	Name() model.Provider

	// Charge initiates a payment. Local validation failures (amount below
	// the provider minimum, phone outside the numbering plan) return an
	// error before any HTTP call is made.
	Charge(ctx context.Context, req model.ChargeRequest) (*ChargeResult, error)

	// Status fetches and maps the provider's view of a transaction.
	Status(ctx context.Context, transactionID string) (*StatusResult, error)

	// Refund succeeds only if the provider reports the refund settled.
	Refund(ctx context.Context, req model.RefundRequest) (*RefundResult, error)

	// ValidatePhone formats msisdn and tests it against the provider's
	// numbering plan. Regex only; never a network call.
	ValidatePhone(msisdn string) PhoneValidation

	// HandleWebhook verifies the provider signature and maps the payload
	// into a canonical event.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}
