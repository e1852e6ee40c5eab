package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // awaiting customer confirmation (OTP / hosted page)
	PaymentStatusSucceeded PaymentStatus = "succeeded" // provider confirmed funds movement
	PaymentStatusFailed    PaymentStatus = "failed"    // declined or errored at provider
	PaymentStatusCancelled PaymentStatus = "cancelled" // customer or provider cancel
	PaymentStatusRefunded  PaymentStatus = "refunded"  // refund settled at provider
)

// Terminal reports whether s can no longer transition (except to refunded).
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// ChargeRequest is the canonical payment request handed to the gateway.
// Amount is in whole currency units; adapters own any minor-unit conversion.
type ChargeRequest struct {
	Amount         float64
	Currency       string
	Msisdn         string // customer phone, any reasonable national or E.164 form
	OrderID        string
	Description    string
	CallbackURL    string // optional; where the provider should send webhooks
	IdempotencyKey string // optional; generated when empty
}

// RefundRequest targets a previously succeeded transaction.
type RefundRequest struct {
	TransactionID string
	Amount        float64
	Reason        string
}

// Payment is the persisted record of a charge initiated through the gateway.
type Payment struct {
	ID             string // UUID
	Provider       Provider
	OrderID        string
	Msisdn         string
	Amount         float64
	Currency       string
	Status         PaymentStatus
	TransactionID  string // provider reference, set once the provider accepts the charge
	IdempotencyKey string
	Verification   string // "otp" | "redirect" | "qr" | ""
	FailureCode    string // canonical error code when status is failed
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ConfirmedAt    *time.Time // set when the provider reports succeeded
}
