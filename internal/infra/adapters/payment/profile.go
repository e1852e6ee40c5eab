package payment

import (
	"fmt"
	"math"
	"strings"

	"momo-gateway/internal/domain"
	"momo-gateway/internal/domain/model"
	"momo-gateway/internal/domain/ports/adapter"
)

// profile bundles the per-provider strategy data: numbering plans, status
// and error vocabularies, minimum amount, and the wire unit conversion.
// Adding a provider is a matter of filling one of these in, not writing a
// new adapter shape.
type profile struct {
	name        model.Provider
	displayName string
	plans       []numberingPlan
	statusMap   map[string]model.PaymentStatus
	errorMap    map[string]domain.ErrorCode
	minAmount   float64

	// toWire converts a whole-unit amount to what the provider API expects.
	// Everyone rounds to the nearest whole unit; Wave additionally speaks
	// minor units. Provider-specific, deliberately not generalized.
	toWire   func(amount float64) int64
	fromWire func(wire int64) float64
}

// wholeUnits is the conversion used by MTN and Orange.
func wholeUnits(amount float64) int64 { return int64(math.Round(amount)) }

func wholeUnitsBack(wire int64) float64 { return float64(wire) }

// minorUnits is Wave's conversion: round, then x100.
func minorUnits(amount float64) int64 { return int64(math.Round(amount)) * 100 }

func minorUnitsBack(wire int64) float64 { return float64(wire) / 100 }

// mapStatus folds a provider-native status string onto the canonical enum.
// Unmapped values default to pending: an unknown provider state must never
// be reported as settled or failed.
func (p *profile) mapStatus(native string) model.PaymentStatus {
	if s, ok := p.statusMap[strings.ToUpper(strings.TrimSpace(native))]; ok {
		return s
	}
	return model.PaymentStatusPending
}

// mapError translates a provider-native error code; unrecognized codes
// collapse to a generic decline.
func (p *profile) mapError(nativeCode, nativeMessage string) *domain.PaymentError {
	code, ok := p.errorMap[strings.ToUpper(strings.TrimSpace(nativeCode))]
	if !ok {
		code = domain.ErrCodeDeclined
	}
	msg := nativeMessage
	if msg == "" {
		msg = "transaction declined by provider"
	}
	return domain.NewPaymentError(code, msg)
}

// validatePhone runs the plans in order and reports the first match.
func (p *profile) validatePhone(msisdn string) adapter.PhoneValidation {
	for _, plan := range p.plans {
		if formatted, ok := plan.Match(msisdn); ok {
			return adapter.PhoneValidation{
				Valid:     true,
				Formatted: formatted,
				Network:   plan.network,
				Country:   plan.country,
			}
		}
	}
	return adapter.PhoneValidation{}
}

// validateCharge is the local gate in front of every Charge call. A failure
// here guarantees no HTTP request was issued.
func (p *profile) validateCharge(req model.ChargeRequest) (adapter.PhoneValidation, error) {
	if req.Amount < p.minAmount {
		return adapter.PhoneValidation{}, domain.NewPaymentError(
			domain.ErrCodeValidation,
			fmt.Sprintf("amount %.0f below provider minimum %.0f", req.Amount, p.minAmount),
		)
	}
	pv := p.validatePhone(req.Msisdn)
	if !pv.Valid {
		return adapter.PhoneValidation{}, domain.NewPaymentError(
			domain.ErrCodeInvalidPhone,
			fmt.Sprintf("msisdn %q is not a valid %s number", req.Msisdn, p.displayName),
		)
	}
	return pv, nil
}
