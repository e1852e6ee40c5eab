package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrOperationFailed   = errors.New("operation failed")
	ErrReadDatabaseRow   = errors.New("failed to read database row")
	ErrDuplicateRequest  = errors.New("duplicate payment request")
	ErrRequestInProgress = errors.New("payment request already in progress")
)

// ErrorCode is the canonical error vocabulary shared by every provider
// adapter and the gateway facade. Adapters map provider-native codes into
// this set; unrecognized business declines collapse to ErrCodeDeclined.
type ErrorCode string

const (
	ErrCodeInsufficientFunds   ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeInvalidPhone        ErrorCode = "INVALID_PHONE"
	ErrCodeDeclined            ErrorCode = "TRANSACTION_DECLINED"
	ErrCodeTimeout             ErrorCode = "TIMEOUT"
	ErrCodeNetwork             ErrorCode = "NETWORK_ERROR"
	ErrCodeUnsupportedProvider ErrorCode = "UNSUPPORTED_PROVIDER"
	ErrCodeValidation          ErrorCode = "VALIDATION_ERROR"
	ErrCodeDetection           ErrorCode = "DETECTION_ERROR"
	ErrCodeWebhook             ErrorCode = "WEBHOOK_ERROR"
	ErrCodeStatusCheck         ErrorCode = "STATUS_CHECK_ERROR"
	ErrCodeRefund              ErrorCode = "REFUND_ERROR"
	ErrCodeConfig              ErrorCode = "CONFIG_ERROR"
)

// PaymentError carries a canonical code alongside a human-readable message.
// Every failing gateway operation returns one of these; callers branch on
// Code rather than sniffing untyped fields.
type PaymentError struct {
	Code    ErrorCode
	Message string
	Err     error // wrapped cause, if any
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error { return e.Err }

func NewPaymentError(code ErrorCode, message string) *PaymentError {
	return &PaymentError{Code: code, Message: message}
}

func WrapPaymentError(code ErrorCode, message string, err error) *PaymentError {
	return &PaymentError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the canonical code from err, or ErrCodeDeclined when err
// is not a PaymentError.
func CodeOf(err error) ErrorCode {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrCodeDeclined
}

// Retryable reports whether err represents a transport-level failure that a
// bounded retry may resolve. Business declines are never retryable.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case ErrCodeTimeout, ErrCodeNetwork:
		return true
	}
	return false
}
