package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"momo-gateway/internal/domain"
	"momo-gateway/internal/domain/model"
	"momo-gateway/internal/domain/ports/adapter"
)

var _ adapter.ProviderAdapter = (*WaveAdapter)(nil)

// WaveAdapter speaks the Wave checkout sessions API. Wave has no numbering
// plan of its own in Cote d'Ivoire: it piggybacks on MTN and Orange numbers
// there, and owns Senegalese prefixes. Its API is the only one operating in
// minor currency units.
type WaveAdapter struct {
	profile       profile
	http          httpClient
	merchantCode  string
	webhookSecret string
}

func NewWaveAdapter(apiKey, merchantCode, secretKey string, opts Options) (*WaveAdapter, error) {
	if apiKey == "" || merchantCode == "" || secretKey == "" {
		return nil, domain.NewPaymentError(domain.ErrCodeConfig, "wave: api key, merchant code and secret key are required")
	}
	base := opts.BaseURL
	if base == "" {
		base = "https://api.wave.com/v1"
	}
	minAmount := opts.MinAmount
	if minAmount <= 0 {
		minAmount = 100
	}
	return &WaveAdapter{
		profile: profile{
			name:        model.ProviderWave,
			displayName: "Wave",
			plans:       []numberingPlan{waveSNPlan, mtnCIPlan, orangeCIPlan},
			minAmount:   minAmount,
			toWire:      minorUnits,
			fromWire:    minorUnitsBack,
			statusMap: map[string]model.PaymentStatus{
				"PROCESSING": model.PaymentStatusPending,
				"OPEN":       model.PaymentStatusPending,
				"SUCCEEDED":  model.PaymentStatusSucceeded,
				"COMPLETE":   model.PaymentStatusSucceeded,
				"FAILED":     model.PaymentStatusFailed,
				"CANCELLED":  model.PaymentStatusCancelled,
				"EXPIRED":    model.PaymentStatusCancelled,
				"REFUNDED":   model.PaymentStatusRefunded,
			},
			errorMap: map[string]domain.ErrorCode{
				"INSUFFICIENT-FUNDS":    domain.ErrCodeInsufficientFunds,
				"PAYER-MOBILE-MISMATCH": domain.ErrCodeInvalidPhone,
				"BLOCKED-ACCOUNT":       domain.ErrCodeDeclined,
				"CHECKOUT-EXPIRED":      domain.ErrCodeDeclined,
				"INTERNAL-SERVER-ERROR": domain.ErrCodeNetwork,
			},
		},
		http: newHTTPClient(base, opts.Timeout, map[string]string{
			"Authorization": "Bearer " + apiKey,
		}),
		merchantCode:  merchantCode,
		webhookSecret: opts.WebhookSecret,
	}, nil
}

func (a *WaveAdapter) Name() model.Provider { return model.ProviderWave }

func (a *WaveAdapter) ValidatePhone(msisdn string) adapter.PhoneValidation {
	return a.profile.validatePhone(msisdn)
}

func (a *WaveAdapter) WithTransport(rt http.RoundTripper) { a.http.WithTransport(rt) }

type waveChargeRequest struct {
	Amount              int64  `json:"amount"` // minor units
	Currency            string `json:"currency"`
	ClientReference     string `json:"client_reference"`
	RestrictPayerMobile string `json:"restrict_payer_mobile,omitempty"`
	AggregatedMerchant  string `json:"aggregated_merchant_id,omitempty"`
	SuccessURL          string `json:"success_url,omitempty"`
	ErrorURL            string `json:"error_url,omitempty"`
}

type waveError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type waveChargeResponse struct {
	ID             string     `json:"id"`
	CheckoutStatus string     `json:"checkout_status"`
	PaymentStatus  string     `json:"payment_status"`
	WaveLaunchURL  string     `json:"wave_launch_url"`
	LastError      *waveError `json:"last_payment_error,omitempty"`
}

func (a *WaveAdapter) Charge(ctx context.Context, req model.ChargeRequest) (*adapter.ChargeResult, error) {
	pv, err := a.profile.validateCharge(req)
	if err != nil {
		return nil, err
	}

	body := waveChargeRequest{
		Amount:              a.profile.toWire(req.Amount),
		Currency:            req.Currency,
		ClientReference:     req.OrderID,
		RestrictPayerMobile: pv.Formatted,
		AggregatedMerchant:  a.merchantCode,
		SuccessURL:          req.CallbackURL,
		ErrorURL:            req.CallbackURL,
	}

	var out waveChargeResponse
	code, err := a.http.postJSON(ctx, "/checkout/sessions", body, &out)
	if err != nil {
		return nil, err
	}
	if out.LastError != nil {
		return nil, a.profile.mapError(out.LastError.Code, out.LastError.Message)
	}
	if code >= http.StatusBadRequest || out.ID == "" {
		return nil, domain.NewPaymentError(domain.ErrCodeDeclined,
			fmt.Sprintf("wave rejected the checkout session (http %d)", code))
	}

	return &adapter.ChargeResult{
		TransactionID: out.ID,
		Status:        a.profile.mapStatus(out.PaymentStatus),
		Verification: &adapter.VerificationData{
			Kind:         adapter.VerificationQR,
			Instructions: "Scannez le code QR ou ouvrez le lien dans l'application Wave.",
			PayURL:       out.WaveLaunchURL,
			QRCode:       out.WaveLaunchURL,
		},
	}, nil
}

type waveStatusResponse struct {
	ID             string     `json:"id"`
	CheckoutStatus string     `json:"checkout_status"`
	PaymentStatus  string     `json:"payment_status"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	PayerMobile    string     `json:"restrict_payer_mobile"`
	LastError      *waveError `json:"last_payment_error,omitempty"`
}

func (a *WaveAdapter) Status(ctx context.Context, transactionID string) (*adapter.StatusResult, error) {
	var out waveStatusResponse
	code, err := a.http.getJSON(ctx, "/checkout/sessions/"+transactionID, &out)
	if err != nil {
		return nil, err
	}
	if code == http.StatusNotFound {
		return nil, domain.NewPaymentError(domain.ErrCodeStatusCheck, "checkout session not found at provider")
	}
	if code >= http.StatusBadRequest {
		return nil, domain.NewPaymentError(domain.ErrCodeStatusCheck,
			fmt.Sprintf("wave status check failed (http %d)", code))
	}
	return &adapter.StatusResult{
		TransactionID: transactionID,
		Status:        a.profile.mapStatus(out.PaymentStatus),
		Amount:        a.profile.fromWire(out.Amount),
		Currency:      out.Currency,
		Msisdn:        out.PayerMobile,
	}, nil
}

type waveRefundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type waveRefundResponse struct {
	Status    string     `json:"status"`
	LastError *waveError `json:"last_payment_error,omitempty"`
}

func (a *WaveAdapter) Refund(ctx context.Context, req model.RefundRequest) (*adapter.RefundResult, error) {
	body := waveRefundRequest{
		Amount: a.profile.toWire(req.Amount),
		Reason: req.Reason,
	}
	var out waveRefundResponse
	code, err := a.http.postJSON(ctx, "/checkout/sessions/"+req.TransactionID+"/refund", body, &out)
	if err != nil {
		return nil, err
	}
	if out.LastError != nil {
		return nil, a.profile.mapError(out.LastError.Code, out.LastError.Message)
	}
	status := a.profile.mapStatus(out.Status)
	if code >= http.StatusBadRequest || status != model.PaymentStatusRefunded {
		return nil, domain.NewPaymentError(domain.ErrCodeRefund,
			fmt.Sprintf("wave refund not settled (status %q)", out.Status))
	}
	return &adapter.RefundResult{
		TransactionID: req.TransactionID,
		Status:        status,
		RefundedAt:    time.Now(),
	}, nil
}

type waveWebhookPayload struct {
	ID            string    `json:"id"`
	PaymentStatus string    `json:"payment_status"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	PayerMobile   string    `json:"restrict_payer_mobile"`
	WhenCompleted time.Time `json:"when_completed"`
}

func (a *WaveAdapter) HandleWebhook(_ context.Context, payload []byte, signature string) (*adapter.WebhookEvent, error) {
	if a.webhookSecret != "" && !verifySignature(a.webhookSecret, payload, signature) {
		return nil, domain.NewPaymentError(domain.ErrCodeWebhook, "invalid wave webhook signature")
	}
	var in waveWebhookPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, domain.WrapPaymentError(domain.ErrCodeWebhook, "malformed wave webhook payload", err)
	}
	if in.ID == "" {
		return nil, domain.NewPaymentError(domain.ErrCodeWebhook, "wave webhook missing session id")
	}
	occurred := in.WhenCompleted
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return &adapter.WebhookEvent{
		Provider:      model.ProviderWave,
		TransactionID: in.ID,
		Status:        a.profile.mapStatus(in.PaymentStatus),
		Amount:        a.profile.fromWire(in.Amount),
		Currency:      in.Currency,
		Msisdn:        in.PayerMobile,
		OccurredAt:    occurred,
	}, nil
}
