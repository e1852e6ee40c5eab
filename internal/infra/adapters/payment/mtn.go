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

var _ adapter.ProviderAdapter = (*MTNAdapter)(nil)

// Options tunes an adapter beyond its credentials. Zero values fall back to
// sane production defaults.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	MinAmount     float64
	WebhookSecret string
}

// MTNAdapter speaks the MTN MoMo collection API. Confirmation is an
// approval prompt on the customer's handset (OTP flow).
type MTNAdapter struct {
	profile       profile
	http          httpClient
	merchantCode  string
	webhookSecret string
}

func NewMTNAdapter(apiKey, merchantCode, secretKey string, opts Options) (*MTNAdapter, error) {
	if apiKey == "" || merchantCode == "" || secretKey == "" {
		return nil, domain.NewPaymentError(domain.ErrCodeConfig, "mtn_money: api key, merchant code and secret key are required")
	}
	base := opts.BaseURL
	if base == "" {
		base = "https://api.mtn.com/collection/v1"
	}
	minAmount := opts.MinAmount
	if minAmount <= 0 {
		minAmount = 100
	}
	return &MTNAdapter{
		profile: profile{
			name:        model.ProviderMTN,
			displayName: "MTN Mobile Money",
			plans:       []numberingPlan{mtnCIPlan},
			minAmount:   minAmount,
			toWire:      wholeUnits,
			fromWire:    wholeUnitsBack,
			statusMap: map[string]model.PaymentStatus{
				"PENDING":    model.PaymentStatusPending,
				"SUCCESS":    model.PaymentStatusSucceeded,
				"SUCCESSFUL": model.PaymentStatusSucceeded,
				"FAILED":     model.PaymentStatusFailed,
				"REJECTED":   model.PaymentStatusCancelled,
				"CANCELLED":  model.PaymentStatusCancelled,
				"REFUNDED":   model.PaymentStatusRefunded,
			},
			errorMap: map[string]domain.ErrorCode{
				"PAYER_NOT_FOUND":           domain.ErrCodeInvalidPhone,
				"NOT_ENOUGH_FUNDS":          domain.ErrCodeInsufficientFunds,
				"PAYEE_NOT_ALLOWED":         domain.ErrCodeDeclined,
				"PAYER_LIMIT_REACHED":       domain.ErrCodeDeclined,
				"EXPIRED":                   domain.ErrCodeDeclined,
				"INTERNAL_PROCESSING_ERROR": domain.ErrCodeNetwork,
			},
		},
		http: newHTTPClient(base, opts.Timeout, map[string]string{
			"Authorization":             "Bearer " + apiKey,
			"Ocp-Apim-Subscription-Key": secretKey,
			"X-Target-Environment":      "mtncotedivoire",
		}),
		merchantCode:  merchantCode,
		webhookSecret: opts.WebhookSecret,
	}, nil
}

func (a *MTNAdapter) Name() model.Provider { return model.ProviderMTN }

func (a *MTNAdapter) ValidatePhone(msisdn string) adapter.PhoneValidation {
	return a.profile.validatePhone(msisdn)
}

// Transport wiring for tests.
func (a *MTNAdapter) WithTransport(rt http.RoundTripper) { a.http.WithTransport(rt) }

type mtnChargeRequest struct {
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	ExternalID   string `json:"external_id"`
	MerchantCode string `json:"merchant_code"`
	Payer        struct {
		PartyIDType string `json:"party_id_type"`
		PartyID     string `json:"party_id"`
	} `json:"payer"`
	PayerMessage string `json:"payer_message,omitempty"`
	CallbackURL  string `json:"callback_url,omitempty"`
}

type mtnReason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type mtnChargeResponse struct {
	Status        string     `json:"status"`
	TransactionID string     `json:"transaction_id"`
	Reason        *mtnReason `json:"reason,omitempty"`
}

func (a *MTNAdapter) Charge(ctx context.Context, req model.ChargeRequest) (*adapter.ChargeResult, error) {
	pv, err := a.profile.validateCharge(req)
	if err != nil {
		return nil, err
	}

	body := mtnChargeRequest{
		Amount:       a.profile.toWire(req.Amount),
		Currency:     req.Currency,
		ExternalID:   req.OrderID,
		MerchantCode: a.merchantCode,
		PayerMessage: req.Description,
		CallbackURL:  req.CallbackURL,
	}
	body.Payer.PartyIDType = "MSISDN"
	body.Payer.PartyID = pv.Formatted

	var out mtnChargeResponse
	code, err := a.http.postJSON(ctx, "/requesttopay", body, &out)
	if err != nil {
		return nil, err
	}
	if out.Reason != nil {
		return nil, a.profile.mapError(out.Reason.Code, out.Reason.Message)
	}
	if code >= http.StatusBadRequest || out.TransactionID == "" {
		return nil, domain.NewPaymentError(domain.ErrCodeDeclined,
			fmt.Sprintf("mtn_money rejected the charge (http %d)", code))
	}

	return &adapter.ChargeResult{
		TransactionID: out.TransactionID,
		Status:        a.profile.mapStatus(out.Status),
		Verification: &adapter.VerificationData{
			Kind:         adapter.VerificationOTP,
			Instructions: "Confirmez le paiement en saisissant votre code secret MTN MoMo sur votre telephone.",
		},
	}, nil
}

type mtnStatusResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Payer         struct {
		PartyID string `json:"party_id"`
	} `json:"payer"`
	Reason *mtnReason `json:"reason,omitempty"`
}

func (a *MTNAdapter) Status(ctx context.Context, transactionID string) (*adapter.StatusResult, error) {
	var out mtnStatusResponse
	code, err := a.http.getJSON(ctx, "/requesttopay/"+transactionID, &out)
	if err != nil {
		return nil, err
	}
	if code == http.StatusNotFound {
		return nil, domain.NewPaymentError(domain.ErrCodeStatusCheck, "transaction not found at provider")
	}
	if code >= http.StatusBadRequest {
		return nil, domain.NewPaymentError(domain.ErrCodeStatusCheck,
			fmt.Sprintf("mtn_money status check failed (http %d)", code))
	}
	return &adapter.StatusResult{
		TransactionID: transactionID,
		Status:        a.profile.mapStatus(out.Status),
		Amount:        a.profile.fromWire(out.Amount),
		Currency:      out.Currency,
		Msisdn:        out.Payer.PartyID,
	}, nil
}

type mtnRefundRequest struct {
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason,omitempty"`
}

type mtnRefundResponse struct {
	Status   string     `json:"status"`
	RefundID string     `json:"refund_id"`
	Reason   *mtnReason `json:"reason,omitempty"`
}

func (a *MTNAdapter) Refund(ctx context.Context, req model.RefundRequest) (*adapter.RefundResult, error) {
	body := mtnRefundRequest{
		TransactionID: req.TransactionID,
		Amount:        a.profile.toWire(req.Amount),
		Reason:        req.Reason,
	}
	var out mtnRefundResponse
	code, err := a.http.postJSON(ctx, "/refund", body, &out)
	if err != nil {
		return nil, err
	}
	if out.Reason != nil {
		return nil, a.profile.mapError(out.Reason.Code, out.Reason.Message)
	}
	status := a.profile.mapStatus(out.Status)
	if code >= http.StatusBadRequest || status != model.PaymentStatusRefunded {
		return nil, domain.NewPaymentError(domain.ErrCodeRefund,
			fmt.Sprintf("mtn_money refund not settled (status %q)", out.Status))
	}
	return &adapter.RefundResult{
		TransactionID: req.TransactionID,
		Status:        status,
		RefundedAt:    time.Now(),
	}, nil
}

type mtnWebhookPayload struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Payer         struct {
		PartyID string `json:"party_id"`
	} `json:"payer"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *MTNAdapter) HandleWebhook(_ context.Context, payload []byte, signature string) (*adapter.WebhookEvent, error) {
	if a.webhookSecret != "" && !verifySignature(a.webhookSecret, payload, signature) {
		return nil, domain.NewPaymentError(domain.ErrCodeWebhook, "invalid mtn_money webhook signature")
	}
	var in mtnWebhookPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, domain.WrapPaymentError(domain.ErrCodeWebhook, "malformed mtn_money webhook payload", err)
	}
	if in.TransactionID == "" {
		return nil, domain.NewPaymentError(domain.ErrCodeWebhook, "mtn_money webhook missing transaction id")
	}
	occurred := in.Timestamp
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return &adapter.WebhookEvent{
		Provider:      model.ProviderMTN,
		TransactionID: in.TransactionID,
		Status:        a.profile.mapStatus(in.Status),
		Amount:        a.profile.fromWire(in.Amount),
		Currency:      in.Currency,
		Msisdn:        in.Payer.PartyID,
		OccurredAt:    occurred,
	}, nil
}
