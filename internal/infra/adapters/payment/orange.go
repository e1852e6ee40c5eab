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

var _ adapter.ProviderAdapter = (*OrangeAdapter)(nil)

// OrangeAdapter speaks the Orange Money web payment API. Confirmation
// happens on a provider-hosted page the customer is redirected to.
type OrangeAdapter struct {
	profile       profile
	http          httpClient
	merchantKey   string
	webhookSecret string
}

func NewOrangeAdapter(apiKey, merchantKey, secretKey string, opts Options) (*OrangeAdapter, error) {
	if apiKey == "" || merchantKey == "" || secretKey == "" {
		return nil, domain.NewPaymentError(domain.ErrCodeConfig, "orange_money: api key, merchant key and secret key are required")
	}
	base := opts.BaseURL
	if base == "" {
		base = "https://api.orange.com/orange-money-webpay/ci/v1"
	}
	minAmount := opts.MinAmount
	if minAmount <= 0 {
		minAmount = 100
	}
	return &OrangeAdapter{
		profile: profile{
			name:        model.ProviderOrange,
			displayName: "Orange Money",
			plans:       []numberingPlan{orangeCIPlan},
			minAmount:   minAmount,
			toWire:      wholeUnits,
			fromWire:    wholeUnitsBack,
			statusMap: map[string]model.PaymentStatus{
				"INITIATED":   model.PaymentStatusPending,
				"PENDING":     model.PaymentStatusPending,
				"SUCCESS":     model.PaymentStatusSucceeded,
				"SUCCESSFULL": model.PaymentStatusSucceeded, // sic, provider vocabulary
				"FAILED":      model.PaymentStatusFailed,
				"REFUSED":     model.PaymentStatusFailed,
				"EXPIRED":     model.PaymentStatusCancelled,
				"CANCELLED":   model.PaymentStatusCancelled,
				"REFUNDED":    model.PaymentStatusRefunded,
			},
			errorMap: map[string]domain.ErrorCode{
				"INSUFFICIENT_BALANCE": domain.ErrCodeInsufficientFunds,
				"UNKNOWN_SUBSCRIBER":   domain.ErrCodeInvalidPhone,
				"PAYMENT_REFUSED":      domain.ErrCodeDeclined,
				"LIMIT_EXCEEDED":       domain.ErrCodeDeclined,
				"SERVICE_UNAVAILABLE":  domain.ErrCodeNetwork,
			},
		},
		http: newHTTPClient(base, opts.Timeout, map[string]string{
			"Authorization": "Bearer " + apiKey,
			"X-Secret-Key":  secretKey,
		}),
		merchantKey:   merchantKey,
		webhookSecret: opts.WebhookSecret,
	}, nil
}

func (a *OrangeAdapter) Name() model.Provider { return model.ProviderOrange }

func (a *OrangeAdapter) ValidatePhone(msisdn string) adapter.PhoneValidation {
	return a.profile.validatePhone(msisdn)
}

func (a *OrangeAdapter) WithTransport(rt http.RoundTripper) { a.http.WithTransport(rt) }

type orangeChargeRequest struct {
	MerchantKey string `json:"merchant_key"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	Msisdn      string `json:"subscriber_msisdn"`
	Reference   string `json:"reference,omitempty"`
	NotifURL    string `json:"notif_url,omitempty"`
}

type orangeChargeResponse struct {
	Status     string `json:"status"`
	PayToken   string `json:"pay_token"`
	PaymentURL string `json:"payment_url"`
	Code       string `json:"error_code,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (a *OrangeAdapter) Charge(ctx context.Context, req model.ChargeRequest) (*adapter.ChargeResult, error) {
	pv, err := a.profile.validateCharge(req)
	if err != nil {
		return nil, err
	}

	body := orangeChargeRequest{
		MerchantKey: a.merchantKey,
		Currency:    req.Currency,
		OrderID:     req.OrderID,
		Amount:      a.profile.toWire(req.Amount),
		Msisdn:      pv.Formatted,
		Reference:   req.Description,
		NotifURL:    req.CallbackURL,
	}

	var out orangeChargeResponse
	code, err := a.http.postJSON(ctx, "/webpayment", body, &out)
	if err != nil {
		return nil, err
	}
	if out.Code != "" {
		return nil, a.profile.mapError(out.Code, out.Message)
	}
	if code >= http.StatusBadRequest || out.PayToken == "" {
		return nil, domain.NewPaymentError(domain.ErrCodeDeclined,
			fmt.Sprintf("orange_money rejected the charge (http %d)", code))
	}

	return &adapter.ChargeResult{
		TransactionID: out.PayToken,
		Status:        a.profile.mapStatus(out.Status),
		Verification: &adapter.VerificationData{
			Kind:         adapter.VerificationRedirect,
			Instructions: "Finalisez le paiement sur la page Orange Money.",
			PayURL:       out.PaymentURL,
		},
	}, nil
}

type orangeStatusRequest struct {
	MerchantKey string `json:"merchant_key"`
	PayToken    string `json:"pay_token"`
}

type orangeStatusResponse struct {
	Status   string `json:"status"`
	TxnID    string `json:"txnid"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Msisdn   string `json:"subscriber_msisdn"`
	Code     string `json:"error_code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Status is a POST on this API; Orange has no GET status endpoint.
func (a *OrangeAdapter) Status(ctx context.Context, transactionID string) (*adapter.StatusResult, error) {
	body := orangeStatusRequest{MerchantKey: a.merchantKey, PayToken: transactionID}
	var out orangeStatusResponse
	code, err := a.http.postJSON(ctx, "/transactionstatus", body, &out)
	if err != nil {
		return nil, err
	}
	if out.Code != "" {
		return nil, a.profile.mapError(out.Code, out.Message)
	}
	if code >= http.StatusBadRequest {
		return nil, domain.NewPaymentError(domain.ErrCodeStatusCheck,
			fmt.Sprintf("orange_money status check failed (http %d)", code))
	}
	return &adapter.StatusResult{
		TransactionID: transactionID,
		Status:        a.profile.mapStatus(out.Status),
		Amount:        a.profile.fromWire(out.Amount),
		Currency:      out.Currency,
		Msisdn:        out.Msisdn,
	}, nil
}

type orangeRefundRequest struct {
	MerchantKey string `json:"merchant_key"`
	PayToken    string `json:"pay_token"`
	Amount      int64  `json:"amount"`
	Reason      string `json:"reason,omitempty"`
}

type orangeRefundResponse struct {
	Status  string `json:"status"`
	Code    string `json:"error_code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (a *OrangeAdapter) Refund(ctx context.Context, req model.RefundRequest) (*adapter.RefundResult, error) {
	body := orangeRefundRequest{
		MerchantKey: a.merchantKey,
		PayToken:    req.TransactionID,
		Amount:      a.profile.toWire(req.Amount),
		Reason:      req.Reason,
	}
	var out orangeRefundResponse
	code, err := a.http.postJSON(ctx, "/refund", body, &out)
	if err != nil {
		return nil, err
	}
	if out.Code != "" {
		return nil, a.profile.mapError(out.Code, out.Message)
	}
	status := a.profile.mapStatus(out.Status)
	if code >= http.StatusBadRequest || status != model.PaymentStatusRefunded {
		return nil, domain.NewPaymentError(domain.ErrCodeRefund,
			fmt.Sprintf("orange_money refund not settled (status %q)", out.Status))
	}
	return &adapter.RefundResult{
		TransactionID: req.TransactionID,
		Status:        status,
		RefundedAt:    time.Now(),
	}, nil
}

type orangeWebhookPayload struct {
	PayToken  string    `json:"pay_token"`
	Status    string    `json:"status"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Msisdn    string    `json:"subscriber_msisdn"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *OrangeAdapter) HandleWebhook(_ context.Context, payload []byte, signature string) (*adapter.WebhookEvent, error) {
	if a.webhookSecret != "" && !verifySignature(a.webhookSecret, payload, signature) {
		return nil, domain.NewPaymentError(domain.ErrCodeWebhook, "invalid orange_money webhook signature")
	}
	var in orangeWebhookPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, domain.WrapPaymentError(domain.ErrCodeWebhook, "malformed orange_money webhook payload", err)
	}
	if in.PayToken == "" {
		return nil, domain.NewPaymentError(domain.ErrCodeWebhook, "orange_money webhook missing pay token")
	}
	occurred := in.Timestamp
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return &adapter.WebhookEvent{
		Provider:      model.ProviderOrange,
		TransactionID: in.PayToken,
		Status:        a.profile.mapStatus(in.Status),
		Amount:        a.profile.fromWire(in.Amount),
		Currency:      in.Currency,
		Msisdn:        in.Msisdn,
		OccurredAt:    occurred,
	}, nil
}
