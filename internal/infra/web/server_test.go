package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"momo-gateway/internal/domain"
	"momo-gateway/internal/domain/model"
	"momo-gateway/internal/domain/ports/adapter"
	"momo-gateway/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// mockGateway scripts the facade behind the HTTP layer.
type mockGateway struct {
	chargeFunc  func(ctx context.Context, provider model.Provider, req model.ChargeRequest) (*usecase.ChargeReceipt, error)
	statusFunc  func(ctx context.Context, provider model.Provider, transactionID string) (*usecase.StatusReceipt, error)
	refundFunc  func(ctx context.Context, provider model.Provider, req model.RefundRequest) (*usecase.RefundReceipt, error)
	detectFunc  func(ctx context.Context, msisdn string) (*usecase.Detection, error)
	webhookFunc func(ctx context.Context, provider model.Provider, payload []byte, signature string) (*adapter.WebhookEvent, error)
}

func (m *mockGateway) Charge(ctx context.Context, provider model.Provider, req model.ChargeRequest) (*usecase.ChargeReceipt, error) {
	if m.chargeFunc != nil {
		return m.chargeFunc(ctx, provider, req)
	}
	return &usecase.ChargeReceipt{Provider: provider, TransactionID: "TX-1", Status: model.PaymentStatusPending}, nil
}

func (m *mockGateway) Status(ctx context.Context, provider model.Provider, transactionID string) (*usecase.StatusReceipt, error) {
	if m.statusFunc != nil {
		return m.statusFunc(ctx, provider, transactionID)
	}
	return &usecase.StatusReceipt{Provider: provider, TransactionID: transactionID, Status: model.PaymentStatusSucceeded}, nil
}

func (m *mockGateway) Refund(ctx context.Context, provider model.Provider, req model.RefundRequest) (*usecase.RefundReceipt, error) {
	if m.refundFunc != nil {
		return m.refundFunc(ctx, provider, req)
	}
	return &usecase.RefundReceipt{Provider: provider, TransactionID: req.TransactionID, Status: model.PaymentStatusRefunded}, nil
}

func (m *mockGateway) Detect(ctx context.Context, msisdn string) (*usecase.Detection, error) {
	if m.detectFunc != nil {
		return m.detectFunc(ctx, msisdn)
	}
	return &usecase.Detection{Msisdn: msisdn, Detected: model.ProviderMTN}, nil
}

func (m *mockGateway) Fees(model.Provider, float64) float64 { return 150 }

func (m *mockGateway) CheckLimits(model.Provider, float64) usecase.LimitCheck {
	return usecase.LimitCheck{Valid: true}
}

func (m *mockGateway) Volume(context.Context, model.Provider, string) (float64, error) {
	return 25000, nil
}

func (m *mockGateway) ProviderStats() []usecase.ProviderInfo {
	return []usecase.ProviderInfo{{Provider: model.ProviderMTN, Config: model.ProviderConfig{DisplayName: "MTN Mobile Money"}}}
}

func (m *mockGateway) HandleWebhook(ctx context.Context, provider model.Provider, payload []byte, signature string) (*adapter.WebhookEvent, error) {
	if m.webhookFunc != nil {
		return m.webhookFunc(ctx, provider, payload, signature)
	}
	return &adapter.WebhookEvent{Provider: provider, TransactionID: "TX-1", Status: model.PaymentStatusSucceeded}, nil
}

const testAPIKey = "test-key"

func newTestServer(gw usecase.GatewayUseCase) http.Handler {
	return NewServer(gw, testAPIKey, newTestLogger()).Router()
}

func doRequest(t *testing.T, h http.Handler, method, path, body, auth string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChargeEndpoint(t *testing.T) {
	validBody := `{"provider":"mtn_money","amount":10000,"currency":"XOF","msisdn":"+2250748123456","order_id":"ORD-1"}`

	t.Run("should accept a valid charge with 201", func(t *testing.T) {
		h := newTestServer(&mockGateway{})
		rec := doRequest(t, h, http.MethodPost, "/api/v1/payments", validBody, "Bearer "+testAPIKey)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var receipt usecase.ChargeReceipt
		if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if receipt.TransactionID != "TX-1" {
			t.Errorf("unexpected receipt %+v", receipt)
		}
	})

	t.Run("should forward the Idempotency-Key header", func(t *testing.T) {
		var got string
		gw := &mockGateway{chargeFunc: func(_ context.Context, p model.Provider, req model.ChargeRequest) (*usecase.ChargeReceipt, error) {
			got = req.IdempotencyKey
			return &usecase.ChargeReceipt{Provider: p, TransactionID: "TX-1"}, nil
		}}
		h := newTestServer(gw)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(validBody))
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
		req.Header.Set("Idempotency-Key", "header-key")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if got != "header-key" {
			t.Errorf("expected the header key forwarded, got %q", got)
		}
	})

	t.Run("should reject a request without a token", func(t *testing.T) {
		h := newTestServer(&mockGateway{})
		rec := doRequest(t, h, http.MethodPost, "/api/v1/payments", validBody, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("should reject a wrong token", func(t *testing.T) {
		h := newTestServer(&mockGateway{})
		rec := doRequest(t, h, http.MethodPost, "/api/v1/payments", validBody, "Bearer wrong")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("should reject an incomplete body", func(t *testing.T) {
		h := newTestServer(&mockGateway{})
		rec := doRequest(t, h, http.MethodPost, "/api/v1/payments", `{"provider":"mtn_money"}`, "Bearer "+testAPIKey)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("should map a business decline to 422", func(t *testing.T) {
		gw := &mockGateway{chargeFunc: func(context.Context, model.Provider, model.ChargeRequest) (*usecase.ChargeReceipt, error) {
			return nil, domain.NewPaymentError(domain.ErrCodeInsufficientFunds, "solde insuffisant")
		}}
		h := newTestServer(gw)
		rec := doRequest(t, h, http.MethodPost, "/api/v1/payments", validBody, "Bearer "+testAPIKey)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		var resp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid error body: %v", err)
		}
		if resp.Error != "INSUFFICIENT_FUNDS" {
			t.Errorf("unexpected error code %q", resp.Error)
		}
	})

	t.Run("should map a timeout to 504", func(t *testing.T) {
		gw := &mockGateway{chargeFunc: func(context.Context, model.Provider, model.ChargeRequest) (*usecase.ChargeReceipt, error) {
			return nil, domain.NewPaymentError(domain.ErrCodeTimeout, "provider request timed out")
		}}
		h := newTestServer(gw)
		rec := doRequest(t, h, http.MethodPost, "/api/v1/payments", validBody, "Bearer "+testAPIKey)
		if rec.Code != http.StatusGatewayTimeout {
			t.Fatalf("expected 504, got %d", rec.Code)
		}
	})
}

func TestStatusEndpoint(t *testing.T) {
	t.Run("should return the mapped status without auth", func(t *testing.T) {
		h := newTestServer(&mockGateway{})
		rec := doRequest(t, h, http.MethodGet, "/api/v1/payments/mtn_money/TX-1/status", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var receipt usecase.StatusReceipt
		if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
			t.Fatalf("invalid body: %v", err)
		}
		if receipt.Status != model.PaymentStatusSucceeded {
			t.Errorf("unexpected status %q", receipt.Status)
		}
	})

	t.Run("should map a network failure to 502", func(t *testing.T) {
		gw := &mockGateway{statusFunc: func(context.Context, model.Provider, string) (*usecase.StatusReceipt, error) {
			return nil, domain.NewPaymentError(domain.ErrCodeNetwork, "connection refused")
		}}
		h := newTestServer(gw)
		rec := doRequest(t, h, http.MethodGet, "/api/v1/payments/mtn_money/TX-1/status", "", "")
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
	})
}

func TestRefundEndpoint(t *testing.T) {
	body := `{"provider":"mtn_money","transaction_id":"TX-1","amount":10000}`

	t.Run("should settle a refund behind auth", func(t *testing.T) {
		h := newTestServer(&mockGateway{})
		rec := doRequest(t, h, http.MethodPost, "/api/v1/refunds", body, "Bearer "+testAPIKey)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("should require auth", func(t *testing.T) {
		h := newTestServer(&mockGateway{})
		rec := doRequest(t, h, http.MethodPost, "/api/v1/refunds", body, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestDetectEndpoint(t *testing.T) {
	t.Run("should detect from the msisdn query parameter", func(t *testing.T) {
		h := newTestServer(&mockGateway{})
		rec := doRequest(t, h, http.MethodGet, "/api/v1/providers/detect?msisdn=%2B2250748123456", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var det usecase.Detection
		if err := json.Unmarshal(rec.Body.Bytes(), &det); err != nil {
			t.Fatalf("invalid body: %v", err)
		}
		if det.Detected != model.ProviderMTN {
			t.Errorf("unexpected detection %+v", det)
		}
	})

	t.Run("should reject a missing msisdn", func(t *testing.T) {
		h := newTestServer(&mockGateway{})
		rec := doRequest(t, h, http.MethodGet, "/api/v1/providers/detect", "", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("should map an unrecognized number to 400", func(t *testing.T) {
		gw := &mockGateway{detectFunc: func(context.Context, string) (*usecase.Detection, error) {
			return nil, domain.NewPaymentError(domain.ErrCodeDetection, `no provider recognizes "+33612345678"`)
		}}
		h := newTestServer(gw)
		rec := doRequest(t, h, http.MethodGet, "/api/v1/providers/detect?msisdn=%2B33612345678", "", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestQuoteEndpoint(t *testing.T) {
	t.Run("should return fees and limit verdict", func(t *testing.T) {
		h := newTestServer(&mockGateway{})
		rec := doRequest(t, h, http.MethodGet, "/api/v1/providers/orange_money/quote?amount=10000", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp struct {
			Fees  float64 `json:"fees"`
			Valid bool    `json:"valid"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid body: %v", err)
		}
		if resp.Fees != 150 || !resp.Valid {
			t.Errorf("unexpected quote %+v", resp)
		}
	})

	t.Run("should reject a missing or non-positive amount", func(t *testing.T) {
		h := newTestServer(&mockGateway{})
		for _, path := range []string{
			"/api/v1/providers/orange_money/quote",
			"/api/v1/providers/orange_money/quote?amount=-5",
		} {
			rec := doRequest(t, h, http.MethodGet, path, "", "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", path, rec.Code)
			}
		}
	})
}

func TestWebhookEndpoint(t *testing.T) {
	t.Run("should pass the raw payload and signature through", func(t *testing.T) {
		var gotPayload []byte
		var gotSig string
		gw := &mockGateway{webhookFunc: func(_ context.Context, p model.Provider, payload []byte, sig string) (*adapter.WebhookEvent, error) {
			gotPayload = payload
			gotSig = sig
			return &adapter.WebhookEvent{Provider: p, TransactionID: "TX-1", Status: model.PaymentStatusSucceeded}, nil
		}}
		h := newTestServer(gw)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mtn_money", strings.NewReader(`{"transaction_id":"TX-1"}`))
		req.Header.Set("X-Signature", "abc123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if string(gotPayload) != `{"transaction_id":"TX-1"}` || gotSig != "abc123" {
			t.Errorf("payload or signature not forwarded verbatim: %q %q", gotPayload, gotSig)
		}
	})

	t.Run("should map a signature failure to 400", func(t *testing.T) {
		gw := &mockGateway{webhookFunc: func(context.Context, model.Provider, []byte, string) (*adapter.WebhookEvent, error) {
			return nil, domain.NewPaymentError(domain.ErrCodeWebhook, "invalid webhook signature")
		}}
		h := newTestServer(gw)
		rec := doRequest(t, h, http.MethodPost, "/api/v1/webhooks/mtn_money", `{}`, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestVolumeEndpoint(t *testing.T) {
	h := newTestServer(&mockGateway{})
	rec := doRequest(t, h, http.MethodGet, "/api/v1/providers/mtn_money/volume?period=day", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Period string  `json:"period"`
		Volume float64 `json:"volume"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if resp.Period != "day" || resp.Volume != 25000 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestProvidersEndpoint(t *testing.T) {
	h := newTestServer(&mockGateway{})
	rec := doRequest(t, h, http.MethodGet, "/api/v1/providers", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var infos []usecase.ProviderInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &infos); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(infos) != 1 || infos[0].Config.DisplayName != "MTN Mobile Money" {
		t.Errorf("unexpected providers %+v", infos)
	}
}

func TestHealthz(t *testing.T) {
	h := newTestServer(&mockGateway{})
	rec := doRequest(t, h, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}
