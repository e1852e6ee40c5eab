package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"momo-gateway/internal/domain"
	"momo-gateway/internal/domain/model"
)

type chargeRequest struct {
	Provider       string  `json:"provider"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Msisdn         string  `json:"msisdn"`
	OrderID        string  `json:"order_id"`
	Description    string  `json:"description,omitempty"`
	CallbackURL    string  `json:"callback_url,omitempty"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

func (s *Server) handleCharge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Provider == "" || req.Amount <= 0 || req.Msisdn == "" || req.OrderID == "" || req.Currency == "" {
		http.Error(w, "provider, amount, currency, msisdn and order_id are required", http.StatusBadRequest)
		return
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	receipt, err := s.gateway.Charge(r.Context(), model.Provider(req.Provider), model.ChargeRequest{
		Amount:         req.Amount,
		Currency:       req.Currency,
		Msisdn:         req.Msisdn,
		OrderID:        req.OrderID,
		Description:    req.Description,
		CallbackURL:    req.CallbackURL,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	provider := model.Provider(chi.URLParam(r, "provider"))
	txID := chi.URLParam(r, "transactionID")

	receipt, err := s.gateway.Status(r.Context(), provider, txID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

type refundRequest struct {
	Provider      string  `json:"provider"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Reason        string  `json:"reason,omitempty"`
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Provider == "" || req.TransactionID == "" || req.Amount <= 0 {
		http.Error(w, "provider, transaction_id and amount are required", http.StatusBadRequest)
		return
	}

	receipt, err := s.gateway.Refund(r.Context(), model.Provider(req.Provider), model.RefundRequest{
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Reason:        req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	msisdn := r.URL.Query().Get("msisdn")
	if msisdn == "" {
		http.Error(w, "msisdn query parameter is required", http.StatusBadRequest)
		return
	}
	detection, err := s.gateway.Detect(r.Context(), msisdn)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detection)
}

// handleQuote answers "what would this charge cost" without charging.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	provider := model.Provider(chi.URLParam(r, "provider"))
	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil || amount <= 0 {
		http.Error(w, "a positive amount query parameter is required", http.StatusBadRequest)
		return
	}

	limits := s.gateway.CheckLimits(provider, amount)
	resp := struct {
		Provider model.Provider `json:"provider"`
		Amount   float64        `json:"amount"`
		Fees     float64        `json:"fees"`
		Valid    bool           `json:"valid"`
		Issues   []string       `json:"issues,omitempty"`
	}{
		Provider: provider,
		Amount:   amount,
		Fees:     s.gateway.Fees(provider, amount),
		Valid:    limits.Valid,
		Issues:   limits.Issues,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	provider := model.Provider(chi.URLParam(r, "provider"))
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "day"
	}

	sum, err := s.gateway.Volume(r.Context(), provider, period)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := struct {
		Provider model.Provider `json:"provider"`
		Period   string         `json:"period"`
		Volume   float64        `json:"volume"`
	}{Provider: provider, Period: period, Volume: sum}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProviderStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gateway.ProviderStats())
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	provider := model.Provider(chi.URLParam(r, "provider"))
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	signature := r.Header.Get("X-Signature")

	event, err := s.gateway.HandleWebhook(r.Context(), provider, payload, signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	var pe *domain.PaymentError
	if !errors.As(err, &pe) {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, statusFor(pe.Code), errorResponse{Error: string(pe.Code), Message: pe.Message})
}

func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.ErrCodeUnsupportedProvider, domain.ErrCodeValidation,
		domain.ErrCodeInvalidPhone, domain.ErrCodeDetection, domain.ErrCodeWebhook:
		return http.StatusBadRequest
	case domain.ErrCodeInsufficientFunds, domain.ErrCodeDeclined, domain.ErrCodeRefund:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrCodeNetwork, domain.ErrCodeStatusCheck:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
