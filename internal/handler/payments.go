package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/splitshare/splitshare-system/internal/middleware"
	"github.com/splitshare/splitshare-system/internal/model"
)

type createOrderRequest struct {
	Amount float64 `json:"amount"`
}

type paymentResponse struct {
	ID        int64   `json:"id"`
	OrderID   string  `json:"order_id"`
	Receipt   string  `json:"receipt"`
	Amount    float64 `json:"amount"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Receipt:   p.Receipt,
		Amount:    float64(p.AmountCents) / 100,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

// CreateOrder создаёт платёжное поручение на пополнение баланса.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	payment, err := h.service.CreateOrder(r.Context(), userID, req.Amount)
	if err != nil {
		h.respondError(w, err, "create order error", zap.Int64("userID", userID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(toPaymentResponse(payment)); err != nil {
		h.logger.Error("encode payment response", zap.Error(err))
	}
}

type confirmPaymentRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// ConfirmPayment проверяет подпись результата оплаты и зачисляет кредиты.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	payment, err := h.service.ConfirmPayment(r.Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		h.respondError(w, err, "confirm payment error",
			zap.Int64("userID", userID), zap.String("orderID", req.OrderID))
		return
	}

	h.respondJSON(w, toPaymentResponse(payment))
}

// Webhook обрабатывает уведомление платёжного шлюза. Подпись передаётся
// в заголовке X-Webhook-Signature и проверяется по телу запроса.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Webhook-Signature")
	if err := h.service.HandleWebhook(r.Context(), body, signature); err != nil {
		h.respondError(w, err, "webhook error")
		return
	}

	w.WriteHeader(http.StatusOK)
}
