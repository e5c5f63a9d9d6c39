package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/splitshare/splitshare-system/internal/middleware"
)

// DashboardStats возвращает агрегированные показатели сервиса.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		h.respondError(w, err, "dashboard stats error")
		return
	}

	h.respondJSON(w, stats)
}

// PendingGroups возвращает страницу групп, ожидающих модерации.
func (h *Handler) PendingGroups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	groups, total, err := h.service.ListPendingGroups(r.Context(), page, limit)
	if err != nil {
		h.respondError(w, err, "list pending groups error")
		return
	}

	if page < 1 {
		page = 1
	}
	h.respondJSON(w, groupListResponse{
		Groups: toGroupResponses(groups),
		Total:  total,
		Page:   page,
	})
}

// ApproveGroup одобряет группу, ожидающую модерации.
func (h *Handler) ApproveGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	group, err := h.service.ApproveGroup(r.Context(), groupID)
	if err != nil {
		h.respondError(w, err, "approve group error", zap.Int64("groupID", groupID))
		return
	}

	h.respondJSON(w, toGroupResponse(group))
}

type rejectGroupRequest struct {
	Reason string `json:"reason"`
}

// RejectGroup отклоняет группу с указанием причины.
func (h *Handler) RejectGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req rejectGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	group, err := h.service.RejectGroup(r.Context(), groupID, req.Reason)
	if err != nil {
		h.respondError(w, err, "reject group error", zap.Int64("groupID", groupID))
		return
	}

	h.respondJSON(w, toGroupResponse(group))
}

type withdrawalListResponse struct {
	Withdrawals []withdrawalResponse `json:"withdrawals"`
	Total       int64                `json:"total"`
	Page        int                  `json:"page"`
}

// ListWithdrawals возвращает страницу заявок на вывод, опционально по статусу.
func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	withdrawals, total, err := h.service.ListWithdrawals(r.Context(), q.Get("status"), page, limit)
	if err != nil {
		h.respondError(w, err, "list withdrawals error")
		return
	}

	resp := withdrawalListResponse{
		Withdrawals: make([]withdrawalResponse, 0, len(withdrawals)),
		Total:       total,
		Page:        page,
	}
	if resp.Page < 1 {
		resp.Page = 1
	}
	for i := range withdrawals {
		resp.Withdrawals = append(resp.Withdrawals, toWithdrawalResponse(&withdrawals[i]))
	}
	h.respondJSON(w, resp)
}

type processWithdrawalRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// ProcessWithdrawal одобряет или отклоняет заявку на вывод средств.
func (h *Handler) ProcessWithdrawal(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	withdrawalID, err := strconv.ParseInt(chi.URLParam(r, "withdrawalID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req processWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	withdrawal, err := h.service.ProcessWithdrawal(r.Context(), adminID, withdrawalID, req.Approve, req.Notes)
	if err != nil {
		h.respondError(w, err, "process withdrawal error",
			zap.Int64("withdrawalID", withdrawalID))
		return
	}

	h.respondJSON(w, toWithdrawalResponse(withdrawal))
}

type adjustBalanceRequest struct {
	Amount float64 `json:"amount"`
	Note   string  `json:"note"`
}

// AdjustBalance выполняет ручную корректировку баланса пользователя.
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req adjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	txID, err := h.service.AdjustBalance(r.Context(), userID, req.Amount, req.Note)
	if err != nil {
		h.respondError(w, err, "adjust balance error", zap.Int64("userID", userID))
		return
	}

	h.respondJSON(w, map[string]int64{"transaction_id": txID})
}

type transactionListResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
}

// ListTransactions возвращает страницу журнала операций всех пользователей.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	transactions, total, err := h.service.ListTransactions(r.Context(), page, limit)
	if err != nil {
		h.respondError(w, err, "list transactions error")
		return
	}

	if page < 1 {
		page = 1
	}
	h.respondJSON(w, transactionListResponse{
		Transactions: toTransactionResponses(transactions),
		Total:        total,
		Page:         page,
	})
}
