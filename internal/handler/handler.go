// Package handler содержит HTTP-обработчики API сервиса совместных подписок.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/splitshare/splitshare-system/internal/middleware"
	"github.com/splitshare/splitshare-system/internal/model"
	"github.com/splitshare/splitshare-system/internal/repository"
	"github.com/splitshare/splitshare-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (int64, model.Role, error)
	GetBalance(ctx context.Context, userID int64) (*model.Balance, error)
	GetTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error)
	RequestWithdrawal(ctx context.Context, userID int64, amount float64, destination string) (*model.Withdrawal, error)
	GetWithdrawalsByUser(ctx context.Context, userID int64) ([]model.Withdrawal, error)

	CreateGroup(ctx context.Context, ownerID int64, input service.CreateGroupInput) (*model.Group, error)
	GetGroup(ctx context.Context, groupID int64) (*model.Group, error)
	ListGroups(ctx context.Context, search, category string, page, limit int) ([]model.Group, int64, error)
	ListGroupsByOwner(ctx context.Context, ownerID int64) ([]model.Group, error)
	UpdateGroup(ctx context.Context, groupID, requesterID int64, input service.UpdateGroupInput) (*model.Group, error)
	DeleteGroup(ctx context.Context, groupID, requesterID int64) error
	GroupCredentials(ctx context.Context, groupID, userID int64) (string, error)
	JoinGroup(ctx context.Context, userID, groupID int64, membershipType string, days int) (*model.Membership, error)
	LeaveGroup(ctx context.Context, userID, membershipID int64) (float64, error)
	ListMembershipsByUser(ctx context.Context, userID int64) ([]model.Membership, error)

	CreateOrder(ctx context.Context, userID int64, amount float64) (*model.Payment, error)
	ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) (*model.Payment, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error

	AdjustBalance(ctx context.Context, userID int64, amount float64, note string) (int64, error)
	ApproveGroup(ctx context.Context, groupID int64) (*model.Group, error)
	RejectGroup(ctx context.Context, groupID int64, reason string) (*model.Group, error)
	ProcessWithdrawal(ctx context.Context, adminID, withdrawalID int64, approve bool, notes string) (*model.Withdrawal, error)
	DashboardStats(ctx context.Context) (*model.DashboardStats, error)
	ListPendingGroups(ctx context.Context, page, limit int) ([]model.Group, int64, error)
	ListWithdrawals(ctx context.Context, status string, page, limit int) ([]model.Withdrawal, int64, error)
	ListTransactions(ctx context.Context, page, limit int) ([]model.Transaction, int64, error)
}

// Handler реализует HTTP-обработчики API сервиса совместных подписок.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// serviceError переводит доменные ошибки в HTTP-статусы. Возвращает false,
// если ошибка неизвестна и должна быть отдана как 500 с логированием.
func serviceError(err error) (int, bool) {
	switch {
	case errors.Is(err, service.ErrEmptyCredentials),
		errors.Is(err, service.ErrInvalidGroupParams),
		errors.Is(err, service.ErrInvalidMembership),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrWithdrawalTooSmall),
		errors.Is(err, service.ErrSignatureMismatch),
		errors.Is(err, repository.ErrNonPositiveAmount):
		return http.StatusBadRequest, true
	case errors.Is(err, service.ErrInvalidDestination):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, true
	case errors.Is(err, repository.ErrInsufficientBalance):
		return http.StatusPaymentRequired, true
	case errors.Is(err, repository.ErrNotGroupOwner),
		errors.Is(err, repository.ErrNotGroupMember),
		errors.Is(err, repository.ErrNotMembershipOwner):
		return http.StatusForbidden, true
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrGroupNotFound),
		errors.Is(err, repository.ErrMembershipNotFound),
		errors.Is(err, repository.ErrWithdrawalNotFound),
		errors.Is(err, repository.ErrPaymentNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, repository.ErrUserExists),
		errors.Is(err, repository.ErrGroupUnavailable),
		errors.Is(err, repository.ErrNoSlotsAvailable),
		errors.Is(err, repository.ErrAlreadyMember),
		errors.Is(err, repository.ErrGroupNotPending),
		errors.Is(err, repository.ErrGroupHasMembers),
		errors.Is(err, repository.ErrMembershipNotActive),
		errors.Is(err, repository.ErrWithdrawalProcessed),
		errors.Is(err, repository.ErrPendingWithdrawalExists),
		errors.Is(err, repository.ErrPaymentVerified):
		return http.StatusConflict, true
	}
	return 0, false
}

func (h *Handler) respondError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	if status, ok := serviceError(err); ok {
		http.Error(w, http.StatusText(status), status)
		return
	}
	h.logger.Error(msg, append(fields, zap.Error(err))...)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		h.respondError(w, err, "register user error")
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID, model.RoleUser)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, role, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		h.respondError(w, err, "login user error")
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID, role)
	w.WriteHeader(http.StatusOK)
}

// Logout сбрасывает cookie авторизации.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

// GetBalance возвращает баланс текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "get balance error", zap.Int64("userID", userID))
		return
	}

	h.respondJSON(w, balance)
}

type transactionResponse struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Status      string  `json:"status"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func toTransactionResponses(transactions []model.Transaction) []transactionResponse {
	resp := make([]transactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		resp = append(resp, transactionResponse{
			ID:          tx.ID,
			Type:        string(tx.Type),
			Amount:      float64(tx.AmountCents) / 100,
			Status:      string(tx.Status),
			Description: tx.Description,
			CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp
}

// GetTransactions возвращает историю операций текущего пользователя.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	transactions, err := h.service.GetTransactionsByUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "get transactions error", zap.Int64("userID", userID))
		return
	}

	if len(transactions) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.respondJSON(w, toTransactionResponses(transactions))
}

type withdrawRequest struct {
	Amount      float64 `json:"amount"`
	Destination string  `json:"destination"`
}

type withdrawalResponse struct {
	ID          int64   `json:"id"`
	Amount      float64 `json:"amount"`
	Destination string  `json:"destination"`
	Status      string  `json:"status"`
	AdminNotes  string  `json:"admin_notes,omitempty"`
	RequestedAt string  `json:"requested_at"`
	ProcessedAt string  `json:"processed_at,omitempty"`
}

func toWithdrawalResponse(w *model.Withdrawal) withdrawalResponse {
	resp := withdrawalResponse{
		ID:          w.ID,
		Amount:      float64(w.AmountCents) / 100,
		Destination: w.Destination,
		Status:      string(w.Status),
		AdminNotes:  w.AdminNotes,
		RequestedAt: w.RequestedAt.Format(time.RFC3339),
	}
	if w.ProcessedAt != nil {
		resp.ProcessedAt = w.ProcessedAt.Format(time.RFC3339)
	}
	return resp
}

// Withdraw создаёт заявку на вывод средств текущего пользователя.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	withdrawal, err := h.service.RequestWithdrawal(r.Context(), userID, req.Amount, req.Destination)
	if err != nil {
		h.respondError(w, err, "withdraw error", zap.Int64("userID", userID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(toWithdrawalResponse(withdrawal)); err != nil {
		h.logger.Error("encode withdrawal response", zap.Error(err))
	}
}

// GetWithdrawals возвращает заявки текущего пользователя на вывод средств.
func (h *Handler) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	withdrawals, err := h.service.GetWithdrawalsByUser(r.Context(), userID)
	if err != nil {
		h.respondError(w, err, "get withdrawals error", zap.Int64("userID", userID))
		return
	}

	if len(withdrawals) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]withdrawalResponse, 0, len(withdrawals))
	for i := range withdrawals {
		resp = append(resp, toWithdrawalResponse(&withdrawals[i]))
	}
	h.respondJSON(w, resp)
}
