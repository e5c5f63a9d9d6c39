package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/splitshare/splitshare-system/internal/middleware"
	"github.com/splitshare/splitshare-system/internal/model"
	"github.com/splitshare/splitshare-system/internal/repository"
	"github.com/splitshare/splitshare-system/internal/service"
)

type stubService struct {
	registerUserID int64
	registerErr    error

	authUserID int64
	authRole   model.Role
	authErr    error

	balanceResp *model.Balance
	balanceErr  error

	transactions    []model.Transaction
	transactionsErr error

	withdrawal    *model.Withdrawal
	withdrawalErr error

	group       *model.Group
	groupErr    error
	groups      []model.Group
	groupsTotal int64

	membership    *model.Membership
	membershipErr error
	memberships   []model.Membership

	refund   float64
	leaveErr error

	credentials    string
	credentialsErr error

	payment    *model.Payment
	paymentErr error

	webhookErr error

	stats *model.DashboardStats
}

func (s *stubService) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	return s.registerUserID, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, login, password string) (int64, model.Role, error) {
	return s.authUserID, s.authRole, s.authErr
}

func (s *stubService) GetBalance(ctx context.Context, userID int64) (*model.Balance, error) {
	return s.balanceResp, s.balanceErr
}

func (s *stubService) GetTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error) {
	return s.transactions, s.transactionsErr
}

func (s *stubService) RequestWithdrawal(ctx context.Context, userID int64, amount float64, destination string) (*model.Withdrawal, error) {
	return s.withdrawal, s.withdrawalErr
}

func (s *stubService) GetWithdrawalsByUser(ctx context.Context, userID int64) ([]model.Withdrawal, error) {
	if s.withdrawal == nil {
		return nil, s.withdrawalErr
	}
	return []model.Withdrawal{*s.withdrawal}, s.withdrawalErr
}

func (s *stubService) CreateGroup(ctx context.Context, ownerID int64, input service.CreateGroupInput) (*model.Group, error) {
	return s.group, s.groupErr
}

func (s *stubService) GetGroup(ctx context.Context, groupID int64) (*model.Group, error) {
	return s.group, s.groupErr
}

func (s *stubService) ListGroups(ctx context.Context, search, category string, page, limit int) ([]model.Group, int64, error) {
	return s.groups, s.groupsTotal, s.groupErr
}

func (s *stubService) ListGroupsByOwner(ctx context.Context, ownerID int64) ([]model.Group, error) {
	return s.groups, s.groupErr
}

func (s *stubService) UpdateGroup(ctx context.Context, groupID, requesterID int64, input service.UpdateGroupInput) (*model.Group, error) {
	return s.group, s.groupErr
}

func (s *stubService) DeleteGroup(ctx context.Context, groupID, requesterID int64) error {
	return s.groupErr
}

func (s *stubService) GroupCredentials(ctx context.Context, groupID, userID int64) (string, error) {
	return s.credentials, s.credentialsErr
}

func (s *stubService) JoinGroup(ctx context.Context, userID, groupID int64, membershipType string, days int) (*model.Membership, error) {
	return s.membership, s.membershipErr
}

func (s *stubService) LeaveGroup(ctx context.Context, userID, membershipID int64) (float64, error) {
	return s.refund, s.leaveErr
}

func (s *stubService) ListMembershipsByUser(ctx context.Context, userID int64) ([]model.Membership, error) {
	return s.memberships, s.membershipErr
}

func (s *stubService) CreateOrder(ctx context.Context, userID int64, amount float64) (*model.Payment, error) {
	return s.payment, s.paymentErr
}

func (s *stubService) ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) (*model.Payment, error) {
	return s.payment, s.paymentErr
}

func (s *stubService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	return s.webhookErr
}

func (s *stubService) AdjustBalance(ctx context.Context, userID int64, amount float64, note string) (int64, error) {
	return 1, nil
}

func (s *stubService) ApproveGroup(ctx context.Context, groupID int64) (*model.Group, error) {
	return s.group, s.groupErr
}

func (s *stubService) RejectGroup(ctx context.Context, groupID int64, reason string) (*model.Group, error) {
	return s.group, s.groupErr
}

func (s *stubService) ProcessWithdrawal(ctx context.Context, adminID, withdrawalID int64, approve bool, notes string) (*model.Withdrawal, error) {
	return s.withdrawal, s.withdrawalErr
}

func (s *stubService) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	return s.stats, nil
}

func (s *stubService) ListPendingGroups(ctx context.Context, page, limit int) ([]model.Group, int64, error) {
	return s.groups, s.groupsTotal, s.groupErr
}

func (s *stubService) ListWithdrawals(ctx context.Context, status string, page, limit int) ([]model.Withdrawal, int64, error) {
	return nil, 0, nil
}

func (s *stubService) ListTransactions(ctx context.Context, page, limit int) ([]model.Transaction, int64, error) {
	return s.transactions, int64(len(s.transactions)), s.transactionsErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth)
}

// authCookie возвращает валидный cookie авторизации для тестовых запросов.
func authCookie(t *testing.T, h *Handler, userID int64, role model.Role) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(rec, userID, role)
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no auth cookie set")
	}
	return cookies[0]
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{
		registerUserID: 42,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if len(res.Cookies()) == 0 {
		t.Fatalf("register must set auth cookie")
	}
}

func TestRegister_Conflict(t *testing.T) {
	svc := &stubService{
		registerErr: repository.ErrUserExists,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{Login: "user", Password: "pass"})
	req := httptest.NewRequest(http.MethodPost, "/api/user/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Result().StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusConflict)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &stubService{
		authErr: service.ErrInvalidCredentials,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{Login: "user", Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestGetBalance_ThroughRouter(t *testing.T) {
	svc := &stubService{
		balanceResp: &model.Balance{Current: 1200.5, Withdrawn: 300},
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/user/balance", nil)
	req.AddCookie(authCookie(t, h, 1, model.RoleUser))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var balance model.Balance
	if err := json.NewDecoder(res.Body).Decode(&balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Current != 1200.5 || balance.Withdrawn != 300 {
		t.Fatalf("balance = %+v, want {1200.5 300}", balance)
	}
}

func TestGetBalance_Unauthorized(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/user/balance", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestJoinGroup_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{
			name:       "success",
			wantStatus: http.StatusCreated,
		},
		{
			name:       "no slots available",
			serviceErr: repository.ErrNoSlotsAvailable,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "already member",
			serviceErr: repository.ErrAlreadyMember,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "insufficient balance",
			serviceErr: repository.ErrInsufficientBalance,
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name:       "group not found",
			serviceErr: repository.ErrGroupNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "group not active",
			serviceErr: repository.ErrGroupUnavailable,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid membership type",
			serviceErr: service.ErrInvalidMembership,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{
				membership:    &model.Membership{ID: 1, GroupID: 2, Type: model.MembershipMonthly},
				membershipErr: tt.serviceErr,
			}
			h := newTestHandler(t, svc)
			router := h.SetupRouter()

			body, _ := json.Marshal(joinRequest{MembershipType: "monthly"})
			req := httptest.NewRequest(http.MethodPost, "/api/groups/2/join", bytes.NewReader(body))
			req.AddCookie(authCookie(t, h, 1, model.RoleUser))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Result().StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Result().StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestLeaveGroup_ReturnsRefund(t *testing.T) {
	svc := &stubService{refund: 40}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/memberships/5/leave", nil)
	req.AddCookie(authCookie(t, h, 1, model.RoleUser))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp map[string]float64
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["refund"] != 40 {
		t.Fatalf("refund = %v, want 40", resp["refund"])
	}
}

func TestWithdraw_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{
			name:       "created",
			wantStatus: http.StatusCreated,
		},
		{
			name:       "below minimum",
			serviceErr: service.ErrWithdrawalTooSmall,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad destination",
			serviceErr: service.ErrInvalidDestination,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "insufficient balance",
			serviceErr: repository.ErrInsufficientBalance,
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name:       "pending already exists",
			serviceErr: repository.ErrPendingWithdrawalExists,
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{
				withdrawal:    &model.Withdrawal{ID: 1, Status: model.WithdrawalStatusPending},
				withdrawalErr: tt.serviceErr,
			}
			h := newTestHandler(t, svc)
			router := h.SetupRouter()

			body, _ := json.Marshal(withdrawRequest{Amount: 500, Destination: "user@bank"})
			req := httptest.NewRequest(http.MethodPost, "/api/user/withdrawals", bytes.NewReader(body))
			req.AddCookie(authCookie(t, h, 1, model.RoleUser))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Result().StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Result().StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestListGroups_Public(t *testing.T) {
	svc := &stubService{
		groups: []model.Group{
			{ID: 1, Name: "Netflix Premium", TotalPriceCents: 64900, SlotsTotal: 4, Status: model.GroupStatusActive},
		},
		groupsTotal: 1,
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/groups/?search=netflix", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp groupListResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Groups) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Groups[0].SharePrice != 162.25 {
		t.Fatalf("share price = %v, want 162.25", resp.Groups[0].SharePrice)
	}
}

func TestAdminRoutes_ForbiddenForUser(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.AddCookie(authCookie(t, h, 1, model.RoleUser))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusForbidden)
	}
}

func TestAdminStats_ForAdmin(t *testing.T) {
	svc := &stubService{
		stats: &model.DashboardStats{TotalUsers: 10, ActiveGroups: 3},
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.AddCookie(authCookie(t, h, 1, model.RoleAdmin))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var stats model.DashboardStats
	if err := json.NewDecoder(res.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalUsers != 10 || stats.ActiveGroups != 3 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestProcessWithdrawal_Conflict(t *testing.T) {
	svc := &stubService{
		withdrawalErr: repository.ErrWithdrawalProcessed,
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	body, _ := json.Marshal(processWithdrawalRequest{Approve: true})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/withdrawals/9/process", bytes.NewReader(body))
	req.AddCookie(authCookie(t, h, 1, model.RoleAdmin))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusConflict)
	}
}

func TestWebhook_BadSignature(t *testing.T) {
	svc := &stubService{
		webhookErr: service.ErrSignatureMismatch,
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook",
		bytes.NewReader([]byte(`{"event":"payment.captured"}`)))
	req.Header.Set("X-Webhook-Signature", "bad")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestGetGroupCredentials_Forbidden(t *testing.T) {
	svc := &stubService{
		credentialsErr: repository.ErrNotGroupMember,
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/groups/3/credentials", nil)
	req.AddCookie(authCookie(t, h, 1, model.RoleUser))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusForbidden)
	}
}
