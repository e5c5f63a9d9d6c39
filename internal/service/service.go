// Package service реализует бизнес-логику сервиса совместных подписок.
package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/splitshare/splitshare-system/internal/gateway"
	"github.com/splitshare/splitshare-system/internal/model"
	"github.com/splitshare/splitshare-system/internal/notifier"
	"github.com/splitshare/splitshare-system/internal/repository"
	"github.com/splitshare/splitshare-system/internal/validation"
)

// Ошибки валидации пользовательского ввода.
var (
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrEmptyCredentials   = errors.New("login and password must not be empty")
	ErrInvalidGroupParams = errors.New("invalid group parameters")
	ErrInvalidMembership  = errors.New("invalid membership parameters")
	ErrWithdrawalTooSmall = errors.New("withdrawal amount below minimum")
	ErrInvalidDestination = errors.New("invalid withdrawal destination")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrSignatureMismatch  = errors.New("payment signature mismatch")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	GetBalance(ctx context.Context, userID int64) (int64, int64, error)
	GetTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error)
	Credit(ctx context.Context, userID, amountCents int64, txType model.TransactionType, description string) (int64, error)
	Debit(ctx context.Context, userID, amountCents int64, txType model.TransactionType, description string) (int64, error)

	CreateGroup(ctx context.Context, params repository.CreateGroupParams) (*model.Group, error)
	GetGroupByID(ctx context.Context, groupID int64) (*model.Group, error)
	ListActiveGroups(ctx context.Context, search, category string, page, limit int) ([]model.Group, int64, error)
	ListGroupsByOwner(ctx context.Context, ownerID int64) ([]model.Group, error)
	UpdateGroup(ctx context.Context, groupID, requesterID int64, params repository.UpdateGroupParams) (*model.Group, error)
	DeleteGroup(ctx context.Context, groupID, requesterID int64) error
	ApproveGroup(ctx context.Context, groupID int64) (*model.Group, error)
	RejectGroup(ctx context.Context, groupID int64, reason string) (*model.Group, error)
	GroupCredentials(ctx context.Context, groupID, userID int64) (string, error)

	JoinGroup(ctx context.Context, userID, groupID int64, membershipType model.MembershipType, days int) (*model.Membership, error)
	LeaveGroup(ctx context.Context, userID, membershipID int64) (int64, error)
	ListMembershipsByUser(ctx context.Context, userID int64) ([]model.Membership, error)
	ExpireMemberships(ctx context.Context, now time.Time) ([]model.Membership, error)

	CreateWithdrawal(ctx context.Context, userID, amountCents int64, destination string) (*model.Withdrawal, error)
	ProcessWithdrawal(ctx context.Context, adminID, withdrawalID int64, approve bool, notes string) (*model.Withdrawal, error)
	GetWithdrawalsByUser(ctx context.Context, userID int64) ([]model.Withdrawal, error)

	CreatePayment(ctx context.Context, userID int64, orderID, receipt string, amountCents int64) (*model.Payment, error)
	ConfirmPayment(ctx context.Context, orderID string) (*model.Payment, error)
	MarkPaymentFailed(ctx context.Context, orderID string) error
	ListPendingPayments(ctx context.Context, createdBefore time.Time, limit int) ([]model.Payment, error)

	DashboardStats(ctx context.Context) (*model.DashboardStats, error)
	ListPendingGroups(ctx context.Context, page, limit int) ([]model.Group, int64, error)
	ListWithdrawals(ctx context.Context, status string, page, limit int) ([]model.Withdrawal, int64, error)
	ListTransactions(ctx context.Context, page, limit int) ([]model.Transaction, int64, error)
}

// Gateway описывает контракт платёжного шлюза, используемый сервисом.
type Gateway interface {
	CreateOrder(ctx context.Context, amountCents int64) (*gateway.Order, error)
	GetOrderStatus(ctx context.Context, orderID string) (*gateway.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

// Options содержит настраиваемые параметры сервиса.
type Options struct {
	MinWithdrawalCents int64
	SweepInterval      time.Duration
	SyncInterval       time.Duration
}

// Service содержит бизнес-логику сервиса совместных подписок.
type Service struct {
	repo     Repository
	gateway  Gateway
	notifier notifier.Notifier
	opts     Options
}

// NewService создаёт новый сервис с указанными зависимостями.
func NewService(repo Repository, gw Gateway, n notifier.Notifier, opts Options) *Service {
	if opts.MinWithdrawalCents <= 0 {
		opts.MinWithdrawalCents = 500 * 100
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Hour
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = time.Minute
	}

	return &Service{
		repo:     repo,
		gateway:  gw,
		notifier: n,
		opts:     opts,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя и возвращает его идентификатор.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	if login == "" || password == "" {
		return 0, ErrEmptyCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	return s.repo.CreateUser(ctx, login, hashed)
}

// AuthenticateUser проверяет логин и пароль и возвращает идентификатор и роль пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (int64, model.Role, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, "", ErrInvalidCredentials
		}
		return 0, "", err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return 0, "", ErrInvalidCredentials
	}

	return u.ID, u.Role, nil
}

// GetBalance возвращает баланс пользователя в виде структуры model.Balance.
func (s *Service) GetBalance(ctx context.Context, userID int64) (*model.Balance, error) {
	current, withdrawn, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.Balance{
		Current:   float64(current) / 100,
		Withdrawn: float64(withdrawn) / 100,
	}, nil
}

// GetTransactionsByUser возвращает историю операций пользователя.
func (s *Service) GetTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error) {
	return s.repo.GetTransactionsByUser(ctx, userID)
}

// RequestWithdrawal создаёт заявку на вывод средств.
func (s *Service) RequestWithdrawal(ctx context.Context, userID int64, amount float64, destination string) (*model.Withdrawal, error) {
	amountCents := int64(amount * 100)
	if amountCents < s.opts.MinWithdrawalCents {
		return nil, ErrWithdrawalTooSmall
	}
	if !validation.ValidDestination(destination) {
		return nil, ErrInvalidDestination
	}

	return s.repo.CreateWithdrawal(ctx, userID, amountCents, destination)
}

// GetWithdrawalsByUser возвращает заявки пользователя на вывод средств.
func (s *Service) GetWithdrawalsByUser(ctx context.Context, userID int64) ([]model.Withdrawal, error) {
	return s.repo.GetWithdrawalsByUser(ctx, userID)
}

// normalizePage приводит параметры пагинации к допустимым значениям.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
