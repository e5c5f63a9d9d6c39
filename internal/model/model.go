// Package model содержит доменные сущности сервиса совместных подписок.
package model

import "time"

// Role описывает роль пользователя в системе.
type Role string

const (
	// RoleUser — обычный пользователь.
	RoleUser Role = "user"
	// RoleAdmin — администратор с правом модерации групп и заявок на вывод.
	RoleAdmin Role = "admin"
)

// User представляет зарегистрированного пользователя сервиса.
// Баланс хранится в сотых долях кредита и изменяется только операциями леджера.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	Role         Role
	BalanceCents int64
	CreatedAt    time.Time
}

// GroupStatus описывает статус группы совместной подписки.
type GroupStatus string

const (
	GroupStatusPendingReview GroupStatus = "pending_review"
	GroupStatusActive        GroupStatus = "active"
	GroupStatusFull          GroupStatus = "full"
	GroupStatusRejected      GroupStatus = "rejected"
)

// Group описывает группу совместной подписки на платный сервис.
// Credentials — непрозрачный блок с доступами, виден только активным участникам.
type Group struct {
	ID              int64
	OwnerID         int64
	Name            string
	Category        string
	TotalPriceCents int64
	SlotsTotal      int32
	SlotsFilled     int32
	Status          GroupStatus
	Credentials     string
	RejectReason    string
	CreatedAt       time.Time
}

// MembershipType описывает тип участия в группе.
type MembershipType string

const (
	// MembershipMonthly — месячное участие с датой следующего платежа.
	MembershipMonthly MembershipType = "monthly"
	// MembershipTemporary — временное участие на заданное число дней.
	MembershipTemporary MembershipType = "temporary"
)

// MembershipStatus описывает статус участия.
type MembershipStatus string

const (
	MembershipStatusActive    MembershipStatus = "active"
	MembershipStatusExpired   MembershipStatus = "expired"
	MembershipStatusCancelled MembershipStatus = "cancelled"
)

// Membership описывает участие пользователя в группе.
// Для monthly заполняется NextPaymentDate, для temporary — EndDate.
type Membership struct {
	ID              int64
	UserID          int64
	GroupID         int64
	Type            MembershipType
	ShareCents      int64
	Status          MembershipStatus
	JoinedAt        time.Time
	NextPaymentDate *time.Time
	EndDate         *time.Time
}

// TransactionType описывает тип операции леджера.
type TransactionType string

const (
	TransactionCreditAdd    TransactionType = "credit_add"
	TransactionSubscription TransactionType = "subscription_payment"
	TransactionRefund       TransactionType = "refund"
	TransactionWithdrawal   TransactionType = "withdrawal"
	TransactionAdjustment   TransactionType = "adjustment"
)

// TransactionStatus описывает статус операции леджера.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction описывает запись журнала операций леджера. Журнал только
// дополняется: сумма завершённых операций пользователя равна его балансу
// за вычетом начального остатка.
type Transaction struct {
	ID          int64
	UserID      int64
	Type        TransactionType
	AmountCents int64
	Status      TransactionStatus
	Description string
	CreatedAt   time.Time
}

// WithdrawalStatus описывает статус заявки на вывод средств.
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// Withdrawal описывает заявку пользователя на вывод средств.
type Withdrawal struct {
	ID          int64
	UserID      int64
	AmountCents int64
	Destination string
	Status      WithdrawalStatus
	AdminNotes  string
	RequestedAt time.Time
	ProcessedAt *time.Time
	ProcessedBy *int64
}

// PaymentStatus описывает статус платёжного поручения во внешнем шлюзе.
type PaymentStatus string

const (
	PaymentStatusCreated  PaymentStatus = "created"
	PaymentStatusCaptured PaymentStatus = "captured"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// Payment описывает пополнение баланса через платёжный шлюз.
// Verified выставляется ровно один раз — в момент зачисления кредитов.
type Payment struct {
	ID          int64
	UserID      int64
	OrderID     string
	Receipt     string
	AmountCents int64
	Status      PaymentStatus
	Verified    bool
	CreatedAt   time.Time
}

// Balance содержит текущий баланс пользователя и сумму всех выводов.
type Balance struct {
	Current   float64 `json:"current"`
	Withdrawn float64 `json:"withdrawn"`
}

// DashboardStats содержит агрегированные показатели для панели администратора.
type DashboardStats struct {
	TotalUsers         int64   `json:"total_users"`
	ActiveGroups       int64   `json:"active_groups"`
	PendingApprovals   int64   `json:"pending_approvals"`
	PendingWithdrawals int64   `json:"pending_withdrawals"`
	TotalRevenue       float64 `json:"total_revenue"`
}
