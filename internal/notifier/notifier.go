// Package notifier отвечает за уведомление пользователей о событиях сервиса.
package notifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/splitshare/splitshare-system/internal/model"
)

// Notifier доставляет пользователям уведомления о событиях их групп и заявок.
type Notifier interface {
	GroupApproved(ctx context.Context, group *model.Group)
	GroupRejected(ctx context.Context, group *model.Group)
	WithdrawalProcessed(ctx context.Context, withdrawal *model.Withdrawal)
	MembershipExpired(ctx context.Context, membership *model.Membership)
}

// LogNotifier пишет уведомления в журнал. Используется пока не подключён
// внешний канал доставки.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier создаёт нотификатор поверх указанного логгера.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) GroupApproved(_ context.Context, group *model.Group) {
	n.logger.Info("group approved",
		zap.Int64("group_id", group.ID),
		zap.Int64("owner_id", group.OwnerID),
		zap.String("name", group.Name),
	)
}

func (n *LogNotifier) GroupRejected(_ context.Context, group *model.Group) {
	n.logger.Info("group rejected",
		zap.Int64("group_id", group.ID),
		zap.Int64("owner_id", group.OwnerID),
		zap.String("reason", group.RejectReason),
	)
}

func (n *LogNotifier) WithdrawalProcessed(_ context.Context, withdrawal *model.Withdrawal) {
	n.logger.Info("withdrawal processed",
		zap.Int64("withdrawal_id", withdrawal.ID),
		zap.Int64("user_id", withdrawal.UserID),
		zap.String("status", string(withdrawal.Status)),
	)
}

func (n *LogNotifier) MembershipExpired(_ context.Context, membership *model.Membership) {
	n.logger.Info("membership expired",
		zap.Int64("membership_id", membership.ID),
		zap.Int64("user_id", membership.UserID),
		zap.Int64("group_id", membership.GroupID),
	)
}
