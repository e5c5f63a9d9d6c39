package service

import (
	"context"

	"github.com/splitshare/splitshare-system/internal/model"
)

// ApproveGroup одобряет группу и уведомляет владельца.
func (s *Service) ApproveGroup(ctx context.Context, groupID int64) (*model.Group, error) {
	g, err := s.repo.ApproveGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.GroupApproved(ctx, g)
	}
	return g, nil
}

// RejectGroup отклоняет группу с указанием причины и уведомляет владельца.
func (s *Service) RejectGroup(ctx context.Context, groupID int64, reason string) (*model.Group, error) {
	g, err := s.repo.RejectGroup(ctx, groupID, reason)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.GroupRejected(ctx, g)
	}
	return g, nil
}

// ProcessWithdrawal обрабатывает заявку на вывод от имени администратора
// и уведомляет пользователя о результате.
func (s *Service) ProcessWithdrawal(ctx context.Context, adminID, withdrawalID int64, approve bool, notes string) (*model.Withdrawal, error) {
	w, err := s.repo.ProcessWithdrawal(ctx, adminID, withdrawalID, approve, notes)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.WithdrawalProcessed(ctx, w)
	}
	return w, nil
}

// AdjustBalance выполняет ручную корректировку баланса пользователя
// администратором. Положительная сумма зачисляется, отрицательная списывается
// с проверкой достаточности средств. Возвращает идентификатор записи журнала.
func (s *Service) AdjustBalance(ctx context.Context, userID int64, amount float64, note string) (int64, error) {
	amountCents := int64(amount * 100)
	if amountCents == 0 {
		return 0, ErrInvalidAmount
	}

	if amountCents > 0 {
		return s.repo.Credit(ctx, userID, amountCents, model.TransactionAdjustment, note)
	}
	return s.repo.Debit(ctx, userID, -amountCents, model.TransactionAdjustment, note)
}

// DashboardStats возвращает агрегированные показатели для панели администратора.
func (s *Service) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	return s.repo.DashboardStats(ctx)
}

// ListPendingGroups возвращает страницу групп на модерации.
func (s *Service) ListPendingGroups(ctx context.Context, page, limit int) ([]model.Group, int64, error) {
	page, limit = normalizePage(page, limit)
	return s.repo.ListPendingGroups(ctx, page, limit)
}

// ListWithdrawals возвращает страницу заявок на вывод, опционально по статусу.
func (s *Service) ListWithdrawals(ctx context.Context, status string, page, limit int) ([]model.Withdrawal, int64, error) {
	page, limit = normalizePage(page, limit)
	return s.repo.ListWithdrawals(ctx, status, page, limit)
}

// ListTransactions возвращает страницу журнала операций всех пользователей.
func (s *Service) ListTransactions(ctx context.Context, page, limit int) ([]model.Transaction, int64, error) {
	page, limit = normalizePage(page, limit)
	return s.repo.ListTransactions(ctx, page, limit)
}
