package repository

import (
	"context"
	"fmt"

	"github.com/splitshare/splitshare-system/internal/model"
)

// DashboardStats возвращает агрегированные показатели для панели администратора.
// Это проекции поверх основных таблиц, консистентность на уровне снимка чтения.
func (r *PostgresRepository) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1`,
		string(model.RoleUser),
	).Scan(&stats.TotalUsers)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2)
		 FROM groups`,
		string(model.GroupStatusActive), string(model.GroupStatusPendingReview),
	).Scan(&stats.ActiveGroups, &stats.PendingApprovals)
	if err != nil {
		return nil, fmt.Errorf("count groups: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM withdrawal_requests WHERE status = $1`,
		string(model.WithdrawalStatusPending),
	).Scan(&stats.PendingWithdrawals)
	if err != nil {
		return nil, fmt.Errorf("count withdrawals: %w", err)
	}

	var revenueCents int64
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0)
		 FROM transactions
		 WHERE tx_type = $1 AND status = $2`,
		string(model.TransactionCreditAdd), string(model.TransactionStatusCompleted),
	).Scan(&revenueCents)
	if err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	stats.TotalRevenue = float64(revenueCents) / 100

	return stats, nil
}

// ListPendingGroups возвращает страницу групп, ожидающих модерации, новые первыми.
func (r *PostgresRepository) ListPendingGroups(ctx context.Context, page, limit int) ([]model.Group, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM groups WHERE status = $1`,
		string(model.GroupStatusPendingReview),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count pending groups: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+groupColumns+` FROM groups
		 WHERE status = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		string(model.GroupStatusPendingReview), limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select pending groups: %w", err)
	}
	defer rows.Close()

	groups, err := scanGroups(rows)
	if err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

// ListWithdrawals возвращает страницу заявок на вывод, опционально по статусу.
func (r *PostgresRepository) ListWithdrawals(ctx context.Context, status string, page, limit int) ([]model.Withdrawal, int64, error) {
	where := `TRUE`
	args := []any{}
	if status != "" {
		args = append(args, status)
		where = `status = $1`
	}

	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM withdrawal_requests WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count withdrawals: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM withdrawal_requests WHERE %s ORDER BY requested_at DESC LIMIT $%d OFFSET $%d`,
			withdrawalColumns, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select withdrawals: %w", err)
	}
	defer rows.Close()

	withdrawals, err := scanWithdrawals(rows)
	if err != nil {
		return nil, 0, err
	}
	return withdrawals, total, nil
}

// ListTransactions возвращает страницу журнала операций всех пользователей.
func (r *PostgresRepository) ListTransactions(ctx context.Context, page, limit int) ([]model.Transaction, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, tx_type, amount_cents, status, description, created_at
		 FROM transactions
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	transactions, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}
