package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/splitshare/splitshare-system/internal/model"
)

const withdrawalColumns = `id, user_id, amount_cents, destination, status, admin_notes, requested_at, processed_at, processed_by`

// CreateWithdrawal создаёт заявку на вывод средств. Баланс проверяется по
// снимку на момент заявки и не резервируется — повторная проверка выполняется
// при одобрении. На пользователя допускается одна ожидающая заявка.
func (r *PostgresRepository) CreateWithdrawal(ctx context.Context, userID, amountCents int64, destination string) (*model.Withdrawal, error) {
	var created *model.Withdrawal
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			balance, err := lockUserBalance(ctx, tx, userID)
			if err != nil {
				return err
			}
			if balance < amountCents {
				return ErrInsufficientBalance
			}

			var pendingExists bool
			err = tx.QueryRow(ctx,
				`SELECT EXISTS (
					SELECT 1 FROM withdrawal_requests WHERE user_id = $1 AND status = $2
				)`,
				userID, string(model.WithdrawalStatusPending),
			).Scan(&pendingExists)
			if err != nil {
				return fmt.Errorf("check pending withdrawal: %w", err)
			}
			if pendingExists {
				return ErrPendingWithdrawalExists
			}

			row := tx.QueryRow(ctx,
				`INSERT INTO withdrawal_requests (user_id, amount_cents, destination, status)
				 VALUES ($1, $2, $3, $4)
				 RETURNING `+withdrawalColumns,
				userID, amountCents, destination, string(model.WithdrawalStatusPending),
			)
			created, err = scanWithdrawalRow(row)
			if err != nil {
				if isUniqueViolation(err) {
					return ErrPendingWithdrawalExists
				}
				return fmt.Errorf("insert withdrawal: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ProcessWithdrawal обрабатывает заявку администратором. При одобрении баланс
// проверяется повторно под блокировкой и списывается; при нехватке средств
// транзакция откатывается и заявка остаётся ожидающей. Отклонение не трогает
// леджер.
func (r *PostgresRepository) ProcessWithdrawal(ctx context.Context, adminID, withdrawalID int64, approve bool, notes string) (*model.Withdrawal, error) {
	var processed *model.Withdrawal
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			row := tx.QueryRow(ctx,
				`SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`,
				withdrawalID,
			)
			w, err := scanWithdrawalRow(row)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrWithdrawalNotFound
				}
				return fmt.Errorf("lock withdrawal: %w", err)
			}
			if w.Status != model.WithdrawalStatusPending {
				return ErrWithdrawalProcessed
			}

			status := model.WithdrawalStatusRejected
			if approve {
				description := fmt.Sprintf("withdrawal to %s", w.Destination)
				if _, err := debitUserTx(ctx, tx, w.UserID, w.AmountCents, model.TransactionWithdrawal, description); err != nil {
					return err
				}
				status = model.WithdrawalStatusApproved
			}

			row = tx.QueryRow(ctx,
				`UPDATE withdrawal_requests
				 SET status = $2, admin_notes = $3, processed_at = $4, processed_by = $5
				 WHERE id = $1
				 RETURNING `+withdrawalColumns,
				withdrawalID, string(status), notes, time.Now(), adminID,
			)
			processed, err = scanWithdrawalRow(row)
			if err != nil {
				return fmt.Errorf("update withdrawal: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return processed, nil
}

// GetWithdrawalsByUser возвращает заявки пользователя, новые первыми.
func (r *PostgresRepository) GetWithdrawalsByUser(ctx context.Context, userID int64) ([]model.Withdrawal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE user_id = $1 ORDER BY requested_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select withdrawals: %w", err)
	}
	defer rows.Close()

	return scanWithdrawals(rows)
}

func scanWithdrawalRow(row pgx.Row) (*model.Withdrawal, error) {
	var w model.Withdrawal
	var status string
	err := row.Scan(&w.ID, &w.UserID, &w.AmountCents, &w.Destination, &status,
		&w.AdminNotes, &w.RequestedAt, &w.ProcessedAt, &w.ProcessedBy)
	if err != nil {
		return nil, err
	}
	w.Status = model.WithdrawalStatus(status)
	return &w, nil
}

func scanWithdrawals(rows pgx.Rows) ([]model.Withdrawal, error) {
	var res []model.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawalRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan withdrawal: %w", err)
		}
		res = append(res, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
