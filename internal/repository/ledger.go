package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/splitshare/splitshare-system/internal/model"
)

// Credit увеличивает баланс пользователя и добавляет завершённую запись журнала.
// Изменение баланса и запись журнала фиксируются или откатываются вместе.
func (r *PostgresRepository) Credit(ctx context.Context, userID, amountCents int64, txType model.TransactionType, description string) (int64, error) {
	if amountCents <= 0 {
		return 0, ErrNonPositiveAmount
	}

	var txID int64
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			id, err := creditUserTx(ctx, tx, userID, amountCents, txType, description)
			if err != nil {
				return err
			}
			txID = id
			return nil
		})
	})
	return txID, err
}

// Debit уменьшает баланс пользователя и добавляет запись журнала со знаком минус.
// Возвращает ErrInsufficientBalance, если средств не хватает; проверка и
// списание выполняются под блокировкой строки пользователя.
func (r *PostgresRepository) Debit(ctx context.Context, userID, amountCents int64, txType model.TransactionType, description string) (int64, error) {
	if amountCents <= 0 {
		return 0, ErrNonPositiveAmount
	}

	var txID int64
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			id, err := debitUserTx(ctx, tx, userID, amountCents, txType, description)
			if err != nil {
				return err
			}
			txID = id
			return nil
		})
	})
	return txID, err
}

// GetTransactionsByUser возвращает журнал операций пользователя, новые первыми.
func (r *PostgresRepository) GetTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, tx_type, amount_cents, status, description, created_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]model.Transaction, error) {
	var res []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var txType, status string
		if err := rows.Scan(&t.ID, &t.UserID, &txType, &t.AmountCents, &status, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = model.TransactionType(txType)
		t.Status = model.TransactionStatus(status)
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
