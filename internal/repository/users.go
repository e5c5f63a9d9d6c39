package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/splitshare/splitshare-system/internal/model"
)

// CreateUser создаёт нового пользователя с нулевым балансом.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash, role) VALUES ($1, $2, $3) RETURNING id`,
		login, passwordHash, string(model.RoleUser),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, role, balance_cents, created_at
		 FROM users WHERE login = $1`,
		login,
	)

	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &role, &u.BalanceCents, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)

	return &u, nil
}

// GetBalance возвращает текущий баланс пользователя и сумму всех выводов в сотых долях кредита.
func (r *PostgresRepository) GetBalance(ctx context.Context, userID int64) (int64, int64, error) {
	var current int64
	err := r.pool.QueryRow(ctx,
		`SELECT balance_cents FROM users WHERE id = $1`,
		userID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrUserNotFound
		}
		return 0, 0, fmt.Errorf("get balance: %w", err)
	}

	var withdrawn int64
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(-SUM(amount_cents), 0)
		 FROM transactions
		 WHERE user_id = $1 AND tx_type = $2 AND status = $3`,
		userID, string(model.TransactionWithdrawal), string(model.TransactionStatusCompleted),
	).Scan(&withdrawn)
	if err != nil {
		return 0, 0, fmt.Errorf("sum withdrawals: %w", err)
	}

	return current, withdrawn, nil
}
