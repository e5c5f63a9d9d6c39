// Package repository содержит реализацию доступа к данным в PostgreSQL.
//
// Каждая изменяющая операция выполняется в одной транзакции: строки
// пользователя и группы блокируются через SELECT ... FOR UPDATE до проверок
// баланса и свободных слотов, поэтому параллельные операции над одним
// пользователем или одной группой сериализуются, а операции над разными —
// не мешают друг другу.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/splitshare/splitshare-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrInsufficientBalance возвращается при попытке списания суммы, превышающей баланс.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrNonPositiveAmount возвращается при операции леджера с нулевой или отрицательной суммой.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrGroupNotFound возвращается, если группа не найдена.
	ErrGroupNotFound = errors.New("group not found")
	// ErrGroupUnavailable возвращается при попытке вступить в группу не в статусе active.
	ErrGroupUnavailable = errors.New("group is not available for joining")
	// ErrNoSlotsAvailable возвращается, когда в группе не осталось свободных слотов.
	ErrNoSlotsAvailable = errors.New("no available slots in group")
	// ErrAlreadyMember возвращается при повторном вступлении в ту же группу.
	ErrAlreadyMember = errors.New("already a member of group")
	// ErrGroupNotPending возвращается при модерации группы не в статусе pending_review.
	ErrGroupNotPending = errors.New("group is not pending review")
	// ErrNotGroupOwner возвращается при операции над чужой группой.
	ErrNotGroupOwner = errors.New("not the group owner")
	// ErrGroupHasMembers возвращается при удалении группы с активными участниками.
	ErrGroupHasMembers = errors.New("group has active members")
	// ErrNotGroupMember возвращается при запросе доступов группы не участником.
	ErrNotGroupMember = errors.New("not an active member of group")

	// ErrMembershipNotFound возвращается, если участие не найдено.
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrNotMembershipOwner возвращается при операции над чужим участием.
	ErrNotMembershipOwner = errors.New("not the membership owner")
	// ErrMembershipNotActive возвращается при выходе из неактивного участия.
	ErrMembershipNotActive = errors.New("membership is not active")

	// ErrWithdrawalNotFound возвращается, если заявка на вывод не найдена.
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")
	// ErrWithdrawalProcessed возвращается при повторной обработке заявки.
	ErrWithdrawalProcessed = errors.New("withdrawal request already processed")
	// ErrPendingWithdrawalExists возвращается, если у пользователя уже есть ожидающая заявка.
	ErrPendingWithdrawalExists = errors.New("pending withdrawal request already exists")

	// ErrPaymentNotFound возвращается, если платёж не найден.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrPaymentVerified возвращается при повторном подтверждении платежа.
	ErrPaymentVerified = errors.New("payment already verified")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// inTx выполняет fn в одной транзакции с ограниченным временем ожидания блокировок.
// Любая ошибка fn откатывает транзакцию целиком — частичных изменений не бывает.
func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SET LOCAL lock_timeout = '3s'`); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// withRetry повторяет fn при временных ошибках: сбой сериализации, дедлок,
// истечение lock_timeout, обрыв соединения. Остальные ошибки возвращаются сразу.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
			return true
		}
	}

	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// lockUserBalance блокирует строку пользователя и возвращает текущий баланс.
func lockUserBalance(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx,
		`SELECT balance_cents FROM users WHERE id = $1 FOR UPDATE`,
		userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("lock user: %w", err)
	}
	return balance, nil
}

// creditUserTx увеличивает баланс пользователя и добавляет запись журнала.
// Должна вызываться внутри транзакции, строка пользователя уже заблокирована
// или блокируется здесь же.
func creditUserTx(ctx context.Context, tx pgx.Tx, userID, amountCents int64, txType model.TransactionType, description string) (int64, error) {
	if _, err := lockUserBalance(ctx, tx, userID); err != nil {
		return 0, err
	}

	_, err := tx.Exec(ctx,
		`UPDATE users SET balance_cents = balance_cents + $2 WHERE id = $1`,
		userID, amountCents,
	)
	if err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}

	return insertTransaction(ctx, tx, userID, txType, amountCents, description)
}

// debitUserTx уменьшает баланс пользователя и добавляет запись журнала со
// знаком минус. Проверка достаточности средств выполняется под блокировкой.
func debitUserTx(ctx context.Context, tx pgx.Tx, userID, amountCents int64, txType model.TransactionType, description string) (int64, error) {
	balance, err := lockUserBalance(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	if balance < amountCents {
		return 0, ErrInsufficientBalance
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET balance_cents = balance_cents - $2 WHERE id = $1`,
		userID, amountCents,
	)
	if err != nil {
		return 0, fmt.Errorf("debit balance: %w", err)
	}

	return insertTransaction(ctx, tx, userID, txType, -amountCents, description)
}

func insertTransaction(ctx context.Context, tx pgx.Tx, userID int64, txType model.TransactionType, amountCents int64, description string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO transactions (user_id, tx_type, amount_cents, status, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		userID, string(txType), amountCents, string(model.TransactionStatusCompleted), description,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}
