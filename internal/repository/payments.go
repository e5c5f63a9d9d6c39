package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/splitshare/splitshare-system/internal/model"
)

const paymentColumns = `id, user_id, order_id, receipt, amount_cents, status, verified, created_at`

// CreatePayment сохраняет созданное во внешнем шлюзе платёжное поручение.
func (r *PostgresRepository) CreatePayment(ctx context.Context, userID int64, orderID, receipt string, amountCents int64) (*model.Payment, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO payments (user_id, order_id, receipt, amount_cents, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+paymentColumns,
		userID, orderID, receipt, amountCents, string(model.PaymentStatusCreated),
	)

	p, err := scanPaymentRow(row)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return p, nil
}

// ConfirmPayment зачисляет оплаченное поручение ровно один раз: платёж
// помечается захваченным и проверенным, баланс пользователя пополняется и
// создаётся запись журнала — всё одной транзакцией. Повторное подтверждение
// возвращает ErrPaymentVerified без изменения состояния.
func (r *PostgresRepository) ConfirmPayment(ctx context.Context, orderID string) (*model.Payment, error) {
	var confirmed *model.Payment
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			row := tx.QueryRow(ctx,
				`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 FOR UPDATE`,
				orderID,
			)
			p, err := scanPaymentRow(row)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrPaymentNotFound
				}
				return fmt.Errorf("lock payment: %w", err)
			}
			if p.Verified {
				return ErrPaymentVerified
			}

			_, err = tx.Exec(ctx,
				`UPDATE payments SET status = $2, verified = TRUE WHERE order_id = $1`,
				orderID, string(model.PaymentStatusCaptured),
			)
			if err != nil {
				return fmt.Errorf("mark payment captured: %w", err)
			}

			description := fmt.Sprintf("added %.2f credits via payment gateway", float64(p.AmountCents)/100)
			if _, err := creditUserTx(ctx, tx, p.UserID, p.AmountCents, model.TransactionCreditAdd, description); err != nil {
				return err
			}

			p.Status = model.PaymentStatusCaptured
			p.Verified = true
			confirmed = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// MarkPaymentFailed помечает неоплаченное поручение как неуспешное.
// Уже проверенные платежи не затрагиваются.
func (r *PostgresRepository) MarkPaymentFailed(ctx context.Context, orderID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE payments SET status = $2 WHERE order_id = $1 AND NOT verified`,
		orderID, string(model.PaymentStatusFailed),
	)
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	return nil
}

// ListPendingPayments возвращает поручения в статусе created, созданные до
// указанного момента. Используется фоновой сверкой со шлюзом.
func (r *PostgresRepository) ListPendingPayments(ctx context.Context, createdBefore time.Time, limit int) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE status = $1 AND created_at <= $2
		 ORDER BY created_at
		 LIMIT $3`,
		string(model.PaymentStatusCreated), createdBefore, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select pending payments: %w", err)
	}
	defer rows.Close()

	var res []model.Payment
	for rows.Next() {
		p, err := scanPaymentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func scanPaymentRow(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	var status string
	err := row.Scan(&p.ID, &p.UserID, &p.OrderID, &p.Receipt, &p.AmountCents,
		&status, &p.Verified, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	return &p, nil
}
