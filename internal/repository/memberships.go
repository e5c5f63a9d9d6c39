package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/splitshare/splitshare-system/internal/model"
)

const membershipColumns = `id, user_id, group_id, membership_type, share_cents, status, joined_at, next_payment_date, end_date`

// JoinGroup выполняет вступление пользователя в группу одной транзакцией:
// блокировка группы, проверка статуса и слотов, проверка повторного участия,
// списание доли, занятие слота и создание записи участия. Любая ошибка
// откатывает всё — ни баланс, ни слоты не меняются частично.
func (r *PostgresRepository) JoinGroup(ctx context.Context, userID, groupID int64, membershipType model.MembershipType, days int) (*model.Membership, error) {
	var created *model.Membership
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			g, err := getGroupForUpdate(ctx, tx, groupID)
			if err != nil {
				return err
			}

			switch g.Status {
			case model.GroupStatusActive:
			case model.GroupStatusFull:
				return ErrNoSlotsAvailable
			default:
				return ErrGroupUnavailable
			}
			if g.SlotsFilled >= g.SlotsTotal {
				return ErrNoSlotsAvailable
			}

			var exists bool
			err = tx.QueryRow(ctx,
				`SELECT EXISTS (
					SELECT 1 FROM memberships
					WHERE user_id = $1 AND group_id = $2 AND status = $3
				)`,
				userID, groupID, string(model.MembershipStatusActive),
			).Scan(&exists)
			if err != nil {
				return fmt.Errorf("check membership: %w", err)
			}
			if exists {
				return ErrAlreadyMember
			}

			share := model.JoinShareCents(g.TotalPriceCents, g.SlotsTotal, membershipType, days)

			description := fmt.Sprintf("joined group %q (%s)", g.Name, membershipType)
			if _, err := debitUserTx(ctx, tx, userID, share, model.TransactionSubscription, description); err != nil {
				return err
			}

			newStatus := model.GroupStatusActive
			if g.SlotsFilled+1 >= g.SlotsTotal {
				newStatus = model.GroupStatusFull
			}
			_, err = tx.Exec(ctx,
				`UPDATE groups SET slots_filled = slots_filled + 1, status = $2 WHERE id = $1`,
				groupID, string(newStatus),
			)
			if err != nil {
				return fmt.Errorf("reserve slot: %w", err)
			}

			now := time.Now()
			var nextPayment, endDate *time.Time
			if membershipType == model.MembershipMonthly {
				v := now.Add(model.DaysPerMonth * 24 * time.Hour)
				nextPayment = &v
			} else {
				v := now.Add(time.Duration(days) * 24 * time.Hour)
				endDate = &v
			}

			row := tx.QueryRow(ctx,
				`INSERT INTO memberships (user_id, group_id, membership_type, share_cents, status, joined_at, next_payment_date, end_date)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				 RETURNING `+membershipColumns,
				userID, groupID, string(membershipType), share,
				string(model.MembershipStatusActive), now, nextPayment, endDate,
			)
			created, err = scanMembershipRow(row)
			if err != nil {
				if isUniqueViolation(err) {
					return ErrAlreadyMember
				}
				return fmt.Errorf("insert membership: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// LeaveGroup выполняет выход из группы одной транзакцией: возврат остатка
// (только для временного участия), отмена участия и освобождение слота.
// Возвращает сумму возврата в сотых долях кредита.
func (r *PostgresRepository) LeaveGroup(ctx context.Context, userID, membershipID int64) (int64, error) {
	var refund int64
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			m, err := getMembershipForUpdate(ctx, tx, membershipID)
			if err != nil {
				return err
			}
			if m.UserID != userID {
				return ErrNotMembershipOwner
			}
			if m.Status != model.MembershipStatusActive {
				return ErrMembershipNotActive
			}

			// Блокируем группу до изменения баланса: тот же порядок, что и при
			// вступлении, чтобы исключить взаимную блокировку.
			g, err := getGroupForUpdate(ctx, tx, m.GroupID)
			if err != nil {
				return err
			}

			refund = model.LeaveRefundCents(m, time.Now())
			if refund > 0 {
				description := fmt.Sprintf("refund for leaving group %q", g.Name)
				if _, err := creditUserTx(ctx, tx, userID, refund, model.TransactionRefund, description); err != nil {
					return err
				}
			}

			_, err = tx.Exec(ctx,
				`UPDATE memberships SET status = $2 WHERE id = $1`,
				membershipID, string(model.MembershipStatusCancelled),
			)
			if err != nil {
				return fmt.Errorf("cancel membership: %w", err)
			}

			return releaseSlotTx(ctx, tx, m.GroupID)
		})
	})
	if err != nil {
		return 0, err
	}
	return refund, nil
}

// ListMembershipsByUser возвращает все участия пользователя, новые первыми.
func (r *PostgresRepository) ListMembershipsByUser(ctx context.Context, userID int64) ([]model.Membership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 ORDER BY joined_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select memberships: %w", err)
	}
	defer rows.Close()

	var res []model.Membership
	for rows.Next() {
		m, err := scanMembershipRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		res = append(res, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ExpireMemberships переводит истёкшие временные участия в статус expired и
// освобождает их слоты. Каждое участие обрабатывается отдельной транзакцией
// с повторной проверкой статуса, поэтому повторный запуск ничего не меняет.
// Возвращает число завершённых участий.
func (r *PostgresRepository) ExpireMemberships(ctx context.Context, now time.Time) ([]model.Membership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM memberships
		 WHERE status = $1 AND membership_type = $2 AND end_date <= $3`,
		string(model.MembershipStatusActive), string(model.MembershipTemporary), now,
	)
	if err != nil {
		return nil, fmt.Errorf("select expired memberships: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan membership id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	var expired []model.Membership
	for _, id := range ids {
		err := r.inTx(ctx, func(tx pgx.Tx) error {
			m, err := getMembershipForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			// Участие могли отменить или уже завершить между выборкой и блокировкой.
			if m.Status != model.MembershipStatusActive {
				return nil
			}

			if _, err := getGroupForUpdate(ctx, tx, m.GroupID); err != nil {
				return err
			}

			_, err = tx.Exec(ctx,
				`UPDATE memberships SET status = $2 WHERE id = $1`,
				id, string(model.MembershipStatusExpired),
			)
			if err != nil {
				return fmt.Errorf("expire membership: %w", err)
			}

			if err := releaseSlotTx(ctx, tx, m.GroupID); err != nil {
				return err
			}

			m.Status = model.MembershipStatusExpired
			expired = append(expired, *m)
			return nil
		})
		if err != nil {
			return expired, err
		}
	}

	return expired, nil
}

func getMembershipForUpdate(ctx context.Context, tx pgx.Tx, membershipID int64) (*model.Membership, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE id = $1 FOR UPDATE`,
		membershipID,
	)

	m, err := scanMembershipRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("lock membership: %w", err)
	}
	return m, nil
}

func scanMembershipRow(row pgx.Row) (*model.Membership, error) {
	var m model.Membership
	var membershipType, status string
	err := row.Scan(&m.ID, &m.UserID, &m.GroupID, &membershipType, &m.ShareCents,
		&status, &m.JoinedAt, &m.NextPaymentDate, &m.EndDate)
	if err != nil {
		return nil, err
	}
	m.Type = model.MembershipType(membershipType)
	m.Status = model.MembershipStatus(status)
	return &m, nil
}
