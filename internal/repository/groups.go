package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/splitshare/splitshare-system/internal/model"
)

const groupColumns = `id, owner_id, name, category, total_price_cents, slots_total, slots_filled, status, credentials, reject_reason, created_at`

// CreateGroupParams содержит параметры создания группы.
type CreateGroupParams struct {
	OwnerID         int64
	Name            string
	Category        string
	TotalPriceCents int64
	SlotsTotal      int32
	Credentials     string
}

// CreateGroup создаёт группу в статусе pending_review с нулём занятых слотов.
func (r *PostgresRepository) CreateGroup(ctx context.Context, params CreateGroupParams) (*model.Group, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO groups (owner_id, name, category, total_price_cents, slots_total, status, credentials)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+groupColumns,
		params.OwnerID, params.Name, params.Category, params.TotalPriceCents,
		params.SlotsTotal, string(model.GroupStatusPendingReview), params.Credentials,
	)

	g, err := scanGroupRow(row)
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

// GetGroupByID возвращает группу по идентификатору.
func (r *PostgresRepository) GetGroupByID(ctx context.Context, groupID int64) (*model.Group, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = $1`,
		groupID,
	)

	g, err := scanGroupRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

// ListActiveGroups возвращает страницу активных групп, новые первыми.
func (r *PostgresRepository) ListActiveGroups(ctx context.Context, search, category string, page, limit int) ([]model.Group, int64, error) {
	where := `status = $1`
	args := []any{string(model.GroupStatusActive)}

	if search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(` AND name ILIKE $%d`, len(args))
	}
	if category != "" && category != "all" {
		args = append(args, category)
		where += fmt.Sprintf(` AND category = $%d`, len(args))
	}

	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM groups WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count groups: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM groups WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			groupColumns, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select groups: %w", err)
	}
	defer rows.Close()

	groups, err := scanGroups(rows)
	if err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

// ListGroupsByOwner возвращает группы, созданные пользователем, новые первыми.
func (r *PostgresRepository) ListGroupsByOwner(ctx context.Context, ownerID int64) ([]model.Group, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select groups by owner: %w", err)
	}
	defer rows.Close()

	return scanGroups(rows)
}

// UpdateGroupParams содержит изменяемые владельцем поля группы.
// Статус и занятые слоты владельцу недоступны.
type UpdateGroupParams struct {
	Name            string
	Category        string
	TotalPriceCents int64
	Credentials     string
}

// UpdateGroup обновляет группу от имени владельца.
func (r *PostgresRepository) UpdateGroup(ctx context.Context, groupID, requesterID int64, params UpdateGroupParams) (*model.Group, error) {
	var updated *model.Group
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			g, err := getGroupForUpdate(ctx, tx, groupID)
			if err != nil {
				return err
			}
			if g.OwnerID != requesterID {
				return ErrNotGroupOwner
			}

			row := tx.QueryRow(ctx,
				`UPDATE groups
				 SET name = $2, category = $3, total_price_cents = $4, credentials = $5
				 WHERE id = $1
				 RETURNING `+groupColumns,
				groupID, params.Name, params.Category, params.TotalPriceCents, params.Credentials,
			)
			updated, err = scanGroupRow(row)
			if err != nil {
				return fmt.Errorf("update group: %w", err)
			}
			return nil
		})
	})
	return updated, err
}

// DeleteGroup удаляет группу. Разрешено только владельцу и только без активных участников.
func (r *PostgresRepository) DeleteGroup(ctx context.Context, groupID, requesterID int64) error {
	return r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			g, err := getGroupForUpdate(ctx, tx, groupID)
			if err != nil {
				return err
			}
			if g.OwnerID != requesterID {
				return ErrNotGroupOwner
			}
			if g.SlotsFilled > 0 {
				return ErrGroupHasMembers
			}

			if _, err := tx.Exec(ctx, `DELETE FROM groups WHERE id = $1`, groupID); err != nil {
				return fmt.Errorf("delete group: %w", err)
			}
			return nil
		})
	})
}

// ApproveGroup переводит группу из pending_review в active.
func (r *PostgresRepository) ApproveGroup(ctx context.Context, groupID int64) (*model.Group, error) {
	return r.setModerationStatus(ctx, groupID, model.GroupStatusActive, "")
}

// RejectGroup переводит группу из pending_review в rejected с указанием причины.
func (r *PostgresRepository) RejectGroup(ctx context.Context, groupID int64, reason string) (*model.Group, error) {
	return r.setModerationStatus(ctx, groupID, model.GroupStatusRejected, reason)
}

func (r *PostgresRepository) setModerationStatus(ctx context.Context, groupID int64, status model.GroupStatus, reason string) (*model.Group, error) {
	var updated *model.Group
	err := r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			g, err := getGroupForUpdate(ctx, tx, groupID)
			if err != nil {
				return err
			}
			if g.Status != model.GroupStatusPendingReview {
				return ErrGroupNotPending
			}

			row := tx.QueryRow(ctx,
				`UPDATE groups SET status = $2, reject_reason = $3 WHERE id = $1 RETURNING `+groupColumns,
				groupID, string(status), reason,
			)
			updated, err = scanGroupRow(row)
			if err != nil {
				return fmt.Errorf("update group status: %w", err)
			}
			return nil
		})
	})
	return updated, err
}

// GroupCredentials возвращает доступы группы. Доступно владельцу и активным участникам.
func (r *PostgresRepository) GroupCredentials(ctx context.Context, groupID, userID int64) (string, error) {
	var credentials string
	var ownerID int64
	err := r.pool.QueryRow(ctx,
		`SELECT credentials, owner_id FROM groups WHERE id = $1`,
		groupID,
	).Scan(&credentials, &ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrGroupNotFound
		}
		return "", fmt.Errorf("get group credentials: %w", err)
	}

	if ownerID == userID {
		return credentials, nil
	}

	var isMember bool
	err = r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM memberships
			WHERE user_id = $1 AND group_id = $2 AND status = $3
		)`,
		userID, groupID, string(model.MembershipStatusActive),
	).Scan(&isMember)
	if err != nil {
		return "", fmt.Errorf("check membership: %w", err)
	}
	if !isMember {
		return "", ErrNotGroupMember
	}

	return credentials, nil
}

// getGroupForUpdate блокирует строку группы и возвращает её текущее состояние.
// Все изменения слотов и статуса группы проходят через эту блокировку.
func getGroupForUpdate(ctx context.Context, tx pgx.Tx, groupID int64) (*model.Group, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = $1 FOR UPDATE`,
		groupID,
	)

	g, err := scanGroupRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("lock group: %w", err)
	}
	return g, nil
}

// releaseSlotTx освобождает один слот группы. Если группа была заполнена,
// она снова становится активной. Счётчик не уходит ниже нуля.
func releaseSlotTx(ctx context.Context, tx pgx.Tx, groupID int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE groups
		 SET slots_filled = GREATEST(slots_filled - 1, 0),
		     status = CASE WHEN status = $2 THEN $3 ELSE status END
		 WHERE id = $1`,
		groupID, string(model.GroupStatusFull), string(model.GroupStatusActive),
	)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	return nil
}

func scanGroupRow(row pgx.Row) (*model.Group, error) {
	var g model.Group
	var status string
	err := row.Scan(&g.ID, &g.OwnerID, &g.Name, &g.Category, &g.TotalPriceCents,
		&g.SlotsTotal, &g.SlotsFilled, &status, &g.Credentials, &g.RejectReason, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	g.Status = model.GroupStatus(status)
	return &g, nil
}

func scanGroups(rows pgx.Rows) ([]model.Group, error) {
	var res []model.Group
	for rows.Next() {
		g, err := scanGroupRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		res = append(res, *g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
