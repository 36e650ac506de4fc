package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wisefido-floorplan/internal/domain"
)

// PostgresTransactor 合并事务
type PostgresTransactor struct {
	db *sql.DB
}

func NewPostgresTransactor(db *sql.DB) *PostgresTransactor {
	return &PostgresTransactor{db: db}
}

var _ Transactor = (*PostgresTransactor)(nil)

// WithinTx fn 出错或提交失败时回滚
func (t *PostgresTransactor) WithinTx(ctx context.Context, fn func(tx MergeTx) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&postgresMergeTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type postgresMergeTx struct {
	tx *sql.Tx
}

func (m *postgresMergeTx) SaveFloorPlan(ctx context.Context, fp *domain.FloorPlan, expectedVersion int) error {
	rooms, err := marshalRooms(fp.Rooms)
	if err != nil {
		return err
	}
	updatedAt := fp.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	res, err := m.tx.ExecContext(ctx, `
		UPDATE floor_plans
		SET name = $2, rooms = $3, version = $4, updated_at = $5
		WHERE floor_plan_id = $1 AND version = $6
	`, fp.ID, fp.Name, rooms, fp.Version, updatedAt, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update floor plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("floor plan %s expected version %d: %w", fp.ID, expectedVersion, domain.ErrStaleFloorPlan)
	}
	return nil
}

func (m *postgresMergeTx) SaveVersionStatus(ctx context.Context, v *domain.Version) error {
	res, err := m.tx.ExecContext(ctx, `
		UPDATE floor_plan_versions
		SET status = $2,
			merged_at = $3,
			merged_by = $4,
			rejected_at = $5,
			rejected_by = $6,
			reject_reason = $7
		WHERE version_id = $1 AND status = 'draft'
	`,
		v.ID,
		string(v.Status),
		nullTime(v.MergedAt),
		nullString(v.MergedBy),
		nullTime(v.RejectedAt),
		nullString(v.RejectedBy),
		nullString(v.RejectReason),
	)
	if err != nil {
		return fmt.Errorf("failed to update version status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("version %s: %w", v.ID, domain.ErrVersionNotDraft)
	}
	return nil
}
