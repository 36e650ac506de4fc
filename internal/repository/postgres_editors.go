package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"wisefido-floorplan/internal/domain"
)

// PostgresEditorsRepo 编辑者Repository实现
type PostgresEditorsRepo struct {
	db *sql.DB
}

func NewPostgresEditorsRepo(db *sql.DB) *PostgresEditorsRepo {
	return &PostgresEditorsRepo{db: db}
}

var _ EditorsRepository = (*PostgresEditorsRepo)(nil)

func (r *PostgresEditorsRepo) GetEditor(ctx context.Context, editorID string) (*domain.Editor, error) {
	if editorID == "" {
		return nil, fmt.Errorf("editor id is empty: %w", domain.ErrNotFound)
	}

	var e domain.Editor
	err := r.db.QueryRowContext(ctx, `
		SELECT editor_id, name, priority, role
		FROM editors
		WHERE editor_id = $1
	`, editorID).Scan(&e.ID, &e.Name, &e.Priority, &e.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("editor %s: %w", editorID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get editor: %w", err)
	}
	return &e, nil
}

func (r *PostgresEditorsRepo) UpsertEditor(ctx context.Context, e *domain.Editor) error {
	if e == nil || e.ID == "" {
		return &domain.ValidationError{Field: "editor.id", Reason: "is required"}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO editors (editor_id, name, priority, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (editor_id) DO UPDATE
		SET name = EXCLUDED.name, priority = EXCLUDED.priority, role = EXCLUDED.role
	`, e.ID, e.Name, e.Priority, e.Role)
	if err != nil {
		return fmt.Errorf("failed to upsert editor: %w", err)
	}
	return nil
}
