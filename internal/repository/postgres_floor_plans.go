package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wisefido-floorplan/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uniqueViolation Postgres unique_violation
const uniqueViolation = "23505"

// PostgresFloorPlansRepo 平面图Repository实现
type PostgresFloorPlansRepo struct {
	db *sql.DB
}

// NewPostgresFloorPlansRepo 创建平面图Repository
func NewPostgresFloorPlansRepo(db *sql.DB) *PostgresFloorPlansRepo {
	return &PostgresFloorPlansRepo{db: db}
}

// 确保实现了接口
var _ FloorPlansRepository = (*PostgresFloorPlansRepo)(nil)

const floorPlanColumns = `
			floor_plan_id,
			name,
			building_name,
			floor_number,
			rooms,
			version,
			updated_at
		FROM floor_plans`

// GetFloorPlan 获取平面图
func (r *PostgresFloorPlansRepo) GetFloorPlan(ctx context.Context, floorPlanID string) (*domain.FloorPlan, error) {
	if floorPlanID == "" {
		return nil, fmt.Errorf("floor plan id is empty: %w", domain.ErrNotFound)
	}
	query := `SELECT` + floorPlanColumns + `
		WHERE floor_plan_id = $1`

	fp, err := scanFloorPlan(r.db.QueryRowContext(ctx, query, floorPlanID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("floor plan %s: %w", floorPlanID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get floor plan: %w", err)
	}
	return fp, nil
}

// ListFloorPlans 所有平面图
func (r *PostgresFloorPlansRepo) ListFloorPlans(ctx context.Context) ([]*domain.FloorPlan, error) {
	query := `SELECT` + floorPlanColumns + `
		ORDER BY building_name NULLS FIRST, floor_number, name, floor_plan_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list floor plans: %w", err)
	}
	defer rows.Close()

	plans := []*domain.FloorPlan{}
	for rows.Next() {
		fp, err := scanFloorPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan floor plan: %w", err)
		}
		plans = append(plans, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate floor plans: %w", err)
	}
	return plans, nil
}

func scanFloorPlan(row rowScanner) (*domain.FloorPlan, error) {
	var fp domain.FloorPlan
	var buildingName sql.NullString
	var rooms []byte

	if err := row.Scan(
		&fp.ID,
		&fp.Name,
		&buildingName,
		&fp.FloorNumber,
		&rooms,
		&fp.Version,
		&fp.UpdatedAt,
	); err != nil {
		return nil, err
	}

	fp.BuildingName = buildingName.String
	var err error
	if fp.Rooms, err = unmarshalRooms(rooms); err != nil {
		return nil, err
	}
	return &fp, nil
}

// CreateFloorPlan 创建平面图（初始版本号至少为 1）
func (r *PostgresFloorPlansRepo) CreateFloorPlan(ctx context.Context, fp *domain.FloorPlan) (string, error) {
	id := fp.ID
	if id == "" {
		id = uuid.NewString()
	}
	if err := domain.ValidateRooms(fp.Rooms); err != nil {
		return "", err
	}
	rooms, err := marshalRooms(fp.Rooms)
	if err != nil {
		return "", err
	}
	version := fp.Version
	if version <= 0 {
		version = 1
	}
	updatedAt := fp.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO floor_plans (floor_plan_id, name, building_name, floor_number, rooms, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query, id, fp.Name, nullString(fp.BuildingName), fp.FloorNumber, rooms, version, updatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", &domain.ValidationError{Field: "floor_plan.id", Reason: fmt.Sprintf("%s already exists", id)}
		}
		return "", fmt.Errorf("failed to create floor plan: %w", err)
	}
	return id, nil
}

// ListFloorPlansWithPending 存在 draft 版本的平面图
func (r *PostgresFloorPlansRepo) ListFloorPlansWithPending(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT floor_plan_id
		FROM floor_plan_versions
		WHERE status = 'draft'
		ORDER BY floor_plan_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list floor plans with pending versions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan floor plan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate floor plan ids: %w", err)
	}
	return ids, nil
}
