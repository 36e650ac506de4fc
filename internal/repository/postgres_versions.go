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

// unknownEditorPriority 创建者已不在 editors 表时使用的优先级（排在最后）
const unknownEditorPriority = 999

// creatorPriority 与 MemoryStore.withCreator 使用同一个缺省值
var creatorPriority = fmt.Sprintf("COALESCE(e.priority, %d)", unknownEditorPriority)

// versionColumns 与 scanVersion 的顺序一致
var versionColumns = `
			v.version_id,
			v.floor_plan_id,
			v.version_number,
			v.name,
			v.rooms,
			v.deleted_room_ids,
			v.created_by,
			e.name,
			` + creatorPriority + `,
			v.created_at,
			v.change_description,
			v.status,
			v.merged_at,
			v.merged_by,
			v.rejected_at,
			v.rejected_by,
			v.reject_reason
		FROM floor_plan_versions v
		LEFT JOIN editors e ON e.editor_id = v.created_by`

// PostgresVersionsRepo 版本Repository实现
type PostgresVersionsRepo struct {
	db *sql.DB
}

// NewPostgresVersionsRepo 创建版本Repository
func NewPostgresVersionsRepo(db *sql.DB) *PostgresVersionsRepo {
	return &PostgresVersionsRepo{db: db}
}

// 确保实现了接口
var _ VersionsRepository = (*PostgresVersionsRepo)(nil)

// GetVersion 获取版本
func (r *PostgresVersionsRepo) GetVersion(ctx context.Context, versionID string) (*domain.Version, error) {
	if versionID == "" {
		return nil, fmt.Errorf("version id is empty: %w", domain.ErrNotFound)
	}
	query := `SELECT` + versionColumns + `
		WHERE v.version_id = $1`

	v, err := scanVersion(r.db.QueryRowContext(ctx, query, versionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("version %s: %w", versionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// ListVersions 平面图的所有版本（最新在前）
func (r *PostgresVersionsRepo) ListVersions(ctx context.Context, floorPlanID string) ([]*domain.Version, error) {
	query := `SELECT` + versionColumns + `
		WHERE v.floor_plan_id = $1
		ORDER BY v.created_at DESC`
	return r.list(ctx, query, floorPlanID)
}

// ListPendingVersions draft 版本（优先级升序，创建时间升序）
func (r *PostgresVersionsRepo) ListPendingVersions(ctx context.Context, floorPlanID string) ([]*domain.Version, error) {
	query := `SELECT` + versionColumns + `
		WHERE v.floor_plan_id = $1 AND v.status = 'draft'
		ORDER BY ` + creatorPriority + ` ASC, v.created_at ASC`
	return r.list(ctx, query, floorPlanID)
}

func (r *PostgresVersionsRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Version, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	versions := []*domain.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate versions: %w", err)
	}
	return versions, nil
}

// CreateVersion 创建 draft 版本
func (r *PostgresVersionsRepo) CreateVersion(ctx context.Context, v *domain.Version) (string, error) {
	if v.FloorPlanID == "" {
		return "", &domain.ValidationError{Field: "floor_plan_id", Reason: "is required"}
	}
	if v.CreatorID == "" {
		return "", &domain.ValidationError{Field: "created_by", Reason: "is required"}
	}
	if err := v.Validate(); err != nil {
		return "", err
	}

	id := v.ID
	if id == "" {
		id = uuid.NewString()
	}
	rooms, err := marshalRooms(v.Rooms)
	if err != nil {
		return "", err
	}
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	deleted := v.DeletedRoomIDs
	if deleted == nil {
		deleted = []string{}
	}

	query := `
		INSERT INTO floor_plan_versions (
			version_id, floor_plan_id, version_number, name, rooms, deleted_room_ids,
			created_by, created_at, change_description, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'draft')
	`
	if _, err := r.db.ExecContext(ctx, query,
		id,
		v.FloorPlanID,
		v.VersionNumber,
		nullString(v.Name),
		rooms,
		pq.Array(deleted),
		v.CreatorID,
		createdAt,
		nullString(v.ChangeDescription),
	); err != nil {
		return "", fmt.Errorf("failed to create version: %w", err)
	}
	return id, nil
}

func scanVersion(row rowScanner) (*domain.Version, error) {
	var v domain.Version
	var name, creatorName, changeDescription sql.NullString
	var mergedBy, rejectedBy, rejectReason sql.NullString
	var mergedAt, rejectedAt sql.NullTime
	var rooms []byte
	var deleted pq.StringArray
	var status string

	if err := row.Scan(
		&v.ID,
		&v.FloorPlanID,
		&v.VersionNumber,
		&name,
		&rooms,
		&deleted,
		&v.CreatorID,
		&creatorName,
		&v.CreatorPriority,
		&v.CreatedAt,
		&changeDescription,
		&status,
		&mergedAt,
		&mergedBy,
		&rejectedAt,
		&rejectedBy,
		&rejectReason,
	); err != nil {
		return nil, err
	}

	parsed, err := unmarshalRooms(rooms)
	if err != nil {
		return nil, err
	}
	v.Rooms = parsed
	if len(deleted) > 0 {
		v.DeletedRoomIDs = []string(deleted)
	}
	v.Name = name.String
	v.CreatorName = creatorName.String
	v.ChangeDescription = changeDescription.String
	v.Status = domain.VersionStatus(status)
	v.MergedAt = timePtr(mergedAt)
	v.MergedBy = mergedBy.String
	v.RejectedAt = timePtr(rejectedAt)
	v.RejectedBy = rejectedBy.String
	v.RejectReason = rejectReason.String
	return &v, nil
}
