package repository

import (
	"context"

	"wisefido-floorplan/internal/domain"
)

// FloorPlansRepository 平面图Repository接口
type FloorPlansRepository interface {
	// GetFloorPlan 不存在时返回包装了 domain.ErrNotFound 的错误
	GetFloorPlan(ctx context.Context, floorPlanID string) (*domain.FloorPlan, error)
	// ListFloorPlans 所有平面图，按楼栋、楼层、名称排序
	ListFloorPlans(ctx context.Context) ([]*domain.FloorPlan, error)
	// CreateFloorPlan 创建平面图，ID 为空时生成 uuid；ID 已存在时返回 ValidationError
	CreateFloorPlan(ctx context.Context, fp *domain.FloorPlan) (string, error)
	// ListFloorPlansWithPending 存在 draft 版本的平面图（供后台自动合并轮询）
	ListFloorPlansWithPending(ctx context.Context) ([]string, error)
}

// VersionsRepository 版本Repository接口
// 读取时 CreatorName / CreatorPriority 取自 editors 表
type VersionsRepository interface {
	GetVersion(ctx context.Context, versionID string) (*domain.Version, error)
	// ListVersions 平面图的所有版本，按创建时间倒序
	ListVersions(ctx context.Context, floorPlanID string) ([]*domain.Version, error)
	// ListPendingVersions draft 版本，按创建者优先级升序、创建时间升序
	ListPendingVersions(ctx context.Context, floorPlanID string) ([]*domain.Version, error)
	// CreateVersion 创建 draft 版本，ID 为空时生成 uuid
	CreateVersion(ctx context.Context, v *domain.Version) (string, error)
}

// EditorsRepository 编辑者Repository接口
type EditorsRepository interface {
	GetEditor(ctx context.Context, editorID string) (*domain.Editor, error)
	UpsertEditor(ctx context.Context, e *domain.Editor) error
}

// MergeTx 合并事务内可用的写操作
type MergeTx interface {
	// SaveFloorPlan 乐观锁：仅当存储中的版本号等于 expectedVersion 时写入，否则返回 domain.ErrStaleFloorPlan
	SaveFloorPlan(ctx context.Context, fp *domain.FloorPlan, expectedVersion int) error
	// SaveVersionStatus 写入终态及元数据；版本已不是 draft 时返回 domain.ErrVersionNotDraft
	SaveVersionStatus(ctx context.Context, v *domain.Version) error
}

// Transactor 在单个事务中执行 fn；fn 返回错误或提交失败时所有写入都不生效
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx MergeTx) error) error
}

// Store 服务层依赖的全部存储能力
type Store interface {
	FloorPlansRepository
	VersionsRepository
	EditorsRepository
	Transactor
}
