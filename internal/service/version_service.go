package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"wisefido-floorplan/internal/authority"
	"wisefido-floorplan/internal/domain"
	"wisefido-floorplan/internal/export"
	"wisefido-floorplan/internal/lifecycle"
	"wisefido-floorplan/internal/merge"
	"wisefido-floorplan/internal/notify"
	"wisefido-floorplan/internal/repository"
	"wisefido-floorplan/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// publishTimeout 合并提交后发布事件的最长时间
const publishTimeout = 5 * time.Second

// VersionService 平面图版本服务：读取、提交草稿、冲突分析、自动/手动合并、驳回
type VersionService struct {
	repo      repository.Store
	authority authority.Checker
	locker    store.Locker
	cache     store.KVStore // 可为 nil
	cacheTTL  time.Duration
	events    *notify.Multi // 可为 nil
	logger    *zap.Logger
	now       func() time.Time
}

// Options 可选依赖
type Options struct {
	Cache    store.KVStore
	CacheTTL time.Duration
	Events   *notify.Multi
	Now      func() time.Time
}

// NewVersionService 创建版本服务
func NewVersionService(repo repository.Store, checker authority.Checker, locker store.Locker, logger *zap.Logger, opts Options) *VersionService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &VersionService{
		repo:      repo,
		authority: checker,
		locker:    locker,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		events:    opts.Events,
		logger:    logger,
		now:       now,
	}
}

// GetFloorPlan 查询平面图
func (s *VersionService) GetFloorPlan(ctx context.Context, floorPlanID string) (*domain.FloorPlan, error) {
	if floorPlanID == "" {
		return nil, &domain.ValidationError{Field: "floor_plan_id", Reason: "is required"}
	}
	return s.repo.GetFloorPlan(ctx, floorPlanID)
}

// ListFloorPlans 所有平面图
func (s *VersionService) ListFloorPlans(ctx context.Context) ([]*domain.FloorPlan, error) {
	plans, err := s.repo.ListFloorPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list floor plans: %w", err)
	}
	return plans, nil
}

// CreateFloorPlanRequest 创建基线平面图请求
type CreateFloorPlanRequest struct {
	ActorID      string
	ID           string // 为空时生成
	Name         string
	BuildingName string
	FloorNumber  int
	Rooms        []domain.Room
}

// CreateFloorPlan 创建基线平面图（版本号 1）；只有 head editor 或 admin 可以创建
func (s *VersionService) CreateFloorPlan(ctx context.Context, req CreateFloorPlanRequest) (*domain.FloorPlan, error) {
	actor, err := s.authorize(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}

	fp := &domain.FloorPlan{
		ID:           strings.TrimSpace(req.ID),
		Name:         strings.TrimSpace(req.Name),
		BuildingName: strings.TrimSpace(req.BuildingName),
		FloorNumber:  req.FloorNumber,
		Rooms:        domain.CloneRooms(req.Rooms),
		Version:      1,
		UpdatedAt:    s.now().UTC(),
	}
	if fp.Name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "is required"}
	}
	if err := domain.ValidateRooms(fp.Rooms); err != nil {
		return nil, err
	}

	id, err := s.repo.CreateFloorPlan(ctx, fp)
	if err != nil {
		if domain.IsValidation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create floor plan: %w", err)
	}
	s.logger.Info("Floor plan created",
		zap.String("floor_plan_id", id),
		zap.String("created_by", actor.ID),
		zap.Int("room_count", len(fp.Rooms)),
	)
	return s.repo.GetFloorPlan(ctx, id)
}

// ListVersions 平面图的所有版本（创建时间倒序）
func (s *VersionService) ListVersions(ctx context.Context, floorPlanID string) ([]*domain.Version, error) {
	if _, err := s.GetFloorPlan(ctx, floorPlanID); err != nil {
		return nil, err
	}
	versions, err := s.repo.ListVersions(ctx, floorPlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return versions, nil
}

// PendingVersions 待合并版本（优先级升序、创建时间升序）
func (s *VersionService) PendingVersions(ctx context.Context, floorPlanID string) ([]*domain.Version, error) {
	if _, err := s.GetFloorPlan(ctx, floorPlanID); err != nil {
		return nil, err
	}
	versions, err := s.repo.ListPendingVersions(ctx, floorPlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending versions: %w", err)
	}
	return versions, nil
}

// CreateVersionRequest 提交草稿版本请求
type CreateVersionRequest struct {
	FloorPlanID       string
	CreatorID         string
	Name              string
	Rooms             []domain.Room
	DeletedRoomIDs    []string
	ChangeDescription string
}

// CreateVersion 提交草稿版本；VersionNumber = 当前基线版本 + 1
func (s *VersionService) CreateVersion(ctx context.Context, req CreateVersionRequest) (*domain.Version, error) {
	creator, err := s.lookupEditor(ctx, req.CreatorID)
	if err != nil {
		return nil, err
	}
	base, err := s.GetFloorPlan(ctx, req.FloorPlanID)
	if err != nil {
		return nil, err
	}

	v := &domain.Version{
		FloorPlanID:       base.ID,
		VersionNumber:     base.Version + 1,
		Name:              strings.TrimSpace(req.Name),
		Rooms:             domain.CloneRooms(req.Rooms),
		DeletedRoomIDs:    req.DeletedRoomIDs,
		CreatorID:         creator.ID,
		CreatedAt:         s.now().UTC(),
		ChangeDescription: req.ChangeDescription,
		Status:            domain.VersionStatusDraft,
	}
	if v.Rooms == nil {
		v.Rooms = []domain.Room{}
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	id, err := s.repo.CreateVersion(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("failed to create version: %w", err)
	}
	s.logger.Info("Version created",
		zap.String("version_id", id),
		zap.String("floor_plan_id", base.ID),
		zap.String("created_by", creator.ID),
		zap.Int("room_count", len(v.Rooms)),
		zap.Int("deleted_count", len(v.DeletedRoomIDs)),
	)
	return s.repo.GetVersion(ctx, id)
}

// Analyze 对待合并版本做冲突分析，返回冲突报告
// 结果按 (平面图, 基线版本号, 待合并版本集合) 缓存
func (s *VersionService) Analyze(ctx context.Context, floorPlanID string) (*merge.ConflictReport, error) {
	base, pending, err := s.loadInputs(ctx, floorPlanID)
	if err != nil {
		return nil, err
	}

	key := analysisCacheKey(base, pending)
	if report, ok := s.cachedReport(ctx, key); ok {
		return report, nil
	}

	analysis, err := merge.Analyze(base, pending)
	if err != nil {
		return nil, err
	}
	report := merge.GenerateReport(analysis)
	s.storeReport(ctx, key, report)
	return report, nil
}

// ExportConflictReport 冲突报告导出为 xlsx
func (s *VersionService) ExportConflictReport(ctx context.Context, floorPlanID string) ([]byte, error) {
	report, err := s.Analyze(ctx, floorPlanID)
	if err != nil {
		return nil, err
	}
	data, err := export.ConflictReportXLSX(floorPlanID, report)
	if err != nil {
		return nil, fmt.Errorf("failed to export conflict report: %w", err)
	}
	return data, nil
}

// CompareVersions 两个版本的并排比较
func (s *VersionService) CompareVersions(ctx context.Context, versionID1, versionID2 string) (*merge.Comparison, error) {
	if versionID1 == "" || versionID2 == "" {
		return nil, &domain.ValidationError{Field: "v1, v2", Reason: "are required"}
	}

	var v1, v2 *domain.Version
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		v1, err = s.repo.GetVersion(gctx, versionID1)
		return err
	})
	g.Go(func() error {
		var err error
		v2, err = s.repo.GetVersion(gctx, versionID2)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merge.Compare(v1, v2), nil
}

// AutoMerge 自动合并平面图的全部待合并版本；仅 head editor / admin 可调用
// 存在冲突时返回 Success=false 的结果以及 domain.ErrConflictBlocked，基线与版本均不变
func (s *VersionService) AutoMerge(ctx context.Context, floorPlanID, actorID string) (*merge.MergeResult, error) {
	actor, err := s.authorize(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.autoMergeAs(ctx, floorPlanID, actor)
}

func (s *VersionService) autoMergeAs(ctx context.Context, floorPlanID string, actor *domain.Editor) (*merge.MergeResult, error) {
	release, err := s.locker.Acquire(ctx, floorPlanID)
	if err != nil {
		return nil, err
	}
	defer s.release(release, floorPlanID)

	base, pending, err := s.loadInputs(ctx, floorPlanID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, domain.ErrNoPendingVersions
	}

	result, err := merge.AutoMerge(base, pending)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		s.logger.Info("Auto-merge blocked by conflicts",
			zap.String("floor_plan_id", floorPlanID),
			zap.Int("conflict_count", len(result.Conflicts)),
		)
		return result, domain.ErrConflictBlocked
	}

	now := s.now().UTC()
	merged, err := lifecycle.MergeAll(pending, actor, now)
	if err != nil {
		return nil, err
	}
	fp := result.MergedFloorPlan
	fp.UpdatedAt = now

	err = s.repo.WithinTx(ctx, func(tx repository.MergeTx) error {
		if err := tx.SaveFloorPlan(ctx, fp, base.Version); err != nil {
			return err
		}
		for _, v := range merged {
			if err := tx.SaveVersionStatus(ctx, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to commit auto-merge",
			zap.String("floor_plan_id", floorPlanID),
			zap.Int("version_count", len(merged)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to commit auto-merge: %w", err)
	}

	s.logger.Info("Auto-merge committed",
		zap.String("floor_plan_id", floorPlanID),
		zap.Int("floor_plan_version", fp.Version),
		zap.Int("merged_version_count", result.MergedVersionCount),
		zap.Int("applied_change_count", len(result.AppliedChanges)),
		zap.Int("dropped_room_count", len(result.DroppedRooms)),
		zap.String("actor_id", actor.ID),
	)

	s.publish(ctx, domain.MergeEvent{
		Type:               domain.MergeEventAutoMerge,
		FloorPlanID:        floorPlanID,
		FloorPlanVersion:   fp.Version,
		VersionIDs:         versionIDs(merged),
		ActorID:            actor.ID,
		AppliedChangeCount: len(result.AppliedChanges),
		OccurredAt:         now,
	})
	return result, nil
}

// MergeVersionResult 手动合并结果
type MergeVersionResult struct {
	FloorPlan *domain.FloorPlan `json:"floor_plan"`
	Version   *domain.Version   `json:"version"`
}

// MergeVersion head editor 手动合并单个版本：把版本快照应用到当前基线
// 快照中的房间覆盖基线同 id 房间，新房间追加，tombstone 删除；快照中缺失的基线房间保留
func (s *VersionService) MergeVersion(ctx context.Context, versionID, actorID string) (*MergeVersionResult, error) {
	actor, err := s.authorize(ctx, actorID)
	if err != nil {
		return nil, err
	}
	v, err := s.repo.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CheckDraft(v); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, v.FloorPlanID)
	if err != nil {
		return nil, err
	}
	defer s.release(release, v.FloorPlanID)

	base, err := s.repo.GetFloorPlan(ctx, v.FloorPlanID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	mergedVersion, err := lifecycle.Merge(v, actor, now)
	if err != nil {
		return nil, err
	}

	fp := base.Clone()
	fp.Rooms = applySnapshot(base.Rooms, v)
	fp.Version = base.Version + 1
	fp.UpdatedAt = now
	if err := fp.Validate(); err != nil {
		return nil, err
	}

	err = s.repo.WithinTx(ctx, func(tx repository.MergeTx) error {
		if err := tx.SaveFloorPlan(ctx, fp, base.Version); err != nil {
			return err
		}
		return tx.SaveVersionStatus(ctx, mergedVersion)
	})
	if err != nil {
		s.logger.Error("Failed to commit version merge",
			zap.String("version_id", versionID),
			zap.String("floor_plan_id", v.FloorPlanID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to commit version merge: %w", err)
	}

	s.logger.Info("Version merged",
		zap.String("version_id", versionID),
		zap.String("floor_plan_id", fp.ID),
		zap.Int("floor_plan_version", fp.Version),
		zap.String("actor_id", actor.ID),
	)

	s.publish(ctx, domain.MergeEvent{
		Type:             domain.MergeEventMerge,
		FloorPlanID:      fp.ID,
		FloorPlanVersion: fp.Version,
		VersionIDs:       []string{versionID},
		ActorID:          actor.ID,
		OccurredAt:       now,
	})
	return &MergeVersionResult{FloorPlan: fp, Version: mergedVersion}, nil
}

// RejectVersion head editor 驳回版本
func (s *VersionService) RejectVersion(ctx context.Context, versionID, actorID, reason string) (*domain.Version, error) {
	actor, err := s.authorize(ctx, actorID)
	if err != nil {
		return nil, err
	}
	v, err := s.repo.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rejected, err := lifecycle.Reject(v, actor, strings.TrimSpace(reason), now)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithinTx(ctx, func(tx repository.MergeTx) error {
		return tx.SaveVersionStatus(ctx, rejected)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reject version: %w", err)
	}

	s.logger.Info("Version rejected",
		zap.String("version_id", versionID),
		zap.String("floor_plan_id", v.FloorPlanID),
		zap.String("actor_id", actor.ID),
		zap.String("reason", rejected.RejectReason),
	)

	s.publish(ctx, domain.MergeEvent{
		Type:        domain.MergeEventReject,
		FloorPlanID: v.FloorPlanID,
		VersionIDs:  []string{versionID},
		ActorID:     actor.ID,
		Reason:      rejected.RejectReason,
		OccurredAt:  now,
	})
	return rejected, nil
}

// ---- helpers ----

// lookupEditor 请求方必须是已知编辑者
func (s *VersionService) lookupEditor(ctx context.Context, editorID string) (*domain.Editor, error) {
	if editorID == "" {
		return nil, fmt.Errorf("missing caller identity: %w", domain.ErrUnauthorized)
	}
	editor, err := s.authority.Lookup(ctx, editorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("unknown editor %s: %w", editorID, domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to look up editor: %w", err)
	}
	return editor, nil
}

func (s *VersionService) authorize(ctx context.Context, actorID string) (*domain.Editor, error) {
	actor, err := s.lookupEditor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(actor); err != nil {
		return nil, err
	}
	return actor, nil
}

// loadInputs 并发读取基线与待合并版本
func (s *VersionService) loadInputs(ctx context.Context, floorPlanID string) (*domain.FloorPlan, []*domain.Version, error) {
	if floorPlanID == "" {
		return nil, nil, &domain.ValidationError{Field: "floor_plan_id", Reason: "is required"}
	}

	var (
		base    *domain.FloorPlan
		pending []*domain.Version
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		base, err = s.repo.GetFloorPlan(gctx, floorPlanID)
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = s.repo.ListPendingVersions(gctx, floorPlanID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return base, pending, nil
}

func (s *VersionService) release(release store.ReleaseFunc, floorPlanID string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := release(ctx); err != nil {
		s.logger.Warn("Failed to release merge lock", zap.String("floor_plan_id", floorPlanID), zap.Error(err))
	}
}

// publish 已提交后的通知，失败不影响结果
func (s *VersionService) publish(ctx context.Context, event domain.MergeEvent) {
	if s.events == nil || s.events.Len() == 0 {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	s.events.PublishMerge(pubCtx, event)
}

func (s *VersionService) cachedReport(ctx context.Context, key string) (*merge.ConflictReport, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrCacheMiss) {
			s.logger.Warn("Failed to read analysis cache", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var report merge.ConflictReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		s.logger.Warn("Discarding corrupt analysis cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &report, true
}

func (s *VersionService) storeReport(ctx context.Context, key string, report *merge.ConflictReport) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		s.logger.Warn("Failed to marshal conflict report", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, string(data), s.cacheTTL); err != nil {
		s.logger.Warn("Failed to write analysis cache", zap.String("key", key), zap.Error(err))
	}
}

// analysisCacheKey 基线版本号、待合并集合或创建者优先级变化都会换 key，无需主动失效
func analysisCacheKey(base *domain.FloorPlan, pending []*domain.Version) string {
	h := sha256.New()
	for _, v := range pending {
		fmt.Fprintf(h, "%s:%d", v.ID, v.CreatorPriority)
		h.Write([]byte{0})
	}
	return fmt.Sprintf("floorplan:analysis:%s:%d:%s", base.ID, base.Version, hex.EncodeToString(h.Sum(nil))[:16])
}

// applySnapshot 手动合并：快照覆盖 + 追加新房间 + tombstone 删除
func applySnapshot(baseRooms []domain.Room, v *domain.Version) []domain.Room {
	proposed := make(map[string]domain.Room, len(v.Rooms))
	for _, r := range v.Rooms {
		proposed[r.ID] = r
	}

	out := make([]domain.Room, 0, len(baseRooms)+len(v.Rooms))
	seen := make(map[string]struct{}, len(baseRooms))
	for _, r := range baseRooms {
		seen[r.ID] = struct{}{}
		if v.Deletes(r.ID) {
			continue
		}
		if p, ok := proposed[r.ID]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, r)
	}
	for _, r := range v.Rooms {
		if _, ok := seen[r.ID]; !ok {
			out = append(out, r)
		}
	}
	return out
}

func versionIDs(versions []*domain.Version) []string {
	ids := make([]string, 0, len(versions))
	for _, v := range versions {
		ids = append(ids, v.ID)
	}
	return ids
}
