package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wisefido-floorplan/internal/domain"

	"github.com/google/uuid"
)

// MemoryStore DB 未就绪时使用的内存实现（本地联调与服务层测试）
// - IDs 使用 uuid
// - 读写都做深拷贝，调用方拿到的值与内部状态互不影响
// - WithinTx 持有写锁，fn 成功后才把暂存的写入应用到内部状态
type MemoryStore struct {
	mu sync.RWMutex

	floorPlans map[string]*domain.FloorPlan
	versions   map[string]*domain.Version
	editors    map[string]*domain.Editor
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		floorPlans: map[string]*domain.FloorPlan{},
		versions:   map[string]*domain.Version{},
		editors:    map[string]*domain.Editor{},
	}
}

var _ Store = (*MemoryStore)(nil)

// ---- floor plans ----

func (s *MemoryStore) GetFloorPlan(_ context.Context, floorPlanID string) (*domain.FloorPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fp, ok := s.floorPlans[floorPlanID]
	if !ok {
		return nil, fmt.Errorf("floor plan %s: %w", floorPlanID, domain.ErrNotFound)
	}
	return fp.Clone(), nil
}

func (s *MemoryStore) ListFloorPlans(_ context.Context) ([]*domain.FloorPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.FloorPlan, 0, len(s.floorPlans))
	for _, fp := range s.floorPlans {
		out = append(out, fp.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.BuildingName != b.BuildingName {
			return a.BuildingName < b.BuildingName
		}
		if a.FloorNumber != b.FloorNumber {
			return a.FloorNumber < b.FloorNumber
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *MemoryStore) CreateFloorPlan(_ context.Context, fp *domain.FloorPlan) (string, error) {
	if err := domain.ValidateRooms(fp.Rooms); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := fp.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := s.floorPlans[c.ID]; exists {
		return "", &domain.ValidationError{Field: "floor_plan.id", Reason: fmt.Sprintf("%s already exists", c.ID)}
	}
	if c.Version <= 0 {
		c.Version = 1
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	s.floorPlans[c.ID] = c
	return c.ID, nil
}

func (s *MemoryStore) ListFloorPlansWithPending(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	ids := []string{}
	for _, v := range s.versions {
		if v.Status != domain.VersionStatusDraft {
			continue
		}
		if _, ok := seen[v.FloorPlanID]; !ok {
			seen[v.FloorPlanID] = struct{}{}
			ids = append(ids, v.FloorPlanID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ---- versions ----

func (s *MemoryStore) GetVersion(_ context.Context, versionID string) (*domain.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.versions[versionID]
	if !ok {
		return nil, fmt.Errorf("version %s: %w", versionID, domain.ErrNotFound)
	}
	return s.withCreator(v), nil
}

func (s *MemoryStore) ListVersions(_ context.Context, floorPlanID string) ([]*domain.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.filterVersions(floorPlanID, false)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) ListPendingVersions(_ context.Context, floorPlanID string) ([]*domain.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.filterVersions(floorPlanID, true)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatorPriority != out[j].CreatorPriority {
			return out[i].CreatorPriority < out[j].CreatorPriority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) CreateVersion(_ context.Context, v *domain.Version) (string, error) {
	if v.FloorPlanID == "" {
		return "", &domain.ValidationError{Field: "floor_plan_id", Reason: "is required"}
	}
	if v.CreatorID == "" {
		return "", &domain.ValidationError{Field: "created_by", Reason: "is required"}
	}
	if err := v.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.floorPlans[v.FloorPlanID]; !ok {
		return "", fmt.Errorf("floor plan %s: %w", v.FloorPlanID, domain.ErrNotFound)
	}

	c := v.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Status = domain.VersionStatusDraft
	s.versions[c.ID] = c
	return c.ID, nil
}

// filterVersions 调用方需持有读锁；结果已按 ID 排序，保证后续稳定排序的确定性
func (s *MemoryStore) filterVersions(floorPlanID string, draftOnly bool) []*domain.Version {
	out := []*domain.Version{}
	for _, v := range s.versions {
		if v.FloorPlanID != floorPlanID {
			continue
		}
		if draftOnly && v.Status != domain.VersionStatusDraft {
			continue
		}
		out = append(out, s.withCreator(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// withCreator 与 Postgres 的 LEFT JOIN editors 行为一致
func (s *MemoryStore) withCreator(v *domain.Version) *domain.Version {
	c := v.Clone()
	if e, ok := s.editors[v.CreatorID]; ok {
		c.CreatorName = e.Name
		c.CreatorPriority = e.Priority
	} else {
		c.CreatorName = ""
		c.CreatorPriority = unknownEditorPriority
	}
	return c
}

// ---- editors ----

func (s *MemoryStore) GetEditor(_ context.Context, editorID string) (*domain.Editor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.editors[editorID]
	if !ok {
		return nil, fmt.Errorf("editor %s: %w", editorID, domain.ErrNotFound)
	}
	c := *e
	return &c, nil
}

func (s *MemoryStore) UpsertEditor(_ context.Context, e *domain.Editor) error {
	if e == nil || e.ID == "" {
		return &domain.ValidationError{Field: "editor.id", Reason: "is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *e
	s.editors[e.ID] = &c
	return nil
}

// ---- transactions ----

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx MergeTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryMergeTx{
		store:      s,
		floorPlans: map[string]*domain.FloorPlan{},
		versions:   map[string]*domain.Version{},
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for id, fp := range tx.floorPlans {
		s.floorPlans[id] = fp
	}
	for id, v := range tx.versions {
		s.versions[id] = v
	}
	return nil
}

// memoryMergeTx 暂存写入；WithinTx 已持有写锁
type memoryMergeTx struct {
	store      *MemoryStore
	floorPlans map[string]*domain.FloorPlan
	versions   map[string]*domain.Version
}

func (t *memoryMergeTx) SaveFloorPlan(_ context.Context, fp *domain.FloorPlan, expectedVersion int) error {
	current, ok := t.floorPlans[fp.ID]
	if !ok {
		current, ok = t.store.floorPlans[fp.ID]
	}
	if !ok || current.Version != expectedVersion {
		return fmt.Errorf("floor plan %s expected version %d: %w", fp.ID, expectedVersion, domain.ErrStaleFloorPlan)
	}
	c := fp.Clone()
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	t.floorPlans[fp.ID] = c
	return nil
}

func (t *memoryMergeTx) SaveVersionStatus(_ context.Context, v *domain.Version) error {
	current, ok := t.versions[v.ID]
	if !ok {
		current, ok = t.store.versions[v.ID]
	}
	if !ok || current.Status != domain.VersionStatusDraft {
		return fmt.Errorf("version %s: %w", v.ID, domain.ErrVersionNotDraft)
	}

	c := current.Clone()
	c.Status = v.Status
	c.MergedAt = v.MergedAt
	c.MergedBy = v.MergedBy
	c.RejectedAt = v.RejectedAt
	c.RejectedBy = v.RejectedBy
	c.RejectReason = v.RejectReason
	t.versions[v.ID] = c.Clone()
	return nil
}
