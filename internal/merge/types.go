// Package merge 平面图版本冲突检测与合并引擎
//
// 引擎是纯计算：输入基线平面图与待合并版本快照，输出冲突分析或合并结果。
// 不做任何 I/O，也不在调用之间保留状态；并发控制与持久化由调用方（service 层）负责。
package merge

import "wisefido-floorplan/internal/domain"

// Property 可合并的房间属性
type Property string

const (
	PropertyPosition Property = "position"
	PropertyName     Property = "name"
	PropertyType     Property = "type"
	// PropertyAll 基线中没有该房间时，所有属性都视为新的
	PropertyAll Property = "*"
)

// propertyOrder 固定的属性遍历顺序
var propertyOrder = []Property{PropertyPosition, PropertyName, PropertyType, PropertyAll}

// DiffEntry 某个版本对某个房间的一次提议
type DiffEntry struct {
	Room           domain.Room `json:"room"`
	VersionID      string      `json:"version_id"`
	CreatorID      string      `json:"creator_id"`
	CreatorName    string      `json:"creator_name,omitempty"`
	Priority       int         `json:"priority"`
	CreatedAtEpoch int64       `json:"created_at_epoch"` // 毫秒
}

// Action 单一变更的动作
type Action string

const (
	ActionAdd    Action = "add"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
)

// Kind 变更/冲突类型
type Kind string

const (
	KindSingleChange        Kind = "single_change"
	KindNonOverlapping      Kind = "merge_properties"
	KindOverlappingResolved Kind = "priority_timestamp"
	KindDeletionConflict    Kind = "deletion_conflict"
)

// Change 按房间归类后的结果（封闭的 tagged union）
// 只有本包内的四种类型实现该接口：SingleChange / NonOverlapping / OverlappingResolved / DeletionConflict
type Change interface {
	Kind() Kind
	TargetRoomID() string
	sealed()
}

// SingleChange 只有一个版本涉及该房间
type SingleChange struct {
	RoomID string    `json:"room_id"`
	Entry  DiffEntry `json:"change"`
	Action Action    `json:"action"`
}

// PropertyOwner 非重叠合并中某属性的来源版本
type PropertyOwner struct {
	Property  Property `json:"property"`
	VersionID string   `json:"version_id"`
}

// NonOverlapping 多个版本修改了同一房间的不同属性，按属性合并
type NonOverlapping struct {
	RoomID     string          `json:"room_id"`
	MergedRoom domain.Room     `json:"merged_room"`
	Owners     []PropertyOwner `json:"owners"`
	IsNew      bool            `json:"is_new"`
}

// OverlappingResolved 多个版本修改了同一属性，按优先级 + 时间戳决出胜者
type OverlappingResolved struct {
	RoomID     string            `json:"room_id"`
	Outcome    ResolutionOutcome `json:"outcome"`
	Properties []Property        `json:"properties"` // 被多个版本同时修改的属性
	IsNew      bool              `json:"is_new"`
}

// DeletionConflict 一个版本删除了房间，另一个版本修改了它；必须人工处理
type DeletionConflict struct {
	RoomID              string      `json:"room_id"`
	BaseRoom            domain.Room `json:"base_room"`
	DeletingVersionIDs  []string    `json:"deleting_version_ids"`
	ModifyingVersionIDs []string    `json:"modifying_version_ids"`
}

func (c SingleChange) Kind() Kind        { return KindSingleChange }
func (c NonOverlapping) Kind() Kind      { return KindNonOverlapping }
func (c OverlappingResolved) Kind() Kind { return KindOverlappingResolved }
func (c DeletionConflict) Kind() Kind    { return KindDeletionConflict }

func (c SingleChange) TargetRoomID() string        { return c.RoomID }
func (c NonOverlapping) TargetRoomID() string      { return c.RoomID }
func (c OverlappingResolved) TargetRoomID() string { return c.RoomID }
func (c DeletionConflict) TargetRoomID() string    { return c.RoomID }

func (SingleChange) sealed()        {}
func (NonOverlapping) sealed()      {}
func (OverlappingResolved) sealed() {}
func (DeletionConflict) sealed()    {}

// Analysis 冲突分析结果
type Analysis struct {
	Conflicts        []Change `json:"conflicts"`
	SafeChanges      []Change `json:"safe_changes"`
	CanAutoMerge     bool     `json:"can_auto_merge"`
	TotalConflicts   int      `json:"total_conflicts"`
	TotalSafeChanges int      `json:"total_safe_changes"`
}

// MergeResult 自动合并结果
// Success=false 时只有 Message / Conflicts 有值，基线未被修改
type MergeResult struct {
	Success            bool              `json:"success"`
	Message            string            `json:"message,omitempty"`
	Conflicts          []Change          `json:"conflicts,omitempty"`
	MergedFloorPlan    *domain.FloorPlan `json:"merged_floor_plan,omitempty"`
	AppliedChanges     []Change          `json:"applied_changes,omitempty"`
	MergedVersionCount int               `json:"merged_version_count"`
	// DroppedRooms 与现有房间空间冲突而未加入的新房间
	DroppedRooms []domain.Room `json:"dropped_rooms,omitempty"`
}
