package domain

import (
	"fmt"
	"time"
)

// VersionStatus 版本状态：draft -> merged | rejected（单向）
type VersionStatus string

const (
	VersionStatusDraft    VersionStatus = "draft"
	VersionStatusMerged   VersionStatus = "merged"
	VersionStatusRejected VersionStatus = "rejected"
)

// IsTerminal 是否为终态
func (s VersionStatus) IsTerminal() bool {
	return s == VersionStatusMerged || s == VersionStatusRejected
}

// Valid 是否为已知状态
func (s VersionStatus) Valid() bool {
	switch s {
	case VersionStatusDraft, VersionStatusMerged, VersionStatusRejected:
		return true
	}
	return false
}

// Version 编辑者提交的草稿版本（对应 floor_plan_versions 表）
// Rooms 为完整快照而非增量；创建后除状态与合并/驳回元数据外不可变
type Version struct {
	ID            string `json:"id" db:"version_id"`
	FloorPlanID   string `json:"floor_plan_id" db:"floor_plan_id"`
	VersionNumber int    `json:"version_number" db:"version_number"`
	Name          string `json:"name" db:"name"`
	Rooms         []Room `json:"rooms" db:"rooms"` // JSONB

	// DeletedRoomIDs 显式删除标记（tombstone）
	// 快照中缺失某个房间不视为删除，只有列在这里才算
	DeletedRoomIDs []string `json:"deleted_room_ids,omitempty" db:"deleted_room_ids"`

	CreatorID         string    `json:"created_by" db:"created_by"`
	CreatorName       string    `json:"creator_name,omitempty"`
	CreatorPriority   int       `json:"creator_priority"` // 数值越小权限越高，1 = head editor
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	ChangeDescription string    `json:"change_description,omitempty" db:"change_description"`

	Status       VersionStatus `json:"status" db:"status"`
	MergedAt     *time.Time    `json:"merged_at,omitempty" db:"merged_at"`
	MergedBy     string        `json:"merged_by,omitempty" db:"merged_by"`
	RejectedAt   *time.Time    `json:"rejected_at,omitempty" db:"rejected_at"`
	RejectedBy   string        `json:"rejected_by,omitempty" db:"rejected_by"`
	RejectReason string        `json:"reject_reason,omitempty" db:"reject_reason"`
}

// Clone 复制版本（状态迁移返回新值，不修改输入）
func (v *Version) Clone() *Version {
	if v == nil {
		return nil
	}
	out := *v
	out.Rooms = CloneRooms(v.Rooms)
	if v.DeletedRoomIDs != nil {
		out.DeletedRoomIDs = append([]string(nil), v.DeletedRoomIDs...)
	}
	if v.MergedAt != nil {
		t := *v.MergedAt
		out.MergedAt = &t
	}
	if v.RejectedAt != nil {
		t := *v.RejectedAt
		out.RejectedAt = &t
	}
	return &out
}

// Deletes 该版本是否显式删除了指定房间
func (v *Version) Deletes(roomID string) bool {
	for _, id := range v.DeletedRoomIDs {
		if id == roomID {
			return true
		}
	}
	return false
}

// CreatedAtEpoch 创建时间（毫秒）
func (v *Version) CreatedAtEpoch() int64 {
	return v.CreatedAt.UnixMilli()
}

// Validate 校验版本快照
func (v *Version) Validate() error {
	if v == nil {
		return &ValidationError{Field: "version", Reason: "is required"}
	}
	if err := ValidateRooms(v.Rooms); err != nil {
		return fmt.Errorf("version %s: %w", v.ID, err)
	}
	present := make(map[string]struct{}, len(v.Rooms))
	for _, r := range v.Rooms {
		present[r.ID] = struct{}{}
	}
	for _, id := range v.DeletedRoomIDs {
		if id == "" {
			return &ValidationError{Field: "deleted_room_ids", Reason: "contains empty id"}
		}
		if _, ok := present[id]; ok {
			return &ValidationError{Field: "deleted_room_ids", Reason: fmt.Sprintf("room %s is both proposed and deleted in version %s", id, v.ID)}
		}
	}
	return nil
}
