package domain

import "time"

// FloorPlan 平面图领域模型（对应 floor_plans 表）
// 代表最近一次达成一致的规范布局；只有合并成功时才会被修改
type FloorPlan struct {
	ID           string    `json:"id" db:"floor_plan_id"`
	Name         string    `json:"name" db:"name"`
	BuildingName string    `json:"building_name,omitempty" db:"building_name"`
	FloorNumber  int       `json:"floor_number" db:"floor_number"`
	Rooms        []Room    `json:"rooms" db:"rooms"`     // JSONB，按 id 唯一
	Version      int       `json:"version" db:"version"` // 每次合并 +1
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Clone 深拷贝（分析阶段不得修改基线）
func (f *FloorPlan) Clone() *FloorPlan {
	if f == nil {
		return nil
	}
	out := *f
	out.Rooms = CloneRooms(f.Rooms)
	return &out
}

// RoomByID 按 id 查找房间
func (f *FloorPlan) RoomByID(id string) (Room, bool) {
	for _, r := range f.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}

// Validate 校验基线数据
func (f *FloorPlan) Validate() error {
	if f == nil {
		return &ValidationError{Field: "floor_plan", Reason: "is required"}
	}
	if f.ID == "" {
		return &ValidationError{Field: "floor_plan.id", Reason: "is required"}
	}
	return ValidateRooms(f.Rooms)
}
