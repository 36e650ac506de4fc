package domain

import "fmt"

// RoomType 房间类型（决定房间尺寸，同时也是可合并的属性）
type RoomType string

const (
	RoomTypeMeetingRoom    RoomType = "meeting_room"
	RoomTypeConferenceRoom RoomType = "conference_room"
	RoomTypeWashroom       RoomType = "washroom"
	RoomTypeStairs         RoomType = "stairs"
	RoomTypeElevator       RoomType = "elevator"
	RoomTypeStaffRoom      RoomType = "staff_room"
	RoomTypePantry         RoomType = "pantry"
	RoomTypeStorage        RoomType = "storage"
)

// Dimension 房间尺寸
type Dimension struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// defaultDimension 未知类型的兜底尺寸（仅用于几何计算，校验阶段会先拒绝未知类型）
var defaultDimension = Dimension{Width: 100, Height: 100}

// roomDimensions 房间尺寸表（与前端 ROOM_TYPES 保持一致）
var roomDimensions = map[RoomType]Dimension{
	RoomTypeMeetingRoom:    {Width: 150, Height: 100},
	RoomTypeConferenceRoom: {Width: 200, Height: 150},
	RoomTypeWashroom:       {Width: 80, Height: 80},
	RoomTypeStairs:         {Width: 100, Height: 60},
	RoomTypeElevator:       {Width: 80, Height: 80},
	RoomTypeStaffRoom:      {Width: 120, Height: 100},
	RoomTypePantry:         {Width: 100, Height: 80},
	RoomTypeStorage:        {Width: 90, Height: 90},
}

// Valid 是否为已知房间类型
func (t RoomType) Valid() bool {
	_, ok := roomDimensions[t]
	return ok
}

// Dimensions 查询房间尺寸
func Dimensions(t RoomType) Dimension {
	if d, ok := roomDimensions[t]; ok {
		return d
	}
	return defaultDimension
}

// RoomTypes 返回所有已知类型（顺序固定）
func RoomTypes() []RoomType {
	return []RoomType{
		RoomTypeMeetingRoom,
		RoomTypeConferenceRoom,
		RoomTypeWashroom,
		RoomTypeStairs,
		RoomTypeElevator,
		RoomTypeStaffRoom,
		RoomTypePantry,
		RoomTypeStorage,
	}
}

// Room 房间（以 id 作为身份）
type Room struct {
	ID   string   `json:"id"`
	Type RoomType `json:"type"`
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
	Name string   `json:"name"`
}

// Dimensions 当前房间的尺寸
func (r Room) Dimensions() Dimension {
	return Dimensions(r.Type)
}

// Center 房间中心点
func (r Room) Center() (float64, float64) {
	d := r.Dimensions()
	return r.X + d.Width/2, r.Y + d.Height/2
}

// Validate 校验房间数据（缺少 id / 未知类型直接失败）
func (r Room) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "room.id", Reason: "is required"}
	}
	if !r.Type.Valid() {
		return &ValidationError{Field: "room.type", Reason: fmt.Sprintf("unknown room type %q for room %s", r.Type, r.ID)}
	}
	return nil
}

// ValidateRooms 校验房间集合：每个房间合法，且 id 唯一
func ValidateRooms(rooms []Room) error {
	seen := make(map[string]struct{}, len(rooms))
	for _, room := range rooms {
		if err := room.Validate(); err != nil {
			return err
		}
		if _, dup := seen[room.ID]; dup {
			return &ValidationError{Field: "rooms", Reason: fmt.Sprintf("duplicate room id %s", room.ID)}
		}
		seen[room.ID] = struct{}{}
	}
	return nil
}

// CloneRooms 复制房间切片（Room 为值类型，浅拷贝即可）
func CloneRooms(rooms []Room) []Room {
	if rooms == nil {
		return []Room{}
	}
	out := make([]Room, len(rooms))
	copy(out, rooms)
	return out
}
