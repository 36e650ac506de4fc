package merge

import "wisefido-floorplan/internal/domain"

// DiffMap 按房间 id 分组的所有提议
type DiffMap struct {
	// Order 房间 id 的首次出现顺序（保证遍历确定性）
	Order []string
	// Changes 房间 id -> 各版本提议的房间状态
	Changes map[string][]DiffEntry
	// Deletions 房间 id -> 显式删除（tombstone）该房间的版本；Room 为基线中的房间
	Deletions map[string][]DiffEntry
}

// Len 涉及的房间数
func (d *DiffMap) Len() int {
	return len(d.Order)
}

// Has 房间是否出现在任一版本中（提议或删除）
func (d *DiffMap) Has(roomID string) bool {
	_, ok1 := d.Changes[roomID]
	_, ok2 := d.Deletions[roomID]
	return ok1 || ok2
}

// ExtractDiff 扫描所有版本快照，按房间 id 分组
// 纯函数：不修改 base 与 pending；允许版本的房间列表为空
func ExtractDiff(base *domain.FloorPlan, pending []*domain.Version) *DiffMap {
	diff := &DiffMap{
		Order:     []string{},
		Changes:   make(map[string][]DiffEntry),
		Deletions: make(map[string][]DiffEntry),
	}

	baseRooms := indexRooms(base)
	seen := make(map[string]struct{})
	touch := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			diff.Order = append(diff.Order, id)
		}
	}

	for _, v := range pending {
		if v == nil {
			continue
		}
		for _, room := range v.Rooms {
			touch(room.ID)
			diff.Changes[room.ID] = append(diff.Changes[room.ID], entryFor(v, room))
		}
		for _, id := range v.DeletedRoomIDs {
			baseRoom, ok := baseRooms[id]
			if !ok {
				// 删除基线中不存在的房间没有意义，忽略
				continue
			}
			touch(id)
			diff.Deletions[id] = append(diff.Deletions[id], entryFor(v, baseRoom))
		}
	}

	return diff
}

func entryFor(v *domain.Version, room domain.Room) DiffEntry {
	return DiffEntry{
		Room:           room,
		VersionID:      v.ID,
		CreatorID:      v.CreatorID,
		CreatorName:    v.CreatorName,
		Priority:       v.CreatorPriority,
		CreatedAtEpoch: v.CreatedAtEpoch(),
	}
}

func indexRooms(fp *domain.FloorPlan) map[string]domain.Room {
	if fp == nil {
		return map[string]domain.Room{}
	}
	out := make(map[string]domain.Room, len(fp.Rooms))
	for _, r := range fp.Rooms {
		out[r.ID] = r
	}
	return out
}
