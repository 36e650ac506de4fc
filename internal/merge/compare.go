package merge

import "wisefido-floorplan/internal/domain"

// RoomDifference 两个版本中同一房间的差异
type RoomDifference struct {
	RoomID      string      `json:"room_id"`
	Version1    domain.Room `json:"version1"`
	Version2    domain.Room `json:"version2"`
	Differences []Property  `json:"differences"`
}

// Comparison 两个版本的并排比较
type Comparison struct {
	Version1ID      string           `json:"version1_id"`
	Version2ID      string           `json:"version2_id"`
	AddedInVersion1 []domain.Room    `json:"added_in_version1"`
	AddedInVersion2 []domain.Room    `json:"added_in_version2"`
	ModifiedRooms   []RoomDifference `json:"modified_rooms"`
}

// Compare 比较两个版本快照：各自独有的房间，以及共有房间的属性差异
func Compare(v1, v2 *domain.Version) *Comparison {
	cmp := &Comparison{
		AddedInVersion1: []domain.Room{},
		AddedInVersion2: []domain.Room{},
		ModifiedRooms:   []RoomDifference{},
	}
	if v1 == nil || v2 == nil {
		return cmp
	}
	cmp.Version1ID = v1.ID
	cmp.Version2ID = v2.ID

	rooms2 := make(map[string]domain.Room, len(v2.Rooms))
	for _, r := range v2.Rooms {
		rooms2[r.ID] = r
	}
	rooms1 := make(map[string]struct{}, len(v1.Rooms))

	for _, r1 := range v1.Rooms {
		rooms1[r1.ID] = struct{}{}
		r2, ok := rooms2[r1.ID]
		if !ok {
			cmp.AddedInVersion1 = append(cmp.AddedInVersion1, r1)
			continue
		}
		if diffs := modifiedProperties(&r1, r2); len(diffs) > 0 {
			cmp.ModifiedRooms = append(cmp.ModifiedRooms, RoomDifference{
				RoomID:      r1.ID,
				Version1:    r1,
				Version2:    r2,
				Differences: diffs,
			})
		}
	}
	for _, r2 := range v2.Rooms {
		if _, ok := rooms1[r2.ID]; !ok {
			cmp.AddedInVersion2 = append(cmp.AddedInVersion2, r2)
		}
	}
	return cmp
}
