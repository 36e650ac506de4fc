package merge

import (
	"time"

	"wisefido-floorplan/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func room(id string, typ domain.RoomType, x, y float64, name string) domain.Room {
	return domain.Room{ID: id, Type: typ, X: x, Y: y, Name: name}
}

// baseFloorPlan 测试基线：版本号 3
func baseFloorPlan(rooms ...domain.Room) *domain.FloorPlan {
	return &domain.FloorPlan{
		ID:      "fp-1",
		Name:    "Level 1",
		Rooms:   rooms,
		Version: 3,
	}
}

func draft(id string, priority int, createdAt time.Time, rooms ...domain.Room) *domain.Version {
	return &domain.Version{
		ID:              id,
		FloorPlanID:     "fp-1",
		Rooms:           rooms,
		CreatorID:       "editor-" + id,
		CreatorName:     "Editor " + id,
		CreatorPriority: priority,
		CreatedAt:       createdAt,
		Status:          domain.VersionStatusDraft,
	}
}

func roomsByID(rooms []domain.Room) map[string]domain.Room {
	out := make(map[string]domain.Room, len(rooms))
	for _, r := range rooms {
		out[r.ID] = r
	}
	return out
}
