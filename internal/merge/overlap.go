package merge

import (
	"math"

	"wisefido-floorplan/internal/domain"
)

// OverlapPadding 现有房间四周的留白
const OverlapPadding = 10.0

// Overlaps 新房间是否与任一现有房间发生空间冲突
// 近似算法：轴对齐包围盒（尺寸取自房间尺寸表）+ 固定留白；
// 新房间中心落在现有房间中心 min(w,h)/3 范围内时不算冲突（该区域留给穿行使用）。
func Overlaps(candidate domain.Room, existing []domain.Room) bool {
	for _, room := range existing {
		if room.ID == candidate.ID {
			continue
		}
		if collides(candidate, room) {
			return true
		}
	}
	return false
}

func collides(candidate, existing domain.Room) bool {
	cd := candidate.Dimensions()
	ed := existing.Dimensions()

	left := existing.X - OverlapPadding
	right := existing.X + ed.Width + OverlapPadding
	top := existing.Y - OverlapPadding
	bottom := existing.Y + ed.Height + OverlapPadding

	// 贴边也算相交
	intersects := candidate.X <= right &&
		candidate.X+cd.Width >= left &&
		candidate.Y <= bottom &&
		candidate.Y+cd.Height >= top
	if !intersects {
		return false
	}

	cx, cy := candidate.Center()
	ex, ey := existing.Center()
	if math.Hypot(cx-ex, cy-ey) < math.Min(ed.Width, ed.Height)/3 {
		return false
	}
	return true
}
