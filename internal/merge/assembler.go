package merge

import "wisefido-floorplan/internal/domain"

// AutoMerge 分析并自动合并所有待合并版本
// 有冲突时返回 Success=false 的结果（这是预期结果而非异常），基线保持不变；
// 输入数据非法时返回 ValidationError。
func AutoMerge(base *domain.FloorPlan, pending []*domain.Version) (*MergeResult, error) {
	analysis, err := Analyze(base, pending)
	if err != nil {
		return nil, err
	}
	return Assemble(base, pending, analysis), nil
}

// Assemble 在基线副本上应用所有安全变更
//  1. 复制基线房间到工作集
//  2. 应用修改与删除；新增房间暂存
//  3. 新增房间逐个做空间冲突检测，冲突的丢弃（记录到 DroppedRooms）
//  4. 版本号 +1（无论合并了几个版本）
func Assemble(base *domain.FloorPlan, pending []*domain.Version, analysis *Analysis) *MergeResult {
	if analysis == nil || !analysis.CanAutoMerge {
		var conflicts []Change
		if analysis != nil {
			conflicts = analysis.Conflicts
		}
		return &MergeResult{
			Success:   false,
			Message:   domain.ErrConflictBlocked.Error(),
			Conflicts: conflicts,
		}
	}

	ws := newWorkingSet(base.Rooms)
	var additions []domain.Room
	handled := make(map[string]struct{}, len(analysis.SafeChanges))

	for _, change := range analysis.SafeChanges {
		handled[change.TargetRoomID()] = struct{}{}

		switch c := change.(type) {
		case SingleChange:
			switch c.Action {
			case ActionDelete:
				ws.remove(c.RoomID)
			case ActionAdd:
				additions = append(additions, c.Entry.Room)
			default:
				ws.set(c.Entry.Room)
			}
		case NonOverlapping:
			if c.IsNew {
				additions = append(additions, c.MergedRoom)
			} else {
				ws.set(c.MergedRoom)
			}
		case OverlappingResolved:
			if c.IsNew {
				additions = append(additions, c.Outcome.Winner.Room)
			} else {
				ws.set(c.Outcome.Winner.Room)
			}
		case DeletionConflict:
			// 冲突不会出现在安全变更中
		}
	}

	// 兜底：版本中出现但未被任何安全变更覆盖的新房间（重复出现是幂等的）
	for _, v := range pending {
		if v == nil {
			continue
		}
		for _, room := range v.Rooms {
			if _, ok := handled[room.ID]; ok {
				continue
			}
			handled[room.ID] = struct{}{}
			if !ws.has(room.ID) {
				additions = append(additions, room)
			}
		}
	}

	var dropped []domain.Room
	for _, room := range additions {
		if ws.has(room.ID) {
			continue
		}
		if Overlaps(room, ws.rooms()) {
			dropped = append(dropped, room)
			continue
		}
		ws.set(room)
	}

	merged := base.Clone()
	merged.Rooms = ws.rooms()
	merged.Version = base.Version + 1

	return &MergeResult{
		Success:            true,
		MergedFloorPlan:    merged,
		AppliedChanges:     analysis.SafeChanges,
		MergedVersionCount: countVersions(pending),
		DroppedRooms:       dropped,
	}
}

func countVersions(pending []*domain.Version) int {
	n := 0
	for _, v := range pending {
		if v != nil {
			n++
		}
	}
	return n
}

// workingSet 单次合并内部使用的房间集合（保持基线顺序，新增追加在后）
// 每次调用独立创建，不跨调用共享
type workingSet struct {
	order []string
	byID  map[string]domain.Room
}

func newWorkingSet(base []domain.Room) *workingSet {
	ws := &workingSet{
		order: make([]string, 0, len(base)),
		byID:  make(map[string]domain.Room, len(base)),
	}
	for _, r := range base {
		ws.set(r)
	}
	return ws
}

func (w *workingSet) has(id string) bool {
	_, ok := w.byID[id]
	return ok
}

func (w *workingSet) set(room domain.Room) {
	if !w.has(room.ID) {
		w.order = append(w.order, room.ID)
	}
	w.byID[room.ID] = room
}

func (w *workingSet) remove(id string) {
	if !w.has(id) {
		return
	}
	delete(w.byID, id)
	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

func (w *workingSet) rooms() []domain.Room {
	out := make([]domain.Room, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.byID[id])
	}
	return out
}
