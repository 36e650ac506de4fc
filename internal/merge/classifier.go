package merge

import (
	"fmt"

	"wisefido-floorplan/internal/domain"
)

// Analyze 分析基线与待合并版本之间的冲突
// 先校验输入（非法房间数据直接返回 ValidationError），然后按房间分类：
//   - 单一版本涉及：SingleChange（基线有则 modify，否则 add；显式删除则 delete）
//   - 多版本、属性不重叠：NonOverlapping
//   - 多版本、属性重叠：OverlappingResolved（按优先级 + 时间戳裁决）
//   - 显式删除与实际修改并存：DeletionConflict（不自动处理）
func Analyze(base *domain.FloorPlan, pending []*domain.Version) (*Analysis, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	for _, v := range pending {
		if err := v.Validate(); err != nil {
			return nil, err
		}
		if v.FloorPlanID != "" && v.FloorPlanID != base.ID {
			return nil, &domain.ValidationError{
				Field:  "version.floor_plan_id",
				Reason: fmt.Sprintf("version %s belongs to floor plan %s, not %s", v.ID, v.FloorPlanID, base.ID),
			}
		}
	}

	diff := ExtractDiff(base, pending)
	baseRooms := indexRooms(base)

	analysis := &Analysis{
		Conflicts:   []Change{},
		SafeChanges: []Change{},
	}

	for _, roomID := range diff.Order {
		entries := diff.Changes[roomID]
		deletions := diff.Deletions[roomID]
		baseRoom, inBase := baseRooms[roomID]

		if len(deletions) > 0 {
			// 只有基线中存在的房间才会有删除记录（见 ExtractDiff）
			if c, ok := classifyDeletion(roomID, baseRoom, entries, deletions); ok {
				analysis.SafeChanges = append(analysis.SafeChanges, c)
			} else {
				analysis.Conflicts = append(analysis.Conflicts, c)
			}
			continue
		}

		var basePtr *domain.Room
		if inBase {
			basePtr = &baseRoom
		}

		if len(entries) == 1 {
			action := ActionAdd
			if inBase {
				action = ActionModify
			}
			analysis.SafeChanges = append(analysis.SafeChanges, SingleChange{
				RoomID: roomID,
				Entry:  entries[0],
				Action: action,
			})
			continue
		}

		analysis.SafeChanges = append(analysis.SafeChanges, classifyGroup(roomID, basePtr, entries))
	}

	analysis.TotalConflicts = len(analysis.Conflicts)
	analysis.TotalSafeChanges = len(analysis.SafeChanges)
	analysis.CanAutoMerge = analysis.TotalConflicts == 0
	return analysis, nil
}

// classifyDeletion 处理被显式删除的房间
// 其他版本只是原样保留该房间（完整快照的常态）不算冲突；真正修改了它才算。
func classifyDeletion(roomID string, baseRoom domain.Room, entries, deletions []DiffEntry) (Change, bool) {
	var modifying []string
	for _, e := range entries {
		if len(modifiedProperties(&baseRoom, e.Room)) > 0 {
			modifying = append(modifying, e.VersionID)
		}
	}

	if len(modifying) == 0 {
		return SingleChange{
			RoomID: roomID,
			Entry:  deletions[0],
			Action: ActionDelete,
		}, true
	}

	deleting := make([]string, 0, len(deletions))
	for _, d := range deletions {
		deleting = append(deleting, d.VersionID)
	}
	return DeletionConflict{
		RoomID:              roomID,
		BaseRoom:            baseRoom,
		DeletingVersionIDs:  deleting,
		ModifyingVersionIDs: modifying,
	}, false
}

// classifyGroup 多个版本涉及同一房间
func classifyGroup(roomID string, baseRoom *domain.Room, entries []DiffEntry) Change {
	contributors := make(map[Property][]int)
	for i, e := range entries {
		for _, p := range modifiedProperties(baseRoom, e.Room) {
			contributors[p] = append(contributors[p], i)
		}
	}

	var overlapping []Property
	for _, p := range propertyOrder {
		if len(contributors[p]) > 1 {
			overlapping = append(overlapping, p)
		}
	}

	if len(overlapping) == 0 {
		return NonOverlapping{
			RoomID:     roomID,
			MergedRoom: mergeNonOverlapping(baseRoom, entries, contributors),
			Owners:     ownersOf(entries, contributors),
			IsNew:      baseRoom == nil,
		}
	}

	return OverlappingResolved{
		RoomID:     roomID,
		Outcome:    resolveContested(entries, overlapping, contributors),
		Properties: overlapping,
		IsNew:      baseRoom == nil,
	}
}

// resolveContested 只在重叠属性的修改者之间裁决；
// 原样保留房间或只改了其他属性的版本不参与，记为败者
func resolveContested(entries []DiffEntry, overlapping []Property, contributors map[Property][]int) ResolutionOutcome {
	contested := make([]bool, len(entries))
	for _, p := range overlapping {
		for _, i := range contributors[p] {
			contested[i] = true
		}
	}

	var candidates, bystanders []DiffEntry
	for i, e := range entries {
		if contested[i] {
			candidates = append(candidates, e)
		} else {
			bystanders = append(bystanders, e)
		}
	}

	outcome := Resolve(candidates)
	outcome.Losers = append(outcome.Losers, bystanders...)
	return outcome
}

// modifiedProperties 相对基线被修改的属性集合；基线没有该房间时为 {*}
func modifiedProperties(baseRoom *domain.Room, changed domain.Room) []Property {
	if baseRoom == nil {
		return []Property{PropertyAll}
	}
	var props []Property
	if baseRoom.X != changed.X || baseRoom.Y != changed.Y {
		props = append(props, PropertyPosition)
	}
	if baseRoom.Name != changed.Name {
		props = append(props, PropertyName)
	}
	if baseRoom.Type != changed.Type {
		props = append(props, PropertyType)
	}
	return props
}

// mergeNonOverlapping 以基线（没有基线则以第一个提议）为种子，逐属性合入各自的修改
// 所有版本都原样保留房间时，结果等于基线
func mergeNonOverlapping(baseRoom *domain.Room, entries []DiffEntry, contributors map[Property][]int) domain.Room {
	var merged domain.Room
	if baseRoom != nil {
		merged = *baseRoom
	} else {
		merged = entries[0].Room
	}

	for _, p := range propertyOrder {
		idx := contributors[p]
		if len(idx) == 0 {
			continue
		}
		src := entries[idx[0]].Room
		switch p {
		case PropertyPosition:
			merged.X = src.X
			merged.Y = src.Y
		case PropertyName:
			merged.Name = src.Name
		case PropertyType:
			merged.Type = src.Type
		case PropertyAll:
			merged = src
		}
	}
	return merged
}

func ownersOf(entries []DiffEntry, contributors map[Property][]int) []PropertyOwner {
	owners := []PropertyOwner{}
	for _, p := range propertyOrder {
		if idx := contributors[p]; len(idx) == 1 {
			owners = append(owners, PropertyOwner{Property: p, VersionID: entries[idx[0]].VersionID})
		}
	}
	return owners
}
