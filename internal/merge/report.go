package merge

import "fmt"

// ConflictReport 面向界面的冲突报告
type ConflictReport struct {
	Summary     ReportSummary  `json:"summary"`
	Conflicts   []ConflictItem `json:"conflicts"`
	SafeChanges []ChangeItem   `json:"safe_changes"`
}

// ReportSummary 汇总
type ReportSummary struct {
	TotalConflicts   int  `json:"total_conflicts"`
	TotalSafeChanges int  `json:"total_safe_changes"`
	CanAutoMerge     bool `json:"can_auto_merge"`
}

// ConflictItem 单个冲突
type ConflictItem struct {
	Type                Kind     `json:"type"`
	RoomID              string   `json:"room_id"`
	Description         string   `json:"description"`
	NeedsManualReview   bool     `json:"needs_manual_review"`
	SuggestedResolution string   `json:"suggested_resolution,omitempty"`
	VersionIDs          []string `json:"version_ids,omitempty"`
}

// ChangeItem 单个安全变更
type ChangeItem struct {
	Type        Kind     `json:"type"`
	RoomID      string   `json:"room_id"`
	Action      Action   `json:"action,omitempty"`
	Description string   `json:"description"`
	VersionIDs  []string `json:"version_ids,omitempty"`
}

// GenerateReport 把分析结果投影为可读报告
func GenerateReport(analysis *Analysis) *ConflictReport {
	report := &ConflictReport{
		Conflicts:   []ConflictItem{},
		SafeChanges: []ChangeItem{},
	}
	if analysis == nil {
		report.Summary.CanAutoMerge = true
		return report
	}

	report.Summary = ReportSummary{
		TotalConflicts:   analysis.TotalConflicts,
		TotalSafeChanges: analysis.TotalSafeChanges,
		CanAutoMerge:     analysis.CanAutoMerge,
	}
	report.Conflicts = DescribeConflicts(analysis.Conflicts)
	for _, c := range analysis.SafeChanges {
		report.SafeChanges = append(report.SafeChanges, describeChange(c))
	}
	return report
}

// DescribeConflicts 冲突列表转为报告条目（合并失败时返回给调用方）
func DescribeConflicts(conflicts []Change) []ConflictItem {
	items := make([]ConflictItem, 0, len(conflicts))
	for _, c := range conflicts {
		items = append(items, describeConflict(c))
	}
	return items
}

func describeConflict(change Change) ConflictItem {
	item := ConflictItem{
		Type:              change.Kind(),
		RoomID:            change.TargetRoomID(),
		NeedsManualReview: true,
	}

	switch c := change.(type) {
	case DeletionConflict:
		item.Description = "Room deleted in one version, modified in another"
		item.SuggestedResolution = fmt.Sprintf("reject either the deleting versions %v or the modifying versions %v", c.DeletingVersionIDs, c.ModifyingVersionIDs)
		item.VersionIDs = append(append([]string{}, c.DeletingVersionIDs...), c.ModifyingVersionIDs...)
	case OverlappingResolved:
		item.Description = "Multiple editors modified the same room properties"
		item.NeedsManualReview = false
		item.SuggestedResolution = fmt.Sprintf("apply version %s (%s)", c.Outcome.Winner.VersionID, c.Outcome.Detail)
		item.VersionIDs = outcomeVersionIDs(c.Outcome)
	case NonOverlapping:
		item.Description = "Multiple editors modified different room properties"
		item.NeedsManualReview = false
	case SingleChange:
		item.Description = "Single editor change"
		item.NeedsManualReview = false
	}
	return item
}

func describeChange(change Change) ChangeItem {
	item := ChangeItem{
		Type:   change.Kind(),
		RoomID: change.TargetRoomID(),
	}

	switch c := change.(type) {
	case SingleChange:
		item.Action = c.Action
		item.VersionIDs = []string{c.Entry.VersionID}
		by := c.Entry.CreatorName
		if by == "" {
			by = c.Entry.CreatorID
		}
		switch c.Action {
		case ActionAdd:
			item.Description = fmt.Sprintf("New room added by %s", by)
		case ActionDelete:
			item.Description = fmt.Sprintf("Room deleted by %s", by)
		default:
			item.Description = fmt.Sprintf("Room modified by %s", by)
		}
	case OverlappingResolved:
		item.Description = fmt.Sprintf("Resolved using %s", c.Outcome.Detail)
		item.VersionIDs = outcomeVersionIDs(c.Outcome)
	case NonOverlapping:
		item.Description = "Merged non-overlapping changes to room"
		for _, o := range c.Owners {
			item.VersionIDs = append(item.VersionIDs, o.VersionID)
		}
	case DeletionConflict:
		item.Description = "Room deleted in one version, modified in another"
	}
	return item
}

func outcomeVersionIDs(o ResolutionOutcome) []string {
	ids := []string{o.Winner.VersionID}
	for _, l := range o.Losers {
		ids = append(ids, l.VersionID)
	}
	return ids
}
