package merge

import "fmt"

// ResolutionReason 胜者判定原因
type ResolutionReason string

const (
	// ReasonHigherPriority 挑战者优先级数值更小
	ReasonHigherPriority ResolutionReason = "higher_priority"
	// ReasonLatestTimestamp 优先级相同，挑战者时间戳更晚
	ReasonLatestTimestamp ResolutionReason = "latest_timestamp_same_priority"
	// ReasonFirstSeen 没有挑战者能取代第一个提议者（优先级与时间戳都相同时保留先出现者）
	ReasonFirstSeen ResolutionReason = "highest_priority_first_seen"
)

// ResolutionOutcome 冲突裁决结果（不可变值，不回写到输入）
type ResolutionOutcome struct {
	Winner DiffEntry        `json:"winner"`
	Losers []DiffEntry      `json:"losers"`
	Reason ResolutionReason `json:"reason"`
	Detail string           `json:"detail"`
}

// Resolve 按优先级 + 时间戳选出胜者
// 单次线性扫描：优先级数值更小者胜；优先级相同则时间戳严格更晚者胜；
// 时间戳更早或相同不会取代当前胜者。entries 不能为空。
func Resolve(entries []DiffEntry) ResolutionOutcome {
	if len(entries) == 0 {
		return ResolutionOutcome{}
	}

	winnerIdx := 0
	reason := ReasonFirstSeen
	detail := fmt.Sprintf("%s (%d)", ReasonFirstSeen, entries[0].Priority)

	for i := 1; i < len(entries); i++ {
		challenger := entries[i]
		current := entries[winnerIdx]

		switch {
		case challenger.Priority < current.Priority:
			winnerIdx = i
			reason = ReasonHigherPriority
			detail = fmt.Sprintf("%s (%d vs %d)", ReasonHigherPriority, challenger.Priority, current.Priority)
		case challenger.Priority == current.Priority && challenger.CreatedAtEpoch > current.CreatedAtEpoch:
			winnerIdx = i
			reason = ReasonLatestTimestamp
			detail = fmt.Sprintf("%s (priority %d)", ReasonLatestTimestamp, challenger.Priority)
		}
	}

	losers := make([]DiffEntry, 0, len(entries)-1)
	for i, e := range entries {
		if i != winnerIdx {
			losers = append(losers, e)
		}
	}

	return ResolutionOutcome{
		Winner: entries[winnerIdx],
		Losers: losers,
		Reason: reason,
		Detail: detail,
	}
}
