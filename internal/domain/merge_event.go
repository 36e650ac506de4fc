package domain

import "time"

// MergeEvent 合并/驳回事件（发布到 Redis Streams / MQTT）
type MergeEvent struct {
	Type               string    `json:"type"` // auto_merge / merge / reject
	FloorPlanID        string    `json:"floor_plan_id"`
	FloorPlanVersion   int       `json:"floor_plan_version"`
	VersionIDs         []string  `json:"version_ids"`
	ActorID            string    `json:"actor_id"`
	AppliedChangeCount int       `json:"applied_change_count"`
	Reason             string    `json:"reason,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

const (
	MergeEventAutoMerge = "auto_merge"
	MergeEventMerge     = "merge"
	MergeEventReject    = "reject"
)
