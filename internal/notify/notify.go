// Package notify 合并事件的下游通知（Redis Streams、MQTT）
package notify

import (
	"context"

	"wisefido-floorplan/internal/domain"

	"go.uber.org/zap"
)

// Publisher 合并事件发布者
type Publisher interface {
	PublishMerge(ctx context.Context, event domain.MergeEvent) error
	Name() string
}

// Multi 依次发布到所有下游；单个失败只记录日志，不影响其他下游
type Multi struct {
	publishers []Publisher
	logger     *zap.Logger
}

func NewMulti(logger *zap.Logger, publishers ...Publisher) *Multi {
	return &Multi{publishers: publishers, logger: logger}
}

// PublishMerge 返回失败的下游数量
func (m *Multi) PublishMerge(ctx context.Context, event domain.MergeEvent) int {
	failed := 0
	for _, p := range m.publishers {
		if err := p.PublishMerge(ctx, event); err != nil {
			failed++
			m.logger.Warn("Failed to publish merge event",
				zap.String("publisher", p.Name()),
				zap.String("event_type", event.Type),
				zap.String("floor_plan_id", event.FloorPlanID),
				zap.Error(err),
			)
			continue
		}
		m.logger.Debug("Merge event published",
			zap.String("publisher", p.Name()),
			zap.String("event_type", event.Type),
			zap.String("floor_plan_id", event.FloorPlanID),
		)
	}
	return failed
}

// Len 已配置的下游数量
func (m *Multi) Len() int {
	return len(m.publishers)
}
