package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-floorplan/internal/domain"

	"github.com/go-redis/redis/v8"
)

// StreamPublisher 把合并事件写入 Redis Streams（审计与下游消费）
type StreamPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

// PublishMerge XADD 一条事件：data 为完整 JSON，另带几个便于过滤的字段
func (p *StreamPublisher) PublishMerge(ctx context.Context, event domain.MergeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal merge event: %w", err)
	}
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"type":          event.Type,
			"floor_plan_id": event.FloorPlanID,
			"data":          string(data),
			"timestamp":     fmt.Sprintf("%d", ts.Unix()),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish merge event to stream %s: %w", p.stream, err)
	}
	return nil
}

// Name 用于日志
func (p *StreamPublisher) Name() string {
	return "redis-stream"
}
