package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wisefido-floorplan/internal/domain"
	"wisefido-floorplan/internal/lifecycle"
	"wisefido-floorplan/internal/repository"
	"wisefido-floorplan/internal/store"

	"go.uber.org/zap"
)

// AutoMergeWorker 定时对所有存在 draft 版本的平面图尝试自动合并
// 存在冲突的平面图保持不变，等待人工处理
type AutoMergeWorker struct {
	svc        *VersionService
	floorPlans repository.FloorPlansRepository
	interval   time.Duration
	logger     *zap.Logger
}

// NewAutoMergeWorker 创建自动合并轮询器
func NewAutoMergeWorker(svc *VersionService, floorPlans repository.FloorPlansRepository, interval time.Duration, logger *zap.Logger) *AutoMergeWorker {
	return &AutoMergeWorker{svc: svc, floorPlans: floorPlans, interval: interval, logger: logger}
}

// Run 阻塞直到 ctx 结束
func (w *AutoMergeWorker) Run(ctx context.Context) error {
	if w.interval <= 0 {
		return fmt.Errorf("auto-merge interval must be positive, got %s", w.interval)
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Starting auto-merge polling", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Auto-merge polling stopped")
			return nil
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("Auto-merge poll failed", zap.Error(err))
			}
		}
	}
}

// RunOnce 执行一轮，返回成功合并的平面图数量
func (w *AutoMergeWorker) RunOnce(ctx context.Context) (int, error) {
	ids, err := w.floorPlans.ListFloorPlansWithPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list floor plans with pending versions: %w", err)
	}

	merged := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return merged, nil
		}
		result, err := w.svc.autoMergeAs(ctx, id, lifecycle.SystemActor)
		switch {
		case err == nil:
			merged++
			w.logger.Info("Floor plan auto-merged",
				zap.String("floor_plan_id", id),
				zap.Int("merged_version_count", result.MergedVersionCount),
			)
		case errors.Is(err, domain.ErrConflictBlocked):
			w.logger.Info("Floor plan needs manual conflict resolution",
				zap.String("floor_plan_id", id),
				zap.Int("conflict_count", len(result.Conflicts)),
			)
		case errors.Is(err, domain.ErrNoPendingVersions), errors.Is(err, store.ErrLockNotAcquired):
			w.logger.Debug("Floor plan skipped", zap.String("floor_plan_id", id), zap.Error(err))
		default:
			w.logger.Error("Failed to auto-merge floor plan", zap.String("floor_plan_id", id), zap.Error(err))
		}
	}
	return merged, nil
}
