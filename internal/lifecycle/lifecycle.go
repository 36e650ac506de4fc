// Package lifecycle 版本状态机：draft -> merged | rejected
//
// 所有迁移都返回新的 Version 值，不修改输入；持久化由调用方负责。
package lifecycle

import (
	"fmt"
	"time"

	"wisefido-floorplan/internal/domain"
)

// SystemActor 后台自动合并任务使用的身份
var SystemActor = &domain.Editor{
	ID:       "system",
	Name:     "auto-merge worker",
	Priority: domain.HeadEditorPriority,
	Role:     domain.RoleAdmin,
}

// Authorize 手动合并/驳回需要 head editor 或管理员
func Authorize(actor *domain.Editor) error {
	if !actor.CanDecide() {
		return domain.ErrUnauthorized
	}
	return nil
}

// CheckDraft 只有 draft 状态可以迁移
func CheckDraft(v *domain.Version) error {
	if v == nil {
		return &domain.ValidationError{Field: "version", Reason: "is required"}
	}
	if v.Status.IsTerminal() {
		return &domain.AlreadyTerminalError{VersionID: v.ID, Status: v.Status}
	}
	if v.Status != domain.VersionStatusDraft {
		return &domain.ValidationError{Field: "version.status", Reason: fmt.Sprintf("unknown status %q", v.Status)}
	}
	return nil
}

// Merge draft -> merged
func Merge(v *domain.Version, actor *domain.Editor, at time.Time) (*domain.Version, error) {
	if err := Authorize(actor); err != nil {
		return nil, err
	}
	if err := CheckDraft(v); err != nil {
		return nil, err
	}
	return merged(v, actor, at.UTC()), nil
}

// Reject draft -> rejected
func Reject(v *domain.Version, actor *domain.Editor, reason string, at time.Time) (*domain.Version, error) {
	if err := Authorize(actor); err != nil {
		return nil, err
	}
	if err := CheckDraft(v); err != nil {
		return nil, err
	}
	out := v.Clone()
	out.Status = domain.VersionStatusRejected
	out.RejectedBy = actor.ID
	out.RejectReason = reason
	rejectedAt := at.UTC()
	out.RejectedAt = &rejectedAt
	return out, nil
}

// MergeAll 自动合并成功后批量迁移所有被消费的版本
// 先校验全部版本，任何一个不合法都不迁移（全有或全无）；所有版本共享同一个合并时间。
func MergeAll(versions []*domain.Version, actor *domain.Editor, at time.Time) ([]*domain.Version, error) {
	if err := Authorize(actor); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		if err := CheckDraft(v); err != nil {
			return nil, err
		}
		if _, dup := seen[v.ID]; dup {
			return nil, &domain.ValidationError{Field: "versions", Reason: fmt.Sprintf("version %s listed twice", v.ID)}
		}
		seen[v.ID] = struct{}{}
	}

	mergedAt := at.UTC()
	out := make([]*domain.Version, 0, len(versions))
	for _, v := range versions {
		out = append(out, merged(v, actor, mergedAt))
	}
	return out, nil
}

func merged(v *domain.Version, actor *domain.Editor, at time.Time) *domain.Version {
	out := v.Clone()
	out.Status = domain.VersionStatusMerged
	out.MergedAt = &at
	out.MergedBy = actor.ID
	return out
}
