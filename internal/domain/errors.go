package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 引用的平面图或版本不存在
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized 非 head editor 尝试手动合并/驳回
	ErrUnauthorized = errors.New("only head editor can merge or reject versions")
	// ErrConflictBlocked 存在未解决冲突，自动合并被阻止
	ErrConflictBlocked = errors.New("cannot auto-merge - manual conflict resolution required")
	// ErrStaleFloorPlan 平面图在读取后被其他写入者修改（乐观锁失败）
	ErrStaleFloorPlan = errors.New("floor plan was modified concurrently")
	// ErrVersionNotDraft 写入状态时版本已不是 draft（被并发的合并/驳回抢先）
	ErrVersionNotDraft = errors.New("version is no longer draft")
	// ErrNoPendingVersions 没有待合并版本
	ErrNoPendingVersions = errors.New("no pending versions to merge")
)

// ValidationError 输入数据不合法
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// AlreadyTerminalError 版本已处于终态（merged / rejected）
type AlreadyTerminalError struct {
	VersionID string
	Status    VersionStatus
}

func (e *AlreadyTerminalError) Error() string {
	return fmt.Sprintf("version is already %s", e.Status)
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAlreadyTerminal 判断是否为终态错误
func IsAlreadyTerminal(err error) bool {
	var te *AlreadyTerminalError
	return errors.As(err, &te)
}
