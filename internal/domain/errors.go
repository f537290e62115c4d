package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBusy        = errors.New("another scheduling change is still in progress")
	ErrNotDragging = errors.New("no staff member is being dragged")
)

// ValidationRejected 表示硬性规则失败，不会重试，信息直接展示给用户
type ValidationRejected struct {
	Conflict ConflictRecord
}

func (e *ValidationRejected) Error() string {
	return e.Conflict.Message
}

// StaleReferenceError 表示本地快照引用了后端已不存在的对象
type StaleReferenceError struct {
	Kind string
	ID   int64
	// Detail 覆盖默认信息，例如 "assignment not found"
	Detail string
}

func (e *StaleReferenceError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("%s %d no longer exists; the schedule has been refreshed", e.Kind, e.ID)
}

const genericNetworkMessage = "unable to reach the scheduling service, please try again"

// NetworkFailure 表示后端不可达或返回了非 2xx
type NetworkFailure struct {
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *NetworkFailure) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return genericNetworkMessage
}

func (e *NetworkFailure) Unwrap() error {
	return e.Err
}

func (e *NetworkFailure) Unauthorized() bool {
	return e.StatusCode == 401
}
