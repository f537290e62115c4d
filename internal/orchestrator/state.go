package orchestrator

import "github.com/carelink-dev/shift-board/engine/internal/scheduler"

type StateName string

const (
	StateIdle           StateName = "idle"
	StateDragging       StateName = "dragging"
	StateValidatingDrop StateName = "validating_drop"
	StateConfirmPending StateName = "confirm_pending"
	StateCommitting     StateName = "committing"
	StateRejectedDrop   StateName = "rejected_drop"
)

// State 是编排器唯一的状态值，具体类型即当前所处的状态
type State interface {
	Name() StateName
}

type Idle struct{}

func (Idle) Name() StateName { return StateIdle }

type Dragging struct {
	StaffID int64 `json:"staff_id"`
}

func (Dragging) Name() StateName { return StateDragging }

// ValidatingDrop 对拖拽、批量分配、自动排班通用，Pairs 是待校验的 (shift, staff) 列表
type ValidatingDrop struct {
	Op    string                `json:"op"`
	Pairs []scheduler.Placement `json:"pairs"`
}

func (ValidatingDrop) Name() StateName { return StateValidatingDrop }

type ConfirmPending struct {
	Confirmation Confirmation `json:"confirmation"`
}

func (ConfirmPending) Name() StateName { return StateConfirmPending }

type Committing struct {
	Op string `json:"op"`
}

func (Committing) Name() StateName { return StateCommitting }

type RejectedDrop struct {
	Reason string `json:"reason"`
}

func (RejectedDrop) Name() StateName { return StateRejectedDrop }
