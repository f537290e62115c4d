package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

// Unassign 按 (shiftID, staffID) 删除分配；本地找不到时明确报错而不是静默忽略
func (o *Orchestrator) Unassign(ctx context.Context, shiftID, staffID int64) (*Outcome, error) {
	if _, err := o.enter(Committing{Op: "unassign"}, StateIdle); err != nil {
		if errors.Is(err, domain.ErrNotDragging) {
			err = domain.ErrBusy
		}
		return nil, err
	}

	snap := o.store.Snapshot()
	asg, ok := snap.Assignments.Find(shiftID, staffID)
	if !ok {
		o.set(Idle{})
		err := &domain.StaleReferenceError{Kind: "assignment", Detail: "assignment not found"}
		o.refreshAfterStale(ctx, err)
		return nil, err
	}

	err := o.commit(ctx, "unassign", func(ctx context.Context) (bool, error) {
		if err := o.backend.DeleteAssignment(ctx, asg.ID); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil && !errors.Is(err, ErrRefreshFailed) {
		return nil, err
	}

	outcome := &Outcome{Committed: true, Message: "assignment removed"}
	staff, okStaff := snap.Staff.Get(staffID)
	shift, okShift := snap.Shifts.Get(shiftID)
	if okStaff && okShift {
		outcome.Message = fmt.Sprintf("%s removed from %s", staff.FullName(), shift.Label())
		o.notifyRemoved(ctx, *staff, *shift)
	}
	return outcome, err
}

// ClearWeek 删除本周所有班次，需先经过确认
func (o *Orchestrator) ClearWeek(ctx context.Context) (*Outcome, error) {
	if _, err := o.enter(ValidatingDrop{Op: "clear"}, StateIdle); err != nil {
		if errors.Is(err, domain.ErrNotDragging) {
			err = domain.ErrBusy
		}
		return nil, err
	}

	snap := o.store.Snapshot()
	confirmed, err := o.await(ctx, Confirmation{
		Title:   fmt.Sprintf("Clear the week of %s?", snap.WeekStart),
		Message: fmt.Sprintf("All %d shifts and %d assignments for this week will be removed.", snap.Shifts.Len(), snap.Assignments.Len()),
	})
	if !confirmed {
		o.set(Idle{})
		return &Outcome{Cancelled: true, Message: "clear cancelled"}, err
	}

	err = o.commit(ctx, "clear", func(ctx context.Context) (bool, error) {
		if err := o.backend.ClearShifts(ctx, o.store.FacilityID(), o.store.WeekStart()); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil && !errors.Is(err, ErrRefreshFailed) {
		return nil, err
	}
	return &Outcome{Committed: true, Message: fmt.Sprintf("cleared %d shifts", snap.Shifts.Len())}, err
}
