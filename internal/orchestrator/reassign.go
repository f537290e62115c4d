package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
	"github.com/carelink-dev/shift-board/engine/internal/scheduler"
)

// Reassign 一次把多名员工分配到同一个班次
// 提交前拒绝：批内重复、已在该班次、超出所需人数以及任何硬性冲突；所有软性冲突合并成一次确认
func (o *Orchestrator) Reassign(ctx context.Context, shiftID int64, staffIDs []int64) (*Outcome, error) {
	pairs := make([]scheduler.Placement, 0, len(staffIDs))
	for _, id := range staffIDs {
		pairs = append(pairs, scheduler.Placement{ShiftID: shiftID, StaffID: id})
	}
	if _, err := o.enter(ValidatingDrop{Op: "reassign", Pairs: pairs}, StateIdle); err != nil {
		if errors.Is(err, domain.ErrNotDragging) {
			err = domain.ErrBusy
		}
		return nil, err
	}

	snap := o.store.Snapshot()
	batch, shift, records, err := o.checkBatch(snap, shiftID, staffIDs)
	if err != nil {
		o.refreshAfterStale(ctx, err)
		return nil, o.reject(err)
	}

	outcome := &Outcome{Conflicts: records}
	if len(records) > 0 {
		names := make([]string, 0, len(batch))
		for _, m := range batch {
			names = append(names, m.FullName())
		}
		confirmed, err := o.await(ctx, Confirmation{
			Title:     fmt.Sprintf("Assign %s to %s?", strings.Join(names, ", "), shift.Label()),
			Message:   scheduler.Summarize(records),
			Conflicts: records,
		})
		if !confirmed {
			o.set(Idle{})
			outcome.Cancelled = true
			outcome.Message = "reassignment cancelled"
			return outcome, err
		}
	}

	err = o.commit(ctx, "reassign", func(ctx context.Context) (bool, error) {
		for _, m := range batch {
			created, err := o.backend.CreateAssignment(ctx, shift.ID, m.ID)
			if err != nil {
				o.logger.Error("批量分配中断", "shift", shift.ID, "staff", m.ID, "created", len(outcome.Created), "error", err)
				return len(outcome.Created) > 0, err
			}
			outcome.Created = append(outcome.Created, *created)
			o.notifyCreated(ctx, m, *shift)
		}
		return true, nil
	})
	if len(outcome.Created) > 0 {
		outcome.Committed = true
		outcome.Message = fmt.Sprintf("assigned %d of %d staff to %s", len(outcome.Created), len(batch), shift.Label())
	}
	return outcome, err
}

func (o *Orchestrator) checkBatch(snap *scheduler.Snapshot, shiftID int64, staffIDs []int64) ([]domain.StaffMember, *domain.Shift, []domain.ConflictRecord, error) {
	shift, ok := snap.Shifts.Get(shiftID)
	if !ok {
		return nil, nil, nil, &domain.StaleReferenceError{Kind: "shift", ID: shiftID}
	}
	if len(staffIDs) == 0 {
		return nil, nil, nil, &domain.ValidationRejected{Conflict: domain.ConflictRecord{
			Type:          domain.ConflictCapacity,
			Severity:      domain.SeverityError,
			AffectedDate:  shift.Date,
			Message:       fmt.Sprintf("Select at least one staff member for %s", shift.Label()),
			RelatedShifts: []int64{shift.ID},
			Hard:          true,
		}}
	}

	seen := make(map[int64]struct{}, len(staffIDs))
	batch := make([]domain.StaffMember, 0, len(staffIDs))
	for _, id := range staffIDs {
		staff, ok := snap.Staff.Get(id)
		if !ok {
			return nil, nil, nil, &domain.StaleReferenceError{Kind: "staff member", ID: id}
		}
		if _, dup := seen[id]; dup {
			return nil, nil, nil, &domain.ValidationRejected{Conflict: domain.ConflictRecord{
				Type:          domain.ConflictDuplicate,
				Severity:      domain.SeverityError,
				StaffID:       id,
				AffectedDate:  shift.Date,
				Message:       fmt.Sprintf("%s was selected more than once", staff.FullName()),
				RelatedShifts: []int64{shift.ID},
				Hard:          true,
			}}
		}
		seen[id] = struct{}{}
		if !staff.IsActive() {
			return nil, nil, nil, &domain.ValidationRejected{Conflict: inactiveConflict(staff)}
		}
		batch = append(batch, *staff)
	}

	for _, m := range batch {
		if _, ok := snap.Assignments.Find(shift.ID, m.ID); ok {
			return nil, nil, nil, &domain.ValidationRejected{Conflict: domain.ConflictRecord{
				Type:          domain.ConflictDuplicate,
				Severity:      domain.SeverityError,
				StaffID:       m.ID,
				AffectedDate:  shift.Date,
				Message:       fmt.Sprintf("%s is already assigned to %s", m.FullName(), shift.Label()),
				RelatedShifts: []int64{shift.ID},
				Hard:          true,
			}}
		}
	}

	if count := snap.ActiveAssignmentCount(shift.ID); count+len(batch) > shift.RequiredStaffCount {
		return nil, nil, nil, &domain.ValidationRejected{Conflict: domain.ConflictRecord{
			Type:          domain.ConflictCapacity,
			Severity:      domain.SeverityError,
			AffectedDate:  shift.Date,
			Message:       fmt.Sprintf("Too many staff selected: %s has %d of %d required staff, %d more selected", shift.Label(), count, shift.RequiredStaffCount, len(batch)),
			RelatedShifts: []int64{shift.ID},
			Hard:          true,
		}}
	}

	var records []domain.ConflictRecord
	for i := range batch {
		m := &batch[i]
		if hard := o.validator.CheckHard(snap, m, shift); hard != nil {
			return nil, nil, nil, &domain.ValidationRejected{Conflict: *hard}
		}
		records = append(records, o.validator.CheckSoft(snap, m, shift)...)
	}
	return batch, shift, records, nil
}
