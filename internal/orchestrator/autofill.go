package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

type AutoFillReport struct {
	Created  int    `json:"created"`
	Skipped  int    `json:"skipped"`
	Unfilled int    `json:"unfilled"`
	Message  string `json:"message"`
}

// AutoFill 非交互地补满本周未满员的班次
// 与拖放不同，任何会产生同日冲突的候选人都被跳过而不是弹出确认
func (o *Orchestrator) AutoFill(ctx context.Context) (*AutoFillReport, error) {
	if _, err := o.enter(ValidatingDrop{Op: "autofill"}, StateIdle); err != nil {
		if errors.Is(err, domain.ErrNotDragging) {
			err = domain.ErrBusy
		}
		return nil, err
	}

	snap := o.store.Snapshot()
	plan := o.validator.PlanAutoFill(snap)
	o.set(ValidatingDrop{Op: "autofill", Pairs: plan.Placements})

	report := &AutoFillReport{Skipped: plan.Skipped, Unfilled: plan.Unfilled}
	if len(plan.Placements) == 0 {
		o.set(Idle{})
		report.Message = "no new assignments"
		return report, nil
	}

	err := o.commit(ctx, "autofill", func(ctx context.Context) (bool, error) {
		for i, p := range plan.Placements {
			if _, err := o.backend.CreateAssignment(ctx, p.ShiftID, p.StaffID); err != nil {
				o.logger.Error("自动排班中断", "shift", p.ShiftID, "staff", p.StaffID, "error", err)
				// 计划中剩余的名额视为未补满
				report.Unfilled += len(plan.Placements) - i
				return report.Created > 0, err
			}
			report.Created++
			if staff, ok := snap.Staff.Get(p.StaffID); ok {
				if shift, ok := snap.Shifts.Get(p.ShiftID); ok {
					o.notifyCreated(ctx, *staff, *shift)
				}
			}
		}
		return true, nil
	})

	if report.Created == 0 {
		report.Message = "no new assignments"
	} else {
		report.Message = fmt.Sprintf("created %d assignments (%d skipped)", report.Created, report.Skipped)
	}
	o.logger.Info("自动排班完成", "facility", o.store.FacilityID(), "week", o.store.WeekStart(), "created", report.Created, "skipped", report.Skipped, "unfilled", report.Unfilled)

	if report.Created > 0 && o.notifier != nil && o.operatorEmail != "" {
		summary := domain.AutoFillMailData{
			FacilityID: o.store.FacilityID(),
			WeekStart:  o.store.WeekStart(),
			Created:    report.Created,
			Skipped:    report.Skipped,
			Unfilled:   report.Unfilled,
		}
		if err := o.notifier.AutoFillCompleted(ctx, o.operatorEmail, summary); err != nil {
			o.logger.Error("发送自动排班汇总失败", "error", err)
		}
	}

	return report, err
}
