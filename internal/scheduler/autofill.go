package scheduler

import "github.com/carelink-dev/shift-board/engine/internal/domain"

type Placement struct {
	ShiftID int64 `json:"shift_id"`
	StaffID int64 `json:"staff_id"`
}

// AutoFillPlan 是自动排班的规划结果，尚未提交到后端
type AutoFillPlan struct {
	Placements []Placement
	// Skipped 因同日冲突被跳过的候选人次数
	Skipped int
	// Unfilled 候选人耗尽后仍未补满的名额
	Unfilled int
}

// PlanAutoFill 按周顺序遍历未满员的班次，按花名册顺序贪心分配
// 候选人：在职、角色匹配、尚未分配到该班次、加上该班次后不超过周工时上限
// 会产生同日冲突的候选人直接跳过，不弹出确认
func (v *Validator) PlanAutoFill(snap *Snapshot) AutoFillPlan {
	plan := AutoFillPlan{}
	working := snap
	active := snap.Staff.Active()

	for _, shift := range snap.Shifts.All() {
		need := shift.RequiredStaffCount - working.ActiveAssignmentCount(shift.ID)
		if need <= 0 {
			continue
		}

		for i := range active {
			if need == 0 {
				break
			}
			staff := &active[i]
			if staff.Role != shift.RequiredRole {
				continue
			}
			if _, assigned := working.Assignments.Find(shift.ID, staff.ID); assigned {
				continue
			}
			if HoursFor(working, staff.ID).Week+ShiftHours(&shift) > v.Rules.weeklyLimit(staff) {
				continue
			}
			if v.SameDay(working, staff, &shift) != nil {
				plan.Skipped++
				continue
			}

			placement := Placement{ShiftID: shift.ID, StaffID: staff.ID}
			plan.Placements = append(plan.Placements, placement)
			working = working.With(domain.Assignment{ShiftID: shift.ID, StaffID: staff.ID})
			need--
		}

		plan.Unfilled += need
	}

	return plan
}
