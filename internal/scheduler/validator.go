package scheduler

import (
	"fmt"
	"strings"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

type Validator struct {
	Rules Rules
}

func NewValidator(rules Rules) *Validator {
	return &Validator{Rules: rules}
}

// Validate 校验把 staffID 放入 shiftID 的提议
// 硬性规则按优先级检查，第一个失败立即返回且不再检查软性规则；否则返回全部软性冲突
func (v *Validator) Validate(snap *Snapshot, staffID, shiftID int64) ([]domain.ConflictRecord, error) {
	staff, shift, err := resolve(snap, staffID, shiftID)
	if err != nil {
		return nil, err
	}

	if hard := v.CheckHard(snap, staff, shift); hard != nil {
		return []domain.ConflictRecord{*hard}, nil
	}
	return v.CheckSoft(snap, staff, shift), nil
}

func resolve(snap *Snapshot, staffID, shiftID int64) (*domain.StaffMember, *domain.Shift, error) {
	staff, ok := snap.Staff.Get(staffID)
	if !ok {
		return nil, nil, &domain.StaleReferenceError{Kind: "staff member", ID: staffID}
	}
	shift, ok := snap.Shifts.Get(shiftID)
	if !ok {
		return nil, nil, &domain.StaleReferenceError{Kind: "shift", ID: shiftID}
	}
	return staff, shift, nil
}

// CheckHard 依次检查角色不匹配、班次满员、重复分配
func (v *Validator) CheckHard(snap *Snapshot, staff *domain.StaffMember, shift *domain.Shift) *domain.ConflictRecord {
	if staff.Role != shift.RequiredRole {
		return &domain.ConflictRecord{
			Type:          domain.ConflictRoleMismatch,
			Severity:      domain.SeverityError,
			StaffID:       staff.ID,
			AffectedDate:  shift.Date,
			Message:       fmt.Sprintf("Role mismatch: %s is a %s but %s requires a %s", staff.FullName(), staff.Role, shift.Label(), shift.RequiredRole),
			RelatedShifts: []int64{shift.ID},
			Hard:          true,
		}
	}

	if count := snap.ActiveAssignmentCount(shift.ID); count >= shift.RequiredStaffCount {
		return &domain.ConflictRecord{
			Type:          domain.ConflictCapacity,
			Severity:      domain.SeverityError,
			StaffID:       staff.ID,
			AffectedDate:  shift.Date,
			Message:       fmt.Sprintf("Shift is full: %s already has %d of %d required staff", shift.Label(), count, shift.RequiredStaffCount),
			RelatedShifts: []int64{shift.ID},
			Hard:          true,
		}
	}

	if _, ok := snap.Assignments.Find(shift.ID, staff.ID); ok {
		return &domain.ConflictRecord{
			Type:          domain.ConflictDuplicate,
			Severity:      domain.SeverityError,
			StaffID:       staff.ID,
			AffectedDate:  shift.Date,
			Message:       fmt.Sprintf("%s is already assigned to %s", staff.FullName(), shift.Label()),
			RelatedShifts: []int64{shift.ID},
			Hard:          true,
		}
	}

	return nil
}

// CheckSoft 检查同日多班次与周工时，结果可经用户确认后覆盖
func (v *Validator) CheckSoft(snap *Snapshot, staff *domain.StaffMember, shift *domain.Shift) []domain.ConflictRecord {
	var records []domain.ConflictRecord
	if r := v.sameDay(snap, staff, shift); r != nil {
		records = append(records, *r)
	}
	records = append(records, v.weekly(snap, staff, shift)...)
	return records
}

// SameDay 只返回同日冲突，自动排班用它跳过候选人
func (v *Validator) SameDay(snap *Snapshot, staff *domain.StaffMember, shift *domain.Shift) *domain.ConflictRecord {
	return v.sameDay(snap, staff, shift)
}

func (v *Validator) sameDay(snap *Snapshot, staff *domain.StaffMember, shift *domain.Shift) *domain.ConflictRecord {
	var (
		related []int64
		labels  []string
		hours   float64
	)
	for _, asg := range snap.Assignments.ForStaff(staff.ID) {
		other, ok := snap.Shifts.Get(asg.ShiftID)
		if !ok || other.ID == shift.ID || other.Date != shift.Date {
			continue
		}
		related = append(related, other.ID)
		labels = append(labels, other.Label())
		hours += ShiftHours(other)
	}
	if len(related) == 0 {
		return nil
	}

	msg := fmt.Sprintf("%s already works %s on %s", staff.FullName(), strings.Join(labels, ", "), shift.Date)
	if combined := hours + ShiftHours(shift); combined > v.Rules.DailyHoursLimit {
		msg += fmt.Sprintf("; combined daily hours would be %s, %s over the %s daily limit",
			formatHours(combined), formatHours(combined-v.Rules.DailyHoursLimit), formatHours(v.Rules.DailyHoursLimit))
	}

	return &domain.ConflictRecord{
		Type:          domain.ConflictSameDay,
		Severity:      domain.SeverityWarning,
		StaffID:       staff.ID,
		AffectedDate:  shift.Date,
		Message:       msg,
		RelatedShifts: append(related, shift.ID),
	}
}

func (v *Validator) weekly(snap *Snapshot, staff *domain.StaffMember, shift *domain.Shift) []domain.ConflictRecord {
	limit := v.Rules.weeklyLimit(staff)
	existing := HoursFor(snap, staff.ID).Week
	projected := existing + ShiftHours(shift)

	switch {
	case projected > limit:
		return []domain.ConflictRecord{{
			Type:          domain.ConflictWeeklyHours,
			Severity:      domain.SeverityError,
			StaffID:       staff.ID,
			Message:       fmt.Sprintf("%s would work %s this week, exceeding the %s weekly limit by %s", staff.FullName(), formatHours(projected), formatHours(limit), formatHours(projected-limit)),
			RelatedShifts: []int64{shift.ID},
		}}
	case projected == limit:
		return []domain.ConflictRecord{{
			Type:          domain.ConflictWeeklyHours,
			Severity:      domain.SeverityWarning,
			StaffID:       staff.ID,
			Message:       fmt.Sprintf("%s would reach the %s weekly limit", staff.FullName(), formatHours(limit)),
			RelatedShifts: []int64{shift.ID},
		}}
	case existing >= limit*v.Rules.ApproachingRatio:
		// 即使不算新班次也已接近上限
		return []domain.ConflictRecord{{
			Type:          domain.ConflictApproachingLimit,
			Severity:      domain.SeverityWarning,
			StaffID:       staff.ID,
			Message:       fmt.Sprintf("%s already has %s this week, approaching the %s weekly limit", staff.FullName(), formatHours(existing), formatHours(limit)),
			RelatedShifts: []int64{shift.ID},
		}}
	}
	return nil
}

// ValidateAll 对整周进行复查：已有分配的角色、同日多班次、周工时以及超员班次
func (v *Validator) ValidateAll(snap *Snapshot) []domain.ConflictRecord {
	var records []domain.ConflictRecord

	for _, m := range snap.Staff.Active() {
		staff := m
		byDate := map[string][]*domain.Shift{}
		var dates []string

		for _, asg := range snap.Assignments.ForStaff(staff.ID) {
			shift, ok := snap.Shifts.Get(asg.ShiftID)
			if !ok {
				continue
			}
			if shift.RequiredRole != staff.Role {
				records = append(records, domain.ConflictRecord{
					Type:          domain.ConflictRoleMismatch,
					Severity:      domain.SeverityError,
					StaffID:       staff.ID,
					AffectedDate:  shift.Date,
					Message:       fmt.Sprintf("Role mismatch: %s is a %s but is assigned to %s which requires a %s", staff.FullName(), staff.Role, shift.Label(), shift.RequiredRole),
					RelatedShifts: []int64{shift.ID},
					Hard:          true,
				})
			}
			if _, seen := byDate[shift.Date]; !seen {
				dates = append(dates, shift.Date)
			}
			byDate[shift.Date] = append(byDate[shift.Date], shift)
		}

		for _, date := range dates {
			shifts := byDate[date]
			if len(shifts) < 2 {
				continue
			}
			var (
				related []int64
				labels  []string
				hours   float64
			)
			for _, s := range shifts {
				related = append(related, s.ID)
				labels = append(labels, s.Label())
				hours += ShiftHours(s)
			}
			msg := fmt.Sprintf("%s works %d shifts on %s: %s", staff.FullName(), len(shifts), date, strings.Join(labels, ", "))
			if hours > v.Rules.DailyHoursLimit {
				msg += fmt.Sprintf("; %s total, %s over the %s daily limit", formatHours(hours), formatHours(hours-v.Rules.DailyHoursLimit), formatHours(v.Rules.DailyHoursLimit))
			}
			records = append(records, domain.ConflictRecord{
				Type:          domain.ConflictSameDay,
				Severity:      domain.SeverityWarning,
				StaffID:       staff.ID,
				AffectedDate:  date,
				Message:       msg,
				RelatedShifts: related,
			})
		}

		limit := v.Rules.weeklyLimit(&staff)
		week := HoursFor(snap, staff.ID).Week
		switch {
		case week > limit:
			records = append(records, domain.ConflictRecord{
				Type:     domain.ConflictWeeklyHours,
				Severity: domain.SeverityError,
				StaffID:  staff.ID,
				Message:  fmt.Sprintf("%s works %s this week, exceeding the %s weekly limit by %s", staff.FullName(), formatHours(week), formatHours(limit), formatHours(week-limit)),
			})
		case week == limit:
			records = append(records, domain.ConflictRecord{
				Type:     domain.ConflictWeeklyHours,
				Severity: domain.SeverityWarning,
				StaffID:  staff.ID,
				Message:  fmt.Sprintf("%s has reached the %s weekly limit", staff.FullName(), formatHours(limit)),
			})
		case week > 0 && week >= limit*v.Rules.ApproachingRatio:
			records = append(records, domain.ConflictRecord{
				Type:     domain.ConflictApproachingLimit,
				Severity: domain.SeverityWarning,
				StaffID:  staff.ID,
				Message:  fmt.Sprintf("%s has %s this week, approaching the %s weekly limit", staff.FullName(), formatHours(week), formatHours(limit)),
			})
		}
	}

	for _, shift := range snap.Shifts.All() {
		if count := snap.ActiveAssignmentCount(shift.ID); count > shift.RequiredStaffCount {
			records = append(records, domain.ConflictRecord{
				Type:          domain.ConflictCapacity,
				Severity:      domain.SeverityError,
				AffectedDate:  shift.Date,
				Message:       fmt.Sprintf("%s is over capacity: %d assigned, %d required", shift.Label(), count, shift.RequiredStaffCount),
				RelatedShifts: []int64{shift.ID},
				Hard:          true,
			})
		}
	}

	return records
}

// HasHard 判断冲突列表中是否存在不可覆盖的冲突
func HasHard(records []domain.ConflictRecord) (domain.ConflictRecord, bool) {
	for _, r := range records {
		if r.Hard {
			return r, true
		}
	}
	return domain.ConflictRecord{}, false
}

// Summarize 把冲突合并为一段确认信息，每行一个冲突，按员工分组
func Summarize(records []domain.ConflictRecord) string {
	var (
		order   []int64
		byStaff = map[int64][]string{}
	)
	for _, r := range records {
		if _, ok := byStaff[r.StaffID]; !ok {
			order = append(order, r.StaffID)
		}
		byStaff[r.StaffID] = append(byStaff[r.StaffID], r.Message)
	}

	var lines []string
	for _, id := range order {
		lines = append(lines, byStaff[id]...)
	}
	return strings.Join(lines, "\n")
}
