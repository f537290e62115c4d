package scheduler

import (
	"time"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

var clockLayouts = []string{"15:04:05", "15:04"}

func parseClock(s string) (time.Time, bool) {
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ShiftHours 计算班次时长（小时）
// 结束时间早于开始时间说明跨越午夜，需要加 24 小时；所有计算工时的地方都必须经过这里
// 没有时间模板或时间格式无法解析的班次记为 0 小时
func ShiftHours(shift *domain.Shift) float64 {
	if shift == nil || shift.TimeTemplate == nil {
		return 0
	}
	start, ok := parseClock(shift.TimeTemplate.StartTime)
	if !ok {
		return 0
	}
	end, ok := parseClock(shift.TimeTemplate.EndTime)
	if !ok {
		return 0
	}

	duration := end.Sub(start).Hours()
	if duration < 0 {
		duration += 24
	}
	return duration
}

type StaffHours struct {
	StaffID int64              `json:"staff_id"`
	ByDate  map[string]float64 `json:"by_date"`
	Week    float64            `json:"week"`
}

// HoursFor 计算员工每天（按班次日期分组）和整周的工时
// 结果与分配列表的顺序无关
func HoursFor(snap *Snapshot, staffID int64) StaffHours {
	h := StaffHours{
		StaffID: staffID,
		ByDate:  make(map[string]float64),
	}
	for _, asg := range snap.Assignments.ForStaff(staffID) {
		shift, ok := snap.Shifts.Get(asg.ShiftID)
		if !ok {
			continue
		}
		hours := ShiftHours(shift)
		h.ByDate[shift.Date] += hours
		h.Week += hours
	}
	return h
}

type HoursSummary struct {
	StaffID   int64              `json:"staff_id"`
	FullName  string             `json:"full_name"`
	Role      domain.Role        `json:"role"`
	ByDate    map[string]float64 `json:"by_date"`
	Week      float64            `json:"week"`
	MaxWeekly float64            `json:"max_weekly"`
	Remaining float64            `json:"remaining"`
}

// Summary 为所有在职员工生成工时汇总，顺序与花名册一致
func Summary(snap *Snapshot, rules Rules) []HoursSummary {
	active := snap.Staff.Active()
	out := make([]HoursSummary, 0, len(active))
	for _, m := range active {
		h := HoursFor(snap, m.ID)
		limit := rules.weeklyLimit(&m)
		out = append(out, HoursSummary{
			StaffID:   m.ID,
			FullName:  m.FullName(),
			Role:      m.Role,
			ByDate:    h.ByDate,
			Week:      h.Week,
			MaxWeekly: limit,
			Remaining: max(limit-h.Week, 0),
		})
	}
	return out
}
