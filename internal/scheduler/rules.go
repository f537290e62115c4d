package scheduler

import (
	"strconv"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

type Rules struct {
	DailyHoursLimit       float64
	DefaultMaxWeeklyHours float64
	ApproachingRatio      float64
}

func DefaultRules() Rules {
	return Rules{
		DailyHoursLimit:       8,
		DefaultMaxWeeklyHours: 40,
		ApproachingRatio:      0.8,
	}
}

// weeklyLimit 员工未设置 maxHoursPerWeek 时使用默认值
func (r Rules) weeklyLimit(m *domain.StaffMember) float64 {
	if m.MaxHoursPerWeek > 0 {
		return m.MaxHoursPerWeek
	}
	return r.DefaultMaxWeeklyHours
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}
