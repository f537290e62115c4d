package utils

import (
	"fmt"
	"time"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

// ValidateWeekStart 检查周起始日期是否为 YYYY-MM-DD
func ValidateWeekStart(weekStart string) error {
	if weekStart == "" {
		return fmt.Errorf("week start is required")
	}
	if _, err := time.Parse(domain.DateLayout, weekStart); err != nil {
		return fmt.Errorf("week start %q must be a date in YYYY-MM-DD format", weekStart)
	}
	return nil
}

// WeekDates 返回从 weekStart 开始连续七天的日期
func WeekDates(weekStart string) ([]string, error) {
	if err := ValidateWeekStart(weekStart); err != nil {
		return nil, err
	}
	start, _ := time.Parse(domain.DateLayout, weekStart)

	dates := make([]string, 0, 7)
	for i := range 7 {
		dates = append(dates, start.AddDate(0, 0, i).Format(domain.DateLayout))
	}
	return dates, nil
}
