package domain

const DateLayout = "2006-01-02"

type ShiftType string

const (
	ShiftDay   ShiftType = "Day"
	ShiftSwing ShiftType = "Swing"
	ShiftNOC   ShiftType = "NOC"
)

// Order 返回班次在一天中的先后顺序，用于按周排序
func (t ShiftType) Order() int {
	switch t {
	case ShiftDay:
		return 0
	case ShiftSwing:
		return 1
	case ShiftNOC:
		return 2
	default:
		return 3
	}
}

type TimeTemplate struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type Shift struct {
	ID                 int64         `json:"id"`
	Date               string        `json:"date"`
	ShiftType          ShiftType     `json:"shift_type"`
	RequiredRole       Role          `json:"required_role"`
	RequiredStaffCount int           `json:"required_staff_count"`
	TimeTemplate       *TimeTemplate `json:"time_template"`
}

// Label 用于冲突信息中的班次描述，例如 "Day 2024-03-04 (07:00-15:00)"
func (s *Shift) Label() string {
	label := string(s.ShiftType) + " " + s.Date
	if s.TimeTemplate != nil {
		label += " (" + s.TimeTemplate.StartTime + "-" + s.TimeTemplate.EndTime + ")"
	}
	return label
}
