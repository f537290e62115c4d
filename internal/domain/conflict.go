package domain

type ConflictType string

const (
	ConflictRoleMismatch     ConflictType = "role_mismatch"
	ConflictCapacity         ConflictType = "capacity"
	ConflictDuplicate        ConflictType = "duplicate"
	ConflictSameDay          ConflictType = "same_day"
	ConflictWeeklyHours      ConflictType = "weekly_hours"
	ConflictApproachingLimit ConflictType = "approaching_limit"
	ConflictInactiveStaff    ConflictType = "inactive_staff"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ConflictRecord 是临时计算结果，从不持久化
type ConflictRecord struct {
	Type          ConflictType `json:"type"`
	Severity      Severity     `json:"severity"`
	StaffID       int64        `json:"staff_id"`
	AffectedDate  string       `json:"affected_date,omitempty"`
	Message       string       `json:"message"`
	RelatedShifts []int64      `json:"related_shifts"`
	// Hard 为 true 时没有确认路径
	Hard bool `json:"hard"`
}
