package domain

const (
	MailShiftAssigned   = "shift_assigned"
	MailShiftUnassigned = "shift_unassigned"
	MailAutoFillSummary = "autofill_summary"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type ShiftMailData struct {
	FullName  string `json:"fullName"`
	Date      string `json:"date"`
	ShiftType string `json:"shiftType"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type AutoFillMailData struct {
	FacilityID int64  `json:"facilityID"`
	WeekStart  string `json:"weekStart"`
	Created    int    `json:"created"`
	Skipped    int    `json:"skipped"`
	Unfilled   int    `json:"unfilled"`
}
