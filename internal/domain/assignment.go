package domain

// Assignment 中的 ShiftID / StaffID 已在 repository 层统一为裸 id
type Assignment struct {
	ID      int64  `json:"id"`
	ShiftID int64  `json:"shift_id"`
	StaffID int64  `json:"staff_id"`
	Status  string `json:"status"`
}
