package domain

import "strconv"

type Role string

const (
	RoleCaregiver Role = "caregiver"
	RoleMedTech   Role = "med_tech"
	RoleNurse     Role = "nurse"
)

type StaffStatus string

const (
	StaffActive     StaffStatus = "active"
	StaffInactive   StaffStatus = "inactive"
	StaffOnLeave    StaffStatus = "on_leave"
	StaffTerminated StaffStatus = "terminated"
)

type StaffMember struct {
	ID              int64       `json:"id"`
	FirstName       string      `json:"first_name"`
	LastName        string      `json:"last_name"`
	Email           string      `json:"email"`
	Role            Role        `json:"role"`
	Status          StaffStatus `json:"status"`
	MaxHoursPerWeek float64     `json:"max_hours_per_week"`
}

func (m *StaffMember) IsActive() bool {
	return m.Status == StaffActive
}

func (m *StaffMember) FullName() string {
	switch {
	case m.FirstName != "" && m.LastName != "":
		return m.FirstName + " " + m.LastName
	case m.FirstName != "":
		return m.FirstName
	case m.LastName != "":
		return m.LastName
	default:
		return "Staff #" + strconv.FormatInt(m.ID, 10)
	}
}
