package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

func dayOn(id int64, date string, role domain.Role, count int) domain.Shift {
	s := shiftAt(id, date, domain.ShiftDay, "07:00", "15:00")
	s.RequiredRole = role
	s.RequiredStaffCount = count
	return s
}

func member(id int64, first string, role domain.Role, status domain.StaffStatus, maxHours float64) domain.StaffMember {
	return domain.StaffMember{ID: id, FirstName: first, LastName: "Test", Role: role, Status: status, MaxHoursPerWeek: maxHours}
}

func TestValidateHardRules(t *testing.T) {
	shifts := []domain.Shift{
		dayOn(1, "2024-03-04", domain.RoleMedTech, 2),
		dayOn(2, "2024-03-05", domain.RoleMedTech, 1),
	}
	staff := []domain.StaffMember{
		member(10, "Ann", domain.RoleMedTech, domain.StaffActive, 40),
		member(11, "Ben", domain.RoleMedTech, domain.StaffActive, 40),
		member(12, "Cal", domain.RoleCaregiver, domain.StaffActive, 40),
		member(13, "Dee", domain.RoleMedTech, domain.StaffOnLeave, 40),
	}
	v := NewValidator(DefaultRules())

	tests := []struct {
		name        string
		assignments []domain.Assignment
		staffID     int64
		shiftID     int64
		want        domain.ConflictType
		message     string
	}{
		{
			name:    "role mismatch",
			staffID: 12,
			shiftID: 1,
			want:    domain.ConflictRoleMismatch,
			message: "Role mismatch: Cal Test is a caregiver but Day 2024-03-04 (07:00-15:00) requires a med_tech",
		},
		{
			name:        "capacity",
			assignments: []domain.Assignment{{ID: 1, ShiftID: 2, StaffID: 11}},
			staffID:     10,
			shiftID:     2,
			want:        domain.ConflictCapacity,
			message:     "Shift is full: Day 2024-03-05 (07:00-15:00) already has 1 of 1 required staff",
		},
		{
			name:        "duplicate",
			assignments: []domain.Assignment{{ID: 1, ShiftID: 1, StaffID: 10}},
			staffID:     10,
			shiftID:     1,
			want:        domain.ConflictDuplicate,
			message:     "Ann Test is already assigned to Day 2024-03-04 (07:00-15:00)",
		},
		{
			// 满员检查先于重复检查
			name:        "capacity before duplicate",
			assignments: []domain.Assignment{{ID: 1, ShiftID: 2, StaffID: 10}},
			staffID:     10,
			shiftID:     2,
			want:        domain.ConflictCapacity,
			message:     "Shift is full: Day 2024-03-05 (07:00-15:00) already has 1 of 1 required staff",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := NewSnapshot(1, "2024-03-04", shifts, staff, tt.assignments)
			records, err := v.Validate(snap, tt.staffID, tt.shiftID)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, tt.want, records[0].Type)
			assert.True(t, records[0].Hard)
			assert.Equal(t, domain.SeverityError, records[0].Severity)
			assert.Equal(t, tt.message, records[0].Message)

			hard, ok := HasHard(records)
			assert.True(t, ok)
			assert.Equal(t, records[0], hard)
		})
	}

	t.Run("inactive staff do not count toward capacity", func(t *testing.T) {
		snap := NewSnapshot(1, "2024-03-04", shifts, staff, []domain.Assignment{{ID: 1, ShiftID: 2, StaffID: 13}})
		assert.Equal(t, 0, snap.ActiveAssignmentCount(2))

		records, err := v.Validate(snap, 10, 2)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("stale references", func(t *testing.T) {
		snap := NewSnapshot(1, "2024-03-04", shifts, staff, nil)

		_, err := v.Validate(snap, 99, 1)
		var stale *domain.StaleReferenceError
		require.ErrorAs(t, err, &stale)
		assert.Equal(t, "staff member", stale.Kind)

		_, err = v.Validate(snap, 10, 99)
		require.ErrorAs(t, err, &stale)
		assert.Equal(t, "shift", stale.Kind)
	})
}

func TestValidateSoftRules(t *testing.T) {
	v := NewValidator(DefaultRules())

	t.Run("same day within daily limit", func(t *testing.T) {
		shifts := []domain.Shift{
			shiftAt(1, "2024-03-04", domain.ShiftDay, "07:00", "11:00"),
			shiftAt(2, "2024-03-04", domain.ShiftSwing, "15:00", "19:00"),
		}
		staff := []domain.StaffMember{member(10, "Ann", domain.RoleMedTech, domain.StaffActive, 40)}
		snap := NewSnapshot(1, "2024-03-04", shifts, staff, []domain.Assignment{{ID: 1, ShiftID: 1, StaffID: 10}})

		records, err := v.Validate(snap, 10, 2)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, domain.ConflictSameDay, records[0].Type)
		assert.False(t, records[0].Hard)
		assert.Equal(t, "Ann Test already works Day 2024-03-04 (07:00-11:00) on 2024-03-04", records[0].Message)
		assert.Equal(t, []int64{1, 2}, records[0].RelatedShifts)
	})

	t.Run("weekly limits", func(t *testing.T) {
		var shifts []domain.Shift
		for i, date := range []string{"2024-03-04", "2024-03-05", "2024-03-06", "2024-03-07", "2024-03-08", "2024-03-09"} {
			shifts = append(shifts, dayOn(int64(i+1), date, domain.RoleMedTech, 1))
		}
		assigned := func(n int) []domain.Assignment {
			var out []domain.Assignment
			for i := range n {
				out = append(out, domain.Assignment{ID: int64(100 + i), ShiftID: int64(i + 1), StaffID: 10})
			}
			return out
		}
		staff := []domain.StaffMember{member(10, "Ann", domain.RoleMedTech, domain.StaffActive, 40)}

		tests := []struct {
			name     string
			existing int
			want     []domain.ConflictType
			severity domain.Severity
			message  string
		}{
			{name: "well under", existing: 2},
			{
				name:     "reaches limit",
				existing: 4,
				want:     []domain.ConflictType{domain.ConflictWeeklyHours},
				severity: domain.SeverityWarning,
				message:  "Ann Test would reach the 40h weekly limit",
			},
			{
				name:     "exceeded",
				existing: 5,
				want:     []domain.ConflictType{domain.ConflictWeeklyHours},
				severity: domain.SeverityError,
				message:  "Ann Test would work 48h this week, exceeding the 40h weekly limit by 8h",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				snap := NewSnapshot(1, "2024-03-04", shifts, staff, assigned(tt.existing))
				records, err := v.Validate(snap, 10, 6)
				require.NoError(t, err)

				var got []domain.ConflictType
				for _, r := range records {
					got = append(got, r.Type)
				}
				assert.Equal(t, tt.want, got)
				if len(records) == 1 {
					assert.Equal(t, tt.severity, records[0].Severity)
					assert.Equal(t, tt.message, records[0].Message)
					assert.False(t, records[0].Hard)
				}
			})
		}
	})

	t.Run("approaching without the new shift", func(t *testing.T) {
		shifts := []domain.Shift{
			shiftAt(1, "2024-03-04", domain.ShiftDay, "07:00", "15:00"),
			shiftAt(2, "2024-03-05", domain.ShiftDay, "07:00", "15:00"),
			shiftAt(3, "2024-03-06", domain.ShiftDay, "07:00", "15:00"),
			shiftAt(4, "2024-03-07", domain.ShiftDay, "07:00", "09:00"),
		}
		staff := []domain.StaffMember{member(10, "Ann", domain.RoleMedTech, domain.StaffActive, 30)}
		snap := NewSnapshot(1, "2024-03-04", shifts, staff, []domain.Assignment{
			{ID: 1, ShiftID: 1, StaffID: 10},
			{ID: 2, ShiftID: 2, StaffID: 10},
			{ID: 3, ShiftID: 3, StaffID: 10},
		})

		records, err := v.Validate(snap, 10, 4)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, domain.ConflictApproachingLimit, records[0].Type)
		assert.Equal(t, "Ann Test already has 24h this week, approaching the 30h weekly limit", records[0].Message)
	})
}

func TestValidateAll(t *testing.T) {
	shifts := []domain.Shift{
		dayOn(1, "2024-03-04", domain.RoleMedTech, 1),
		shiftAt(2, "2024-03-04", domain.ShiftNOC, "23:00", "07:00"),
		dayOn(3, "2024-03-05", domain.RoleCaregiver, 1),
	}
	staff := []domain.StaffMember{
		member(10, "Ann", domain.RoleMedTech, domain.StaffActive, 40),
		member(11, "Ben", domain.RoleCaregiver, domain.StaffActive, 40),
		member(12, "Cal", domain.RoleCaregiver, domain.StaffActive, 40),
		member(13, "Dee", domain.RoleCaregiver, domain.StaffInactive, 40),
	}
	snap := NewSnapshot(1, "2024-03-04", shifts, staff, []domain.Assignment{
		{ID: 1, ShiftID: 1, StaffID: 10},
		{ID: 2, ShiftID: 2, StaffID: 10},
		{ID: 3, ShiftID: 3, StaffID: 10},
		{ID: 4, ShiftID: 3, StaffID: 11},
		{ID: 5, ShiftID: 3, StaffID: 12},
		{ID: 6, ShiftID: 1, StaffID: 13},
	})

	records := NewValidator(DefaultRules()).ValidateAll(snap)

	var got []domain.ConflictType
	for _, r := range records {
		got = append(got, r.Type)
	}
	assert.Equal(t, []domain.ConflictType{
		domain.ConflictRoleMismatch,
		domain.ConflictSameDay,
		domain.ConflictCapacity,
	}, got)

	assert.Equal(t, "Role mismatch: Ann Test is a med_tech but is assigned to Day 2024-03-05 (07:00-15:00) which requires a caregiver", records[0].Message)
	assert.Equal(t, "Ann Test works 2 shifts on 2024-03-04: Day 2024-03-04 (07:00-15:00), NOC 2024-03-04 (23:00-07:00); 16h total, 8h over the 8h daily limit", records[1].Message)
	assert.Equal(t, "Day 2024-03-05 (07:00-15:00) is over capacity: 3 assigned, 1 required", records[2].Message)
}

func TestSummarize(t *testing.T) {
	records := []domain.ConflictRecord{
		{StaffID: 1, Message: "a1"},
		{StaffID: 2, Message: "b1"},
		{StaffID: 1, Message: "a2"},
	}
	assert.Equal(t, "a1\na2\nb1", Summarize(records))
	assert.Equal(t, "", Summarize(nil))

	_, ok := HasHard(records)
	assert.False(t, ok)
}
