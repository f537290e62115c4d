package scheduler

import (
	"slices"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

// ShiftCatalog 是一周班次的只读视图，按周顺序排列（日期、班次类型、id）
type ShiftCatalog struct {
	shifts []domain.Shift
	byID   map[int64]int
}

func NewShiftCatalog(shifts []domain.Shift) *ShiftCatalog {
	sorted := slices.Clone(shifts)
	slices.SortStableFunc(sorted, compareShifts)

	c := &ShiftCatalog{
		shifts: sorted,
		byID:   make(map[int64]int, len(sorted)),
	}
	for i, s := range sorted {
		c.byID[s.ID] = i
	}
	return c
}

func compareShifts(a, b domain.Shift) int {
	switch {
	case a.Date != b.Date:
		if a.Date < b.Date {
			return -1
		}
		return 1
	case a.ShiftType.Order() != b.ShiftType.Order():
		return a.ShiftType.Order() - b.ShiftType.Order()
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

func (c *ShiftCatalog) Get(id int64) (*domain.Shift, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.shifts[i], true
}

// All 返回副本，调用方修改不会影响快照
func (c *ShiftCatalog) All() []domain.Shift {
	return slices.Clone(c.shifts)
}

func (c *ShiftCatalog) Len() int {
	return len(c.shifts)
}

// StaffRoster 是员工的只读视图，保持后端返回的顺序（自动排班按此顺序贪心分配）
type StaffRoster struct {
	staff []domain.StaffMember
	byID  map[int64]int
}

func NewStaffRoster(staff []domain.StaffMember) *StaffRoster {
	r := &StaffRoster{
		staff: slices.Clone(staff),
		byID:  make(map[int64]int, len(staff)),
	}
	for i, m := range r.staff {
		r.byID[m.ID] = i
	}
	return r
}

func (r *StaffRoster) Get(id int64) (*domain.StaffMember, bool) {
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return &r.staff[i], true
}

func (r *StaffRoster) All() []domain.StaffMember {
	return slices.Clone(r.staff)
}

// Active 返回在职员工，只有这些员工参与排班和工时计算
func (r *StaffRoster) Active() []domain.StaffMember {
	active := make([]domain.StaffMember, 0, len(r.staff))
	for _, m := range r.staff {
		if m.IsActive() {
			active = append(active, m)
		}
	}
	return active
}

// AssignmentSet 是一周的 (shift, staff) 配对
type AssignmentSet struct {
	assignments []domain.Assignment
	byShift     map[int64][]int
	byStaff     map[int64][]int
}

func NewAssignmentSet(assignments []domain.Assignment) *AssignmentSet {
	a := &AssignmentSet{
		assignments: slices.Clone(assignments),
		byShift:     make(map[int64][]int),
		byStaff:     make(map[int64][]int),
	}
	for i, asg := range a.assignments {
		a.byShift[asg.ShiftID] = append(a.byShift[asg.ShiftID], i)
		a.byStaff[asg.StaffID] = append(a.byStaff[asg.StaffID], i)
	}
	return a
}

func (a *AssignmentSet) All() []domain.Assignment {
	return slices.Clone(a.assignments)
}

func (a *AssignmentSet) Len() int {
	return len(a.assignments)
}

func (a *AssignmentSet) ForShift(shiftID int64) []domain.Assignment {
	return a.collect(a.byShift[shiftID])
}

func (a *AssignmentSet) ForStaff(staffID int64) []domain.Assignment {
	return a.collect(a.byStaff[staffID])
}

func (a *AssignmentSet) collect(idx []int) []domain.Assignment {
	out := make([]domain.Assignment, 0, len(idx))
	for _, i := range idx {
		out = append(out, a.assignments[i])
	}
	return out
}

// Find 按 (shiftID, staffID) 查找
func (a *AssignmentSet) Find(shiftID, staffID int64) (domain.Assignment, bool) {
	for _, i := range a.byShift[shiftID] {
		if a.assignments[i].StaffID == staffID {
			return a.assignments[i], true
		}
	}
	return domain.Assignment{}, false
}

// Snapshot 是某个机构某一周的不可变数据快照
// ConflictValidator 和 HoursCalculator 只读取它，从不修改
type Snapshot struct {
	FacilityID  int64
	WeekStart   string
	Shifts      *ShiftCatalog
	Staff       *StaffRoster
	Assignments *AssignmentSet
}

func NewSnapshot(facilityID int64, weekStart string, shifts []domain.Shift, staff []domain.StaffMember, assignments []domain.Assignment) *Snapshot {
	return &Snapshot{
		FacilityID:  facilityID,
		WeekStart:   weekStart,
		Shifts:      NewShiftCatalog(shifts),
		Staff:       NewStaffRoster(staff),
		Assignments: NewAssignmentSet(assignments),
	}
}

// ActiveAssignmentCount 统计某班次中在职员工的分配数量
func (s *Snapshot) ActiveAssignmentCount(shiftID int64) int {
	n := 0
	for _, asg := range s.Assignments.ForShift(shiftID) {
		if m, ok := s.Staff.Get(asg.StaffID); ok && m.IsActive() {
			n++
		}
	}
	return n
}

// With 返回追加了若干分配后的新快照，仅用于自动排班的规划阶段
func (s *Snapshot) With(extra ...domain.Assignment) *Snapshot {
	all := append(s.Assignments.All(), extra...)
	return &Snapshot{
		FacilityID:  s.FacilityID,
		WeekStart:   s.WeekStart,
		Shifts:      s.Shifts,
		Staff:       s.Staff,
		Assignments: NewAssignmentSet(all),
	}
}
