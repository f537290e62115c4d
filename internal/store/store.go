package store

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
	"github.com/carelink-dev/shift-board/engine/internal/scheduler"
)

// Fetcher 是刷新快照所需的后端读取接口
type Fetcher interface {
	GetShifts(ctx context.Context, facilityID int64, weekStart string) ([]domain.Shift, error)
	GetStaff(ctx context.Context, facilityID int64) ([]domain.StaffMember, error)
	GetAssignments(ctx context.Context, facilityID int64, weekStart string) ([]domain.Assignment, error)
}

// Store 是后端数据在客户端的镜像，只能通过 Refresh 整体替换，从不局部修改
type Store struct {
	fetcher    Fetcher
	facilityID int64
	weekStart  string

	mu   sync.RWMutex
	snap *scheduler.Snapshot
}

func New(fetcher Fetcher, facilityID int64, weekStart string) *Store {
	return &Store{
		fetcher:    fetcher,
		facilityID: facilityID,
		weekStart:  weekStart,
		snap:       scheduler.NewSnapshot(facilityID, weekStart, nil, nil, nil),
	}
}

func (s *Store) FacilityID() int64 {
	return s.facilityID
}

func (s *Store) WeekStart() string {
	return s.weekStart
}

// Snapshot 返回当前快照，快照本身不可变，可以安全地在多个 goroutine 间共享
func (s *Store) Snapshot() *scheduler.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Refresh 并发拉取班次、员工和分配；任何一个失败都保留原快照
func (s *Store) Refresh(ctx context.Context) (*scheduler.Snapshot, error) {
	var (
		shifts      []domain.Shift
		staff       []domain.StaffMember
		assignments []domain.Assignment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		shifts, err = s.fetcher.GetShifts(gctx, s.facilityID, s.weekStart)
		return err
	})
	g.Go(func() error {
		var err error
		staff, err = s.fetcher.GetStaff(gctx, s.facilityID)
		return err
	})
	g.Go(func() error {
		var err error
		assignments, err = s.fetcher.GetAssignments(gctx, s.facilityID, s.weekStart)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.Snapshot(), err
	}

	snap := scheduler.NewSnapshot(s.facilityID, s.weekStart, shifts, staff, assignments)

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	return snap, nil
}
