package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
	"github.com/carelink-dev/shift-board/engine/internal/lock"
	"github.com/carelink-dev/shift-board/engine/internal/scheduler"
)

// Store 是 AssignmentStore，快照只能通过 Refresh 整体替换
type Store interface {
	FacilityID() int64
	WeekStart() string
	Snapshot() *scheduler.Snapshot
	Refresh(ctx context.Context) (*scheduler.Snapshot, error)
}

// Backend 是提交修改所需的后端接口
type Backend interface {
	CreateAssignment(ctx context.Context, shiftID, staffID int64) (*domain.Assignment, error)
	DeleteAssignment(ctx context.Context, id int64) error
	ClearShifts(ctx context.Context, facilityID int64, weekStart string) error
}

type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// Notifier 在修改提交后通知相关人员，失败只记录日志
type Notifier interface {
	AssignmentCreated(ctx context.Context, staff domain.StaffMember, shift domain.Shift) error
	AssignmentRemoved(ctx context.Context, staff domain.StaffMember, shift domain.Shift) error
	AutoFillCompleted(ctx context.Context, to string, data domain.AutoFillMailData) error
}

// ErrRefreshFailed 表示修改已写入后端，但随后的刷新失败
var ErrRefreshFailed = errors.New("changes were saved but the schedule could not be reloaded")

type Observer func(from, to State)

type Option func(*Orchestrator)

func WithLocker(l Locker) Option {
	return func(o *Orchestrator) { o.locker = l }
}

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, fn) }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithOperatorEmail 设置自动排班汇总邮件的收件人
func WithOperatorEmail(email string) Option {
	return func(o *Orchestrator) { o.operatorEmail = email }
}

// Outcome 是一次操作的结果
type Outcome struct {
	Committed bool                    `json:"committed"`
	Cancelled bool                    `json:"cancelled"`
	Created   []domain.Assignment     `json:"created,omitempty"`
	Conflicts []domain.ConflictRecord `json:"conflicts,omitempty"`
	Message   string                  `json:"message"`
}

// Orchestrator 协调拖拽、批量分配、自动排班和取消分配
// 同一时间只允许一个操作；提交后总是全量刷新，不在本地修补快照
type Orchestrator struct {
	store     Store
	backend   Backend
	validator *scheduler.Validator
	gate      Gate

	locker        Locker
	notifier      Notifier
	logger        *slog.Logger
	operatorEmail string
	observers     []Observer

	mu        sync.Mutex
	state     State
	assigning bool
}

func New(st Store, backend Backend, validator *scheduler.Validator, gate Gate, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     st,
		backend:   backend,
		validator: validator,
		gate:      gate,
		locker:    lock.NewLocal(),
		logger:    slog.Default(),
		state:     Idle{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) Snapshot() *scheduler.Snapshot {
	return o.store.Snapshot()
}

func (o *Orchestrator) set(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()
	o.emit(from, to)
}

// enter 仅在当前状态属于 allowed 时切换到 to
func (o *Orchestrator) enter(to State, allowed ...StateName) (State, error) {
	o.mu.Lock()
	from := o.state
	if !slices.Contains(allowed, from.Name()) {
		o.mu.Unlock()
		if from.Name() == StateIdle {
			return from, domain.ErrNotDragging
		}
		return from, domain.ErrBusy
	}
	o.state = to
	o.mu.Unlock()
	o.emit(from, to)
	return from, nil
}

func (o *Orchestrator) emit(from, to State) {
	o.logger.Debug("状态切换", "from", from.Name(), "to", to.Name())
	for _, fn := range o.observers {
		fn(from, to)
	}
}

// reject 经过 RejectedDrop 回到 Idle
func (o *Orchestrator) reject(err error) error {
	o.set(RejectedDrop{Reason: err.Error()})
	o.set(Idle{})
	return err
}

// Refresh 只在没有进行中的操作时允许
func (o *Orchestrator) Refresh(ctx context.Context) (*scheduler.Snapshot, error) {
	switch o.State().Name() {
	case StateIdle, StateDragging:
	default:
		return nil, domain.ErrBusy
	}
	return o.store.Refresh(ctx)
}

// Review 对当前快照做整周复查
func (o *Orchestrator) Review() []domain.ConflictRecord {
	return o.validator.ValidateAll(o.store.Snapshot())
}

func (o *Orchestrator) Hours() []scheduler.HoursSummary {
	return scheduler.Summary(o.store.Snapshot(), o.validator.Rules)
}

// Validate 只读地校验一个提议，不改变状态
func (o *Orchestrator) Validate(staffID, shiftID int64) ([]domain.ConflictRecord, error) {
	return o.validator.Validate(o.store.Snapshot(), staffID, shiftID)
}

// PickUp 拿起员工卡片，只有在职员工可以拖拽
func (o *Orchestrator) PickUp(staffID int64) error {
	return o.pickUp(staffID, false)
}

// pickUp 在 Assign 进行中拒绝外部的拿起，避免替换掉 Assign 指定的员工
func (o *Orchestrator) pickUp(staffID int64, byAssign bool) error {
	o.mu.Lock()
	name := o.state.Name()
	busy := o.assigning && !byAssign
	o.mu.Unlock()
	if busy || (name != StateIdle && name != StateDragging) {
		return domain.ErrBusy
	}

	staff, ok := o.store.Snapshot().Staff.Get(staffID)
	if !ok {
		return &domain.StaleReferenceError{Kind: "staff member", ID: staffID}
	}
	if !staff.IsActive() {
		return &domain.ValidationRejected{Conflict: inactiveConflict(staff)}
	}

	_, err := o.enter(Dragging{StaffID: staffID}, StateIdle, StateDragging)
	return err
}

func (o *Orchestrator) CancelDrag() error {
	_, err := o.enter(Idle{}, StateDragging)
	return err
}

// Drop 把正在拖拽的员工放到班次上
func (o *Orchestrator) Drop(ctx context.Context, shiftID int64) (*Outcome, error) {
	return o.drop(ctx, shiftID, 0)
}

// drop 读取拖拽中的员工并进入 ValidatingDrop，两步在同一把锁内完成
// expect 非 0 时要求拖拽中的正是该员工
func (o *Orchestrator) drop(ctx context.Context, shiftID, expect int64) (*Outcome, error) {
	o.mu.Lock()
	from := o.state
	d, ok := from.(Dragging)
	if !ok || (expect != 0 && d.StaffID != expect) {
		o.mu.Unlock()
		if from.Name() == StateIdle {
			return nil, domain.ErrNotDragging
		}
		return nil, domain.ErrBusy
	}
	to := ValidatingDrop{Op: "drop", Pairs: []scheduler.Placement{{ShiftID: shiftID, StaffID: d.StaffID}}}
	o.state = to
	o.mu.Unlock()
	o.emit(from, to)

	return o.place(ctx, d.StaffID, shiftID)
}

// Assign 等价于一次完整的拖放，供没有拖拽手势的调用方使用
func (o *Orchestrator) Assign(ctx context.Context, staffID, shiftID int64) (*Outcome, error) {
	o.mu.Lock()
	if o.state.Name() != StateIdle || o.assigning {
		o.mu.Unlock()
		return nil, domain.ErrBusy
	}
	o.assigning = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.assigning = false
		o.mu.Unlock()
	}()

	if err := o.pickUp(staffID, true); err != nil {
		return nil, err
	}
	return o.drop(ctx, shiftID, staffID)
}

func (o *Orchestrator) place(ctx context.Context, staffID, shiftID int64) (*Outcome, error) {
	snap := o.store.Snapshot()

	records, err := o.validator.Validate(snap, staffID, shiftID)
	if err != nil {
		o.refreshAfterStale(ctx, err)
		return nil, o.reject(err)
	}
	if hard, ok := scheduler.HasHard(records); ok {
		return nil, o.reject(&domain.ValidationRejected{Conflict: hard})
	}

	staff, _ := snap.Staff.Get(staffID)
	shift, _ := snap.Shifts.Get(shiftID)

	outcome := &Outcome{Conflicts: records}
	if len(records) > 0 {
		confirmed, err := o.await(ctx, Confirmation{
			Title:     fmt.Sprintf("Assign %s to %s?", staff.FullName(), shift.Label()),
			Message:   scheduler.Summarize(records),
			Conflicts: records,
		})
		if !confirmed {
			o.set(Idle{})
			outcome.Cancelled = true
			outcome.Message = "assignment cancelled"
			return outcome, err
		}
	}

	var created *domain.Assignment
	err = o.commit(ctx, "assign", func(ctx context.Context) (bool, error) {
		var err error
		created, err = o.backend.CreateAssignment(ctx, shiftID, staffID)
		return err == nil, err
	})
	if created != nil {
		outcome.Committed = true
		outcome.Created = []domain.Assignment{*created}
		outcome.Message = fmt.Sprintf("%s assigned to %s", staff.FullName(), shift.Label())
		o.notifyCreated(ctx, *staff, *shift)
	}
	return outcome, err
}

// await 进入 ConfirmPending 并挂起，直到用户确认或取消
func (o *Orchestrator) await(ctx context.Context, c Confirmation) (bool, error) {
	c.ID = uuid.NewString()
	o.set(ConfirmPending{Confirmation: c})

	d, err := o.gate.Await(ctx, c)
	if err != nil {
		o.logger.Info("确认已中止", "confirmation", c.ID, "error", err)
		return false, err
	}
	return d == Confirm, nil
}

// commit 进入 Committing，持锁执行修改；只要有修改成功就全量刷新，失败的修改不触碰本地状态
// fn 返回是否已有修改写入后端
func (o *Orchestrator) commit(ctx context.Context, op string, fn func(ctx context.Context) (bool, error)) error {
	if o.State().Name() != StateCommitting {
		o.set(Committing{Op: op})
	}
	defer o.set(Idle{})

	release, err := o.locker.Acquire(ctx, lock.Key(o.store.FacilityID(), o.store.WeekStart()))
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return domain.ErrBusy
		}
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer release()

	mutated, mutErr := fn(ctx)
	if !mutated {
		o.refreshAfterStale(ctx, mutErr)
		return mutErr
	}

	if _, err := o.store.Refresh(ctx); err != nil {
		o.logger.Error("提交后刷新失败", "op", op, "error", err)
		return errors.Join(mutErr, fmt.Errorf("%w: %w", ErrRefreshFailed, err))
	}
	return mutErr
}

// refreshAfterStale 本地引用已失效时刷新快照
func (o *Orchestrator) refreshAfterStale(ctx context.Context, err error) {
	var stale *domain.StaleReferenceError
	if !errors.As(err, &stale) {
		return
	}
	if _, err := o.store.Refresh(ctx); err != nil {
		o.logger.Error("刷新失效引用失败", "error", err)
	}
}

func (o *Orchestrator) notifyCreated(ctx context.Context, staff domain.StaffMember, shift domain.Shift) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.AssignmentCreated(ctx, staff, shift); err != nil {
		o.logger.Error("发送排班通知失败", "staff", staff.ID, "shift", shift.ID, "error", err)
	}
}

func (o *Orchestrator) notifyRemoved(ctx context.Context, staff domain.StaffMember, shift domain.Shift) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.AssignmentRemoved(ctx, staff, shift); err != nil {
		o.logger.Error("发送取消排班通知失败", "staff", staff.ID, "shift", shift.ID, "error", err)
	}
}

func inactiveConflict(staff *domain.StaffMember) domain.ConflictRecord {
	var why string
	switch staff.Status {
	case domain.StaffOnLeave:
		why = "is on leave"
	case domain.StaffTerminated:
		why = "has been terminated"
	default:
		why = "is not active"
	}
	return domain.ConflictRecord{
		Type:     domain.ConflictInactiveStaff,
		Severity: domain.SeverityError,
		StaffID:  staff.ID,
		Message:  fmt.Sprintf("%s %s and cannot be scheduled", staff.FullName(), why),
		Hard:     true,
	}
}
