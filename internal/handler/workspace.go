package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
	"github.com/carelink-dev/shift-board/engine/internal/orchestrator"
	"github.com/carelink-dev/shift-board/engine/internal/utils"
)

type workspaceView struct {
	FacilityID   int64                      `json:"facility_id"`
	WeekStart    string                     `json:"week_start"`
	Dates        []string                   `json:"dates"`
	State        orchestrator.StateName     `json:"state"`
	DraggingID   *int64                     `json:"dragging_staff_id"`
	Confirmation *orchestrator.Confirmation `json:"confirmation"`
	Shifts       []domain.Shift             `json:"shifts"`
	Staff        []domain.StaffMember       `json:"staff"`
	Assignments  []domain.Assignment        `json:"assignments"`
}

func (h *Handler) view(sess *session) workspaceView {
	snap := sess.orchestrator.Snapshot()
	dates, _ := utils.WeekDates(snap.WeekStart)

	v := workspaceView{
		FacilityID:  snap.FacilityID,
		WeekStart:   snap.WeekStart,
		Dates:       dates,
		Shifts:      snap.Shifts.All(),
		Staff:       snap.Staff.All(),
		Assignments: snap.Assignments.All(),
	}

	state := sess.orchestrator.State()
	v.State = state.Name()
	switch s := state.(type) {
	case orchestrator.Dragging:
		id := s.StaffID
		v.DraggingID = &id
	case orchestrator.ConfirmPending:
		c := s.Confirmation
		v.Confirmation = &c
	}
	return v
}

func workspaceFrom(r *http.Request) *session {
	return r.Context().Value(WorkspaceCtxKey).(*session)
}

func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	sess := workspaceFrom(r)
	h.successResponse(w, r, "schedule loaded", h.view(sess))
}

func (h *Handler) RefreshWorkspace(w http.ResponseWriter, r *http.Request) {
	sess := workspaceFrom(r)
	if _, err := sess.orchestrator.Refresh(r.Context()); err != nil {
		h.schedulingError(w, r, err, nil)
		return
	}
	h.successResponse(w, r, "schedule refreshed", h.view(sess))
}

func (h *Handler) GetHours(w http.ResponseWriter, r *http.Request) {
	sess := workspaceFrom(r)
	h.successResponse(w, r, "hours calculated", sess.orchestrator.Hours())
}

func (h *Handler) GetConflicts(w http.ResponseWriter, r *http.Request) {
	sess := workspaceFrom(r)
	records := sess.orchestrator.Review()
	if records == nil {
		records = []domain.ConflictRecord{}
	}
	h.successResponse(w, r, "week reviewed", records)
}

type placementRequest struct {
	StaffID int64 `json:"staff_id" validate:"required,gt=0"`
	ShiftID int64 `json:"shift_id" validate:"required,gt=0"`
}

func (h *Handler) ValidatePlacement(w http.ResponseWriter, r *http.Request) {
	var req placementRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	sess := workspaceFrom(r)
	records, err := sess.orchestrator.Validate(req.StaffID, req.ShiftID)
	if err != nil {
		h.schedulingError(w, r, err, nil)
		return
	}
	if records == nil {
		records = []domain.ConflictRecord{}
	}
	h.successResponse(w, r, "placement validated", records)
}

func (h *Handler) StartDrag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StaffID int64 `json:"staff_id" validate:"required,gt=0"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	sess := workspaceFrom(r)
	if err := sess.orchestrator.PickUp(req.StaffID); err != nil {
		h.schedulingError(w, r, err, nil)
		return
	}
	h.successResponse(w, r, "drag started", h.view(sess))
}

func (h *Handler) CancelDrag(w http.ResponseWriter, r *http.Request) {
	sess := workspaceFrom(r)
	if err := sess.orchestrator.CancelDrag(); err != nil {
		h.schedulingError(w, r, err, nil)
		return
	}
	h.successResponse(w, r, "drag cancelled", h.view(sess))
}

func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShiftID int64 `json:"shift_id" validate:"required,gt=0"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.mutate(w, r, func(ctx context.Context, o *orchestrator.Orchestrator) opResult {
		outcome, err := o.Drop(ctx, req.ShiftID)
		return outcomeResult(outcome, err)
	})
}

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req placementRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.mutate(w, r, func(ctx context.Context, o *orchestrator.Orchestrator) opResult {
		outcome, err := o.Assign(ctx, req.StaffID, req.ShiftID)
		return outcomeResult(outcome, err)
	})
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	var req placementRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.mutate(w, r, func(ctx context.Context, o *orchestrator.Orchestrator) opResult {
		outcome, err := o.Unassign(ctx, req.ShiftID, req.StaffID)
		return outcomeResult(outcome, err)
	})
}

func (h *Handler) ReassignShift(w http.ResponseWriter, r *http.Request) {
	shiftID, err := strconv.ParseInt(chi.URLParam(r, "shiftID"), 10, 64)
	if err != nil || shiftID <= 0 {
		h.errorResponse(w, r, "invalid shift id")
		return
	}

	var req struct {
		StaffIDs []int64 `json:"staff_ids" validate:"dive,gt=0"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.mutate(w, r, func(ctx context.Context, o *orchestrator.Orchestrator) opResult {
		outcome, err := o.Reassign(ctx, shiftID, req.StaffIDs)
		return outcomeResult(outcome, err)
	})
}

func (h *Handler) AutoFill(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, o *orchestrator.Orchestrator) opResult {
		report, err := o.AutoFill(ctx)
		if report == nil {
			return opResult{err: err}
		}
		return opResult{message: report.Message, data: report, err: err}
	})
}

func (h *Handler) ClearWeek(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, o *orchestrator.Orchestrator) opResult {
		outcome, err := o.ClearWeek(ctx)
		return outcomeResult(outcome, err)
	})
}

func (h *Handler) GetConfirmation(w http.ResponseWriter, r *http.Request) {
	sess := workspaceFrom(r)
	p := sess.currentPending()
	if p == nil {
		h.successResponse(w, r, "no confirmation pending", nil)
		return
	}
	h.successResponse(w, r, "confirmation pending", map[string]any{"confirmation": p.prompt.Confirmation})
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, orchestrator.Confirm)
}

func (h *Handler) CancelConfirmation(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, orchestrator.Cancel)
}

func outcomeResult(outcome *orchestrator.Outcome, err error) opResult {
	if outcome == nil {
		return opResult{err: err}
	}
	return opResult{message: outcome.Message, data: outcome, err: err}
}

// mutate 在后台执行修改：操作结束则直接返回结果；若操作挂起在确认上，则返回确认内容，
// 后续由 confirm / cancel 请求继续。等待确认超过 SESSION_CONFIRM_TIMEOUT 视为取消，
// 提交阶段只受每次后端请求自身的超时限制
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, o *orchestrator.Orchestrator) opResult) {
	sess := workspaceFrom(r)
	if !sess.op.TryLock() {
		h.errorResponse(w, r, domain.ErrBusy.Error())
		return
	}
	defer sess.op.Unlock()

	ctx := context.WithoutCancel(r.Context())
	done := make(chan opResult, 1)
	go func() {
		res := fn(ctx, sess.orchestrator)
		sess.clearPending(done)
		done <- res
	}()

	select {
	case res := <-done:
		h.respond(w, r, sess, res)
	case prompt := <-sess.gate.Prompts():
		sess.setPending(&pendingOp{prompt: prompt, done: done})
		h.successResponse(w, r, "confirmation required", map[string]any{"confirmation": prompt.Confirmation})
	}
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, d orchestrator.Decision) {
	sess := workspaceFrom(r)
	sess.op.Lock()
	defer sess.op.Unlock()

	p := sess.takePending(chi.URLParam(r, "confirmationID"))
	if p == nil {
		h.errorResponse(w, r, "confirmation not found or already resolved")
		return
	}
	if err := p.prompt.Resolve(d); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	select {
	case res := <-p.done:
		h.respond(w, r, sess, res)
	case <-r.Context().Done():
		// 操作仍会在后台完成，结果以下一次刷新为准
		h.errorResponse(w, r, "request cancelled")
	}
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, sess *session, res opResult) {
	if res.err != nil {
		h.schedulingError(w, r, res.err, res.data)
		return
	}
	h.successResponse(w, r, res.message, map[string]any{
		"result":    res.data,
		"workspace": h.view(sess),
	})
}
