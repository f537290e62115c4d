package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

// assignmentPayload 中的 shift / staff 可能是嵌套对象或裸 id，入库前统一
type assignmentPayload struct {
	ID      json.RawMessage `json:"id"`
	Shift   json.RawMessage `json:"shift"`
	ShiftID json.RawMessage `json:"shift_id"`
	Staff   json.RawMessage `json:"staff"`
	StaffID json.RawMessage `json:"staff_id"`
	Status  string          `json:"status"`
}

func (p *assignmentPayload) normalize() (domain.Assignment, error) {
	id, err := firstRef(p.ID)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("assignment id: %w", err)
	}
	shiftID, err := firstRef(p.ShiftID, p.Shift)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("assignment %d shift: %w", id, err)
	}
	staffID, err := firstRef(p.StaffID, p.Staff)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("assignment %d staff: %w", id, err)
	}
	return domain.Assignment{
		ID:      id,
		ShiftID: shiftID,
		StaffID: staffID,
		Status:  p.Status,
	}, nil
}

func (r *Repository) GetAssignments(ctx context.Context, facilityID int64, weekStart string) ([]domain.Assignment, error) {
	query := url.Values{}
	query.Set("facility", strconv.FormatInt(facilityID, 10))
	query.Set("week_start", weekStart)

	var payloads []assignmentPayload
	if err := r.getList(ctx, "list assignments", "/assignments", query, &payloads); err != nil {
		return nil, err
	}

	assignments := make([]domain.Assignment, 0, len(payloads))
	for _, p := range payloads {
		asg, err := p.normalize()
		if err != nil {
			return nil, &domain.NetworkFailure{Op: "list assignments", Err: err}
		}
		assignments = append(assignments, asg)
	}
	return assignments, nil
}

// CreateAssignment 成功时后端返回 201；返回值仅供日志使用，调用方随后必须全量刷新
func (r *Repository) CreateAssignment(ctx context.Context, shiftID, staffID int64) (*domain.Assignment, error) {
	var body map[string]int64
	if r.cfg.Backend.LegacyAssignmentPayload {
		body = map[string]int64{"shift": shiftID, "staff": staffID}
	} else {
		body = map[string]int64{"shift_id": shiftID, "staff_id": staffID}
	}

	var raw json.RawMessage
	if _, err := r.do(ctx, "create assignment", http.MethodPost, "/assignments", nil, body, &raw); err != nil {
		return nil, err
	}

	asg := &domain.Assignment{ShiftID: shiftID, StaffID: staffID}
	var p assignmentPayload
	if len(raw) > 0 && json.Unmarshal(raw, &p) == nil {
		if id, ok, err := refID(p.ID); err == nil && ok {
			asg.ID = id
		}
		asg.Status = p.Status
	}
	return asg, nil
}

// DeleteAssignment 后端返回 404 说明本地缓存已过期
func (r *Repository) DeleteAssignment(ctx context.Context, id int64) error {
	status, err := r.do(ctx, "delete assignment", http.MethodDelete, "/assignments/"+strconv.FormatInt(id, 10), nil, nil, nil)
	if err != nil {
		var nf *domain.NetworkFailure
		if status == http.StatusNotFound && errors.As(err, &nf) {
			return &domain.StaleReferenceError{Kind: "assignment", ID: id, Detail: "assignment not found"}
		}
		return err
	}
	return nil
}
