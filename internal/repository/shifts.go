package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

type shiftPayload struct {
	ID                 json.RawMessage  `json:"id"`
	Date               string           `json:"date"`
	ShiftType          domain.ShiftType `json:"shift_type"`
	RequiredRole       domain.Role      `json:"required_role"`
	RequiredStaffRole  domain.Role      `json:"required_staff_role"`
	RequiredStaffCount int              `json:"required_staff_count"`
	TimeTemplate       json.RawMessage  `json:"time_template"`
	StartTime          string           `json:"start_time"`
	EndTime            string           `json:"end_time"`
}

func (p *shiftPayload) normalize() (domain.Shift, error) {
	id, err := firstRef(p.ID)
	if err != nil {
		return domain.Shift{}, fmt.Errorf("shift id: %w", err)
	}

	shift := domain.Shift{
		ID:                 id,
		Date:               p.Date,
		ShiftType:          p.ShiftType,
		RequiredRole:       p.RequiredRole,
		RequiredStaffCount: p.RequiredStaffCount,
	}
	if shift.RequiredRole == "" {
		shift.RequiredRole = p.RequiredStaffRole
	}
	if shift.RequiredStaffCount < 1 {
		shift.RequiredStaffCount = 1
	}

	// 时间模板可能是嵌套对象，也可能直接平铺在班次上；裸 id 无法得知时长，记为没有模板
	var tmpl domain.TimeTemplate
	if len(p.TimeTemplate) > 0 && p.TimeTemplate[0] == '{' {
		if err := json.Unmarshal(p.TimeTemplate, &tmpl); err != nil {
			return domain.Shift{}, fmt.Errorf("shift %d time template: %w", id, err)
		}
	} else {
		tmpl = domain.TimeTemplate{StartTime: p.StartTime, EndTime: p.EndTime}
	}
	if tmpl.StartTime != "" && tmpl.EndTime != "" {
		shift.TimeTemplate = &tmpl
	}

	return shift, nil
}

func (r *Repository) GetShifts(ctx context.Context, facilityID int64, weekStart string) ([]domain.Shift, error) {
	query := url.Values{}
	query.Set("facility", strconv.FormatInt(facilityID, 10))
	query.Set("week_start", weekStart)

	var payloads []shiftPayload
	if err := r.getList(ctx, "list shifts", "/shifts", query, &payloads); err != nil {
		return nil, err
	}

	shifts := make([]domain.Shift, 0, len(payloads))
	for _, p := range payloads {
		shift, err := p.normalize()
		if err != nil {
			return nil, &domain.NetworkFailure{Op: "list shifts", Err: err}
		}
		shifts = append(shifts, shift)
	}
	return shifts, nil
}

func (r *Repository) ClearShifts(ctx context.Context, facilityID int64, weekStart string) error {
	body := map[string]any{
		"week_start": weekStart,
		"facility":   facilityID,
	}
	_, err := r.do(ctx, "clear shifts", http.MethodPost, "/shifts/clear_shifts", nil, body, nil)
	return err
}
