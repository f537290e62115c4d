package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

type staffPayload struct {
	ID              json.RawMessage    `json:"id"`
	FirstName       string             `json:"first_name"`
	LastName        string             `json:"last_name"`
	Email           string             `json:"email"`
	Role            domain.Role        `json:"role"`
	Status          domain.StaffStatus `json:"status"`
	MaxHoursPerWeek float64            `json:"max_hours_per_week"`
}

func (r *Repository) GetStaff(ctx context.Context, facilityID int64) ([]domain.StaffMember, error) {
	query := url.Values{}
	query.Set("facility", strconv.FormatInt(facilityID, 10))

	var payloads []staffPayload
	if err := r.getList(ctx, "list staff", "/staff", query, &payloads); err != nil {
		return nil, err
	}

	staff := make([]domain.StaffMember, 0, len(payloads))
	for _, p := range payloads {
		id, err := firstRef(p.ID)
		if err != nil {
			return nil, &domain.NetworkFailure{Op: "list staff", Err: fmt.Errorf("staff id: %w", err)}
		}
		staff = append(staff, domain.StaffMember{
			ID:              id,
			FirstName:       p.FirstName,
			LastName:        p.LastName,
			Email:           p.Email,
			Role:            p.Role,
			Status:          p.Status,
			MaxHoursPerWeek: p.MaxHoursPerWeek,
		})
	}
	return staff, nil
}
