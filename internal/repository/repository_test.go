package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink-dev/shift-board/engine/internal/config"
	"github.com/carelink-dev/shift-board/engine/internal/domain"
)

func newTestRepository(t *testing.T, handler http.HandlerFunc) *Repository {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Backend.BaseURL = srv.URL + "/api/"
	cfg.Backend.RequestTimeout = 5
	cfg.Backend.Token = "service-token"
	return NewRepository(cfg, srv.Client())
}

func TestGetShifts(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/shifts", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("facility"))
		assert.Equal(t, "2024-03-04", r.URL.Query().Get("week_start"))
		assert.Equal(t, "Bearer service-token", r.Header.Get("Authorization"))

		io.WriteString(w, `{"count": 3, "results": [
			{"id": 1, "date": "2024-03-04", "shift_type": "Day", "required_role": "med_tech", "required_staff_count": 2,
			 "time_template": {"id": 9, "start_time": "07:00:00", "end_time": "15:00:00"}},
			{"id": "2", "date": "2024-03-04", "shift_type": "NOC", "required_staff_role": "nurse",
			 "start_time": "22:00", "end_time": "06:00"},
			{"id": 3, "date": "2024-03-05", "shift_type": "Swing", "required_role": "caregiver", "required_staff_count": 1, "time_template": 4}
		]}`)
	})

	shifts, err := repo.GetShifts(context.Background(), 7, "2024-03-04")
	require.NoError(t, err)
	require.Len(t, shifts, 3)

	assert.Equal(t, int64(1), shifts[0].ID)
	assert.Equal(t, 2, shifts[0].RequiredStaffCount)
	assert.Equal(t, &domain.TimeTemplate{StartTime: "07:00:00", EndTime: "15:00:00"}, shifts[0].TimeTemplate)

	assert.Equal(t, int64(2), shifts[1].ID)
	assert.Equal(t, domain.RoleNurse, shifts[1].RequiredRole)
	assert.Equal(t, 1, shifts[1].RequiredStaffCount)
	assert.Equal(t, &domain.TimeTemplate{StartTime: "22:00", EndTime: "06:00"}, shifts[1].TimeTemplate)

	// 模板只有 id 时无法得知时长
	assert.Nil(t, shifts[2].TimeTemplate)
}

func TestGetAssignmentsNormalizesReferences(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/assignments", r.URL.Path)
		io.WriteString(w, `[
			{"id": 100, "shift": 1, "staff": 10, "status": "scheduled"},
			{"id": 101, "shift": {"id": 2, "date": "2024-03-05"}, "staff": {"id": 11, "first_name": "Ben"}},
			{"id": 102, "shift_id": "3", "staff_id": "12"}
		]`)
	})

	assignments, err := repo.GetAssignments(context.Background(), 7, "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, []domain.Assignment{
		{ID: 100, ShiftID: 1, StaffID: 10, Status: "scheduled"},
		{ID: 101, ShiftID: 2, StaffID: 11},
		{ID: 102, ShiftID: 3, StaffID: 12},
	}, assignments)
}

func TestGetAssignmentsMissingReference(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id": 100, "shift": {"date": "2024-03-05"}, "staff": 10}]`)
	})

	_, err := repo.GetAssignments(context.Background(), 7, "2024-03-04")
	var nf *domain.NetworkFailure
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "list assignments", nf.Op)
}

func TestGetStaff(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/staff", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("facility"))
		io.WriteString(w, `[{"id": 10, "first_name": "Ann", "last_name": "Lee", "role": "med_tech", "status": "on_leave", "max_hours_per_week": 32}]`)
	})

	staff, err := repo.GetStaff(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "Ann Lee", staff[0].FullName())
	assert.Equal(t, domain.StaffOnLeave, staff[0].Status)
	assert.Equal(t, float64(32), staff[0].MaxHoursPerWeek)
}

func TestCreateAssignment(t *testing.T) {
	tests := []struct {
		name   string
		legacy bool
		want   map[string]int64
	}{
		{"current payload", false, map[string]int64{"shift_id": 1, "staff_id": 10}},
		{"legacy payload", true, map[string]int64{"shift": 1, "staff": 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var body map[string]int64
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, tt.want, body)

				w.WriteHeader(http.StatusCreated)
				io.WriteString(w, `{"id": 55, "shift": {"id": 1}, "staff": 10, "status": "scheduled"}`)
			})
			repo.cfg.Backend.LegacyAssignmentPayload = tt.legacy

			asg, err := repo.CreateAssignment(context.Background(), 1, 10)
			require.NoError(t, err)
			assert.Equal(t, &domain.Assignment{ID: 55, ShiftID: 1, StaffID: 10, Status: "scheduled"}, asg)
		})
	}
}

func TestOperatorTokenOverridesServiceToken(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer operator-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})

	ctx := WithToken(context.Background(), "operator-token")
	require.NoError(t, repo.DeleteAssignment(ctx, 100))
}

func TestBackendErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"detail", http.StatusBadRequest, `{"detail": "Shift is locked"}`, "Shift is locked"},
		{"non field errors", http.StatusBadRequest, `{"non_field_errors": ["already assigned", "shift full"]}`, "already assigned; shift full"},
		{"unauthorized", http.StatusUnauthorized, `{"detail": "Token expired"}`, "Token expired"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := repo.CreateAssignment(context.Background(), 1, 10)
			var nf *domain.NetworkFailure
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, tt.status, nf.StatusCode)
			assert.Equal(t, tt.wantDetail, nf.Detail)
			assert.Equal(t, tt.status == http.StatusUnauthorized, nf.Unauthorized())
			if tt.wantDetail == "" {
				assert.Equal(t, "unable to reach the scheduling service, please try again", err.Error())
			}
		})
	}
}

func TestDeleteAssignmentNotFound(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/assignments/100", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail": "Not found."}`)
	})

	err := repo.DeleteAssignment(context.Background(), 100)
	var stale *domain.StaleReferenceError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, "assignment not found", err.Error())
}

func TestClearShifts(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/shifts/clear_shifts", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2024-03-04", body["week_start"])
		assert.Equal(t, float64(7), body["facility"])
		io.WriteString(w, `{"deleted": 12}`)
	})

	require.NoError(t, repo.ClearShifts(context.Background(), 7, "2024-03-04"))
}

func TestUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	cfg := &config.Config{}
	cfg.Backend.BaseURL = srv.URL
	cfg.Backend.RequestTimeout = 1
	repo := NewRepository(cfg, nil)

	_, err := repo.GetStaff(context.Background(), 7)
	var nf *domain.NetworkFailure
	require.ErrorAs(t, err, &nf)
	assert.Zero(t, nf.StatusCode)
	assert.Error(t, nf.Unwrap())
}

func TestRefID(t *testing.T) {
	tests := []struct {
		raw    string
		want   int64
		ok     bool
		hasErr bool
	}{
		{`12`, 12, true, false},
		{`"12"`, 12, true, false},
		{`{"id": 12, "name": "x"}`, 12, true, false},
		{`{"id": "12"}`, 12, true, false},
		{`null`, 0, false, false},
		{``, 0, false, false},
		{`"abc"`, 0, false, true},
		{`{"name": "x"}`, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id, ok, err := refID(json.RawMessage(tt.raw))
			if tt.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
