package handlers

import (
	"net/http"
	"testing"
)

func TestMarkAttendance(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "emp001", "Alice", []float32{1, 0})

	rec := doJSON(t, env.attendance.Mark, http.MethodPost, "/api/v1/attendance/mark", map[string]any{
		"identity_id": "emp001",
		"at":          "2026-08-28T09:00:00Z",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["state"] != "checked_in" {
		t.Errorf("Expected checked_in, got %v", body["state"])
	}

	rec = doJSON(t, env.attendance.Mark, http.MethodPost, "/api/v1/attendance/mark", map[string]any{
		"identity_id": "emp001",
		"at":          "2026-08-28T17:30:00Z",
	})
	body = decodeBody(t, rec)
	if body["state"] != "checked_out" {
		t.Errorf("Expected checked_out, got %v", body["state"])
	}
}

func TestMarkAttendanceErrors(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "emp001", "Alice", []float32{1, 0})

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"unknown identity", map[string]any{"identity_id": "ghost"}, http.StatusNotFound},
		{"missing identity id", map[string]any{}, http.StatusBadRequest},
		{"bad timestamp", map[string]any{"identity_id": "emp001", "at": "noon"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, env.attendance.Mark, http.MethodPost, "/api/v1/attendance/mark", tt.body)
			if rec.Code != tt.status {
				t.Errorf("Expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAttendanceByDate(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "emp001", "Alice", []float32{1, 0})
	env.mustEnroll(t, "emp002", "Bob", []float32{0, 1})

	for _, mark := range []map[string]any{
		{"identity_id": "emp001", "at": "2026-08-28T09:00:00Z"},
		{"identity_id": "emp001", "at": "2026-08-28T17:00:00Z"},
		{"identity_id": "emp002", "at": "2026-08-28T10:00:00Z"},
	} {
		rec := doJSON(t, env.attendance.Mark, http.MethodPost, "/api/v1/attendance/mark", mark)
		if rec.Code != http.StatusOK {
			t.Fatalf("Mark failed with %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec := doWithURLParam(t, env.attendance.ByDate, http.MethodGet, "/api/v1/attendance/2026-08-28", "date", "2026-08-28")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["date"] != "2026-08-28" {
		t.Errorf("Expected date 2026-08-28, got %v", body["date"])
	}
	if body["total_identities"] != float64(2) {
		t.Errorf("Expected 2 identities, got %v", body["total_identities"])
	}
	sessions, ok := body["sessions"].([]any)
	if !ok || len(sessions) != 2 {
		t.Errorf("Expected 2 sessions, got %v", body["sessions"])
	}

	// A day with no events returns an empty ledger, not an error.
	rec = doWithURLParam(t, env.attendance.ByDate, http.MethodGet, "/api/v1/attendance/2026-08-29", "date", "2026-08-29")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body = decodeBody(t, rec)
	if body["total_identities"] != float64(0) {
		t.Errorf("Expected 0 identities, got %v", body["total_identities"])
	}
}

func TestAttendanceInvalidDate(t *testing.T) {
	env := newTestEnv(t)

	rec := doWithURLParam(t, env.attendance.ByDate, http.MethodGet, "/api/v1/attendance/today-ish", "date", "today-ish")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthCheck(t *testing.T) {
	rec := doJSON(t, HealthCheck, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
}
