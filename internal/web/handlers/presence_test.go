package handlers

import (
	"net/http"
	"testing"
)

func TestPresentRecognized(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "emp001", "Alice", []float32{1, 0, 0})

	rec := doJSON(t, env.presence.Present, http.MethodPost, "/api/v1/presence", map[string]any{
		"feature": []float32{1, 0, 0},
		"at":      "2026-08-28T09:00:00Z",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["recognized"] != true {
		t.Fatal("Expected the probe to be recognized")
	}
	if body["state"] != "checked_in" {
		t.Errorf("Expected state checked_in, got %v", body["state"])
	}
	identity, ok := body["identity"].(map[string]any)
	if !ok || identity["identity_id"] != "emp001" {
		t.Errorf("Expected identity emp001, got %v", body["identity"])
	}

	// Second capture closes the session.
	rec = doJSON(t, env.presence.Present, http.MethodPost, "/api/v1/presence", map[string]any{
		"feature": []float32{1, 0, 0},
		"at":      "2026-08-28T17:00:00Z",
	})
	body = decodeBody(t, rec)
	if body["state"] != "checked_out" {
		t.Errorf("Expected state checked_out, got %v", body["state"])
	}
	session, ok := body["session"].(map[string]any)
	if !ok || session["check_out"] == nil {
		t.Errorf("Expected a closed session, got %v", body["session"])
	}
}

func TestPresentUnrecognized(t *testing.T) {
	env := newTestEnv(t)
	env.mustEnroll(t, "emp001", "Alice", []float32{1, 0, 0})

	rec := doJSON(t, env.presence.Present, http.MethodPost, "/api/v1/presence", map[string]any{
		"feature": []float32{0, 1, 0},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["recognized"] != false {
		t.Error("Expected recognized=false")
	}
	if _, ok := body["identity"]; ok {
		t.Error("Unrecognized response must not carry an identity")
	}
}

func TestPresentRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing probe", map[string]any{}},
		{"bad timestamp", map[string]any{"feature": []float32{1, 0}, "at": "yesterday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, env.presence.Present, http.MethodPost, "/api/v1/presence", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}
