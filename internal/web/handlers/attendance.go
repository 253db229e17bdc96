package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceHandler handles the attendance ledger endpoints.
type AttendanceHandler struct {
	ledger *attendance.Ledger
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(ledger *attendance.Ledger) *AttendanceHandler {
	return &AttendanceHandler{ledger: ledger}
}

// markRequest represents a manual attendance event for a known identity,
// bypassing the matcher. Used by reception when a face capture fails.
type markRequest struct {
	IdentityID string `json:"identity_id"`
	At         string `json:"at,omitempty"`
}

// sessionResponse represents an attendance session in API responses.
type sessionResponse struct {
	ID         int64      `json:"id"`
	IdentityID string     `json:"identity_id"`
	Date       string     `json:"date"`
	CheckIn    time.Time  `json:"check_in"`
	CheckOut   *time.Time `json:"check_out,omitempty"`
}

func toSessionResponse(session database.Session) sessionResponse {
	return sessionResponse{
		ID:         session.ID,
		IdentityID: session.IdentityID,
		Date:       session.Day,
		CheckIn:    session.CheckIn,
		CheckOut:   session.CheckOut,
	}
}

// dayResponse represents one day of the attendance ledger.
type dayResponse struct {
	Date            string            `json:"date"`
	TotalIdentities int               `json:"total_identities"`
	Sessions        []sessionResponse `json:"sessions"`
}

// Mark handles POST /attendance/mark: records a presence event for an
// identity by ID.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.IdentityID == "" {
		respondError(w, http.StatusBadRequest, "identity_id is required")
		return
	}

	at, err := parseAt(req.At)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	outcome, err := h.ledger.RecordPresence(r.Context(), req.IdentityID, at)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	session := toSessionResponse(outcome.Session)
	respondJSON(w, http.StatusOK, map[string]any{
		"state":   string(outcome.State),
		"session": session,
	})
}

// Today handles GET /attendance/today.
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	h.respondDay(w, r, h.ledger.Today())
}

// ByDate handles GET /attendance/{date} for a YYYY-MM-DD date.
func (h *AttendanceHandler) ByDate(w http.ResponseWriter, r *http.Request) {
	h.respondDay(w, r, chi.URLParam(r, "date"))
}

func (h *AttendanceHandler) respondDay(w http.ResponseWriter, r *http.Request, day string) {
	sessions, total, err := h.ledger.ListByDay(r.Context(), day)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	responses := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, toSessionResponse(session))
	}

	respondJSON(w, http.StatusOK, dayResponse{
		Date:            day,
		TotalIdentities: total,
		Sessions:        responses,
	})
}
