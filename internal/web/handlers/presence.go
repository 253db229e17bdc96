package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// PresenceHandler handles the face-driven attendance endpoint.
type PresenceHandler struct {
	coordinator *attendance.Coordinator
}

// NewPresenceHandler creates a new presence handler.
func NewPresenceHandler(coordinator *attendance.Coordinator) *PresenceHandler {
	return &PresenceHandler{coordinator: coordinator}
}

// presenceRequest represents a single camera capture. At optionally overrides
// the event timestamp (RFC 3339); kiosks that batch offline captures use it.
type presenceRequest struct {
	probeRequest
	At string `json:"at,omitempty"`
}

// presenceResponse represents the outcome of presenting a snapshot.
type presenceResponse struct {
	Recognized bool              `json:"recognized"`
	Identity   *identityResponse `json:"identity,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
	State      string            `json:"state,omitempty"`
	Session    *sessionResponse  `json:"session,omitempty"`
}

// Present handles POST /presence: matches the snapshot against the roster and,
// on a match, records the check-in or check-out. An unrecognized face returns
// 200 with recognized=false and leaves the ledger untouched.
func (h *PresenceHandler) Present(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	probe, _, err := resolveProbe(req.probeRequest)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	at, err := parseAt(req.At)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	result, err := h.coordinator.Present(r.Context(), probe, at)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := presenceResponse{Recognized: result.Recognized}
	if result.Recognized {
		identity := toIdentityResponse(*result.Identity)
		session := toSessionResponse(result.Outcome.Session)
		resp.Identity = &identity
		resp.Confidence = result.Confidence
		resp.State = string(result.Outcome.State)
		resp.Session = &session
	}

	respondJSON(w, http.StatusOK, resp)
}
