package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/feature"
	"github.com/kozaktomas/face-attendance/internal/photostore"
)

// IdentitiesHandler handles the enrollment roster endpoints.
type IdentitiesHandler struct {
	store   database.IdentityStore
	matcher *attendance.Matcher
	photos  *photostore.Store
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(store database.IdentityStore, matcher *attendance.Matcher, photos *photostore.Store) *IdentitiesHandler {
	return &IdentitiesHandler{
		store:   store,
		matcher: matcher,
		photos:  photos,
	}
}

// enrollRequest represents an enrollment request. The snapshot arrives either
// as a base64 image or as a pre-extracted feature vector.
type enrollRequest struct {
	probeRequest
	IdentityID  string `json:"identity_id"`
	DisplayName string `json:"display_name"`
	Department  string `json:"department,omitempty"`
}

// identityResponse represents an enrolled identity in API responses.
// The feature vector is internal and never exposed.
type identityResponse struct {
	IdentityID  string    `json:"identity_id"`
	DisplayName string    `json:"display_name"`
	Department  string    `json:"department,omitempty"`
	PhotoPath   string    `json:"photo_path,omitempty"`
	EnrolledAt  time.Time `json:"enrolled_at"`
}

func toIdentityResponse(identity database.Identity) identityResponse {
	return identityResponse{
		IdentityID:  identity.IdentityID,
		DisplayName: identity.DisplayName,
		Department:  identity.Department,
		PhotoPath:   identity.PhotoPath,
		EnrolledAt:  identity.EnrolledAt,
	}
}

// Enroll handles POST /identities: registers a new identity with its snapshot.
func (h *IdentitiesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	probe, imageData, err := resolveProbe(req.probeRequest)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	identity := database.Identity{
		IdentityID:  req.IdentityID,
		DisplayName: req.DisplayName,
		Department:  req.Department,
		Feature:     probe,
	}

	// Store the snapshot first so the enrolled record can reference it.
	if imageData != nil && h.photos != nil {
		path, err := h.photos.Save(req.IdentityID, imageData)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		identity.PhotoPath = path
	}

	enrolled, err := h.store.Enroll(r.Context(), identity)
	if err != nil {
		// Enrollment failed, do not keep an orphaned snapshot around.
		if identity.PhotoPath != "" {
			_ = h.photos.Remove(identity.PhotoPath)
		}
		respondDomainError(w, err)
		return
	}

	h.matcher.IndexIdentity(enrolled)

	respondJSON(w, http.StatusCreated, toIdentityResponse(enrolled))
}

// List handles GET /identities. An optional q parameter filters by display
// name or department, case- and diacritics-insensitively.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	identities, err := h.store.List(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if q := feature.NormalizeName(r.URL.Query().Get("q")); q != "" {
		filtered := make([]database.Identity, 0, len(identities))
		for _, identity := range identities {
			if strings.Contains(feature.NormalizeName(identity.DisplayName), q) ||
				strings.Contains(feature.NormalizeName(identity.Department), q) {
				filtered = append(filtered, identity)
			}
		}
		identities = filtered
	}

	responses := make([]identityResponse, 0, len(identities))
	for _, identity := range identities {
		responses = append(responses, toIdentityResponse(identity))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"identities": responses,
		"count":      len(responses),
	})
}

// Get handles GET /identities/{id}.
func (h *IdentitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	identityID := chi.URLParam(r, "id")

	identity, err := h.store.Get(r.Context(), identityID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if identity == nil {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}

	respondJSON(w, http.StatusOK, toIdentityResponse(*identity))
}
