package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/feature"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// maxRequestBytes bounds JSON request bodies. Large enough for one
// base64-encoded snapshot at the image size cap plus the JSON envelope.
const maxRequestBytes = 4 << 20

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// decodeJSON decodes a JSON request body into dst. The body is capped at
// maxRequestBytes so an oversized upload fails before being read in full.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, attendance.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, attendance.ErrUnknownIdentity):
		return http.StatusNotFound
	case errors.Is(err, attendance.ErrDuplicateIdentity),
		errors.Is(err, attendance.ErrStaleMatch),
		errors.Is(err, attendance.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, attendance.ErrMatcherTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError classifies a domain error and writes the response.
// Unclassified errors are logged and hidden behind a generic message.
func respondDomainError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %s", sanitizeForLog(err.Error()))
		respondError(w, status, "internal error")
		return
	}
	respondError(w, status, err.Error())
}

// probeRequest carries a face snapshot in one of two forms: a base64-encoded
// image (optionally a data URL) or an already-extracted feature vector.
// Image data takes precedence when both are present.
type probeRequest struct {
	ImageData string    `json:"image_data,omitempty"`
	Feature   []float32 `json:"feature,omitempty"`
}

// resolveProbe turns a probe request into a feature vector. When the request
// carries an image the decoded bytes are returned as well so the caller can
// persist the snapshot.
func resolveProbe(req probeRequest) ([]float32, []byte, error) {
	if req.ImageData != "" {
		raw, err := decodeImagePayload(req.ImageData)
		if err != nil {
			return nil, nil, err
		}
		feat, err := feature.Extract(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", attendance.ErrInvalidInput, err)
		}
		return feat, raw, nil
	}

	if len(req.Feature) > 0 {
		return req.Feature, nil, nil
	}

	return nil, nil, fmt.Errorf("%w: image_data or feature is required", attendance.ErrInvalidInput)
}

// decodeImagePayload decodes a base64 image payload, stripping a data URL
// prefix if the capture client sent one.
func decodeImagePayload(data string) ([]byte, error) {
	if strings.HasPrefix(data, "data:") {
		if idx := strings.Index(data, ","); idx >= 0 {
			data = data[idx+1:]
		}
	}

	// Reject by encoded length before decoding so an oversized payload
	// never costs a full base64 decode.
	if base64.StdEncoding.DecodedLen(len(data)) > feature.MaxImageBytes {
		return nil, fmt.Errorf("%w: image_data exceeds %d bytes", attendance.ErrInvalidInput, feature.MaxImageBytes)
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: image_data is not valid base64", attendance.ErrInvalidInput)
	}
	return raw, nil
}

// parseAt parses an optional RFC 3339 event timestamp; empty means now.
func parseAt(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid timestamp %q, want RFC 3339", attendance.ErrInvalidInput, value)
	}
	return t, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
