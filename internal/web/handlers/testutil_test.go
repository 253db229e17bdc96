package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/photostore"
)

// testEnv bundles the handlers with the mock stores behind them.
type testEnv struct {
	identities *IdentitiesHandler
	presence   *PresenceHandler
	attendance *AttendanceHandler

	identityStore *mock.IdentityStore
	sessionStore  *mock.SessionStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	identityStore := mock.NewIdentityStore()
	sessionStore := mock.NewSessionStore()

	matcher, err := attendance.NewMatcher(identityStore, attendance.MatcherConfig{Threshold: 0.85})
	if err != nil {
		t.Fatalf("Failed to create matcher: %v", err)
	}
	ledger := attendance.NewLedger(identityStore, sessionStore, time.UTC)
	coordinator := attendance.NewCoordinator(matcher, ledger, 0)

	photos, err := photostore.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create photo store: %v", err)
	}

	return &testEnv{
		identities:    NewIdentitiesHandler(identityStore, matcher, photos),
		presence:      NewPresenceHandler(coordinator),
		attendance:    NewAttendanceHandler(ledger),
		identityStore: identityStore,
		sessionStore:  sessionStore,
	}
}

// mustEnroll seeds an identity directly into the mock store.
func (e *testEnv) mustEnroll(t *testing.T, id, name string, feature []float32) {
	t.Helper()
	_, err := e.identityStore.Enroll(context.Background(), database.Identity{
		IdentityID:  id,
		DisplayName: name,
		Feature:     feature,
	})
	if err != nil {
		t.Fatalf("Failed to enroll %s: %v", id, err)
	}
}

// doJSON runs a handler with a JSON body and returns the recorded response.
func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

// doWithURLParam runs a handler with a chi URL parameter injected.
func doWithURLParam(t *testing.T, handler http.HandlerFunc, method, target, key, value string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

// decodeBody decodes a recorded JSON response body.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return body
}

// testPNG renders a small gradient image for enrollment tests.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.Gray{Y: uint8((x*8 + y*3) % 256)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}
