// Route table tests: every endpoint wired by newRouter is reachable and
// dispatches by method.
package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kimhsiao/conceptdeck/internal/cache"
	"github.com/kimhsiao/conceptdeck/internal/config"
	"github.com/kimhsiao/conceptdeck/internal/logging"
	"github.com/kimhsiao/conceptdeck/internal/models"
	"github.com/kimhsiao/conceptdeck/internal/store"
)

func testRouter(t *testing.T) (*http.ServeMux, *store.MemoryStore, *cache.Cache) {
	t.Helper()
	logging.Init(os.Stdout, logging.LevelError)

	gateway := store.NewMemoryStore()
	snapshot, err := cache.Open(filepath.Join(t.TempDir(), "snapshot.json"))
	if err != nil {
		t.Fatalf("Failed to open snapshot cache: %v", err)
	}

	cfg := &config.Config{
		Port:           0,
		DataDir:        t.TempDir(),
		ExportDir:      t.TempDir(),
		LogLevel:       "error",
		ImportMaxBytes: 1 << 20,
	}

	return newRouter(gateway, snapshot, NewWSHub(), cfg), gateway, snapshot
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	mux, _, _ := testRouter(t)

	w := doJSON(t, mux, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Health check returned status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", ct)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("Unexpected health body: %s", w.Body.String())
	}

	if w := doJSON(t, mux, http.MethodPost, "/api/health", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405 for POST, got %d", w.Code)
	}
}

func TestRouter_ConceptLifecycle(t *testing.T) {
	mux, _, snapshot := testRouter(t)

	body := `{"topic":"Go","title":"Interfaces","definition":"Method sets as contracts.","keyword":"interface"}`
	w := doJSON(t, mux, http.MethodPost, "/api/concepts", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("Create returned status %d: %s", w.Code, w.Body.String())
	}

	var created models.Concept
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode created concept: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Created concept has no id")
	}
	if snapshot.Len() != 1 {
		t.Errorf("Expected snapshot length 1 after create, got %d", snapshot.Len())
	}

	w = doJSON(t, mux, http.MethodGet, "/api/concepts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("List returned status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"total":1`) {
		t.Errorf("Expected one concept in listing: %s", w.Body.String())
	}

	w = doJSON(t, mux, http.MethodGet, "/api/concepts/"+created.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Get returned status %d", w.Code)
	}

	w = doJSON(t, mux, http.MethodPut, "/api/concepts/"+created.ID, `{"definition":"Behavior described by method sets."}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Update returned status %d: %s", w.Code, w.Body.String())
	}
	var updated models.Concept
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("Failed to decode updated concept: %v", err)
	}
	if updated.Definition != "Behavior described by method sets." {
		t.Errorf("Patch not applied: %q", updated.Definition)
	}

	w = doJSON(t, mux, http.MethodGet, "/api/concepts/"+created.ID+"/preview", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Preview returned status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"html"`) {
		t.Errorf("Preview body missing html field: %s", w.Body.String())
	}

	w = doJSON(t, mux, http.MethodDelete, "/api/concepts/"+created.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("Delete returned status %d", w.Code)
	}

	if w := doJSON(t, mux, http.MethodGet, "/api/concepts/"+created.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
	if snapshot.Len() != 0 {
		t.Errorf("Expected empty snapshot after delete, got %d", snapshot.Len())
	}
}

func TestRouter_MethodDispatch(t *testing.T) {
	mux, _, _ := testRouter(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPatch, "/api/concepts"},
		{http.MethodDelete, "/api/topics"},
		{http.MethodGet, "/api/import/preview"},
		{http.MethodPost, "/api/import/status"},
		{http.MethodPut, "/api/export"},
		{http.MethodGet, "/api/sync/push"},
		{http.MethodPost, "/api/sync/status"},
	}
	for _, tc := range cases {
		if w := doJSON(t, mux, tc.method, tc.path, ""); w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected 405, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestRouter_SyncPushEmptySet(t *testing.T) {
	mux, gateway, _ := testRouter(t)

	w := doJSON(t, mux, http.MethodPost, "/api/sync/push", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Push returned status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "EMPTY_BATCH") {
		t.Errorf("Expected EMPTY_BATCH outcome: %s", w.Body.String())
	}
	if gateway.ReplaceAllCalls != 0 {
		t.Errorf("Empty push must not touch the store, got %d calls", gateway.ReplaceAllCalls)
	}
}

func TestRouter_UnknownPath(t *testing.T) {
	mux, _, _ := testRouter(t)

	if w := doJSON(t, mux, http.MethodGet, "/api/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown path, got %d", w.Code)
	}
}
