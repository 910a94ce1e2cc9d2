package vigil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewarePassesReads(t *testing.T) {
	c := newTestClient(t)

	handler := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "http://api.example/items", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET should pass through, got %d", rec.Code)
	}
}

func TestMiddlewareRefusesSecretBearingRequest(t *testing.T) {
	c := newTestClient(t)

	handler := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for a refused request")
	}))

	req := httptest.NewRequest(http.MethodPost,
		"http://api.example/upload?api_key=sk-live-abcdef", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["refused"] != true {
		t.Errorf("body missing refusal marker: %v", body)
	}
	if body["state"] != "protect" {
		t.Errorf("expected protect, got %v", body["state"])
	}
}

func TestActionFromRequestHints(t *testing.T) {
	get := httptest.NewRequest(http.MethodGet, "http://h.example/x", nil)
	if a := actionFromRequest(get); a.Reversibility != "reversible" {
		t.Errorf("GET should hint reversible, got %q", a.Reversibility)
	}

	post := httptest.NewRequest(http.MethodPost, "http://h.example/x", nil)
	a := actionFromRequest(post)
	if a.Reversibility != "unknown" {
		t.Errorf("POST should hint unknown, got %q", a.Reversibility)
	}
	if a.Kind != "network" || !strings.Contains(a.Target, "h.example") {
		t.Errorf("unexpected action: %+v", a)
	}
}
