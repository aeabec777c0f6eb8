package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestHealthHandler_Readiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	h := NewHealthHandler(map[string]Check{"store": ok, "redis": ok})
	c, rec := newContext(http.MethodGet, "/health/ready", "", nil)
	if err := h.Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	h = NewHealthHandler(map[string]Check{"store": ok, "redis": down})
	c, rec = newContext(http.MethodGet, "/health/ready", "", nil)
	_ = h.Readiness(c)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var resp readinessResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Dependencies["redis"].Status != "unhealthy" || resp.Dependencies["store"].Status != "ok" {
		t.Fatalf("unexpected dependencies: %+v", resp.Dependencies)
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(nil)
	c, rec := newContext(http.MethodGet, "/health", "", nil)
	if err := h.Liveness(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", rec.Code, err)
	}
}
