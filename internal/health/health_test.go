package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OpenMined/biovault-desktop/core/internal/syftbox"
)

type fakeConns struct{ n int }

func (f fakeConns) AttachedClients() int { return f.n }

func TestHealthHandlerRunning(t *testing.T) {
	a := syftbox.New(syftbox.Config{Backend: "embedded"})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	h := NewHandler(fakeConns{n: 0}, a, "test-version", true)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if !resp.SyftboxRunning {
		t.Error("syftbox_running should be true")
	}
	if resp.Version != "test-version" {
		t.Errorf("version = %q, want %q", resp.Version, "test-version")
	}
	if resp.Details == nil {
		t.Error("details should not be nil")
	}
}

func TestHealthHandlerStoppedIsDegradedNotDown(t *testing.T) {
	a := syftbox.New(syftbox.Config{Backend: "embedded"})

	h := NewHandler(fakeConns{n: 0}, a, "test-version", false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d (a stopped daemon is not an outage)", rec.Code, http.StatusOK)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want %q", resp.Status, "degraded")
	}
	if resp.SyftboxRunning {
		t.Error("syftbox_running should be false")
	}
	if resp.Details != nil {
		t.Error("details should be nil when detailed=false")
	}
}

func TestHealthHandlerReportsConnectionCount(t *testing.T) {
	a := syftbox.New(syftbox.Config{Backend: "embedded"})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	h := NewHandler(fakeConns{n: 3}, a, "test-version", false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ActiveConnections != 3 {
		t.Errorf("active_connections = %d, want 3", resp.ActiveConnections)
	}
}
