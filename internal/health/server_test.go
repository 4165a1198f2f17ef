package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(ctx context.Context) error { return f.err }

type fakeModelProvider struct{ loaded bool }

func (f fakeModelProvider) HasActiveModel() bool { return f.loaded }

func newTestServer(db DatabasePinger, classifier ClassifierChecker, model ModelProvider) *Server {
	return NewServer(Config{
		ServiceName: "predictor",
		Version:     "test",
		DB:          db,
		Classifier:  classifier,
		Model:       model,
	})
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Service != "predictor" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleReadyAllHealthy(t *testing.T) {
	s := newTestServer(fakePinger{}, fakeChecker{}, fakeModelProvider{loaded: true})
	s.SetReady(true)

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ReadyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, check := range []string{"service", "database", "classifier", "calibration_model"} {
		if resp.Checks[check] != "ok" {
			t.Errorf("check %s: expected ok, got %q", check, resp.Checks[check])
		}
	}
}

func TestHandleReadyDatabaseDown(t *testing.T) {
	s := newTestServer(fakePinger{err: errors.New("connection refused")}, fakeChecker{}, fakeModelProvider{loaded: true})
	s.SetReady(true)

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHandleReadyNoModelLoaded(t *testing.T) {
	s := newTestServer(fakePinger{}, fakeChecker{}, fakeModelProvider{loaded: false})
	s.SetReady(true)

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var resp ReadyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Checks["calibration_model"] != "not_loaded" {
		t.Errorf("expected calibration_model not_loaded, got %q", resp.Checks["calibration_model"])
	}
}

func TestHandleReadyNotMarkedReady(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
