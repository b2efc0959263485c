package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testAPIServer(t *testing.T, store ContentStore) (*httptest.Server, *Orchestrator) {
	t.Helper()
	orch := testOrchestrator(t, store, &fakeSolver{}, &fakeNotifier{})
	srv := httptest.NewServer(NewAPIServer(":0", orch).Handler)
	t.Cleanup(srv.Close)
	return srv, orch
}

func decodeEnvelope(t *testing.T, resp *http.Response) apiEnvelope {
	t.Helper()
	defer resp.Body.Close()
	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	return env
}

func TestAPIStatus(t *testing.T) {
	srv, _ := testAPIServer(t, newFakeStore())

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q", ct)
	}

	env := decodeEnvelope(t, resp)
	if !env.Success {
		t.Fatalf("envelope = %+v", env)
	}
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T", env.Data)
	}
	if running, ok := data["is_running"].(bool); !ok || running {
		t.Fatalf("is_running = %v", data["is_running"])
	}
	if _, ok := data["stats"]; !ok {
		t.Fatal("stats missing from status payload")
	}
	if _, ok := data["services_status"]; !ok {
		t.Fatal("services_status missing from status payload")
	}
}

func TestAPITrigger(t *testing.T) {
	store := newFakeStore()
	srv, _ := testAPIServer(t, store)

	resp, err := http.Post(srv.URL+"/api/trigger", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/trigger: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)
	if !env.Success {
		t.Fatalf("envelope = %+v", env)
	}
	if store.listCalls != 1 {
		t.Fatalf("listCalls = %d", store.listCalls)
	}
}

func TestAPITriggerConflict(t *testing.T) {
	store := newFakeStore()
	store.listDelay = 200 * time.Millisecond
	srv, orch := testAPIServer(t, store)

	done := make(chan RunSummary, 1)
	go func() { done <- orch.RunOnce() }()
	time.Sleep(20 * time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/trigger", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/trigger: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	env := decodeEnvelope(t, resp)
	if env.Success || env.Message != "a run is already in progress" {
		t.Fatalf("envelope = %+v", env)
	}
	<-done
}

func TestAPISchedulerStartStop(t *testing.T) {
	srv, orch := testAPIServer(t, newFakeStore())

	resp, err := http.Post(srv.URL+"/api/scheduler/start", "application/json", nil)
	if err != nil {
		t.Fatalf("POST start: %v", err)
	}
	if env := decodeEnvelope(t, resp); !env.Success || env.Message != "scheduler started" {
		t.Fatalf("envelope = %+v", env)
	}
	if !orch.Running() {
		t.Fatal("orchestrator should be running")
	}

	// Idempotent start.
	resp, err = http.Post(srv.URL+"/api/scheduler/start", "application/json", nil)
	if err != nil {
		t.Fatalf("POST start: %v", err)
	}
	if env := decodeEnvelope(t, resp); env.Message != "scheduler already running" {
		t.Fatalf("envelope = %+v", env)
	}

	resp, err = http.Post(srv.URL+"/api/scheduler/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("POST stop: %v", err)
	}
	if env := decodeEnvelope(t, resp); !env.Success || env.Message != "scheduler stopped" {
		t.Fatalf("envelope = %+v", env)
	}
	if orch.Running() {
		t.Fatal("orchestrator should be stopped")
	}
}

func TestAPIMethodNotAllowed(t *testing.T) {
	srv, _ := testAPIServer(t, newFakeStore())

	resp, err := http.Get(srv.URL + "/api/trigger")
	if err != nil {
		t.Fatalf("GET /api/trigger: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
