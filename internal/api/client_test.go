package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(DaemonStatus{Running: true, PID: 42})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Running || status.PID != 42 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestClientStartBatchSendsOptions(t *testing.T) {
	var got BatchStartRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(BatchStartResponse{BatchID: "b1", QueueSize: 3})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	resp, err := client.StartBatch(context.Background(), BatchStartRequest{Format: "webp", Force: true, Limit: 10})
	if err != nil {
		t.Fatalf("StartBatch failed: %v", err)
	}
	if resp.BatchID != "b1" || resp.QueueSize != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got.Format != "webp" || !got.Force || got.Limit != 10 {
		t.Fatalf("request not forwarded: %+v", got)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "batch already running"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.StartBatch(context.Background(), BatchStartRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "batch already running") {
		t.Fatalf("error = %v, want daemon message surfaced", err)
	}
}

func TestNewClientNormalizesBareAddress(t *testing.T) {
	client := NewClient("127.0.0.1:8080/")
	if client.baseURL != "http://127.0.0.1:8080" {
		t.Fatalf("baseURL = %q", client.baseURL)
	}
}
