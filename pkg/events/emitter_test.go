package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNotifySendsServiceToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/internal/notifications" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if token := r.Header.Get("X-Service-Token"); token != "secret" {
			t.Fatalf("unexpected token header %s", token)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["user_id"] != "user-1" || payload["title"] != "Backup complete" {
			t.Fatalf("unexpected payload %v", payload)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	emitter, err := NewEmitter(srv.URL+"/", " secret ", nil)
	if err != nil {
		t.Fatalf("new emitter: %v", err)
	}
	n := Notification{UserID: "user-1", Title: "Backup complete", Message: "db-1 backed up", Type: "success"}
	if err := emitter.Notify(context.Background(), n); err != nil {
		t.Fatalf("notify: %v", err)
	}
}

func TestRecordUsageUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid service token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	emitter, err := NewEmitter(srv.URL, "", &http.Client{Timeout: time.Second})
	if err != nil {
		t.Fatalf("new emitter: %v", err)
	}
	err = emitter.RecordUsage(context.Background(), Usage{UserID: "user-1", Amount: 120})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRecordUsageValidatesLocally(t *testing.T) {
	emitter, err := NewEmitter("http://localhost:1", "secret", nil)
	if err != nil {
		t.Fatalf("new emitter: %v", err)
	}
	if err := emitter.RecordUsage(context.Background(), Usage{UserID: "user-1"}); err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if err := emitter.Notify(context.Background(), Notification{Title: "x"}); err == nil {
		t.Fatalf("expected error for missing user")
	}
}

func TestNewEmitterRequiresBaseURL(t *testing.T) {
	if _, err := NewEmitter("  ", "secret", nil); err == nil {
		t.Fatalf("expected error")
	}
}
