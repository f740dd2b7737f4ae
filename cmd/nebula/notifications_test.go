package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nebulacloud/console/internal/domain"
)

func TestStreamURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:4000":       "ws://localhost:4000/ws/notifications",
		"https://api.example.com/v1/": "wss://api.example.com/v1/ws/notifications",
	}
	for in, want := range cases {
		got, err := streamURL(in)
		if err != nil {
			t.Fatalf("streamURL(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("streamURL(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := streamURL("ftp://example.com"); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}

func TestWatchNotificationsPrintsFeed(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/notifications" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		payload, _ := json.Marshal(domain.Notification{ID: "n1", Title: "VPS ready", Message: "web-1 is running", Type: domain.NotificationSuccess})
		_ = conn.WriteMessage(websocket.TextMessage, payload)
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	if err := watchNotifications(ctx, srv.URL, "tok", &out); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(out.String(), "[SUCCESS] VPS ready: web-1 is running") {
		t.Fatalf("unexpected output %q", out.String())
	}
	if strings.Count(out.String(), "\n") != 1 {
		t.Fatalf("malformed frames should be skipped, got %q", out.String())
	}
}

func TestWatchNotificationsRejectsBadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := watchNotifications(context.Background(), srv.URL, "bad", &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected error")
	}
}
