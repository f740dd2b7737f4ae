package ws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	closed   bool
	fail     bool
}

func (r *recordingSubscriber) Send(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broken pipe")
	}
	r.payloads = append(r.payloads, p)
	return nil
}

func (r *recordingSubscriber) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *recordingSubscriber) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestHubBroadcastsOnlyToOwner(t *testing.T) {
	hub := NewHub(0)
	defer hub.Stop()

	alice := &recordingSubscriber{}
	bob := &recordingSubscriber{}
	hub.Register("alice", alice)
	hub.Register("bob", bob)

	if err := hub.Broadcast(context.Background(), "alice", []byte(`{"title":"hi"}`)); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	waitFor(t, time.Second, func() bool { return alice.count() == 1 })
	if bob.count() != 0 {
		t.Fatalf("bob should not receive alice's payload")
	}
}

func TestHubDropsFailingSubscriber(t *testing.T) {
	hub := NewHub(0)
	defer hub.Stop()

	broken := &recordingSubscriber{fail: true}
	hub.Register("alice", broken)
	if got := hub.Subscribers("alice"); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}
	_ = hub.Broadcast(context.Background(), "alice", []byte("x"))
	waitFor(t, time.Second, func() bool { return hub.Subscribers("alice") == 0 })
	broken.mu.Lock()
	defer broken.mu.Unlock()
	if !broken.closed {
		t.Fatal("expected failing subscriber to be closed")
	}
}

func TestHubStopClosesSubscribers(t *testing.T) {
	hub := NewHub(0)
	sub := &recordingSubscriber{}
	hub.Register("alice", sub)
	hub.Stop()
	waitFor(t, time.Second, func() bool {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		return sub.closed
	})
	if err := hub.Broadcast(context.Background(), "alice", []byte("x")); err == nil {
		t.Fatal("expected broadcast after stop to fail")
	}
}

type flushRecorder struct {
	strings.Builder
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestSSEClientFramesEvents(t *testing.T) {
	rec := &flushRecorder{}
	client := NewSSEClient(rec, rec, "notification", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := client.Send([]byte(`{"id":"n1"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := client.Heartbeat(); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	want := "id: 1\nevent: notification\ndata: {\"id\":\"n1\"}\n\n: ping\n\n"
	if rec.String() != want {
		t.Fatalf("unexpected stream %q", rec.String())
	}
	if rec.flushes != 2 {
		t.Fatalf("expected 2 flushes, got %d", rec.flushes)
	}
	client.Close()
	if err := client.Send([]byte("x")); err == nil {
		t.Fatal("expected send after close to fail")
	}
}
