package query

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type row struct {
	ID string
}

type countingSource struct {
	calls atomic.Int32
	rows  []row
}

func (s *countingSource) fetch(context.Context) ([]row, error) {
	s.calls.Add(1)
	return append([]row(nil), s.rows...), nil
}

func TestFetchDisabledWithoutOwner(t *testing.T) {
	c := NewClient(testLogger())
	view := c.Mount(context.Background())
	src := &countingSource{rows: []row{{ID: "a"}}}

	res := Fetch(context.Background(), view, Key{Collection: CollectionVPS}, src.fetch)
	if res.Data != nil || res.IsLoading {
		t.Fatalf("expected disabled result, got %+v", res)
	}
	if src.calls.Load() != 0 {
		t.Fatalf("expected no fetch, got %d", src.calls.Load())
	}
}

func TestFetchCachesWithinMountAndRefetchesOnNewMount(t *testing.T) {
	c := NewClient(testLogger())
	key := Key{Collection: CollectionVPS, OwnerID: "user-1"}
	src := &countingSource{rows: []row{{ID: "a"}}}

	view := c.Mount(context.Background())
	first := Fetch(context.Background(), view, key, src.fetch)
	second := Fetch(context.Background(), view, key, src.fetch)
	if len(first.Data) != 1 || len(second.Data) != 1 {
		t.Fatalf("unexpected results %+v %+v", first, second)
	}
	if src.calls.Load() != 1 {
		t.Fatalf("expected one fetch within a mount, got %d", src.calls.Load())
	}

	next := c.Mount(context.Background())
	Fetch(context.Background(), next, key, src.fetch)
	if src.calls.Load() != 2 {
		t.Fatalf("expected refetch on new mount, got %d", src.calls.Load())
	}

	other := Key{Collection: CollectionVPS, OwnerID: "user-2"}
	Fetch(context.Background(), next, other, src.fetch)
	if src.calls.Load() != 3 {
		t.Fatalf("expected fetch for a different owner, got %d", src.calls.Load())
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	c := NewClient(testLogger())
	key := Key{Collection: CollectionVPS, OwnerID: "user-1"}
	src := &countingSource{rows: []row{{ID: "a"}}}
	view := c.Mount(context.Background())

	Fetch(context.Background(), view, key, src.fetch)
	src.rows = append(src.rows, row{ID: "b"})
	c.Invalidate(context.Background(), key)

	res := Fetch(context.Background(), view, key, src.fetch)
	if src.calls.Load() != 2 {
		t.Fatalf("expected refetch after invalidation, got %d calls", src.calls.Load())
	}
	if len(res.Data) != 2 {
		t.Fatalf("expected new row, got %+v", res.Data)
	}
}

func TestFetchFailureYieldsEmptyResult(t *testing.T) {
	c := NewClient(testLogger())
	view := c.Mount(context.Background())
	key := Key{Collection: CollectionCredits, OwnerID: "user-1"}

	res := Fetch(context.Background(), view, key, func(context.Context) ([]row, error) {
		return nil, errors.New("connection refused")
	})
	if len(res.Data) != 0 || res.IsLoading {
		t.Fatalf("expected empty settled result, got %+v", res)
	}
}

func TestResultDiscardedAfterUnmount(t *testing.T) {
	c := NewClient(testLogger())
	key := Key{Collection: CollectionVPS, OwnerID: "user-1"}
	ctx, cancel := context.WithCancel(context.Background())
	view := c.Mount(ctx)

	release := make(chan struct{})
	done := make(chan Result[row], 1)
	go func() {
		done <- Fetch(context.Background(), view, key, func(context.Context) ([]row, error) {
			<-release
			return []row{{ID: "late"}}, nil
		})
	}()

	cancel()
	deadline := time.Now().Add(time.Second)
	for view.Mounted() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if view.Mounted() {
		t.Fatalf("expected view to unmount when its context ends")
	}
	close(release)

	res := <-done
	if len(res.Data) != 0 {
		t.Fatalf("expected late result to be discarded, got %+v", res.Data)
	}

	src := &countingSource{rows: []row{{ID: "fresh"}}}
	next := c.Mount(context.Background())
	got := Fetch(context.Background(), next, key, src.fetch)
	if src.calls.Load() != 1 || got.Data[0].ID != "fresh" {
		t.Fatalf("expected discarded result not to be cached, got %+v", got)
	}
}

func TestInFlightInvalidationIsNotStored(t *testing.T) {
	c := NewClient(testLogger())
	key := Key{Collection: CollectionNotifications, OwnerID: "user-1"}
	view := c.Mount(context.Background())

	res := Fetch(context.Background(), view, key, func(context.Context) ([]row, error) {
		c.Invalidate(context.Background(), key)
		return []row{{ID: "old"}}, nil
	})
	if len(res.Data) != 1 {
		t.Fatalf("expected the in-flight result to reach its caller, got %+v", res)
	}

	src := &countingSource{rows: []row{{ID: "new"}}}
	Fetch(context.Background(), view, key, src.fetch)
	if src.calls.Load() != 1 {
		t.Fatalf("expected refetch because the stale result was not stored")
	}
}

func TestMutateInvalidatesOnlyAfterSuccess(t *testing.T) {
	c := NewClient(testLogger())
	groups := Key{Collection: CollectionSecurityGroups, OwnerID: "user-1"}
	rules := Key{Collection: CollectionSecurityRules, OwnerID: "user-1"}
	view := c.Mount(context.Background())
	src := &countingSource{rows: []row{{ID: "g1"}}}
	Fetch(context.Background(), view, groups, src.fetch)
	Fetch(context.Background(), view, rules, src.fetch)

	_, err := Mutate(context.Background(), c, Guard{Entity: "security_group", ID: "g1"}, func(context.Context) (struct{}, error) {
		return struct{}{}, errors.New("write rejected")
	}, groups, rules)
	if err == nil {
		t.Fatalf("expected write error")
	}
	Fetch(context.Background(), view, groups, src.fetch)
	if src.calls.Load() != 2 {
		t.Fatalf("failed write must not invalidate, got %d calls", src.calls.Load())
	}

	if _, err := Mutate(context.Background(), c, Guard{Entity: "security_group", ID: "g1"}, func(context.Context) (struct{}, error) {
		return struct{}{}, nil
	}, groups, rules); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	Fetch(context.Background(), view, groups, src.fetch)
	Fetch(context.Background(), view, rules, src.fetch)
	if src.calls.Load() != 4 {
		t.Fatalf("expected both keys refetched after success, got %d calls", src.calls.Load())
	}
}

func TestMutateCollapsesDuplicateInvocations(t *testing.T) {
	c := NewClient(testLogger())
	guard := Guard{Entity: "vps", ID: "v1"}
	var writes atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	write := func(context.Context) (string, error) {
		if writes.Add(1) == 1 {
			close(started)
		}
		<-release
		return "deleted", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = Mutate(context.Background(), c, guard, write)
	}()
	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = Mutate(context.Background(), c, guard, write)
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if writes.Load() != 1 {
		t.Fatalf("expected one remote write, got %d", writes.Load())
	}
	if results[0] != "deleted" || results[1] != "deleted" {
		t.Fatalf("expected both callers to share the result, got %v", results)
	}
}

func TestMutateKeepsDifferentOperationsApart(t *testing.T) {
	c := NewClient(testLogger())
	var writes atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		Mutate(context.Background(), c, Guard{Entity: "vps", ID: "v1", Op: "status", Payload: "running"}, func(context.Context) (string, error) {
			writes.Add(1)
			close(started)
			<-release
			return "status", nil
		})
	}()
	<-started

	got, err := Mutate(context.Background(), c, Guard{Entity: "vps", ID: "v1", Op: "delete"}, func(context.Context) (string, error) {
		writes.Add(1)
		return "delete", nil
	})
	close(release)
	wg.Wait()

	if err != nil || got != "delete" {
		t.Fatalf("expected the delete to run on its own, got %q %v", got, err)
	}
	if writes.Load() != 2 {
		t.Fatalf("expected two remote writes, got %d", writes.Load())
	}
}

func TestGuardSeparatesPayloads(t *testing.T) {
	a := Guard{Entity: "credit", ID: "user-1", Op: "purchase", Payload: "2500"}
	b := Guard{Entity: "credit", ID: "user-1", Op: "purchase", Payload: "5000"}
	if a.String() == b.String() {
		t.Fatalf("purchases of different amounts share guard %q", a)
	}
	if a.String() != (Guard{Entity: "credit", ID: "user-1", Op: "purchase", Payload: "2500"}).String() {
		t.Fatalf("identical submissions must share a guard")
	}
	status := Guard{Entity: "vps", ID: "v1", Op: "status"}
	del := Guard{Entity: "vps", ID: "v1", Op: "delete"}
	if status.String() == del.String() {
		t.Fatalf("status and delete share guard %q", status)
	}
}

func TestSharedFetchSurvivesFirstCallerLeaving(t *testing.T) {
	c := NewClient(testLogger())
	key := Key{Collection: CollectionVPS, OwnerID: "user-1"}
	ctxA, cancelA := context.WithCancel(context.Background())
	viewA := c.Mount(ctxA)
	viewB := c.Mount(context.Background())

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]row, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return []row{{ID: "a"}, {ID: "b"}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	doneA := make(chan Result[row], 1)
	go func() { doneA <- Fetch(ctxA, viewA, key, fetch) }()
	<-started
	doneB := make(chan Result[row], 1)
	go func() { doneB <- Fetch(context.Background(), viewB, key, fetch) }()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if res := <-doneA; len(res.Data) != 0 {
		t.Fatalf("expected the departed view to get nothing, got %+v", res.Data)
	}
	close(release)

	res := <-doneB
	if len(res.Data) != 2 {
		t.Fatalf("expected the mounted view to receive the shared rows, got %+v", res.Data)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one shared fetch, got %d", calls.Load())
	}
}

func TestFlightStartedBeforeMountIsRefetched(t *testing.T) {
	c := NewClient(testLogger())
	key := Key{Collection: CollectionPipelines, OwnerID: "user-1"}
	early := c.Mount(context.Background())

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(context.Context) ([]row, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return []row{{ID: "before"}}, nil
		}
		return []row{{ID: "after"}}, nil
	}

	doneEarly := make(chan Result[row], 1)
	go func() { doneEarly <- Fetch(context.Background(), early, key, fetch) }()
	<-started

	late := c.Mount(context.Background())
	doneLate := make(chan Result[row], 1)
	go func() { doneLate <- Fetch(context.Background(), late, key, fetch) }()
	time.Sleep(20 * time.Millisecond)
	close(release)

	if res := <-doneEarly; len(res.Data) != 1 || res.Data[0].ID != "before" {
		t.Fatalf("unexpected early result %+v", res.Data)
	}
	res := <-doneLate
	if len(res.Data) != 1 || res.Data[0].ID != "after" {
		t.Fatalf("expected a fetch that started after the mount, got %+v", res.Data)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected two fetches, got %d", calls.Load())
	}
}

type recordingBroadcaster struct {
	mu        sync.Mutex
	published [][]Key
}

func (b *recordingBroadcaster) Publish(_ context.Context, keys []Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, keys)
	return nil
}

func (b *recordingBroadcaster) Subscribe(ctx context.Context, apply func([]Key)) error {
	apply([]Key{{Collection: CollectionVPS, OwnerID: "user-1"}})
	<-ctx.Done()
	return nil
}

func TestBroadcasterSharesInvalidations(t *testing.T) {
	b := &recordingBroadcaster{}
	c := NewClient(testLogger(), WithBroadcaster(b))
	key := Key{Collection: CollectionVPS, OwnerID: "user-1"}
	view := c.Mount(context.Background())
	src := &countingSource{rows: []row{{ID: "a"}}}
	Fetch(context.Background(), view, key, src.fetch)

	c.Invalidate(context.Background(), key)
	if len(b.published) != 1 || b.published[0][0] != key {
		t.Fatalf("expected published key, got %+v", b.published)
	}

	Fetch(context.Background(), view, key, src.fetch)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Listen(ctx) }()
	time.Sleep(20 * time.Millisecond)
	Fetch(context.Background(), view, key, src.fetch)
	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("listen: %v", err)
	}
	if src.calls.Load() != 3 {
		t.Fatalf("expected remote invalidation to force a refetch, got %d calls", src.calls.Load())
	}
}
