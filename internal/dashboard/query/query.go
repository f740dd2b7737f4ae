// Package query caches owner-scoped collections for dashboard views and
// invalidates them after successful writes.
package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Collection names used as cache keys.
const (
	CollectionVPS            = "vps_instances"
	CollectionDatabases      = "managed_databases"
	CollectionBuckets        = "storage_buckets"
	CollectionSecurityGroups = "security_groups"
	CollectionSecurityRules  = "security_group_rules"
	CollectionCredits        = "credits"
	CollectionNotifications  = "notifications"
	CollectionPipelines      = "pipelines"
	CollectionProfile        = "profile"
	CollectionTeamMembers    = "team_members"
	CollectionAPIKeys        = "api_keys"
)

// Key identifies a cached collection for one owner.
type Key struct {
	Collection string `json:"collection"`
	OwnerID    string `json:"owner_id"`
}

func (k Key) String() string {
	return k.Collection + "/" + k.OwnerID
}

// Result is what a view renders. Data is empty when the query is disabled or failed.
type Result[T any] struct {
	Data      []T
	IsLoading bool
}

type entry struct {
	data    any
	fetched uint64
	version uint64
}

type outcome struct {
	data    any
	started uint64
	version uint64
}

// DefaultCallTimeout bounds a shared fetch or write when the caller set no deadline.
const DefaultCallTimeout = 15 * time.Second

// Client is the process-wide cache shared by every view.
type Client struct {
	logger      *slog.Logger
	metrics     *Metrics
	broadcaster Broadcaster
	callTimeout time.Duration

	clock     atomic.Uint64
	fetches   singleflight.Group
	mutations singleflight.Group

	mu       sync.Mutex
	entries  map[Key]entry
	versions map[Key]uint64
}

// Option customises a Client.
type Option func(*Client)

// WithMetrics records hits, misses and invalidations.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithBroadcaster shares invalidations with other dashboard replicas.
func WithBroadcaster(b Broadcaster) Option {
	return func(c *Client) { c.broadcaster = b }
}

// WithCallTimeout bounds shared calls that have no caller deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// NewClient returns an empty cache.
func NewClient(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		logger:      logger,
		callTimeout: DefaultCallTimeout,
		entries:     make(map[Key]entry),
		versions:    make(map[Key]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// View is one mount of a page. Entries fetched before the mount are stale for it.
type View struct {
	client    *Client
	mountedAt uint64
	unmounted atomic.Bool
}

// Mount starts a view. The view unmounts when ctx ends or Unmount is called.
func (c *Client) Mount(ctx context.Context) *View {
	v := &View{client: c, mountedAt: c.clock.Add(1)}
	context.AfterFunc(ctx, v.Unmount)
	return v
}

// Unmount marks the view gone. Responses arriving afterwards are dropped.
func (v *View) Unmount() {
	v.unmounted.Store(true)
}

// Mounted reports whether the view is still live.
func (v *View) Mounted() bool {
	return !v.unmounted.Load()
}

// Fetch returns the collection under key, calling fetch when the cached copy is stale.
// A key without an owner is disabled and never fetches.
func Fetch[T any](ctx context.Context, v *View, key Key, fetch func(context.Context) ([]T, error)) Result[T] {
	if key.OwnerID == "" || !v.Mounted() {
		return Result[T]{}
	}
	c := v.client
	if data, ok := c.lookup(v, key); ok {
		c.metrics.hit(key.Collection)
		rows, _ := data.([]T)
		return Result[T]{Data: rows}
	}
	c.metrics.miss(key.Collection)

	var (
		out outcome
		err error
	)
	// A flight started before this view mounted is stale for it, so join at most one
	// more flight that starts after the mount.
	for attempt := 0; attempt < 2; attempt++ {
		version := c.version(key)
		flight := fmt.Sprintf("%s@%d", key, version)
		out, err = c.fetchShared(ctx, flight, version, func(ctx context.Context) (any, error) {
			return fetch(ctx)
		})
		if err != nil || out.started > v.mountedAt {
			break
		}
	}
	if err != nil {
		c.logger.Warn("query fetch failed", "collection", key.Collection, "owner_id", key.OwnerID, "error", err)
		return Result[T]{}
	}
	if !v.Mounted() {
		c.logger.Debug("query result discarded after unmount", "collection", key.Collection)
		return Result[T]{}
	}
	c.store(key, out)
	rows, _ := out.data.([]T)
	return Result[T]{Data: rows}
}

// fetchShared runs fetch once per flight. The flight outlives the caller that
// started it, so one disconnecting viewer does not fail the others.
func (c *Client) fetchShared(ctx context.Context, flight string, version uint64, fetch func(context.Context) (any, error)) (outcome, error) {
	ch := c.fetches.DoChan(flight, func() (any, error) {
		callCtx, cancel := c.detach(ctx)
		defer cancel()
		started := c.clock.Add(1)
		rows, err := fetch(callCtx)
		if err != nil {
			return nil, err
		}
		return outcome{data: rows, started: started, version: version}, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return outcome{}, res.Err
		}
		return res.Val.(outcome), nil
	case <-ctx.Done():
		return outcome{}, ctx.Err()
	}
}

// detach drops ctx's cancellation but keeps its deadline, or applies the call timeout.
func (c *Client) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(base, deadline)
	}
	return context.WithTimeout(base, c.callTimeout)
}

func (c *Client) lookup(v *View, key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.fetched <= v.mountedAt || e.version != c.versions[key] {
		return nil, false
	}
	return e.data, true
}

func (c *Client) version(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[key]
}

// store keeps the outcome unless key was invalidated while it was in flight.
func (c *Client) store(key Key, out outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[key] != out.version {
		return
	}
	if cur, ok := c.entries[key]; ok && cur.fetched > out.started {
		return
	}
	c.entries[key] = entry{data: out.data, fetched: out.started, version: out.version}
}

// Invalidate drops keys locally and announces them to other replicas.
func (c *Client) Invalidate(ctx context.Context, keys ...Key) {
	c.invalidate(keys)
	if c.broadcaster == nil || len(keys) == 0 {
		return
	}
	if err := c.broadcaster.Publish(ctx, keys); err != nil {
		c.logger.Warn("query invalidation broadcast failed", "error", err)
	}
}

func (c *Client) invalidate(keys []Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		c.versions[key]++
		delete(c.entries, key)
		c.metrics.invalidation(key.Collection)
	}
}

// Listen applies invalidations published by other replicas until ctx ends.
func (c *Client) Listen(ctx context.Context) error {
	if c.broadcaster == nil {
		<-ctx.Done()
		return nil
	}
	return c.broadcaster.Subscribe(ctx, c.invalidate)
}

// Guard names one operation on one row. Concurrent mutations with the same guard
// collapse; different operations, or creates with different payloads, never do.
type Guard struct {
	Entity  string
	ID      string
	Op      string
	Payload string
}

func (g Guard) String() string {
	s := g.Entity + "#" + g.ID + ":" + g.Op
	if g.Payload != "" {
		sum := sha256.Sum256([]byte(g.Payload))
		s += "@" + hex.EncodeToString(sum[:8])
	}
	return s
}

// Mutate performs exactly one write per guard and invalidates keys only after it succeeds.
// Callers that arrive while an identical mutation is in flight share its result.
func Mutate[T any](ctx context.Context, c *Client, guard Guard, write func(context.Context) (T, error), keys ...Key) (T, error) {
	ch := c.mutations.DoChan(guard.String(), func() (any, error) {
		callCtx, cancel := c.detach(ctx)
		defer cancel()
		out, err := write(callCtx)
		if err != nil {
			return out, err
		}
		c.Invalidate(callCtx, keys...)
		return out, nil
	})
	var zero T
	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("mutation collapsed", "guard", guard.String())
		}
		out, _ := res.Val.(T)
		return out, res.Err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
