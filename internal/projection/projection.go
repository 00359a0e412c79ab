// Package projection maintains live local copies of store queries. Each
// Projection tracks one query: every snapshot from the subscription replaces
// the local collection wholesale, and the consumer's recompute hook runs
// synchronously before the next snapshot is consumed. Projections are
// read-optimized caches, never authoritative — admission decisions re-read
// the store directly.
package projection

import (
	"context"
	"fmt"
	"sync"

	"chorebank/internal/store"
)

// Projection is a live, ordered local copy of a query's result set.
type Projection[T any] struct {
	mu    sync.RWMutex
	items []T

	sub  store.Subscription
	done chan struct{}
}

// Open subscribes to the query and blocks until the first snapshot has been
// applied, so callers observe current state immediately. decode maps raw
// records to the projection's element type; onUpdate, if non-nil, runs
// synchronously after every replace with the new collection.
func Open[T any](ctx context.Context, st store.Store, q store.Query, decode func(store.Record) T, onUpdate func([]T)) (*Projection[T], error) {
	sub, err := st.Subscribe(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", q.Collection, err)
	}

	p := &Projection[T]{
		sub:  sub,
		done: make(chan struct{}),
	}

	// Registration suspends until the first snapshot arrives.
	first, ok := <-sub.Updates()
	if !ok {
		return nil, fmt.Errorf("subscribe %s: subscription closed before first snapshot", q.Collection)
	}
	p.replace(first, decode, onUpdate)

	go func() {
		defer close(p.done)
		for snap := range sub.Updates() {
			p.replace(snap, decode, onUpdate)
		}
	}()

	return p, nil
}

func (p *Projection[T]) replace(snap store.Snapshot, decode func(store.Record) T, onUpdate func([]T)) {
	items := make([]T, 0, len(snap.Records))
	for _, r := range snap.Records {
		items = append(items, decode(r))
	}

	p.mu.Lock()
	p.items = items
	p.mu.Unlock()

	if onUpdate != nil {
		onUpdate(items)
	}
}

// Items returns the latest collection. The slice is shared with the
// projection; callers must treat it as read-only.
func (p *Projection[T]) Items() []T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.items
}

// Close cancels the subscription and waits until delivery has fully stopped.
// No onUpdate call happens after Close returns.
func (p *Projection[T]) Close() {
	p.sub.Cancel()
	<-p.done
}
