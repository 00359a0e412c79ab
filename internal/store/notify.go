package store

import (
	"log/slog"
	"sync"
)

// notifier fans collection change signals out to live query subscriptions.
// Shared by the memory and SQLite backends, which have no server push of
// their own: every successful write calls changed(collection), and each
// subscription on that collection re-evaluates its query and delivers a
// fresh full snapshot.
type notifier struct {
	mu     sync.Mutex
	subs   map[*querySub]struct{}
	logger *slog.Logger
}

func newNotifier(logger *slog.Logger) *notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &notifier{
		subs:   make(map[*querySub]struct{}),
		logger: logger,
	}
}

// subscribe registers a live query. eval runs outside the notifier lock.
// The subscription's first snapshot is queued immediately, so consumers that
// wait for it observe current state before any change arrives.
func (n *notifier) subscribe(q Query, eval func(Query) (Snapshot, error)) *querySub {
	s := &querySub{
		q:       q,
		eval:    eval,
		updates: make(chan Snapshot),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		logger:  n.logger,
	}
	s.notify <- struct{}{}

	n.mu.Lock()
	n.subs[s] = struct{}{}
	n.mu.Unlock()

	s.detach = func() {
		n.mu.Lock()
		delete(n.subs, s)
		n.mu.Unlock()
	}

	go s.loop()
	return s
}

// changed signals every subscription watching the given collection.
func (n *notifier) changed(collection string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for s := range n.subs {
		if s.q.Collection != collection {
			continue
		}
		select {
		case s.notify <- struct{}{}:
		default:
			// A re-evaluation is already queued; it will see this write too.
		}
	}
}

// closeAll cancels every live subscription. Called from Store.Close.
func (n *notifier) closeAll() {
	n.mu.Lock()
	subs := make([]*querySub, 0, len(n.subs))
	for s := range n.subs {
		subs = append(subs, s)
	}
	n.mu.Unlock()

	for _, s := range subs {
		s.Cancel()
	}
}

// querySub re-runs its query on every change signal and pushes the result.
// Delivery is ordered per query; a slow consumer only ever delays fresher
// snapshots, never reorders them.
type querySub struct {
	q       Query
	eval    func(Query) (Snapshot, error)
	updates chan Snapshot
	notify  chan struct{}
	done    chan struct{}
	once    sync.Once
	detach  func()
	logger  *slog.Logger
}

func (s *querySub) Updates() <-chan Snapshot {
	return s.updates
}

func (s *querySub) Cancel() {
	s.once.Do(func() {
		s.detach()
		close(s.done)
	})
}

func (s *querySub) loop() {
	defer close(s.updates)
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		snap, err := s.eval(s.q)
		if err != nil {
			s.logger.Error("subscription query failed", "collection", s.q.Collection, "error", err)
			continue
		}

		select {
		case s.updates <- snap:
		case <-s.done:
			return
		}
	}
}
