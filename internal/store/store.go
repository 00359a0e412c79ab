// Package store defines the document-store capability chorebank is built
// against: keyed records, partial patches, equality queries, and live
// subscriptions that push a full snapshot on every matching-set change.
//
// Three implementations exist: Memory (tests and local hacking), SQLite
// (default self-hosted deployment), and Firestore. The remote store is the
// single source of truth; no client projection is treated as authoritative.
package store

import "context"

// Doc holds a document's fields by name. Values are strings, int64 numbers,
// or booleans — the common denominator of the supported backends.
type Doc map[string]any

// Record pairs a document with its id.
type Record struct {
	ID   string
	Data Doc
}

// Snapshot is a full, point-in-time replacement of a query's result set.
// Consumers replace their local projection wholesale; there are no
// incremental patches to diverge from.
type Snapshot struct {
	Records []Record
}

// Query selects documents in a collection by a single equality filter.
// An empty Field matches the whole collection. OrderBy, when set, sorts
// ascending by that field.
type Query struct {
	Collection string
	Field      string
	Value      any
	OrderBy    string
}

// Subscription is a live query. Updates yields a snapshot for every change
// to the matching set, starting with the current state. Cancel deterministically
// stops delivery and closes the channel; it is safe to call more than once.
type Subscription interface {
	Updates() <-chan Snapshot
	Cancel()
}

// Store is the injected document-store capability. Implementations must
// generate ids on Create and report missing documents from Get as
// fault.NotFound. None of the methods span documents atomically — the
// baseline deployment has no multi-document transactions, which is why
// redemption admission is serialized client-side instead.
type Store interface {
	Create(ctx context.Context, collection string, data Doc) (string, error)
	Get(ctx context.Context, collection, id string) (Doc, error)
	Patch(ctx context.Context, collection, id string, fields Doc) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Subscribe(ctx context.Context, q Query) (Subscription, error)
	Close() error
}

// Collection names shared by all backends.
const (
	CollectionUsers       = "users"
	CollectionCredentials = "credentials"
	CollectionTasks       = "tasks"
	CollectionRewards     = "rewards"
	CollectionRedemptions = "redemptions"
)
