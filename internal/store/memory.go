package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"chorebank/internal/fault"
)

// Memory is an in-process Store with working live subscriptions. It backs
// the test suites and is handy for hacking on the UI without a database.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Doc
	notifier    *notifier
}

func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{
		collections: make(map[string]map[string]Doc),
		notifier:    newNotifier(logger),
	}
}

func (m *Memory) Create(ctx context.Context, collection string, data Doc) (string, error) {
	id := uuid.New().String()

	m.mu.Lock()
	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string]Doc)
		m.collections[collection] = docs
	}
	docs[id] = cloneDoc(data)
	m.mu.Unlock()

	m.notifier.changed(collection)
	return id, nil
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Doc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, fault.Newf(fault.NotFound, "%s/%s not found", collection, id)
	}
	return cloneDoc(doc), nil
}

func (m *Memory) Patch(ctx context.Context, collection, id string, fields Doc) error {
	m.mu.Lock()
	doc, ok := m.collections[collection][id]
	if !ok {
		m.mu.Unlock()
		return fault.Newf(fault.NotFound, "%s/%s not found", collection, id)
	}
	for k, v := range fields {
		doc[k] = v
	}
	m.mu.Unlock()

	m.notifier.changed(collection)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	delete(m.collections[collection], id)
	m.mu.Unlock()

	m.notifier.changed(collection)
	return nil
}

func (m *Memory) Query(ctx context.Context, q Query) ([]Record, error) {
	snap, err := m.evaluate(q)
	if err != nil {
		return nil, err
	}
	return snap.Records, nil
}

func (m *Memory) Subscribe(ctx context.Context, q Query) (Subscription, error) {
	sub := m.notifier.subscribe(q, m.evaluate)
	go func() {
		<-ctx.Done()
		sub.Cancel()
	}()
	return sub, nil
}

func (m *Memory) Close() error {
	m.notifier.closeAll()
	return nil
}

func (m *Memory) evaluate(q Query) (Snapshot, error) {
	m.mu.RLock()
	var records []Record
	for id, doc := range m.collections[q.Collection] {
		if q.Field != "" && doc[q.Field] != q.Value {
			continue
		}
		records = append(records, Record{ID: id, Data: cloneDoc(doc)})
	}
	m.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if q.OrderBy != "" {
			a, b := records[i].Data[q.OrderBy], records[j].Data[q.OrderBy]
			if !valueEqual(a, b) {
				return valueLess(a, b)
			}
		}
		return records[i].ID < records[j].ID
	})
	return Snapshot{Records: records}, nil
}

func cloneDoc(d Doc) Doc {
	c := make(Doc, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

func valueEqual(a, b any) bool {
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		return ok && sa == sb
	}
	return asInt64(a) == asInt64(b)
}

func valueLess(a, b any) bool {
	if sa, ok := a.(string); ok {
		sb, _ := b.(string)
		return sa < sb
	}
	return asInt64(a) < asInt64(b)
}
