package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"chorebank/internal/fault"
)

// Firestore backs the Store interface with Cloud Firestore. Live
// subscriptions map directly onto query snapshot listeners, so unlike the
// SQLite backend there is no in-process notifier: the server pushes a full
// result set on every matching-set change.
type Firestore struct {
	client *firestore.Client
	logger *slog.Logger
}

func NewFirestore(ctx context.Context, projectID string, logger *slog.Logger) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Firestore{client: client, logger: logger}, nil
}

func (f *Firestore) Create(ctx context.Context, collection string, data Doc) (string, error) {
	id := uuid.New().String()
	if _, err := f.client.Collection(collection).Doc(id).Set(ctx, map[string]any(data)); err != nil {
		return "", fault.Wrap(fault.Remote, "store write failed", err)
	}
	return id, nil
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (Doc, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fault.Newf(fault.NotFound, "%s/%s not found", collection, id)
	}
	if err != nil {
		return nil, fault.Wrap(fault.Remote, "store read failed", err)
	}
	return Doc(snap.Data()), nil
}

func (f *Firestore) Patch(ctx context.Context, collection, id string, fields Doc) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	_, err := f.client.Collection(collection).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return fault.Newf(fault.NotFound, "%s/%s not found", collection, id)
	}
	if err != nil {
		return fault.Wrap(fault.Remote, "store write failed", err)
	}
	return nil
}

func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	if _, err := f.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fault.Wrap(fault.Remote, "store delete failed", err)
	}
	return nil
}

func (f *Firestore) Query(ctx context.Context, q Query) ([]Record, error) {
	iter := f.buildQuery(q).Documents(ctx)
	defer iter.Stop()

	var records []Record
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fault.Wrap(fault.Remote, "store query failed", err)
		}
		records = append(records, Record{ID: doc.Ref.ID, Data: Doc(doc.Data())})
	}
	return records, nil
}

func (f *Firestore) Subscribe(ctx context.Context, q Query) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &firestoreSub{
		updates: make(chan Snapshot),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(sub.updates)

		snaps := f.buildQuery(q).Snapshots(ctx)
		defer snaps.Stop()

		for {
			qs, err := snaps.Next()
			if err != nil {
				if ctx.Err() == nil {
					f.logger.Error("snapshot listener stopped", "collection", q.Collection, "error", err)
				}
				return
			}

			var records []Record
			docs := qs.Documents
			for {
				doc, err := docs.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					f.logger.Error("snapshot iterate failed", "collection", q.Collection, "error", err)
					return
				}
				records = append(records, Record{ID: doc.Ref.ID, Data: Doc(doc.Data())})
			}

			select {
			case sub.updates <- Snapshot{Records: records}:
			case <-sub.done:
				return
			}
		}
	}()

	return sub, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) buildQuery(q Query) firestore.Query {
	fq := f.client.Collection(q.Collection).Query
	if q.Field != "" {
		fq = fq.Where(q.Field, "==", q.Value)
	}
	if q.OrderBy != "" {
		fq = fq.OrderBy(q.OrderBy, firestore.Asc)
	}
	return fq
}

type firestoreSub struct {
	updates chan Snapshot
	cancel  context.CancelFunc
	once    sync.Once
	done    chan struct{}
}

func (s *firestoreSub) Updates() <-chan Snapshot {
	return s.updates
}

func (s *firestoreSub) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
	})
}
