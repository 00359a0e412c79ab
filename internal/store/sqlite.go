package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"chorebank/internal/fault"
)

// SQLite adapts a relational database to the document Store interface.
// Each collection maps to a table with a fixed column set; document field
// names translate through a per-collection whitelist, which doubles as the
// guard against interpolating untrusted identifiers into SQL. Live
// subscriptions ride the in-process notifier: every committed write signals
// watchers of that collection to re-query.
type SQLite struct {
	db       *sql.DB
	notifier *notifier
}

type tableSpec struct {
	name   string
	fields map[string]string // document field -> column
}

var tables = map[string]tableSpec{
	CollectionUsers: {
		name: "users",
		fields: map[string]string{
			"email":    "email",
			"role":     "role",
			"parentId": "parent_id",
		},
	},
	CollectionCredentials: {
		name: "credentials",
		fields: map[string]string{
			"email":        "email",
			"passwordHash": "password_hash",
			"userId":       "user_id",
		},
	},
	CollectionTasks: {
		name: "tasks",
		fields: map[string]string{
			"title":           "title",
			"points":          "points",
			"status":          "status",
			"assignedToId":    "assigned_to_id",
			"assignedToEmail": "assigned_to_email",
			"parentId":        "parent_id",
			"createdAt":       "created_at",
		},
	},
	CollectionRewards: {
		name: "rewards",
		fields: map[string]string{
			"title":    "title",
			"cost":     "cost",
			"parentId": "parent_id",
		},
	},
	CollectionRedemptions: {
		name: "redemptions",
		fields: map[string]string{
			"childId":     "child_id",
			"parentId":    "parent_id",
			"rewardTitle": "reward_title",
			"cost":        "cost",
			"status":      "status",
			"timestamp":   "timestamp",
		},
	},
}

func NewSQLite(db *sql.DB, logger *slog.Logger) *SQLite {
	return &SQLite{
		db:       db,
		notifier: newNotifier(logger),
	}
}

func (s *SQLite) spec(collection string) (tableSpec, error) {
	t, ok := tables[collection]
	if !ok {
		return tableSpec{}, fmt.Errorf("unknown collection %q", collection)
	}
	return t, nil
}

func (s *SQLite) Create(ctx context.Context, collection string, data Doc) (string, error) {
	t, err := s.spec(collection)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	cols := []string{"id"}
	marks := []string{"?"}
	args := []any{id}
	for field, col := range t.fields {
		if v, ok := data[field]; ok {
			cols = append(cols, col)
			marks = append(marks, "?")
			args = append(args, v)
		}
	}

	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		t.name, strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}

	s.notifier.changed(collection)
	return id, nil
}

func (s *SQLite) Get(ctx context.Context, collection, id string) (Doc, error) {
	t, err := s.spec(collection)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, t.selectCols(), t.name), id)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", collection, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get %s: %w", collection, err)
		}
		return nil, fault.Newf(fault.NotFound, "%s/%s not found", collection, id)
	}
	rec, err := t.scan(rows)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", collection, err)
	}
	return rec.Data, nil
}

func (s *SQLite) Patch(ctx context.Context, collection, id string, fields Doc) error {
	t, err := s.spec(collection)
	if err != nil {
		return err
	}

	var sets []string
	var args []any
	for field, col := range t.fields {
		if v, ok := fields[field]; ok {
			sets = append(sets, col+" = ?")
			args = append(args, v)
		}
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, t.name, strings.Join(sets, ", ")), args...)
	if err != nil {
		return fmt.Errorf("patch %s: %w", collection, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fault.Newf(fault.NotFound, "%s/%s not found", collection, id)
	}

	s.notifier.changed(collection)
	return nil
}

func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	t, err := s.spec(collection)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.name), id); err != nil {
		return fmt.Errorf("delete %s: %w", collection, err)
	}

	s.notifier.changed(collection)
	return nil
}

func (s *SQLite) Query(ctx context.Context, q Query) ([]Record, error) {
	snap, err := s.evaluate(ctx, q)
	if err != nil {
		return nil, err
	}
	return snap.Records, nil
}

func (s *SQLite) Subscribe(ctx context.Context, q Query) (Subscription, error) {
	if _, err := s.spec(q.Collection); err != nil {
		return nil, err
	}
	// Re-evaluations run on the subscription's context, so they stop being
	// issued once the subscriber's lifetime ends.
	sub := s.notifier.subscribe(q, func(q Query) (Snapshot, error) {
		return s.evaluate(ctx, q)
	})
	go func() {
		<-ctx.Done()
		sub.Cancel()
	}()
	return sub, nil
}

func (s *SQLite) Close() error {
	s.notifier.closeAll()
	return s.db.Close()
}

func (s *SQLite) evaluate(ctx context.Context, q Query) (Snapshot, error) {
	t, err := s.spec(q.Collection)
	if err != nil {
		return Snapshot{}, err
	}

	stmt := fmt.Sprintf(`SELECT %s FROM %s`, t.selectCols(), t.name)
	var args []any
	if q.Field != "" {
		col, ok := t.fields[q.Field]
		if !ok {
			return Snapshot{}, fmt.Errorf("collection %q has no field %q", q.Collection, q.Field)
		}
		stmt += ` WHERE ` + col + ` = ?`
		args = append(args, q.Value)
	}
	if q.OrderBy != "" {
		col, ok := t.fields[q.OrderBy]
		if !ok {
			return Snapshot{}, fmt.Errorf("collection %q has no field %q", q.Collection, q.OrderBy)
		}
		stmt += ` ORDER BY ` + col + ` ASC, id ASC`
	} else {
		stmt += ` ORDER BY id ASC`
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := t.scan(rows)
		if err != nil {
			return Snapshot{}, fmt.Errorf("scan %s: %w", q.Collection, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate %s: %w", q.Collection, err)
	}
	return Snapshot{Records: records}, nil
}

// selectCols returns "id" plus the collection's columns in a stable order
// matching fieldOrder, for use with scan.
func (t tableSpec) selectCols() string {
	cols := []string{"id"}
	for _, f := range t.fieldOrder() {
		cols = append(cols, t.fields[f])
	}
	return strings.Join(cols, ", ")
}

func (t tableSpec) fieldOrder() []string {
	fields := make([]string, 0, len(t.fields))
	for f := range t.fields {
		fields = append(fields, f)
	}
	// Deterministic order keeps selectCols and scan aligned.
	sort.Strings(fields)
	return fields
}

func (t tableSpec) scan(rows *sql.Rows) (Record, error) {
	order := t.fieldOrder()
	vals := make([]any, len(order)+1)
	ptrs := make([]any, len(vals))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return Record{}, err
	}

	rec := Record{Data: make(Doc, len(order))}
	rec.ID, _ = vals[0].(string)
	for i, f := range order {
		v := vals[i+1]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		rec.Data[f] = v
	}
	return rec, nil
}
