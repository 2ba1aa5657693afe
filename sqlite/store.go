// Package sqlite provides a durable outbox.Store over a SQLite database,
// the storage engine of choice for offline-first clients.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/offlinekit/outbox"
)

// executor is the intersection of *sql.DB and *sql.Tx the store needs.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	selectBase   string
	upsert       string
	deleteBase   string
	countPending string
}

func newQueries(table string) queries {
	const cols = "id, model_id, model, operation, data, condition"

	return queries{
		selectBase: fmt.Sprintf("SELECT %s FROM %s", cols, table),
		upsert: fmt.Sprintf(
			"INSERT INTO %s (id, model_id, model, operation, data, condition, owner, saved_at) "+
				"VALUES (?, ?, ?, ?, ?, ?, ?, ?) "+
				"ON CONFLICT(id) DO UPDATE SET model_id = excluded.model_id, model = excluded.model, "+
				"operation = excluded.operation, data = excluded.data, condition = excluded.condition, "+
				"owner = excluded.owner, saved_at = excluded.saved_at",
			table,
		),
		deleteBase:   fmt.Sprintf("DELETE FROM %s", table),
		countPending: fmt.Sprintf("SELECT COUNT(*) FROM %s", table),
	}
}

// Store is a SQLite-backed outbox.Store. SQLite allows a single writer, so a
// process-level mutex backs RunExclusive and each exclusive block runs inside
// one transaction.
type Store struct {
	db      *sql.DB
	mu      sync.Mutex
	cfg     Config
	queries queries
	table   string
}

var _ outbox.Store = (*Store)(nil)

// NewStore constructs a SQLite store with validated configuration. Register
// the mattn/go-sqlite3 driver and open the database before calling this.
func NewStore(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrDBRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	table, err := sanitizeTableName(cfg.Table)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:      db,
		cfg:     cfg,
		queries: newQueries(table),
		table:   table,
	}, nil
}

// MustNewStore constructs a SQLite store or panics on error.
func MustNewStore(db *sql.DB, opts ...Option) *Store {
	store, err := NewStore(db, opts...)
	if err != nil {
		panic(err)
	}

	return store
}

// EnsureSchema creates the mutation queue table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl, err := Schema(s.table)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("outbox sqlite: create schema failed: %w", err)
	}

	return nil
}

// RunExclusive implements outbox.Store. The callback's operations run in one
// transaction; an error from the callback rolls the transaction back and
// propagates unchanged.
func (s *Store) RunExclusive(ctx context.Context, fn func(ctx context.Context, st outbox.Storage) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("outbox sqlite: begin tx failed: %w", err)
	}

	if err := fn(ctx, txView{store: s, exec: tx}); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Join(err, fmt.Errorf("outbox sqlite: rollback failed: %w", rollbackErr))
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("outbox sqlite: commit failed: %w", err)
	}

	return nil
}

// Query implements outbox.Storage.
func (s *Store) Query(ctx context.Context, p outbox.Predicate) ([]outbox.MutationEvent, error) {
	return s.query(ctx, s.db, p)
}

// QueryOne implements outbox.Storage.
func (s *Store) QueryOne(ctx context.Context) (*outbox.MutationEvent, error) {
	return s.queryOne(ctx, s.db)
}

// Save implements outbox.Storage.
func (s *Store) Save(ctx context.Context, event outbox.MutationEvent, owner *outbox.OwnerToken) error {
	return s.save(ctx, s.db, event, owner)
}

// Delete implements outbox.Storage.
func (s *Store) Delete(ctx context.Context, p outbox.Predicate) error {
	return s.delete(ctx, s.db, p)
}

// PendingCount implements outbox.Storage.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	return s.pendingCount(ctx, s.db)
}

func (s *Store) query(ctx context.Context, exec executor, p outbox.Predicate) ([]outbox.MutationEvent, error) {
	where, args := predicateClause(p)
	rows, err := exec.QueryContext(ctx, s.queries.selectBase+where+" ORDER BY seq ASC", args...)
	if err != nil {
		return nil, fmt.Errorf("outbox sqlite: select failed: %w", err)
	}
	defer rows.Close()

	var events []outbox.MutationEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox sqlite: row iteration failed: %w", err)
	}

	return events, nil
}

func (s *Store) queryOne(ctx context.Context, exec executor) (*outbox.MutationEvent, error) {
	rows, err := exec.QueryContext(ctx, s.queries.selectBase+" ORDER BY seq ASC LIMIT 1")
	if err != nil {
		return nil, fmt.Errorf("outbox sqlite: select head failed: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("outbox sqlite: select head failed: %w", err)
		}

		return nil, nil
	}

	event, err := scanEvent(rows)
	if err != nil {
		return nil, err
	}

	return &event, nil
}

func (s *Store) save(ctx context.Context, exec executor, event outbox.MutationEvent, owner *outbox.OwnerToken) error {
	_, err := exec.ExecContext(
		ctx,
		s.queries.upsert,
		event.ID,
		event.ModelID,
		event.Model,
		string(event.Operation),
		string(event.Data),
		string(event.Condition),
		owner.String(),
		s.cfg.Clock.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("outbox sqlite: save failed: %w", err)
	}

	return nil
}

func (s *Store) delete(ctx context.Context, exec executor, p outbox.Predicate) error {
	where, args := predicateClause(p)
	if _, err := exec.ExecContext(ctx, s.queries.deleteBase+where, args...); err != nil {
		return fmt.Errorf("outbox sqlite: delete failed: %w", err)
	}

	return nil
}

func (s *Store) pendingCount(ctx context.Context, exec executor) (int, error) {
	var count int
	if err := exec.QueryRowContext(ctx, s.queries.countPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("outbox sqlite: count failed: %w", err)
	}

	return count, nil
}

func predicateClause(p outbox.Predicate) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if p.ID != "" {
		clauses = append(clauses, "id = ?")
		args = append(args, p.ID)
	}
	if p.ModelID != "" {
		clauses = append(clauses, "model_id = ?")
		args = append(args, p.ModelID)
	}
	if p.NotID != "" {
		clauses = append(clauses, "id <> ?")
		args = append(args, p.NotID)
	}
	if len(clauses) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanEvent(rows *sql.Rows) (outbox.MutationEvent, error) {
	var (
		event     outbox.MutationEvent
		operation string
		data      string
		condition string
	)
	if err := rows.Scan(&event.ID, &event.ModelID, &event.Model, &operation, &data, &condition); err != nil {
		return outbox.MutationEvent{}, fmt.Errorf("outbox sqlite: scan failed: %w", err)
	}

	event.Operation = outbox.Operation(operation)
	event.Data = json.RawMessage(data)
	if condition != "" {
		event.Condition = json.RawMessage(condition)
	}

	return event, nil
}

// txView routes storage operations through the exclusive block's transaction.
type txView struct {
	store *Store
	exec  *sql.Tx
}

func (v txView) Query(ctx context.Context, p outbox.Predicate) ([]outbox.MutationEvent, error) {
	return v.store.query(ctx, v.exec, p)
}

func (v txView) QueryOne(ctx context.Context) (*outbox.MutationEvent, error) {
	return v.store.queryOne(ctx, v.exec)
}

func (v txView) Save(ctx context.Context, event outbox.MutationEvent, owner *outbox.OwnerToken) error {
	return v.store.save(ctx, v.exec, event, owner)
}

func (v txView) Delete(ctx context.Context, p outbox.Predicate) error {
	return v.store.delete(ctx, v.exec, p)
}

func (v txView) PendingCount(ctx context.Context) (int, error) {
	return v.store.pendingCount(ctx, v.exec)
}
