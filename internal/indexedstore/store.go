// Package indexedstore implements the indexed store adapter on SQLite:
// per-record rows with secondary indexes on creation time and owner tag,
// plus the snapshot backup slot. All operations take a context; the
// coordinator bounds them with a timeout and proceeds with the remaining
// adapters when this one does not answer.
package indexedstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/dreamlayer/artvault/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// BackupSlot is the snapshot slot the snapshot manager writes to.
const BackupSlot = "backup"

// Store is the SQLite-backed indexed adapter. A store that failed to open
// stays usable in a degraded state: every operation returns
// ErrStoreUnavailable and callers fall back to the other adapters.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	itemCap int
}

// Open creates or opens the database at path and applies the schema. On
// failure it returns a degraded (never nil) store alongside the error, so
// the caller can log and continue without the indexed tier.
func Open(path string, itemCap int) (*Store, error) {
	s := &Store{itemCap: itemCap}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return s, fmt.Errorf("open indexed store: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return s, fmt.Errorf("apply indexed store schema: %w", err)
	}

	s.db = db
	return s, nil
}

// Available reports whether the store opened successfully and has not been
// closed.
func (s *Store) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// Close releases the database. Idempotent; operations after Close return
// ErrStoreUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Row is one record as stored: identity and index columns plus the full
// JSON payload.
type Row struct {
	ID        string
	CreatedAt string
	OwnerTag  string
	Payload   []byte
}

// Put upserts a single record row, then evicts oldest-first beyond the
// item cap.
func (s *Store) Put(ctx context.Context, collection string, row Row) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return types.ErrStoreUnavailable
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (collection, id, created_at, owner_tag, payload)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET
		   created_at = excluded.created_at,
		   owner_tag  = excluded.owner_tag,
		   payload    = excluded.payload`,
		collection, row.ID, row.CreatedAt, row.OwnerTag, string(row.Payload))
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, row.ID, err)
	}
	return s.evictLocked(ctx, collection)
}

// PutMany upserts rows in one transaction. Used by restore and migration
// paths; eviction runs once at the end.
func (s *Store) PutMany(ctx context.Context, collection string, rows []Row) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return types.ErrStoreUnavailable
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put-many: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (collection, id, created_at, owner_tag, payload)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET
		   created_at = excluded.created_at,
		   owner_tag  = excluded.owner_tag,
		   payload    = excluded.payload`)
	if err != nil {
		return fmt.Errorf("prepare put-many: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, collection, row.ID, row.CreatedAt, row.OwnerTag, string(row.Payload)); err != nil {
			return fmt.Errorf("put-many %s/%s: %w", collection, row.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put-many: %w", err)
	}
	return s.evictLocked(ctx, collection)
}

// All returns every row in the collection, newest first.
func (s *Store) All(ctx context.Context, collection string) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, types.ErrStoreUnavailable
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, owner_tag, payload FROM records
		 WHERE collection = ? ORDER BY created_at DESC`, collection)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// ByOwner returns the collection rows for one owner tag, newest first,
// served off the owner index.
func (s *Store) ByOwner(ctx context.Context, collection, owner string) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, types.ErrStoreUnavailable
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, owner_tag, payload FROM records
		 WHERE collection = ? AND owner_tag = ? ORDER BY created_at DESC`,
		collection, owner)
	if err != nil {
		return nil, fmt.Errorf("query %s by owner: %w", collection, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// Count returns the number of rows in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, types.ErrStoreUnavailable
	}

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// Delete removes one record. Deleting an absent record is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return types.ErrStoreUnavailable
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// ClearCollection removes every row in a collection.
func (s *Store) ClearCollection(ctx context.Context, collection string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return types.ErrStoreUnavailable
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}
	return nil
}

// SaveSnapshot overwrites the backup slot with the given payload.
func (s *Store) SaveSnapshot(ctx context.Context, writtenAt string, payload []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return types.ErrStoreUnavailable
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (slot, written_at, payload) VALUES (?, ?, ?)
		 ON CONFLICT (slot) DO UPDATE SET
		   written_at = excluded.written_at,
		   payload    = excluded.payload`,
		BackupSlot, writtenAt, string(payload))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the backup slot payload and its write time.
// Returns ErrNotFound when no snapshot has been written.
func (s *Store) LoadSnapshot(ctx context.Context) (writtenAt string, payload []byte, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return "", nil, types.ErrStoreUnavailable
	}

	var raw string
	err = s.db.QueryRowContext(ctx,
		`SELECT written_at, payload FROM snapshots WHERE slot = ?`, BackupSlot).
		Scan(&writtenAt, &raw)
	if err == sql.ErrNoRows {
		return "", nil, types.ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("load snapshot: %w", err)
	}
	return writtenAt, []byte(raw), nil
}

// ClearSnapshot removes the backup slot.
func (s *Store) ClearSnapshot(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return types.ErrStoreUnavailable
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE slot = ?`, BackupSlot); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

// evictLocked trims a collection to the item cap, oldest created_at first.
// Caller holds at least a read lock and has checked s.db.
func (s *Store) evictLocked(ctx context.Context, collection string) error {
	if s.itemCap <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ?1 AND id IN (
		   SELECT id FROM records WHERE collection = ?1
		   ORDER BY created_at ASC
		   LIMIT max((SELECT COUNT(*) FROM records WHERE collection = ?1) - ?2, 0)
		 )`, collection, s.itemCap)
	if err != nil {
		return fmt.Errorf("evict %s: %w", collection, err)
	}
	return nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		var r Row
		var payload string
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.OwnerTag, &payload); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Payload = []byte(payload)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
