// Package docstore is a small document database on top of SQLite.
//
// Documents are JSON objects addressed by a collection path and an ID, e.g.
// "sounds/<id>" or "users/<uid>/playlists/<id>". Besides plain reads and writes
// the store offers the two atomic field updates soundshow relies on, numeric
// increment and array union, and live listeners that push a fresh snapshot
// of a query after every committed write to its collection.
package docstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/llehouerou/soundshow/internal/apperr"
	dbutil "github.com/llehouerou/soundshow/internal/db"
)

const currentSchemaVersion = 1

// Store provides document operations on a SQLite database.
type Store struct {
	db     *sql.DB
	ownsDB bool
	log    *log.Logger
	now    func() time.Time
	newID  func() string

	mu        sync.Mutex
	listeners map[string]map[*Listener]struct{}
	closed    bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for listener errors.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the time source for create/update times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides document ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// Open opens (or creates) the store at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := dbutil.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := New(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// New creates a store on an existing database and initializes its schema.
// The caller keeps ownership of db.
func New(db *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{
		db:        db,
		log:       log.Default(),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		listeners: make(map[string]map[*Listener]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := initSchema(db); err != nil {
		return nil, err
	}
	return s, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL CHECK (json_valid(data)),
			create_time INTEGER NOT NULL,
			update_time INTEGER NOT NULL,
			PRIMARY KEY (collection, id)
		);

		CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(collection, create_time);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, currentSchemaVersion)
	return err
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close cancels every listener and closes the database if the store opened it.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var all []*Listener
	for _, set := range s.listeners {
		for l := range set {
			all = append(all, l)
		}
	}
	s.listeners = map[string]map[*Listener]struct{}{}
	s.mu.Unlock()

	for _, l := range all {
		l.stop()
	}

	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Create stores v under a generated ID and returns the ID.
func (s *Store) Create(ctx context.Context, collection string, v any) (string, error) {
	id := s.newID()
	if err := s.insert(ctx, collection, id, v, false); err != nil {
		return "", err
	}
	return id, nil
}

// Set writes v under id, replacing any existing body. The create time of an
// existing document is preserved.
func (s *Store) Set(ctx context.Context, collection, id string, v any) error {
	return s.insert(ctx, collection, id, v, true)
}

func (s *Store) insert(ctx context.Context, collection, id string, v any, upsert bool) error {
	if err := s.checkWrite(collection, id); err != nil {
		return err
	}
	data, err := encodeObject(v)
	if err != nil {
		return err
	}

	now := s.now().UnixMilli()
	query := `INSERT INTO documents (collection, id, data, create_time, update_time) VALUES (?, ?, ?, ?, ?)`
	if upsert {
		query += ` ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, update_time = excluded.update_time`
	}
	if _, err := s.db.ExecContext(ctx, query, collection, id, string(data), now, now); err != nil {
		return err
	}
	s.notify(collection)
	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := s.checkWrite(collection, id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.notify(collection)
	}
	return nil
}

// Get returns one document, or an error wrapping apperr.ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := validateCollection(collection); err != nil {
		return Document{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, data, create_time, update_time
		FROM documents
		WHERE collection = ? AND id = ?
	`, collection, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrNotFound)
	}
	return doc, err
}

// GetAll returns every document of a collection in creation order.
func (s *Store) GetAll(ctx context.Context, collection string) ([]Document, error) {
	return s.Query(ctx, Query{Collection: collection})
}

// GetIn returns the documents whose IDs are in ids. Missing IDs are skipped.
// At most MaxInValues IDs may be requested at once.
func (s *Store) GetIn(ctx context.Context, collection string, ids []string) ([]Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxInValues {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyValues, len(ids), MaxInValues)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data, create_time, update_time
		FROM documents
		WHERE collection = ? AND id IN (`+placeholders+`)
		ORDER BY create_time, id
	`, args...)
	if err != nil {
		return nil, err
	}
	return scanDocuments(rows)
}

// Increment adds delta to a numeric field, treating a missing field as 0.
func (s *Store) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	if err := s.checkWrite(collection, id); err != nil {
		return err
	}
	path, err := fieldPath(field)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET data = json_set(data, ?, COALESCE(json_extract(data, ?), 0) + ?),
			update_time = ?
		WHERE collection = ? AND id = ?
	`, path, path, delta, s.now().UnixMilli(), collection, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrNotFound)
	}
	s.notify(collection)
	return nil
}

// ArrayUnion appends each value not already present in the array field.
// The read-modify-write runs in one write transaction so concurrent unions on
// the same document never lose elements or introduce duplicates.
// It reports whether the document changed.
func (s *Store) ArrayUnion(ctx context.Context, collection, id, field string, values ...any) (bool, error) {
	if err := s.checkWrite(collection, id); err != nil {
		return false, err
	}
	if _, err := fieldPath(field); err != nil {
		return false, err
	}

	changed := false
	err := dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// Take the write lock before reading.
		res, err := tx.ExecContext(ctx, `
			UPDATE documents SET update_time = update_time WHERE collection = ? AND id = ?
		`, collection, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrNotFound)
		}

		var raw string
		if err := tx.QueryRowContext(ctx, `
			SELECT data FROM documents WHERE collection = ? AND id = ?
		`, collection, id).Scan(&raw); err != nil {
			return err
		}

		var body map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			return err
		}

		var current []json.RawMessage
		if existing, ok := body[field]; ok && !bytes.Equal(existing, []byte("null")) {
			if err := json.Unmarshal(existing, &current); err != nil {
				return fmt.Errorf("field %q is not an array: %w", field, err)
			}
		}

		merged, added, err := unionRaw(current, values)
		if err != nil {
			return err
		}
		if !added {
			return nil
		}

		encoded, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		body[field] = encoded
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE documents SET data = ?, update_time = ? WHERE collection = ? AND id = ?
		`, string(data), s.now().UnixMilli(), collection, id); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if changed {
		s.notify(collection)
	}
	return changed, nil
}

// unionRaw appends the JSON encoding of each value missing from current.
func unionRaw(current []json.RawMessage, values []any) ([]json.RawMessage, bool, error) {
	seen := make(map[string]struct{}, len(current)+len(values))
	for _, c := range current {
		seen[compactKey(c)] = struct{}{}
	}

	added := false
	for _, v := range values {
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, false, err
		}
		key := compactKey(enc)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		current = append(current, enc)
		added = true
	}
	if current == nil {
		current = []json.RawMessage{}
	}
	return current, added, nil
}

func compactKey(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func (s *Store) checkWrite(collection, id string) error {
	if s.isClosed() {
		return ErrClosed
	}
	if err := validateCollection(collection); err != nil {
		return err
	}
	if id == "" || strings.Contains(id, "/") {
		return fmt.Errorf("%w: document id %q", ErrInvalidPath, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc            Document
		data           string
		create, update int64
	)
	if err := row.Scan(&doc.ID, &data, &create, &update); err != nil {
		return Document{}, err
	}
	doc.raw = json.RawMessage(data)
	doc.CreateTime = time.UnixMilli(create)
	doc.UpdateTime = time.UnixMilli(update)
	return doc, nil
}

func scanDocuments(rows *sql.Rows) ([]Document, error) {
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
