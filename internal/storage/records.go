// Package storage is the record-store collaborator: a single keyed table
// holding task and file documents as jsonb, discriminated by a type tag.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRecordNotFound = errors.New("record not found")

type Store struct {
	pool *pgxpool.Pool

	createTableSQL string
	putSQL         string
	getSQL         string
	scanSQL        string
	mergeSQL       string
	deleteSQL      string
}

// New builds a store over the given logical table. The table name is derived
// per stage and may contain dashes, so every statement quotes it.
func New(pool *pgxpool.Pool, table string) *Store {
	ident := pgx.Identifier{table}.Sanitize()
	return &Store{
		pool: pool,
		createTableSQL: fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id text PRIMARY KEY,
  record_type text NOT NULL,
  doc jsonb NOT NULL
)`, ident),
		putSQL: fmt.Sprintf(`
INSERT INTO %s (id, record_type, doc)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE
SET record_type = EXCLUDED.record_type,
    doc = EXCLUDED.doc`, ident),
		getSQL:    fmt.Sprintf(`SELECT record_type, doc FROM %s WHERE id = $1`, ident),
		scanSQL:   fmt.Sprintf(`SELECT doc FROM %s WHERE record_type = $1`, ident),
		mergeSQL:  fmt.Sprintf(`UPDATE %s SET doc = doc || $3::jsonb WHERE id = $1 AND record_type = $2`, ident),
		deleteSQL: fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND record_type = $2`, ident),
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, s.createTableSQL)
	return err
}

// Put writes the full document, replacing any existing record with the id.
func (s *Store) Put(ctx context.Context, id, recordType string, doc []byte) error {
	if _, err := s.pool.Exec(ctx, s.putSQL, id, recordType, doc); err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// Get returns the type tag and document for the id, or ErrRecordNotFound.
func (s *Store) Get(ctx context.Context, id string) (string, []byte, error) {
	var recordType string
	var doc []byte
	err := s.pool.QueryRow(ctx, s.getSQL, id).Scan(&recordType, &doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrRecordNotFound
		}
		return "", nil, fmt.Errorf("get record: %w", err)
	}
	return recordType, doc, nil
}

// Scan returns all documents carrying the type tag. This is a single
// unbounded read of the whole collection.
func (s *Store) Scan(ctx context.Context, recordType string) ([][]byte, error) {
	rows, err := s.pool.Query(ctx, s.scanSQL, recordType)
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan records: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	return docs, nil
}

// MergePatch merges the patch document into the stored one, conditional on
// the record existing with the given type. Reports whether a row was
// written; a missing record performs no write at all.
func (s *Store) MergePatch(ctx context.Context, id, recordType string, patch []byte) (bool, error) {
	tag, err := s.pool.Exec(ctx, s.mergeSQL, id, recordType, patch)
	if err != nil {
		return false, fmt.Errorf("merge record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes the record and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id, recordType string) (bool, error) {
	tag, err := s.pool.Exec(ctx, s.deleteSQL, id, recordType)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Ping probes store connectivity for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
