package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crptapi/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	format        TEXT NOT NULL,
	type          TEXT NOT NULL,
	product_group TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);
CREATE INDEX IF NOT EXISTS idx_documents_product_group ON documents (product_group);
`

// createdAtLayout is fixed width so that text ordering matches time ordering.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStorage keeps the journal in a SQLite database.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens the database and creates the schema if needed.
func NewSQLiteStorage(config Config) (*SQLiteStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (ss *SQLiteStorage) SaveDocument(ctx context.Context, rec *models.DocumentRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("document record must have an ID")
	}

	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO documents (id, format, type, product_group, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			format = excluded.format,
			type = excluded.type,
			product_group = excluded.product_group,
			created_at = excluded.created_at`,
		rec.ID, rec.Format, rec.Type, rec.ProductGroup, rec.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", rec.ID, err)
	}
	return nil
}

func (ss *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	row := ss.db.QueryRowContext(ctx,
		`SELECT id, format, type, product_group, created_at FROM documents WHERE id = ?`, id)

	rec, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return rec, nil
}

func (ss *SQLiteStorage) Documents(ctx context.Context, filter Filter) ([]*models.DocumentRecord, error) {
	query := `SELECT id, format, type, product_group, created_at FROM documents`
	var args []any
	if filter.ProductGroup != "" {
		query += ` WHERE product_group = ?`
		args = append(args, filter.ProductGroup)
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := ss.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	records := []*models.DocumentRecord{}
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (ss *SQLiteStorage) Ping(ctx context.Context) error {
	return ss.db.PingContext(ctx)
}

// Close closes the storage connection
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.DocumentRecord, error) {
	var rec models.DocumentRecord
	var createdAt string
	if err := s.Scan(&rec.ID, &rec.Format, &rec.Type, &rec.ProductGroup, &createdAt); err != nil {
		return nil, err
	}

	t, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	rec.CreatedAt = t
	return &rec, nil
}
