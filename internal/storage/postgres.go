package storage

import (
	"context"
	"errors"
	"fmt"

	"crptapi/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	format        TEXT NOT NULL,
	type          TEXT NOT NULL,
	product_group TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);
CREATE INDEX IF NOT EXISTS idx_documents_product_group ON documents (product_group);
`

// PostgresStorage keeps the journal in PostgreSQL, for deployments where
// several hosts share one history.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to the database and creates the schema if needed.
func NewPostgresStorage(config Config) (*PostgresStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

func (ps *PostgresStorage) SaveDocument(ctx context.Context, rec *models.DocumentRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("document record must have an ID")
	}

	_, err := ps.pool.Exec(ctx, `
		INSERT INTO documents (id, format, type, product_group, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			format = EXCLUDED.format,
			type = EXCLUDED.type,
			product_group = EXCLUDED.product_group,
			created_at = EXCLUDED.created_at`,
		rec.ID, rec.Format, rec.Type, rec.ProductGroup, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", rec.ID, err)
	}
	return nil
}

func (ps *PostgresStorage) GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT id, format, type, product_group, created_at FROM documents WHERE id = $1`, id)

	var rec models.DocumentRecord
	err := row.Scan(&rec.ID, &rec.Format, &rec.Type, &rec.ProductGroup, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

func (ps *PostgresStorage) Documents(ctx context.Context, filter Filter) ([]*models.DocumentRecord, error) {
	query := `SELECT id, format, type, product_group, created_at FROM documents`
	var args []any
	if filter.ProductGroup != "" {
		args = append(args, filter.ProductGroup)
		query += fmt.Sprintf(` WHERE product_group = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := ps.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.DocumentRecord, error) {
		var rec models.DocumentRecord
		if err := row.Scan(&rec.ID, &rec.Format, &rec.Type, &rec.ProductGroup, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		return &rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}
	if records == nil {
		records = []*models.DocumentRecord{}
	}
	return records, nil
}

func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the connection pool
func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}
