package storage

import (
	"context"

	"crptapi/internal/models"
)

// Storage is the journal of documents created through the API. It can be
// implemented by different backends such as JSON files or databases.
type Storage interface {
	// SaveDocument stores a record, replacing any record with the same ID.
	SaveDocument(ctx context.Context, rec *models.DocumentRecord) error

	// GetDocument returns the record with the given ID or ErrNotFound.
	GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error)

	// Documents returns records matching filter, newest first.
	Documents(ctx context.Context, filter Filter) ([]*models.DocumentRecord, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Filter narrows a Documents listing. Zero values match everything.
type Filter struct {
	ProductGroup string
	Limit        int
}

func (f Filter) matches(rec *models.DocumentRecord) bool {
	return f.ProductGroup == "" || rec.ProductGroup == f.ProductGroup
}

// Config holds configuration for storage backends
type Config struct {
	// Type specifies the storage backend type (memory, json, sqlite)
	Type string `json:"type" yaml:"type"`

	// Path is used for file-based storage backends
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// ConnectionString is used for database backends
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`
}
