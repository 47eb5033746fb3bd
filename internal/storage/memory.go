package storage

import (
	"context"
	"errors"
	"sync"

	"crptapi/internal/models"
)

// MemoryStorage keeps the journal in process memory. Data is lost on restart.
type MemoryStorage struct {
	mu        sync.RWMutex
	documents map[string]*models.DocumentRecord
}

// NewMemoryStorage creates a new memory-based storage instance
func NewMemoryStorage(_ Config) (*MemoryStorage, error) {
	return &MemoryStorage{
		documents: make(map[string]*models.DocumentRecord),
	}, nil
}

// SaveDocument stores a copy of rec.
func (m *MemoryStorage) SaveDocument(_ context.Context, rec *models.DocumentRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("document record must have an ID")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	recCopy := *rec
	m.documents[rec.ID] = &recCopy
	return nil
}

func (m *MemoryStorage) GetDocument(_ context.Context, id string) (*models.DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	recCopy := *rec
	return &recCopy, nil
}

func (m *MemoryStorage) Documents(_ context.Context, filter Filter) ([]*models.DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*models.DocumentRecord, 0, len(m.documents))
	for _, rec := range m.documents {
		all = append(all, rec)
	}
	return selectRecords(all, filter), nil
}

func (m *MemoryStorage) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
