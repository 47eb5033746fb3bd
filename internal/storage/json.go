package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crptapi/internal/models"
)

// JSONStorage keeps the journal in a single JSON file. The file is loaded
// once and rewritten atomically on every save.
type JSONStorage struct {
	filePath string
	mu       sync.RWMutex
	data     *JSONData
}

// JSONData represents the structure of data stored in JSON format
type JSONData struct {
	Documents   []*models.DocumentRecord `json:"documents"`
	LastUpdated time.Time                `json:"last_updated"`
}

// NewJSONStorage creates a new JSON-based storage instance
func NewJSONStorage(config Config) (*JSONStorage, error) {
	if config.Path == "" {
		return nil, errors.New("path is required for JSON storage")
	}

	storage := &JSONStorage{filePath: config.Path}

	if err := storage.ensureFileExists(); err != nil {
		return nil, fmt.Errorf("failed to ensure file exists: %w", err)
	}
	if err := storage.loadData(); err != nil {
		return nil, fmt.Errorf("failed to load initial data: %w", err)
	}
	return storage, nil
}

// ensureFileExists creates the JSON file with empty data if it doesn't exist
func (j *JSONStorage) ensureFileExists() error {
	if _, err := os.Stat(j.filePath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(j.filePath), 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return j.saveData(&JSONData{Documents: []*models.DocumentRecord{}})
	}
	return nil
}

func (j *JSONStorage) loadData() error {
	fileData, err := os.ReadFile(j.filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var data JSONData
	if err := json.Unmarshal(fileData, &data); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	j.mu.Lock()
	j.data = &data
	j.mu.Unlock()
	return nil
}

// saveData writes data through a temporary file so readers never see a
// partially written journal.
func (j *JSONStorage) saveData(data *JSONData) error {
	data.LastUpdated = time.Now().UTC()

	fileData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tmp := j.filePath + ".tmp"
	if err := os.WriteFile(tmp, fileData, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, j.filePath); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

func (j *JSONStorage) SaveDocument(_ context.Context, rec *models.DocumentRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("document record must have an ID")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	recCopy := *rec
	next := &JSONData{Documents: make([]*models.DocumentRecord, 0, len(j.data.Documents)+1)}
	replaced := false
	for _, existing := range j.data.Documents {
		if existing.ID == rec.ID {
			next.Documents = append(next.Documents, &recCopy)
			replaced = true
			continue
		}
		next.Documents = append(next.Documents, existing)
	}
	if !replaced {
		next.Documents = append(next.Documents, &recCopy)
	}

	if err := j.saveData(next); err != nil {
		return err
	}
	j.data = next
	return nil
}

func (j *JSONStorage) GetDocument(_ context.Context, id string) (*models.DocumentRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, rec := range j.data.Documents {
		if rec.ID == id {
			recCopy := *rec
			return &recCopy, nil
		}
	}
	return nil, ErrNotFound
}

func (j *JSONStorage) Documents(_ context.Context, filter Filter) ([]*models.DocumentRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return selectRecords(j.data.Documents, filter), nil
}

// Ping checks that the journal file is still accessible.
func (j *JSONStorage) Ping(_ context.Context) error {
	_, err := os.Stat(j.filePath)
	return err
}

func (j *JSONStorage) Close() error {
	return nil
}
