package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// JSONHistory persists delivered article ids as a JSON array on disk.
type JSONHistory struct {
	path string
}

var _ ports.HistoryStore = (*JSONHistory)(nil)

// NewJSONHistory binds the store to a file path.
func NewJSONHistory(path string) *JSONHistory {
	return &JSONHistory{path: path}
}

// Path returns the backing file location.
func (h *JSONHistory) Path() string {
	return h.path
}

// Load reads the history. A missing file yields an empty history; invalid
// content yields ErrCorruptHistory.
func (h *JSONHistory) Load(ctx context.Context) ([]domain.ArticleID, error) {
	raw, err := os.ReadFile(h.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history %s: %w", h.path, err)
	}

	var ids []domain.ArticleID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("%w %s: %v", domain.ErrCorruptHistory, h.path, err)
	}

	return ids, nil
}

// Save rewrites the whole file through a temp file and rename so a crash
// mid-write never leaves a truncated array behind.
func (h *JSONHistory) Save(ctx context.Context, ids []domain.ArticleID) error {
	if ids == nil {
		ids = []domain.ArticleID{}
	}

	payload, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", domain.ErrPersist, err)
	}

	dir := filepath.Dir(h.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(h.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", domain.ErrPersist, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: write: %v", domain.ErrPersist, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: sync: %v", domain.ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close: %v", domain.ErrPersist, err)
	}

	if err := os.Rename(tmpName, h.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: rename: %v", domain.ErrPersist, err)
	}

	return nil
}
