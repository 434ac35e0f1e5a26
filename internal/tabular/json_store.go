package tabular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

type sheet struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

type dataset struct {
	Sheets map[string]*sheet `json:"sheets"`
}

// JSONStore is a file-backed Store. The full dataset is held in memory behind
// an RWMutex and rewritten to disk after every mutation via an atomic
// temp-file rename, so a crash mid-write never leaves a torn file behind.
type JSONStore struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

// JSONOption mutates JSON store configuration.
type JSONOption func(*JSONStore)

// NewJSONStore opens the sheet store at path, creating parent directories and
// loading any previously persisted dataset.
func NewJSONStore(path string, opts ...JSONOption) (*JSONStore, error) {
	store := &JSONStore{
		filePath: path,
		data:     dataset{Sheets: make(map[string]*sheet)},
	}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *JSONStore) load() error {
	if s.filePath == "" {
		return fmt.Errorf("datastore path is required")
	}
	if dir := filepath.Dir(s.filePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create datastore directory: %w", err)
		}
	}
	file, err := os.Open(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open datastore: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read datastore: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	var data dataset
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decode datastore: %w", err)
	}
	if data.Sheets == nil {
		data.Sheets = make(map[string]*sheet)
	}
	s.data = data
	return nil
}

func (s *JSONStore) persistLocked() error {
	if s.persistOverride != nil {
		return s.persistOverride(s.data)
	}
	encoded, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode datastore: %w", err)
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o644); err != nil {
		return fmt.Errorf("write datastore: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("replace datastore: %w", err)
	}
	return nil
}

func (s *JSONStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.Sheets == nil {
		return fmt.Errorf("datastore is not initialised")
	}
	return nil
}

func (s *JSONStore) EnsureSheet(ctx context.Context, name string, header []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data.Sheets[name]; exists {
		return nil
	}
	s.data.Sheets[name] = &sheet{Header: append([]string(nil), header...)}
	if err := s.persistLocked(); err != nil {
		delete(s.data.Sheets, name)
		return err
	}
	return nil
}

func (s *JSONStore) Rows(ctx context.Context, name string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, exists := s.data.Sheets[name]
	if !exists {
		return nil, fmt.Errorf("sheet %q: %w", name, ErrSheetNotFound)
	}
	rows := make([][]string, 0, len(sh.Rows)+1)
	rows = append(rows, append([]string(nil), sh.Header...))
	for _, row := range sh.Rows {
		rows = append(rows, append([]string(nil), row...))
	}
	return rows, nil
}

func (s *JSONStore) AppendRow(ctx context.Context, name string, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, exists := s.data.Sheets[name]
	if !exists {
		return fmt.Errorf("sheet %q: %w", name, ErrSheetNotFound)
	}
	sh.Rows = append(sh.Rows, append([]string(nil), row...))
	if err := s.persistLocked(); err != nil {
		sh.Rows = sh.Rows[:len(sh.Rows)-1]
		return err
	}
	return nil
}

func (s *JSONStore) UpdateRow(ctx context.Context, name string, index int, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, exists := s.data.Sheets[name]
	if !exists {
		return fmt.Errorf("sheet %q: %w", name, ErrSheetNotFound)
	}
	pos, err := dataIndex(sh, index)
	if err != nil {
		return err
	}
	previous := sh.Rows[pos]
	sh.Rows[pos] = append([]string(nil), row...)
	if err := s.persistLocked(); err != nil {
		sh.Rows[pos] = previous
		return err
	}
	return nil
}

func (s *JSONStore) DeleteRow(ctx context.Context, name string, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, exists := s.data.Sheets[name]
	if !exists {
		return fmt.Errorf("sheet %q: %w", name, ErrSheetNotFound)
	}
	pos, err := dataIndex(sh, index)
	if err != nil {
		return err
	}
	previous := sh.Rows
	remaining := make([][]string, 0, len(previous)-1)
	remaining = append(remaining, previous[:pos]...)
	remaining = append(remaining, previous[pos+1:]...)
	sh.Rows = remaining
	if err := s.persistLocked(); err != nil {
		sh.Rows = previous
		return err
	}
	return nil
}

// dataIndex translates a 1-based sheet row index into an offset within the
// data row slice, rejecting the header row and out-of-bounds indices.
func dataIndex(sh *sheet, index int) (int, error) {
	if index < 2 || index > len(sh.Rows)+1 {
		return 0, fmt.Errorf("row %d: %w", index, ErrRowOutOfRange)
	}
	return index - 2, nil
}

var _ Store = (*JSONStore)(nil)
