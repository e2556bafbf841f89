package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/idilsaglam/todomvc/internal/model"
)

// File-backed storage. Single file, human-readable, portable.
// No locking; fine for a local single-user CLI.

// Format selects the file encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

const DefaultFileName = "todos.json"

// Store keeps the list in one file.
type Store struct {
	path   string
	format Format
}

// New returns a store for path. An empty path means ./todos.json.
func New(path string, format Format) *Store {
	if path == "" {
		path = DefaultFileName
	}
	return &Store{path: path, format: format}
}


// Load reads the list. A missing file is an empty list.
func (s *Store) Load(_ context.Context) ([]model.Item, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Item{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	items := []model.Item{}
	switch s.format {
	case FormatYAML:
		if err := yaml.Unmarshal(b, &items); err != nil {
			return nil, fmt.Errorf("yaml unmarshal: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &items); err != nil {
			return nil, fmt.Errorf("json unmarshal: %w", err)
		}
	}
	return items, nil
}

// Save replaces the file contents. The write goes through a temp file and a rename.
func (s *Store) Save(_ context.Context, items []model.Item) error {
	if items == nil {
		items = []model.Item{}
	}
	var (
		b   []byte
		err error
	)
	switch s.format {
	case FormatYAML:
		b, err = yaml.Marshal(items)
		if err != nil {
			return fmt.Errorf("yaml marshal: %w", err)
		}
	default:
		b, err = json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }
