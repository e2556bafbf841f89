// Package store persists the todo list between runs.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/idilsaglam/todomvc/internal/config"
	"github.com/idilsaglam/todomvc/internal/model"
	"github.com/idilsaglam/todomvc/internal/store/jsonstore"
	"github.com/idilsaglam/todomvc/internal/store/redisstore"
	"github.com/idilsaglam/todomvc/internal/store/sqlitestore"
)

// Store loads and saves the whole list. Order is significant.
type Store interface {
	Load(ctx context.Context) ([]model.Item, error)
	Save(ctx context.Context, items []model.Item) error
	Close() error
}

// Default file names when store.path is empty, so backends never share a file.
const (
	DefaultJSONPath   = "todos.json"
	DefaultYAMLPath   = "todos.yaml"
	DefaultSQLitePath = "todos.db"
)

// Open returns the backend selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	path := cfg.Store.Path
	orDefault := func(def string) string {
		if path == "" {
			return def
		}
		return path
	}

	switch strings.ToLower(cfg.Store.Backend) {
	case "", "json":
		return jsonstore.New(orDefault(DefaultJSONPath), jsonstore.FormatJSON), nil
	case "yaml", "yml":
		return jsonstore.New(orDefault(DefaultYAMLPath), jsonstore.FormatYAML), nil
	case "file":
		p := orDefault(DefaultJSONPath)
		return jsonstore.New(p, formatFor(p)), nil
	case "sqlite", "sqlite3":
		s, err := sqlitestore.Open(ctx, orDefault(DefaultSQLitePath))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case "redis":
		return redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisstore.WithKey(cfg.Redis.Key),
			redisstore.WithTTL(cfg.Redis.TTL),
		), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func formatFor(path string) jsonstore.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return jsonstore.FormatYAML
	}
	return jsonstore.FormatJSON
}
