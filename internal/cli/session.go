package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/todomvc/internal/config"
	"github.com/idilsaglam/todomvc/internal/logging"
	"github.com/idilsaglam/todomvc/internal/metrics"
	"github.com/idilsaglam/todomvc/internal/model"
	"github.com/idilsaglam/todomvc/internal/store"
	"github.com/idilsaglam/todomvc/internal/todos"
	"github.com/idilsaglam/todomvc/internal/ui"
)

const settleTimeout = 5 * time.Second

// app carries what every subcommand shares once flags and config are resolved.
type app struct {
	stdout, stderr io.Writer

	configPath string
	cfg        config.Config
	level      slog.Level
	logger     *slog.Logger
}

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"store":        "store.backend",
	"path":         "store.path",
	"log-level":    "log.level",
	"metrics-addr": "metrics.addr",
}

func (a *app) setup(cmd *cobra.Command) error {
	v := config.New(a.configPath)
	flags := cmd.Root().PersistentFlags()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.level, err = logging.ParseLevel(cfg.Log.Level); err != nil {
		return usageError{err.Error()}
	}
	a.logger = logging.New(a.level, a.stderr)

	if err := ui.SetTheme(cfg.UI.Theme); err != nil {
		return err
	}
	return nil
}

// session is one load → dispatch → save cycle against the configured store.
type session struct {
	store   store.Store
	machine *todos.Machine
	loaded  []model.Item
}

func (a *app) open(ctx context.Context, mt *metrics.Metrics) (*session, error) {
	st, err := store.Open(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	items, err := st.Load(ctx)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("load: %w", err)
	}

	filter, err := model.ParseFilter(a.cfg.UI.Filter)
	if err != nil {
		a.logger.Warn("ignoring configured filter", "filter", a.cfg.UI.Filter, "error", err)
		filter = model.FilterAll
	}

	machine := todos.New(items,
		todos.WithLogger(a.logger),
		todos.WithMetrics(mt),
		todos.WithFilter(filter),
	)
	return &session{store: st, machine: machine, loaded: items}, nil
}

// settle folds outstanding actor notifications into the machine.
func (s *session) settle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	if err := s.machine.Settle(ctx); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	return nil
}

func (s *session) save(ctx context.Context) error {
	if err := s.settle(ctx); err != nil {
		return err
	}
	if err := s.store.Save(ctx, s.machine.Snapshot().Items()); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

func (s *session) close() {
	s.machine.Close()
	_ = s.store.Close()
}

// at resolves a 1-based index into the full list.
func (s *session) at(userIndex int) (todos.Todo, error) {
	all := s.machine.Snapshot().Todos
	if userIndex < 1 || userIndex > len(all) {
		return todos.Todo{}, usagef("index out of range: have %d, got %d (run `todo ls` to see valid indexes)", len(all), userIndex)
	}
	return all[userIndex-1], nil
}

// mutate runs fn in a fresh session and saves the result.
func (a *app) mutate(cmd *cobra.Command, fn func(s *session) error) error {
	ctx := cmd.Context()
	s, err := a.open(ctx, nil)
	if err != nil {
		return err
	}
	defer s.close()

	if err := fn(s); err != nil {
		return err
	}
	return s.save(ctx)
}
