package todos

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/idilsaglam/todomvc/internal/actor"
	"github.com/idilsaglam/todomvc/internal/metrics"
	"github.com/idilsaglam/todomvc/internal/model"
)

// Option configures a Machine.
type Option func(*Machine)

// WithSpawner replaces the actor factory. Defaults to actor.NewSpawner with the machine's logger.
func WithSpawner(spawn actor.Spawner) Option {
	return func(m *Machine) {
		m.spawn = spawn
	}
}

// WithIDFunc replaces the identifier generator. Defaults to random UUIDs.
func WithIDFunc(fn func() string) Option {
	return func(m *Machine) {
		m.newID = fn
	}
}

// WithLogger configures a logger for transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithMetrics records events and actor lifecycles.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Machine) {
		m.metrics = mt
	}
}

// WithFilter sets the filter the machine starts with.
func WithFilter(f model.Filter) Option {
	return func(m *Machine) {
		m.state.Filter = f
	}
}

// WithInboxSize sets the buffer of the actor notification channel.
func WithInboxSize(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.inboxSize = n
		}
	}
}

func newUUID() string { return uuid.NewString() }
