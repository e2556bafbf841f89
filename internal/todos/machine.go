// Package todos implements the list coordinator: a small state machine that owns
// the ordered todo collection, the pending input buffer and the active filter,
// and delegates each item's completed/active state to its own actor.
//
// Events are applied one at a time. Actors report back through Events(); a host
// either folds those into its own loop (the TUI does) or lets Run/Settle do it.
package todos

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/looplab/fsm"

	"github.com/idilsaglam/todomvc/internal/actor"
	"github.com/idilsaglam/todomvc/internal/logging"
	"github.com/idilsaglam/todomvc/internal/metrics"
	"github.com/idilsaglam/todomvc/internal/model"
)

// StateValue names the machine's top-level state.
type StateValue string

const (
	Loading StateValue = "loading"
	Ready   StateValue = "ready"
)

// eventLoaded ends the loading state once every stored item has an actor.
const eventLoaded = "LOADED"

var lifecycleTransitions = fsm.Events{
	{Name: eventLoaded, Src: []string{string(Loading)}, Dst: string(Ready)},
}

const defaultInboxSize = 64

// Todo is an item together with the handle of the actor that owns its status.
type Todo struct {
	model.Item
	Ref actor.Ref `json:"-" yaml:"-"`
}

// State is the coordinator's context.
type State struct {
	Value  StateValue
	Input  string
	Todos  []Todo
	Filter model.Filter
}

// Visible returns the todos matching the active filter, in list order.
func (s State) Visible() []Todo {
	out := make([]Todo, 0, len(s.Todos))
	for _, t := range s.Todos {
		if s.Filter.Matches(t.Item) {
			out = append(out, t)
		}
	}
	return out
}

// Counts returns how many todos are active and completed.
func (s State) Counts() (active, completed int) {
	for _, t := range s.Todos {
		if t.Completed {
			completed++
		} else {
			active++
		}
	}
	return
}

// Items strips actor handles, e.g. for persistence.
func (s State) Items() []model.Item {
	out := make([]model.Item, 0, len(s.Todos))
	for _, t := range s.Todos {
		out = append(out, t.Item)
	}
	return out
}

// Machine is the list coordinator. It is safe for concurrent use; events are serialized.
type Machine struct {
	mu        sync.Mutex
	state     State
	lifecycle *fsm.FSM
	closed    bool

	spawn     actor.Spawner
	newID     func() string
	logger    *slog.Logger
	metrics   *metrics.Metrics
	inboxSize int

	inbox chan Event
	done  chan struct{}
}

// New builds a machine around initial, spawning one actor per item while in the
// loading state, and returns it in the ready state.
func New(initial []model.Item, opts ...Option) *Machine {
	m := &Machine{
		state:     State{Filter: model.FilterAll},
		newID:     newUUID,
		logger:    logging.NewNop(),
		inboxSize: defaultInboxSize,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.spawn == nil {
		m.spawn = actor.NewSpawner(m.logger)
	}
	m.inbox = make(chan Event, m.inboxSize)

	m.enterLoading(initial)
	return m
}

func (m *Machine) enterLoading(initial []model.Item) {
	m.lifecycle = fsm.NewFSM(
		string(Loading),
		lifecycleTransitions,
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.state.Value = StateValue(e.Dst)
			},
			"enter_" + string(Ready): func(_ context.Context, _ *fsm.Event) {
				m.observeItems()
				m.logger.Debug("todos ready", "items", len(m.state.Todos))
			},
		},
	)
	m.state.Value = StateValue(m.lifecycle.Current())
	m.state.Todos = make([]Todo, 0, len(initial))

	seen := make(map[string]bool, len(initial))
	for _, it := range initial {
		if it.ID == "" || seen[it.ID] {
			old := it.ID
			it.ID = m.newID()
			if old != "" {
				m.logger.Warn("duplicate item id replaced", "old_id", old, "new_id", it.ID)
			}
		}
		seen[it.ID] = true
		m.state.Todos = append(m.state.Todos, Todo{Item: it, Ref: m.spawnActor(it)})
	}

	if err := m.lifecycle.Event(context.Background(), eventLoaded); err != nil {
		m.logger.Error("leaving loading state", "error", err)
	}
}

// Send applies ev and reports whether it was accepted. Guarded events that fail
// their guard, events naming an unknown item, and anything sent after Close are ignored.
func (m *Machine) Send(ev Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	accepted := false
	if !m.closed {
		accepted = m.transition(ev)
	}
	m.metrics.ObserveEvent(ev.Type(), accepted)
	if accepted {
		m.observeItems()
	}
	m.logger.Debug("event", "type", ev.Type(), "accepted", accepted)
	return accepted
}

func (m *Machine) transition(ev Event) bool {
	switch e := ev.(type) {
	case ItemCommit:
		for i, t := range m.state.Todos {
			if t.ID == e.Item.ID {
				m.state.Todos[i] = Todo{Item: e.Item, Ref: t.Ref}
				return true
			}
		}
		return false

	case ItemDelete:
		for i, t := range m.state.Todos {
			if t.ID == e.ID {
				m.state.Todos = append(m.state.Todos[:i:i], m.state.Todos[i+1:]...)
				m.stopActor(t.Ref)
				return true
			}
		}
		return false

	case MarkAllCompleted:
		m.broadcast(actor.SetCompleted{})
		return true

	case MarkAllActive:
		m.broadcast(actor.SetActive{})
		return true

	case InputChange:
		m.state.Input = e.Value
		return true

	case InputCommit:
		title := strings.TrimSpace(e.Value)
		if title == "" {
			return false
		}
		it := model.Item{ID: m.newID(), Title: title}
		m.state.Todos = append(m.state.Todos, Todo{Item: it, Ref: m.spawnActor(it)})
		m.state.Input = ""
		return true

	case SetFilter:
		if !e.Filter.Valid() {
			m.logger.Warn("unknown filter, showing every item", "filter", string(e.Filter))
		}
		m.state.Filter = e.Filter
		return true

	case ClearCompleted:
		kept := make([]Todo, 0, len(m.state.Todos))
		for _, t := range m.state.Todos {
			if t.Completed {
				m.stopActor(t.Ref)
				continue
			}
			kept = append(kept, t)
		}
		m.state.Todos = kept
		return true
	}

	m.logger.Warn("unhandled event", "type", ev.Type())
	return false
}

func (m *Machine) broadcast(msg actor.Message) {
	for _, t := range m.state.Todos {
		t.Ref.Send(msg)
	}
}

func (m *Machine) spawnActor(it model.Item) actor.Ref {
	ref := m.spawn(it, parent{m})
	m.metrics.ActorStarted()
	return ref
}

func (m *Machine) stopActor(ref actor.Ref) {
	ref.Stop()
	m.metrics.ActorStopped()
}

func (m *Machine) observeItems() {
	active, completed := m.state.Counts()
	m.metrics.SetItems(active, completed)
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	s.Todos = append([]Todo(nil), m.state.Todos...)
	return s
}

// Events delivers notifications from item actors. Each one should be passed back to Send.
func (m *Machine) Events() <-chan Event {
	return m.inbox
}

// ErrClosed is returned by Fold once the machine has been closed.
var ErrClosed = errors.New("todos: machine closed")

// Fold waits for one actor notification and applies it.
func (m *Machine) Fold(ctx context.Context) (ev Event, accepted bool, err error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case <-m.done:
		return nil, false, ErrClosed
	case ev = <-m.inbox:
		return ev, m.Send(ev), nil
	}
}

// Run folds actor notifications into the machine until ctx is done or the machine is closed.
func (m *Machine) Run(ctx context.Context) error {
	for {
		if _, _, err := m.Fold(ctx); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// Settle waits until every live actor has handled the messages sent to it so far
// and folds the resulting notifications into the machine. The notification
// channel is drained while waiting, so actors blocked on a full channel make progress.
func (m *Machine) Settle(ctx context.Context) error {
	m.mu.Lock()
	refs := make([]actor.Ref, 0, len(m.state.Todos))
	for _, t := range m.state.Todos {
		refs = append(refs, t.Ref)
	}
	m.mu.Unlock()

	flushed := make(chan error, 1)
	go func() {
		for _, ref := range refs {
			if err := ref.Flush(ctx); err != nil {
				flushed <- err
				return
			}
		}
		flushed <- nil
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.inbox:
			m.Send(ev)
		case err := <-flushed:
			if err != nil {
				return err
			}
			m.drain()
			return nil
		}
	}
}

func (m *Machine) drain() {
	for {
		select {
		case ev := <-m.inbox:
			m.Send(ev)
		default:
			return
		}
	}
}

// Close stops every actor. Later events are ignored.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
	for _, t := range m.state.Todos {
		m.stopActor(t.Ref)
	}
}

func (m *Machine) post(ev Event) {
	select {
	case m.inbox <- ev:
	case <-m.done:
	}
}

// parent adapts the machine to actor.Parent.
type parent struct{ m *Machine }

func (p parent) Commit(it model.Item) { p.m.post(ItemCommit{Item: it}) }
func (p parent) Delete(id string)     { p.m.post(ItemDelete{ID: id}) }
