// Package actor runs one goroutine per todo item. Each actor owns the item's
// completed/active state, accepts messages through a non-blocking mailbox and
// reports every state change back to its parent.
package actor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/looplab/fsm"

	"github.com/idilsaglam/todomvc/internal/logging"
	"github.com/idilsaglam/todomvc/internal/model"
)

// Message is anything an item actor accepts.
type Message interface{ message() }

type (
	// SetCompleted moves an active item to completed.
	SetCompleted struct{}
	// SetActive moves a completed item back to active.
	SetActive struct{}
	// Toggle flips the completed flag.
	Toggle struct{}
	// Rename replaces the title. A blank title asks the parent to delete the item.
	Rename struct{ Title string }
	// Destroy asks the parent to delete the item.
	Destroy struct{}

	flush struct{ done chan struct{} }
)

func (SetCompleted) message() {}
func (SetActive) message()    {}
func (Toggle) message()       {}
func (Rename) message()       {}
func (Destroy) message()      {}
func (flush) message()        {}

// Parent receives notifications from an actor. Calls happen on the actor's goroutine.
type Parent interface {
	Commit(item model.Item)
	Delete(id string)
}

// Ref is the handle a coordinator keeps for a spawned actor.
type Ref interface {
	ID() string
	// Send enqueues msg and returns immediately.
	Send(msg Message)
	// Flush returns once every message sent before it has been handled,
	// or the actor stopped, or ctx is done.
	Flush(ctx context.Context) error
	// Stop terminates the actor. Safe to call more than once.
	Stop()
}

// Spawner starts an actor for item that reports to parent.
type Spawner func(item model.Item, parent Parent) Ref

// NewSpawner returns a Spawner whose actors log through logger.
func NewSpawner(logger *slog.Logger) Spawner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(item model.Item, parent Parent) Ref {
		return spawn(item, parent, logger)
	}
}

// Status states and the events that move between them.
const (
	statusActive    = "active"
	statusCompleted = "completed"

	eventSetCompleted = "SET_COMPLETED"
	eventSetActive    = "SET_ACTIVE"
	eventToggle       = "TOGGLE"
)

// statusTransitions is the item status machine. Setting the state an item is
// already in is a NoTransitionError and commits nothing.
var statusTransitions = fsm.Events{
	{Name: eventSetCompleted, Src: []string{statusActive, statusCompleted}, Dst: statusCompleted},
	{Name: eventSetActive, Src: []string{statusActive, statusCompleted}, Dst: statusActive},
	{Name: eventToggle, Src: []string{statusActive}, Dst: statusCompleted},
	{Name: eventToggle, Src: []string{statusCompleted}, Dst: statusActive},
}

func statusOf(item model.Item) string {
	if item.Completed {
		return statusCompleted
	}
	return statusActive
}

// Item is the goroutine-backed actor for one todo entry.
type Item struct {
	id     string
	parent Parent
	box    *mailbox
	logger *slog.Logger

	stopOnce sync.Once
	done     chan struct{}

	// owned by run
	state  model.Item
	status *fsm.FSM
}

func spawn(item model.Item, parent Parent, logger *slog.Logger) *Item {
	a := newItem(item, parent, logger)
	go a.run()
	return a
}

func newItem(item model.Item, parent Parent, logger *slog.Logger) *Item {
	a := &Item{
		id:     item.ID,
		parent: parent,
		box:    newMailbox(),
		logger: logger.With("item_id", item.ID),
		done:   make(chan struct{}),
		state:  item,
	}
	a.status = fsm.NewFSM(
		statusOf(item),
		statusTransitions,
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				a.state.Completed = e.Dst == statusCompleted
				a.commit()
			},
		},
	)
	return a
}

func (a *Item) ID() string { return a.id }

func (a *Item) Send(msg Message) {
	select {
	case <-a.done:
		a.logger.Debug("message to stopped actor dropped", "msg", msgName(msg))
		return
	default:
	}
	a.box.put(msg)
}

func (a *Item) Flush(ctx context.Context) error {
	f := flush{done: make(chan struct{})}
	a.Send(f)
	select {
	case <-f.done:
		return nil
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Item) Stop() {
	a.stopOnce.Do(func() {
		close(a.done)
		a.logger.Debug("actor stopped")
	})
}

func (a *Item) run() {
	for {
		select {
		case <-a.done:
			return
		case <-a.box.ready:
			for _, msg := range a.box.take() {
				select {
				case <-a.done:
					return
				default:
				}
				a.handle(msg)
			}
		}
	}
}

func (a *Item) handle(msg Message) {
	switch m := msg.(type) {
	case SetCompleted:
		a.fire(eventSetCompleted)
	case SetActive:
		a.fire(eventSetActive)
	case Toggle:
		a.fire(eventToggle)
	case Rename:
		title := strings.TrimSpace(m.Title)
		switch {
		case title == "":
			a.deleteSelf()
		case title != a.state.Title:
			a.state.Title = title
			a.commit()
		}
	case Destroy:
		a.deleteSelf()
	case flush:
		close(m.done)
	}
}

// fire drives the status machine; the enter_state callback commits.
func (a *Item) fire(event string) {
	err := a.status.Event(context.Background(), event)
	var same fsm.NoTransitionError
	if err != nil && !errors.As(err, &same) {
		a.logger.Warn("status transition rejected", "event", event, "status", a.status.Current(), "error", err)
	}
}

func (a *Item) stopped() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

func (a *Item) commit() {
	if a.stopped() {
		return
	}
	a.logger.Debug("commit", "title", a.state.Title, "completed", a.state.Completed)
	a.parent.Commit(a.state)
}

func (a *Item) deleteSelf() {
	if a.stopped() {
		return
	}
	a.parent.Delete(a.id)
}

func msgName(msg Message) string {
	switch msg.(type) {
	case SetCompleted:
		return eventSetCompleted
	case SetActive:
		return eventSetActive
	case Toggle:
		return eventToggle
	case Rename:
		return "RENAME"
	case Destroy:
		return "DESTROY"
	case flush:
		return "FLUSH"
	}
	return "UNKNOWN"
}
