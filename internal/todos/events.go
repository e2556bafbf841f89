package todos

import "github.com/idilsaglam/todomvc/internal/model"

// Event is anything the list coordinator accepts.
type Event interface {
	// Type is the event name used in logs and metrics.
	Type() string
}

// ItemCommit carries authoritative field values for an existing item.
type ItemCommit struct{ Item model.Item }

// ItemDelete removes the item with ID.
type ItemDelete struct{ ID string }

// MarkAllCompleted asks every item actor to become completed.
type MarkAllCompleted struct{}

// MarkAllActive asks every item actor to become active.
type MarkAllActive struct{}

// InputChange replaces the pending input buffer.
type InputChange struct{ Value string }

// InputCommit submits Value as a new item.
type InputCommit struct{ Value string }

// SetFilter selects the visible subset.
type SetFilter struct{ Filter model.Filter }

// ClearCompleted drops every completed item.
type ClearCompleted struct{}

func (ItemCommit) Type() string       { return "ITEM_COMMIT" }
func (ItemDelete) Type() string       { return "ITEM_DELETE" }
func (MarkAllCompleted) Type() string { return "MARK_ALL_COMPLETED" }
func (MarkAllActive) Type() string    { return "MARK_ALL_ACTIVE" }
func (InputChange) Type() string      { return "INPUT_CHANGE" }
func (InputCommit) Type() string      { return "INPUT_COMMIT" }
func (SetFilter) Type() string        { return "SET_FILTER" }
func (ClearCompleted) Type() string   { return "CLEAR_COMPLETED" }
