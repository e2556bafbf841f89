package model

import (
	"errors"
	"fmt"
	"strings"
)

// Item is the domain model for a todo entry.
// ID is assigned once at creation and never changes.
type Item struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// Filter selects which items a list view shows.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// Filters lists the known filters in display order.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

var ErrUnknownFilter = errors.New("unknown filter")

// ParseFilter validates s against the known filters. Matching is case-insensitive
// and ignores surrounding whitespace; an empty string means FilterAll.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want all, active or completed)", ErrUnknownFilter, s)
}

// Valid reports whether f is one of the known filters.
func (f Filter) Valid() bool {
	for _, k := range Filters {
		if f == k {
			return true
		}
	}
	return false
}

// Matches reports whether it is visible under f.
// Unknown filters match everything.
func (f Filter) Matches(it Item) bool {
	switch f {
	case FilterActive:
		return !it.Completed
	case FilterCompleted:
		return it.Completed
	default:
		return true
	}
}

// Next cycles all -> active -> completed -> all.
func (f Filter) Next() Filter {
	for i, k := range Filters {
		if f == k {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

func (f Filter) String() string { return string(f) }
