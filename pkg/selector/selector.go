// Package selector implements a single-select filter over a list of options.
package selector

import (
	"fmt"
	"sync"
)

// Selector holds at most one selected option out of a fixed list.
// It is safe for concurrent use. Selections and their callbacks are
// serialized, so the last reported value always equals Value. The callback
// must not select on the same Selector.
type Selector struct {
	name     string
	onSelect func(string)

	selectMu sync.Mutex // held across a selection and its callback
	mu       sync.RWMutex
	items    []string
	selected int    // index into items, -1 if none
	value    string // reported value, may be a default with no index
}

// Option configures a Selector.
type Option func(*Selector)

// WithDefault preselects value and reports it at construction.
// The value is shown as the label but no item is marked checked.
func WithDefault(value string) Option {
	return func(s *Selector) {
		s.value = value
	}
}

// New creates a selector named name over items. onSelect may be nil.
func New(name string, items []string, onSelect func(string), opts ...Option) *Selector {
	s := &Selector{
		name:     name,
		onSelect: onSelect,
		items:    append([]string(nil), items...),
		selected: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.value != "" && s.onSelect != nil {
		s.onSelect(s.value)
	}
	return s
}

// Select marks the item at index as the only selection and reports it.
func (s *Selector) Select(index int) error {
	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return fmt.Errorf("selector %s: index %d out of range [0,%d)", s.name, index, len(s.items))
	}
	s.selected = index
	s.value = s.items[index]
	value := s.value
	s.mu.Unlock()

	if s.onSelect != nil {
		s.onSelect(value)
	}
	return nil
}

// SelectValue selects the item equal to value.
func (s *Selector) SelectValue(value string) error {
	s.mu.RLock()
	index := -1
	for i, item := range s.items {
		if item == value {
			index = i
			break
		}
	}
	s.mu.RUnlock()

	if index < 0 {
		return fmt.Errorf("selector %s: unknown option %q", s.name, value)
	}
	return s.Select(index)
}

// SetItems replaces the option list and clears the selection.
func (s *Selector) SetItems(items []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]string(nil), items...)
	s.selected = -1
	s.value = ""
}

// Items returns a copy of the option list.
func (s *Selector) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.items...)
}

// Value returns the selected value, or "" if nothing is selected.
func (s *Selector) Value() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Checked reports whether the item at index is marked selected.
func (s *Selector) Checked(index int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected == index
}

// Label is the text shown on the closed dropdown.
func (s *Selector) Label() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.value != "" {
		return s.value
	}
	return s.name
}
