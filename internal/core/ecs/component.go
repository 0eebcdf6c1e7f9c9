package ecs

import "slices"

// Table is implemented by all component stores so the Registry can
// bulk-remove an entity's data and answer has/lacks queries by name.
type Table interface {
	Name() string
	Has(e Entity) bool
	Remove(e Entity)
	Len() int
	Entities() []Entity
}

// Store is a sparse typed component table. Values are held by pointer so
// Get can hand out a mutable reference without a second lookup.
// Iteration is always in ascending Entity order.
type Store[T any] struct {
	name   string
	data   map[Entity]*T
	sorted []Entity
	dirty  bool
}

func NewStore[T any](name string) *Store[T] {
	return &Store[T]{
		name: name,
		data: make(map[Entity]*T, 64),
	}
}

func (s *Store[T]) Name() string { return s.name }

// Insert sets the component for e, replacing any previous value.
func (s *Store[T]) Insert(e Entity, v T) {
	if _, ok := s.data[e]; !ok {
		s.dirty = true
	}
	s.data[e] = &v
}

// Get returns a mutable reference to e's component.
func (s *Store[T]) Get(e Entity) (*T, bool) {
	c, ok := s.data[e]
	return c, ok
}

// Value returns a copy of e's component.
func (s *Store[T]) Value(e Entity) (T, bool) {
	if c, ok := s.data[e]; ok {
		return *c, true
	}
	var zero T
	return zero, false
}

func (s *Store[T]) Remove(e Entity) {
	if _, ok := s.data[e]; ok {
		delete(s.data, e)
		s.dirty = true
	}
}

func (s *Store[T]) Has(e Entity) bool {
	_, ok := s.data[e]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

// Entities returns a fresh slice of every entity holding this component,
// sorted by identifier.
func (s *Store[T]) Entities() []Entity {
	return slices.Clone(s.keys())
}

// Each calls fn for every entry in entity order. fn must not insert into or
// remove from s; collect first, then mutate.
func (s *Store[T]) Each(fn func(Entity, *T)) {
	for _, e := range s.keys() {
		fn(e, s.data[e])
	}
}

func (s *Store[T]) keys() []Entity {
	if s.dirty || s.sorted == nil {
		s.sorted = s.sorted[:0]
		for e := range s.data {
			s.sorted = append(s.sorted, e)
		}
		slices.Sort(s.sorted)
		s.dirty = false
	}
	return s.sorted
}
