package ecs

import "slices"

// Query is a conjunction of "has component" and "lacks component" filters.
// Results are owned slices in ascending Entity order, so callers can mutate
// the world while walking them.
type Query struct {
	with    []Table
	without []Table
}

func NewQuery(with ...Table) *Query {
	return &Query{with: with}
}

func (q *Query) With(t ...Table) *Query {
	q.with = append(q.with, t...)
	return q
}

func (q *Query) Without(t ...Table) *Query {
	q.without = append(q.without, t...)
	return q
}

// Collect returns every entity matching the query. A query with no With
// filter matches nothing.
func (q *Query) Collect() []Entity {
	if len(q.with) == 0 {
		return nil
	}
	// Drive from the smallest table.
	driver := q.with[0]
	for _, t := range q.with[1:] {
		if t.Len() < driver.Len() {
			driver = t
		}
	}
	out := make([]Entity, 0, driver.Len())
	for _, e := range driver.Entities() {
		if q.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Matches reports whether e satisfies every filter.
func (q *Query) Matches(e Entity) bool {
	for _, t := range q.with {
		if !t.Has(e) {
			return false
		}
	}
	for _, t := range q.without {
		if t.Has(e) {
			return false
		}
	}
	return true
}

// Each2 iterates, in entity order, over entities that have both A and B.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(Entity, *A, *B)) {
	ids := sa.keys()
	if sb.Len() < sa.Len() {
		ids = sb.keys()
	}
	for _, e := range slices.Clone(ids) {
		a, ok := sa.data[e]
		if !ok {
			continue
		}
		if b, ok := sb.data[e]; ok {
			fn(e, a, b)
		}
	}
}
