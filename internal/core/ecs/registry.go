package ecs

// Registry tracks all component tables by name and supports bulk cleanup on
// despawn.
type Registry struct {
	tables []Table
	byName map[string]Table
}

func NewRegistry() *Registry {
	return &Registry{
		tables: make([]Table, 0, 16),
		byName: make(map[string]Table, 16),
	}
}

// Register adds a table. A second table with the same name replaces the
// first in name lookups but both still take part in RemoveAll.
func (r *Registry) Register(t Table) {
	r.tables = append(r.tables, t)
	r.byName[t.Name()] = t
}

// Lookup returns the table registered under name.
func (r *Registry) Lookup(name string) (Table, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// RemoveAll clears the given entity from every registered table.
func (r *Registry) RemoveAll(e Entity) {
	for _, t := range r.tables {
		t.Remove(e)
	}
}

// HasAny reports whether e holds at least one component.
func (r *Registry) HasAny(e Entity) bool {
	for _, t := range r.tables {
		if t.Has(e) {
			return true
		}
	}
	return false
}
