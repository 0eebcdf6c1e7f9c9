package ecs

// World is the top-level ECS container. It owns the entity pool and the
// table registry. Component stores are created through Register so that
// Despawn reaches them.
type World struct {
	pool     *Pool
	registry *Registry
}

func NewWorld() *World {
	return &World{
		pool:     NewPool(),
		registry: NewRegistry(),
	}
}

func (w *World) Pool() *Pool         { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

// Spawn allocates an identifier with no components.
func (w *World) Spawn() Entity {
	return w.pool.Spawn()
}

func (w *World) Alive(e Entity) bool {
	return w.pool.Alive(e)
}

// Despawn removes every component of e and invalidates the identifier.
func (w *World) Despawn(e Entity) {
	if !w.pool.Alive(e) {
		return
	}
	w.registry.RemoveAll(e)
	w.pool.Despawn(e)
}

// Register creates a named store attached to w.
func Register[T any](w *World, name string) *Store[T] {
	s := NewStore[T](name)
	w.registry.Register(s)
	return s
}

// QueryByName builds a query from table names. Unknown names in with make the
// query empty; unknown names in without are ignored.
func (w *World) QueryByName(with, without []string) []Entity {
	q := NewQuery()
	for _, n := range with {
		t, ok := w.registry.Lookup(n)
		if !ok {
			return nil
		}
		q.With(t)
	}
	for _, n := range without {
		if t, ok := w.registry.Lookup(n); ok {
			q.Without(t)
		}
	}
	return q.Collect()
}
