package event

// Bus is an append-only event log with independent reader cursors. Every
// reader sees every event published after it subscribed exactly once,
// regardless of how other readers drain. Publishing happens from inside
// command handlers; readers drain later, once per presentation frame.
//
// Single-goroutine access only (simulation loop).
type Bus struct {
	log     []any
	base    uint64 // absolute sequence number of log[0]
	readers []*Reader
}

func NewBus() *Bus {
	return &Bus{log: make([]any, 0, 64)}
}

// Publish appends an event. With no readers attached the event is counted
// but not retained.
func (b *Bus) Publish(ev any) {
	if len(b.readers) == 0 && len(b.log) == 0 {
		b.base++
		return
	}
	b.log = append(b.log, ev)
}

// Emit appends a typed event.
func Emit[T any](b *Bus, ev T) {
	b.Publish(ev)
}

// Subscribe returns a reader positioned at the end of the log.
func (b *Bus) Subscribe() *Reader {
	r := &Reader{bus: b, cursor: b.base + uint64(len(b.log))}
	b.readers = append(b.readers, r)
	return r
}

// Unsubscribe detaches r; its pending events no longer pin the log.
func (b *Bus) Unsubscribe(r *Reader) {
	for i, x := range b.readers {
		if x == r {
			b.readers = append(b.readers[:i], b.readers[i+1:]...)
			break
		}
	}
	r.bus = nil
	b.compact()
}

// Len returns the number of events still retained.
func (b *Bus) Len() int { return len(b.log) }

// compact drops events every reader has consumed.
func (b *Bus) compact() {
	min := b.base + uint64(len(b.log))
	for _, r := range b.readers {
		if r.cursor < min {
			min = r.cursor
		}
	}
	drop := int(min - b.base)
	if drop == 0 {
		return
	}
	n := copy(b.log, b.log[drop:])
	clear(b.log[n:])
	b.log = b.log[:n]
	b.base = min
}

const compactThreshold = 256

// Reader is one subscriber's cursor into a Bus.
type Reader struct {
	bus    *Bus
	cursor uint64
}

// Next returns the next unread event.
func (r *Reader) Next() (any, bool) {
	b := r.bus
	if b == nil {
		return nil, false
	}
	idx := int(r.cursor - b.base)
	if idx >= len(b.log) {
		return nil, false
	}
	ev := b.log[idx]
	r.cursor++
	if idx >= compactThreshold {
		b.compact()
	}
	return ev, true
}

// Pending returns how many events are waiting for r.
func (r *Reader) Pending() int {
	if r.bus == nil {
		return 0
	}
	return len(r.bus.log) - int(r.cursor-r.bus.base)
}

// Drain delivers every unread event to fn and returns how many were
// delivered. Draining an up-to-date reader is a no-op.
func (r *Reader) Drain(fn func(any)) int {
	n := 0
	for {
		ev, ok := r.Next()
		if !ok {
			if r.bus != nil {
				r.bus.compact()
			}
			return n
		}
		fn(ev)
		n++
	}
}

// On adapts a typed handler for use with Drain; other event types are
// ignored.
func On[T any](fn func(T)) func(any) {
	return func(ev any) {
		if t, ok := ev.(T); ok {
			fn(t)
		}
	}
}

// Dispatch fans one event out to several adapters.
func Dispatch(handlers ...func(any)) func(any) {
	return func(ev any) {
		for _, h := range handlers {
			h(ev)
		}
	}
}
