package command

import (
	"fmt"
	"reflect"
	"sort"

	"go.uber.org/zap"
)

// Outcome is what a handler tells the scheduler after it runs.
type Outcome int

const (
	// Continue runs the next handler in the chain.
	Continue Outcome = iota
	// Stop ends the chain and keeps everything done so far, including the
	// commands this handler sent.
	Stop
	// Abort ends the chain and discards the commands this handler sent.
	// Handlers must abort before mutating the world.
	Abort
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "Continue"
	case Stop:
		return "Stop"
	case Abort:
		return "Abort"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Context is handed to every handler. Sending another command is its only
// mutation surface besides the world itself. Sent commands join the back of
// the queue once the current chain finishes.
type Context struct {
	pending []any
}

// Send queues cmd behind everything already pending. cmd must be a value,
// not a pointer; handlers are keyed by the value type.
func (cx *Context) Send(cmd any) {
	cx.pending = append(cx.pending, cmd)
}

// Pending returns the number of commands sent so far in this chain.
func (cx *Context) Pending() int { return len(cx.pending) }

type handlerFunc[W any] func(cmd any, w W, cx *Context) Outcome

type handlerEntry[W any] struct {
	priority int
	fn       handlerFunc[W]
}

// Scheduler is a FIFO of type-erased commands, each processed by an ordered
// chain of handlers registered for its concrete type. Cascades resolve
// breadth-first: commands sent while handling one command run after every
// command already queued.
//
// Single-goroutine access only.
type Scheduler[W any] struct {
	queue    []any
	head     int
	handlers map[reflect.Type][]handlerEntry[W]
	onReject []func(cmd any)
	log      *zap.Logger
}

func NewScheduler[W any](log *zap.Logger) *Scheduler[W] {
	return &Scheduler[W]{
		queue:    make([]any, 0, 64),
		handlers: make(map[reflect.Type][]handlerEntry[W]),
		log:      log,
	}
}

// Handle registers fn for commands of type C. Lower priorities run first;
// equal priorities run in registration order.
func Handle[C any, W any](s *Scheduler[W], priority int, fn func(cmd *C, w W, cx *Context) Outcome) {
	t := reflect.TypeOf((*C)(nil)).Elem()
	chain := append(s.handlers[t], handlerEntry[W]{
		priority: priority,
		fn: func(cmd any, w W, cx *Context) Outcome {
			return fn(cmd.(*C), w, cx)
		},
	})
	sort.SliceStable(chain, func(i, j int) bool {
		return chain[i].priority < chain[j].priority
	})
	s.handlers[t] = chain
}

// OnReject registers a hook called with every command whose chain aborted.
func (s *Scheduler[W]) OnReject(fn func(cmd any)) {
	s.onReject = append(s.onReject, fn)
}

// Send queues cmd from outside any handler.
func (s *Scheduler[W]) Send(cmd any) {
	s.queue = append(s.queue, cmd)
}

// Len returns the number of queued commands.
func (s *Scheduler[W]) Len() int {
	return len(s.queue) - s.head
}

// Step pops one command and runs its handler chain. Commands with no
// registered handler are dropped. Returns false only when the queue was
// empty.
func (s *Scheduler[W]) Step(w W) bool {
	cmd, ok := s.pop()
	if !ok {
		return false
	}
	t := reflect.TypeOf(cmd)
	chain := s.handlers[t]
	if len(chain) == 0 {
		s.log.Debug("no handler for command", zap.String("command", Name(cmd)))
		return true
	}

	// Handlers share one mutable copy of the command.
	boxed := reflect.New(t)
	boxed.Elem().Set(reflect.ValueOf(cmd))
	ptr := boxed.Interface()

	cx := &Context{}
	for _, h := range chain {
		mark := len(cx.pending)
		out := s.safeCall(h.fn, ptr, w, cx)
		if out == Continue {
			continue
		}
		if out == Abort {
			cx.pending = cx.pending[:mark]
			s.reject(cmd)
		}
		break
	}
	s.queue = append(s.queue, cx.pending...)
	return true
}

// Drain steps until the queue is empty and returns the number of commands
// processed.
func (s *Scheduler[W]) Drain(w W) int {
	n := 0
	for s.Step(w) {
		n++
	}
	return n
}

func (s *Scheduler[W]) pop() (any, bool) {
	if s.head >= len(s.queue) {
		if s.head > 0 {
			clear(s.queue)
			s.queue = s.queue[:0]
			s.head = 0
		}
		return nil, false
	}
	cmd := s.queue[s.head]
	s.queue[s.head] = nil
	s.head++
	if s.head >= 1024 && s.head*2 >= len(s.queue) {
		n := copy(s.queue, s.queue[s.head:])
		s.queue = s.queue[:n]
		s.head = 0
	}
	return cmd, true
}

func (s *Scheduler[W]) reject(cmd any) {
	s.log.Debug("command rejected", zap.String("command", Name(cmd)))
	for _, fn := range s.onReject {
		fn(cmd)
	}
}

// safeCall runs a handler with panic recovery so a single bad handler cannot
// take down the simulation loop. A panic counts as Abort.
func (s *Scheduler[W]) safeCall(fn handlerFunc[W], cmd any, w W, cx *Context) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("command handler panic recovered",
				zap.String("command", Name(cmd)),
				zap.Any("panic", rec),
			)
			out = Abort
		}
	}()
	return fn(cmd, w, cx)
}

// Name returns the bare type name of a command value or pointer.
func Name(cmd any) string {
	t := reflect.TypeOf(cmd)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
