package command

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testWorld struct {
	trace []string
	value int
}

type push struct{ n int }
type fanOut struct{ depth int }
type unknown struct{}

func TestStepOnEmptyQueue(t *testing.T) {
	s := NewScheduler[*testWorld](zap.NewNop())
	w := &testWorld{}
	require.False(t, s.Step(w))
	require.False(t, s.Step(w))
	require.Zero(t, s.Drain(w))
}

func TestPriorityOrderAndRegistrationTies(t *testing.T) {
	s := NewScheduler[*testWorld](zap.NewNop())
	add := func(name string) func(*push, *testWorld, *Context) Outcome {
		return func(_ *push, w *testWorld, _ *Context) Outcome {
			w.trace = append(w.trace, name)
			return Continue
		}
	}
	Handle(s, 2, add("ally"))
	Handle(s, 0, add("base"))
	Handle(s, 1, add("self-a"))
	Handle(s, 1, add("self-b"))

	w := &testWorld{}
	s.Send(push{})
	require.True(t, s.Step(w))
	require.Equal(t, []string{"base", "self-a", "self-b", "ally"}, w.trace)
}

func TestStopKeepsSentCommands(t *testing.T) {
	s := NewScheduler[*testWorld](zap.NewNop())
	Handle(s, 0, func(c *push, w *testWorld, cx *Context) Outcome {
		w.value += c.n
		if c.n > 0 {
			cx.Send(push{n: c.n - 1})
		}
		return Stop
	})
	Handle(s, 1, func(_ *push, w *testWorld, _ *Context) Outcome {
		w.trace = append(w.trace, "never")
		return Continue
	})

	w := &testWorld{}
	s.Send(push{n: 3})
	require.Equal(t, 4, s.Drain(w))
	require.Equal(t, 6, w.value)
	require.Empty(t, w.trace)
}

func TestAbortDiscardsOwnSendsAndSkipsChain(t *testing.T) {
	s := NewScheduler[*testWorld](zap.NewNop())
	Handle(s, 0, func(c *push, _ *testWorld, cx *Context) Outcome {
		cx.Send(fanOut{})
		if c.n < 0 {
			return Abort
		}
		return Continue
	})
	Handle(s, 1, func(c *push, w *testWorld, _ *Context) Outcome {
		w.value += c.n
		return Continue
	})
	Handle(s, 0, func(_ *fanOut, w *testWorld, _ *Context) Outcome {
		w.trace = append(w.trace, "fan")
		return Continue
	})

	var rejected []string
	s.OnReject(func(cmd any) { rejected = append(rejected, Name(cmd)) })

	w := &testWorld{}
	s.Send(push{n: 5})
	s.Send(push{n: -1})
	s.Drain(w)

	require.Equal(t, 5, w.value)
	require.Equal(t, []string{"fan"}, w.trace)
	require.Equal(t, []string{"push"}, rejected)
}

func TestBreadthFirstCascade(t *testing.T) {
	s := NewScheduler[*testWorld](zap.NewNop())
	Handle(s, 0, func(c *fanOut, w *testWorld, cx *Context) Outcome {
		w.trace = append(w.trace, string(rune('0'+c.depth)))
		if c.depth < 2 {
			cx.Send(fanOut{depth: c.depth + 1})
			cx.Send(fanOut{depth: c.depth + 1})
		}
		return Continue
	})

	w := &testWorld{}
	s.Send(fanOut{})
	require.Equal(t, 7, s.Drain(w))
	// Every depth-1 command runs before any depth-2 command.
	require.Equal(t, []string{"0", "1", "1", "2", "2", "2", "2"}, w.trace)
}

func TestHandlersShareMutableCommand(t *testing.T) {
	s := NewScheduler[*testWorld](zap.NewNop())
	Handle(s, 0, func(c *push, _ *testWorld, _ *Context) Outcome {
		c.n *= 10
		return Continue
	})
	Handle(s, 1, func(c *push, w *testWorld, _ *Context) Outcome {
		w.value = c.n
		return Continue
	})
	w := &testWorld{}
	s.Send(push{n: 4})
	s.Drain(w)
	require.Equal(t, 40, w.value)
}

func TestUnregisteredCommandIsDropped(t *testing.T) {
	s := NewScheduler[*testWorld](zap.NewNop())
	w := &testWorld{}
	s.Send(unknown{})
	require.True(t, s.Step(w))
	require.Zero(t, s.Len())
	require.False(t, s.Step(w))
}

func TestPanickingHandlerAborts(t *testing.T) {
	s := NewScheduler[*testWorld](zap.NewNop())
	Handle(s, 0, func(_ *push, _ *testWorld, _ *Context) Outcome {
		panic("boom")
	})
	Handle(s, 1, func(_ *push, w *testWorld, _ *Context) Outcome {
		w.value++
		return Continue
	})
	rejected := 0
	s.OnReject(func(any) { rejected++ })

	w := &testWorld{}
	s.Send(push{})
	require.NotPanics(t, func() { s.Drain(w) })
	require.Zero(t, w.value)
	require.Equal(t, 1, rejected)
}

func TestLongQueueCompacts(t *testing.T) {
	s := NewScheduler[*testWorld](zap.NewNop())
	Handle(s, 0, func(c *push, w *testWorld, cx *Context) Outcome {
		w.value++
		if c.n > 0 {
			cx.Send(push{n: c.n - 1})
		}
		return Continue
	})
	w := &testWorld{}
	for i := 0; i < 3000; i++ {
		s.Send(push{})
	}
	s.Send(push{n: 2})
	require.Equal(t, 3003, s.Drain(w))
	require.Equal(t, 3003, w.value)
	require.Zero(t, s.Len())
}
