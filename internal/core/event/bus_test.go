package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(r *Reader) []any {
	var out []any
	r.Drain(func(ev any) { out = append(out, ev) })
	return out
}

func TestEveryReaderSeesEveryEvent(t *testing.T) {
	b := NewBus()
	r1 := b.Subscribe()
	r2 := b.Subscribe()

	Emit(b, UnitKilled{})
	Emit(b, FoodChanged{Delta: 1, Total: 4})

	require.Len(t, collect(r1), 2)
	Emit(b, UnitRemoved{})
	require.Len(t, collect(r1), 1)

	// r2 drains late and still sees all three, in order.
	got := collect(r2)
	require.Equal(t, []any{UnitKilled{}, FoodChanged{Delta: 1, Total: 4}, UnitRemoved{}}, got)
	require.Zero(t, b.Len())
}

func TestDrainIsIdempotent(t *testing.T) {
	b := NewBus()
	r := b.Subscribe()
	require.Zero(t, r.Drain(func(any) { t.Fatal("unexpected event") }))

	b.Publish(UnitKilled{})
	require.Equal(t, 1, r.Drain(func(any) {}))
	require.Zero(t, r.Drain(func(any) { t.Fatal("event delivered twice") }))
	require.Zero(t, r.Pending())
}

func TestLateSubscriberStartsAtEnd(t *testing.T) {
	b := NewBus()
	early := b.Subscribe()
	b.Publish(UnitKilled{})

	late := b.Subscribe()
	require.Zero(t, late.Pending())
	require.Equal(t, 1, early.Pending())

	b.Publish(UnitRemoved{})
	require.Equal(t, []any{UnitRemoved{}}, collect(late))
	require.Equal(t, 2, early.Pending())
}

func TestUnsubscribeReleasesLog(t *testing.T) {
	b := NewBus()
	fast := b.Subscribe()
	slow := b.Subscribe()
	for i := 0; i < 10; i++ {
		b.Publish(i)
	}
	collect(fast)
	require.Equal(t, 10, b.Len())

	b.Unsubscribe(slow)
	require.Zero(t, b.Len())
	_, ok := slow.Next()
	require.False(t, ok)
}

func TestLargeBacklogCompacts(t *testing.T) {
	b := NewBus()
	r := b.Subscribe()
	for i := 0; i < 1000; i++ {
		b.Publish(i)
	}
	last := -1
	r.Drain(func(ev any) {
		require.Equal(t, last+1, ev.(int))
		last = ev.(int)
	})
	require.Equal(t, 999, last)
	require.Zero(t, b.Len())
}

func TestTypedHandlers(t *testing.T) {
	b := NewBus()
	r := b.Subscribe()
	Emit(b, FoodChanged{Delta: 2})
	Emit(b, UnitKilled{})
	Emit(b, FoodChanged{Delta: -1})

	var food, kills int
	r.Drain(Dispatch(
		On(func(ev FoodChanged) { food += ev.Delta }),
		On(func(UnitKilled) { kills++ }),
	))
	require.Equal(t, 1, food)
	require.Equal(t, 1, kills)
}
