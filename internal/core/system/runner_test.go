package system

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	phase Phase
	name  string
	out   *[]string
}

func (r recorder) Phase() Phase { return r.phase }
func (r recorder) Update()      { *r.out = append(*r.out, r.name) }

func TestRunnerOrdersByPhase(t *testing.T) {
	var out []string
	r := NewRunner()
	r.Register(recorder{PhaseAdvance, "advance", &out})
	r.Register(recorder{PhaseSettle, "settle-a", &out})
	r.Register(recorder{PhaseUpdate, "update", &out})
	r.Register(recorder{PhaseSettle, "settle-b", &out})

	r.Tick()
	require.Equal(t, []string{"settle-a", "settle-b", "update", "advance"}, out)

	out = out[:0]
	r.TickPhase(PhaseSettle)
	require.Equal(t, []string{"settle-a", "settle-b"}, out)
}
