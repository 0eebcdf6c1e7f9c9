package system

// Phase defines execution ordering within a single simulation tick.
type Phase int

const (
	PhaseSettle  Phase = iota // 0: drain commands, sweep killed units
	PhaseInput                // 1: translate queued input events into commands
	PhaseUpdate               // 2: one battle action (fight-start trigger or attack)
	PhaseResolve              // 3: drain what the action produced
	PhaseAdvance              // 4: wave / mode transitions on settled state
)

// System is the interface every battle system implements. Turn-stepped:
// systems receive no frame delta.
type System interface {
	Phase() Phase
	Update()
}
