package phase

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/HendryAvila/specgate/internal/specs"
)

const guardEntry = "entryGuard"

// machineContext carries the entry guard of one attempt.
type machineContext struct {
	Entry func(to specs.Phase) bool
}

// step builds the lifecycle machine in state `from` and sends it the event
// naming `to`. Every phase has a single transition, to the phase after it,
// and entry is consulted only for that one. It returns the phase the machine
// settled in and whether the table had a transition for `to` at all.
func step(from, to specs.Phase, entry func(specs.Phase) bool) (specs.Phase, bool, error) {
	reachable := false
	builder := statekit.NewMachine[machineContext]("phase-machine").
		WithInitial(statekit.StateID(from)).
		WithContext(machineContext{Entry: entry}).
		WithGuard(guardEntry, func(ctx machineContext, e statekit.Event) bool {
			reachable = true
			return ctx.Entry(specs.Phase(e.Type))
		})

	last := len(specs.PhaseOrder) - 1
	for i, p := range specs.PhaseOrder[:last] {
		next := specs.PhaseOrder[i+1]
		builder.State(statekit.StateID(p)).
			On(statekit.EventType(next)).Target(statekit.StateID(next)).Guard(guardEntry).
			Done()
	}
	builder.State(statekit.StateID(specs.PhaseOrder[last])).Done()

	machine, err := builder.Build()
	if err != nil {
		return "", false, fmt.Errorf("failed to build phase machine: %w", err)
	}
	interp := statekit.NewInterpreter(machine)
	interp.Start()
	interp.Send(statekit.Event{Type: statekit.EventType(to)})
	return specs.Phase(interp.State().Value), reachable, nil
}
