package prog

import (
	"statelin/command"
	"statelin/symbolic"
)

// WellFormed reports whether every handle referenced anywhere in p was
// produced by an earlier invocation in the same program, in generation
// order, and that no parallel thread references a handle minted by
// another thread.
func WellFormed(p Program) bool {
	seen := make(map[symbolic.Handle]bool, p.Len())
	seen[symbolic.Setup] = true
	for _, inv := range p.Sequential {
		if !referencesKnown(inv, seen) {
			return false
		}
		seen[inv.Handle] = true
	}
	base := seen
	for _, thread := range p.Parallel {
		local := make(map[symbolic.Handle]bool, len(base)+len(thread))
		for h := range base {
			local[h] = true
		}
		for _, inv := range thread {
			if !referencesKnown(inv, local) {
				return false
			}
			local[inv.Handle] = true
		}
	}
	return true
}

func referencesKnown(inv Invocation, seen map[symbolic.Handle]bool) bool {
	for _, h := range symbolic.Handles(inv.Args) {
		if !seen[h] {
			return false
		}
	}
	return true
}

// Trajectory replays seq against the model, starting from state, calling
// each invocation's command's precondition and (symbolic) next-state
// callback in turn. It returns the resulting state and true if every
// precondition held and every command name resolved; otherwise it stops
// at the first failure and returns false.
func Trajectory[S any](table *command.Table[S], state S, seq []Invocation) (S, bool) {
	for _, inv := range seq {
		cmd, ok := table.Commands[inv.Command]
		if !ok {
			return state, false
		}
		if !cmd.PreconditionHolds(state, inv.Args) {
			return state, false
		}
		state = cmd.ResolveNextState()(state, inv.Args, symbolic.Symbolic(inv.Handle))
	}
	return state, true
}

// Valid reports whether p is well-formed and whether every precondition
// along its model trajectory holds: the sequential prefix, then each
// parallel thread independently simulated from the shared
// post-sequential state.
func Valid[S any](table *command.Table[S], initial S, p Program) bool {
	if !WellFormed(p) {
		return false
	}
	seqState, ok := Trajectory(table, initial, p.Sequential)
	if !ok {
		return false
	}
	for _, thread := range p.Parallel {
		if _, ok := Trajectory(table, seqState, thread); !ok {
			return false
		}
	}
	return true
}
