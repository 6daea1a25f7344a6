// Package linearize implements the linearizability checker: given a
// program's captured execution trace, it searches every valid interleaving
// of the parallel suffix and accepts the run iff at least one
// interleaving's model trajectory satisfies every postcondition and the
// table's terminal invariant.
//
// A handle's concrete value is fixed once by real execution and does not
// depend on which interleaving is being tried, so unlike generation this
// package never needs to re-substitute argument trees: it replays the
// runner's already-substituted, already-concrete Step.Args in whatever
// order the interleaving under test proposes, and only the sequence in
// which those (args, result) pairs are folded through the model varies.
package linearize

import (
	"errors"

	"statelin/command"
	"statelin/runner"
	"statelin/symbolic"
)

// ErrNoInterleaving names the case where no interleaving of the parallel
// suffix satisfies every postcondition and the terminal invariant. Check
// reports that case as (false, nil); it does not return this error.
var ErrNoInterleaving = errors.New("linearize: no interleaving satisfies the model")

// maxThreads bounds how many parallel threads this package will attempt to
// interleave, since the number of candidate orderings grows combinatorially
// with thread count.
const maxThreads = 4

// Check judges trace against table's model. It returns true iff at least
// one valid interleaving of trace.Parallel, appended after
// trace.Sequential, satisfies every command's RealPostcondition and the
// table's SpecPostcondition.
func Check[S any](table *command.Table[S], trace runner.Trace) (bool, error) {
	if trace.HasSetup && trace.SetupResult.IsException() {
		return false, nil
	}
	for _, s := range trace.Sequential {
		if s.Result.IsException() {
			// No interleaving can be valid once the sequential prefix
			// itself threw.
			return false, nil
		}
	}
	if len(trace.Parallel) > maxThreads {
		return false, errors.New("linearize: too many parallel threads to enumerate")
	}

	state, ok := initialState(table, trace)
	if !ok {
		return false, nil
	}

	state, ok = fold(table, state, trace.Sequential)
	if !ok {
		return false, nil
	}

	if len(trace.Parallel) == 0 {
		return specHolds(table, state), nil
	}

	for _, interleaving := range interleavings(trace.Parallel) {
		if acceptsInterleaving(table, state, interleaving) {
			return true, nil
		}
	}
	return false, nil
}

func initialState[S any](table *command.Table[S], trace runner.Trace) (S, bool) {
	if !trace.HasSetup {
		return table.InitialState(symbolic.Result{}, false), true
	}
	if trace.SetupResult.IsException() {
		var zero S
		return zero, false
	}
	return table.InitialState(symbolic.Concrete(trace.SetupResult.Value), true), true
}

// fold walks steps in order, advancing state through each command's
// NextState and checking its RealPostcondition. It stops at the first
// caught exception or postcondition failure.
func fold[S any](table *command.Table[S], state S, steps []runner.Step) (S, bool) {
	for _, s := range steps {
		if s.Result.IsException() {
			return state, false
		}
		cmd, ok := table.Commands[s.Command]
		if !ok {
			return state, false
		}
		next := cmd.ResolveNextState()(state, s.Args, symbolic.Concrete(s.Result.Value))
		if !cmd.PostconditionHolds(state, next, s.Args, s.Result.Value) {
			return state, false
		}
		state = next
	}
	return state, true
}

func acceptsInterleaving[S any](table *command.Table[S], state S, order []runner.Step) bool {
	state, ok := fold(table, state, order)
	if !ok {
		return false
	}
	return specHolds(table, state)
}

func specHolds[S any](table *command.Table[S], state S) bool {
	if table.SpecPostcondition == nil {
		return true
	}
	return table.SpecPostcondition(state)
}

// interleavings enumerates every total order over threads' steps that
// respects each thread's own internal order, via a deterministic
// backtracking walk over remaining per-thread heads. The same threads
// always produce interleavings in the same sequence, which is what makes
// shrinking reproducible under a fixed seed.
func interleavings(threads [][]runner.Step) [][]runner.Step {
	heads := make([]int, len(threads))
	var results [][]runner.Step
	var walk func(current []runner.Step)
	walk = func(current []runner.Step) {
		done := true
		for i := range threads {
			if heads[i] < len(threads[i]) {
				done = false
				break
			}
		}
		if done {
			out := make([]runner.Step, len(current))
			copy(out, current)
			results = append(results, out)
			return
		}
		for i := range threads {
			if heads[i] >= len(threads[i]) {
				continue
			}
			step := threads[i][heads[i]]
			heads[i]++
			walk(append(current, step))
			heads[i]--
		}
	}
	walk(nil)
	return results
}
