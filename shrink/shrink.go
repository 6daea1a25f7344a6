// Package shrink implements the program shrinker: given a generated
// Program, it produces smaller well-formed, precondition-respecting
// candidates for the property-testing harness to retry.
//
// gopter's shrinking contract is a flat lazy stream, not a rose tree: a
// gopter.Shrink is func() (interface{}, bool), and a gopter.Shrinker is
// func(interface{}) gopter.Shrink. Calling the same Shrink value again
// yields the next sibling candidate at the same level; descending to a
// smaller level means calling the Shrinker again on whichever candidate the
// caller commits to. This package follows that contract: Shrinker returns a
// fresh, fully-computed one-level Shrink stream for whatever Program value
// it is handed.
//
// Every candidate this package yields has already been checked against
// prog.Valid; ill-formed or precondition-violating candidates are
// discarded before the harness ever sees them.
package shrink

import (
	"github.com/leanovate/gopter"

	"statelin/command"
	"statelin/prog"
	"statelin/symbolic"
)

// Shrinker returns a gopter.Shrinker over programs generated against table.
// argShrinkers maps each invocation's handle to the gopter.Shrinker that
// was attached when its argument tree was first drawn (see
// genprogram.Generated.ArgShrinkers); it stays fixed across shrink levels,
// since it describes how to shrink a value of that argument tree's shape,
// not any particular value.
func Shrinker[S any](table *command.Table[S], argShrinkers map[symbolic.Handle]gopter.Shrinker) gopter.Shrinker {
	initial := initialState(table)
	return func(v interface{}) gopter.Shrink {
		p := v.(prog.Program)
		return sliceShrink(candidatesFor(table, initial, p, argShrinkers))
	}
}

func initialState[S any](table *command.Table[S]) S {
	if table.Setup == nil {
		return table.InitialState(symbolic.Result{}, false)
	}
	return table.InitialState(symbolic.Symbolic(symbolic.Setup), true)
}

// sliceShrink turns a precomputed, ordered slice of candidates into a flat
// gopter.Shrink: each call advances to the next entry, and the stream is
// exhausted (ok == false) once every candidate has been offered.
func sliceShrink(programs []prog.Program) gopter.Shrink {
	i := 0
	return func() (interface{}, bool) {
		if i >= len(programs) {
			return nil, false
		}
		p := programs[i]
		i++
		return p, true
	}
}

// candidatesFor produces every one-step shrink of p that remains
// well-formed and whose model trajectory's preconditions still all hold, in
// a fixed order: drop-one-from-sequential, then drop-one-from-each-thread,
// then move-parallel-into-sequential, then per-argument shrinks.
func candidatesFor[S any](
	table *command.Table[S],
	initial S,
	p prog.Program,
	argShrinkers map[symbolic.Handle]gopter.Shrinker,
) []prog.Program {
	var out []prog.Program

	for i := range p.Sequential {
		c := dropSequential(p, i)
		if prog.Valid(table, initial, c) {
			out = append(out, c)
		}
	}

	for t := range p.Parallel {
		for i := range p.Parallel[t] {
			c := dropParallel(p, t, i)
			if prog.Valid(table, initial, c) {
				out = append(out, c)
			}
		}
	}

	for t := range p.Parallel {
		if len(p.Parallel[t]) == 0 {
			continue
		}
		c := moveFirstToSequential(p, t)
		if prog.Valid(table, initial, c) {
			out = append(out, c)
		}
	}

	out = append(out, argumentCandidates(table, initial, p, argShrinkers)...)

	return out
}

func dropSequential(p prog.Program, i int) prog.Program {
	c := p.Clone()
	c.Sequential = append(append([]prog.Invocation{}, c.Sequential[:i]...), c.Sequential[i+1:]...)
	return c
}

func dropParallel(p prog.Program, t, i int) prog.Program {
	c := p.Clone()
	thread := c.Parallel[t]
	c.Parallel[t] = append(append([]prog.Invocation{}, thread[:i]...), thread[i+1:]...)
	return c
}

// moveFirstToSequential moves the first invocation of thread t to the end
// of the sequential prefix. Handles referenced by that invocation were
// already visible to the sequential prefix (parallel threads may only
// reference sequential-prefix handles), so the move never introduces a
// dangling reference.
func moveFirstToSequential(p prog.Program, t int) prog.Program {
	c := p.Clone()
	moved := c.Parallel[t][0]
	c.Parallel[t] = append([]prog.Invocation{}, c.Parallel[t][1:]...)
	c.Sequential = append(c.Sequential, moved)
	return c
}

// argumentCandidates shrinks one invocation's argument tree at a time: for
// every invocation with an entry in argShrinkers, it calls that Shrinker
// with the invocation's *current* Args value to get a fresh Shrink stream,
// then drains the whole stream, turning each offered value into its own
// candidate program (checked against prog.Valid before being kept).
// genprogram records one shrinker per invocation, keyed by the
// invocation's own handle, and each offered value replaces that
// invocation's whole argument tree; a candidate whose tree references a
// handle not produced earlier is dropped by prog.Valid.
func argumentCandidates[S any](
	table *command.Table[S],
	initial S,
	p prog.Program,
	argShrinkers map[symbolic.Handle]gopter.Shrinker,
) []prog.Program {
	var out []prog.Program
	visit := func(invocations []prog.Invocation, rebuild func([]prog.Invocation) prog.Program) {
		for i, inv := range invocations {
			shrinker, ok := argShrinkers[inv.Handle]
			if !ok || shrinker == nil {
				continue
			}
			stream := shrinker(inv.Args)
			for {
				value, ok := stream()
				if !ok {
					break
				}
				shrunkArgs, ok := value.(symbolic.Node)
				if !ok {
					continue
				}
				replaced := append([]prog.Invocation{}, invocations...)
				replaced[i] = prog.Invocation{Handle: inv.Handle, Command: inv.Command, Args: shrunkArgs}
				c := rebuild(replaced)
				if prog.Valid(table, initial, c) {
					out = append(out, c)
				}
			}
		}
	}

	visit(p.Sequential, func(seq []prog.Invocation) prog.Program {
		c := p.Clone()
		c.Sequential = seq
		return c
	})
	for t := range p.Parallel {
		t := t
		visit(p.Parallel[t], func(threadSeq []prog.Invocation) prog.Program {
			c := p.Clone()
			c.Parallel[t] = threadSeq
			return c
		})
	}

	return out
}
