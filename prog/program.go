// Package prog defines the Program data model shared by the generator,
// shrinker, runner and linearizer: a sequential prefix and
// zero or more parallel threads of Invocations, plus the well-formedness
// and precondition checks every one of those components relies on.
package prog

import "statelin/symbolic"

// An Invocation is one command call: the handle that will name its
// result, the command's name, and its fully-realized argument tree.
type Invocation struct {
	Handle  symbolic.Handle
	Command string
	Args    symbolic.Node
}

// A Program is a sequential prefix followed by zero or more independent
// parallel threads. Every handle across every thread is unique and
// numbered in generation order.
type Program struct {
	Sequential []Invocation
	Parallel   [][]Invocation
}

// Len returns the total number of invocations in the program.
func (p Program) Len() int {
	n := len(p.Sequential)
	for _, thread := range p.Parallel {
		n += len(thread)
	}
	return n
}

// IsSequential reports whether the program has no parallel threads.
func (p Program) IsSequential() bool {
	return len(p.Parallel) == 0
}

// Clone returns a deep-enough copy of p for shrink candidates to mutate
// without aliasing the original slices.
func (p Program) Clone() Program {
	seq := make([]Invocation, len(p.Sequential))
	copy(seq, p.Sequential)
	threads := make([][]Invocation, len(p.Parallel))
	for i, t := range p.Parallel {
		threads[i] = make([]Invocation, len(t))
		copy(threads[i], t)
	}
	return Program{Sequential: seq, Parallel: threads}
}
