package command

import (
	"fmt"

	"statelin/symbolic"
)

// Options carries the run/gen/report tunables described below, together
// with their defaults.
type Options struct {
	// Threads is the number of parallel threads to generate (gen.threads).
	Threads int
	// MaxLength bounds the sequential prefix and every parallel thread
	// (gen.max_length).
	MaxLength int
	// MaxSize is passed through to argument sub-generators as the gopter
	// size parameter (gen.max_size).
	MaxSize int
	// NumTests is the number of programs to try (run.num_tests).
	NumTests int
	// MaxTries is the number of attempts before declaring a program
	// flaky-clean (run.max_tries).
	MaxTries int
	// Seed drives both generation and shrinking (run.seed). Zero means
	// "let the driver pick a wall-clock seed."
	Seed int64
	// FirstCase is the report.first_case setting. It is stored here and
	// settable through the driver, but nothing in this module reads it:
	// the first, non-shrunk failure is not printed.
	FirstCase bool
	// StackTrace is the report.stacktrace setting. It is stored here and
	// settable through the driver, but nothing in this module reads it:
	// reports do not include exception stack traces.
	StackTrace bool
}

// DefaultOptions returns the baseline option set. MaxLength is left at 0,
// meaning "harness-driven": package genprogram falls back to the
// GenParameters' MaxSize (or 10, if that is unset too) when it is unset.
func DefaultOptions() Options {
	return Options{
		Threads:   0,
		MaxLength: 0,
		MaxSize:   200,
		NumTests:  200,
		MaxTries:  1,
		Seed:      0,
		FirstCase: false,
	}
}

// A Table is the full description the generator, shrinker, runner and
// linearizer are driven from: the command catalogue plus the model-level
// callbacks below.
type Table[S any] struct {
	Commands map[string]Command[S]

	// InitialState builds the model's starting state. Generation, shrinking
	// and linearization are all pure with respect to the real system, so
	// setup is passed as the same symbolic/concrete dual Result used by
	// NextState: a symbolic handle at generation time, and
	// the concrete value Setup produced once linearization has bindings
	// for it. hasSetup is false, and setup is the zero Result, if the
	// table has no Setup callback at all. Required.
	InitialState func(setup symbolic.Result, hasSetup bool) S

	// Setup performs any real-system setup before a program runs. Its
	// result is bound to symbolic.Setup and passed to InitialState and
	// Cleanup. Optional.
	Setup func() (any, error)

	// Cleanup releases whatever Setup acquired. Called on every exit
	// path, including after an engine-level failure. Optional.
	Cleanup func(setupValue any)

	// GenerateCommand picks the next command name to generate, given the
	// current state. Returning ok=false falls back to uniform choice
	// among commands whose Requires holds. Optional.
	GenerateCommand func(state S) (name string, ok bool)

	// SpecPostcondition is the terminal invariant checked once, after the
	// whole program (sequential prefix plus interleaved parallel suffix)
	// has been walked. A nil SpecPostcondition always holds.
	SpecPostcondition func(state S) bool

	Options Options

	// order records registration order so that command selection and
	// name listing are deterministic; map iteration in Go is not.
	order []string
}

// NewTable validates cmds and returns a Table whose Options are
// DefaultOptions(). It panics on a
// malformed catalogue (duplicate names, or a command missing a required
// callback, or with both/neither of NextState and LegacyNextState set)
// since these are programming errors in the caller's command table, not
// runtime conditions.
func NewTable[S any](initialState func(setup symbolic.Result, hasSetup bool) S, cmds ...Command[S]) *Table[S] {
	table := &Table[S]{
		Commands: make(map[string]Command[S], len(cmds)),
		InitialState: initialState,
		Options:      DefaultOptions(),
	}
	for _, c := range cmds {
		if c.Name == "" {
			panic("command: command with empty Name")
		}
		if _, dup := table.Commands[c.Name]; dup {
			panic(fmt.Sprintf("command: duplicate command name %q", c.Name))
		}
		if c.Args == nil {
			panic(fmt.Sprintf("command: %q missing Args", c.Name))
		}
		if c.Real == nil {
			panic(fmt.Sprintf("command: %q missing Real", c.Name))
		}
		if c.NextState == nil && c.LegacyNextState == nil {
			panic(fmt.Sprintf("command: %q missing NextState (or LegacyNextState)", c.Name))
		}
		if c.NextState != nil && c.LegacyNextState != nil {
			panic(fmt.Sprintf("command: %q sets both NextState and LegacyNextState", c.Name))
		}
		table.Commands[c.Name] = c
		table.order = append(table.order, c.Name)
	}
	return table
}

// Names returns every registered command name in registration order (map
// iteration in Go is randomized, and generation/shrinking must not be).
func (t *Table[S]) Names() []string {
	return t.order
}

// Eligible returns the names of every command whose Requires holds in
// state, in registration order.
func (t *Table[S]) Eligible(state S) []string {
	out := make([]string, 0, len(t.order))
	for _, name := range t.order {
		if t.Commands[name].RequiresHolds(state) {
			out = append(out, name)
		}
	}
	return out
}
