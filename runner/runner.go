// Package runner implements the runner: it executes a
// Program against the real system, substituting symbolic handles with
// concrete results as it goes, and captures a per-step trace. It never
// judges postconditions; that is the linearizer's job (package linearize).
package runner

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"statelin/command"
	"statelin/prog"
	"statelin/symbolic"
)

// ErrPanicInCommand wraps whatever a Command.Real call panicked with, so a
// caller inspecting a caught exception's error chain can tell a genuine
// panic apart from an error a Real implementation returned by other means.
var ErrPanicInCommand = errors.New("runner: command panicked")

// A Step is one executed invocation: its handle, command, the concrete
// (post-substitution) argument tree it ran with, the outcome, and a
// pre-serialized snapshot of that outcome captured immediately after
// execution, before anything else can mutate it.
type Step struct {
	RunID    uuid.UUID
	Handle   symbolic.Handle
	Command  string
	Args     symbolic.Node
	Result   symbolic.Outcome
	Snapshot string
}

// A Trace is the full record of one execution: the sequential steps, the
// steps of each parallel thread, and what Setup produced (if anything).
type Trace struct {
	SetupResult symbolic.Outcome
	HasSetup    bool
	Sequential  []Step
	Parallel    [][]Step
}

// Run executes p against the real system described by table. Cleanup, if
// set, runs on every exit path.
func Run[S any](table *command.Table[S], p prog.Program) Trace {
	bindings := symbolic.NewBindings()
	trace := Trace{}

	var setupValue any
	if table.Setup != nil {
		trace.HasSetup = true
		trace.SetupResult = callSetup(table.Setup)
		bindings.Bind(symbolic.Setup, trace.SetupResult)
		if !trace.SetupResult.IsException() {
			setupValue = trace.SetupResult.Value
		}
	}

	defer func() {
		if table.Cleanup != nil {
			table.Cleanup(setupValue)
		}
	}()

	trace.Sequential = runSequence(table, p.Sequential, bindings)

	if len(p.Parallel) > 0 {
		trace.Parallel = make([][]Step, len(p.Parallel))
		var wg sync.WaitGroup
		for i, thread := range p.Parallel {
			wg.Add(1)
			// Every thread reads its own clone of bindings, seeded from
			// the sequential prefix computed above (a happens-before to
			// every goroutine's start via the sequential wg.Add/go call),
			// and never touches another thread's writes: there is no
			// ordering guarantee between parallel threads.
			local := bindings.Clone()
			go func(i int, thread []prog.Invocation, local symbolic.Bindings) {
				defer wg.Done()
				trace.Parallel[i] = runSequence(table, thread, local)
			}(i, thread, local)
		}
		wg.Wait()
	}

	return trace
}

func callSetup(setup func() (any, error)) symbolic.Outcome {
	v, err := setup()
	if err != nil {
		return symbolic.Caught(err)
	}
	return symbolic.Value(v)
}

func runSequence[S any](table *command.Table[S], invs []prog.Invocation, bindings symbolic.Bindings) []Step {
	steps := make([]Step, 0, len(invs))
	for _, inv := range invs {
		cmd, ok := table.Commands[inv.Command]
		if !ok {
			panic(fmt.Sprintf("runner: unknown command %q", inv.Command))
		}
		concreteArgs, err := symbolic.Substitute(inv.Args, bindings)
		if errors.Is(err, symbolic.ErrBoundToException) {
			// An argument refers to an earlier step that threw: record
			// this step as a caught exception without calling Real.
			outcome := symbolic.Caught(err)
			bindings.Bind(inv.Handle, outcome)
			steps = append(steps, Step{
				RunID:    uuid.New(),
				Handle:   inv.Handle,
				Command:  inv.Command,
				Args:     inv.Args,
				Result:   outcome,
				Snapshot: fmt.Sprintf("%v", err),
			})
			continue
		}
		if err != nil {
			// Well-formedness was supposed to rule this out before the
			// runner ever saw the program: an engine-internal invariant
			// violation, not suppressed.
			panic(fmt.Errorf("runner: substituting args for %s: %w", inv.Handle, err))
		}
		outcome, snapshot := execute(cmd, concreteArgs)
		bindings.Bind(inv.Handle, outcome)
		steps = append(steps, Step{
			RunID:    uuid.New(),
			Handle:   inv.Handle,
			Command:  inv.Command,
			Args:     concreteArgs,
			Result:   outcome,
			Snapshot: snapshot,
		})
	}
	return steps
}

// execute calls cmd.Real, recovering any panic as a caught exception, and
// immediately snapshots the string form of the result so later mutation
// of a returned value can be detected when reporting.
func execute[S any](cmd command.Command[S], args symbolic.Node) (outcome symbolic.Outcome, snapshot string) {
	defer func() {
		if r := recover(); r != nil {
			err := asError(r)
			outcome = symbolic.Caught(err)
			snapshot = fmt.Sprintf("%v", err)
		}
	}()
	v := cmd.Real(args)
	outcome = symbolic.Value(v)
	snapshot = fmt.Sprintf("%v", v)
	return
}

func asError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanicInCommand, err)
	}
	return fmt.Errorf("%w: %v", ErrPanicInCommand, r)
}
