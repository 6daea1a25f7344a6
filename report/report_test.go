package report_test

import (
	"strings"
	"testing"

	"github.com/anishathalye/porcupine"

	"statelin/argspec"
	"statelin/command"
	"statelin/prog"
	"statelin/report"
	"statelin/runner"
	"statelin/symbolic"
)

type counterState struct {
	n int
}

func counterTable() *command.Table[counterState] {
	return command.NewTable(
		func(symbolic.Result, bool) counterState { return counterState{} },
		command.Command[counterState]{
			Name: "inc",
			Args: func(counterState) argspec.Spec { return argspec.Tuple{} },
			NextState: func(s counterState, _ symbolic.Node, _ symbolic.Result) counterState {
				return counterState{n: s.n + 1}
			},
			Real:              func(symbolic.Node) any { return nil },
			RealPostcondition: func(prev, next counterState, _ symbolic.Node, _ any) bool { return true },
		},
	)
}

func step(seq int) runner.Step {
	return runner.Step{
		Handle:  symbolic.NewHandle(seq),
		Command: "inc",
		Args: symbolic.Tuple{Elems: []symbolic.Node{
			symbolic.Literal{Value: seq},
		}},
		Result:   symbolic.Value(seq),
		Snapshot: "",
	}
}

func TestFormatProgramIncludesEachStep(t *testing.T) {
	trace := runner.Trace{
		Sequential: []runner.Step{step(1)},
		Parallel: [][]runner.Step{
			{step(2)},
			{step(3)},
		},
	}
	out := report.FormatProgram(trace)

	if !strings.Contains(out, "inc") {
		t.Fatalf("expected the report to mention the \"inc\" command, got:\n%s", out)
	}
	if !strings.Contains(out, "thread A") || !strings.Contains(out, "thread B") {
		t.Fatalf("expected labeled thread A and B subtrees, got:\n%s", out)
	}
	if strings.Count(out, "#<") != 3 {
		t.Fatalf("expected 3 handle references in the report, got:\n%s", out)
	}
}

func TestFormatProgramFlagsMutatedValue(t *testing.T) {
	s := step(1)
	s.Snapshot = "1"
	s.Result = symbolic.Value(&struct{ v int }{v: 2})
	out := report.FormatProgram(runner.Trace{Sequential: []runner.Step{s}})
	if !strings.Contains(out, "mutated after capture") {
		t.Fatalf("expected a mutation warning when the live value's string form differs from the snapshot, got:\n%s", out)
	}
}

func TestFormatSummaryReportsThreadCount(t *testing.T) {
	p := prog.Program{
		Sequential: []prog.Invocation{{}},
		Parallel:   [][]prog.Invocation{{{}}, {{}}},
	}
	out := report.FormatSummary(p, true)
	if !strings.Contains(out, "3 thread(s)") {
		t.Fatalf("expected 1 sequential + 2 parallel = 3 threads reported, got %q", out)
	}
	if !strings.Contains(out, "accepted") {
		t.Fatalf("expected the accepted verdict, got %q", out)
	}
}

func TestCheckAcceptsSequentialTrace(t *testing.T) {
	table := counterTable()
	trace := runner.Trace{Sequential: []runner.Step{step(1), step(2)}}
	result, _ := report.Check(table, trace)
	if result != porcupine.Ok {
		t.Fatalf("expected porcupine to accept a two-step sequential trace against an always-true postcondition, got %v", result)
	}
}

func stepNamed(seq int, cmd string) runner.Step {
	s := step(seq)
	s.Command = cmd
	return s
}

// TestCheckExploresNonProgramOrderInterleaving builds a parallel trace
// where "thread A" runs incA and "thread B" runs incB, but incA's
// postcondition only holds once incB has already run, i.e. the trace is
// only accepted under the interleaving where B is linearized before A,
// the reverse of the threads' listing order. If porcupine were only ever
// handed the one order the trace happens to list its threads in, it could
// never discover that order and would reject a trace linearize.Check
// itself accepts.
func TestCheckExploresNonProgramOrderInterleaving(t *testing.T) {
	table := command.NewTable(
		func(symbolic.Result, bool) counterState { return counterState{} },
		command.Command[counterState]{
			Name: "incA",
			Args: func(counterState) argspec.Spec { return argspec.Tuple{} },
			NextState: func(s counterState, _ symbolic.Node, _ symbolic.Result) counterState {
				return counterState{n: s.n + 10}
			},
			Real: func(symbolic.Node) any { return nil },
			RealPostcondition: func(prev, next counterState, _ symbolic.Node, _ any) bool {
				return prev.n == 1
			},
		},
		command.Command[counterState]{
			Name: "incB",
			Args: func(counterState) argspec.Spec { return argspec.Tuple{} },
			NextState: func(s counterState, _ symbolic.Node, _ symbolic.Result) counterState {
				return counterState{n: s.n + 1}
			},
			Real:              func(symbolic.Node) any { return nil },
			RealPostcondition: func(prev, next counterState, _ symbolic.Node, _ any) bool { return true },
		},
	)

	trace := runner.Trace{
		Parallel: [][]runner.Step{
			{stepNamed(1, "incA")},
			{stepNamed(2, "incB")},
		},
	}
	result, _ := report.Check(table, trace)
	if result != porcupine.Ok {
		t.Fatalf("expected porcupine to find the B-before-A linearization, got %v", result)
	}
}
