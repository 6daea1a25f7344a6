// Package report renders an executed program's runner.Trace as
// "handle = (name args...) = result" lines, and offers a second opinion on
// the same trace via github.com/anishathalye/porcupine, the general-purpose
// linearizability checker package linearize's own search is modeled on.
package report

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/anishathalye/porcupine"

	"statelin/command"
	"statelin/prog"
	"statelin/runner"
	"statelin/symbolic"
)

// FormatProgram renders trace as an indented dump: the sequential prefix
// first, one line per invocation, followed by one labeled block per
// parallel thread (A, B, C, ...), each step nested one dash deeper than its
// heading.
func FormatProgram(trace runner.Trace) string {
	var b strings.Builder
	b.WriteString("program\n")
	if trace.HasSetup {
		writeReportLine(&b, 1, fmt.Sprintf("setup = %s", trace.SetupResult))
	}
	for _, s := range trace.Sequential {
		writeReportLine(&b, 1, formatStep(s))
	}
	for i, thread := range trace.Parallel {
		writeReportLine(&b, 1, fmt.Sprintf("thread %s", threadLabel(i)))
		for _, s := range thread {
			writeReportLine(&b, 2, formatStep(s))
		}
	}
	return b.String()
}

func writeReportLine(b *strings.Builder, depth int, line string) {
	b.WriteString(strings.Repeat("-", depth))
	b.WriteString(line)
	b.WriteString("\n")
}

func threadLabel(i int) string {
	return string(rune('A' + i))
}

func formatStep(s runner.Step) string {
	line := fmt.Sprintf("%s = (%s %s) = %s", s.Handle, s.Command, formatArgs(s.Args), s.Result)
	if !s.Result.IsException() {
		if current := fmt.Sprintf("%v", s.Result.Value); current != s.Snapshot {
			line += " [value mutated after capture]"
		}
	}
	return line
}

func formatArgs(n symbolic.Node) string {
	switch v := n.(type) {
	case symbolic.Literal:
		return fmt.Sprintf("%v", v.Value)
	case symbolic.HandleRef:
		return v.Handle.String()
	case symbolic.Tuple:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = formatArgs(e)
		}
		return strings.Join(parts, " ")
	case symbolic.Map:
		parts := make([]string, len(v.Entries))
		for i, e := range v.Entries {
			parts[i] = fmt.Sprintf("%v:%s", e.Key, formatArgs(e.Value))
		}
		return "{" + strings.Join(parts, " ") + "}"
	default:
		return fmt.Sprintf("%v", n)
	}
}

// porcupineCall is the Input value handed to the porcupine model's Step
// function: enough of an invocation to re-run it through the same command
// table used by the native checker.
type porcupineCall struct {
	Command string
	Args    symbolic.Node
}

// porcupineOutput is the Output value handed to Step: either the observed
// value, or a marker that the invocation threw, which the model treats the
// same way linearize.fold does, as an unconditional rejection.
type porcupineOutput struct {
	Exception bool
	Value     any
}

// Check runs trace back through github.com/anishathalye/porcupine as a
// cross-check against linearize.Check: same trace, an independently
// implemented search, same accept/reject question. It is not on the hot
// path of generation or shrinking; it exists for cmd/statelin's -verbose
// report path.
func Check[S any](table *command.Table[S], trace runner.Trace) (porcupine.CheckResult, porcupine.LinearizationInfo) {
	model := porcupineModel(table, trace)
	events := porcupineEvents(trace)
	return porcupine.CheckEventsVerbose(model, events, 0)
}

// Visualize writes an HTML visualization of a prior Check call's info to w,
// following the same porcupine.Visualize(model, info, w) call the pack's
// own porcupine-based checker tool makes.
func Visualize[S any](table *command.Table[S], trace runner.Trace, info porcupine.LinearizationInfo, w io.Writer) error {
	return porcupine.Visualize(porcupineModel(table, trace), info, w)
}

func porcupineModel[S any](table *command.Table[S], trace runner.Trace) porcupine.Model {
	return porcupine.Model{
		Init: func() interface{} {
			if !trace.HasSetup {
				return table.InitialState(symbolic.Result{}, false)
			}
			return table.InitialState(symbolic.Concrete(trace.SetupResult.Value), true)
		},
		Step: func(state, input, output interface{}) (bool, interface{}) {
			call := input.(porcupineCall)
			out := output.(porcupineOutput)
			if out.Exception {
				return false, state
			}
			s := state.(S)
			cmd, ok := table.Commands[call.Command]
			if !ok {
				return false, state
			}
			next := cmd.ResolveNextState()(s, call.Args, symbolic.Concrete(out.Value))
			if !cmd.PostconditionHolds(s, next, call.Args, out.Value) {
				return false, state
			}
			return true, next
		},
		Equal: func(a, b interface{}) bool {
			return reflect.DeepEqual(a, b)
		},
		DescribeOperation: func(input, output interface{}) string {
			call := input.(porcupineCall)
			out := output.(porcupineOutput)
			if out.Exception {
				return fmt.Sprintf("%s(%s) -> <<exception>>", call.Command, formatArgs(call.Args))
			}
			return fmt.Sprintf("%s(%s) -> %v", call.Command, formatArgs(call.Args), out.Value)
		},
	}
}

func toPorcupineOutput(s runner.Step) porcupineOutput {
	if s.Result.IsException() {
		return porcupineOutput{Exception: true}
	}
	return porcupineOutput{Value: s.Result.Value}
}

// porcupineEvents flattens trace into a call/return event stream: the
// sequential prefix runs on client 0 with no overlap, one call immediately
// followed by its own return, since nothing else can be running at the same
// time.
//
// The parallel suffix cannot be flattened that way: pairing each thread's
// call directly with its own return, thread by thread, would hand porcupine
// a single fixed total order and defeat the point of asking it for a second
// opinion, since it would never see two operations as overlapping and so
// would never search a different interleaving than the one already known to
// have happened. Instead each thread's invocations are grouped into rounds
// (its first invocation, its second, and so on, matching runner.Run's own
// per-thread program order), and within a round every thread's call event is
// emitted before any of that round's return events. That gives porcupine a
// concurrent history: from its point of view any of a round's operations
// could have executed in any order relative to the others. Every return of
// one round precedes every call of the next, so operations in different
// rounds stay ordered; porcupine therefore searches only the interleavings
// that keep rounds in order, a subset of those linearize.Check enumerates
// when threads have more than one invocation.
func porcupineEvents(trace runner.Trace) []porcupine.Event {
	var events []porcupine.Event
	id := 0
	for _, s := range trace.Sequential {
		eventID := id
		id++
		events = append(events,
			porcupine.Event{ClientId: 0, Kind: porcupine.CallEvent, Value: porcupineCall{Command: s.Command, Args: s.Args}, Id: eventID},
			porcupine.Event{ClientId: 0, Kind: porcupine.ReturnEvent, Value: toPorcupineOutput(s), Id: eventID},
		)
	}

	maxRounds := 0
	for _, thread := range trace.Parallel {
		if len(thread) > maxRounds {
			maxRounds = len(thread)
		}
	}
	for round := 0; round < maxRounds; round++ {
		type inFlight struct {
			clientID int
			eventID  int
			step     runner.Step
		}
		var started []inFlight
		for i, thread := range trace.Parallel {
			if round >= len(thread) {
				continue
			}
			clientID := i + 1
			s := thread[round]
			eventID := id
			id++
			events = append(events, porcupine.Event{ClientId: clientID, Kind: porcupine.CallEvent, Value: porcupineCall{Command: s.Command, Args: s.Args}, Id: eventID})
			started = append(started, inFlight{clientID, eventID, s})
		}
		for _, f := range started {
			events = append(events, porcupine.Event{ClientId: f.clientID, Kind: porcupine.ReturnEvent, Value: toPorcupineOutput(f.step), Id: f.eventID})
		}
	}
	return events
}

// FormatSummary renders a one-line pass/fail header for a checked program:
// its total invocation count, its thread count (the sequential prefix
// counts as one thread, plus one per parallel thread) and the verdict. It
// does not report how many interleavings package linearize enumerated.
func FormatSummary(p prog.Program, accepted bool) string {
	verdict := "accepted"
	if !accepted {
		verdict = "rejected"
	}
	return "program of " + strconv.Itoa(p.Len()) + " invocations across " +
		strconv.Itoa(1+len(p.Parallel)) + " thread(s): " + verdict
}
