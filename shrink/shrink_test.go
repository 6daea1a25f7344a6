package shrink_test

import (
	"testing"

	"github.com/leanovate/gopter"

	"statelin/argspec"
	"statelin/command"
	"statelin/prog"
	"statelin/shrink"
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
			Real: func(symbolic.Node) any { return nil },
		},
	)
}

func threeInvocations() prog.Program {
	return prog.Program{Sequential: []prog.Invocation{
		{Handle: symbolic.NewHandle(1), Command: "inc", Args: symbolic.Tuple{}},
		{Handle: symbolic.NewHandle(2), Command: "inc", Args: symbolic.Tuple{}},
		{Handle: symbolic.NewHandle(3), Command: "inc", Args: symbolic.Tuple{}},
	}}
}

func TestShrinkerDropsOneInvocationPerCandidate(t *testing.T) {
	table := counterTable()
	p := threeInvocations()
	shrinker := shrink.Shrinker(table, map[symbolic.Handle]gopter.Shrinker{})
	stream := shrinker(p)

	var candidates []prog.Program
	for {
		value, ok := stream()
		if !ok {
			break
		}
		candidates = append(candidates, value.(prog.Program))
	}

	if len(candidates) != 3 {
		t.Fatalf("expected 3 sibling one-drop candidates from a 3-invocation program, got %d", len(candidates))
	}
	for _, c := range candidates {
		if len(c.Sequential) != 2 {
			t.Fatalf("expected each candidate to have 2 invocations, got %d", len(c.Sequential))
		}
	}
}

func TestShrinkerCalledAgainDescendsToSmallerCandidates(t *testing.T) {
	table := counterTable()
	p := threeInvocations()
	shrinker := shrink.Shrinker(table, map[symbolic.Handle]gopter.Shrinker{})

	stream := shrinker(p)
	firstValue, ok := stream()
	if !ok {
		t.Fatalf("expected at least one candidate")
	}
	first := firstValue.(prog.Program)
	if len(first.Sequential) != 2 {
		t.Fatalf("expected the first candidate to have 2 invocations, got %d", len(first.Sequential))
	}

	// Committing to a still-failing candidate means calling the Shrinker
	// again on it, not calling the same stream again.
	childStream := shrinker(first)
	childValue, ok := childStream()
	if !ok {
		t.Fatalf("expected the smaller candidate to itself have shrink candidates")
	}
	childProgram := childValue.(prog.Program)
	if len(childProgram.Sequential) != 1 {
		t.Fatalf("expected the descended candidate to have 1 invocation, got %d", len(childProgram.Sequential))
	}
}

func TestShrinkerExhaustsEmptyProgram(t *testing.T) {
	table := counterTable()
	shrinker := shrink.Shrinker(table, map[symbolic.Handle]gopter.Shrinker{})
	stream := shrinker(prog.Program{})
	value, ok := stream()
	if ok || value != nil {
		t.Fatalf("expected the empty program to have no shrink candidates, got %v", value)
	}
}

func TestShrinkerFiltersDanglingReference(t *testing.T) {
	// "use" takes a HandleRef to whatever "new" produced. Dropping "new"
	// alone leaves "use" referencing a handle that no longer exists in the
	// candidate, so that single-drop candidate must be filtered out.
	type resourceState struct{ have bool }
	table := command.NewTable(
		func(symbolic.Result, bool) resourceState { return resourceState{} },
		command.Command[resourceState]{
			Name:     "new",
			Requires: func(s resourceState) bool { return !s.have },
			Args:     func(resourceState) argspec.Spec { return argspec.Tuple{} },
			NextState: func(s resourceState, _ symbolic.Node, _ symbolic.Result) resourceState {
				return resourceState{have: true}
			},
			Real: func(symbolic.Node) any { return nil },
		},
		command.Command[resourceState]{
			Name:     "use",
			Requires: func(s resourceState) bool { return s.have },
			Args:     func(resourceState) argspec.Spec { return argspec.Tuple{} },
			NextState: func(s resourceState, _ symbolic.Node, _ symbolic.Result) resourceState {
				return s
			},
			Real: func(symbolic.Node) any { return nil },
		},
	)

	h0 := symbolic.NewHandle(1)
	p := prog.Program{Sequential: []prog.Invocation{
		{Handle: h0, Command: "new", Args: symbolic.Tuple{}},
		{Handle: symbolic.NewHandle(2), Command: "use", Args: symbolic.Tuple{Elems: []symbolic.Node{
			symbolic.HandleRef{Handle: h0},
		}}},
	}}
	if !prog.Valid(table, resourceState{}, p) {
		t.Fatalf("expected the original new-then-use program to be valid")
	}

	shrinker := shrink.Shrinker(table, map[symbolic.Handle]gopter.Shrinker{})
	stream := shrinker(p)
	for {
		value, ok := stream()
		if !ok {
			break
		}
		got := value.(prog.Program)
		if len(got.Sequential) == 1 && got.Sequential[0].Command == "use" {
			t.Fatalf("expected dropping \"new\" alone to be filtered out, got %+v", got)
		}
	}
}
