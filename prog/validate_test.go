package prog_test

import (
	"testing"

	"statelin/argspec"
	"statelin/command"
	"statelin/prog"
	"statelin/symbolic"
)

// counterTable describes a trivial model: a counter that only "inc" can
// touch.
func counterTable() *command.Table[int] {
	return command.NewTable(
		func(symbolic.Result, bool) int { return 0 },
		command.Command[int]{
			Name: "inc",
			Args: func(int) argspec.Spec { return argspec.Tuple{} },
			NextState: func(s int, _ symbolic.Node, _ symbolic.Result) int {
				return s + 1
			},
			Real: func(symbolic.Node) any { return nil },
		},
	)
}

func program(handles ...int) prog.Program {
	seq := make([]prog.Invocation, len(handles))
	for i, h := range handles {
		seq[i] = prog.Invocation{Handle: symbolic.NewHandle(h), Command: "inc", Args: symbolic.Tuple{}}
	}
	return prog.Program{Sequential: seq}
}

func TestWellFormedAcceptsAscendingHandles(t *testing.T) {
	p := program(1, 2, 3)
	if !prog.WellFormed(p) {
		t.Fatalf("expected an ascending, reference-free program to be well-formed")
	}
}

func TestWellFormedRejectsForwardReference(t *testing.T) {
	p := prog.Program{Sequential: []prog.Invocation{
		{Handle: symbolic.NewHandle(1), Command: "inc", Args: symbolic.Tuple{Elems: []symbolic.Node{
			symbolic.HandleRef{Handle: symbolic.NewHandle(2)},
		}}},
		{Handle: symbolic.NewHandle(2), Command: "inc", Args: symbolic.Tuple{}},
	}}
	if prog.WellFormed(p) {
		t.Fatalf("expected a forward reference to be rejected")
	}
}

func TestWellFormedRejectsCrossThreadReference(t *testing.T) {
	h0 := symbolic.NewHandle(1)
	p := prog.Program{
		Parallel: [][]prog.Invocation{
			{{Handle: h0, Command: "inc", Args: symbolic.Tuple{}}},
			{{Handle: symbolic.NewHandle(2), Command: "inc", Args: symbolic.Tuple{Elems: []symbolic.Node{
				symbolic.HandleRef{Handle: h0},
			}}}},
		},
	}
	if prog.WellFormed(p) {
		t.Fatalf("expected a reference to another thread's handle to be rejected")
	}
}

func TestTrajectoryAdvancesState(t *testing.T) {
	table := counterTable()
	p := program(1, 2, 3)
	state, ok := prog.Trajectory(table, 0, p.Sequential)
	if !ok {
		t.Fatalf("expected trajectory to succeed")
	}
	if state != 3 {
		t.Fatalf("expected state 3 after three incs, got %d", state)
	}
}

func TestTrajectoryFailsOnUnknownCommand(t *testing.T) {
	table := counterTable()
	seq := []prog.Invocation{{Handle: symbolic.NewHandle(1), Command: "dec", Args: symbolic.Tuple{}}}
	if _, ok := prog.Trajectory(table, 0, seq); ok {
		t.Fatalf("expected trajectory to fail on an unregistered command")
	}
}

func TestValidChecksWellFormednessAndPreconditions(t *testing.T) {
	table := counterTable()
	valid := program(1, 2)
	if !prog.Valid(table, 0, valid) {
		t.Fatalf("expected a well-formed, precondition-respecting program to be valid")
	}

	illFormed := prog.Program{Sequential: []prog.Invocation{
		{Handle: symbolic.NewHandle(1), Command: "inc", Args: symbolic.Tuple{Elems: []symbolic.Node{
			symbolic.HandleRef{Handle: symbolic.NewHandle(5)},
		}}},
	}}
	if prog.Valid(table, 0, illFormed) {
		t.Fatalf("expected an ill-formed program to be invalid")
	}
}

func TestProgramLenAndClone(t *testing.T) {
	p := prog.Program{
		Sequential: []prog.Invocation{{Handle: symbolic.NewHandle(1)}},
		Parallel: [][]prog.Invocation{
			{{Handle: symbolic.NewHandle(2)}, {Handle: symbolic.NewHandle(3)}},
		},
	}
	if p.Len() != 3 {
		t.Fatalf("expected length 3, got %d", p.Len())
	}
	if p.IsSequential() {
		t.Fatalf("expected a program with a parallel thread to report IsSequential() == false")
	}

	c := p.Clone()
	c.Sequential[0].Handle = symbolic.NewHandle(99)
	c.Parallel[0][0].Handle = symbolic.NewHandle(99)
	if p.Sequential[0].Handle == symbolic.NewHandle(99) {
		t.Fatalf("Clone aliased the sequential slice")
	}
	if p.Parallel[0][0].Handle == symbolic.NewHandle(99) {
		t.Fatalf("Clone aliased a parallel thread slice")
	}
}
