package genprogram_test

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"

	"statelin/argspec"
	"statelin/command"
	"statelin/genprogram"
	"statelin/prog"
	"statelin/symbolic"
)

type counterState struct {
	n int
}

func counterTable() *command.Table[counterState] {
	table := command.NewTable(
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
	table.Options.MaxLength = 5
	return table
}

func TestGenProducesWellFormedProgram(t *testing.T) {
	table := counterTable()
	gen := genprogram.Gen(table)
	params := &gopter.GenParameters{Rng: rand.New(rand.NewSource(1)), MaxSize: 20}

	result := gen(params)
	value, ok := result.Retrieve()
	if !ok {
		t.Fatalf("expected the generator to produce a value")
	}
	p := value.(prog.Program)

	if !prog.WellFormed(p) {
		t.Fatalf("expected a generated program to be well-formed, got %+v", p)
	}
	if len(p.Sequential) > 5 {
		t.Fatalf("expected at most MaxLength (5) sequential invocations, got %d", len(p.Sequential))
	}
	for i, inv := range p.Sequential {
		if inv.Handle.Seq() != i+1 {
			t.Fatalf("expected contiguous handle numbering starting at 1, got %v at index %d", inv.Handle, i)
		}
	}
}

func TestGenRespectsThreadCount(t *testing.T) {
	table := counterTable()
	table.Options.Threads = 3
	gen := genprogram.Gen(table)
	params := &gopter.GenParameters{Rng: rand.New(rand.NewSource(2)), MaxSize: 20}

	result := gen(params)
	value, _ := result.Retrieve()
	p := value.(prog.Program)

	if len(p.Parallel) != 3 {
		t.Fatalf("expected 3 parallel threads, got %d", len(p.Parallel))
	}
	if !prog.WellFormed(p) {
		t.Fatalf("expected a program with parallel threads to remain well-formed")
	}
}

func TestGenDeterministicUnderFixedSeed(t *testing.T) {
	table := counterTable()
	gen := genprogram.Gen(table)

	draw := func(seed int64) prog.Program {
		params := &gopter.GenParameters{Rng: rand.New(rand.NewSource(seed)), MaxSize: 20}
		value, _ := gen(params).Retrieve()
		return value.(prog.Program)
	}

	a := draw(42)
	b := draw(42)
	if len(a.Sequential) != len(b.Sequential) {
		t.Fatalf("expected the same seed to produce the same program length, got %d and %d",
			len(a.Sequential), len(b.Sequential))
	}
}

func TestGenNoEligibleCommandsProducesEmptyProgram(t *testing.T) {
	table := command.NewTable(
		func(symbolic.Result, bool) counterState { return counterState{} },
		command.Command[counterState]{
			Name:     "unreachable",
			Requires: func(counterState) bool { return false },
			Args:     func(counterState) argspec.Spec { return argspec.Tuple{} },
			NextState: func(s counterState, _ symbolic.Node, _ symbolic.Result) counterState {
				return s
			},
			Real: func(symbolic.Node) any { return nil },
		},
	)
	gen := genprogram.Gen(table)
	params := &gopter.GenParameters{Rng: rand.New(rand.NewSource(1)), MaxSize: 20}
	value, _ := gen(params).Retrieve()
	p := value.(prog.Program)
	if len(p.Sequential) != 0 {
		t.Fatalf("expected an empty program when no command is ever eligible, got %+v", p)
	}
}
