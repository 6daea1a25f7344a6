// Package genprogram implements the program generator: it builds a
// Program by interleaving argument generation with model simulation under
// preconditions.
//
// The generation loop itself is imperative control flow, not something a
// generator-monad combinator naturally expresses (picking a command,
// retrying on a false precondition, deciding when to stop): only leaf
// argument values are drawn through gopter's own generator primitives.
package genprogram

import (
	"github.com/leanovate/gopter"

	"statelin/argspec"
	"statelin/command"
	"statelin/prog"
	"statelin/shrink"
	"statelin/symbolic"
)

// maxPreconditionRetries bounds how many times the generator retries a
// precondition-false pick for a single slot before giving up on the
// sequential phase.
const maxPreconditionRetries = 20

// A Generated program pairs the realized Program with the per-invocation
// argument shrinkers gopter attached while drawing each leaf, so that
// package shrink can shrink arguments without re-deriving generators from
// scratch.
type Generated struct {
	Program      prog.Program
	ArgShrinkers map[symbolic.Handle]gopter.Shrinker
}

// Gen returns a gopter.Gen that generates whole Programs for table, and
// attaches a shrink.Shrinker-based Shrinker to the result so that a failing
// program can be minimized by the usual gopter shrink loop.
func Gen[S any](table *command.Table[S]) gopter.Gen {
	return func(params *gopter.GenParameters) *gopter.GenResult {
		generated := generate(table, params)
		result := gopter.NewGenResult(generated.Program, gopter.NoShrinker)
		result.Shrinker = shrink.Shrinker(table, generated.ArgShrinkers)
		return result
	}
}

// generate runs the full generation algorithm once, using params.Rng for
// control-flow randomness (command choice, early termination) and the
// argument generators built by package argspec for leaf values.
func generate[S any](table *command.Table[S], params *gopter.GenParameters) Generated {
	counter := symbolic.NewCounter()
	shrinkers := make(map[symbolic.Handle]gopter.Shrinker)

	hasSetup := table.Setup != nil
	setupResult := symbolic.Result{}
	if hasSetup {
		setupResult = symbolic.Symbolic(symbolic.Setup)
	}
	initial := table.InitialState(setupResult, hasSetup)

	seq, seqState := generateSequence(table, initial, counter, params, shrinkers)

	var threads [][]prog.Invocation
	if table.Options.Threads > 0 {
		threads = make([][]prog.Invocation, table.Options.Threads)
		for i := 0; i < table.Options.Threads; i++ {
			threadSeq, _ := generateSequence(table, seqState, counter, params, shrinkers)
			threads[i] = threadSeq
		}
	}

	return Generated{
		Program:      prog.Program{Sequential: seq, Parallel: threads},
		ArgShrinkers: shrinkers,
	}
}

// generateSequence emits at most table.Options.MaxLength invocations.
func generateSequence[S any](
	table *command.Table[S],
	state S,
	counter *symbolic.Counter,
	params *gopter.GenParameters,
	shrinkers map[symbolic.Handle]gopter.Shrinker,
) ([]prog.Invocation, S) {
	maxLength := table.Options.MaxLength
	if maxLength <= 0 {
		maxLength = params.MaxSize
		if maxLength <= 0 {
			maxLength = 10
		}
	}

	var seq []prog.Invocation
	for len(seq) < maxLength {
		if !continueGenerating(params, len(seq), maxLength) {
			break
		}

		inv, nextState, ok := nextInvocation(table, state, counter, params, shrinkers)
		if !ok {
			// Bounded retries against a precondition-false pick have
			// already happened inside nextInvocation; nothing left to
			// try means the sequential phase ends here.
			break
		}
		seq = append(seq, inv)
		state = nextState
	}
	return seq, state
}

// nextInvocation picks a command and draws its arguments, retrying up to
// maxPreconditionRetries times when the precondition comes back false. It
// reports false once eligibility runs out or the retry budget is
// exhausted.
func nextInvocation[S any](
	table *command.Table[S],
	state S,
	counter *symbolic.Counter,
	params *gopter.GenParameters,
	shrinkers map[symbolic.Handle]gopter.Shrinker,
) (prog.Invocation, S, bool) {
	for attempt := 0; attempt < maxPreconditionRetries; attempt++ {
		name, ok := pickCommand(table, state, params)
		if !ok {
			var zero S
			return prog.Invocation{}, zero, false
		}
		if inv, nextState, ok := tryInvocation(table, name, state, counter, params, shrinkers); ok {
			return inv, nextState, true
		}
	}
	var zero S
	return prog.Invocation{}, zero, false
}

// pickCommand selects the next command name to generate: the table's own
// GenerateCommand callback if it opts in, otherwise a uniform choice among
// commands whose Requires holds.
func pickCommand[S any](table *command.Table[S], state S, params *gopter.GenParameters) (string, bool) {
	if table.GenerateCommand != nil {
		if name, ok := table.GenerateCommand(state); ok {
			return name, true
		}
	}
	eligible := table.Eligible(state)
	if len(eligible) == 0 {
		return "", false
	}
	idx := params.Rng.Intn(len(eligible))
	return eligible[idx], true
}

// tryInvocation builds one invocation for the named command: draws its
// argument tree, checks the precondition, and if it holds, mints a handle
// and advances the model.
func tryInvocation[S any](
	table *command.Table[S],
	name string,
	state S,
	counter *symbolic.Counter,
	params *gopter.GenParameters,
	shrinkers map[symbolic.Handle]gopter.Shrinker,
) (prog.Invocation, S, bool) {
	cmd := table.Commands[name]
	spec := cmd.Args(state)
	genResult := argspec.Build(spec)(params)
	args, _ := genResult.Retrieve()
	argsNode, _ := args.(symbolic.Node)

	if !cmd.PreconditionHolds(state, argsNode) {
		var zero S
		return prog.Invocation{}, zero, false
	}

	handle := counter.Mint()
	shrinkers[handle] = genResult.Shrinker
	nextState := cmd.ResolveNextState()(state, argsNode, symbolic.Symbolic(handle))
	return prog.Invocation{Handle: handle, Command: name, Args: argsNode}, nextState, true
}

// continueGenerating implements a coin flip weighted by size: the
// probability of emitting another invocation is gopter's MaxSize / 100,
// clamped to [0.05, 1], so small test sizes tend to produce shorter
// programs. The weight does not depend on how many invocations remain
// before maxLength. The first draw is always attempted, so the coin flip
// itself never yields an empty program; an empty program comes only from
// that first draw failing.
func continueGenerating(params *gopter.GenParameters, produced, maxLength int) bool {
	if produced == 0 {
		// Always attempt at least one draw; whether it succeeds is up to
		// preconditions and eligibility, and an empty program is still a
		// valid outcome of the retry loop giving up immediately.
		return true
	}
	sizeFactor := float64(params.MaxSize) / 100.0
	if sizeFactor > 1 {
		sizeFactor = 1
	}
	if sizeFactor < 0.05 {
		sizeFactor = 0.05
	}
	return params.Rng.Float64() < sizeFactor
}
