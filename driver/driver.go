// Package driver ties the generator, runner and linearizer together: it
// draws programs, runs and judges each one, retries a failing program up
// to MaxTries before believing it, and shrinks a believed failure to a
// minimal counterexample using the same gopter.Shrinker the generator
// attaches to every draw.
package driver

import (
	"io"
	"math/rand"
	"time"

	"github.com/anishathalye/porcupine"
	"github.com/leanovate/gopter"

	"statelin/command"
	"statelin/genprogram"
	"statelin/linearize"
	"statelin/prog"
	"statelin/report"
	"statelin/runner"
)

// Options carries the run.*/gen.*/report.* tunables plus this module's own
// reporting extensions (Verbose, Visualize).
type Options struct {
	command.Options
	// Verbose runs a porcupine cross-check against a discovered failure
	// and attaches it to the returned Failure.
	Verbose bool
	// Visualize, if non-nil, receives a porcupine HTML visualization of a
	// discovered failure. Requires Verbose.
	Visualize io.Writer
}

// An Option configures a Run call, following the usual typed
// functional-options convention for run configuration.
type Option func(*Options)

func WithSeed(seed int64) Option       { return func(o *Options) { o.Seed = seed } }
func WithNumTests(n int) Option        { return func(o *Options) { o.NumTests = n } }
func WithMaxTries(n int) Option        { return func(o *Options) { o.MaxTries = n } }
func WithThreads(n int) Option         { return func(o *Options) { o.Threads = n } }
func WithMaxLength(n int) Option       { return func(o *Options) { o.MaxLength = n } }
func WithMaxSize(n int) Option         { return func(o *Options) { o.MaxSize = n } }
func WithFirstCase(b bool) Option      { return func(o *Options) { o.FirstCase = b } }
func WithStackTrace(b bool) Option     { return func(o *Options) { o.StackTrace = b } }
func WithVerbose(b bool) Option        { return func(o *Options) { o.Verbose = b } }
func WithVisualize(w io.Writer) Option { return func(o *Options) { o.Visualize = w; o.Verbose = true } }

// Failure describes a program the checker rejected after MaxTries attempts,
// already shrunk to a local minimum.
type Failure struct {
	Program prog.Program
	Trace   runner.Trace
	Report  string
	Cross   *CrossCheckInfo
}

// CrossCheckInfo carries the porcupine cross-check outcome, populated only
// when Options.Verbose is set.
type CrossCheckInfo struct {
	Accepted bool
}

// Result is the outcome of a full Run: either every generated program was
// accepted, or Failure describes the smallest one that was not.
type Result struct {
	Passed   bool
	Attempts int
	Seed     int64
	Failure  *Failure
}

// Run generates and checks table.Options.NumTests programs (or the count
// implied by opts), stopping at the first program that fails every one of
// MaxTries attempts and returning it shrunk to a local minimum.
func Run[S any](table *command.Table[S], opts ...Option) Result {
	o := Options{Options: table.Options}
	for _, opt := range opts {
		opt(&o)
	}

	working := *table
	working.Options = o.Options

	seed := o.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	gen := genprogram.Gen(&working)

	numTests := o.NumTests
	if numTests <= 0 {
		numTests = 1
	}
	maxSize := o.MaxSize
	if maxSize <= 0 {
		maxSize = 100
	}

	for i := 0; i < numTests; i++ {
		params := &gopter.GenParameters{Rng: rng, MaxSize: sizeFor(i, numTests, maxSize)}
		genResult := gen(params)
		value, _ := genResult.Retrieve()
		p := value.(prog.Program)

		ok, trace := attempt(&working, p, o.MaxTries)
		if !ok {
			p, trace = shrinkToMinimal(&working, p, trace, genResult.Shrinker, o)
			return Result{
				Passed:   false,
				Attempts: i + 1,
				Seed:     seed,
				Failure:  buildFailure(&working, p, trace, o),
			}
		}
	}

	return Result{Passed: true, Attempts: numTests, Seed: seed}
}

// attempt runs p up to maxTries times, returning success as soon as one run
// passes the linearizability check. This is the "declare flaky-clean" retry
// budget behind run.max_tries.
func attempt[S any](table *command.Table[S], p prog.Program, maxTries int) (bool, runner.Trace) {
	if maxTries < 1 {
		maxTries = 1
	}
	var trace runner.Trace
	for i := 0; i < maxTries; i++ {
		trace = runner.Run(table, p)
		ok, err := linearize.Check(table, trace)
		if err != nil {
			return false, trace
		}
		if ok {
			return true, trace
		}
	}
	return false, trace
}

// shrinkToMinimal follows gopter's own shrink-loop contract: shrinker(p)
// produces a flat stream of one-level-smaller candidates; calling that same
// stream value again yields the next sibling, not a repeat of the last one
// returned. A candidate that still fails is committed to, and shrinker is
// called again on it to get a fresh, smaller stream to descend into; a
// candidate that now passes is skipped in favor of its sibling. The loop
// ends once a stream is exhausted with nothing left that still fails.
func shrinkToMinimal[S any](table *command.Table[S], p prog.Program, trace runner.Trace, shrinker gopter.Shrinker, o Options) (prog.Program, runner.Trace) {
	stream := shrinker(p)
	for {
		value, ok := stream()
		if !ok {
			return p, trace
		}
		candidate, ok := value.(prog.Program)
		if !ok {
			continue
		}
		if passed, candTrace := attempt(table, candidate, o.MaxTries); !passed {
			p, trace = candidate, candTrace
			stream = shrinker(candidate)
		}
	}
}

func buildFailure[S any](table *command.Table[S], p prog.Program, trace runner.Trace, o Options) *Failure {
	f := &Failure{
		Program: p,
		Trace:   trace,
		Report:  report.FormatProgram(trace),
	}
	if o.Verbose {
		result, info := report.Check(table, trace)
		f.Cross = &CrossCheckInfo{Accepted: result == porcupine.Ok}
		if o.Visualize != nil {
			_ = report.Visualize(table, trace, info, o.Visualize)
		}
	}
	return f
}

// sizeFor ramps the gopter size parameter from small to maxSize across the
// run, so early tests draw short programs and later ones draw larger ones,
// matching the size-weighted coin flip genprogram relies on for early
// termination.
func sizeFor(i, numTests, maxSize int) int {
	if numTests <= 1 {
		return maxSize
	}
	size := (i + 1) * maxSize / numTests
	if size < 1 {
		size = 1
	}
	if size > maxSize {
		size = maxSize
	}
	return size
}
