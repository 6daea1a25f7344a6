package symbolic

import (
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
)

// ErrMissingBinding is returned by Substitute when an argument tree
// references a handle with no bound outcome. Well-formedness is supposed
// to rule this out before a program ever reaches the runner or the
// linearizer; seeing this error means that invariant was violated.
var ErrMissingBinding = errors.New("symbolic: no bound value for handle")

// ErrBoundToException is returned by Substitute when a referenced handle's
// bound outcome is a caught exception rather than a value. The runner
// records an invocation whose arguments hit this error as a caught
// exception of its own instead of running it, and the linearizer rejects
// any interleaving that contains a caught exception.
var ErrBoundToException = errors.New("symbolic: handle is bound to a caught exception")

// Outcome is what a single invocation produced: either a value or a
// caught exception. The zero Outcome is a value of nil.
type Outcome struct {
	Value any
	Err   error
}

// Value wraps a successful result.
func Value(v any) Outcome {
	return Outcome{Value: v}
}

// Caught wraps a recovered exception (see runner.Run, which is the only
// place these are constructed from real execution).
func Caught(err error) Outcome {
	return Outcome{Err: err}
}

// IsException reports whether this outcome is a caught exception.
func (o Outcome) IsException() bool {
	return o.Err != nil
}

func (o Outcome) String() string {
	if o.IsException() {
		return fmt.Sprintf("<<%v>>", o.Err)
	}
	return fmt.Sprintf("%v", o.Value)
}

// Bindings maps handles to the outcome of the invocation that produced
// them. Bindings are append-only during any one execution or linearization
// walk and are read-only thereafter.
type Bindings map[Handle]Outcome

// NewBindings returns an empty binding set.
func NewBindings() Bindings {
	return make(Bindings)
}

// Bind records the outcome produced for h. Rebinding an already-bound
// handle is a caller error; the registry does not guard against it because
// well-formed programs never do it.
func (b Bindings) Bind(h Handle, o Outcome) {
	b[h] = o
}

// Lookup returns the outcome bound to h, if any.
func (b Bindings) Lookup(h Handle) (Outcome, bool) {
	o, ok := b[h]
	return o, ok
}

// Clone returns a shallow copy of b. The runner uses this to hand each
// parallel thread its own binding set seeded from the sequential prefix,
// so that concurrent threads never write to a shared map.
func (b Bindings) Clone() Bindings {
	return Bindings(maps.Clone(map[Handle]Outcome(b)))
}

// Substitute deep-walks n, replacing every HandleRef with a Literal
// carrying its bound value. Tuples and maps are substituted recursively;
// every other node is returned unchanged. It is an error to substitute a
// tree that references an unbound handle, or one bound to an exception.
func Substitute(n Node, b Bindings) (Node, error) {
	switch v := n.(type) {
	case HandleRef:
		outcome, ok := b.Lookup(v.Handle)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingBinding, v.Handle)
		}
		if outcome.IsException() {
			return nil, fmt.Errorf("%w: %s", ErrBoundToException, v.Handle)
		}
		return Literal{Value: outcome.Value}, nil
	case Tuple:
		elems := make([]Node, len(v.Elems))
		for i, e := range v.Elems {
			sub, err := Substitute(e, b)
			if err != nil {
				return nil, err
			}
			elems[i] = sub
		}
		return Tuple{Elems: elems}, nil
	case Map:
		entries := make([]Entry, len(v.Entries))
		for i, e := range v.Entries {
			sub, err := Substitute(e.Value, b)
			if err != nil {
				return nil, err
			}
			entries[i] = Entry{Key: e.Key, Value: sub}
		}
		return Map{Entries: entries}, nil
	default:
		return n, nil
	}
}

// Result is the "result" argument passed to a command's NextState
// callback: a symbolic handle during generation, and the concrete value
// produced by the real system during linearization. Callbacks that never
// inspect the result work uniformly across both phases.
type Result struct {
	handle   Handle
	value    any
	symbolic bool
}

// Symbolic wraps a not-yet-executed handle.
func Symbolic(h Handle) Result {
	return Result{handle: h, symbolic: true}
}

// Concrete wraps an already-observed value.
func Concrete(v any) Result {
	return Result{value: v}
}

// IsSymbolic reports whether this result is a generation-time handle
// rather than a concrete, observed value.
func (r Result) IsSymbolic() bool {
	return r.symbolic
}

// Handle returns the wrapped handle. Only meaningful if IsSymbolic is true.
func (r Result) Handle() Handle {
	return r.handle
}

// Value returns the wrapped concrete value. Only meaningful if IsSymbolic
// is false.
func (r Result) Value() any {
	return r.value
}

func (r Result) String() string {
	if r.symbolic {
		return r.handle.String()
	}
	return fmt.Sprintf("%v", r.value)
}
