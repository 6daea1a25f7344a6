// Package command holds the user-supplied command catalogue and
// model-level callbacks. It is pure storage: a lookup table over Command
// values, with no behaviour of its own beyond resolving the legacy-name
// aliases some callers still write against.
package command

import (
	"statelin/argspec"
	"statelin/symbolic"
)

// A Command describes one operation available to the generator: how to
// build its arguments, when it is eligible, how it moves the abstract
// model forward, and how to run it for real. Every field but Name, Args,
// Real and NextState (or LegacyNextState) is optional and has the default
// described alongside it.
type Command[S any] struct {
	// Name identifies the command in reports and in GenerateCommand's
	// return value. It must be unique within a Table.
	Name string

	// Requires reports static eligibility for generation given the
	// current model state. A nil Requires is always eligible.
	Requires func(state S) bool

	// Args builds the argument specification for this command given the
	// current model state. Required.
	Args func(state S) argspec.Spec

	// Precondition is evaluated on the realized argument tree, both at
	// generation time (Node leaves may contain HandleRefs) and at
	// linearization time (leaves are all Literal after substitution). A
	// nil Precondition always holds.
	Precondition func(state S, args symbolic.Node) bool

	// NextState advances the model. It is called with a symbolic result
	// during generation and a concrete one during linearization.
	// Required. This is the canonical name; see LegacyNextState for the
	// deprecated spelling, whose result parameter is a plain value, that
	// some specs still use.
	NextState func(state S, args symbolic.Node, result symbolic.Result) S

	// LegacyNextState is an alias accepted for compatibility with command
	// tables written against an older "next_state" callback shape. If
	// NextState is nil and LegacyNextState is set, ResolveNextState
	// adapts it: legacy callbacks never distinguished symbolic from
	// concrete results, so they receive result.Value() with the zero
	// value substituted for symbolic results (they are assumed not to
	// dereference it).
	LegacyNextState func(state S, args symbolic.Node, result any) S

	// Real performs the side-effecting action. Required. A panic raised
	// while it runs is recovered by the runner and stored as a caught
	// exception.
	Real func(args symbolic.Node) any

	// RealPostcondition judges an observed result against the model
	// transition it produced. This is the four-argument canonical form;
	// see AdaptPostcondition for tables with the legacy three-argument
	// form. A nil RealPostcondition always holds.
	RealPostcondition func(prev, next S, args symbolic.Node, result any) bool
}

// ResolveNextState returns c.NextState if set, otherwise an adapter over
// c.LegacyNextState. Exactly one of the two must be set; a Table built via
// NewTable enforces this at construction time.
func (c Command[S]) ResolveNextState() func(state S, args symbolic.Node, result symbolic.Result) S {
	if c.NextState != nil {
		return c.NextState
	}
	legacy := c.LegacyNextState
	return func(state S, args symbolic.Node, result symbolic.Result) S {
		var v any
		if !result.IsSymbolic() {
			v = result.Value()
		}
		return legacy(state, args, v)
	}
}

// RequiresHolds reports whether c is eligible for generation in state.
func (c Command[S]) RequiresHolds(state S) bool {
	if c.Requires == nil {
		return true
	}
	return c.Requires(state)
}

// PreconditionHolds reports whether c's precondition holds for args in
// state.
func (c Command[S]) PreconditionHolds(state S, args symbolic.Node) bool {
	if c.Precondition == nil {
		return true
	}
	return c.Precondition(state, args)
}

// PostconditionHolds reports whether c's real postcondition holds for the
// observed transition. A nil RealPostcondition always holds.
func (c Command[S]) PostconditionHolds(prev, next S, args symbolic.Node, result any) bool {
	if c.RealPostcondition == nil {
		return true
	}
	return c.RealPostcondition(prev, next, args, result)
}

// AdaptPostcondition wraps a legacy three-argument RealPostcondition
// (state, args, result) -> bool, evaluated against the post-transition
// state, into the canonical four-argument form.
func AdaptPostcondition[S any](legacy func(state S, args symbolic.Node, result any) bool) func(prev, next S, args symbolic.Node, result any) bool {
	return func(_, next S, args symbolic.Node, result any) bool {
		return legacy(next, args, result)
	}
}
