// Package argspec turns a user-supplied argument specification into a
// gopter generator of realized argument trees. A Spec tree
// mixes literals, references to existing handles, and opaque
// sub-generators at any depth; Build collapses every sub-generator, so the
// resulting gopter.Gen always produces a symbolic.Node containing no Spec
// left over.
package argspec

import (
	"reflect"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"

	"statelin/symbolic"
)

// A Spec is one node of an argument specification: a literal, a reference
// to an existing handle, an ordered tuple, an unordered map, or a
// sub-generator to be drawn from at generation time.
type Spec interface {
	spec()
}

// Literal is a constant leaf.
type Literal struct {
	Value any
}

// HandleRef embeds an already-minted handle as a leaf.
type HandleRef struct {
	Handle symbolic.Handle
}

// Tuple is an ordered, fixed-arity sequence of child specs.
type Tuple struct {
	Elems []Spec
}

// Entry is one key-value pair of a Map spec. Keys are literal.
type Entry struct {
	Key   any
	Value Spec
}

// Map is an unordered collection of key-to-spec entries.
type Map struct {
	Entries []Entry
}

// Gen wraps an opaque gopter generator as a leaf. The value it draws
// becomes a symbolic.Literal in the realized tree.
type Gen struct {
	Gen gopter.Gen
}

func (Literal) spec()   {}
func (HandleRef) spec() {}
func (Tuple) spec()     {}
func (Map) spec()       {}
func (Gen) spec()       {}

// nodeSliceType is the reflect.Type gopter needs to type-check FlatMap
// results built up as []symbolic.Node accumulators.
var nodeSliceType = reflect.TypeOf([]symbolic.Node{})

// Build compiles a Spec into a generator of realized symbolic.Node trees.
// Literal and HandleRef leaves become constant generators; Gen leaves are
// drawn as-is and wrapped in a Literal; Tuple and Map fold their children
// left to right with FlatMap and finish with a Map. The leaves' own
// shrinkers are not composed into the result: the GenResult carries
// whatever shrinker gopter attaches at that final step.
func Build(spec Spec) gopter.Gen {
	switch v := spec.(type) {
	case Literal:
		return gen.Const(symbolic.Node(symbolic.Literal{Value: v.Value}))
	case HandleRef:
		return gen.Const(symbolic.Node(symbolic.HandleRef{Handle: v.Handle}))
	case Gen:
		return v.Gen.Map(func(result *gopter.GenResult) symbolic.Node {
			value, _ := result.Retrieve()
			return symbolic.Literal{Value: value}
		})
	case Tuple:
		return buildTuple(v.Elems)
	case Map:
		return buildMap(v.Entries)
	default:
		return gen.Const(symbolic.Node(symbolic.Literal{Value: nil}))
	}
}

func buildTuple(elems []Spec) gopter.Gen {
	acc := gen.Const([]symbolic.Node{})
	for _, e := range elems {
		elemGen := Build(e)
		acc = acc.FlatMap(func(prefix any) gopter.Gen {
			return elemGen.Map(func(result *gopter.GenResult) []symbolic.Node {
				v, _ := result.Retrieve()
				built := prefix.([]symbolic.Node)
				out := make([]symbolic.Node, len(built)+1)
				copy(out, built)
				out[len(built)] = v.(symbolic.Node)
				return out
			})
		}, nodeSliceType)
	}
	return acc.Map(func(result *gopter.GenResult) symbolic.Node {
		elems, _ := result.Retrieve()
		return symbolic.Tuple{Elems: elems.([]symbolic.Node)}
	})
}

func buildMap(entries []Entry) gopter.Gen {
	acc := gen.Const([]symbolic.Entry{})
	for _, e := range entries {
		key := e.Key
		valGen := Build(e.Value)
		acc = acc.FlatMap(func(prefix any) gopter.Gen {
			return valGen.Map(func(result *gopter.GenResult) []symbolic.Entry {
				v, _ := result.Retrieve()
				built := prefix.([]symbolic.Entry)
				out := make([]symbolic.Entry, len(built)+1)
				copy(out, built)
				out[len(built)] = symbolic.Entry{Key: key, Value: v.(symbolic.Node)}
				return out
			})
		}, reflect.TypeOf([]symbolic.Entry{}))
	}
	return acc.Map(func(result *gopter.GenResult) symbolic.Node {
		entries, _ := result.Retrieve()
		return symbolic.Map{Entries: entries.([]symbolic.Entry)}
	})
}
