package symbolic

// A Node is one value in a realized argument tree: a literal, a reference
// to an earlier invocation's result, an ordered tuple, or an unordered
// key-to-value map whose keys are literal. Realized trees contain no
// sub-generators; those are collapsed by the argument builder (package
// argspec) before a Node tree is ever constructed.
type Node interface {
	node()
}

// Literal is a constant leaf value, opaque to the registry.
type Literal struct {
	Value any
}

// HandleRef is a leaf referencing the result of an earlier invocation.
type HandleRef struct {
	Handle Handle
}

// Tuple is an ordered, fixed-arity sequence of child nodes.
type Tuple struct {
	Elems []Node
}

// Entry is one key-value pair of a Map. Keys are literal and are never
// walked or substituted.
type Entry struct {
	Key   any
	Value Node
}

// Map is an unordered collection of key-to-node entries.
type Map struct {
	Entries []Entry
}

func (Literal) node()   {}
func (HandleRef) node() {}
func (Tuple) node()     {}
func (Map) node()       {}

// Handles walks n and returns every handle referenced anywhere inside it,
// in the order encountered.
func Handles(n Node) []Handle {
	var out []Handle
	collect(n, &out)
	return out
}

func collect(n Node, out *[]Handle) {
	switch v := n.(type) {
	case HandleRef:
		*out = append(*out, v.Handle)
	case Tuple:
		for _, e := range v.Elems {
			collect(e, out)
		}
	case Map:
		for _, e := range v.Entries {
			collect(e.Value, out)
		}
	}
}
