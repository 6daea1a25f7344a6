// Package symbolic implements the symbolic-value registry:
// handles that stand in for the not-yet-executed result of a command
// invocation, the argument trees that reference them, and the bindings
// substitution walks them against once results are known.
package symbolic

import "fmt"

// A Handle names the eventual result of a command invocation, or of setup.
// Handles compare by their sequence number; Setup always carries 0 and
// every generated command handle carries a number starting at 1, assigned
// in generation order.
type Handle struct {
	seq int
}

// Setup is the reserved handle naming the result of a specification's
// setup callback.
var Setup = Handle{seq: 0}

// NewHandle constructs a handle with the given sequence number. Callers
// outside this package should mint handles through a Counter rather than
// calling this directly, so that numbering stays contiguous.
func NewHandle(seq int) Handle {
	return Handle{seq: seq}
}

// Seq returns the handle's generation-order sequence number.
func (h Handle) Seq() int {
	return h.seq
}

func (h Handle) String() string {
	return fmt.Sprintf("#<%d>", h.seq)
}

// Before reports whether h was produced strictly earlier than other in
// generation order.
func (h Handle) Before(other Handle) bool {
	return h.seq < other.seq
}

// A Counter mints fresh handles with strictly increasing sequence numbers.
// It is shared across the sequential prefix and every parallel thread of a
// single program so that all handles in the program are globally unique.
type Counter struct {
	next int
}

// NewCounter returns a counter that mints command handles starting at 1,
// leaving 0 reserved for Setup.
func NewCounter() *Counter {
	return &Counter{next: 1}
}

// Mint returns the next handle and advances the counter.
func (c *Counter) Mint() Handle {
	h := NewHandle(c.next)
	c.next++
	return h
}

// Peek returns the sequence number that the next call to Mint will assign.
func (c *Counter) Peek() int {
	return c.next
}
