package cfa

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalid is returned for structurally broken automata.
var ErrInvalid = errors.New("invalid control-flow automaton")

// Node is a program location.
type Node struct {
	ID       int
	Function string
	// ErrorLabel marks a location whose reachability is the question asked.
	ErrorLabel bool

	entering []*Edge
	leaving  []*Edge
	scope    nameSet
}

// Entering returns the edges ending at n.
func (n *Node) Entering() []*Edge { return n.entering }

// Leaving returns the edges starting at n.
func (n *Node) Leaving() []*Edge { return n.leaving }

func (n *Node) String() string {
	return fmt.Sprintf("N%d", n.ID)
}

// Edge is a transition between two locations carrying one operation.
type Edge struct {
	Pred *Node
	Succ *Node
	// Line is the source line of the operation; assumptions on the same line
	// are conjoined when they are batched.
	Line int
	Op   Operation
}

// Kind returns the kind of the carried operation.
func (e *Edge) Kind() EdgeKind {
	return e.Op.Kind()
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s -{%s}-> %s (line %d)", e.Pred, e.Op, e.Succ, e.Line)
}

// Function is one procedure of the automaton.
type Function struct {
	Name     string
	Entry    *Node
	Exit     *Node
	Params   []string
	Variadic bool
}

// CFA is a set of functions connected by call and return edges.
type CFA struct {
	Main      string
	functions map[string]*Function
	nodes     []*Node
	// resume maps call edges to the location the call returns to.
	resume map[*Edge]*Node
}

// Function returns the named function or nil.
func (c *CFA) Function(name string) *Function {
	return c.functions[name]
}

// Functions returns all functions sorted by name.
func (c *CFA) Functions() []*Function {
	fns := make([]*Function, 0, len(c.functions))
	for _, f := range c.functions {
		fns = append(fns, f)
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })
	return fns
}

// Entry returns the entry location of the main function.
func (c *CFA) Entry() *Node {
	if f := c.functions[c.Main]; f != nil {
		return f.Entry
	}
	return nil
}

// Nodes returns all locations in creation order.
func (c *CFA) Nodes() []*Node {
	return c.nodes
}

// Edges returns all edges, grouped by predecessor in creation order.
func (c *CFA) Edges() []*Edge {
	var edges []*Edge
	for _, n := range c.nodes {
		edges = append(edges, n.leaving...)
	}
	return edges
}

// ErrorNodes returns the locations carrying an error label.
func (c *CFA) ErrorNodes() []*Node {
	var out []*Node
	for _, n := range c.nodes {
		if n.ErrorLabel {
			out = append(out, n)
		}
	}
	return out
}

// Validate checks that every edge connects known locations and that call
// and return edges agree with the functions they name.
func (c *CFA) Validate() error {
	known := make(map[*Node]bool, len(c.nodes))
	ids := make(map[int]bool, len(c.nodes))
	for _, n := range c.nodes {
		if ids[n.ID] {
			return fmt.Errorf("%w: duplicate node id %d", ErrInvalid, n.ID)
		}
		ids[n.ID] = true
		known[n] = true
	}
	if c.functions[c.Main] == nil {
		return fmt.Errorf("%w: main function %q is not defined", ErrInvalid, c.Main)
	}
	for _, f := range c.functions {
		if f.Entry == nil || f.Exit == nil {
			return fmt.Errorf("%w: function %s lacks an entry or exit", ErrInvalid, f.Name)
		}
	}
	for _, e := range c.Edges() {
		if !known[e.Pred] || !known[e.Succ] {
			return fmt.Errorf("%w: edge %s leaves the automaton", ErrInvalid, e)
		}
		if err := c.validateOp(e, e.Op); err != nil {
			return err
		}
	}
	return nil
}

func (c *CFA) validateOp(e *Edge, op Operation) error {
	switch op := op.(type) {
	case nil:
		return fmt.Errorf("%w: edge %s-%s has no operation", ErrInvalid, e.Pred, e.Succ)
	case *FunctionCall:
		f := c.functions[op.Callee]
		if f == nil || e.Succ != f.Entry {
			return fmt.Errorf("%w: call edge %s does not enter %s", ErrInvalid, e, op.Callee)
		}
	case *FunctionReturn:
		f := c.functions[op.Callee]
		if f == nil || e.Pred != f.Exit {
			return fmt.Errorf("%w: return edge %s does not leave %s", ErrInvalid, e, op.Callee)
		}
	case *Multi:
		for _, sub := range op.Edges {
			switch sub.Op.(type) {
			case *FunctionCall, *FunctionReturn, *Multi:
				return fmt.Errorf("%w: multi edge %s contains a %s edge", ErrInvalid, e, sub.Kind())
			}
			if err := c.validateOp(sub, sub.Op); err != nil {
				return err
			}
		}
	}
	return nil
}
