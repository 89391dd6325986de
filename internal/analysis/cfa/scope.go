package cfa

// Locals in scope are fixed by the automaton alone: a name is local at a
// location when it is a parameter of the function or declared on every path
// from the function entry to that location. A call site passes its scope to
// the location the call resumes at.

// Declares reports whether a local named name is visible at n. Identifiers
// that are not visible denote globals.
func (n *Node) Declares(name string) bool {
	_, ok := n.scope[name]
	return ok
}

// DeclaredLocals returns the names of the locals a non-global variable
// declaration in op introduces, in order.
func DeclaredLocals(op Operation) []string {
	switch op := op.(type) {
	case *Declaration:
		if d, ok := op.Decl.(*VariableDecl); ok && !d.Global {
			return []string{d.Name}
		}
	case *Multi:
		var names []string
		for _, sub := range op.Edges {
			names = append(names, DeclaredLocals(sub.Op)...)
		}
		return names
	}
	return nil
}

type nameSet map[string]struct{}

func (s nameSet) with(names []string) nameSet {
	if len(names) == 0 {
		return s
	}
	out := make(nameSet, len(s)+len(names))
	for name := range s {
		out[name] = struct{}{}
	}
	for _, name := range names {
		out[name] = struct{}{}
	}
	return out
}

// intersect returns the names of s also in o, and whether some were lost.
func (s nameSet) intersect(o nameSet) (nameSet, bool) {
	out := make(nameSet, len(s))
	for name := range s {
		if _, ok := o[name]; ok {
			out[name] = struct{}{}
		}
	}
	return out, len(out) != len(s)
}

func (c *CFA) computeScopes() {
	visited := make(map[*Node]bool, len(c.nodes))
	var queue []*Node
	flow := func(n *Node, in nameSet) {
		if !visited[n] {
			visited[n] = true
			n.scope = in
			queue = append(queue, n)
			return
		}
		if narrowed, lost := n.scope.intersect(in); lost {
			n.scope = narrowed
			queue = append(queue, n)
		}
	}

	for _, f := range c.Functions() {
		flow(f.Entry, nameSet{}.with(f.Params))
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range n.leaving {
			switch e.Op.(type) {
			case *FunctionCall:
				if resume := c.resume[e]; resume != nil {
					flow(resume, n.scope)
				}
			case *FunctionReturn:
				// the caller side is covered by its call edge
			default:
				flow(e.Succ, n.scope.with(DeclaredLocals(e.Op)))
			}
		}
	}
}
