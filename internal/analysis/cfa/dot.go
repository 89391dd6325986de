package cfa

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// PrintDot writes the automaton in GraphViz format, one cluster per
// function. Error locations are drawn as red double circles.
func (c *CFA) PrintDot(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph cfa {")
	fmt.Fprintln(bw, "\tnode [shape=circle];")

	for i, f := range c.Functions() {
		fmt.Fprintf(bw, "\tsubgraph cluster_%d {\n", i)
		fmt.Fprintf(bw, "\t\tlabel=%s;\n", strconv.Quote(f.Name))
		for _, n := range c.nodes {
			if n.Function != f.Name {
				continue
			}
			attrs := ""
			switch {
			case n.ErrorLabel:
				attrs = " [shape=doublecircle, color=red]"
			case n == f.Entry:
				attrs = " [shape=doublecircle]"
			}
			fmt.Fprintf(bw, "\t\t%d%s;\n", n.ID, attrs)
		}
		fmt.Fprintln(bw, "\t}")
	}

	for _, e := range c.Edges() {
		label := e.Op.String()
		if e.Line > 0 {
			label = fmt.Sprintf("%d: %s", e.Line, label)
		}
		style := ""
		switch e.Kind() {
		case FunctionCallEdge, FunctionReturnEdge:
			style = ", style=dashed"
		}
		fmt.Fprintf(bw, "\t%d -> %d [label=%s%s];\n", e.Pred.ID, e.Succ.ID, strconv.Quote(label), style)
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
