package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/reach/internal/analysis/cfa"
)

// variable for flags
var (
	dotOutput bool
	output    string
)

var cfaCmd = &cobra.Command{
	Use:   "cfa [files...]",
	Short: "Inspect control-flow automata",
	Long: `Validates automaton files and prints a summary of their functions, or
their GraphViz rendering with --dot.
Example) reach cfa --dot -o main.dot main.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file paths")
			os.Exit(1)
		}
		if err := runCFA(cmd.OutOrStdout(), args, dotOutput, output); err != nil {
			logger.Error("Failed to inspect automaton", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	cfaCmd.Flags().BoolVar(&dotOutput, "dot", false, "Print the automaton in GraphViz format")
	cfaCmd.Flags().StringVarP(&output, "output", "o", "", "Output path for the GraphViz file")
}

func runCFA(out io.Writer, paths []string, dot bool, output string) error {
	for _, path := range paths {
		graph, err := cfa.LoadFile(path)
		if err != nil {
			return err
		}
		if !dot {
			printSummary(out, path, graph)
			continue
		}
		if output == "" {
			if err := graph.PrintDot(out); err != nil {
				return err
			}
			continue
		}
		if len(paths) > 1 {
			return fmt.Errorf("--output takes a single automaton, got %d", len(paths))
		}
		if err := writeFile(output, graph.PrintDot); err != nil {
			return err
		}
		fmt.Fprintf(out, "GraphViz file created: %s\n", output)
	}
	return nil
}

func printSummary(out io.Writer, path string, graph *cfa.CFA) {
	fmt.Fprintf(out, "%s: %d nodes, %d edges, %d error locations\n",
		path, len(graph.Nodes()), len(graph.Edges()), len(graph.ErrorNodes()))
	for _, f := range graph.Functions() {
		marker := ""
		if f.Name == graph.Main {
			marker = " (main)"
		}
		fmt.Fprintf(out, "  func %s(%s)%s entry %s exit %s\n", f.Name, strings.Join(f.Params, ", "), marker, f.Entry, f.Exit)
	}
}
