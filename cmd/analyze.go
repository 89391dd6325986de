package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/reach/analyzer"
)

var (
	jsonOutput  bool
	outPath     string
	metricsPath string
	workers     int
	progress    bool
	watch       bool
	cacheDir    string

	policyFlag  string
	sizeFlag    int
	minFlag     int64
	mergeFlag   string
	noBlocking  bool
	maxIterFlag int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [paths...]",
	Short: "Check automata for reachable error locations",
	Long: `Explores every automaton file and reports whether one of its error
locations is reachable. Directories are searched for .yaml and .yml files.
Exits with status 1 when a file is not proven safe.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}

		config, err := analyzer.LoadConfig(cfgFile)
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		applyOverrides(cmd, &config)

		if watch {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := runWatch(ctx, logger, config, args, cmd.OutOrStdout()); err != nil {
				logger.Error("Error watching files", zap.Error(err))
				os.Exit(1)
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		safe, err := runAnalysis(ctx, logger, config, args, cmd.OutOrStdout())
		if err != nil {
			logger.Error("Error processing files", zap.Error(err))
			os.Exit(1)
		}
		if !safe {
			os.Exit(1)
		}
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output reports in JSON format")
	analyzeCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	analyzeCmd.Flags().StringVar(&metricsPath, "metrics", "", "Write engine metrics in Prometheus text format to this path")
	analyzeCmd.Flags().IntVar(&workers, "workers", 0, "Files analyzed at once (default: number of CPUs)")
	analyzeCmd.Flags().BoolVar(&progress, "progress", false, "Show a progress bar on stderr")
	analyzeCmd.Flags().BoolVar(&watch, "watch", false, "Analyze files again whenever they change, until interrupted")
	analyzeCmd.Flags().StringVar(&cacheDir, "cache", "", "Directory keeping the reports of unchanged files between runs")

	analyzeCmd.Flags().StringVar(&policyFlag, "policy", "", "Literal policy: interval or enumeration")
	analyzeCmd.Flags().IntVar(&sizeFlag, "size", 0, "Number of values of every variable domain")
	analyzeCmd.Flags().Int64Var(&minFlag, "min", 0, "Lower bound of interval domains")
	analyzeCmd.Flags().StringVar(&mergeFlag, "merge", "", "Merge mode: equal or always")
	analyzeCmd.Flags().BoolVar(&noBlocking, "no-blocking", false, "Compile every assumption right away")
	analyzeCmd.Flags().IntVar(&maxIterFlag, "max-iterations", 0, "Worklist bound per file, 0 for none")
}

func applyOverrides(cmd *cobra.Command, config *analyzer.Config) {
	flags := cmd.Flags()
	if flags.Changed("policy") {
		config.Domain.Policy = policyFlag
	}
	if flags.Changed("size") {
		config.Domain.Size = sizeFlag
	}
	if flags.Changed("min") {
		config.Domain.Min = minFlag
	}
	if flags.Changed("merge") {
		config.Blocking.Merge = mergeFlag
	}
	if flags.Changed("no-blocking") {
		config.Blocking.Enabled = !noBlocking
	}
	if flags.Changed("max-iterations") {
		config.Driver.MaxIterations = maxIterFlag
	}
}

// runAnalysis analyzes paths and prints the reports to out, or to outPath
// in JSON mode. It reports whether every file was proven safe.
func runAnalysis(ctx context.Context, logger *zap.Logger, config analyzer.Config, paths []string, out io.Writer) (bool, error) {
	reg := prometheus.NewRegistry()
	opts := []analyzer.Option{analyzer.WithRegistry(reg)}
	if workers > 0 {
		opts = append(opts, analyzer.WithWorkers(workers))
	}
	if progress {
		opts = append(opts, analyzer.WithProgress(os.Stderr))
	}
	if cacheDir != "" {
		cache, err := analyzer.NewCache(cacheDir, 0)
		if err != nil {
			return false, err
		}
		opts = append(opts, analyzer.WithCache(cache))
	}
	a, err := analyzer.New(config, logger, opts...)
	if err != nil {
		return false, err
	}

	reports, err := a.ProcessFiles(ctx, paths)
	if err != nil {
		return false, err
	}

	if err := printReports(logger, reports, out); err != nil {
		return false, err
	}
	if metricsPath != "" {
		if err := writeFile(metricsPath, func(w io.Writer) error { return analyzer.WriteMetrics(w, reg) }); err != nil {
			return false, fmt.Errorf("writing metrics: %w", err)
		}
	}

	summary := analyzer.Summary(reports)
	logger.Info("analysis complete",
		zap.Int("files", len(reports)),
		zap.Int("safe", summary[analyzer.Safe]),
		zap.Int("unsafe", summary[analyzer.Unsafe]),
		zap.Int("unknown", summary[analyzer.Unknown]),
	)
	return summary[analyzer.Safe] == len(reports), nil
}

// runWatch prints a report for every change of the automata under paths
// until ctx is cancelled.
func runWatch(ctx context.Context, logger *zap.Logger, config analyzer.Config, paths []string, out io.Writer) error {
	// unchanged rewrites are answered from memory
	cache, err := analyzer.NewCache("", 0)
	if err != nil {
		return err
	}
	a, err := analyzer.New(config, logger, analyzer.WithCache(cache))
	if err != nil {
		return err
	}
	err = a.Watch(ctx, paths, func(r *analyzer.Report) {
		if err := printReports(logger, []*analyzer.Report{r}, out); err != nil {
			logger.Error("Error printing report", zap.Error(err))
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printReports(logger *zap.Logger, reports []*analyzer.Report, out io.Writer) error {
	if !jsonOutput {
		// text output
		return analyzer.PrintReports(out, reports, verbose)
	}
	// JSON output
	if outPath == "" {
		return analyzer.WriteJSON(out, reports)
	}
	if err := writeFile(outPath, func(w io.Writer) error { return analyzer.WriteJSON(w, reports) }); err != nil {
		logger.Error("Error writing JSON output file", zap.Error(err))
		return err
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
