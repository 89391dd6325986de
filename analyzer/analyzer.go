// Package analyzer checks control-flow automata files for reachable error
// locations, one independent engine per file.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnolang/reach/internal/analysis/bddcpa"
	"github.com/gnolang/reach/internal/analysis/cfa"
	"github.com/gnolang/reach/internal/analysis/reach"
	"github.com/gnolang/reach/internal/analysis/stats"
)

type Verdict string

const (
	// Safe means no error location is reachable in any execution.
	Safe Verdict = "SAFE"
	// Unsafe means some error location holds a feasible abstract state.
	Unsafe Verdict = "UNSAFE"
	// Unknown means the exploration was cut short or abandoned paths.
	Unknown Verdict = "UNKNOWN"
)

// Report is the outcome of one file.
type Report struct {
	File        string         `json:"file"`
	Verdict     Verdict        `json:"verdict"`
	Errors      []ErrorSite    `json:"errors,omitempty"`
	Diagnostics []string       `json:"diagnostics,omitempty"`
	Aborted     string         `json:"aborted,omitempty"`
	Iterations  int            `json:"iterations"`
	States      int            `json:"states"`
	Elapsed     time.Duration  `json:"elapsed_ns"`
	Stats       stats.Snapshot `json:"stats"`
	// Cached is set on reports served from a Cache.
	Cached bool `json:"cached,omitempty"`
}

// ErrorSite is a reachable error location.
type ErrorSite struct {
	Function string `json:"function"`
	Node     int    `json:"node"`
	// Lines of the edges entering the location.
	Lines []int `json:"lines"`
}

type Analyzer struct {
	config   Config
	logger   *zap.Logger
	registry prometheus.Registerer
	workers  int
	progress io.Writer
	cache    *Cache

	mu         sync.Mutex
	collectors map[string]*stats.Collector
}

type Option func(*Analyzer)

// WithRegistry registers the statistics of every run in reg, labelled with
// the file name.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(a *Analyzer) {
		a.registry = reg
	}
}

// WithWorkers bounds the number of files analyzed at once.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithProgress draws a progress bar on w while files are processed.
func WithProgress(w io.Writer) Option {
	return func(a *Analyzer) {
		a.progress = w
	}
}

// WithCache serves reports of unchanged files from c.
func WithCache(c *Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

func New(config Config, logger *zap.Logger, opts ...Option) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if _, err := config.EngineConfig(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{
		config:     config,
		logger:     logger,
		workers:    runtime.NumCPU(),
		collectors: make(map[string]*stats.Collector),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AnalyzeFile loads and explores a single automaton. Failures of the run
// itself end up in the report; the returned error is reserved for files
// that cannot be loaded and for cancellation.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*Report, error) {
	var hash string
	if a.cache != nil {
		h, err := contentHash(path, a.config)
		if err != nil {
			return nil, err
		}
		if r, ok := a.cache.Get(path, h); ok {
			a.logger.Debug("report served from cache", zap.String("file", path))
			return r, nil
		}
		hash = h
	}

	graph, err := cfa.LoadFile(path)
	if err != nil {
		return nil, err
	}
	report, err := a.Analyze(ctx, path, graph)
	if err != nil {
		return report, err
	}
	if a.cache != nil && report.Aborted == "" {
		if err := a.cache.Set(path, hash, report); err != nil {
			a.logger.Warn("failed to cache report", zap.String("file", path), zap.Error(err))
		}
	}
	return report, nil
}

// Analyze explores graph, reporting it under name.
func (a *Analyzer) Analyze(ctx context.Context, name string, graph *cfa.CFA) (*Report, error) {
	logger := a.logger.With(zap.String("file", name))
	engineConfig, err := a.config.EngineConfig()
	if err != nil {
		return nil, err
	}

	st := stats.New()
	engine, err := bddcpa.NewEngine(engineConfig, a.config.Policy(),
		bddcpa.WithLogger(logger),
		bddcpa.WithStatistics(st),
	)
	if err != nil {
		return nil, err
	}
	if a.registry != nil {
		if err := a.register(name, st); err != nil {
			return nil, fmt.Errorf("registering metrics of %s: %w", name, err)
		}
	}

	start := time.Now()
	res, runErr := reach.Run(ctx, logger, engine, graph, a.config.Options())
	report := &Report{
		File:    name,
		Verdict: Unknown,
		Elapsed: time.Since(start),
		Stats:   st.Snapshot(),
	}
	if res != nil {
		report.Iterations = res.Iterations
		report.States = res.States()
		for _, d := range res.Diagnostics {
			report.Diagnostics = append(report.Diagnostics, d.String())
		}
		for _, n := range res.ErrorsReachable {
			report.Errors = append(report.Errors, errorSite(n))
		}
	}

	switch {
	case runErr != nil:
		report.Aborted = runErr.Error()
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			return report, runErr
		}
		if errors.Is(runErr, reach.ErrIterationLimit) {
			logger.Warn("run incomplete", zap.Error(runErr))
		} else {
			logger.Error("run aborted", zap.Error(runErr))
		}
	case len(res.ErrorsReachable) > 0:
		report.Verdict = Unsafe
	case res.Complete:
		report.Verdict = Safe
	}

	logger.Info("analysis finished",
		zap.String("verdict", string(report.Verdict)),
		zap.Int("iterations", report.Iterations),
		zap.Int("states", report.States),
		zap.Int("diagnostics", len(report.Diagnostics)),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// register exposes the statistics of the latest run of name, replacing the
// ones of an earlier run.
func (a *Analyzer) register(name string, st *stats.Statistics) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if old := a.collectors[name]; old != nil {
		a.registry.Unregister(old)
	}
	c, err := stats.Register(a.registry, st, prometheus.Labels{"file": name})
	if err != nil {
		return err
	}
	a.collectors[name] = c
	return nil
}

func errorSite(n *cfa.Node) ErrorSite {
	site := ErrorSite{Function: n.Function, Node: n.ID}
	for _, e := range n.Entering() {
		site.Lines = append(site.Lines, e.Line)
	}
	sort.Ints(site.Lines)
	return site
}

// ProcessFiles analyzes every automaton under paths concurrently.
// Directories are walked for YAML files. Reports are sorted by file name.
func (a *Analyzer) ProcessFiles(ctx context.Context, paths []string) ([]*Report, error) {
	files, err := CollectFiles(paths)
	if err != nil {
		return nil, err
	}

	bar := a.progressBar(len(files))
	reports := make([]*Report, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	if a.workers > 0 {
		g.SetLimit(a.workers)
	}
	for i, file := range files {
		g.Go(func() error {
			report, err := a.AnalyzeFile(gCtx, file)
			if err != nil {
				a.logger.Error("Error processing file", zap.String("file", file), zap.Error(err))
				return err
			}
			reports[i] = report
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(a.progress)
	}
	if err != nil {
		return compact(reports), err
	}
	return reports, nil
}

func (a *Analyzer) progressBar(total int) *progressbar.ProgressBar {
	if a.progress == nil {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(a.progress),
		progressbar.OptionSetDescription("analyzing"),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func compact(reports []*Report) []*Report {
	out := reports[:0]
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

var desiredExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
}

func hasDesiredExtension(path string) bool {
	return desiredExtensions[filepath.Ext(path)]
}

// CollectFiles expands directories into the automaton files they contain.
// Files given explicitly are kept whatever their extension; hidden files
// found while walking, such as the configuration file, are skipped.
func CollectFiles(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			hidden := strings.HasPrefix(d.Name(), ".") && p != path
			if d.IsDir() {
				if hidden {
					return filepath.SkipDir
				}
				return nil
			}
			if hidden || !hasDesiredExtension(p) {
				return nil
			}
			add(p)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking directory %s: %w", path, err)
		}
	}
	sort.Strings(files)
	return files, nil
}
