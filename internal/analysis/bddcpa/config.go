package bddcpa

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gnolang/reach/internal/analysis/stats"
)

// MergeMode selects how eagerly Merge combines states with different
// condition blocks.
type MergeMode int

const (
	// MergeEqual only merges states whose condition blocks are equal.
	MergeEqual MergeMode = iota
	// MergeAlways also merges states with identical diagrams, disjoining
	// their condition blocks.
	MergeAlways
)

func (m MergeMode) String() string {
	switch m {
	case MergeEqual:
		return "equal"
	case MergeAlways:
		return "always"
	default:
		return fmt.Sprintf("MergeMode(%d)", int(m))
	}
}

// ParseMergeMode parses "equal" or "always".
func ParseMergeMode(s string) (MergeMode, error) {
	switch s {
	case "", "equal":
		return MergeEqual, nil
	case "always":
		return MergeAlways, nil
	default:
		return 0, fmt.Errorf("unknown merge mode %q", s)
	}
}

// Config holds the engine settings.
type Config struct {
	// Blocking batches assumptions into condition blocks that are only
	// compiled at abstraction points. Without it every assumption is
	// compiled into the diagram right away.
	Blocking bool
	Merge    MergeMode
	BDDNodes int
	BDDCache int
}

// DefaultConfig returns blocking with conservative merging.
func DefaultConfig() Config {
	return Config{
		Blocking: true,
		Merge:    MergeEqual,
		BDDNodes: 10000,
		BDDCache: 5000,
	}
}

type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStatistics makes the engine count into s instead of a private value.
func WithStatistics(s *stats.Statistics) Option {
	return func(e *Engine) {
		e.stats = s
	}
}
