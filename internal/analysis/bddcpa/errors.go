package bddcpa

import (
	"errors"
	"fmt"

	"github.com/gnolang/reach/internal/analysis/cfa"
	"github.com/gnolang/reach/internal/analysis/domain"
)

// Configuration errors: the program uses a construct the encoding cannot
// represent. The path through the offending edge is abandoned.
var (
	ErrUnsupportedLiteral    = domain.ErrUnsupportedLiteral
	ErrUnsupportedType       = errors.New("unsupported variable type")
	ErrUnsupportedStatement  = errors.New("unsupported statement")
	ErrUnsupportedArgument   = errors.New("unsupported call argument")
	ErrUnsupportedCallUsage  = errors.New("unsupported use of a call result")
	ErrUnsupportedExpression = errors.New("unsupported expression")
)

// ErrArityMismatch is returned when a call passes fewer or more arguments
// than the callee declares. Like domain.ErrUndeclaredVariable it means the
// automaton itself is inconsistent, and the run cannot go on.
var ErrArityMismatch = errors.New("argument count does not match parameters")

var configurationErrors = []error{
	ErrUnsupportedLiteral,
	ErrUnsupportedType,
	ErrUnsupportedStatement,
	ErrUnsupportedArgument,
	ErrUnsupportedCallUsage,
	ErrUnsupportedExpression,
}

// IsConfigurationError reports whether err only invalidates the path it
// was raised on.
func IsConfigurationError(err error) bool {
	for _, target := range configurationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// EdgeError locates a transfer failure.
type EdgeError struct {
	Edge *cfa.Edge
	Err  error
}

func (e *EdgeError) Error() string {
	return fmt.Sprintf("line %d (%s -> %s, %s): %v", e.Edge.Line, e.Edge.Pred, e.Edge.Succ, e.Edge.Kind(), e.Err)
}

func (e *EdgeError) Unwrap() error {
	return e.Err
}
