package bddcpa

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gnolang/reach/internal/analysis/cfa"
	"github.com/gnolang/reach/internal/analysis/domain"
	"github.com/gnolang/reach/internal/analysis/expr"
)

// Successors applies edge to s. It returns no state when the edge is
// infeasible from s, and one state otherwise. s itself is left untouched.
func (e *Engine) Successors(s *State, edge *cfa.Edge) ([]*State, error) {
	defer e.stats.Transfer.Start()()
	e.stats.Transfers.Add(1)

	next := s.clone()
	if err := e.apply(next, edge, scopeOf(edge)); err != nil {
		return nil, &EdgeError{Edge: edge, Err: err}
	}
	if e.cfg.Blocking && isAbstractionPoint(edge.Succ) {
		if err := next.compileConditionBlock(); err != nil {
			return nil, &EdgeError{Edge: edge, Err: err}
		}
	}
	if next.diagram.IsFalse() {
		e.stats.Infeasible.Add(1)
		e.logger.Debug("infeasible edge",
			zap.Int("line", edge.Line),
			zap.Stringer("from", edge.Pred),
			zap.Stringer("to", edge.Succ),
		)
		return nil, nil
	}
	return []*State{next}, nil
}

func (e *Engine) apply(s *State, edge *cfa.Edge, sc *scope) error {
	if edge.Kind() != cfa.AssumeEdge {
		// committed effects must see every earlier assumption
		if err := s.compileConditionBlock(); err != nil {
			return err
		}
	}

	switch op := edge.Op.(type) {
	case *cfa.Blank:
		return nil
	case *cfa.Assume:
		return e.assume(s, sc, edge.Line, op)
	case *cfa.Statement:
		return e.statement(s, sc, op)
	case *cfa.Declaration:
		return e.declaration(s, sc, op)
	case *cfa.ReturnStatement:
		return e.returnStatement(s, sc, op)
	case *cfa.FunctionCall:
		return e.functionCall(s, sc, op)
	case *cfa.FunctionReturn:
		// the call site's target is visible where the caller resumes
		return e.functionReturn(s, &scope{function: op.Caller, at: edge.Succ}, op)
	case *cfa.Multi:
		for _, sub := range op.Edges {
			if err := e.apply(s, sub, sc); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s edge", ErrUnsupportedStatement, edge.Kind())
	}
}

func (e *Engine) assume(s *State, sc *scope, line int, op *cfa.Assume) error {
	cond := op.Expr
	if !op.Truth {
		cond = expr.Not(cond)
	}
	cond = e.exprs.Intern(sc.rewrite(cond))

	if e.cfg.Blocking {
		if err := e.checkBool(cond); err != nil {
			return err
		}
		s.conjunctToConditionBlock(line, cond)
		return nil
	}
	d, err := e.compileCached(cond)
	if err != nil {
		return err
	}
	s.diagram = s.diagram.And(d)
	return nil
}

func (e *Engine) statement(s *State, sc *scope, op *cfa.Statement) error {
	if op.Call != nil {
		if op.LHS == nil {
			return nil
		}
		id, ok := op.LHS.(*expr.Identifier)
		if !ok {
			return fmt.Errorf("%w: assignment to %s", ErrUnsupportedStatement, op.LHS)
		}
		// the callee has no body: its result is unknown
		return s.undefineVariable(sc.resolve(id.Name))
	}

	id, ok := op.LHS.(*expr.Identifier)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedStatement, op)
	}
	dst := sc.resolve(id.Name)
	switch rhs := op.RHS.(type) {
	case *expr.Literal:
		return s.assignConstant(dst, rhs)
	case *expr.Identifier:
		return s.assignVariable(sc.resolve(rhs.Name), dst)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedStatement, op)
	}
}

func (e *Engine) declaration(s *State, sc *scope, op *cfa.Declaration) error {
	switch decl := op.Decl.(type) {
	case *cfa.FunctionDecl:
		_, err := s.declare(domain.ReturnVariable(decl.Name))
		return err

	case *cfa.VariableDecl:
		if !decl.Type.IsScalar() {
			return fmt.Errorf("%w: %s %s", ErrUnsupportedType, decl.Name, decl.Type)
		}
		// the initializer is evaluated before the new name shadows anything
		var src string
		if id, ok := decl.Init.(*expr.Identifier); ok {
			src = sc.resolve(id.Name)
		}

		name := decl.Name
		if !decl.Global {
			name = domain.ScopedName(sc.function, decl.Name)
			e.registry.AddLocal(sc.function, name)
			sc.declare(decl.Name)
		}
		if _, err := s.declare(name); err != nil {
			return err
		}

		switch init := decl.Init.(type) {
		case *expr.Literal:
			return s.assignConstant(name, init)
		case *expr.Identifier:
			return s.assignVariable(src, name)
		}
		// no initializer, or one the encoding cannot follow: any value
		return nil

	default:
		return fmt.Errorf("%w: declaration %s", ErrUnsupportedStatement, op)
	}
}

func (e *Engine) returnStatement(s *State, sc *scope, op *cfa.ReturnStatement) error {
	ret := domain.ReturnVariable(sc.function)
	if _, err := e.ensureDeclared(ret); err != nil {
		return err
	}
	switch v := op.Value.(type) {
	case nil:
		return s.assignConstant(ret, e.zero)
	case *expr.Literal:
		return s.assignConstant(ret, v)
	case *expr.Identifier:
		return s.assignVariable(sc.resolve(v.Name), ret)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedStatement, op)
	}
}

func (e *Engine) functionCall(s *State, sc *scope, op *cfa.FunctionCall) error {
	if len(op.Args) < len(op.Params) || (!op.Variadic && len(op.Args) != len(op.Params)) {
		return fmt.Errorf("%w: %s takes %d, got %d", ErrArityMismatch, op.Callee, len(op.Params), len(op.Args))
	}

	// resolve arguments in the caller before any parameter is bound
	type binding struct {
		param string
		lit   *expr.Literal
		src   string
		local bool
	}
	bindings := make([]binding, len(op.Params))
	for i, p := range op.Params {
		b := binding{param: domain.ScopedName(op.Callee, p)}
		switch arg := op.Args[i].(type) {
		case *expr.Literal:
			b.lit = arg
		case *expr.Identifier:
			b.src = sc.resolve(arg.Name)
			b.local = b.src != arg.Name
		default:
			return fmt.Errorf("%w: %s", ErrUnsupportedArgument, arg)
		}
		bindings[i] = b
	}

	for _, b := range bindings {
		e.registry.AddLocal(op.Callee, b.param)
	}
	for _, b := range bindings {
		if _, err := s.declare(b.param); err != nil {
			return err
		}
		var err error
		switch {
		case b.lit != nil:
			err = s.assignConstant(b.param, b.lit)
		case op.Caller == op.Callee && b.local:
			// a recursive call passing its own locals: an earlier binding
			// may already have overwritten the source, so leave it unknown
		default:
			err = s.assignVariable(b.src, b.param)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) functionReturn(s *State, sc *scope, op *cfa.FunctionReturn) error {
	ret := domain.ReturnVariable(op.Callee)
	if _, err := e.ensureDeclared(ret); err != nil {
		return err
	}

	keep := ""
	switch op.Site.Kind {
	case cfa.CallAssign:
		dst := sc.resolve(op.Site.Target)
		if err := s.assignVariable(ret, dst); err != nil {
			return err
		}
		keep = dst
	case cfa.CallIgnore:
	default:
		return fmt.Errorf("%w: %s result used as %s", ErrUnsupportedCallUsage, op.Callee, op.Site.Kind)
	}

	// leave the callee's scope
	locals := e.registry.Locals(op.Callee)
	out := make([]string, 0, len(locals)+1)
	for _, name := range locals {
		if name != keep {
			out = append(out, name)
		}
	}
	if ret != keep {
		out = append(out, ret)
	}
	s.forget(out...)
	return nil
}

// ensureDeclared declares name without touching any state.
func (e *Engine) ensureDeclared(name string) (*domain.Variable, error) {
	v, _, err := e.registry.Declare(name, e.policy.MaxDomainSize())
	return v, err
}
