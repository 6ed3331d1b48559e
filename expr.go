package policyeval

import (
	"context"
	"fmt"
	"strings"

	"github.com/oarkflow/policyeval/logger"
)

// EvalContext carries the bound contexts and collaborators for one expression
// evaluation. In validation mode the three contexts are nil by contract and
// refs is consulted for reference checks.
type EvalContext struct {
	Policy   *PolicyContext
	Subject  *SubjectContext
	Resource *ResourceContext

	ctx        context.Context
	validation bool
	refs       ReferenceStore
	logger     logger.Logger
}

// Validation reports whether this evaluation only validates the expression
func (ec *EvalContext) Validation() bool { return ec.validation }

// Context returns the request context for collaborator lookups
func (ec *EvalContext) Context() context.Context {
	if ec.ctx == nil {
		return context.Background()
	}
	return ec.ctx
}

func (ec *EvalContext) debugf(msg string, keyvals ...any) {
	if ec.logger != nil {
		ec.logger.Debug(msg, keyvals...)
	}
}

// Expr is a compiled boolean expression node
type Expr interface {
	Evaluate(ec *EvalContext) (bool, error)
	String() string
}

// CallExpr is a leaf predicate invocation, resolved against the registry at
// parse time.
type CallExpr struct {
	Name string
	Args []string

	fn Predicate
}

func (e *CallExpr) Evaluate(ec *EvalContext) (bool, error) {
	ok, err := e.fn.Evaluate(ec, e.Args)
	if err != nil && !ec.validation {
		return false, &AccessCheckError{Predicate: e.Name, Err: err}
	}
	return ok, err
}

func (e *CallExpr) String() string {
	if len(e.Args) == 0 {
		return e.Name + "()"
	}
	quoted := make([]string, len(e.Args))
	for i, a := range e.Args {
		quoted[i] = "'" + a + "'"
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(quoted, ", "))
}

// NotExpr represents logical negation
type NotExpr struct {
	Expr Expr
}

func (e *NotExpr) Evaluate(ec *EvalContext) (bool, error) {
	v, err := e.Expr.Evaluate(ec)
	if err != nil {
		return false, err
	}
	return !v, nil
}

func (e *NotExpr) String() string {
	return "!" + e.Expr.String()
}

// AndExpr represents logical AND. In validation mode both operands always
// execute so every leaf still performs its reference checks.
type AndExpr struct {
	Left  Expr
	Right Expr
}

func (e *AndExpr) Evaluate(ec *EvalContext) (bool, error) {
	left, err := e.Left.Evaluate(ec)
	if ec.validation {
		right, rerr := e.Right.Evaluate(ec)
		if err == nil {
			err = rerr
		}
		return left && right, err
	}
	if err != nil || !left {
		return false, err
	}
	return e.Right.Evaluate(ec)
}

func (e *AndExpr) String() string {
	return fmt.Sprintf("(%s && %s)", e.Left.String(), e.Right.String())
}

// OrExpr represents logical OR, with the same no-short-circuit contract in
// validation mode as AndExpr.
type OrExpr struct {
	Left  Expr
	Right Expr
}

func (e *OrExpr) Evaluate(ec *EvalContext) (bool, error) {
	left, err := e.Left.Evaluate(ec)
	if ec.validation {
		right, rerr := e.Right.Evaluate(ec)
		if err == nil {
			err = rerr
		}
		return left || right, err
	}
	if err != nil {
		return false, err
	}
	if left {
		return true, nil
	}
	return e.Right.Evaluate(ec)
}

func (e *OrExpr) String() string {
	return fmt.Sprintf("(%s || %s)", e.Left.String(), e.Right.String())
}
