package policyeval

import "fmt"

// ExpressionSyntaxError reports malformed expression text. Surfaced to the
// policy author at validation time; blocks save.
type ExpressionSyntaxError struct {
	Expression string
	Position   int
	Message    string
}

func (e *ExpressionSyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d in %q: %s", e.Position, e.Expression, e.Message)
}

// Reference kinds used by ExpressionReferenceError
const (
	RefFunction = "function"
	RefTag      = "tag"
	RefTeam     = "team"
	RefRole     = "role"
)

// ExpressionReferenceError reports a named function, tag, team or role that
// does not exist. Surfaced with the offending name; blocks save.
type ExpressionReferenceError struct {
	Kind string
	Name string
	Err  error
}

func (e *ExpressionReferenceError) Error() string {
	return fmt.Sprintf("unknown %s: %s", e.Kind, e.Name)
}

func (e *ExpressionReferenceError) Unwrap() error { return e.Err }

// AccessCheckError wraps a predicate failure during live evaluation. It is
// never recovered locally; the caller must treat the access check as deny.
type AccessCheckError struct {
	Predicate string
	Err       error
}

func (e *AccessCheckError) Error() string {
	return fmt.Sprintf("predicate %s failed: %v", e.Predicate, e.Err)
}

func (e *AccessCheckError) Unwrap() error { return e.Err }

// PageFetchError wraps a backing-store failure during page assembly. The
// listing caller never receives a partial page in its place.
type PageFetchError struct {
	Op  string
	Err error
}

func (e *PageFetchError) Error() string {
	return fmt.Sprintf("page fetch failed during %s: %v", e.Op, e.Err)
}

func (e *PageFetchError) Unwrap() error { return e.Err }
