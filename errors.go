package loom

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind enumerates the error taxonomy of spec.md §7.
type ErrorKind int

const (
	// ErrWiring marks a parameter that could not be resolved to a
	// provider, a default, or an auto-wired constructor.
	ErrWiring ErrorKind = iota
	// ErrDependencyCycle marks a cycle discovered while walking the
	// dependency tree.
	ErrDependencyCycle
	// ErrUnknownScope marks a Marker or Provider naming a scope the
	// Container was never given.
	ErrUnknownScope
	// ErrScopeViolation marks a dependent living in an outer scope that
	// depends on one living in an inner scope.
	ErrScopeViolation
	// ErrSolving wraps any other failure raised while building a plan
	// (a panicking Introspector, a malformed Provider, and similar).
	ErrSolving
	// ErrDuplicateScope marks a Container given the same Scope name
	// twice in its declared scope order.
	ErrDuplicateScope
	// ErrIncompatibleDependency marks a parameter whose declared type
	// cannot accept the value its resolved dependent produces.
	ErrIncompatibleDependency
)

func (k ErrorKind) String() string {
	switch k {
	case ErrWiring:
		return "wiring"
	case ErrDependencyCycle:
		return "dependency cycle"
	case ErrUnknownScope:
		return "unknown scope"
	case ErrScopeViolation:
		return "scope violation"
	case ErrSolving:
		return "solving"
	case ErrDuplicateScope:
		return "duplicate scope"
	case ErrIncompatibleDependency:
		return "incompatible dependency"
	default:
		return "unknown error"
	}
}

// SolveError is the concrete error type raised by Container.Solve and
// the scope-validation pass that follows it. Kind lets callers branch
// on the taxonomy of spec.md §7 without string matching.
type SolveError struct {
	Kind ErrorKind
	Path []string // dependent chain, root first, for diagnostics
	Site string   // caller that triggered Solve, per frame.go
	msg  string
	err  error
}

func (e *SolveError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("loom: %s: %s (at %s)", e.Kind, e.msg, e.Site)
	}
	return fmt.Sprintf("loom: %s: %s (path: %s) (at %s)", e.Kind, e.msg, joinPath(e.Path), e.Site)
}

func (e *SolveError) Unwrap() error { return e.err }

func joinPath(path []string) string {
	out := path[0]
	for _, p := range path[1:] {
		out += " -> " + p
	}
	return out
}

func newSolveError(kind ErrorKind, path []string, format string, args ...interface{}) *SolveError {
	return &SolveError{
		Kind: kind,
		Path: append([]string(nil), path...),
		Site: getCaller(defaultFrameSkipper),
		msg:  fmt.Sprintf(format, args...),
	}
}

func wrapSolveError(kind ErrorKind, path []string, cause error, format string, args ...interface{}) *SolveError {
	return &SolveError{
		Kind: kind,
		Path: append([]string(nil), path...),
		Site: getCaller(defaultFrameSkipper),
		msg:  fmt.Sprintf(format, args...),
		err:  errors.WithStack(cause),
	}
}

// IsKind reports whether err is, or wraps, a *SolveError of the given
// kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *SolveError
	for err != nil {
		if s, ok := err.(*SolveError); ok {
			se = s
			break
		}
		err = errors.Unwrap(err)
	}
	return se != nil && se.Kind == kind
}
