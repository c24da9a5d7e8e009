package errors

import crdb "github.com/cockroachdb/errors"

// Sentinels for the query error taxonomy. Every error raised by the query
// path wraps exactly one of these, so Is works through any wrapping.
var (
	// ErrMalformedQuery: wrong arity, unresolvable variable declarations or
	// a self-contradictory clause shape.
	ErrMalformedQuery = New("malformed query")

	// ErrDisconnectedPattern: the pattern splits into components with no
	// shared variables and strict connectivity was requested.
	ErrDisconnectedPattern = New("disconnected pattern")

	// ErrSearchTimeout: the search deadline or step budget was exhausted.
	ErrSearchTimeout = New("search timeout")
)

// Code is a stable identifier for an error category, used in CLI output and
// scenario expectations.
type Code string

const (
	CodeMalformedQuery      Code = "MALFORMED_QUERY"
	CodeDisconnectedPattern Code = "DISCONNECTED_PATTERN"
	CodeSearchTimeout       Code = "SEARCH_TIMEOUT"
	CodeInternal            Code = "INTERNAL"
)

// MalformedQueryf returns an error that Is ErrMalformedQuery.
func MalformedQueryf(format string, args ...any) error {
	return crdb.Wrapf(ErrMalformedQuery, format, args...)
}

// DisconnectedPatternf returns an error that Is ErrDisconnectedPattern.
func DisconnectedPatternf(format string, args ...any) error {
	return crdb.Wrapf(ErrDisconnectedPattern, format, args...)
}

// SearchTimeout wraps the cause (usually a context error) and marks it, so
// the result Is both ErrSearchTimeout and the cause.
func SearchTimeout(cause error, format string, args ...any) error {
	if cause == nil {
		return crdb.Wrapf(ErrSearchTimeout, format, args...)
	}
	return crdb.Mark(crdb.Wrapf(cause, format, args...), ErrSearchTimeout)
}

// IsMalformedQuery reports whether err is in the malformed query category.
func IsMalformedQuery(err error) bool {
	return crdb.Is(err, ErrMalformedQuery)
}

// IsDisconnectedPattern reports whether err is in the disconnected pattern category.
func IsDisconnectedPattern(err error) bool {
	return crdb.Is(err, ErrDisconnectedPattern)
}

// IsSearchTimeout reports whether err is in the search timeout category.
func IsSearchTimeout(err error) bool {
	return crdb.Is(err, ErrSearchTimeout)
}

// CodeOf maps an error onto its taxonomy code. Nil yields the empty code.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return ""
	case IsMalformedQuery(err):
		return CodeMalformedQuery
	case IsDisconnectedPattern(err):
		return CodeDisconnectedPattern
	case IsSearchTimeout(err):
		return CodeSearchTimeout
	default:
		return CodeInternal
	}
}
