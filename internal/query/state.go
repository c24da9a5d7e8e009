package query

// State is where an execution ended up. Every execution starts Compiled,
// moves to Searching, and finishes in exactly one of Found, Absent or
// Empty.
type State int

const (
	StateCompiled State = iota
	StateSearching
	StateFound
	StateAbsent
	StateEmpty
)

func (s State) String() string {
	switch s {
	case StateCompiled:
		return "compiled"
	case StateSearching:
		return "searching"
	case StateFound:
		return "found"
	case StateAbsent:
		return "absent"
	case StateEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends an execution.
func (s State) Terminal() bool {
	return s == StateFound || s == StateAbsent || s == StateEmpty
}
