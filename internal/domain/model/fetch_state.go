package model

// FetchState is the lifecycle state of a single lookup/fetch attempt.
type FetchState int

const (
	// StateIdle is the state before the cache has been consulted.
	StateIdle FetchState = iota
	// StateLoading means the cache missed and a fetch is in flight.
	StateLoading
	// StateLoaded means bytes are available, either from a tier or a fetch.
	StateLoaded
	// StateFailed means the fetch failed and no bytes were produced.
	StateFailed
)

// String returns the string representation of the state.
func (s FetchState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can happen.
func (s FetchState) IsTerminal() bool {
	return s == StateLoaded || s == StateFailed
}
