package ingest

import (
	"fmt"
	"strconv"
	"strings"
)

// State is the position of a run in its lifecycle.
type State int32

const (
	StateBuilt State = iota
	StateFetching
	StateFetched
	StatePersisting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateFetching:
		return "fetching"
	case StateFetched:
		return "fetched"
	case StatePersisting:
		return "persisting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Stage names where a failed run stopped.
type Stage string

const (
	StageNone    Stage = ""
	StageFetch   Stage = "fetch"
	StagePersist Stage = "persist"
)

// ParseDimension parses the caller-supplied vector width. Anything that is not
// a 32-bit integer yields 0 together with the parse error.
func ParseDimension(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parsing dimension %q: %w", s, err)
	}
	return int(n), nil
}
