package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RunID identifies one benchmark run. Runs are keyed by UUID in the store.
type RunID string

// NewRunID creates a new time-ordered run identifier
func NewRunID() RunID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return RunID(id.String())
}

func (id RunID) String() string { return string(id) }

// IsEmpty checks if the ID is empty
func (id RunID) IsEmpty() bool { return id == "" }

// ParseRunID validates s as a UUID and returns it in canonical form
func ParseRunID(s string) (RunID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRunID)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidRunID, s, err)
	}
	return RunID(id.String()), nil
}

// ParseRunIDs parses every id, failing on the first invalid one
func ParseRunIDs(raw []string) ([]RunID, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no run ids given", ErrInvalidRunID)
	}
	ids := make([]RunID, 0, len(raw))
	for _, s := range raw {
		id, err := ParseRunID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RunIDStrings converts ids for driver-level array binding
func RunIDStrings(ids []RunID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
