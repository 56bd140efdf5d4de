package engine

import (
	"errors"
	"fmt"
)

// ConfigurationError indicates a persisted rule is structurally invalid
// at evaluation time (e.g. unknown response type). The rule is skipped
// and logged rather than aborting evaluation of the remaining rule set.
type ConfigurationError struct {
	RuleID string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("rule %s misconfigured: %s", e.RuleID, e.Reason)
}

// Common engine errors.
var (
	// ErrIndexOutOfRange indicates a reorder index outside the rule list.
	ErrIndexOutOfRange = errors.New("reorder index out of range")

	// ErrFriendNotFound indicates the requesting friend does not exist.
	ErrFriendNotFound = errors.New("friend not found")
)
