package engine

import (
	"fmt"

	"github.com/linarr/linarr/internal/models"
)

// ReorderRules moves the rule at fromIndex to toIndex and reassigns
// priorities as a dense, strictly descending sequence: the rule at the
// top of the list gets priority len(rules), the bottom gets 1. The move
// is stable: relative order of untouched rules is preserved. The result
// is a new slice, so the caller's ordering survives, but the rule
// structs are shared: on a real move their Priority fields are
// reassigned in place.
//
// A no-op move (fromIndex == toIndex) returns the rules with their
// priorities untouched.
func ReorderRules(rules []*models.AutoResponseRule, fromIndex, toIndex int) ([]*models.AutoResponseRule, error) {
	n := len(rules)
	if fromIndex < 0 || fromIndex >= n {
		return nil, fmt.Errorf("%w: from_index %d with %d rules", ErrIndexOutOfRange, fromIndex, n)
	}
	if toIndex < 0 || toIndex >= n {
		return nil, fmt.Errorf("%w: to_index %d with %d rules", ErrIndexOutOfRange, toIndex, n)
	}

	reordered := make([]*models.AutoResponseRule, n)
	copy(reordered, rules)

	if fromIndex == toIndex {
		return reordered, nil
	}

	moved := reordered[fromIndex]
	reordered = append(reordered[:fromIndex], reordered[fromIndex+1:]...)
	reordered = append(reordered[:toIndex], append([]*models.AutoResponseRule{moved}, reordered[toIndex:]...)...)

	for i, rule := range reordered {
		rule.Priority = n - i
	}

	return reordered, nil
}
