package models

import (
	"errors"
	"fmt"
)

// ErrValidation represents a validation error with field and message.
type ErrValidation struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ErrValidation) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Common validation errors for models.
var (
	// ErrNameRequired indicates a required name field is empty.
	ErrNameRequired = errors.New("name is required")

	// ErrTenantIDRequired indicates a required tenant ID field is zero.
	ErrTenantIDRequired = errors.New("tenant_id is required")

	// ErrFriendIDRequired indicates a required friend ID field is zero.
	ErrFriendIDRequired = errors.New("friend_id is required")

	// ErrRuleIDRequired indicates a required rule ID field is zero.
	ErrRuleIDRequired = errors.New("rule_id is required")

	// ErrKeywordsRequired indicates a keyword rule has an empty keyword list.
	ErrKeywordsRequired = errors.New("at least one keyword is required")

	// ErrLineUserIDRequired indicates a required LINE user ID field is empty.
	ErrLineUserIDRequired = errors.New("line_user_id is required")
)
