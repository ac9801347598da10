package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for model and policy lookups
var (
	// ErrRuleNotFound is returned when a rule id has no rule in the model
	ErrRuleNotFound = errors.New("rule not found")

	// ErrPolicyEntryNotFound is returned when a rule id has no policy entry
	ErrPolicyEntryNotFound = errors.New("policy entry not found")

	// ErrEmptyModel is returned when a load produces no rules at all
	ErrEmptyModel = errors.New("no rules loaded")
)

// ParseError is a fatal malformed-input error from an adapter. It identifies
// the offending record so the user can find it in the source file. Nothing
// downstream of a ParseError can be trusted, so callers abort the run.
type ParseError struct {
	Collection string // source collection (file) name, if known
	RuleID     int    // offending rule id, 0 if not applicable
	Reason     string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch {
	case e.Collection != "" && e.RuleID != 0:
		return fmt.Sprintf("parse error in %s (rule %d): %s", e.Collection, e.RuleID, e.Reason)
	case e.Collection != "":
		return fmt.Sprintf("parse error in %s: %s", e.Collection, e.Reason)
	case e.RuleID != 0:
		return fmt.Sprintf("parse error (rule %d): %s", e.RuleID, e.Reason)
	default:
		return fmt.Sprintf("parse error: %s", e.Reason)
	}
}
