// Package util provides small shared helpers for rulewarden.
package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Constants for regex validation
const (
	// MaxPatternLength is the maximum allowed pattern length in a rule's
	// match or regex field.
	MaxPatternLength = 500
	// DefaultCompileTimeout bounds the probe match used to verify a
	// pattern terminates.
	DefaultCompileTimeout = 100 * time.Millisecond
	// maxAlternations bounds the number of '|' branches in one pattern.
	maxAlternations = 50
)

// PatternValidator validates match-field regex patterns for safety. Rules
// carry attacker-visible patterns (they match log content), so a pattern
// that cannot compile or that exhibits catastrophic backtracking is a
// structural inconsistency worth reporting.
type PatternValidator struct {
	maxLength int
	timeout   time.Duration
}

// NewPatternValidator creates a validator with default limits.
func NewPatternValidator() *PatternValidator {
	return &PatternValidator{
		maxLength: MaxPatternLength,
		timeout:   DefaultCompileTimeout,
	}
}

// ValidatePattern validates a single pattern. It returns nil when the
// pattern is syntactically valid and passes the safety checks.
func (pv *PatternValidator) ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("pattern cannot be empty")
	}

	if len(pattern) > pv.maxLength {
		return fmt.Errorf("pattern too long: %d characters (max %d)", len(pattern), pv.maxLength)
	}

	if err := checkNestedQuantifiers(pattern); err != nil {
		return err
	}

	if n := strings.Count(pattern, "|"); n > maxAlternations {
		return fmt.Errorf("too many alternations: %d (max %d)", n, maxAlternations)
	}

	// Validate syntax by compiling with the timeout-capable engine.
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	re.MatchTimeout = pv.timeout

	// Probe match: a pattern that cannot scan a short input within the
	// timeout would stall the detection engine on real logs.
	if _, err := re.MatchString("rulewarden pattern probe input"); err != nil {
		return fmt.Errorf("pattern failed probe match: %w", err)
	}

	return nil
}

// checkNestedQuantifiers rejects quantifier stacking known to cause
// catastrophic backtracking.
func checkNestedQuantifiers(pattern string) error {
	dangerous := []string{
		")+*", ")*+", ")+{", ")*{",
		"}+*", "}*+", "}+{", "}*{",
		"++", "**", "*+", "+*",
	}
	for _, d := range dangerous {
		if strings.Contains(pattern, d) {
			return fmt.Errorf("pattern contains nested quantifiers which may cause ReDoS: found %q", d)
		}
	}
	return nil
}
