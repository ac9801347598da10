package core

import "fmt"

// Finding is a detected structural inconsistency. Findings are non-fatal:
// they accumulate and are reported alongside whatever fixed or reconciled
// output is still produced. Fixable findings are repaired only when fixing
// is enabled; Fixed records whether the repair actually happened.
type Finding struct {
	Kind       FindingKind `json:"kind"`
	RuleID     int         `json:"rule_id,omitempty"`
	Collection string      `json:"collection,omitempty"`
	Field      string      `json:"field,omitempty"`
	Message    string      `json:"message"`
	Fixable    bool        `json:"fixable"`
	Fixed      bool        `json:"fixed"`
}

// String renders the finding for logs and reports.
func (f Finding) String() string {
	where := ""
	if f.Collection != "" {
		where = " in " + f.Collection
	}
	if f.RuleID != 0 {
		return fmt.Sprintf("[%s] rule %d%s: %s", f.Kind, f.RuleID, where, f.Message)
	}
	return fmt.Sprintf("[%s]%s: %s", f.Kind, where, f.Message)
}

// CountFixed returns how many findings in the list were repaired.
func CountFixed(findings []Finding) int {
	n := 0
	for _, f := range findings {
		if f.Fixed {
			n++
		}
	}
	return n
}
