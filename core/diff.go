package core

import "sort"

// ChangeRecord describes one actual change made during fixing or
// reconciliation. Old and New carry the source-format string representation
// of the field.
type ChangeRecord struct {
	RuleID     int        `json:"rule_id"`
	Collection string     `json:"collection,omitempty"`
	Field      string     `json:"field"`
	Old        string     `json:"old_value"`
	New        string     `json:"new_value"`
	Kind       ChangeKind `json:"change_kind"`
}

// Diff is the ordered list of changes produced by one fixing or
// reconciliation pass. No-ops are omitted: the diff's purpose is to show
// changes only. A Diff is produced fresh per run and never mutated after the
// run completes.
type Diff []ChangeRecord

// Sorted returns a copy ordered by ascending rule id, with field name as the
// tie-break for rules touched more than once. Reporting always goes through
// this so output is deterministic even if a future version parallelizes
// per-rule processing.
func (d Diff) Sorted() Diff {
	out := append(Diff(nil), d...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RuleID != out[j].RuleID {
			return out[i].RuleID < out[j].RuleID
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// Empty reports whether the diff contains no changes.
func (d Diff) Empty() bool {
	return len(d) == 0
}

// ByKind groups the records by change kind, preserving record order within
// each kind.
func (d Diff) ByKind() map[ChangeKind]Diff {
	out := make(map[ChangeKind]Diff)
	for _, rec := range d {
		out[rec.Kind] = append(out[rec.Kind], rec)
	}
	return out
}
