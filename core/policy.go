package core

import (
	"fmt"
	"sort"
)

// PolicyEntry is the desired severity for a single rule, as curated in the
// external policy workbook.
type PolicyEntry struct {
	RuleID      int    `json:"id" yaml:"id" validate:"required,gt=0"`
	TargetLevel int    `json:"level" yaml:"level" validate:"gte=0,lte=16"`
	Note        string `json:"note,omitempty" yaml:"note,omitempty"`
	// Collection is the source collection the entry was read from or
	// generated for. Informational; matching is by rule id only.
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
}

// PolicyTable is the externally-curated overlay of desired levels, keyed by
// rule id. Tables are built whole and replaced whole; there are no partial
// in-place edits, which keeps provenance simple.
type PolicyTable struct {
	entries map[int]PolicyEntry
}

// NewPolicyTable builds a table from entries. A duplicate rule id is a
// ParseError: two desired levels for one rule cannot be ordered.
func NewPolicyTable(entries []PolicyEntry) (*PolicyTable, error) {
	t := &PolicyTable{entries: make(map[int]PolicyEntry, len(entries))}
	for _, entry := range entries {
		if prev, ok := t.entries[entry.RuleID]; ok {
			return nil, &ParseError{
				Collection: entry.Collection,
				RuleID:     entry.RuleID,
				Reason: fmt.Sprintf("duplicate policy entry (levels %d and %d)",
					prev.TargetLevel, entry.TargetLevel),
			}
		}
		t.entries[entry.RuleID] = entry
	}
	return t, nil
}

// Get returns the entry for a rule id.
func (t *PolicyTable) Get(id int) (PolicyEntry, error) {
	entry, ok := t.entries[id]
	if !ok {
		return PolicyEntry{}, fmt.Errorf("policy entry %d: %w", id, ErrPolicyEntryNotFound)
	}
	return entry, nil
}

// Contains reports whether the table has an entry for the rule id.
func (t *PolicyTable) Contains(id int) bool {
	_, ok := t.entries[id]
	return ok
}

// Len returns the number of entries.
func (t *PolicyTable) Len() int {
	return len(t.entries)
}

// RuleIDs returns every covered rule id in ascending order.
func (t *PolicyTable) RuleIDs() []int {
	ids := make([]int, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Entries returns the entries ordered by ascending rule id, for reproducible
// file output.
func (t *PolicyTable) Entries() []PolicyEntry {
	out := make([]PolicyEntry, 0, len(t.entries))
	for _, id := range t.RuleIDs() {
		out = append(out, t.entries[id])
	}
	return out
}

// Collections returns the distinct collection names referenced by the
// entries, sorted.
func (t *PolicyTable) Collections() []string {
	seen := make(map[string]struct{})
	for _, entry := range t.entries {
		if entry.Collection != "" {
			seen[entry.Collection] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// GeneratePolicy derives a policy from the model's current state: one entry
// per rule with the effective current level. Exporting this gives reviewers
// a "policy == current state" starting point, and reconciling a model
// against its own generated policy changes nothing.
func GeneratePolicy(m *RuleModel) *PolicyTable {
	entries := make([]PolicyEntry, 0, m.Len())
	for _, id := range m.RuleIDs() {
		rule, err := m.Lookup(id)
		if err != nil {
			continue // unreachable: ids come from the model itself
		}
		entries = append(entries, PolicyEntry{
			RuleID:      id,
			TargetLevel: m.EffectiveLevel(rule),
			Note:        rule.Description,
			Collection:  rule.Collection,
		})
	}
	table, err := NewPolicyTable(entries)
	if err != nil {
		// Model ids are unique by construction, so generated entries are too.
		panic(fmt.Sprintf("generate policy: %v", err))
	}
	return table
}
