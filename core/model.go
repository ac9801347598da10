package core

import (
	"fmt"
	"strconv"
)

// RuleModel is an immutable snapshot of a rule corpus. It is constructed once
// per run from the XML adapter's raw records and never mutated; every change
// is expressed by building a new model through WithChanges.
type RuleModel struct {
	collections []Collection
	groups      []RuleGroup
	rules       []Rule      // source order
	byID        map[int]int // rule id -> index into rules
}

// Load builds a RuleModel from the adapter's raw collections. Duplicate rule
// ids are rejected immediately with a ParseError: identity is ambiguous and
// cannot be repaired silently, and everything downstream keys off the id.
func Load(raw []RawCollection) (*RuleModel, error) {
	m := &RuleModel{byID: make(map[int]int)}

	for _, rawCol := range raw {
		col, err := CollectionFromFilename(rawCol.Filename)
		if err != nil {
			return nil, err
		}
		m.collections = append(m.collections, col)

		for _, rawGroup := range rawCol.Groups {
			group := RuleGroup{
				Name:       rawCol.Filename + "/" + rawGroup.Name,
				Collection: rawCol.Filename,
				Tags:       splitTags(rawGroup.Name),
			}
			if levelStr, ok := rawGroup.Attrs[AttrLevel]; ok {
				level, err := strconv.Atoi(levelStr)
				if err != nil {
					return nil, &ParseError{
						Collection: rawCol.Filename,
						Reason:     fmt.Sprintf("group %q default level %q is not an integer", rawGroup.Name, levelStr),
					}
				}
				group.DefaultLevel = level
				group.HasDefaultLevel = true
			}
			m.groups = append(m.groups, group)

			for _, rawRule := range rawGroup.Rules {
				rule, err := parseRule(rawRule, group.Name, rawCol.Filename)
				if err != nil {
					return nil, err
				}
				if prev, ok := m.byID[rule.ID]; ok {
					return nil, &ParseError{
						Collection: rawCol.Filename,
						RuleID:     rule.ID,
						Reason: fmt.Sprintf("duplicate rule id (first seen in %s)",
							m.rules[prev].Collection),
					}
				}
				m.byID[rule.ID] = len(m.rules)
				m.rules = append(m.rules, rule)
			}
		}
	}

	if len(m.rules) == 0 {
		return nil, fmt.Errorf("load: %w", ErrEmptyModel)
	}
	return m, nil
}

// Len returns the number of rules in the model.
func (m *RuleModel) Len() int {
	return len(m.rules)
}

// NumCollections returns the number of source collections.
func (m *RuleModel) NumCollections() int {
	return len(m.collections)
}

// Collections returns the source collections in load order.
func (m *RuleModel) Collections() []Collection {
	return append([]Collection(nil), m.collections...)
}

// Groups returns the rule groups in load order.
func (m *RuleModel) Groups() []RuleGroup {
	return append([]RuleGroup(nil), m.groups...)
}

// Rules returns the rules in source order. The slice is a copy; the model
// itself cannot be modified through it.
func (m *RuleModel) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	for i, r := range m.rules {
		out[i] = r.Clone()
	}
	return out
}

// RuleIDs returns every rule id in ascending order.
func (m *RuleModel) RuleIDs() []int {
	return sortedIDs(m.byID)
}

// Lookup returns the rule with the given id, or ErrRuleNotFound.
func (m *RuleModel) Lookup(id int) (Rule, error) {
	idx, ok := m.byID[id]
	if !ok {
		return Rule{}, fmt.Errorf("lookup rule %d: %w", id, ErrRuleNotFound)
	}
	return m.rules[idx].Clone(), nil
}

// Contains reports whether a rule with the given id exists.
func (m *RuleModel) Contains(id int) bool {
	_, ok := m.byID[id]
	return ok
}

// group returns the named group, if it exists.
func (m *RuleModel) group(name string) (RuleGroup, bool) {
	for _, g := range m.groups {
		if g.Name == name {
			return g, true
		}
	}
	return RuleGroup{}, false
}

// Resolve applies the inheritance order to produce the rule's effective
// attributes: the explicit rule value if present, else the group default,
// else the documented fallback. A rule with no resolvable group skips
// straight to the fallback defaults.
//
// TODO: confirm against the Wazuh rule format specification whether a
// standalone rule (no group) should inherit anything else.
func (m *RuleModel) Resolve(r Rule) EffectiveRule {
	eff := EffectiveRule{Rule: r, Level: FallbackLevel, Description: r.Description}
	switch {
	case r.HasLevel:
		eff.Level = r.Level
	default:
		if g, ok := m.group(r.Group); ok && g.HasDefaultLevel {
			eff.Level = g.DefaultLevel
		}
	}
	return eff
}

// EffectiveLevel is shorthand for Resolve(r).Level.
func (m *RuleModel) EffectiveLevel(r Rule) int {
	return m.Resolve(r).Level
}

// Change is a single field rewrite applied by WithChanges.
type Change struct {
	RuleID int
	Field  string // AttrLevel, AttrOverwrite or FieldDescription
	Value  string
}

// WithChanges returns a new model with the given changes applied. The
// receiver is never modified and the rule count is always preserved; an
// unknown rule id or field is an error rather than a silent drop.
func (m *RuleModel) WithChanges(changes []Change) (*RuleModel, error) {
	next := &RuleModel{
		collections: append([]Collection(nil), m.collections...),
		groups:      append([]RuleGroup(nil), m.groups...),
		rules:       make([]Rule, len(m.rules)),
		byID:        make(map[int]int, len(m.byID)),
	}
	for i, r := range m.rules {
		next.rules[i] = r.Clone()
	}
	for id, idx := range m.byID {
		next.byID[id] = idx
	}

	for _, change := range changes {
		idx, ok := next.byID[change.RuleID]
		if !ok {
			return nil, fmt.Errorf("apply change to rule %d: %w", change.RuleID, ErrRuleNotFound)
		}
		rule := &next.rules[idx]
		switch change.Field {
		case AttrLevel:
			level, err := strconv.Atoi(change.Value)
			if err != nil {
				return nil, fmt.Errorf("apply change to rule %d: level %q is not an integer", change.RuleID, change.Value)
			}
			rule.Level = level
			rule.HasLevel = true
		case AttrOverwrite:
			rule.Overwrite = change.Value == "yes" || change.Value == "true"
		case FieldDescription:
			rule.Description = change.Value
		default:
			return nil, fmt.Errorf("apply change to rule %d: unknown field %q", change.RuleID, change.Field)
		}
	}

	return next, nil
}
