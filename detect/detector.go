// Package detect scans a rule model for structural inconsistencies and
// optionally repairs the fixable subset.
package detect

import (
	"fmt"
	"strconv"

	"rulewarden/core"
	"rulewarden/util"

	"go.uber.org/zap"
)

// Config controls detection bounds and the fix policy.
type Config struct {
	// LevelMin and LevelMax bound the valid severity range.
	LevelMin int
	LevelMax int
	// Fix enables repairs. Detection always runs; fixing is a toggle on
	// top of it, not a separate mode.
	Fix bool
	// ClampLevels clamps out-of-range levels to the nearest bound. When
	// false, DefaultLevel is applied instead.
	ClampLevels bool
	// DefaultLevel replaces out-of-range levels when ClampLevels is false.
	DefaultLevel int
	// DescriptionPrefix seeds synthesized descriptions for rules that have
	// none, e.g. "Rule 1002".
	DescriptionPrefix string
}

// DefaultConfig returns the detection defaults matching the Wazuh level
// scale.
func DefaultConfig() Config {
	return Config{
		LevelMin:          core.LevelMin,
		LevelMax:          core.LevelMax,
		ClampLevels:       true,
		DefaultLevel:      3,
		DescriptionPrefix: "Rule",
	}
}

// Detector validates a RuleModel against the structural rules and produces
// findings plus an optionally-repaired model.
type Detector struct {
	cfg      Config
	log      *zap.SugaredLogger
	patterns *util.PatternValidator
}

// New creates a Detector.
func New(cfg Config, log *zap.SugaredLogger) *Detector {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Detector{
		cfg:      cfg,
		log:      log,
		patterns: util.NewPatternValidator(),
	}
}

// Scan checks every rule independently and returns all findings together
// with the fixed model and the changes that produced it. Findings are always
// returned even when fixing is disabled. The fixer is strictly corrective:
// it never deletes a rule, so the fixed model always has the same rule count
// as the input.
func (d *Detector) Scan(m *core.RuleModel) ([]core.Finding, *core.RuleModel, core.Diff, error) {
	var (
		findings []core.Finding
		changes  []core.Change
		diff     core.Diff
	)

	findings = append(findings, d.checkDuplicateIDs(m)...)
	findings = append(findings, d.checkCollectionPriorities(m)...)

	for _, id := range m.RuleIDs() {
		rule, err := m.Lookup(id)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("scan rule %d: %w", id, err)
		}

		if f, change, ok := d.checkLevel(m, rule); ok {
			findings = append(findings, f)
			if d.cfg.Fix {
				changes = append(changes, change)
				diff = append(diff, core.ChangeRecord{
					RuleID:     rule.ID,
					Collection: rule.Collection,
					Field:      core.AttrLevel,
					Old:        strconv.Itoa(m.EffectiveLevel(rule)),
					New:        change.Value,
					Kind:       core.ChangeFieldFixed,
				})
			}
		}

		if f, change, ok := d.checkDescription(rule); ok {
			findings = append(findings, f)
			if d.cfg.Fix {
				changes = append(changes, change)
				diff = append(diff, core.ChangeRecord{
					RuleID:     rule.ID,
					Collection: rule.Collection,
					Field:      core.FieldDescription,
					Old:        "",
					New:        change.Value,
					Kind:       core.ChangeFieldAdded,
				})
			}
		}

		// Dangling references are reported but never fixed: rewriting a
		// dependency reference is a semantic decision that risks altering
		// detection behavior.
		findings = append(findings, d.checkReferences(m, rule)...)

		// Broken match patterns are likewise report-only.
		findings = append(findings, d.checkPatterns(rule)...)
	}

	fixed := m
	if len(changes) > 0 {
		next, err := m.WithChanges(changes)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("apply fixes: %w", err)
		}
		fixed = next
		d.log.Infow("Applied fixes", "changes", len(changes), "findings", len(findings))
	}

	return findings, fixed, diff.Sorted(), nil
}

// checkDuplicateIDs re-asserts the load-time uniqueness invariant. Load
// already rejects duplicates, so this is a no-op check kept for defense in
// depth.
func (d *Detector) checkDuplicateIDs(m *core.RuleModel) []core.Finding {
	seen := make(map[int]struct{}, m.Len())
	var findings []core.Finding
	for _, rule := range m.Rules() {
		if _, ok := seen[rule.ID]; ok {
			findings = append(findings, core.Finding{
				Kind:       core.FindingDuplicateID,
				RuleID:     rule.ID,
				Collection: rule.Collection,
				Message:    "duplicate rule id survived load",
			})
			continue
		}
		seen[rule.ID] = struct{}{}
	}
	return findings
}

// checkCollectionPriorities reports collections whose filename carries no
// numeric priority prefix. The repair (assigning the next free priority)
// belongs to the policy adapter, which owns the workbook ordering.
func (d *Detector) checkCollectionPriorities(m *core.RuleModel) []core.Finding {
	var findings []core.Finding
	for _, col := range m.Collections() {
		if !col.HasPriority {
			findings = append(findings, core.Finding{
				Kind:       core.FindingCollectionPriority,
				Collection: col.Filename,
				Message:    "collection filename has no numeric priority prefix",
				Fixable:    true,
			})
		}
	}
	return findings
}

// checkLevel reports an effective level outside the valid range and builds
// the corrective change.
func (d *Detector) checkLevel(m *core.RuleModel, rule core.Rule) (core.Finding, core.Change, bool) {
	level := m.EffectiveLevel(rule)
	if level >= d.cfg.LevelMin && level <= d.cfg.LevelMax {
		return core.Finding{}, core.Change{}, false
	}

	repaired := d.cfg.DefaultLevel
	if d.cfg.ClampLevels {
		repaired = d.cfg.LevelMin
		if level > d.cfg.LevelMax {
			repaired = d.cfg.LevelMax
		}
	}

	finding := core.Finding{
		Kind:       core.FindingLevelOutOfRange,
		RuleID:     rule.ID,
		Collection: rule.Collection,
		Field:      core.AttrLevel,
		Message: fmt.Sprintf("level %d outside valid range %d-%d",
			level, d.cfg.LevelMin, d.cfg.LevelMax),
		Fixable: true,
		Fixed:   d.cfg.Fix,
	}
	change := core.Change{RuleID: rule.ID, Field: core.AttrLevel, Value: strconv.Itoa(repaired)}
	return finding, change, true
}

// checkDescription reports a rule with no description and builds the
// synthesized replacement.
func (d *Detector) checkDescription(rule core.Rule) (core.Finding, core.Change, bool) {
	if rule.Description != "" {
		return core.Finding{}, core.Change{}, false
	}

	finding := core.Finding{
		Kind:       core.FindingMissingField,
		RuleID:     rule.ID,
		Collection: rule.Collection,
		Field:      core.FieldDescription,
		Message:    "rule has no description",
		Fixable:    true,
		Fixed:      d.cfg.Fix,
	}
	change := core.Change{
		RuleID: rule.ID,
		Field:  core.FieldDescription,
		Value:  fmt.Sprintf("%s %d", d.cfg.DescriptionPrefix, rule.ID),
	}
	return finding, change, true
}

// checkReferences reports if_sid references to rule ids absent from the
// corpus.
func (d *Detector) checkReferences(m *core.RuleModel, rule core.Rule) []core.Finding {
	var findings []core.Finding
	for _, ref := range rule.IfSID {
		if !m.Contains(ref) {
			findings = append(findings, core.Finding{
				Kind:       core.FindingDanglingReference,
				RuleID:     rule.ID,
				Collection: rule.Collection,
				Field:      core.FieldIfSID,
				Message:    fmt.Sprintf("if_sid references rule %d which does not exist", ref),
			})
		}
	}
	return findings
}

// patternFields are the rule fields that carry regex patterns worth
// validating.
var patternFields = []string{"regex", "match"}

// checkPatterns validates the rule's match patterns for safety.
func (d *Detector) checkPatterns(rule core.Rule) []core.Finding {
	var findings []core.Finding
	for _, field := range patternFields {
		pattern, ok := rule.Fields[field]
		if !ok || pattern == "" {
			continue
		}
		if err := d.patterns.ValidatePattern(pattern); err != nil {
			findings = append(findings, core.Finding{
				Kind:       core.FindingUnsafeRegex,
				RuleID:     rule.ID,
				Collection: rule.Collection,
				Field:      field,
				Message:    err.Error(),
			})
		}
	}
	return findings
}
