// Package reconcile applies a policy table onto a rule model, producing a
// new model plus a structured diff of every change.
package reconcile

import (
	"fmt"
	"math"
	"strconv"

	"rulewarden/core"

	"go.uber.org/zap"
)

// LevelMap compresses the severity range for rules not covered by an
// explicit policy entry, mapping the customary 0-OldMax scale down to
// 0-NewMax.
type LevelMap struct {
	OldMax int
	NewMax int
}

// Map computes the compressed level for one input level. Levels at or below
// 1 map to themselves so "never alert" rules stay silent.
func (lm LevelMap) Map(level int) int {
	if level <= 1 {
		return level
	}
	mapped := math.Round(float64(level-1) / float64(lm.OldMax-1) * float64(lm.NewMax-1))
	return int(mapped) + 1
}

// Options controls optional reconciliation behavior beyond the policy table
// itself.
type Options struct {
	// LevelMap, when set, rewrites levels of rules with no policy entry.
	// When nil, an absent entry means the rule is unchanged.
	LevelMap *LevelMap
	// Overwrite stamps overwrite="yes" on every rule whose level was
	// patched, so the generated rules shadow the stock ones when loaded
	// alongside them.
	Overwrite bool
}

// Result is the outcome of one reconciliation run.
type Result struct {
	Model    *core.RuleModel
	Diff     core.Diff
	Findings []core.Finding
}

// Reconcile applies the policy onto the model. For every rule, in ascending
// rule id order:
//   - no policy entry and no level map: unchanged, no diff entry
//   - no policy entry with a level map: level rewritten to the computed
//     mapping, recorded in the diff and flagged as a finding
//   - entry matching the effective current level: unchanged
//   - entry with a different level: level rewritten, recorded as
//     level_changed
//
// Policy entries referencing rule ids absent from the model become
// policy_mismatch findings, distinct from the diff: they usually signal a
// stale policy file or a renumbered rule, and are never silently dropped.
// The input model is never mutated.
func Reconcile(m *core.RuleModel, policy *core.PolicyTable, opts Options, log *zap.SugaredLogger) (*Result, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	var (
		changes  []core.Change
		diff     core.Diff
		findings []core.Finding
	)

	for _, id := range m.RuleIDs() {
		rule, err := m.Lookup(id)
		if err != nil {
			return nil, fmt.Errorf("reconcile rule %d: %w", id, err)
		}
		oldLevel := m.EffectiveLevel(rule)

		newLevel := oldLevel
		kind := core.ChangeLevel
		covered := policy.Contains(id)

		switch {
		case covered:
			entry, err := policy.Get(id)
			if err != nil {
				return nil, fmt.Errorf("reconcile rule %d: %w", id, err)
			}
			newLevel = entry.TargetLevel
		case opts.LevelMap != nil:
			newLevel = opts.LevelMap.Map(oldLevel)
			if newLevel != oldLevel {
				findings = append(findings, core.Finding{
					Kind:       core.FindingLevelMapped,
					RuleID:     id,
					Collection: rule.Collection,
					Field:      core.AttrLevel,
					Message: fmt.Sprintf("no policy entry, applying computed mapping %d -> %d",
						oldLevel, newLevel),
				})
			}
		}

		if newLevel == oldLevel {
			continue // no-ops are not reported; the diff shows changes only
		}

		changes = append(changes, core.Change{
			RuleID: id,
			Field:  core.AttrLevel,
			Value:  strconv.Itoa(newLevel),
		})
		diff = append(diff, core.ChangeRecord{
			RuleID:     id,
			Collection: rule.Collection,
			Field:      core.AttrLevel,
			Old:        strconv.Itoa(oldLevel),
			New:        strconv.Itoa(newLevel),
			Kind:       kind,
		})

		if opts.Overwrite && !rule.Overwrite {
			changes = append(changes, core.Change{
				RuleID: id,
				Field:  core.AttrOverwrite,
				Value:  "yes",
			})
			diff = append(diff, core.ChangeRecord{
				RuleID:     id,
				Collection: rule.Collection,
				Field:      core.AttrOverwrite,
				Old:        "",
				New:        "yes",
				Kind:       core.ChangeFieldAdded,
			})
		}
	}

	// Policy entries with no corresponding rule.
	for _, id := range policy.RuleIDs() {
		if m.Contains(id) {
			continue
		}
		entry, err := policy.Get(id)
		if err != nil {
			return nil, fmt.Errorf("reconcile policy entry %d: %w", id, err)
		}
		findings = append(findings, core.Finding{
			Kind:       core.FindingPolicyMismatch,
			RuleID:     id,
			Collection: entry.Collection,
			Message:    "policy entry references a rule id absent from the model",
		})
	}

	next := m
	if len(changes) > 0 {
		var err error
		next, err = m.WithChanges(changes)
		if err != nil {
			return nil, fmt.Errorf("apply reconciliation changes: %w", err)
		}
	}

	log.Infow("Reconciliation complete",
		"rules", m.Len(),
		"policy_entries", policy.Len(),
		"changes", len(diff),
		"findings", len(findings))

	return &Result{Model: next, Diff: diff.Sorted(), Findings: findings}, nil
}
