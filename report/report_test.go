package report

import (
	"strings"
	"testing"

	"rulewarden/core"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func init() {
	// Keep rendered output free of ANSI escapes in tests.
	color.NoColor = true
}

func TestRenderDiff_Empty(t *testing.T) {
	assert.Equal(t, "No changes\n", RenderDiff(core.Diff{}))
}

func TestRenderDiff_GroupedAndSorted(t *testing.T) {
	diff := core.Diff{
		{RuleID: 5700, Collection: "0020-sshd_rules.xml", Field: core.AttrLevel, Old: "5", New: "9", Kind: core.ChangeLevel},
		{RuleID: 1002, Collection: "0010-syslog_rules.xml", Field: core.AttrLevel, Old: "7", New: "3", Kind: core.ChangeLevel},
		{RuleID: 1003, Collection: "0010-syslog_rules.xml", Field: core.FieldDescription, New: "Rule 1003", Kind: core.ChangeFieldAdded},
	}

	out := RenderDiff(diff)

	assert.Contains(t, out, "LEVEL CHANGES (2)")
	assert.Contains(t, out, "ADDED FIELDS (1)")

	// Ascending rule id within the level section.
	first := strings.Index(out, "rule 1002")
	second := strings.Index(out, "rule 5700")
	assert.Greater(t, second, first)

	// Direction markers.
	assert.Contains(t, out, "level 7 -> 3 DOWNGRADE")
	assert.Contains(t, out, "level 5 -> 9 UPGRADE")
	assert.Contains(t, out, `description added "Rule 1003"`)
}

func TestRenderFindings(t *testing.T) {
	findings := []core.Finding{
		{Kind: core.FindingLevelOutOfRange, RuleID: 1002, Message: "level 99 outside valid range 0-16", Fixable: true, Fixed: true},
		{Kind: core.FindingPolicyMismatch, RuleID: 99999, Message: "policy entry references a rule id absent from the model"},
		{Kind: core.FindingDanglingReference, RuleID: 1003, Message: "if_sid references rule 77777 which does not exist"},
	}

	out := RenderFindings(findings)
	assert.Contains(t, out, "FINDINGS (3)")
	assert.Contains(t, out, "FIXED [level_out_of_range] rule 1002")
	assert.Contains(t, out, "ERROR [policy_mismatch] rule 99999")
	assert.Contains(t, out, "WARN [dangling_reference] rule 1003")
}

func TestRenderFindings_Empty(t *testing.T) {
	assert.Equal(t, "No findings\n", RenderFindings(nil))
}

func TestSummary(t *testing.T) {
	diff := core.Diff{{RuleID: 1}}
	findings := []core.Finding{{Fixed: true}, {}}
	assert.Equal(t, "1 changes, 2 findings (1 fixed)", Summary(diff, findings))
}

func TestRenderLevelMap(t *testing.T) {
	out := RenderLevelMap(15, 10, func(l int) int { return l })
	assert.Contains(t, out, "LEVEL MAPPING 0-15 -> 0-10")
	assert.Contains(t, out, " 15 -> 15")
}
