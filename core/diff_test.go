package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff_Sorted(t *testing.T) {
	diff := Diff{
		{RuleID: 5700, Field: AttrLevel, Kind: ChangeLevel},
		{RuleID: 1001, Field: FieldDescription, Kind: ChangeFieldAdded},
		{RuleID: 1001, Field: AttrLevel, Kind: ChangeFieldFixed},
	}

	sorted := diff.Sorted()
	assert.Equal(t, 1001, sorted[0].RuleID)
	assert.Equal(t, AttrLevel, sorted[0].Field)
	assert.Equal(t, 1001, sorted[1].RuleID)
	assert.Equal(t, 5700, sorted[2].RuleID)

	// Original order untouched.
	assert.Equal(t, 5700, diff[0].RuleID)
}

func TestDiff_ByKind(t *testing.T) {
	diff := Diff{
		{RuleID: 1, Kind: ChangeLevel},
		{RuleID: 2, Kind: ChangeFieldFixed},
		{RuleID: 3, Kind: ChangeLevel},
	}

	grouped := diff.ByKind()
	assert.Len(t, grouped[ChangeLevel], 2)
	assert.Len(t, grouped[ChangeFieldFixed], 1)
	assert.Empty(t, grouped[ChangeFieldAdded])
}

func TestDiff_Empty(t *testing.T) {
	assert.True(t, Diff{}.Empty())
	assert.False(t, Diff{{RuleID: 1}}.Empty())
}

func TestChangeKind_IsValid(t *testing.T) {
	assert.True(t, ChangeLevel.IsValid())
	assert.True(t, ChangeNoOp.IsValid())
	assert.False(t, ChangeKind("renamed").IsValid())
}

func TestFindingKind_IsValid(t *testing.T) {
	assert.True(t, FindingDanglingReference.IsValid())
	assert.False(t, FindingKind("cosmetic").IsValid())
}

func TestFinding_String(t *testing.T) {
	f := Finding{
		Kind:       FindingLevelOutOfRange,
		RuleID:     1002,
		Collection: "0010-syslog_rules.xml",
		Message:    "level 99 above maximum 16",
	}
	assert.Equal(t, "[level_out_of_range] rule 1002 in 0010-syslog_rules.xml: level 99 above maximum 16", f.String())
}
