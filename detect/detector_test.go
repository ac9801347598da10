package detect

import (
	"testing"

	"rulewarden/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corpus() []core.RawCollection {
	return []core.RawCollection{
		{
			Filename: "0010-syslog_rules.xml",
			Groups: []core.RawGroup{
				{
					Name:  "syslog,",
					Attrs: map[string]string{},
					Rules: []core.RawRule{
						{
							Attrs:  map[string]string{"id": "1001", "level": "2"},
							Fields: map[string]string{"description": "Generic syslog message"},
						},
						{
							Attrs:  map[string]string{"id": "1002", "level": "99"},
							Fields: map[string]string{"description": "Way too severe"},
						},
						{
							Attrs:  map[string]string{"id": "1003", "level": "4"},
							Fields: map[string]string{"if_sid": "77777"},
						},
					},
				},
			},
		},
	}
}

func load(t *testing.T, raw []core.RawCollection) *core.RuleModel {
	t.Helper()
	m, err := core.Load(raw)
	require.NoError(t, err)
	return m
}

func findingsOfKind(findings []core.Finding, kind core.FindingKind) []core.Finding {
	var out []core.Finding
	for _, f := range findings {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

func TestScan_RangeClamp(t *testing.T) {
	m := load(t, corpus())

	cfg := DefaultConfig()
	cfg.Fix = true
	detector := New(cfg, nil)

	findings, fixed, diff, err := detector.Scan(m)
	require.NoError(t, err)

	// Level 99 above max 16 gets a finding and is clamped to 16.
	outOfRange := findingsOfKind(findings, core.FindingLevelOutOfRange)
	require.Len(t, outOfRange, 1)
	assert.Equal(t, 1002, outOfRange[0].RuleID)
	assert.True(t, outOfRange[0].Fixed)

	rule, err := fixed.Lookup(1002)
	require.NoError(t, err)
	assert.Equal(t, 16, rule.Level)

	// The fix shows up in the diff as field_fixed.
	fixedRecs := diff.ByKind()[core.ChangeFieldFixed]
	require.Len(t, fixedRecs, 1)
	assert.Equal(t, "99", fixedRecs[0].Old)
	assert.Equal(t, "16", fixedRecs[0].New)

	// Nothing was deleted.
	assert.Equal(t, m.Len(), fixed.Len())
}

func TestScan_DefaultLevelInsteadOfClamp(t *testing.T) {
	m := load(t, corpus())

	cfg := DefaultConfig()
	cfg.Fix = true
	cfg.ClampLevels = false
	cfg.DefaultLevel = 5
	detector := New(cfg, nil)

	_, fixed, _, err := detector.Scan(m)
	require.NoError(t, err)

	rule, err := fixed.Lookup(1002)
	require.NoError(t, err)
	assert.Equal(t, 5, rule.Level)
}

func TestScan_FindingsWithoutFixing(t *testing.T) {
	m := load(t, corpus())

	detector := New(DefaultConfig(), nil) // Fix disabled
	findings, fixed, diff, err := detector.Scan(m)
	require.NoError(t, err)

	// Findings are always produced; fixing is a toggle, not a mode switch.
	assert.NotEmpty(t, findingsOfKind(findings, core.FindingLevelOutOfRange))
	assert.NotEmpty(t, findingsOfKind(findings, core.FindingMissingField))

	// Without fixing the model passes through untouched and the diff is empty.
	rule, err := fixed.Lookup(1002)
	require.NoError(t, err)
	assert.Equal(t, 99, rule.Level)
	assert.True(t, diff.Empty())
}

func TestScan_MissingDescriptionSynthesized(t *testing.T) {
	m := load(t, corpus())

	cfg := DefaultConfig()
	cfg.Fix = true
	detector := New(cfg, nil)

	findings, fixed, diff, err := detector.Scan(m)
	require.NoError(t, err)

	missing := findingsOfKind(findings, core.FindingMissingField)
	require.Len(t, missing, 1)
	assert.Equal(t, 1003, missing[0].RuleID)

	rule, err := fixed.Lookup(1003)
	require.NoError(t, err)
	assert.Equal(t, "Rule 1003", rule.Description)

	added := diff.ByKind()[core.ChangeFieldAdded]
	require.Len(t, added, 1)
	assert.Equal(t, core.FieldDescription, added[0].Field)
}

func TestScan_DanglingReferenceNeverFixed(t *testing.T) {
	m := load(t, corpus())

	cfg := DefaultConfig()
	cfg.Fix = true
	detector := New(cfg, nil)

	findings, fixed, _, err := detector.Scan(m)
	require.NoError(t, err)

	dangling := findingsOfKind(findings, core.FindingDanglingReference)
	require.Len(t, dangling, 1)
	assert.Equal(t, 1003, dangling[0].RuleID)
	assert.False(t, dangling[0].Fixable)
	assert.False(t, dangling[0].Fixed)

	// The reference survives untouched in the fixed model.
	rule, err := fixed.Lookup(1003)
	require.NoError(t, err)
	assert.Equal(t, []int{77777}, rule.IfSID)
}

func TestScan_UnsafeRegexReported(t *testing.T) {
	raw := corpus()
	raw[0].Groups[0].Rules = append(raw[0].Groups[0].Rules, core.RawRule{
		Attrs:  map[string]string{"id": "1004", "level": "3"},
		Fields: map[string]string{"description": "Broken pattern", "regex": "([unclosed"},
	})
	m := load(t, raw)

	detector := New(DefaultConfig(), nil)
	findings, _, _, err := detector.Scan(m)
	require.NoError(t, err)

	unsafe := findingsOfKind(findings, core.FindingUnsafeRegex)
	require.Len(t, unsafe, 1)
	assert.Equal(t, 1004, unsafe[0].RuleID)
	assert.Equal(t, "regex", unsafe[0].Field)
}

func TestScan_NoDuplicatesAfterLoad(t *testing.T) {
	m := load(t, corpus())
	detector := New(DefaultConfig(), nil)

	findings, _, _, err := detector.Scan(m)
	require.NoError(t, err)
	assert.Empty(t, findingsOfKind(findings, core.FindingDuplicateID))
}

func TestScan_CollectionPriorityFinding(t *testing.T) {
	raw := corpus()
	raw = append(raw, core.RawCollection{
		Filename: "local_rules.xml",
		Groups: []core.RawGroup{
			{
				Name:  "local,",
				Attrs: map[string]string{},
				Rules: []core.RawRule{
					{Attrs: map[string]string{"id": "100100", "level": "3"},
						Fields: map[string]string{"description": "Local rule"}},
				},
			},
		},
	})
	m := load(t, raw)

	detector := New(DefaultConfig(), nil)
	findings, _, _, err := detector.Scan(m)
	require.NoError(t, err)

	priority := findingsOfKind(findings, core.FindingCollectionPriority)
	require.Len(t, priority, 1)
	assert.Equal(t, "local_rules.xml", priority[0].Collection)
}
