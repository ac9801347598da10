package policyio

import (
	"testing"

	"rulewarden/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON_RoundTrip(t *testing.T) {
	data, err := ExportJSON(table(t))
	require.NoError(t, err)

	got, err := ImportJSON(data)
	require.NoError(t, err)

	assert.Equal(t, []int{1001, 1002, 5700}, got.RuleIDs())
	entry, err := got.Get(5700)
	require.NoError(t, err)
	assert.Equal(t, 5, entry.TargetLevel)
}

func TestImportJSON_SchemaViolations(t *testing.T) {
	cases := map[string]string{
		"level above range": `{"1001": 99}`,
		"non-integer level": `{"1001": "high"}`,
		"non-numeric key":   `{"rule-1001": 5}`,
		"array not object":  `[1001, 5]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ImportJSON([]byte(doc))
			var parseErr *core.ParseError
			if assert.Error(t, err) {
				assert.ErrorAs(t, err, &parseErr)
			}
		})
	}
}

func TestImportJSON_NotJSON(t *testing.T) {
	_, err := ImportJSON([]byte("id,level\n1001,5"))
	assert.Error(t, err)
}

func TestExportYAML(t *testing.T) {
	data, err := ExportYAML(table(t))
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "rules:")
	assert.Contains(t, text, "id: 1001")
	assert.Contains(t, text, "level: 7")
	assert.Contains(t, text, "collection: 0020-sshd_rules.xml")
}
