package policyio

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"rulewarden/core"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// policySchema validates the JSON policy format: an object mapping rule id
// to target level.
const policySchema = `{
	"type": "object",
	"patternProperties": {
		"^[0-9]+$": {"type": "integer", "minimum": 0, "maximum": 16}
	},
	"additionalProperties": false
}`

// ExportJSON serializes the policy table as a JSON object mapping rule id to
// target level, with keys sorted so output is reproducible.
func ExportJSON(table *core.PolicyTable) ([]byte, error) {
	levels := make(map[string]int, table.Len())
	for _, entry := range table.Entries() {
		levels[strconv.Itoa(entry.RuleID)] = entry.TargetLevel
	}
	data, err := json.MarshalIndent(levels, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("export policy JSON: %w", err)
	}
	return data, nil
}

// ImportJSON parses and validates a JSON policy document. The document is
// checked against the policy schema before decoding, so a malformed table is
// rejected with every violation named rather than failing on the first
// decode error.
func ImportJSON(data []byte) (*core.PolicyTable, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(policySchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validate policy JSON: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, &core.ParseError{
			Reason: "policy JSON does not match schema: " + strings.Join(details, "; "),
		}
	}

	var levels map[string]int
	if err := json.Unmarshal(data, &levels); err != nil {
		return nil, fmt.Errorf("decode policy JSON: %w", err)
	}

	ids := make([]int, 0, len(levels))
	byID := make(map[int]int, len(levels))
	for idStr, level := range levels {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			// Unreachable: the schema only admits integer keys.
			return nil, &core.ParseError{Reason: fmt.Sprintf("policy key %q is not a rule id", idStr)}
		}
		ids = append(ids, id)
		byID[id] = level
	}
	sort.Ints(ids)

	entries := make([]core.PolicyEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, core.PolicyEntry{RuleID: id, TargetLevel: byID[id]})
	}
	return core.NewPolicyTable(entries)
}

// ExportYAML serializes the full policy table, entries in ascending rule id
// order.
func ExportYAML(table *core.PolicyTable) ([]byte, error) {
	doc := struct {
		Rules []core.PolicyEntry `yaml:"rules"`
	}{Rules: table.Entries()}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("export policy YAML: %w", err)
	}
	return data, nil
}
