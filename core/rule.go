package core

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Attribute and field names the engine inspects. Everything else flows
// through the opaque bags untouched.
const (
	AttrID        = "id"
	AttrLevel     = "level"
	AttrOverwrite = "overwrite"
	FieldDescription = "description"
	FieldIfSID       = "if_sid"
	FieldGroup       = "group"
)

// Rule is a single detection definition with a numeric identity and severity
// level. The typed fields cover what the engine inspects; Attrs and Fields
// preserve everything else from the source format verbatim.
type Rule struct {
	ID          int      `json:"id"`
	Level       int      `json:"level"`
	HasLevel    bool     `json:"has_level"`
	Description string   `json:"description,omitempty"`
	IfSID       []int    `json:"if_sid,omitempty"`
	Groups      []string `json:"groups,omitempty"`
	Overwrite   bool     `json:"overwrite,omitempty"`

	// Group is the identifier of the owning RuleGroup.
	Group string `json:"group"`
	// Collection is the name of the source collection (rules file).
	Collection string `json:"collection"`

	// Attrs holds XML attributes the engine does not inspect.
	Attrs map[string]string `json:"attrs,omitempty"`
	// Fields holds child element values the engine does not inspect.
	Fields map[string]string `json:"fields,omitempty"`
}

// GetID returns the rule id.
func (r Rule) GetID() int {
	return r.ID
}

// GetDescription returns the rule description.
func (r Rule) GetDescription() string {
	return r.Description
}

// Clone returns a deep copy of the rule. Transformations copy before they
// write so the source model stays untouched.
func (r Rule) Clone() Rule {
	out := r
	if r.IfSID != nil {
		out.IfSID = append([]int(nil), r.IfSID...)
	}
	if r.Groups != nil {
		out.Groups = append([]string(nil), r.Groups...)
	}
	if r.Attrs != nil {
		out.Attrs = make(map[string]string, len(r.Attrs))
		for k, v := range r.Attrs {
			out.Attrs[k] = v
		}
	}
	if r.Fields != nil {
		out.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// Equal reports whether two rules are structurally identical across every
// field, including the opaque bags.
func (r Rule) Equal(other Rule) bool {
	if r.ID != other.ID || r.Level != other.Level || r.HasLevel != other.HasLevel ||
		r.Description != other.Description || r.Overwrite != other.Overwrite ||
		r.Group != other.Group || r.Collection != other.Collection {
		return false
	}
	if len(r.IfSID) != len(other.IfSID) || len(r.Groups) != len(other.Groups) ||
		len(r.Attrs) != len(other.Attrs) || len(r.Fields) != len(other.Fields) {
		return false
	}
	for i, v := range r.IfSID {
		if other.IfSID[i] != v {
			return false
		}
	}
	for i, v := range r.Groups {
		if other.Groups[i] != v {
			return false
		}
	}
	for k, v := range r.Attrs {
		if other.Attrs[k] != v {
			return false
		}
	}
	for k, v := range r.Fields {
		if other.Fields[k] != v {
			return false
		}
	}
	return true
}

// RuleGroup is a named collection of rules sharing inheritable defaults. The
// identifier is qualified by the owning collection because Wazuh reuses group
// names across files.
type RuleGroup struct {
	// Name is the group identifier, unique within the corpus
	// ("collection/name").
	Name string `json:"name"`
	// Collection is the owning rules file.
	Collection string `json:"collection"`
	// Tags is the comma-separated tag list from the group's name attribute.
	Tags []string `json:"tags,omitempty"`
	// DefaultLevel applies to member rules that declare no level.
	DefaultLevel    int  `json:"default_level,omitempty"`
	HasDefaultLevel bool `json:"has_default_level,omitempty"`
}

// Collection identifies one source rules file and the ordering metadata
// derived from its name.
type Collection struct {
	// Filename is the source file base name, e.g. "0016-wazuh_rules.xml".
	Filename string `json:"filename"`
	// Name is derived from the filename, e.g. "wazuh".
	Name string `json:"name"`
	// Priority is the numeric prefix from the filename, when present.
	Priority    int  `json:"priority,omitempty"`
	HasPriority bool `json:"has_priority,omitempty"`
}

// collectionPattern matches the customary NNNN-name_rules.xml convention.
var collectionPattern = regexp.MustCompile(`^(\d+)-([\w-]+)\.xml$`)

// bareCollectionPattern matches a rules file with no priority prefix.
var bareCollectionPattern = regexp.MustCompile(`^[\w-]+\.xml$`)

// CollectionFromFilename derives a Collection from a rules file name.
// "0016-wazuh_rules.xml" yields name "wazuh" with priority 16; a bare
// "local_rules.xml" yields name "local" with no priority.
func CollectionFromFilename(filename string) (Collection, error) {
	if m := collectionPattern.FindStringSubmatch(filename); m != nil {
		priority, err := strconv.Atoi(m[1])
		if err != nil {
			return Collection{}, &ParseError{Collection: filename, Reason: fmt.Sprintf("invalid priority prefix: %v", err)}
		}
		name := strings.TrimSuffix(m[2], "_rules")
		return Collection{Filename: filename, Name: name, Priority: priority, HasPriority: true}, nil
	}
	if bareCollectionPattern.MatchString(filename) {
		name := strings.TrimSuffix(strings.TrimSuffix(filename, ".xml"), "_rules")
		return Collection{Filename: filename, Name: name}, nil
	}
	return Collection{}, &ParseError{
		Collection: filename,
		Reason:     "collection name does not follow the 0000-name_rules.xml convention",
	}
}

// RawRule is the adapter-facing record consumed by Load: a bag of XML
// attributes plus a bag of child element values.
type RawRule struct {
	Attrs  map[string]string
	Fields map[string]string
}

// RawGroup is one <group> element: its attribute bag and member rules in
// source order.
type RawGroup struct {
	Name  string
	Attrs map[string]string
	Rules []RawRule
}

// RawCollection is one rules file as produced by the XML adapter.
type RawCollection struct {
	Filename string
	Groups   []RawGroup
}

// EffectiveRule is a rule with its inherited attributes resolved: explicit
// rule value if present, else group default, else the documented fallback.
type EffectiveRule struct {
	Rule        Rule
	Level       int
	Description string
}

// parseRule converts a raw record into a typed Rule. The fields the engine
// inspects are lifted out of the bags; everything else stays in place.
func parseRule(raw RawRule, group, collection string) (Rule, error) {
	idStr, ok := raw.Attrs[AttrID]
	if !ok || strings.TrimSpace(idStr) == "" {
		return Rule{}, &ParseError{Collection: collection, Reason: "rule without mandatory id attribute"}
	}
	id, err := strconv.Atoi(strings.TrimSpace(idStr))
	if err != nil {
		return Rule{}, &ParseError{Collection: collection, Reason: fmt.Sprintf("rule id %q is not an integer", idStr)}
	}

	rule := Rule{
		ID:         id,
		Group:      group,
		Collection: collection,
	}

	if levelStr, ok := raw.Attrs[AttrLevel]; ok && strings.TrimSpace(levelStr) != "" {
		level, err := strconv.Atoi(strings.TrimSpace(levelStr))
		if err != nil {
			return Rule{}, &ParseError{Collection: collection, RuleID: id, Reason: fmt.Sprintf("level %q is not an integer", levelStr)}
		}
		rule.Level = level
		rule.HasLevel = true
	}

	if ov, ok := raw.Attrs[AttrOverwrite]; ok {
		rule.Overwrite = ov == "yes" || ov == "true"
	}

	rule.Description = raw.Fields[FieldDescription]

	if ifSID, ok := raw.Fields[FieldIfSID]; ok && strings.TrimSpace(ifSID) != "" {
		refs, err := parseSIDList(ifSID)
		if err != nil {
			return Rule{}, &ParseError{Collection: collection, RuleID: id, Reason: fmt.Sprintf("invalid if_sid: %v", err)}
		}
		rule.IfSID = refs
	}

	if groups, ok := raw.Fields[FieldGroup]; ok {
		rule.Groups = splitTags(groups)
	}

	// Preserve everything the engine does not inspect.
	for k, v := range raw.Attrs {
		if k == AttrID || k == AttrLevel || k == AttrOverwrite {
			continue
		}
		if rule.Attrs == nil {
			rule.Attrs = make(map[string]string)
		}
		rule.Attrs[k] = v
	}
	for k, v := range raw.Fields {
		if k == FieldDescription || k == FieldIfSID || k == FieldGroup {
			continue
		}
		if rule.Fields == nil {
			rule.Fields = make(map[string]string)
		}
		rule.Fields[k] = v
	}

	return rule, nil
}

// parseSIDList parses a comma-separated rule id list such as "5700,5701".
func parseSIDList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	refs := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ref, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not a rule id", part)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// splitTags splits a Wazuh comma-separated tag list, dropping empties from
// the customary trailing comma.
func splitTags(s string) []string {
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			tags = append(tags, part)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// sortedIDs returns the keys of a rule index in ascending order. Every pass
// over the corpus iterates in this order so output is reproducible
// regardless of internal storage order.
func sortedIDs(byID map[int]int) []int {
	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
