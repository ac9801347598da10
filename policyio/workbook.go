// Package policyio reads and writes the external policy table formats: the
// review workbook (one worksheet per rule collection), a JSON mapping of
// rule id to target level, and a YAML dump of the full table.
package policyio

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"rulewarden/core"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// maxWorkbookSize bounds the policy workbook - protection against memory
// exhaustion from a bad path argument.
const maxWorkbookSize = 10 * 1024 * 1024 // 10MB

// workbook column headers, in write order. Readers map columns by header
// name, so reviewers may reorder or append columns without breaking import.
var workbookHeaders = []string{"id", "level", "note"}

var validate = validator.New()

// WriteWorkbook writes the policy table as a review workbook: one worksheet
// per source collection, a header row, one row per entry in ascending rule
// id order.
func WriteWorkbook(path string, table *core.PolicyTable) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	byCollection := make(map[string][]core.PolicyEntry)
	for _, entry := range table.Entries() {
		name := entry.Collection
		if name == "" {
			name = "unassigned_rules.xml"
		}
		byCollection[name] = append(byCollection[name], entry)
	}

	// Iterate the buckets, not table.Collections(): entries with no source
	// collection land on the fallback sheet and must still be written.
	names := make([]string, 0, len(byCollection))
	for name := range byCollection {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entries := byCollection[name]
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create worksheet %s: %w", name, err)
		}
		for col, header := range workbookHeaders {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return fmt.Errorf("worksheet %s: %w", name, err)
			}
			if err := f.SetCellValue(name, cell, header); err != nil {
				return fmt.Errorf("worksheet %s: %w", name, err)
			}
		}
		for row, entry := range entries {
			values := []interface{}{entry.RuleID, entry.TargetLevel, entry.Note}
			for col, value := range values {
				cell, err := excelize.CoordinatesToCellName(col+1, row+2)
				if err != nil {
					return fmt.Errorf("worksheet %s: %w", name, err)
				}
				if err := f.SetCellValue(name, cell, value); err != nil {
					return fmt.Errorf("worksheet %s: %w", name, err)
				}
			}
		}
	}

	// Drop the default sheet excelize creates.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default worksheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("write policy workbook: %w", err)
	}
	return nil
}

// ReadWorkbook parses a policy workbook back into a PolicyTable. Worksheets
// whose name does not end in .xml are skipped with a finding; rows without
// both id and level are skipped with a finding; a duplicate rule id or an
// out-of-range level makes the table structurally unusable and is fatal.
func ReadWorkbook(path string, log *zap.SugaredLogger) (*core.PolicyTable, []core.Finding, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("stat policy workbook: %w", err)
	}
	if info.Size() > maxWorkbookSize {
		return nil, nil, fmt.Errorf("policy workbook exceeds maximum size of %d bytes", maxWorkbookSize)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open policy workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var (
		entries  []core.PolicyEntry
		findings []core.Finding
	)

	for _, sheet := range f.GetSheetList() {
		if !strings.HasSuffix(sheet, ".xml") {
			findings = append(findings, core.Finding{
				Kind:       core.FindingSkippedWorksheet,
				Collection: sheet,
				Message:    "skipping worksheet: name does not end with .xml",
			})
			log.Warnw("Skipping worksheet", "sheet", sheet, "reason", "name does not end with .xml")
			continue
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, nil, fmt.Errorf("read worksheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		headers := rows[0]
		for rowIdx, row := range rows[1:] {
			entry, ok := parseRow(headers, row, sheet)
			if !ok {
				findings = append(findings, core.Finding{
					Kind:       core.FindingMissingField,
					Collection: sheet,
					Message:    fmt.Sprintf("row %d has no id and level, skipping", rowIdx+2),
				})
				continue
			}
			if err := validate.Struct(entry); err != nil {
				return nil, nil, &core.ParseError{
					Collection: sheet,
					RuleID:     entry.RuleID,
					Reason:     fmt.Sprintf("invalid policy row %d: %v", rowIdx+2, err),
				}
			}
			entries = append(entries, entry)
		}
	}

	table, err := core.NewPolicyTable(entries)
	if err != nil {
		return nil, nil, err
	}
	log.Infow("Policy read", "collections", len(table.Collections()), "rules", table.Len())
	return table, findings, nil
}

// parseRow maps one worksheet row onto a PolicyEntry by header name. Rows
// lacking an integer id or level are rejected.
func parseRow(headers, row []string, sheet string) (core.PolicyEntry, bool) {
	entry := core.PolicyEntry{Collection: sheet}
	haveID, haveLevel := false, false

	for col, value := range row {
		if col >= len(headers) || strings.TrimSpace(value) == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(headers[col])) {
		case "id":
			id, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return core.PolicyEntry{}, false
			}
			entry.RuleID = id
			haveID = true
		case "level":
			level, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return core.PolicyEntry{}, false
			}
			entry.TargetLevel = level
			haveLevel = true
		case "note", "description":
			entry.Note = value
		}
	}

	return entry, haveID && haveLevel
}

// FixupPriorities assigns priorities to policy collections whose filename
// carries no numeric prefix: each gets the first free slot above the highest
// existing priority, in steps of 100 so reviewers can slot collections in
// between later.
func FixupPriorities(table *core.PolicyTable) (map[string]int, []core.Finding) {
	highest := 0
	var unprioritized []string

	for _, name := range table.Collections() {
		col, err := core.CollectionFromFilename(name)
		if err != nil || !col.HasPriority {
			unprioritized = append(unprioritized, name)
			continue
		}
		if col.Priority > highest {
			highest = col.Priority
		}
	}

	assigned := make(map[string]int, len(unprioritized))
	var findings []core.Finding
	for _, name := range unprioritized {
		highest += 100
		assigned[name] = highest
		findings = append(findings, core.Finding{
			Kind:       core.FindingCollectionPriority,
			Collection: name,
			Message:    fmt.Sprintf("collection had no priority, assigning first available %d", highest),
			Fixable:    true,
			Fixed:      true,
		})
	}
	return assigned, findings
}
