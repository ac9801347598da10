// Package report renders diffs and findings as human-readable change lists.
// It is pure formatting: the caller decides the destination.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"rulewarden/core"

	"github.com/fatih/color"
)

// Output formatters, matching the CLI's color conventions.
var (
	headerColor  = color.New(color.FgBlue, color.Bold)
	upColor      = color.New(color.FgGreen)
	downColor    = color.New(color.FgYellow)
	fixColor     = color.New(color.FgCyan)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// kindOrder fixes the section ordering of the rendered diff.
var kindOrder = []core.ChangeKind{
	core.ChangeLevel,
	core.ChangeFieldFixed,
	core.ChangeFieldAdded,
}

// kindTitles maps change kinds to section headings.
var kindTitles = map[core.ChangeKind]string{
	core.ChangeLevel:      "LEVEL CHANGES",
	core.ChangeFieldFixed: "FIXED FIELDS",
	core.ChangeFieldAdded: "ADDED FIELDS",
}

// RenderDiff renders a diff grouped by change kind, one line per record,
// sorted by ascending rule id within each group.
func RenderDiff(diff core.Diff) string {
	if diff.Empty() {
		return "No changes\n"
	}

	var b strings.Builder
	grouped := diff.Sorted().ByKind()

	for _, kind := range kindOrder {
		records := grouped[kind]
		if len(records) == 0 {
			continue
		}
		b.WriteString(headerColor.Sprintf("%s (%d)", kindTitles[kind], len(records)))
		b.WriteByte('\n')
		for _, rec := range records {
			b.WriteString(renderRecord(rec))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	return b.String()
}

// renderRecord renders one change line. Level changes carry an
// upgrade/downgrade marker so reviewers can scan severity drift at a glance.
func renderRecord(rec core.ChangeRecord) string {
	switch rec.Kind {
	case core.ChangeLevel, core.ChangeFieldFixed:
		if rec.Field == core.AttrLevel {
			oldLevel, errOld := strconv.Atoi(rec.Old)
			newLevel, errNew := strconv.Atoi(rec.New)
			if errOld == nil && errNew == nil {
				direction := upColor.Sprint("UPGRADE")
				if newLevel < oldLevel {
					direction = downColor.Sprint("DOWNGRADE")
				}
				return fmt.Sprintf("  rule %d (%s): level %s -> %s %s",
					rec.RuleID, rec.Collection, rec.Old, rec.New, direction)
			}
		}
		return fmt.Sprintf("  rule %d (%s): %s %q -> %q",
			rec.RuleID, rec.Collection, rec.Field, rec.Old, rec.New)
	case core.ChangeFieldAdded:
		return fmt.Sprintf("  rule %d (%s): %s %s",
			rec.RuleID, rec.Collection, rec.Field, fixColor.Sprintf("added %q", rec.New))
	default:
		return fmt.Sprintf("  rule %d (%s): %s unchanged", rec.RuleID, rec.Collection, rec.Field)
	}
}

// RenderFindings renders the findings list, one line per finding, fatal-ish
// kinds first for visibility.
func RenderFindings(findings []core.Finding) string {
	if len(findings) == 0 {
		return "No findings\n"
	}

	var b strings.Builder
	b.WriteString(headerColor.Sprintf("FINDINGS (%d)", len(findings)))
	b.WriteByte('\n')
	for _, f := range findings {
		marker := warningColor.Sprint("WARN")
		switch {
		case f.Fixed:
			marker = fixColor.Sprint("FIXED")
		case f.Kind == core.FindingDuplicateID || f.Kind == core.FindingPolicyMismatch:
			marker = errorColor.Sprint("ERROR")
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", marker, f.String()))
	}
	return b.String()
}

// Summary renders a one-line run summary.
func Summary(diff core.Diff, findings []core.Finding) string {
	return fmt.Sprintf("%d changes, %d findings (%d fixed)",
		len(diff), len(findings), core.CountFixed(findings))
}

// RenderLevelMap renders the computed mapping table for the `levels`
// command, one line per input level.
func RenderLevelMap(oldMax, newMax int, mapFn func(int) int) string {
	var b strings.Builder
	b.WriteString(headerColor.Sprintf("LEVEL MAPPING 0-%d -> 0-%d", oldMax, newMax))
	b.WriteByte('\n')
	for level := 0; level <= oldMax; level++ {
		b.WriteString(fmt.Sprintf("  %2d -> %2d\n", level, mapFn(level)))
	}
	return b.String()
}
