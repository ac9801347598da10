package policyio

import (
	"path/filepath"
	"testing"

	"rulewarden/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func table(t *testing.T) *core.PolicyTable {
	t.Helper()
	table, err := core.NewPolicyTable([]core.PolicyEntry{
		{RuleID: 1001, TargetLevel: 2, Note: "Generic syslog message", Collection: "0010-syslog_rules.xml"},
		{RuleID: 1002, TargetLevel: 7, Note: "Bad words", Collection: "0010-syslog_rules.xml"},
		{RuleID: 5700, TargetLevel: 5, Note: "SSHD messages grouped", Collection: "0020-sshd_rules.xml"},
	})
	require.NoError(t, err)
	return table
}

func TestWorkbook_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.xlsx")
	require.NoError(t, WriteWorkbook(path, table(t)))

	got, findings, err := ReadWorkbook(path, nil)
	require.NoError(t, err)
	assert.Empty(t, findings)

	assert.Equal(t, []int{1001, 1002, 5700}, got.RuleIDs())

	entry, err := got.Get(1002)
	require.NoError(t, err)
	assert.Equal(t, 7, entry.TargetLevel)
	assert.Equal(t, "Bad words", entry.Note)
	assert.Equal(t, "0010-syslog_rules.xml", entry.Collection)
}

func TestWorkbook_EntriesWithoutCollection(t *testing.T) {
	// A JSON-imported table carries no collection names; writing it out
	// must not lose any entry.
	mixed, err := core.NewPolicyTable([]core.PolicyEntry{
		{RuleID: 1001, TargetLevel: 4},
		{RuleID: 1002, TargetLevel: 7, Note: "Bad words", Collection: "0010-syslog_rules.xml"},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "policy.xlsx")
	require.NoError(t, WriteWorkbook(path, mixed))

	got, findings, err := ReadWorkbook(path, nil)
	require.NoError(t, err)
	assert.Empty(t, findings)

	assert.Equal(t, []int{1001, 1002}, got.RuleIDs())

	entry, err := got.Get(1001)
	require.NoError(t, err)
	assert.Equal(t, 4, entry.TargetLevel)
	assert.Equal(t, "unassigned_rules.xml", entry.Collection)
}

func TestReadWorkbook_SkipsNonXMLSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.xlsx")

	f := excelize.NewFile()
	_, err := f.NewSheet("notes")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("notes", "A1", "scratch"))
	_, err = f.NewSheet("0010-syslog_rules.xml")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("0010-syslog_rules.xml", "A1", "id"))
	require.NoError(t, f.SetCellValue("0010-syslog_rules.xml", "B1", "level"))
	require.NoError(t, f.SetCellValue("0010-syslog_rules.xml", "A2", 1001))
	require.NoError(t, f.SetCellValue("0010-syslog_rules.xml", "B2", 4))
	require.NoError(t, f.DeleteSheet("Sheet1"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, findings, err := ReadWorkbook(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, got.Len())
	require.Len(t, findings, 1)
	assert.Equal(t, core.FindingSkippedWorksheet, findings[0].Kind)
	assert.Equal(t, "notes", findings[0].Collection)
}

func TestReadWorkbook_RowWithoutIDAndLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.xlsx")

	f := excelize.NewFile()
	sheet := "0010-syslog_rules.xml"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(sheet, "A1", "id"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "level"))
	require.NoError(t, f.SetCellValue(sheet, "A2", 1001))
	require.NoError(t, f.SetCellValue(sheet, "B2", 4))
	require.NoError(t, f.SetCellValue(sheet, "A3", "")) // level-less stray row
	require.NoError(t, f.SetCellValue(sheet, "B3", ""))
	require.NoError(t, f.SetCellValue(sheet, "C3", "orphan note"))
	require.NoError(t, f.DeleteSheet("Sheet1"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, findings, err := ReadWorkbook(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, got.Len())
	require.Len(t, findings, 1)
	assert.Equal(t, core.FindingMissingField, findings[0].Kind)
}

func TestReadWorkbook_OutOfRangeLevelFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.xlsx")

	f := excelize.NewFile()
	sheet := "0010-syslog_rules.xml"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(sheet, "A1", "id"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "level"))
	require.NoError(t, f.SetCellValue(sheet, "A2", 1001))
	require.NoError(t, f.SetCellValue(sheet, "B2", 99))
	require.NoError(t, f.DeleteSheet("Sheet1"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, _, err = ReadWorkbook(path, nil)
	var parseErr *core.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 1001, parseErr.RuleID)
}

func TestFixupPriorities(t *testing.T) {
	mixed, err := core.NewPolicyTable([]core.PolicyEntry{
		{RuleID: 1001, TargetLevel: 2, Collection: "0010-syslog_rules.xml"},
		{RuleID: 100100, TargetLevel: 3, Collection: "local_rules.xml"},
		{RuleID: 100200, TargetLevel: 3, Collection: "extra_rules.xml"},
	})
	require.NoError(t, err)

	assigned, findings := FixupPriorities(mixed)

	// Two collections with no prefix get max+100 and max+200, in sorted
	// collection order.
	require.Len(t, assigned, 2)
	assert.Equal(t, 110, assigned["extra_rules.xml"])
	assert.Equal(t, 210, assigned["local_rules.xml"])
	assert.Len(t, findings, 2)
}
