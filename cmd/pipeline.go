package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rulewarden/config"
	"rulewarden/core"
	"rulewarden/policyio"
	"rulewarden/storage"
	"rulewarden/xmlio"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// loadModel loads a rules directory and builds the immutable model from it.
func loadModel(dir string, log *zap.SugaredLogger) (*xmlio.Corpus, *core.RuleModel, error) {
	if err := validateFilePath(dir); err != nil {
		return nil, nil, err
	}

	s := newSpinner("Loading rule files...")
	corpus, err := xmlio.LoadDirectory(dir, log)
	stopSpinner(s)
	if err != nil {
		return nil, nil, fmt.Errorf("load rules from %s: %w", dir, err)
	}

	model, err := core.Load(corpus.Raw())
	if err != nil {
		return nil, nil, fmt.Errorf("build rule model: %w", err)
	}
	return corpus, model, nil
}

// loadPolicy reads a policy table, dispatching on the file extension.
func loadPolicy(path string, log *zap.SugaredLogger) (*core.PolicyTable, []core.Finding, error) {
	if err := validateFilePath(path); err != nil {
		return nil, nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		table, findings, err := policyio.ReadWorkbook(path, log)
		if err != nil {
			return nil, nil, err
		}
		assigned, fixups := policyio.FixupPriorities(table)
		for name, priority := range assigned {
			log.Infow("Assigned collection priority", "collection", name, "priority", priority)
		}
		return table, append(findings, fixups...), nil
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read policy file: %w", err)
		}
		table, err := policyio.ImportJSON(data)
		if err != nil {
			return nil, nil, err
		}
		return table, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported policy format %q (want .xlsx or .json)", filepath.Ext(path))
	}
}

// recordRun appends the run to the audit log when history is enabled. A
// history failure is logged, never fatal: the reconciliation itself already
// succeeded.
func recordRun(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, run storage.RunRecord) {
	if !cfg.History.Enabled {
		return
	}

	h, err := storage.OpenHistory(cfg.History.Path, log)
	if err != nil {
		log.Warnw("History disabled for this run", "error", err)
		return
	}
	defer func() { _ = h.Close() }()

	if err := h.SaveRun(ctx, run); err != nil {
		log.Warnw("Failed to record run", "error", err)
	}
}

// newRunRecord builds the audit row for one command invocation.
func newRunRecord(command string, m *core.RuleModel, changes, findings int, fixed bool) storage.RunRecord {
	return storage.RunRecord{
		ID:          uuid.New().String(),
		Command:     command,
		StartedAt:   time.Now().UTC(),
		Rules:       m.Len(),
		Collections: m.NumCollections(),
		Changes:     changes,
		Findings:    findings,
		Fixed:       fixed,
	}
}
