// Package core defines the domain model for the rulewarden reconciliation
// engine.
//
// The core package provides:
//   - The immutable rule corpus model (RuleModel, Rule, RuleGroup, Collection)
//   - The policy overlay (PolicyTable, PolicyEntry) and its generator
//   - Change tracking types (Diff, ChangeRecord) and the Finding taxonomy
//   - Typed errors for parse-time failures
//
// Every transformation of a RuleModel produces a new model value; nothing in
// this package mutates a model in place. This keeps diffing a structural
// comparison between two snapshots rather than an audit trail that has to be
// kept in sync with every mutation site.
package core
