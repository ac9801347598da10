package core

// Level bounds for the Wazuh severity scale. Levels outside this range are a
// detectable inconsistency, not a parse failure.
const (
	// LevelMin is the lowest valid rule level (0 = never alert).
	LevelMin = 0
	// LevelMax is the highest valid rule level.
	LevelMax = 16
	// FallbackLevel is the level assumed for a rule that declares no level
	// and whose group declares no default.
	FallbackLevel = 0
)

// ChangeKind classifies a single ChangeRecord in a Diff.
type ChangeKind string

const (
	// ChangeLevel indicates the rule's severity level was rewritten.
	ChangeLevel ChangeKind = "level_changed"
	// ChangeFieldFixed indicates an existing field was repaired (e.g. an
	// out-of-range level clamped back into bounds).
	ChangeFieldFixed ChangeKind = "field_fixed"
	// ChangeFieldAdded indicates a missing field was synthesized.
	ChangeFieldAdded ChangeKind = "field_added"
	// ChangeNoOp indicates no change. The reconciler never emits no-op
	// records; the kind exists for callers that build records manually.
	ChangeNoOp ChangeKind = "no_op"
)

// String returns the string representation
func (k ChangeKind) String() string {
	return string(k)
}

// IsValid checks if the change kind is valid
func (k ChangeKind) IsValid() bool {
	switch k {
	case ChangeLevel, ChangeFieldFixed, ChangeFieldAdded, ChangeNoOp:
		return true
	default:
		return false
	}
}

// FindingKind classifies a structural inconsistency discovered during
// detection or reconciliation.
type FindingKind string

const (
	// FindingDuplicateID is a duplicate rule id. Duplicates are rejected at
	// load time; the detector re-asserts the invariant for defense in depth.
	FindingDuplicateID FindingKind = "duplicate_id"
	// FindingLevelOutOfRange is a level outside [LevelMin, LevelMax].
	FindingLevelOutOfRange FindingKind = "level_out_of_range"
	// FindingMissingField is a required field with no value (e.g. description).
	FindingMissingField FindingKind = "missing_field"
	// FindingDanglingReference is an if_sid pointing at a rule id that does
	// not exist in the corpus. Never auto-fixed.
	FindingDanglingReference FindingKind = "dangling_reference"
	// FindingPolicyMismatch is a policy entry whose rule id has no
	// corresponding rule in the model.
	FindingPolicyMismatch FindingKind = "policy_mismatch"
	// FindingUnsafeRegex is a match field whose pattern fails safety
	// validation. Never auto-fixed.
	FindingUnsafeRegex FindingKind = "unsafe_regex"
	// FindingCollectionPriority is a collection with no numeric priority
	// prefix in its filename.
	FindingCollectionPriority FindingKind = "collection_priority"
	// FindingLevelMapped is a rule whose level was rewritten by the
	// configured level map because no policy entry covered it.
	FindingLevelMapped FindingKind = "level_mapped"
	// FindingSkippedWorksheet is a policy worksheet ignored on import
	// because its name does not match a rule collection.
	FindingSkippedWorksheet FindingKind = "skipped_worksheet"
)

// String returns the string representation
func (k FindingKind) String() string {
	return string(k)
}

// IsValid checks if the finding kind is valid
func (k FindingKind) IsValid() bool {
	switch k {
	case FindingDuplicateID, FindingLevelOutOfRange, FindingMissingField,
		FindingDanglingReference, FindingPolicyMismatch, FindingUnsafeRegex,
		FindingCollectionPriority, FindingLevelMapped, FindingSkippedWorksheet:
		return true
	default:
		return false
	}
}
