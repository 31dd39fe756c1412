package types

// Adapter names used in per-adapter result maps and diagnostic reports.
const (
	AdapterFlat     = "flat"
	AdapterIndexed  = "indexed"
	AdapterVolatile = "volatile"
	AdapterSession  = "session"
)

// AdapterResult is the outcome of one adapter call within a fan-out write
// or read. Err is nil when OK is true.
type AdapterResult struct {
	OK  bool
	Err error
}

// SaveResult is returned by the coordinator's save paths. Success reflects
// normalization only: the save is reported successful even when every
// adapter write failed, and callers inspect Adapters for diagnostics, not
// for control flow.
type SaveResult struct {
	Success  bool
	Record   Artifact
	History  HistoryEntry
	Adapters map[string]AdapterResult
}

// HistoryResult mirrors SaveResult for the history collection.
type HistoryResult struct {
	Success  bool
	Record   HistoryEntry
	Adapters map[string]AdapterResult
}

// RestoreResult reports what a restore wrote per collection.
type RestoreResult struct {
	Artifacts int
	History   int
	Favorites int
	Dropped   int // records rejected for missing id or timestamp
	Stats     bool
}
