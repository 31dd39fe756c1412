package types

// Snapshot is an immutable point-in-time export of all collections. A new
// snapshot supersedes the previous one in each backup slot; only the latest
// is kept.
type Snapshot struct {
	Timestamp      string           `json:"timestamp"`
	SchemaVersion  string           `json:"schemaVersion"`
	Artifacts      []Artifact       `json:"artifacts"`
	HistoryEntries []HistoryEntry   `json:"historyEntries"`
	Favorites      []FavoriteMarker `json:"favorites,omitempty"`
}

// Stats is the aggregate counters record maintained alongside the
// collections. Monthly and weekly counts roll over when their period key
// changes.
type Stats struct {
	TotalImages int    `json:"totalImages"`
	MonthImages int    `json:"monthImages"`
	WeekImages  int    `json:"weekImages"`
	TotalBytes  int64  `json:"totalBytes"`
	MonthKey    string `json:"monthKey"` // e.g. "2026-08"
	WeekKey     string `json:"weekKey"`  // ISO year-week, e.g. "2026-W35"
	UpdatedAt   string `json:"updatedAt"`
}

// SyncEntry is a pending remote write captured by the sync queue, keyed by
// entity id in its flat store slot.
type SyncEntry struct {
	Desired   bool   `json:"desiredState"`
	Timestamp string `json:"timestamp"`
}
