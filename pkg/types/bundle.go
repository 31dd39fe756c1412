package types

// ExportBundle is the user-facing export format (file download). Version is
// the schema marker importers branch on.
type ExportBundle struct {
	Timestamp string           `json:"timestamp"`
	Images    []Artifact       `json:"images"`
	History   []HistoryEntry   `json:"history"`
	Favorites []FavoriteMarker `json:"favorites"`
	Stats     Stats            `json:"stats"`
	Version   string           `json:"version"`
	Platform  string           `json:"platform"`
}

// BackendReport describes what one backend holds, as seen by a direct scan
// that bypasses the coordinator.
type BackendReport struct {
	Available bool     `json:"available"`
	Keys      []string `json:"keys,omitempty"`
	Artifacts int      `json:"artifacts"`
	History   int      `json:"history"`
	Favorites int      `json:"favorites"`
	Bytes     int64    `json:"bytes"`
	Err       string   `json:"error,omitempty"`
}

// ReportSummary aggregates the deduplicated view across all backends.
type ReportSummary struct {
	TotalArtifacts int    `json:"totalArtifacts"`
	TotalHistory   int    `json:"totalHistory"`
	TotalFavorites int    `json:"totalFavorites"`
	HasData        bool   `json:"hasData"`
	LastSnapshot   string `json:"lastSnapshot,omitempty"`
}

// DiagnosticReport is the diff-able output of the recovery tool's scan.
type DiagnosticReport struct {
	Timestamp  string                   `json:"timestamp"`
	PerBackend map[string]BackendReport `json:"perBackend"`
	Summary    ReportSummary            `json:"summary"`
}

// DiagnosticBundle pairs the scan report with a full backup of the
// deduplicated collections.
type DiagnosticBundle struct {
	Timestamp string           `json:"timestamp"`
	Report    DiagnosticReport `json:"report"`
	Backup    BackupData       `json:"backup"`
}

// BackupData carries the collections inside a diagnostic bundle.
type BackupData struct {
	Images    []Artifact       `json:"images"`
	History   []HistoryEntry   `json:"history"`
	Favorites []FavoriteMarker `json:"favorites"`
	Stats     Stats            `json:"stats"`
}
