// Package types defines the record model, configuration, storage keys, and
// standard errors for the artvault persistence layer. Records come in three
// kinds (Artifact, HistoryEntry, FavoriteMarker) sharing the Record
// interface; adapters and the merge engine operate on that interface while
// callers work with the concrete types.
package types
