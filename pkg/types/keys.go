package types

// Storage key namespace. Every canonical key carries the application prefix
// and the schema-generation suffix so the legacy migrator can tell
// current-generation keys from deprecated ones.
const (
	KeyPrefix    = "artvault_"
	SchemaSuffix = "_v2"

	// SchemaVersion is the wire schema marker carried by snapshots and
	// export bundles. Importers branch on it.
	SchemaVersion = "2.0"
)

// Canonical collection and slot keys.
const (
	KeyImages    = KeyPrefix + "images" + SchemaSuffix
	KeyHistory   = KeyPrefix + "history" + SchemaSuffix
	KeyFavorites = KeyPrefix + "favorites" + SchemaSuffix
	KeyStats     = KeyPrefix + "stats" + SchemaSuffix
	KeyBackup    = KeyPrefix + "backup" + SchemaSuffix
	KeySyncQueue = KeyPrefix + "sync" + SchemaSuffix
	KeyCounter   = KeyPrefix + "count" + SchemaSuffix
)

// Indexed store collection names.
const (
	CollectionImages    = "images"
	CollectionHistory   = "history"
	CollectionFavorites = "favorites"
)

// Deprecated keys left behind by earlier storage generations. The migrator
// reads these and replays their contents through the coordinator; the keys
// themselves are never deleted, dedup absorbs repeated replays.
var (
	LegacyImageKeys = []string{
		KeyPrefix + "images",
		KeyPrefix + "images_v1",
		"generated_images",
	}
	LegacyHistoryKeys = []string{
		KeyPrefix + "history",
		KeyPrefix + "history_v1",
		"generation_history",
	}
	LegacyFavoriteKeys = []string{
		KeyPrefix + "favorites",
		KeyPrefix + "favorites_v1",
	}
)
