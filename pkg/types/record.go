package types

import "time"

// Record kinds. Each record carries exactly one kind, fixed at creation.
const (
	KindArtifact = "artifact"
	KindHistory  = "history"
	KindFavorite = "favorite"
)

// Record is the interface shared by all persisted record kinds. Timestamps
// travel on the wire as ISO-8601 strings; RecordTime parses lazily so that a
// record with an unparsable timestamp still flows through the adapters and
// sorts as oldest rather than failing the whole read.
type Record interface {
	// RecordID returns the globally unique record id.
	RecordID() string
	// RecordTime returns the parsed createdAt timestamp, or the zero time
	// if the field is missing or unparsable.
	RecordTime() time.Time
	// RecordOwner returns the owner tag ("anonymous" when unset).
	RecordOwner() string
}

// OwnerAnonymous is the owner tag attached to records created without an
// authenticated identity. It associates records, it does not gate access.
const OwnerAnonymous = "anonymous"

// ParseTime parses an ISO-8601 timestamp. Returns the zero time on failure;
// callers treat zero as "oldest" for ordering and conflict resolution.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatTime renders a timestamp in the wire format used by createdAt.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
