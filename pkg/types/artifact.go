package types

import "time"

// Generation parameter defaults applied during normalization when the
// producer leaves a field unset.
const (
	DefaultWidth    = 1024
	DefaultHeight   = 1024
	DefaultSteps    = 4
	DefaultGuidance = 7.5
	DefaultModel    = "black-forest-labs/FLUX.1-schnell-Free"
	DefaultStyle    = "none"
)

// Artifact is a generated image record with its prompt and parameters.
type Artifact struct {
	ID        string  `json:"id"`
	CreatedAt string  `json:"createdAt"`
	OwnerTag  string  `json:"ownerTag"`
	Prompt    string  `json:"prompt"`
	ImageURL  string  `json:"imageUrl,omitempty"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Steps     int     `json:"steps"`
	Guidance  float64 `json:"guidance"`
	Model     string  `json:"model"`
	Style     string  `json:"style"`
	Favorite  bool    `json:"favorite,omitempty"`
	SizeBytes int64   `json:"sizeBytes,omitempty"`
}

func (a Artifact) RecordID() string      { return a.ID }
func (a Artifact) RecordTime() time.Time { return ParseTime(a.CreatedAt) }
func (a Artifact) RecordOwner() string {
	if a.OwnerTag == "" {
		return OwnerAnonymous
	}
	return a.OwnerTag
}

// HistoryEntry records one generation attempt, cascaded from an Artifact
// save. Its id derives from the artifact id (hist_<artifactId>).
type HistoryEntry struct {
	ID         string  `json:"id"`
	CreatedAt  string  `json:"createdAt"`
	OwnerTag   string  `json:"ownerTag"`
	ArtifactID string  `json:"artifactId"`
	Prompt     string  `json:"prompt"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Steps      int     `json:"steps"`
	Guidance   float64 `json:"guidance"`
	Model      string  `json:"model"`
	Style      string  `json:"style"`
	Outcome    string  `json:"outcome,omitempty"`
}

func (h HistoryEntry) RecordID() string      { return h.ID }
func (h HistoryEntry) RecordTime() time.Time { return ParseTime(h.CreatedAt) }
func (h HistoryEntry) RecordOwner() string {
	if h.OwnerTag == "" {
		return OwnerAnonymous
	}
	return h.OwnerTag
}

// HistoryID derives the history entry id for an artifact.
func HistoryID(artifactID string) string { return "hist_" + artifactID }

// FavoriteMarker flags an artifact as favorite. Presence of a marker means
// the entity is favorited; toggling off removes the marker.
type FavoriteMarker struct {
	ID        string `json:"id"`
	EntityID  string `json:"entityId"`
	CreatedAt string `json:"createdAt"`
	OwnerTag  string `json:"ownerTag"`
}

func (f FavoriteMarker) RecordID() string      { return f.ID }
func (f FavoriteMarker) RecordTime() time.Time { return ParseTime(f.CreatedAt) }
func (f FavoriteMarker) RecordOwner() string {
	if f.OwnerTag == "" {
		return OwnerAnonymous
	}
	return f.OwnerTag
}

// FavoriteID derives the marker id for an entity.
func FavoriteID(entityID string) string { return "fav_" + entityID }
