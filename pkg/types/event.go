package types

// Notification topics published by the persistence layer. The rendering
// layer listens for these to trigger its own refresh.
const (
	TopicGallery = "gallery.updated"
	TopicHistory = "history.updated"
)

// Event describes one data change. Added counts records written by normal
// operations; Recovered counts records replayed by migration or restore.
type Event struct {
	Topic     string
	Added     int
	Recovered int
}
