package doctalk

import (
	"time"

	"github.com/doctalk/doctalk-go-sdk/media"
)

// EntryKind classifies one chat log entry.
type EntryKind string

const (
	EntryStatus   EntryKind = "status"
	EntryError    EntryKind = "error"
	EntryAnswer   EntryKind = "answer"
	EntryQuestion EntryKind = "question"
	EntryUpload   EntryKind = "upload"
	EntryWebsite  EntryKind = "website"
	EntryLoading  EntryKind = "loading"

	// EntryAudio marks an answer whose only rendering is audio: it is the
	// kind an empty-text answer takes when a binary frame attaches to it.
	EntryAudio EntryKind = "audio"
)

// Entry is one item in a session's append-only chat log. Entries are
// immutable once appended, with a single exception: an answer entry may
// later gain an audio ref (and, when its text is empty, the audio kind)
// from a binary frame.
type Entry struct {
	ID        EntryID
	Kind      EntryKind
	Text      string
	Audio     media.Ref
	CreatedAt time.Time
}

// HasAudio reports whether an audio ref is attached.
func (e Entry) HasAudio() bool {
	return e.Audio != media.NoRef
}
