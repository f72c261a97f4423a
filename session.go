package doctalk

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/doctalk/doctalk-go-sdk/media"
	"github.com/doctalk/doctalk-go-sdk/wire"
)

// Sender queues one outbound event. *Client satisfies it; tests substitute
// a recorder.
type Sender interface {
	Send(event string, data any) error
}

// Player renders an attached audio blob. Playback is a best-effort side
// effect; implementations must not block.
type Player interface {
	Play(ref media.Ref)
}

const (
	loadingText     = "Thinking..."
	unsupportedText = "Only .txt, .pdf, and .docx files are supported."

	// Delay before firing playback, so a UI can render the attachment
	// before the play call lands.
	playbackDelay = 150 * time.Millisecond
)

// Document types the ingestion backend can extract text from.
var allowedExts = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".docx": true,
}

var (
	// ErrUnsupportedFile is returned by UploadFile for extensions outside
	// the allow-list. The session has already appended a local error entry.
	ErrUnsupportedFile = errors.New("doctalk: unsupported file type")

	// ErrEmptyURL is returned by SubmitWebsite for a blank address.
	ErrEmptyURL = errors.New("doctalk: empty website url")
)

// Session is the conversation state machine. It turns user actions and
// inbound protocol events into an ordered, append-only chat log, attaching
// late-arriving audio to the answer it belongs to.
//
// One session serves one connection; the log and listener bindings are
// never shared across sessions.
type Session struct {
	mu     sync.Mutex
	send   Sender
	store  *media.Store
	player Player
	delay  time.Duration
	update func([]Entry)
	ulids  ulidGen
	log    []Entry
}

// NewSession creates a session that sends user actions through send and
// parks received audio in store.
func NewSession(send Sender, store *media.Store) *Session {
	return &Session{
		send:  send,
		store: store,
		delay: playbackDelay,
	}
}

// SetPlayer installs the audio playback sink.
func (s *Session) SetPlayer(p Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player = p
}

// OnUpdate installs fn to run with a log snapshot after every mutation:
// appends, loading removal, and audio attachment. fn is invoked from
// transport and timer goroutines.
func (s *Session) OnUpdate(fn func([]Entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.update = fn
}

// Bind subscribes the session's handlers on r.
func (s *Session) Bind(r *Router) {
	r.Subscribe(wire.EventStatus, s.resolveWith(EntryStatus))
	r.Subscribe(wire.EventError, s.resolveWith(EntryError))
	r.Subscribe(wire.EventAnswer, s.resolveWith(EntryAnswer))
	r.Subscribe(BinaryEvent, s.handleAudio)
}

// Entries returns a snapshot of the chat log.
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.log...)
}

// AskQuestion appends a question entry plus a loading entry in one update
// and sends the question event. wantAudio requests a spoken response.
func (s *Session) AskQuestion(text string, wantAudio bool) error {
	s.mu.Lock()
	s.append(EntryQuestion, text)
	s.append(EntryLoading, loadingText)
	s.mu.Unlock()
	s.notify()

	return s.send.Send(wire.EventQuestion, wire.QuestionPayload{Text: text, Audio: wantAudio})
}

// UploadFile validates the extension against the backend's allow-list
// before any network interaction. A mismatch appends a local error entry
// and sends nothing; a match appends an upload entry and sends the
// base64-encoded contents.
func (s *Session) UploadFile(filename string, contents []byte) error {
	if !allowedExts[strings.ToLower(filepath.Ext(filename))] {
		s.mu.Lock()
		s.append(EntryError, unsupportedText)
		s.mu.Unlock()
		s.notify()
		return ErrUnsupportedFile
	}

	s.mu.Lock()
	s.append(EntryUpload, "Uploading "+filename)
	s.mu.Unlock()
	s.notify()

	return s.send.Send(wire.EventUpload, wire.UploadPayload{
		File:     base64.StdEncoding.EncodeToString(contents),
		Filename: filename,
	})
}

// SubmitWebsite appends a website entry and sends the website event. No
// validation beyond non-empty; the backend decides whether it can crawl.
func (s *Session) SubmitWebsite(url string) error {
	if strings.TrimSpace(url) == "" {
		return ErrEmptyURL
	}

	s.mu.Lock()
	s.append(EntryWebsite, "Indexing website: "+url)
	s.mu.Unlock()
	s.notify()

	return s.send.Send(wire.EventWebsite, wire.WebsitePayload{URL: url})
}

// resolveWith builds the handler for one terminal event kind: every
// loading entry is removed, then one entry of the received kind appended.
func (s *Session) resolveWith(kind EntryKind) Handler {
	return func(data []byte) {
		s.mu.Lock()
		kept := s.log[:0]
		for _, e := range s.log {
			if e.Kind != EntryLoading {
				kept = append(kept, e)
			}
		}
		s.log = kept
		s.append(kind, wire.Text(data))
		s.mu.Unlock()
		s.notify()
	}
}

// handleAudio attaches a binary audio frame to the most recent answer that
// still lacks one, scanning the log from the tail. With no candidate the
// payload is discarded. There is no correlation id on the wire; ordering is
// the contract.
func (s *Session) handleAudio(data []byte) {
	ref := s.store.Put(data)

	s.mu.Lock()
	attached := false
	for i := len(s.log) - 1; i >= 0; i-- {
		e := &s.log[i]
		if e.Kind != EntryAnswer || e.HasAudio() {
			continue
		}
		e.Audio = ref
		if e.Text == "" {
			e.Kind = EntryAudio
		}
		attached = true
		break
	}
	player, delay := s.player, s.delay
	s.mu.Unlock()

	if !attached {
		s.store.Release(ref)
		slog.Debug("audio frame with no answer to attach to, dropped", "bytes", len(data))
		return
	}
	s.notify()

	if player != nil {
		time.AfterFunc(delay, func() { player.Play(ref) })
	}
}

// append adds one entry. Caller holds s.mu.
func (s *Session) append(kind EntryKind, text string) {
	s.log = append(s.log, Entry{
		ID:        s.ulids.next(),
		Kind:      kind,
		Text:      text,
		CreatedAt: time.Now(),
	})
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.update
	s.mu.Unlock()
	if fn != nil {
		fn(s.Entries())
	}
}
