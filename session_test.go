package doctalk

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/doctalk/doctalk-go-sdk/media"
	"github.com/doctalk/doctalk-go-sdk/wire"
)

type sentFrame struct {
	event string
	data  any
}

// recordingSender captures outbound events instead of writing a socket.
type recordingSender struct {
	mu     sync.Mutex
	frames []sentFrame
}

func (r *recordingSender) Send(event string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, sentFrame{event: event, data: data})
	return nil
}

func (r *recordingSender) sent() []sentFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentFrame(nil), r.frames...)
}

type chanPlayer struct {
	played chan media.Ref
}

func (p *chanPlayer) Play(ref media.Ref) { p.played <- ref }

func newTestSession(t *testing.T) (*Session, *recordingSender, *Router) {
	t.Helper()
	sender := &recordingSender{}
	s := NewSession(sender, media.NewStore())
	r := NewRouter()
	s.Bind(r)
	return s, sender, r
}

func kinds(entries []Entry) []EntryKind {
	out := make([]EntryKind, len(entries))
	for i, e := range entries {
		out[i] = e.Kind
	}
	return out
}

func TestAskQuestion(t *testing.T) {
	s, sender, _ := newTestSession(t)

	if err := s.AskQuestion("What is the refund policy?", false); err != nil {
		t.Fatalf("ask: %v", err)
	}

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("log length: got %d, want 2", len(entries))
	}
	if entries[0].Kind != EntryQuestion || entries[0].Text != "What is the refund policy?" {
		t.Errorf("first entry: got %s %q", entries[0].Kind, entries[0].Text)
	}
	if entries[1].Kind != EntryLoading || entries[1].Text != "Thinking..." {
		t.Errorf("second entry: got %s %q", entries[1].Kind, entries[1].Text)
	}

	frames := sender.sent()
	if len(frames) != 1 || frames[0].event != wire.EventQuestion {
		t.Fatalf("sent frames: %+v", frames)
	}
	payload, ok := frames[0].data.(wire.QuestionPayload)
	if !ok {
		t.Fatalf("payload type: %T", frames[0].data)
	}
	if payload.Text != "What is the refund policy?" || payload.Audio {
		t.Errorf("payload: %+v", payload)
	}
}

func TestAnswerClearsLoading(t *testing.T) {
	s, _, r := newTestSession(t)

	s.AskQuestion("What is the refund policy?", false)
	r.Dispatch(false, []byte(`{"event":"answer","data":"Refunds are processed within 14 days."}`))

	entries := s.Entries()
	for _, e := range entries {
		if e.Kind == EntryLoading {
			t.Error("loading entry must be removed by the answer")
		}
	}
	last := entries[len(entries)-1]
	if last.Kind != EntryAnswer || last.Text != "Refunds are processed within 14 days." {
		t.Errorf("last entry: got %s %q", last.Kind, last.Text)
	}
}

func TestStatusAndErrorClearLoading(t *testing.T) {
	for _, tc := range []struct {
		frame string
		kind  EntryKind
		text  string
	}{
		{`{"event":"status","data":"Still indexing."}`, EntryStatus, "Still indexing."},
		{`{"event":"error","data":"Please upload a document or website first."}`, EntryError, "Please upload a document or website first."},
	} {
		s, _, r := newTestSession(t)
		s.AskQuestion("anything", false)
		r.Dispatch(false, []byte(tc.frame))

		entries := s.Entries()
		last := entries[len(entries)-1]
		if last.Kind != tc.kind || last.Text != tc.text {
			t.Errorf("last entry: got %s %q, want %s %q", last.Kind, last.Text, tc.kind, tc.text)
		}
		for _, e := range entries {
			if e.Kind == EntryLoading {
				t.Errorf("%s must remove loading entries", tc.kind)
			}
		}
	}
}

func TestStructuredStatusRendersCompact(t *testing.T) {
	s, _, r := newTestSession(t)

	r.Dispatch(false, []byte(`{"event":"status","data":{ "stage": "embedding", "pct": 40 }}`))

	entries := s.Entries()
	if len(entries) != 1 || entries[0].Text != `{"stage":"embedding","pct":40}` {
		t.Errorf("entries: %+v", entries)
	}
}

func TestUploadRejectsUnsupported(t *testing.T) {
	s, sender, _ := newTestSession(t)

	err := s.UploadFile("diagram.png", []byte{0x89, 0x50})
	if !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}

	entries := s.Entries()
	if len(entries) != 1 || entries[0].Kind != EntryError {
		t.Fatalf("entries: %+v", entries)
	}
	if entries[0].Text != "Only .txt, .pdf, and .docx files are supported." {
		t.Errorf("error text: %q", entries[0].Text)
	}
	if len(sender.sent()) != 0 {
		t.Error("no frame may be sent for a rejected file")
	}
}

func TestUploadSendsBase64(t *testing.T) {
	s, sender, _ := newTestSession(t)

	contents := []byte("refund policy: 14 days")
	if err := s.UploadFile("Policy.TXT", contents); err != nil {
		t.Fatalf("upload: %v", err)
	}

	entries := s.Entries()
	if len(entries) != 1 || entries[0].Kind != EntryUpload {
		t.Fatalf("entries: %+v", entries)
	}

	frames := sender.sent()
	if len(frames) != 1 || frames[0].event != wire.EventUpload {
		t.Fatalf("sent frames: %+v", frames)
	}
	payload := frames[0].data.(wire.UploadPayload)
	if payload.Filename != "Policy.TXT" {
		t.Errorf("filename: %q", payload.Filename)
	}
	decoded, err := base64.StdEncoding.DecodeString(payload.File)
	if err != nil {
		t.Fatalf("file field is not base64: %v", err)
	}
	if !bytes.Equal(decoded, contents) {
		t.Error("file contents mismatch")
	}
}

func TestSubmitWebsite(t *testing.T) {
	s, sender, _ := newTestSession(t)

	if err := s.SubmitWebsite("https://example.com/doc"); err != nil {
		t.Fatalf("website: %v", err)
	}

	entries := s.Entries()
	if len(entries) != 1 || entries[0].Text != "Indexing website: https://example.com/doc" {
		t.Errorf("entries: %+v", entries)
	}

	frames := sender.sent()
	if len(frames) != 1 || frames[0].event != wire.EventWebsite {
		t.Fatalf("sent frames: %+v", frames)
	}
	if frames[0].data.(wire.WebsitePayload).URL != "https://example.com/doc" {
		t.Errorf("payload: %+v", frames[0].data)
	}
}

func TestSubmitWebsiteRejectsEmpty(t *testing.T) {
	s, sender, _ := newTestSession(t)

	if err := s.SubmitWebsite("  "); !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("expected ErrEmptyURL, got %v", err)
	}
	if len(s.Entries()) != 0 || len(sender.sent()) != 0 {
		t.Error("blank url must not touch the log or the wire")
	}
}

func TestBinaryWithNoAnswerDiscarded(t *testing.T) {
	s, _, r := newTestSession(t)

	r.Dispatch(true, []byte{0xff, 0xf3, 0x01})

	if len(s.Entries()) != 0 {
		t.Error("log must be unchanged")
	}
	if s.store.Len() != 0 {
		t.Error("discarded payload must be released")
	}
}

func TestBinaryAttachesTailFirst(t *testing.T) {
	s, _, r := newTestSession(t)

	r.Dispatch(false, []byte(`{"event":"answer","data":"first"}`))
	r.Dispatch(false, []byte(`{"event":"answer","data":"second"}`))

	r.Dispatch(true, []byte{0x01})
	entries := s.Entries()
	if !entries[1].HasAudio() {
		t.Error("audio must attach to the most recent bare answer")
	}
	if entries[0].HasAudio() {
		t.Error("older answer must stay bare")
	}

	// The next frame lands on the remaining bare answer.
	r.Dispatch(true, []byte{0x02})
	entries = s.Entries()
	if !entries[0].HasAudio() {
		t.Error("second audio frame must attach to the older bare answer")
	}

	blob, err := s.store.Open(entries[1].Audio)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(blob, []byte{0x01}) {
		t.Error("attached blob mismatch")
	}
}

func TestAudioOnlyAnswer(t *testing.T) {
	s, _, r := newTestSession(t)

	r.Dispatch(false, []byte(`{"event":"answer","data":""}`))
	r.Dispatch(true, []byte{0x0a})

	entries := s.Entries()
	if entries[0].Kind != EntryAudio {
		t.Errorf("empty-text answer with audio: got kind %s, want %s", entries[0].Kind, EntryAudio)
	}
	if !entries[0].HasAudio() {
		t.Error("audio ref missing")
	}
}

func TestPlaybackScheduled(t *testing.T) {
	s, _, r := newTestSession(t)
	s.delay = time.Millisecond

	player := &chanPlayer{played: make(chan media.Ref, 1)}
	s.SetPlayer(player)

	r.Dispatch(false, []byte(`{"event":"answer","data":"spoken"}`))
	r.Dispatch(true, []byte{0x0b})

	select {
	case ref := <-player.played:
		if ref != s.Entries()[0].Audio {
			t.Error("played ref does not match the attached ref")
		}
	case <-time.After(time.Second):
		t.Fatal("playback was not scheduled")
	}
}

func TestOnUpdateFires(t *testing.T) {
	s, _, r := newTestSession(t)

	var mu sync.Mutex
	updates := 0
	s.OnUpdate(func([]Entry) {
		mu.Lock()
		updates++
		mu.Unlock()
	})

	s.AskQuestion("q", false)                                  // question+loading in one update
	r.Dispatch(false, []byte(`{"event":"answer","data":"a"}`)) // one update
	r.Dispatch(true, []byte{0x01})                             // one update for the attachment

	mu.Lock()
	defer mu.Unlock()
	if updates != 3 {
		t.Errorf("updates: got %d, want 3", updates)
	}
}

func TestEntryIDsAreMonotonic(t *testing.T) {
	s, _, _ := newTestSession(t)

	for i := 0; i < 100; i++ {
		s.AskQuestion("q", false)
	}
	entries := s.Entries()
	for i := 1; i < len(entries); i++ {
		if bytes.Compare(entries[i-1].ID[:], entries[i].ID[:]) >= 0 {
			t.Fatalf("entry IDs not monotonic at %d", i)
		}
	}
}

func TestQuestionPayloadRoundTripsThroughCodec(t *testing.T) {
	// The session's outbound payloads survive the wire codec intact.
	s, sender, _ := newTestSession(t)
	s.AskQuestion("What is the refund policy?", true)

	f, err := wire.Encode(sender.sent()[0].event, sender.sent()[0].data)
	if err != nil {
		t.Fatal(err)
	}
	env, err := wire.Decode(f.Payload)
	if err != nil {
		t.Fatal(err)
	}
	var payload wire.QuestionPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Text != "What is the refund policy?" || !payload.Audio {
		t.Errorf("payload: %+v", payload)
	}
}
