// Package wire defines the event envelope codec for the doc-chat socket
// protocol. All structured traffic travels as JSON text frames of the form
// {"event": ..., "data": ...}; audio travels as raw binary frames with no
// envelope. Both the SDK and the terminal client import these — single
// source of truth.
package wire

import "encoding/json"

// Event names exchanged over the socket.
const (
	// Client -> server.
	EventAuth     = "auth"
	EventQuestion = "question"
	EventUpload   = "upload"
	EventWebsite  = "website"

	// Server -> client.
	EventStatus = "status"
	EventError  = "error"
	EventAnswer = "answer"
)

// Envelope is the unit exchanged for all non-binary traffic. Data stays
// opaque here; its shape is interpreted per event name by the consumer,
// never by the transport layer.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// AuthPayload is the data of an auth event, sent once on open when a
// credential token is present. Fire-and-forget: no acknowledgement follows.
type AuthPayload struct {
	Token string `json:"token"`
}

// QuestionPayload is the data of a question event. Audio requests a spoken
// rendering of the answer.
type QuestionPayload struct {
	Text  string `json:"text"`
	Audio bool   `json:"audio"`
}

// UploadPayload is the data of an upload event. File carries the document
// bytes base64-encoded.
type UploadPayload struct {
	File     string `json:"file"`
	Filename string `json:"filename"`
}

// WebsitePayload is the data of a website event.
type WebsitePayload struct {
	URL string `json:"url"`
}
