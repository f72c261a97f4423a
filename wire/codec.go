package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotJSON      = errors.New("wire: frame is not a JSON envelope")
	ErrMissingEvent = errors.New("wire: envelope has no event name")
)

// Frame is one outbound socket message, ready to write.
type Frame struct {
	Binary  bool
	Payload []byte
}

// Encode builds the frame for one event. Raw []byte data is passed through
// as a binary frame untouched — binary traffic is never JSON-wrapped.
// Anything else is marshalled into a text-frame envelope.
func Encode(event string, data any) (Frame, error) {
	if raw, ok := data.([]byte); ok {
		return Frame{Binary: true, Payload: raw}, nil
	}

	body, err := json.Marshal(data)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal %s data: %w", event, err)
	}
	payload, err := json.Marshal(Envelope{Event: event, Data: body})
	if err != nil {
		return Frame{}, fmt.Errorf("marshal %s envelope: %w", event, err)
	}
	return Frame{Payload: payload}, nil
}

// Decode parses a text frame into an envelope. It exactly inverts the JSON
// path of Encode: Decode(Encode(e, d)) reproduces (e, d) for any
// JSON-serialisable d.
func Decode(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	if env.Event == "" {
		return Envelope{}, ErrMissingEvent
	}
	return env, nil
}

// Text renders an event payload for display. Plain JSON strings are
// unquoted; structured payloads are kept as compact JSON.
func Text(data []byte) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err == nil {
		return buf.String()
	}
	return string(data)
}
