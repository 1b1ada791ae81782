// Package ws implements the realtime fan-out side of the chat system: a
// conversation-keyed hub that pushes JSON frames to subscribed couple
// clients over WebSocket. The wire format is shared with the reconnecting
// client in internal/realtime.
package ws

import "encoding/json"

// Frame event types. The client drops any frame whose type it does not
// recognize.
const (
	EventMessage = "message"
	EventTyping  = "typing"
)

// Frame is the envelope for every frame pushed over the socket. Payload is
// kept raw so the hub can fan out a frame without re-marshalling per
// subscriber and the client can defer payload decoding until the type is
// known.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// TypingPayload is the payload of an EventTyping frame. The receiver clears
// its indicator on a timer; there is no explicit stop event.
type TypingPayload struct {
	Sender string `json:"sender"`
}

// NewFrame marshals payload into a Frame envelope. Marshalling errors are
// returned to the caller; payloads are domain structs and only fail on
// programmer error.
func NewFrame(eventType string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: eventType, Payload: raw}, nil
}
