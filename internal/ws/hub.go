package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// subscriber is a single connected client. Frames are delivered over a
// buffered channel; a subscriber that cannot keep up is dropped rather than
// allowed to stall the broadcaster.
type subscriber struct {
	conversationID string
	send           chan []byte
}

// Hub fans realtime frames out to the subscribers of each conversation.
// It holds no persistence: a frame reaches only the clients connected at
// the moment of broadcast, and reconnecting clients recover missed
// messages via the REST list endpoint.
//
// All methods are safe for concurrent use.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{} // conversationID → subscribers

	// sendBuffer is the per-subscriber channel capacity.
	sendBuffer int
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:       make(map[string]map[*subscriber]struct{}),
		sendBuffer: 32,
	}
}

// subscribe registers a new subscriber for conversationID and returns it.
func (h *Hub) subscribe(conversationID string) *subscriber {
	s := &subscriber{
		conversationID: conversationID,
		send:           make(chan []byte, h.sendBuffer),
	}
	h.mu.Lock()
	set, ok := h.subs[conversationID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[conversationID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// unsubscribe removes s and closes its channel. Safe to call twice.
func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[s.conversationID]; ok {
		if _, member := set[s]; member {
			delete(set, s)
			close(s.send)
			if len(set) == 0 {
				delete(h.subs, s.conversationID)
			}
		}
	}
	h.mu.Unlock()
}

// Broadcast marshals the frame once and queues it to every subscriber of
// conversationID. Slow subscribers have the frame dropped; the REST fetch
// path is the recovery mechanism, so a dropped frame is a latency issue,
// not a data-loss issue.
func (h *Hub) Broadcast(conversationID string, f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("ws: marshal frame")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[conversationID] {
		select {
		case s.send <- data:
		default:
			log.Warn().Str("conversation_id", conversationID).Msg("ws: subscriber buffer full, frame dropped")
		}
	}
}

// BroadcastMessage is a convenience wrapper that wraps payload in an
// EventMessage frame.
func (h *Hub) BroadcastMessage(conversationID string, payload any) {
	f, err := NewFrame(EventMessage, payload)
	if err != nil {
		log.Error().Err(err).Msg("ws: build message frame")
		return
	}
	h.Broadcast(conversationID, f)
}

// BroadcastTyping emits an EventTyping frame for the given sender side.
func (h *Hub) BroadcastTyping(conversationID, sender string) {
	f, err := NewFrame(EventTyping, TypingPayload{Sender: sender})
	if err != nil {
		log.Error().Err(err).Msg("ws: build typing frame")
		return
	}
	h.Broadcast(conversationID, f)
}

// Subscribers reports how many clients are attached to a conversation.
// Used by tests and the health surface.
func (h *Hub) Subscribers(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[conversationID])
}
