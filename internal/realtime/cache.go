package realtime

import (
	"sync"

	"github.com/creaotrhubn26/wedflow-sub006/internal/domain"
)

// MessageCache is the client-side message store the transport appends into.
// It keeps one append-only ordered list per conversation and guarantees
// that a message ID appears at most once per conversation, regardless of
// how many times the server (or a reconnect race) delivers it.
//
// Ordering is insertion order: the transport assumes frames arrive in
// server order and performs no reordering.
//
// Safe for concurrent use.
type MessageCache struct {
	mu       sync.RWMutex
	byConv   map[string][]domain.Message
	seenByID map[string]map[string]struct{} // conversationID → message IDs
}

// NewMessageCache returns an empty cache.
func NewMessageCache() *MessageCache {
	return &MessageCache{
		byConv:   make(map[string][]domain.Message),
		seenByID: make(map[string]map[string]struct{}),
	}
}

// Append inserts m unless its ID is already present for the conversation.
// It reports whether the message was actually added.
func (c *MessageCache) Append(m domain.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen, ok := c.seenByID[m.ConversationID]
	if !ok {
		seen = make(map[string]struct{})
		c.seenByID[m.ConversationID] = seen
	}
	if _, dup := seen[m.ID]; dup {
		return false
	}
	seen[m.ID] = struct{}{}
	c.byConv[m.ConversationID] = append(c.byConv[m.ConversationID], m)
	return true
}

// Seed replaces the conversation's list with messages fetched over REST,
// typically after (re)connecting. Later realtime appends dedup against the
// seeded IDs.
func (c *MessageCache) Seed(conversationID string, msgs []domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(msgs))
	list := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		list = append(list, m)
	}
	c.seenByID[conversationID] = seen
	c.byConv[conversationID] = list
}

// Messages returns a snapshot copy of the conversation's list.
func (c *MessageCache) Messages(conversationID string) []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	src := c.byConv[conversationID]
	out := make([]domain.Message, len(src))
	copy(out, src)
	return out
}

// Len reports the number of cached messages for a conversation.
func (c *MessageCache) Len(conversationID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byConv[conversationID])
}
