// Package realtime provides the client side of the chat realtime channel: a
// reconnecting WebSocket transport that feeds inbound frames into a local
// MessageCache and tracks the vendor typing indicator.
//
// The transport is deliberately decoupled from any UI lifecycle: callers
// start it with Start and stop it with Close, and observe connectivity via
// an explicit state signal instead of inferring it from missing updates.
//
// Recovery model: on any dial failure or socket close the transport retries
// with capped exponential backoff (base·2^attempt up to a ceiling), at most
// MaxRetries reconnect attempts per outage. A successful open resets the
// counter. When the budget is exhausted the transport parks in StateOffline;
// the cached data remains readable and the REST fetch path is the fallback.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/creaotrhubn26/wedflow-sub006/internal/domain"
	"github.com/creaotrhubn26/wedflow-sub006/internal/ws"
)

// State is the transport's connection state, exposed to callers so a UI can
// render connected / reconnecting / offline instead of failing silently.
type State int

const (
	// StateIdle is the initial state before Start.
	StateIdle State = iota
	// StateConnecting covers the first dial of an outage-free session.
	StateConnecting
	// StateOpen means the socket is established and frames are flowing.
	StateOpen
	// StateReconnecting covers the backoff wait plus redial after a drop.
	StateReconnecting
	// StateOffline means the retry budget is exhausted; no further attempts
	// will be made. Cached data stays available.
	StateOffline
	// StateTerminated means Close was called; the transport is done.
	StateTerminated
)

// String returns a short lower-case label for s.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateOffline:
		return "offline"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Conn is the subset of a WebSocket connection the transport reads from.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens a connection to the realtime endpoint. Injectable for tests.
type Dialer interface {
	DialContext(ctx context.Context, endpoint string) (Conn, error)
}

// GorillaDialer is the production Dialer backed by gorilla/websocket.
type GorillaDialer struct {
	// Dialer optionally overrides websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// DialContext implements Dialer.
func (d GorillaDialer) DialContext(ctx context.Context, endpoint string) (Conn, error) {
	wd := d.Dialer
	if wd == nil {
		wd = websocket.DefaultDialer
	}
	conn, _, err := wd.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// EndpointURL builds the couple realtime URL from the API base
// (e.g. "wss://api.example.com"), the session token, and the conversation.
func EndpointURL(base, token, conversationID string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("conversationId", conversationID)
	return base + "/ws/couples?" + q.Encode()
}

// Options configures a Transport. Zero-value durations and counts take the
// production defaults.
type Options struct {
	// Endpoint is the full WebSocket URL (see EndpointURL). Required.
	Endpoint string
	// ConversationID keys the cache entries this transport feeds. Required.
	ConversationID string

	// Dialer defaults to GorillaDialer{}.
	Dialer Dialer
	// Cache defaults to a fresh MessageCache.
	Cache *MessageCache
	// Logger defaults to a no-op logger; the transport never logs on its
	// own unless given one.
	Logger zerolog.Logger

	// BackoffBase is the first reconnect delay (default 3s).
	BackoffBase time.Duration
	// BackoffCap bounds the exponential delay (default 30s).
	BackoffCap time.Duration
	// MaxRetries is the reconnect budget per outage (default 3).
	MaxRetries int
	// TypingTTL is how long the vendor typing flag stays set after the most
	// recent typing frame (default 5s).
	TypingTTL time.Duration

	// OnStateChange, OnMessage and OnTyping are optional observer hooks.
	// They are invoked from transport goroutines and must not block.
	OnStateChange func(State)
	OnMessage     func(domain.Message)
	OnTyping      func(bool)
}

// Transport maintains one realtime connection for one conversation.
type Transport struct {
	opts   Options
	cache  *MessageCache
	dialer Dialer
	log    zerolog.Logger

	mu          sync.Mutex
	state       State
	attempt     int
	conn        Conn
	typing      bool
	typingTimer *time.Timer
	started     bool
	closed      bool
	closedCh    chan struct{}
}

// ErrMissingEndpoint is returned by Start when no endpoint or conversation
// was configured; the caller is expected to wait until both are available
// (e.g. session token loaded) before starting.
var ErrMissingEndpoint = errors.New("realtime: endpoint and conversation id are required")

// ErrAlreadyStarted is returned by Start on reuse; transports are single-use.
var ErrAlreadyStarted = errors.New("realtime: transport already started")

// NewTransport builds a Transport from opts, applying defaults.
func NewTransport(opts Options) *Transport {
	if opts.Dialer == nil {
		opts.Dialer = GorillaDialer{}
	}
	if opts.Cache == nil {
		opts.Cache = NewMessageCache()
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 3 * time.Second
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.TypingTTL <= 0 {
		opts.TypingTTL = 5 * time.Second
	}
	return &Transport{
		opts:     opts,
		cache:    opts.Cache,
		dialer:   opts.Dialer,
		log:      opts.Logger,
		state:    StateIdle,
		closedCh: make(chan struct{}),
	}
}

// Cache returns the message cache the transport appends into.
func (t *Transport) Cache() *MessageCache { return t.cache }

// State returns the current connection state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// VendorTyping reports whether the vendor typing flag is currently set.
func (t *Transport) VendorTyping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing
}

// Start begins connecting in a background goroutine. It fails fast when the
// endpoint is not configured or the transport was already started.
func (t *Transport) Start(ctx context.Context) error {
	if t.opts.Endpoint == "" || t.opts.ConversationID == "" {
		return ErrMissingEndpoint
	}
	t.mu.Lock()
	if t.started || t.closed {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	t.started = true
	t.mu.Unlock()

	go t.run(ctx)
	return nil
}

// Close tears the transport down: it closes the live socket if any, stops
// the typing decay timer, and guarantees that no timer fires and no cache
// mutation happens afterwards. Safe to call more than once.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.closedCh)
	conn := t.conn
	t.conn = nil
	if t.typingTimer != nil {
		t.typingTimer.Stop()
		t.typingTimer = nil
	}
	t.typing = false
	t.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	t.setState(StateTerminated)
}

// run is the connect/read/backoff loop. One invocation per Start.
func (t *Transport) run(ctx context.Context) {
	first := true
	for {
		if t.isClosed() {
			return
		}
		if first {
			t.setState(StateConnecting)
		} else {
			t.setState(StateReconnecting)
		}

		conn, err := t.dialer.DialContext(ctx, t.opts.Endpoint)
		if err != nil {
			t.log.Debug().Err(err).Msg("realtime: dial failed")
			if !t.waitBackoff(ctx) {
				return
			}
			first = false
			continue
		}

		if !t.adopt(conn) {
			// Closed while dialing; drop the fresh connection.
			conn.Close()
			return
		}
		t.resetAttempts()
		t.setState(StateOpen)
		t.log.Debug().Msg("realtime: open")

		t.readLoop(conn)
		t.release(conn)
		if t.isClosed() {
			return
		}
		if !t.waitBackoff(ctx) {
			return
		}
		first = false
	}
}

// readLoop consumes frames until the connection errors out.
func (t *Transport) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		t.handleFrame(data)
	}
}

// handleFrame parses one inbound frame. Malformed frames are dropped
// silently; after Close nothing mutates the cache or the typing flag.
func (t *Transport) handleFrame(data []byte) {
	if t.isClosed() {
		return
	}

	var f ws.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.log.Debug().Err(err).Msg("realtime: malformed frame dropped")
		return
	}

	switch f.Type {
	case ws.EventMessage:
		var m domain.Message
		if err := json.Unmarshal(f.Payload, &m); err != nil || m.ID == "" {
			t.log.Debug().Msg("realtime: malformed message payload dropped")
			return
		}
		if m.ConversationID == "" {
			m.ConversationID = t.opts.ConversationID
		}
		if t.isClosed() {
			return
		}
		if t.cache.Append(m) && t.opts.OnMessage != nil {
			t.opts.OnMessage(m)
		}

	case ws.EventTyping:
		var p ws.TypingPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return
		}
		if p.Sender == domain.SenderVendor {
			t.markTyping()
		}

	default:
		// Unknown frame types are ignored so the protocol can grow.
	}
}

// markTyping sets the vendor typing flag and (re)arms a single coalescing
// decay timer: each frame resets the window instead of stacking timers.
func (t *Transport) markTyping() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	wasTyping := t.typing
	t.typing = true
	if t.typingTimer != nil {
		t.typingTimer.Stop()
	}
	t.typingTimer = time.AfterFunc(t.opts.TypingTTL, t.clearTyping)
	cb := t.opts.OnTyping
	t.mu.Unlock()

	if !wasTyping && cb != nil {
		cb(true)
	}
}

// clearTyping is the decay timer callback.
func (t *Transport) clearTyping() {
	t.mu.Lock()
	if t.closed || !t.typing {
		t.mu.Unlock()
		return
	}
	t.typing = false
	t.typingTimer = nil
	cb := t.opts.OnTyping
	t.mu.Unlock()

	if cb != nil {
		cb(false)
	}
}

// waitBackoff sleeps for the next capped exponential delay. It returns
// false when the retry budget is exhausted (transitioning to StateOffline)
// or the transport is shut down mid-wait.
func (t *Transport) waitBackoff(ctx context.Context) bool {
	t.mu.Lock()
	if t.attempt >= t.opts.MaxRetries {
		t.mu.Unlock()
		t.setState(StateOffline)
		t.log.Debug().Msg("realtime: retry budget exhausted")
		return false
	}
	delay := t.opts.BackoffBase << uint(t.attempt)
	if delay > t.opts.BackoffCap {
		delay = t.opts.BackoffCap
	}
	t.attempt++
	t.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-t.closedCh:
		return false
	case <-ctx.Done():
		t.Close()
		return false
	}
}

// adopt records conn as the live connection unless the transport is closed.
func (t *Transport) adopt(conn Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.conn = conn
	return true
}

// release forgets conn after its read loop ended.
func (t *Transport) release(conn Conn) {
	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
	}
	t.mu.Unlock()
	conn.Close()
}

func (t *Transport) resetAttempts() {
	t.mu.Lock()
	t.attempt = 0
	t.mu.Unlock()
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// setState records the new state and notifies the observer. Terminal states
// win: once Terminated (or Offline, unless terminating) is reached, later
// transitions from stale goroutines are ignored.
func (t *Transport) setState(s State) {
	t.mu.Lock()
	if t.state == s ||
		t.state == StateTerminated ||
		(t.state == StateOffline && s != StateTerminated) {
		t.mu.Unlock()
		return
	}
	t.state = s
	cb := t.opts.OnStateChange
	t.mu.Unlock()

	if cb != nil {
		cb(s)
	}
}
