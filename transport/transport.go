package transport

import (
	"sync"

	"finchat/types"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// EventKind discriminates transport events.
type EventKind int

const (
	EventStatus EventKind = iota
	EventMessage
)

// Event is one normalized occurrence on the transport: a connection
// status change or an inbound message.
type Event struct {
	Kind    EventKind
	Status  types.ConnectionStatus
	Message types.Message
}

// Transport manages exactly one live connection at a time, re-created
// whenever the (chat, workspace) dependency pair changes. It runs the
// socket reader as a goroutine that yields normalized events on a channel;
// the consumer must drain Events() until it is closed.
type Transport struct {
	factory Factory
	logger  *zap.Logger
	events  chan Event

	mu        sync.Mutex
	status    types.ConnectionStatus
	handle    *Handle
	gen       uint64
	sessionID string
	closed    bool

	// seen holds uuids already delivered, across reconnects, so a frame
	// replayed by the backend is dropped before it reaches the store.
	seen *lru.Cache

	emitters sync.WaitGroup
}

// New creates a Transport around the given factory. dedupSize bounds the
// seen-uuid cache.
func New(factory Factory, dedupSize int, logger *zap.Logger) (*Transport, error) {
	if dedupSize <= 0 {
		dedupSize = 512
	}
	seen, err := lru.New(dedupSize)
	if err != nil {
		return nil, err
	}
	return &Transport{
		factory: factory,
		logger:  logger,
		events:  make(chan Event, 256),
		status:  types.StatusDisconnected,
		seen:    seen,
	}, nil
}

// Events is the stream of status changes and inbound messages. Closed by
// Close; consumers should range over it.
func (t *Transport) Events() <-chan Event {
	return t.events
}

// Status returns the current connection status.
func (t *Transport) Status() types.ConnectionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// SessionID returns this transport's session identity, creating it on
// first use. It is stable across reconnects for the transport's lifetime.
func (t *Transport) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessionID == "" {
		t.sessionID = uuid.New().String()
	}
	return t.sessionID
}

// Connect tears down any previous connection and attempts a new one for
// the given chat. A zero chatID means "no chat selected": the previous
// socket is closed and the transport stays disconnected.
func (t *Transport) Connect(chatID int64, workspaceID string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	// Scoped teardown: the previous socket is always closed before the
	// replacement exists, so a late frame on it can never be attributed
	// to the new chat.
	t.teardownLocked()
	t.gen++
	gen := t.gen
	if t.sessionID == "" {
		t.sessionID = uuid.New().String()
	}
	sessionID := t.sessionID
	t.mu.Unlock()

	t.emitters.Add(1)
	defer t.emitters.Done()

	var chatIDStr string
	if chatID != 0 {
		chatIDStr = chatIDString(chatID)
	}

	t.setStatus(gen, types.StatusConnecting)

	handle, err := t.factory(chatIDStr, sessionID, workspaceID)
	if err != nil {
		t.logger.Warn("Chat socket dial failed",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		t.setStatus(gen, types.StatusError)
		return
	}
	if handle == nil {
		// No chat or no credential: quietly stay down. The HTTP fallback
		// remains available.
		t.setStatus(gen, types.StatusDisconnected)
		return
	}

	t.mu.Lock()
	if t.gen != gen || t.closed {
		// Superseded while dialing; the newer connection owns the state.
		t.mu.Unlock()
		handle.Close()
		return
	}
	t.handle = handle
	t.mu.Unlock()

	t.setStatus(gen, types.StatusConnected)

	t.emitters.Add(1)
	go t.readLoop(gen, handle)
}

// Send writes a message through the live socket. Returns false, never an
// error, when the transport is not connected; the caller falls back to
// HTTP on false.
func (t *Transport) Send(content string, opts *types.VisualizationOptions) bool {
	t.mu.Lock()
	handle := t.handle
	ok := t.status == types.StatusConnected && handle != nil
	t.mu.Unlock()
	if !ok {
		return false
	}
	if err := handle.Send(content, opts); err != nil {
		t.logger.Warn("Chat socket send failed", zap.Error(err))
		return false
	}
	return true
}

// Close tears down the connection and closes the event channel. No event
// is delivered after Close returns.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.gen++
	t.teardownLocked()
	t.status = types.StatusDisconnected
	t.mu.Unlock()

	t.emitters.Wait()
	close(t.events)
}

func (t *Transport) teardownLocked() {
	if t.handle != nil {
		t.handle.Close()
		t.handle = nil
	}
}

// setStatus records and emits a status change, unless the attempt it
// belongs to has been superseded.
func (t *Transport) setStatus(gen uint64, status types.ConnectionStatus) {
	t.mu.Lock()
	if t.gen != gen || t.closed {
		t.mu.Unlock()
		return
	}
	t.status = status
	t.mu.Unlock()
	t.events <- Event{Kind: EventStatus, Status: status}
}

// readLoop pumps one socket until it dies, forwarding normalized messages.
// Frames from a superseded generation are discarded.
func (t *Transport) readLoop(gen uint64, handle *Handle) {
	defer t.emitters.Done()
	for {
		_, data, err := handle.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.setStatus(gen, types.StatusDisconnected)
			} else {
				t.mu.Lock()
				stale := t.gen != gen
				t.mu.Unlock()
				if stale {
					// Our own teardown; not an error.
					return
				}
				t.logger.Warn("Chat socket read failed", zap.Error(err))
				t.setStatus(gen, types.StatusDisconnected)
			}
			return
		}

		msg, err := decodeFrame(data, t.SessionID())
		if err != nil {
			// Malformed frames are logged and dropped; the timeline is
			// unaffected.
			t.logger.Warn("Dropping malformed frame", zap.Error(err))
			continue
		}

		if msg.UUID != "" {
			if types.IsTempUUID(msg.UUID) {
				// Another tab's optimistic echo; the confirmed message
				// follows with a real uuid.
				continue
			}
			if found, _ := t.seen.ContainsOrAdd(msg.UUID, struct{}{}); found {
				continue
			}
		}

		t.mu.Lock()
		stale := t.gen != gen || t.closed
		t.mu.Unlock()
		if stale {
			return
		}
		t.events <- Event{Kind: EventMessage, Message: msg}
	}
}
