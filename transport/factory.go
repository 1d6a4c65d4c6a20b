// Package transport owns the real-time side of a chat: one WebSocket
// connection per (chat, workspace) pair, normalized inbound events, and a
// gated outbound send. The HTTP fallback lives in the api package.
package transport

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"finchat/errors"
	"finchat/types"

	"github.com/gorilla/websocket"
)

// TokenSource supplies the current bearer token. The session store
// satisfies this.
type TokenSource interface {
	Token() string
}

// Factory builds a live connection handle for a chat. It fails softly:
// a (nil, nil) return means "no connection possible right now" (missing
// chat id or credential), which the Transport treats the same as not yet
// connected. A non-nil error means the dial itself failed.
type Factory func(chatID, sessionID, workspaceID string) (*Handle, error)

// Handle is one open socket plus its send/close capability.
type Handle struct {
	conn        *websocket.Conn
	sessionID   string
	workspaceID string
	vizDefaults types.VisualizationOptions

	mu     sync.Mutex
	closed bool
}

// outboundFrame is the wire envelope for user messages.
type outboundFrame struct {
	Content              string                     `json:"content"`
	Format               string                     `json:"format"`
	SessionID            string                     `json:"session_id,omitempty"`
	WorkspaceID          string                     `json:"workspace_id,omitempty"`
	VisualizationOptions types.VisualizationOptions `json:"visualization_options"`
}

// NewFactory returns a Factory bound to the WS base URL and credential
// source. vizDefaults is attached to every outbound frame unless the
// caller overrides per send.
func NewFactory(wsBaseURL string, tokens TokenSource, dialTimeout time.Duration, vizDefaults types.VisualizationOptions) Factory {
	return func(chatID, sessionID, workspaceID string) (*Handle, error) {
		if chatID == "" {
			return nil, nil
		}
		token := tokens.Token()
		if token == "" {
			return nil, nil
		}

		q := url.Values{}
		q.Set("token", token)
		if sessionID != "" {
			q.Set("session_id", sessionID)
		}
		if workspaceID != "" {
			q.Set("workspace_id", workspaceID)
		}
		target := fmt.Sprintf("%s/chats/ws/%s?%s", wsBaseURL, chatID, q.Encode())

		dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
		conn, resp, err := dialer.Dial(target, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			return nil, errors.WrapErrorf(err, "could not open chat socket for chat %s", chatID)
		}

		return &Handle{
			conn:        conn,
			sessionID:   sessionID,
			workspaceID: workspaceID,
			vizDefaults: vizDefaults,
		}, nil
	}
}

// Send writes one message envelope. It errors when the socket is no
// longer open; callers are expected to check transport status first.
func (h *Handle) Send(content string, opts *types.VisualizationOptions) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.ErrNotConnected
	}
	viz := h.vizDefaults
	if opts != nil {
		viz = *opts
	}
	frame := outboundFrame{
		Content:              content,
		Format:               "txt",
		SessionID:            h.sessionID,
		WorkspaceID:          h.workspaceID,
		VisualizationOptions: viz,
	}
	return h.conn.WriteJSON(frame)
}

// Close shuts the socket. Safe to call more than once.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.conn.Close()
}
