// Package controller sequences the api client, the chat transport, and
// the state store into observable chat behavior: initial load, chat
// switching, optimistic send with HTTP fallback, and reconciliation of
// inbound frames.
package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"finchat/api"
	"finchat/errors"
	"finchat/store"
	"finchat/transport"
	"finchat/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ChatAPI is the slice of the HTTP client the controller needs.
type ChatAPI interface {
	ListChats(ctx context.Context, workspaceID string) ([]types.Chat, error)
	GetMessages(ctx context.Context, chatID int64) ([]types.Message, error)
	CreateChat(ctx context.Context, req api.CreateChatRequest) (*types.Chat, error)
	SendMessage(ctx context.Context, chatID int64, content string) (*types.Message, error)
	DeleteChat(ctx context.Context, id int64) error
}

// ChatTransport is the real-time side. *transport.Transport satisfies it.
type ChatTransport interface {
	Connect(chatID int64, workspaceID string)
	Send(content string, opts *types.VisualizationOptions) bool
	Events() <-chan transport.Event
	Status() types.ConnectionStatus
	SessionID() string
	Close()
}

// WorkspaceMemory remembers the last selected workspace across runs.
// The session store satisfies it.
type WorkspaceMemory interface {
	SelectedWorkspace() string
	SetSelectedWorkspace(id string) error
}

// Options tunes controller behavior.
type Options struct {
	// SettleDelay bounds how long a first send waits for a freshly
	// opened transport to reach connected.
	SettleDelay time.Duration
	// PendingLimit bounds the queue of messages awaiting a reconnect.
	PendingLimit int
	// WorkspaceID scopes the whole session; empty falls back to the
	// remembered workspace.
	WorkspaceID string
}

type Controller struct {
	api       ChatAPI
	transport ChatTransport
	store     *store.Store
	memory    WorkspaceMemory
	logger    *zap.Logger

	workspaceID  string
	settleDelay  time.Duration
	pendingLimit int

	mu       sync.Mutex
	pending  []string
	awaiting bool
	onUpdate func()

	closeOnce sync.Once
	started   bool
	loopDone  chan struct{}
}

func New(chatAPI ChatAPI, chatTransport ChatTransport, st *store.Store, memory WorkspaceMemory, opts Options, logger *zap.Logger) *Controller {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 500 * time.Millisecond
	}
	if opts.PendingLimit <= 0 {
		opts.PendingLimit = 16
	}
	return &Controller{
		api:          chatAPI,
		transport:    chatTransport,
		store:        st,
		memory:       memory,
		logger:       logger,
		workspaceID:  opts.WorkspaceID,
		settleDelay:  opts.SettleDelay,
		pendingLimit: opts.PendingLimit,
		loopDone:     make(chan struct{}),
	}
}

// Workspace returns the workspace this controller is scoped to ("" for
// personal chats).
func (c *Controller) Workspace() string {
	return c.workspaceID
}

// OnUpdate registers a callback fired after every store change driven by
// the event loop, so the UI can re-render.
func (c *Controller) OnUpdate(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// Start resolves the workspace scope, loads the chat list and (when given)
// the initial chat's timeline, opens the transport, and begins consuming
// transport events. Blocks only for the initial load.
func (c *Controller) Start(ctx context.Context, initialChatID int64) error {
	if c.workspaceID == "" && c.memory != nil {
		c.workspaceID = c.memory.SelectedWorkspace()
	}

	var (
		chats    []types.Chat
		messages []types.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		chats, err = c.api.ListChats(gctx, c.workspaceID)
		return err
	})
	if initialChatID != 0 {
		g.Go(func() error {
			var err error
			messages, err = c.api.GetMessages(gctx, initialChatID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return errors.WrapError(err, "initial load failed")
	}

	c.store.Dispatch(store.SetChats{Chats: chats})
	if initialChatID != 0 {
		c.store.Dispatch(store.SetCurrentChat{ChatID: initialChatID})
		c.store.Dispatch(store.SetMessages{Messages: messages})
	}

	c.transport.Connect(initialChatID, c.workspaceID)
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	go c.eventLoop()
	go func() {
		<-ctx.Done()
		c.Close()
	}()
	return nil
}

// eventLoop drains transport events into the store until the transport
// closes its channel.
func (c *Controller) eventLoop() {
	defer close(c.loopDone)
	for ev := range c.transport.Events() {
		switch ev.Kind {
		case transport.EventStatus:
			c.logger.Debug("Transport status changed", zap.String("status", string(ev.Status)))
			if ev.Status == types.StatusConnected {
				c.flushPending()
			}
		case transport.EventMessage:
			c.reconcile(ev.Message)
		}
		c.notify()
	}
}

// reconcile folds one inbound message into the store and clears the
// awaiting-reply flag once anything non-user arrives.
func (c *Controller) reconcile(msg types.Message) {
	// The transport's generation guard stops frames emitted after a chat
	// switch, but frames already buffered in the events channel still
	// arrive here. Route by the frame's own chat id so they can never be
	// written (and cached) into the wrong timeline.
	if msg.ChatID != 0 && msg.ChatID != c.store.State().CurrentChatID {
		c.logger.Debug("Dropping frame for inactive chat",
			zap.Int64("chat_id", msg.ChatID),
			zap.String("uuid", msg.UUID))
		return
	}
	if msg.WorkspaceID == "" {
		msg.WorkspaceID = c.workspaceID
	}
	c.store.Dispatch(store.AddMessages{Messages: []types.Message{msg}})
	if !msg.IsFromUser {
		c.mu.Lock()
		c.awaiting = false
		c.mu.Unlock()
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onUpdate
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SelectChat switches the active chat, fetching its timeline only when it
// is not already cached. The fetch result is routed by the chat id
// captured here: if the user has moved on by the time it lands, it is
// dropped rather than written into the wrong timeline.
func (c *Controller) SelectChat(ctx context.Context, chatID int64) error {
	cached := c.store.State().Cached(chatID)
	c.store.Dispatch(store.SetCurrentChat{ChatID: chatID})
	c.transport.Connect(chatID, c.workspaceID)

	if cached {
		return nil
	}
	messages, err := c.api.GetMessages(ctx, chatID)
	if err != nil {
		return errors.WrapErrorf(err, "could not load messages for chat %d", chatID)
	}
	if c.store.State().CurrentChatID != chatID {
		c.logger.Debug("Discarding stale message fetch", zap.Int64("chat_id", chatID))
		return nil
	}
	c.store.Dispatch(store.SetMessages{Messages: messages})
	return nil
}

// NewChat creates a chat, selects it, and reopens the transport for it.
func (c *Controller) NewChat(ctx context.Context, title string) (*types.Chat, error) {
	req := api.CreateChatRequest{Title: title}
	if c.workspaceID != "" {
		if id, ok := parseWorkspaceID(c.workspaceID); ok {
			req.WorkspaceID = &id
		}
	}
	chat, err := c.api.CreateChat(ctx, req)
	if err != nil {
		return nil, errors.WrapError(err, "could not create chat")
	}
	c.store.Dispatch(store.AddChat{Chat: *chat})
	c.transport.Connect(chat.ID, c.workspaceID)
	return chat, nil
}

// DeleteChat removes a chat everywhere; if it was active the transport
// goes idle until the next selection.
func (c *Controller) DeleteChat(ctx context.Context, chatID int64) error {
	if err := c.api.DeleteChat(ctx, chatID); err != nil {
		return err
	}
	wasCurrent := c.store.State().CurrentChatID == chatID
	c.store.Dispatch(store.RemoveChat{ChatID: chatID})
	if wasCurrent {
		c.transport.Connect(0, c.workspaceID)
	}
	return nil
}

// Send delivers one user message. With no chat selected it creates one
// first and waits (bounded) for the new transport to settle. The message
// is echoed optimistically with a temp uuid; the server-confirmed arrival
// supersedes it. Delivery order: live socket, then HTTP fallback, then
// the pending queue flushed at the next reconnect.
func (c *Controller) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.WrapError(errors.ErrInvalidInput, "empty message")
	}

	chatID := c.store.State().CurrentChatID
	if chatID == 0 {
		chat, err := c.NewChat(ctx, "New Chat")
		if err != nil {
			return err
		}
		chatID = chat.ID
		c.waitForSettle(ctx)
	}

	optimistic := types.Message{
		UUID:                 types.NewTempUUID(),
		ChatID:               chatID,
		Content:              content,
		Format:               "txt",
		IsFromUser:           true,
		MessageType:          types.MessageTypeUser,
		SessionID:            c.transport.SessionID(),
		IsFromCurrentSession: true,
		WorkspaceID:          c.workspaceID,
		CreatedAt:            types.Timestamp{Time: time.Now()},
	}
	c.store.Dispatch(store.AddMessage{Message: optimistic})
	c.setAwaiting(true)

	if c.transport.Send(content, nil) {
		return nil
	}

	// Fallback boundary: the socket is down. Try HTTP so nothing is
	// silently dropped; failing that, queue for the next reconnect.
	if resp, err := c.api.SendMessage(ctx, chatID, content); err == nil {
		if resp != nil {
			c.store.Dispatch(store.AddMessages{Messages: []types.Message{*resp}})
		}
		return nil
	} else {
		c.logger.Warn("HTTP fallback send failed, queueing message",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) >= c.pendingLimit {
		c.awaiting = false
		return fmt.Errorf("message could not be delivered: transport down and queue full")
	}
	c.pending = append(c.pending, content)
	return nil
}

// flushPending replays queued messages once the transport reconnects.
// A failed replay stops the flush; the remainder waits for the next
// connected event.
func (c *Controller) flushPending() {
	c.mu.Lock()
	queued := c.pending
	c.pending = nil
	c.mu.Unlock()

	for i, content := range queued {
		if !c.transport.Send(content, nil) {
			c.mu.Lock()
			c.pending = append(queued[i:], c.pending...)
			c.mu.Unlock()
			return
		}
	}
	if len(queued) > 0 {
		c.logger.Info("Flushed pending messages", zap.Int("count", len(queued)))
	}
}

// waitForSettle polls, up to the settle delay, for the freshly opened
// transport to report connected so the first send can use the socket.
func (c *Controller) waitForSettle(ctx context.Context) {
	deadline := time.Now().Add(c.settleDelay)
	for time.Now().Before(deadline) {
		if c.transport.Status() == types.StatusConnected {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

func (c *Controller) setAwaiting(v bool) {
	c.mu.Lock()
	c.awaiting = v
	c.mu.Unlock()
}

// AwaitingReply reports whether a user message is outstanding with no
// assistant response yet.
func (c *Controller) AwaitingReply() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.awaiting
}

// ConnectionStatus exposes the transport status for the UI.
func (c *Controller) ConnectionStatus() types.ConnectionStatus {
	return c.transport.Status()
}

// Close shuts the transport and waits for the event loop to drain.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.transport.Close()
		c.mu.Lock()
		started := c.started
		c.mu.Unlock()
		if started {
			<-c.loopDone
		}
	})
}

func parseWorkspaceID(s string) (int64, bool) {
	var id int64
	if _, err := fmt.Sscan(s, &id); err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
