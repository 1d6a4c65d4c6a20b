package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"finchat/api"
	"finchat/store"
	"finchat/transport"
	"finchat/types"

	"go.uber.org/zap"
)

type fakeAPI struct {
	mu            sync.Mutex
	chats         []types.Chat
	messages      map[int64][]types.Message
	fetchCounts   map[int64]int
	nextChatID    int64
	sendResp      *types.Message
	sendErr       error
	onGetMessages func(chatID int64)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		messages:    map[int64][]types.Message{},
		fetchCounts: map[int64]int{},
		nextChatID:  100,
	}
}

func (f *fakeAPI) ListChats(ctx context.Context, workspaceID string) ([]types.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Chat(nil), f.chats...), nil
}

func (f *fakeAPI) GetMessages(ctx context.Context, chatID int64) ([]types.Message, error) {
	f.mu.Lock()
	f.fetchCounts[chatID]++
	msgs := append([]types.Message(nil), f.messages[chatID]...)
	hook := f.onGetMessages
	f.mu.Unlock()
	if hook != nil {
		hook(chatID)
	}
	return msgs, nil
}

func (f *fakeAPI) CreateChat(ctx context.Context, req api.CreateChatRequest) (*types.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextChatID++
	chat := types.Chat{ID: f.nextChatID, Title: req.Title}
	f.chats = append(f.chats, chat)
	return &chat, nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, chatID int64, content string) (*types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.sendResp != nil {
		resp := *f.sendResp
		return &resp, nil
	}
	return nil, fmt.Errorf("http send not configured")
}

func (f *fakeAPI) DeleteChat(ctx context.Context, id int64) error { return nil }

func (f *fakeAPI) fetches(chatID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCounts[chatID]
}

// fakeTransport is an in-memory ChatTransport. Connecting to a real chat
// reports connected and emits the matching status event.
type fakeTransport struct {
	mu      sync.Mutex
	events  chan transport.Event
	status  types.ConnectionStatus
	sendOK  bool
	sent    []string
	chatIDs []int64
	closed  bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		events: make(chan transport.Event, 64),
		status: types.StatusDisconnected,
		sendOK: true,
	}
}

func (f *fakeTransport) Connect(chatID int64, workspaceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatIDs = append(f.chatIDs, chatID)
	if chatID == 0 {
		f.status = types.StatusDisconnected
		return
	}
	f.status = types.StatusConnected
	f.events <- transport.Event{Kind: transport.EventStatus, Status: types.StatusConnected}
}

func (f *fakeTransport) Send(content string, opts *types.VisualizationOptions) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != types.StatusConnected || !f.sendOK {
		return false
	}
	f.sent = append(f.sent, content)
	return true
}

func (f *fakeTransport) Events() <-chan transport.Event { return f.events }

func (f *fakeTransport) Status() types.ConnectionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeTransport) SessionID() string { return "sess-test" }

func (f *fakeTransport) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
}

func (f *fakeTransport) deliver(msg types.Message) {
	f.events <- transport.Event{Kind: transport.EventMessage, Message: msg}
}

func (f *fakeTransport) setSendOK(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendOK = ok
}

func (f *fakeTransport) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func newTestController(t *testing.T, chatAPI *fakeAPI, tr *fakeTransport, opts Options) (*Controller, *store.Store) {
	t.Helper()
	st := store.NewStore()
	ctrl := New(chatAPI, tr, st, nil, opts, zap.NewNop())
	t.Cleanup(ctrl.Close)
	return ctrl, st
}

func timelineUUIDs(st *store.Store) []string {
	s := st.State()
	out := make([]string, 0, len(s.Messages))
	for _, m := range s.Messages {
		out = append(out, m.UUID)
	}
	return out
}

func TestSendWithNoChatsCreatesThenReconciles(t *testing.T) {
	chatAPI := newFakeAPI()
	tr := newFakeTransport()
	ctrl, st := newTestController(t, chatAPI, tr, Options{SettleDelay: 50 * time.Millisecond})

	if err := ctrl.Start(context.Background(), 0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	const question = "What is AAPL's P/E ratio?"
	if err := ctrl.Send(context.Background(), question); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// A chat was created and selected, and the message went out live.
	chatID := st.State().CurrentChatID
	if chatID == 0 {
		t.Fatal("no chat selected after send")
	}
	if sent := tr.sentMessages(); len(sent) != 1 || sent[0] != question {
		t.Fatalf("sent = %v, want the question over the socket", sent)
	}
	if !ctrl.AwaitingReply() {
		t.Error("should be awaiting a reply after sending")
	}

	// Timeline holds exactly the optimistic echo.
	uuids := timelineUUIDs(st)
	if len(uuids) != 1 || !types.IsTempUUID(uuids[0]) {
		t.Fatalf("timeline = %v, want one temp message", uuids)
	}

	// Server confirms the user message, then the assistant answers.
	tr.deliver(types.Message{UUID: "u1", ChatID: chatID, Content: question, IsFromUser: true, IsFromCurrentSession: true, MessageType: types.MessageTypeUser})
	tr.deliver(types.Message{UUID: "b1", ChatID: chatID, Content: "AAPL trades at 28x earnings.", MessageType: types.MessageTypeBot})

	waitFor(t, func() bool {
		return !ctrl.AwaitingReply()
	})
	got := timelineUUIDs(st)
	want := []string{"u1", "b1"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("timeline = %v, want %v (temp echo replaced, reply appended)", got, want)
	}
}

func TestSendFallsBackToHTTP(t *testing.T) {
	chatAPI := newFakeAPI()
	chatAPI.chats = []types.Chat{{ID: 1, Title: "Existing"}}
	chatAPI.sendResp = &types.Message{UUID: "srv-1", ChatID: 1, Content: "hello", IsFromUser: true}
	tr := newFakeTransport()
	ctrl, st := newTestController(t, chatAPI, tr, Options{})

	if err := ctrl.Start(context.Background(), 1); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	tr.setSendOK(false)

	if err := ctrl.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// The HTTP response replaces the optimistic echo by content match.
	got := timelineUUIDs(st)
	if len(got) != 1 || got[0] != "srv-1" {
		t.Errorf("timeline = %v, want [srv-1]", got)
	}
}

func TestSendQueuesAndFlushesOnReconnect(t *testing.T) {
	chatAPI := newFakeAPI()
	chatAPI.chats = []types.Chat{{ID: 1, Title: "Existing"}}
	chatAPI.sendErr = fmt.Errorf("backend unreachable")
	tr := newFakeTransport()
	ctrl, _ := newTestController(t, chatAPI, tr, Options{PendingLimit: 2})

	if err := ctrl.Start(context.Background(), 1); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	tr.setSendOK(false)

	if err := ctrl.Send(context.Background(), "first"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := ctrl.Send(context.Background(), "second"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	err := ctrl.Send(context.Background(), "third")
	if err == nil || !strings.Contains(err.Error(), "queue full") {
		t.Errorf("third Send() error = %v, want queue-full error", err)
	}

	// Reconnect: the queued messages replay in order.
	tr.setSendOK(true)
	tr.Connect(1, "")
	waitFor(t, func() bool {
		return len(tr.sentMessages()) == 2
	})
	sent := tr.sentMessages()
	if sent[0] != "first" || sent[1] != "second" {
		t.Errorf("flushed = %v, want [first second]", sent)
	}
}

func TestSelectChatUsesCache(t *testing.T) {
	chatAPI := newFakeAPI()
	chatAPI.chats = []types.Chat{{ID: 1}, {ID: 2}}
	chatAPI.messages[1] = []types.Message{{UUID: "m1", ChatID: 1, Content: "one"}}
	chatAPI.messages[2] = []types.Message{{UUID: "m2", ChatID: 2, Content: "two"}}
	tr := newFakeTransport()
	ctrl, st := newTestController(t, chatAPI, tr, Options{})

	if err := ctrl.Start(context.Background(), 1); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := ctrl.SelectChat(context.Background(), 2); err != nil {
		t.Fatalf("SelectChat(2) error = %v", err)
	}
	if err := ctrl.SelectChat(context.Background(), 1); err != nil {
		t.Fatalf("SelectChat(1) error = %v", err)
	}

	// Chat 1 was loaded during Start; returning to it must hit the cache.
	if got := chatAPI.fetches(1); got != 1 {
		t.Errorf("chat 1 fetched %d times, want 1", got)
	}
	if got := timelineUUIDs(st); len(got) != 1 || got[0] != "m1" {
		t.Errorf("timeline = %v, want [m1]", got)
	}
}

func TestStaleFetchDropped(t *testing.T) {
	chatAPI := newFakeAPI()
	chatAPI.chats = []types.Chat{{ID: 1}, {ID: 2}}
	chatAPI.messages[1] = []types.Message{{UUID: "m1", ChatID: 1, Content: "one"}}
	tr := newFakeTransport()
	ctrl, st := newTestController(t, chatAPI, tr, Options{})

	if err := ctrl.Start(context.Background(), 0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// The user switches to chat 2 while chat 1's fetch is in flight.
	chatAPI.onGetMessages = func(chatID int64) {
		if chatID == 1 {
			st.Dispatch(store.SetCurrentChat{ChatID: 2})
		}
	}
	if err := ctrl.SelectChat(context.Background(), 1); err != nil {
		t.Fatalf("SelectChat(1) error = %v", err)
	}

	s := st.State()
	if s.CurrentChatID != 2 {
		t.Fatalf("CurrentChatID = %d, want 2", s.CurrentChatID)
	}
	if len(s.Messages) != 0 {
		t.Errorf("chat 2 timeline = %v, want empty (stale fetch dropped)", timelineUUIDs(st))
	}
}

func TestBufferedFrameForPreviousChatDropped(t *testing.T) {
	chatAPI := newFakeAPI()
	chatAPI.chats = []types.Chat{{ID: 1}, {ID: 2}}
	chatAPI.messages[1] = []types.Message{{UUID: "m1", ChatID: 1, Content: "one"}}
	tr := newFakeTransport()
	ctrl, st := newTestController(t, chatAPI, tr, Options{})

	if err := ctrl.Start(context.Background(), 1); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := ctrl.SelectChat(context.Background(), 2); err != nil {
		t.Fatalf("SelectChat(2) error = %v", err)
	}

	// A chat-1 frame still sitting in the event buffer when the user
	// switched must not land in chat 2's timeline.
	tr.deliver(types.Message{UUID: "late-1", ChatID: 1, Content: "late", MessageType: types.MessageTypeBot})
	tr.deliver(types.Message{UUID: "b2", ChatID: 2, Content: "fresh", MessageType: types.MessageTypeBot})

	waitFor(t, func() bool {
		got := timelineUUIDs(st)
		return len(got) > 0 && got[len(got)-1] == "b2"
	})
	if got := timelineUUIDs(st); len(got) != 1 || got[0] != "b2" {
		t.Fatalf("chat 2 timeline = %v, want [b2]", got)
	}

	// Chat 1's cached timeline is untouched by the dropped frame.
	if err := ctrl.SelectChat(context.Background(), 1); err != nil {
		t.Fatalf("SelectChat(1) error = %v", err)
	}
	if got := timelineUUIDs(st); len(got) != 1 || got[0] != "m1" {
		t.Errorf("chat 1 timeline = %v, want [m1]", got)
	}
}

func TestDeleteCurrentChatGoesIdle(t *testing.T) {
	chatAPI := newFakeAPI()
	chatAPI.chats = []types.Chat{{ID: 1, Title: "Doomed"}}
	tr := newFakeTransport()
	ctrl, st := newTestController(t, chatAPI, tr, Options{})

	if err := ctrl.Start(context.Background(), 1); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := ctrl.DeleteChat(context.Background(), 1); err != nil {
		t.Fatalf("DeleteChat() error = %v", err)
	}

	if st.State().CurrentChatID != 0 {
		t.Errorf("CurrentChatID = %d, want 0", st.State().CurrentChatID)
	}
	tr.mu.Lock()
	last := tr.chatIDs[len(tr.chatIDs)-1]
	tr.mu.Unlock()
	if last != 0 {
		t.Errorf("last Connect chat id = %d, want 0 (idle)", last)
	}
}

func TestSendRejectsEmptyInput(t *testing.T) {
	chatAPI := newFakeAPI()
	tr := newFakeTransport()
	ctrl, _ := newTestController(t, chatAPI, tr, Options{})

	if err := ctrl.Send(context.Background(), "   "); err == nil {
		t.Error("Send() with blank content should fail")
	}
}
