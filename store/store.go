// Package store is the single source of truth for chat state: the chat
// list, the active chat, and a per-chat message timeline cache. State only
// changes through Reduce, which applies one discrete action at a time; the
// uuid-idempotent merge is what keeps timelines consistent no matter how
// HTTP responses and socket frames interleave.
package store

import (
	"sync"

	"finchat/types"
)

// State is an immutable snapshot of chat state. The active timeline is
// always the cache entry for the current chat id.
type State struct {
	Chats         []types.Chat
	ChatsLoaded   bool
	CurrentChatID int64
	Messages      []types.Message

	// cache retains every loaded timeline so switching back to a chat
	// never re-fetches. Keyed by chat id.
	cache map[int64][]types.Message
}

// Action is a discrete state transition request.
type Action interface{ isAction() }

// SetChats replaces the chat list and marks it loaded.
type SetChats struct{ Chats []types.Chat }

// SetCurrentChat switches the active chat. The timeline becomes whatever
// is cached for that chat; other chats' caches are untouched.
type SetCurrentChat struct{ ChatID int64 }

// SetMessages replaces the active chat's timeline wholesale (after a
// fetch) and persists it into the cache.
type SetMessages struct{ Messages []types.Message }

// AddMessage appends one message unless its uuid is already present.
type AddMessage struct{ Message types.Message }

// AddMessages merges a batch: already-present uuids are filtered out, and
// optimistic temp-uuid messages are superseded by content-matching
// arrivals. A batch with nothing new leaves the state untouched.
type AddMessages struct{ Messages []types.Message }

// AddChat prepends a chat, selects it, and initializes its empty timeline.
type AddChat struct{ Chat types.Chat }

// RemoveChat drops a chat from the list and cache, clearing the selection
// if it was active.
type RemoveChat struct{ ChatID int64 }

func (SetChats) isAction()       {}
func (SetCurrentChat) isAction() {}
func (SetMessages) isAction()    {}
func (AddMessage) isAction()     {}
func (AddMessages) isAction()    {}
func (AddChat) isAction()        {}
func (RemoveChat) isAction()     {}

// Reduce applies one action and returns the next state. It never mutates
// the input: slices are copied on write, so an unchanged return means
// "nothing happened" and consumers can skip re-rendering.
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case SetChats:
		s.Chats = a.Chats
		s.ChatsLoaded = true
		return s

	case SetCurrentChat:
		s.CurrentChatID = a.ChatID
		s.Messages = s.cache[a.ChatID]
		return s

	case SetMessages:
		s.Messages = a.Messages
		if s.CurrentChatID != 0 {
			s = s.withCacheEntry(s.CurrentChatID, a.Messages)
		}
		return s

	case AddMessage:
		if a.Message.UUID != "" && containsUUID(s.Messages, a.Message.UUID) {
			return s
		}
		return s.withTimeline(appendCopy(s.Messages, a.Message))

	case AddMessages:
		return reduceAddMessages(s, a.Messages)

	case AddChat:
		chats := make([]types.Chat, 0, len(s.Chats)+1)
		chats = append(chats, a.Chat)
		chats = append(chats, s.Chats...)
		s.Chats = chats
		s.CurrentChatID = a.Chat.ID
		return s.withTimeline([]types.Message{})

	case RemoveChat:
		chats := make([]types.Chat, 0, len(s.Chats))
		for _, c := range s.Chats {
			if c.ID != a.ChatID {
				chats = append(chats, c)
			}
		}
		s.Chats = chats
		s = s.withCacheEntry(a.ChatID, nil)
		if s.CurrentChatID == a.ChatID {
			s.CurrentChatID = 0
			s.Messages = nil
		}
		return s
	}
	return s
}

// reduceAddMessages implements the reconciliation merge. Arrival order of
// HTTP responses and socket frames is not guaranteed; filtering by uuid
// makes the merge idempotent regardless.
func reduceAddMessages(s State, incoming []types.Message) State {
	existing := make(map[string]struct{}, len(s.Messages))
	for _, m := range s.Messages {
		if m.UUID != "" {
			existing[m.UUID] = struct{}{}
		}
	}

	var fresh []types.Message
	for _, m := range incoming {
		if m.UUID != "" {
			if _, dup := existing[m.UUID]; dup {
				continue
			}
			existing[m.UUID] = struct{}{}
		}
		fresh = append(fresh, m)
	}
	if len(fresh) == 0 {
		// Referential no-op: the caller sees the same state value.
		return s
	}

	// Supersede optimistic placeholders: a temp-uuid message whose content
	// matches a confirmed arrival is the same utterance, now with its
	// server-assigned identity.
	freshContent := make(map[string]struct{}, len(fresh))
	for _, m := range fresh {
		freshContent[m.Content] = struct{}{}
	}
	timeline := make([]types.Message, 0, len(s.Messages)+len(fresh))
	for _, m := range s.Messages {
		if types.IsTempUUID(m.UUID) {
			if _, match := freshContent[m.Content]; match {
				continue
			}
		}
		timeline = append(timeline, m)
	}
	timeline = append(timeline, fresh...)

	return s.withTimeline(timeline)
}

// withTimeline installs a new active timeline, keeping cache and display
// consistent.
func (s State) withTimeline(timeline []types.Message) State {
	s.Messages = timeline
	if s.CurrentChatID != 0 {
		s = s.withCacheEntry(s.CurrentChatID, timeline)
	}
	return s
}

// withCacheEntry copies the cache map with one entry replaced (or removed
// when timeline is nil and absent before).
func (s State) withCacheEntry(chatID int64, timeline []types.Message) State {
	next := make(map[int64][]types.Message, len(s.cache)+1)
	for k, v := range s.cache {
		next[k] = v
	}
	if timeline == nil {
		delete(next, chatID)
	} else {
		next[chatID] = timeline
	}
	s.cache = next
	return s
}

// Cached reports whether a timeline has been loaded for the chat.
func (s State) Cached(chatID int64) bool {
	_, ok := s.cache[chatID]
	return ok
}

func containsUUID(messages []types.Message, uuid string) bool {
	for _, m := range messages {
		if m.UUID == uuid {
			return true
		}
	}
	return false
}

func appendCopy(messages []types.Message, msg types.Message) []types.Message {
	out := make([]types.Message, 0, len(messages)+1)
	out = append(out, messages...)
	return append(out, msg)
}

// Store is a thin synchronized wrapper around the reducer, serializing
// dispatches from the controller loop and UI goroutines.
type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore() *Store {
	return &Store{}
}

// Dispatch applies an action to the current state.
func (st *Store) Dispatch(action Action) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state = Reduce(st.state, action)
}

// State returns the current snapshot.
func (st *Store) State() State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state
}
