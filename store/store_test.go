package store

import (
	"reflect"
	"testing"

	"finchat/types"
)

func msg(uuid, content string, fromUser bool) types.Message {
	return types.Message{UUID: uuid, Content: content, IsFromUser: fromUser}
}

func timelineUUIDs(s State) []string {
	out := make([]string, 0, len(s.Messages))
	for _, m := range s.Messages {
		out = append(out, m.UUID)
	}
	return out
}

func TestAddMessageIdempotent(t *testing.T) {
	s := Reduce(State{}, SetCurrentChat{ChatID: 1})
	s = Reduce(s, AddMessage{Message: msg("u1", "hello", true)})
	s = Reduce(s, AddMessage{Message: msg("u1", "hello", true)})
	s = Reduce(s, AddMessage{Message: msg("u2", "world", false)})

	want := []string{"u1", "u2"}
	if got := timelineUUIDs(s); !reflect.DeepEqual(got, want) {
		t.Errorf("timeline = %v, want %v", got, want)
	}
}

func TestMergeIdempotentAcrossActionMix(t *testing.T) {
	// The same uuid delivered through any mix of AddMessage/AddMessages,
	// in any order, must appear exactly once.
	tests := []struct {
		name    string
		actions []Action
		want    []string
	}{
		{
			name: "duplicate_across_batches",
			actions: []Action{
				AddMessages{Messages: []types.Message{msg("a", "1", true), msg("b", "2", false)}},
				AddMessages{Messages: []types.Message{msg("b", "2", false), msg("c", "3", false)}},
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "duplicate_within_batch",
			actions: []Action{
				AddMessages{Messages: []types.Message{msg("a", "1", true), msg("a", "1", true)}},
			},
			want: []string{"a"},
		},
		{
			name: "single_then_batch",
			actions: []Action{
				AddMessage{Message: msg("a", "1", true)},
				AddMessages{Messages: []types.Message{msg("a", "1", true), msg("b", "2", false)}},
			},
			want: []string{"a", "b"},
		},
		{
			name: "batch_then_single",
			actions: []Action{
				AddMessages{Messages: []types.Message{msg("a", "1", true)}},
				AddMessage{Message: msg("a", "1", true)},
			},
			want: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Reduce(State{}, SetCurrentChat{ChatID: 7})
			for _, a := range tt.actions {
				s = Reduce(s, a)
			}
			if got := timelineUUIDs(s); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("timeline = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTemporaryMessageReplacement(t *testing.T) {
	s := Reduce(State{}, SetCurrentChat{ChatID: 1})
	s = Reduce(s, AddMessage{Message: msg("temp-1", "hello", true)})
	s = Reduce(s, AddMessages{Messages: []types.Message{msg("srv-9", "hello", true)}})

	if got, want := timelineUUIDs(s), []string{"srv-9"}; !reflect.DeepEqual(got, want) {
		t.Errorf("timeline = %v, want %v", got, want)
	}
}

func TestTemporaryMessageKeptWhenContentDiffers(t *testing.T) {
	s := Reduce(State{}, SetCurrentChat{ChatID: 1})
	s = Reduce(s, AddMessage{Message: msg("temp-1", "hello", true)})
	s = Reduce(s, AddMessages{Messages: []types.Message{msg("srv-9", "goodbye", false)}})

	if got, want := timelineUUIDs(s), []string{"temp-1", "srv-9"}; !reflect.DeepEqual(got, want) {
		t.Errorf("timeline = %v, want %v", got, want)
	}
}

func TestAddMessagesReferentialNoOp(t *testing.T) {
	s := Reduce(State{}, SetCurrentChat{ChatID: 1})
	s = Reduce(s, SetMessages{Messages: []types.Message{msg("a", "1", true)}})

	before := s.Messages
	s = Reduce(s, AddMessages{Messages: []types.Message{msg("a", "1", true)}})

	// Nothing new: the exact same slice must come back, so consumers can
	// skip re-rendering on pointer equality.
	if len(s.Messages) != 1 || &s.Messages[0] != &before[0] {
		t.Error("expected referential no-op when batch adds nothing new")
	}
}

func TestPerChatCacheIsolation(t *testing.T) {
	m1 := msg("m1", "cached", true)

	s := Reduce(State{}, SetCurrentChat{ChatID: 1})
	s = Reduce(s, SetMessages{Messages: []types.Message{m1}})
	s = Reduce(s, SetCurrentChat{ChatID: 2})

	if len(s.Messages) != 0 {
		t.Fatalf("chat 2 timeline = %v, want empty", timelineUUIDs(s))
	}
	if !s.Cached(1) {
		t.Fatal("chat 1 should remain cached after switching away")
	}

	s = Reduce(s, SetCurrentChat{ChatID: 1})
	if got, want := timelineUUIDs(s), []string{"m1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("restored timeline = %v, want %v", got, want)
	}
}

func TestSetChatsMarksLoaded(t *testing.T) {
	s := Reduce(State{}, SetChats{Chats: []types.Chat{{ID: 1, Title: "One"}}})
	if !s.ChatsLoaded {
		t.Error("ChatsLoaded should be set")
	}
	if len(s.Chats) != 1 {
		t.Errorf("chats = %d, want 1", len(s.Chats))
	}
}

func TestAddChatPrependsAndSelects(t *testing.T) {
	s := Reduce(State{}, SetChats{Chats: []types.Chat{{ID: 1, Title: "Old"}}})
	s = Reduce(s, AddChat{Chat: types.Chat{ID: 2, Title: "New"}})

	if s.CurrentChatID != 2 {
		t.Errorf("CurrentChatID = %d, want 2", s.CurrentChatID)
	}
	if s.Chats[0].ID != 2 || s.Chats[1].ID != 1 {
		t.Errorf("chat order = %v, want new chat first", s.Chats)
	}
	if s.Messages == nil || len(s.Messages) != 0 {
		t.Errorf("new chat timeline = %v, want empty (initialized)", s.Messages)
	}
	if !s.Cached(2) {
		t.Error("new chat should have a cache entry")
	}
}

func TestRemoveChatClearsSelection(t *testing.T) {
	s := Reduce(State{}, AddChat{Chat: types.Chat{ID: 5, Title: "Doomed"}})
	s = Reduce(s, AddMessage{Message: msg("a", "1", true)})
	s = Reduce(s, RemoveChat{ChatID: 5})

	if s.CurrentChatID != 0 {
		t.Errorf("CurrentChatID = %d, want 0", s.CurrentChatID)
	}
	if s.Cached(5) {
		t.Error("removed chat should be evicted from the cache")
	}
	if len(s.Chats) != 0 {
		t.Errorf("chats = %v, want empty", s.Chats)
	}
}

func TestTimelineAlwaysMatchesCacheEntry(t *testing.T) {
	actions := []Action{
		SetChats{Chats: []types.Chat{{ID: 1}, {ID: 2}}},
		SetCurrentChat{ChatID: 1},
		SetMessages{Messages: []types.Message{msg("a", "1", true)}},
		AddMessage{Message: msg("b", "2", false)},
		SetCurrentChat{ChatID: 2},
		AddMessages{Messages: []types.Message{msg("c", "3", false)}},
		AddChat{Chat: types.Chat{ID: 3}},
		AddMessage{Message: msg("d", "4", true)},
	}

	s := State{}
	for i, a := range actions {
		s = Reduce(s, a)
		if s.CurrentChatID == 0 {
			continue
		}
		cached := s.cache[s.CurrentChatID]
		if !reflect.DeepEqual(cached, s.Messages) {
			t.Fatalf("after action %d: cache entry %v != timeline %v", i, cached, s.Messages)
		}
	}
}

func TestStoreDispatchSerializes(t *testing.T) {
	st := NewStore()
	st.Dispatch(SetCurrentChat{ChatID: 1})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			st.Dispatch(AddMessage{Message: msg("", "racer", true)})
		}
		close(done)
	}()
	for i := 0; i < 50; i++ {
		_ = st.State()
	}
	<-done

	if got := len(st.State().Messages); got != 50 {
		t.Errorf("messages = %d, want 50", got)
	}
}
