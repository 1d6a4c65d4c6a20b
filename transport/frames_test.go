package transport

import (
	"testing"

	"finchat/types"
)

func TestDecodeFrame(t *testing.T) {
	const ownSession = "sess-1"

	tests := []struct {
		name        string
		raw         string
		wantErr     bool
		wantUUID    string
		wantContent string
		wantType    string
		wantMine    bool
		wantWS      string
	}{
		{
			name:        "envelope_form",
			raw:         `{"type":"message","data":{"uuid":"b1","content":"AAPL trades at 28x","is_from_user":false},"session_id":"sess-2","workspace_id":"9","message_type":"bot"}`,
			wantUUID:    "b1",
			wantContent: "AAPL trades at 28x",
			wantType:    types.MessageTypeBot,
			wantMine:    false,
			wantWS:      "9",
		},
		{
			name:        "flattened_form",
			raw:         `{"uuid":"u1","content":"hello","is_from_user":true,"session_id":"sess-1"}`,
			wantUUID:    "u1",
			wantContent: "hello",
			wantType:    types.MessageTypeUser,
			wantMine:    true,
		},
		{
			name:        "flattened_no_session_is_mine",
			raw:         `{"uuid":"u2","content":"hi","is_from_user":false}`,
			wantUUID:    "u2",
			wantContent: "hi",
			wantType:    types.MessageTypeBot,
			wantMine:    true,
		},
		{
			name:        "numeric_workspace_id",
			raw:         `{"uuid":"u3","content":"x","workspace_id":42}`,
			wantUUID:    "u3",
			wantContent: "x",
			wantType:    types.MessageTypeBot,
			wantMine:    true,
			wantWS:      "42",
		},
		{
			name:        "explicit_other_type_preserved",
			raw:         `{"uuid":"u4","content":"y","message_type":"other","session_id":"sess-3"}`,
			wantUUID:    "u4",
			wantContent: "y",
			wantType:    types.MessageTypeOther,
			wantMine:    false,
		},
		{
			name:    "malformed_json",
			raw:     `{"content": `,
			wantErr: true,
		},
		{
			name:    "unknown_typed_frame",
			raw:     `{"type":"ping"}`,
			wantErr: true,
		},
		{
			name:    "envelope_without_data",
			raw:     `{"type":"message"}`,
			wantErr: true,
		},
		{
			name:    "empty_object",
			raw:     `{}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeFrame([]byte(tt.raw), ownSession)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("decodeFrame() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeFrame() error = %v", err)
			}
			if got.UUID != tt.wantUUID {
				t.Errorf("UUID = %q, want %q", got.UUID, tt.wantUUID)
			}
			if got.Content != tt.wantContent {
				t.Errorf("Content = %q, want %q", got.Content, tt.wantContent)
			}
			if got.MessageType != tt.wantType {
				t.Errorf("MessageType = %q, want %q", got.MessageType, tt.wantType)
			}
			if got.IsFromCurrentSession != tt.wantMine {
				t.Errorf("IsFromCurrentSession = %v, want %v", got.IsFromCurrentSession, tt.wantMine)
			}
			if tt.wantWS != "" && got.WorkspaceID != tt.wantWS {
				t.Errorf("WorkspaceID = %q, want %q", got.WorkspaceID, tt.wantWS)
			}
		})
	}
}

func TestDecodeFrameFoldsAlternateVisualizationKey(t *testing.T) {
	raw := `{"uuid":"v1","content":"see table","visualization_data":{"tables":[{"rows":[]}]}}`
	got, err := decodeFrame([]byte(raw), "s")
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	if got.Visualization == nil || len(got.Visualization.Tables) != 1 {
		t.Errorf("Visualization = %+v, want folded table payload", got.Visualization)
	}
}

func TestDecodeFramePrimaryVisualizationKeyWins(t *testing.T) {
	raw := `{"uuid":"v2","content":"both","visualization":{"graphs":[{}]},"visualization_data":{"tables":[{}]}}`
	got, err := decodeFrame([]byte(raw), "s")
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	if got.Visualization == nil || len(got.Visualization.Graphs) != 1 || len(got.Visualization.Tables) != 0 {
		t.Errorf("Visualization = %+v, want primary key payload", got.Visualization)
	}
}
