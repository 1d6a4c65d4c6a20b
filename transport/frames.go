package transport

import (
	"encoding/json"
	"fmt"
	"strconv"

	"finchat/types"
)

// The backend speaks two inbound shapes: an envelope
// {type:"message", data:{...}, session_id, workspace_id, message_type}
// and a flattened {content, uuid, session_id, ...}. Everything else is
// malformed and dropped.

// flexID decodes a JSON string or number into a string. Workspace and
// session ids appear as either depending on the emitting code path.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// wireMessage is the superset of fields either shape may carry for one
// message. visualization_data is an alternate key some backend paths use
// for the same payload.
type wireMessage struct {
	UUID              string                      `json:"uuid"`
	ID                int64                       `json:"id"`
	ChatID            int64                       `json:"chat_id"`
	Content           string                      `json:"content"`
	Format            string                      `json:"format"`
	IsFromUser        bool                        `json:"is_from_user"`
	MessageType       string                      `json:"message_type"`
	SessionID         flexID                      `json:"session_id"`
	WorkspaceID       flexID                      `json:"workspace_id"`
	Visualization     *types.VisualizationPayload `json:"visualization"`
	VisualizationData *types.VisualizationPayload `json:"visualization_data"`
	CreatedAt         types.Timestamp             `json:"created_at"`
}

// inboundFrame probes the envelope-level fields before committing to a
// shape.
type inboundFrame struct {
	Type        string          `json:"type"`
	Data        json.RawMessage `json:"data"`
	SessionID   flexID          `json:"session_id"`
	WorkspaceID flexID          `json:"workspace_id"`
	MessageType string          `json:"message_type"`
}

// decodeFrame parses raw socket bytes into a normalized Message.
// ownSessionID is this transport's session identity, used to classify the
// message as ours or another viewer's.
func decodeFrame(data []byte, ownSessionID string) (types.Message, error) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return types.Message{}, fmt.Errorf("unparseable frame: %w", err)
	}

	var wire wireMessage
	switch {
	case frame.Type == "message":
		if len(frame.Data) == 0 {
			return types.Message{}, fmt.Errorf("envelope frame without data")
		}
		if err := json.Unmarshal(frame.Data, &wire); err != nil {
			return types.Message{}, fmt.Errorf("unparseable envelope data: %w", err)
		}
		// Envelope-level fields win over (or fill in for) nested ones.
		if frame.SessionID != "" {
			wire.SessionID = frame.SessionID
		}
		if frame.WorkspaceID != "" {
			wire.WorkspaceID = frame.WorkspaceID
		}
		if frame.MessageType != "" {
			wire.MessageType = frame.MessageType
		}
	case frame.Type != "":
		// A typed frame we don't recognize (pings, presence, ...).
		return types.Message{}, fmt.Errorf("unrecognized frame type %q", frame.Type)
	default:
		if err := json.Unmarshal(data, &wire); err != nil {
			return types.Message{}, fmt.Errorf("unparseable flattened frame: %w", err)
		}
		if wire.Content == "" && wire.UUID == "" {
			return types.Message{}, fmt.Errorf("frame carries neither content nor uuid")
		}
	}

	return normalize(wire, ownSessionID), nil
}

// normalize maps a wire message onto the internal Message shape, computing
// session ownership and the display message type.
func normalize(wire wireMessage, ownSessionID string) types.Message {
	viz := wire.Visualization
	if viz == nil {
		viz = wire.VisualizationData
	}

	msg := types.Message{
		UUID:          wire.UUID,
		ID:            wire.ID,
		ChatID:        wire.ChatID,
		Content:       wire.Content,
		Format:        wire.Format,
		IsFromUser:    wire.IsFromUser,
		MessageType:   wire.MessageType,
		SessionID:     string(wire.SessionID),
		WorkspaceID:   string(wire.WorkspaceID),
		Visualization: viz,
		CreatedAt:     wire.CreatedAt,
	}

	// No session id on the frame means the backend addressed it to this
	// connection; otherwise it is ours only when the ids match.
	msg.IsFromCurrentSession = msg.SessionID == "" || msg.SessionID == ownSessionID

	if msg.MessageType == "" {
		if msg.IsFromUser {
			msg.MessageType = types.MessageTypeUser
		} else {
			msg.MessageType = types.MessageTypeBot
		}
	}
	return msg
}

// chatIDString formats a numeric chat id for URL embedding.
func chatIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}
