package types

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// ConnectionStatus is the single authoritative state of a chat transport.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusError        ConnectionStatus = "error"
)

// Message roles as rendered to the user.
const (
	MessageTypeUser  = "user"
	MessageTypeBot   = "bot"
	MessageTypeOther = "other"
)

// TempUUIDPrefix marks an optimistically inserted message that has not yet
// been confirmed by the server.
const TempUUIDPrefix = "temp-"

// NewTempUUID returns a placeholder identifier for an optimistic message.
func NewTempUUID() string {
	return TempUUIDPrefix + uuid.New().String()
}

// IsTempUUID reports whether id is a locally generated placeholder.
func IsTempUUID(id string) bool {
	return strings.HasPrefix(id, TempUUIDPrefix)
}

// Message is a single chat utterance. Identity for de-duplication is UUID,
// not the numeric database ID: optimistic messages exist before the backend
// has assigned an ID.
type Message struct {
	UUID                 string                `json:"uuid"`
	ID                   int64                 `json:"id,omitempty"`
	ChatID               int64                 `json:"chat_id,omitempty"`
	Content              string                `json:"content"`
	Format               string                `json:"format,omitempty"`
	IsFromUser           bool                  `json:"is_from_user"`
	MessageType          string                `json:"message_type,omitempty"`
	SessionID            string                `json:"session_id,omitempty"`
	IsFromCurrentSession bool                  `json:"-"`
	WorkspaceID          string                `json:"workspace_id,omitempty"`
	Visualization        *VisualizationPayload `json:"visualization,omitempty"`
	CreatedAt            Timestamp             `json:"created_at,omitempty"`
}

// VisualizationPayload carries backend-produced tables and graphs. The
// client treats the contents as opaque; rendering is the UI's problem.
type VisualizationPayload struct {
	Tables []json.RawMessage `json:"tables,omitempty"`
	Graphs []json.RawMessage `json:"graphs,omitempty"`
}

// VisualizationOptions controls what the backend attaches to its replies.
type VisualizationOptions struct {
	IncludeTables       bool     `json:"include_tables"`
	IncludeGraphs       bool     `json:"include_graphs"`
	PreferredGraphTypes []string `json:"preferred_graph_types"`
	MaxTables           int      `json:"max_tables"`
	MaxGraphs           int      `json:"max_graphs"`
}

// DefaultVisualizationOptions enables tables and graphs with bounded counts.
func DefaultVisualizationOptions() VisualizationOptions {
	return VisualizationOptions{
		IncludeTables:       true,
		IncludeGraphs:       true,
		PreferredGraphTypes: []string{"line", "bar"},
		MaxTables:           3,
		MaxGraphs:           2,
	}
}

// Chat is one conversation thread.
type Chat struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	WorkspaceID *int64    `json:"workspace_id,omitempty"`
	CreatedAt   Timestamp `json:"created_at,omitempty"`
}

// Workspace groups chats, uploads, and reports for a set of collaborators.
type Workspace struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     int64     `json:"owner_id,omitempty"`
	CreatedAt   Timestamp `json:"created_at,omitempty"`
}

// WorkspaceMember is one user's membership in a workspace.
type WorkspaceMember struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Upload is a document stored by the backend for analysis.
type Upload struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	Description string    `json:"description,omitempty"`
	WorkspaceID *int64    `json:"workspace_id,omitempty"`
	SizeBytes   int64     `json:"size_bytes,omitempty"`
	CreatedAt   Timestamp `json:"created_at,omitempty"`
}

// Report is a generated research report.
type Report struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	ReportType  string    `json:"report_type,omitempty"`
	Content     string    `json:"content,omitempty"`
	Status      string    `json:"status,omitempty"`
	WorkspaceID *int64    `json:"workspace_id,omitempty"`
	CreatedAt   Timestamp `json:"created_at,omitempty"`
}

// User is the authenticated account as returned by the backend.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
