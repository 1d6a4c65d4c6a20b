package api

import (
	"context"
	"fmt"
	"net/http"

	"finchat/types"
)

// CreateChatRequest is the new-chat payload. WorkspaceID is omitted for
// personal chats.
type CreateChatRequest struct {
	Title       string `json:"title"`
	WorkspaceID *int64 `json:"workspace_id,omitempty"`
}

// SendMessageRequest is the HTTP fallback path for outbound messages,
// used when the WebSocket transport is unavailable.
type SendMessageRequest struct {
	Content    string `json:"content"`
	IsFromUser bool   `json:"is_from_user"`
	ChatID     int64  `json:"chat_id"`
}

// ListChats returns the user's chats, optionally scoped to a workspace.
func (c *Client) ListChats(ctx context.Context, workspaceID string) ([]types.Chat, error) {
	path := withQuery("/chats", map[string]string{"workspace_id": workspaceID})
	var chats []types.Chat
	if err := c.do(ctx, http.MethodGet, path, nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// GetChat fetches a single chat by id.
func (c *Client) GetChat(ctx context.Context, id int64) (*types.Chat, error) {
	var chat types.Chat
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chats/%d", id), nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// CreateChat creates a chat and returns it with its assigned id.
func (c *Client) CreateChat(ctx context.Context, req CreateChatRequest) (*types.Chat, error) {
	var chat types.Chat
	if err := c.do(ctx, http.MethodPost, "/chats", req, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// DeleteChat removes a chat and its messages.
func (c *Client) DeleteChat(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/chats/%d", id), nil, nil)
}

// GetMessages fetches the full timeline for a chat.
func (c *Client) GetMessages(ctx context.Context, chatID int64) ([]types.Message, error) {
	var messages []types.Message
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chats/%d/messages", chatID), nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage posts a message over HTTP. The WebSocket transport is the
// primary path; this exists so a dropped connection does not lose input.
func (c *Client) SendMessage(ctx context.Context, chatID int64, content string) (*types.Message, error) {
	req := SendMessageRequest{Content: content, IsFromUser: true, ChatID: chatID}
	var msg types.Message
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/chats/%d/messages", chatID), req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
