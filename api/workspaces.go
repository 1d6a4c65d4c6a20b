package api

import (
	"context"
	"fmt"
	"net/http"

	"finchat/types"
)

// WorkspaceRequest is the create/update payload.
type WorkspaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type addMemberRequest struct {
	UserID int64 `json:"user_id"`
}

// ListWorkspaces returns every workspace the user belongs to.
func (c *Client) ListWorkspaces(ctx context.Context) ([]types.Workspace, error) {
	var workspaces []types.Workspace
	if err := c.do(ctx, http.MethodGet, "/workspaces", nil, &workspaces); err != nil {
		return nil, err
	}
	return workspaces, nil
}

// GetWorkspace fetches a single workspace.
func (c *Client) GetWorkspace(ctx context.Context, id int64) (*types.Workspace, error) {
	var ws types.Workspace
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/workspaces/%d", id), nil, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// CreateWorkspace creates a collaboration workspace owned by the caller.
func (c *Client) CreateWorkspace(ctx context.Context, req WorkspaceRequest) (*types.Workspace, error) {
	var ws types.Workspace
	if err := c.do(ctx, http.MethodPost, "/workspaces", req, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// UpdateWorkspace renames or re-describes a workspace.
func (c *Client) UpdateWorkspace(ctx context.Context, id int64, req WorkspaceRequest) (*types.Workspace, error) {
	var ws types.Workspace
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/workspaces/%d", id), req, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// DeleteWorkspace removes a workspace.
func (c *Client) DeleteWorkspace(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/workspaces/%d", id), nil, nil)
}

// AddMember grants a user access to the workspace.
func (c *Client) AddMember(ctx context.Context, workspaceID, userID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/workspaces/%d/members", workspaceID),
		addMemberRequest{UserID: userID}, nil)
}

// RemoveMember revokes a user's access to the workspace.
func (c *Client) RemoveMember(ctx context.Context, workspaceID, userID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/workspaces/%d/members/%d", workspaceID, userID), nil, nil)
}
