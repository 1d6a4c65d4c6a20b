package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"finchat/errors"
	"finchat/types"

	"go.uber.org/zap"
)

type downloadURLResponse struct {
	DownloadURL string `json:"download_url"`
}

// ListUploads returns uploaded documents, optionally scoped to a workspace.
func (c *Client) ListUploads(ctx context.Context, workspaceID string) ([]types.Upload, error) {
	path := withQuery("/uploads", map[string]string{"workspace_id": workspaceID})
	var uploads []types.Upload
	if err := c.do(ctx, http.MethodGet, path, nil, &uploads); err != nil {
		return nil, err
	}
	return uploads, nil
}

// GetUpload fetches a single upload record.
func (c *Client) GetUpload(ctx context.Context, id int64) (*types.Upload, error) {
	var upload types.Upload
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/uploads/%d", id), nil, &upload); err != nil {
		return nil, err
	}
	return &upload, nil
}

// UploadFile sends a local file as multipart form data. The file contents
// are opaque to the client; extraction happens backend-side.
func (c *Client) UploadFile(ctx context.Context, path, description, workspaceID string) (*types.Upload, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapError(err, "could not open file")
	}
	defer file.Close()

	// Stream the multipart body through a pipe instead of buffering the
	// whole file in memory.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil && description != "" {
			err = writer.WriteField("description", description)
		}
		if err == nil && workspaceID != "" {
			err = writer.WriteField("workspace_id", workspaceID)
		}
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads", pr)
	if err != nil {
		return nil, errors.WrapError(err, "could not build upload request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token := c.sessions.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapErrorf(errors.ErrServiceUnavailable, "upload: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, c.handleUnauthorized(http.MethodPost, "/uploads")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.errorFromResponse(resp)
	}

	var upload types.Upload
	if err := decodeJSON(resp.Body, &upload); err != nil {
		return nil, errors.WrapError(err, "could not decode upload response")
	}
	c.logger.Info("Uploaded file",
		zap.String("filename", filepath.Base(path)),
		zap.Int64("upload_id", upload.ID))
	return &upload, nil
}

// DeleteUpload removes an uploaded document.
func (c *Client) DeleteUpload(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/uploads/%d", id), nil, nil)
}

// GetDownloadURL resolves an upload's download link. The backend returns a
// relative URL which is joined onto the API base.
func (c *Client) GetDownloadURL(ctx context.Context, id int64) (string, error) {
	var resp downloadURLResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/uploads/download/%d", id), nil, &resp); err != nil {
		return "", err
	}
	return c.baseURL + resp.DownloadURL, nil
}
