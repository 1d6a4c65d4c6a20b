package api

import (
	"context"
	"fmt"
	"net/http"

	"finchat/types"
)

// ReportRequest is the create/update payload.
type ReportRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content,omitempty"`
	ReportType  string `json:"report_type,omitempty"`
	WorkspaceID *int64 `json:"workspace_id,omitempty"`
}

// GenerateReportRequest asks the backend to synthesize a report from
// uploaded documents.
type GenerateReportRequest struct {
	ReportType  string  `json:"report_type"`
	DocumentIDs []int64 `json:"document_ids"`
}

// ListReports returns reports matching the given filters (workspace_id,
// report_type, ...); empty values are omitted from the query.
func (c *Client) ListReports(ctx context.Context, filters map[string]string) ([]types.Report, error) {
	var reports []types.Report
	if err := c.do(ctx, http.MethodGet, withQuery("/reports", filters), nil, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// GetReport fetches a single report with its content.
func (c *Client) GetReport(ctx context.Context, id int64) (*types.Report, error) {
	var report types.Report
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/reports/%d", id), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// CreateReport stores a report authored by the user.
func (c *Client) CreateReport(ctx context.Context, req ReportRequest) (*types.Report, error) {
	var report types.Report
	if err := c.do(ctx, http.MethodPost, "/reports", req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// UpdateReport replaces a report's title/content.
func (c *Client) UpdateReport(ctx context.Context, id int64, req ReportRequest) (*types.Report, error) {
	var report types.Report
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/reports/%d", id), req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// DeleteReport removes a report.
func (c *Client) DeleteReport(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/reports/%d", id), nil, nil)
}

// GenerateReport kicks off backend report generation over the given
// uploaded documents.
func (c *Client) GenerateReport(ctx context.Context, req GenerateReportRequest) (*types.Report, error) {
	var report types.Report
	if err := c.do(ctx, http.MethodPost, "/reports/generate", req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
