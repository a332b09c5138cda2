// Package gateway is the HTTP client for the remote loan service. The remote
// side is the single writer of record; this package only moves its records
// and surfaces its rejections with their HTTP status intact.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Config holds loan service client configuration
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client implements LoanService over HTTP
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new loan service client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// List retrieves one page of loans matching the query
func (c *Client) List(ctx context.Context, query ListQuery) (*LoanPage, error) {
	params := url.Values{}
	if query.Page > 0 {
		params.Set("page", strconv.Itoa(query.Page))
	}
	if query.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(query.PageSize))
	}
	if query.SortField != "" {
		params.Set("sort", query.SortField)
		params.Set("direction", query.SortDirection)
	}
	if query.Search != "" {
		params.Set("search", query.Search)
	}
	if query.Status != "" {
		params.Set("status", string(query.Status))
	}
	if query.Stage != "" {
		params.Set("stage", string(query.Stage))
	}

	path := "/api/v1/loans"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page LoanPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetByID retrieves a single loan
func (c *Client) GetByID(ctx context.Context, id string) (*Loan, error) {
	var loan Loan
	if err := c.do(ctx, http.MethodGet, "/api/v1/loans/"+url.PathEscape(id), nil, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

// Submit moves a draft application into the pipeline
func (c *Client) Submit(ctx context.Context, id string) (*Loan, error) {
	return c.transition(ctx, id, "submit", nil)
}

// Review records the marketing review outcome
func (c *Client) Review(ctx context.Context, id, notes string) (*Loan, error) {
	return c.transition(ctx, id, "review", map[string]string{"notes": notes})
}

// Approve records the branch manager approval
func (c *Client) Approve(ctx context.Context, id, notes string) (*Loan, error) {
	return c.transition(ctx, id, "approve", map[string]string{"notes": notes})
}

// Reject moves the loan to the rejected state
func (c *Client) Reject(ctx context.Context, id, reason string) (*Loan, error) {
	return c.transition(ctx, id, "reject", map[string]string{"reason": reason})
}

// Rollback returns the loan to the previous stage for correction
func (c *Client) Rollback(ctx context.Context, id, notes string) (*Loan, error) {
	return c.transition(ctx, id, "rollback", map[string]string{"notes": notes})
}

// Disburse records the back-office disbursement
func (c *Client) Disburse(ctx context.Context, id string, req DisburseRequest) (*Loan, error) {
	return c.transition(ctx, id, "disburse", req)
}

// Complete closes out a disbursed loan
func (c *Client) Complete(ctx context.Context, id string) (*Loan, error) {
	return c.transition(ctx, id, "complete", nil)
}

// Cancel withdraws the application
func (c *Client) Cancel(ctx context.Context, id, reason string) (*Loan, error) {
	body := map[string]string{}
	if reason != "" {
		body["reason"] = reason
	}
	return c.transition(ctx, id, "cancel", body)
}

func (c *Client) transition(ctx context.Context, id, action string, body interface{}) (*Loan, error) {
	var loan Loan
	path := fmt.Sprintf("/api/v1/loans/%s/%s", url.PathEscape(id), action)
	if err := c.do(ctx, http.MethodPost, path, body, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call loan service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var remote struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&remote); decodeErr == nil {
			apiErr.Code = remote.Code
			apiErr.Message = remote.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}

		c.logger.Error("Loan service rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
