// Package downstream invokes the two collaborator functions the workflow
// depends on: SPIN content generation and proposal approval notification.
// Both are best-effort from the trigger's point of view; failures surface to
// the outbox dispatcher for retry, never to the original request.
package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeoutSeconds = 30

// Client calls downstream collaborator endpoints under one base URL.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a downstream client. baseURL points at the function host,
// e.g. "https://functions.internal.example.com".
func NewClient(logger *slog.Logger, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds * time.Second
	}

	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With("module", "downstream"),
	}
}

// GenerateSpinContent asks the content generator to draft SPIN narrative text
// from a completed risk assessment.
func (c *Client) GenerateSpinContent(ctx context.Context, companyID string, riskData map[string]any) error {
	return c.post(ctx, "/generate-spin-content", map[string]any{
		"company_id": companyID,
		"risk_data":  riskData,
	})
}

// SendApprovalNotification notifies reviewers that a proposal awaits approval.
func (c *Client) SendApprovalNotification(ctx context.Context, companyID, approvalID string, proposalData map[string]any) error {
	return c.post(ctx, "/send-proposal-approval-notification", map[string]any{
		"company_id":    companyID,
		"approval_id":   approvalID,
		"proposal_data": proposalData,
	})
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)

		err := resp.Body.Close()
		if err != nil {
			c.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	return nil
}
