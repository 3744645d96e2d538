// Package tickets submits support requests captured on the help branch to
// the external ticket sink.
package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/slotline/slotline/internal/httpx"
	"github.com/slotline/slotline/internal/models"
)

// Caller abstracts the resilient HTTP client.
type Caller interface {
	Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (httpx.Result, error)
}

// Client creates tickets against the sink endpoint.
type Client struct {
	endpoint string
	apiKey   string
	caller   Caller
}

// NewClient creates a ticket-sink client.
func NewClient(endpoint, apiKey string, caller Caller) *Client {
	return &Client{endpoint: endpoint, apiKey: apiKey, caller: caller}
}

// Create submits the ticket. The sink's response body is not interpreted
// beyond the status code; a lost ticket is recoverable by the user writing in
// again.
func (c *Client) Create(ctx context.Context, t models.Ticket) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode ticket: %w", err)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	res, err := c.caller.Do(ctx, http.MethodPost, c.endpoint, headers, payload)
	if err != nil {
		slog.Error("tickets.Create: sink call failed", "error", err)
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	if res.Status >= 400 {
		slog.Error("tickets.Create: sink rejected ticket", "status", res.Status)
		return fmt.Errorf("ticket sink rejected request: http %d", res.Status)
	}
	slog.Info("tickets.Create: ticket submitted", "email", t.Email)
	return nil
}
