// Package sheets is the client for the spreadsheet-backed ledger webhook.
// Writes are best-effort: callers log failures and move on, the user-facing
// flow never waits on ledger durability.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	berrors "github.com/harmonikprz/malibu-bot/internal/errors"
)

// ExpiredUser is one row returned by the expired-subscriptions query. The
// sheet is hand-edited, so the id may be blank or malformed.
type ExpiredUser struct {
	TelegramID  string `json:"telegram_id"`
	TradingView string `json:"tradingview,omitempty"`
	EndDate     string `json:"bitis_tarihi,omitempty"`
}

// SheetError is the structured error payload the webhook returns when the
// sheet layout is broken.
type SheetError struct {
	Message      string   `json:"error"`
	HeadersFound []string `json:"headers_found,omitempty"`
}

func (e *SheetError) Error() string {
	if len(e.HeadersFound) > 0 {
		return fmt.Sprintf("sheet error: %s (headers found: %v)", e.Message, e.HeadersFound)
	}
	return "sheet error: " + e.Message
}

// Client talks to the ledger webhook.
type Client struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// NewClient creates a ledger client for the given webhook URL.
func NewClient(url string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.With().Str("component", "sheets").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Submit posts one completed intake record to the ledger.
func (c *Client) Submit(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &berrors.APIError{Service: "sheets", Message: "submit", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return berrors.NewAPIError("sheets", resp.StatusCode, "submit rejected")
	}
	return nil
}

// FetchExpired queries the ledger for subscriptions past their end date.
// The webhook returns either a JSON array of rows or a SheetError object.
func (c *Client) FetchExpired(ctx context.Context) ([]ExpiredUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?action=expired", nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &berrors.APIError{Service: "sheets", Message: "fetch expired", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, berrors.NewAPIError("sheets", resp.StatusCode, "fetch expired rejected")
	}

	var users []ExpiredUser
	if err := json.Unmarshal(data, &users); err == nil {
		return users, nil
	}

	var sheetErr SheetError
	if err := json.Unmarshal(data, &sheetErr); err == nil && sheetErr.Message != "" {
		return nil, &sheetErr
	}
	return nil, fmt.Errorf("unexpected expired response: %s", truncate(data, 200))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
