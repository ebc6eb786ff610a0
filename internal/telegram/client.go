// Package telegram is a minimal Telegram Bot API client covering what the
// intake bot needs: pull-mode update retrieval, message send/edit, callback
// acknowledgement and webhook clearing.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	berrors "github.com/harmonikprz/malibu-bot/internal/errors"
)

// ParseModeMarkdown is the parse mode used for all formatted sends.
const ParseModeMarkdown = "Markdown"

// Client talks to the Telegram Bot API over HTTPS.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// NewClient creates a Bot API client. The HTTP timeout leaves headroom above
// the 30s long-poll wait.
func NewClient(token string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: "https://api.telegram.org/bot" + token,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger.With().Str("component", "telegram").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetUpdates long-polls for the next batch of updates starting at offset.
// Only message and callback_query updates are requested; everything else is
// dropped server-side.
func (c *Client) GetUpdates(ctx context.Context, offset, timeoutSec int) ([]Update, error) {
	raw, err := c.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message", "callback_query"},
	})
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("decoding updates: %w", err)
	}
	return updates, nil
}

// SendMessage sends a formatted message, optionally with inline buttons.
func (c *Client) SendMessage(ctx context.Context, p SendMessageParams) (*Message, error) {
	if p.ParseMode == "" {
		p.ParseMode = ParseModeMarkdown
	}
	raw, err := c.call(ctx, "sendMessage", p)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decoding sent message: %w", err)
	}
	return &msg, nil
}

// EditMessageText rewrites an existing message in place.
func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := c.call(ctx, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": ParseModeMarkdown,
	})
	return err
}

// AnswerCallbackQuery acknowledges a button press so the client stops its
// progress indicator.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	_, err := c.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
	})
	return err
}

// DeleteWebhook cancels any push-mode subscription. The bot pulls exclusively;
// a stale webhook would make getUpdates return 409.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	_, err := c.call(ctx, "deleteWebhook", map[string]any{
		"drop_pending_updates": dropPending,
	})
	return err
}

func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s marshal: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%s: %w", method, berrors.ErrTimeout)
		}
		return nil, &berrors.APIError{Service: "telegram", Message: method, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read: %w", method, err)
	}

	var env apiResponse
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%s decode: %w", method, err)
	}
	if !env.OK {
		return nil, c.apiError(method, &env)
	}
	return env.Result, nil
}

func (c *Client) apiError(method string, env *apiResponse) error {
	switch env.ErrorCode {
	case http.StatusConflict:
		return fmt.Errorf("%s: %s: %w", method, env.Description, berrors.ErrConflict)
	case http.StatusTooManyRequests:
		retryAfter := time.Second
		if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
			retryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
		}
		return &berrors.RateLimitError{Service: "telegram", RetryAfter: retryAfter}
	default:
		return berrors.NewAPIError("telegram", env.ErrorCode, env.Description)
	}
}
