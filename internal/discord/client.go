// Package discord is a minimal client for the Discord v10 REST API,
// covering the two endpoints the scraper needs: channel metadata and
// backward message pagination. Rate limiting (HTTP 429) is handled
// transparently inside the client.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultBaseURL is the versioned API root.
	DefaultBaseURL = "https://discord.com/api/v10"

	userAgent = "MessageScraperBot (1.0.0)"

	// PageLimit is the maximum number of messages per pagination request.
	PageLimit = 100

	defaultTimeout  = 30 * time.Second
	defaultRetryPad = 100 * time.Millisecond
)

// Config carries client settings. Zero values fall back to defaults;
// MaxThrottleWait zero means waiting on throttling is unbounded.
type Config struct {
	Token           string
	BaseURL         string
	Timeout         time.Duration
	RetryPad        time.Duration
	MaxThrottleWait time.Duration
}

// Client issues authorized GET requests against the API.
type Client struct {
	http            *http.Client
	baseURL         string
	token           string
	retryPad        time.Duration
	maxThrottleWait time.Duration
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	retryPad := cfg.RetryPad
	if retryPad == 0 {
		retryPad = defaultRetryPad
	}
	return &Client{
		http:            &http.Client{Timeout: timeout},
		baseURL:         baseURL,
		token:           cfg.Token,
		retryPad:        retryPad,
		maxThrottleWait: cfg.MaxThrottleWait,
	}
}

// Channel fetches metadata for one channel.
func (c *Client) Channel(ctx context.Context, channelID string) (Channel, error) {
	url := fmt.Sprintf("%s/channels/%s", c.baseURL, channelID)
	body, err := c.get(ctx, url)
	if err != nil {
		return Channel{}, err
	}
	var ch Channel
	if err := json.Unmarshal(body, &ch); err != nil {
		return Channel{}, &DecodeError{URL: url, Err: err}
	}
	return ch, nil
}

// Messages fetches up to PageLimit messages of a channel, newest first.
// A non-empty before cursor requests only messages older than that ID.
func (c *Client) Messages(ctx context.Context, channelID, before string) ([]Message, error) {
	url := fmt.Sprintf("%s/channels/%s/messages?limit=%d", c.baseURL, channelID, PageLimit)
	if before != "" {
		url += "&before=" + before
	}
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var msgs []Message
	if err := json.Unmarshal(body, &msgs); err != nil {
		return nil, &DecodeError{URL: url, Err: err}
	}
	return msgs, nil
}

// get performs one GET, looping on 429 responses. The server-supplied
// Retry-After delay plus a small pad is slept off before re-issuing the
// identical request. Any other non-2xx status is terminal.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var waited time.Duration
	for {
		body, status, header, err := c.do(ctx, url)
		if err != nil {
			return nil, err
		}

		switch status {
		case http.StatusOK:
			return body, nil

		case http.StatusTooManyRequests:
			delay, err := retryAfter(header)
			if err != nil {
				return nil, fmt.Errorf("request %s: %w", url, err)
			}
			wait := delay + c.retryPad
			if c.maxThrottleWait > 0 && waited+wait > c.maxThrottleWait {
				return nil, fmt.Errorf("request %s: throttle wait budget %s exhausted (server asked for another %s)",
					url, c.maxThrottleWait, wait)
			}
			slog.Warn("too many requests", "sleep", wait, "url", url)
			if err := sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("request %s: %w", url, err)
			}
			waited += wait

		default:
			var payload struct {
				Message string `json:"message"`
				Code    int    `json:"code"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return nil, &DecodeError{URL: url, Err: err}
			}
			return nil, &APIError{URL: url, Message: payload.Message, Code: payload.Code}
		}
	}
}

func (c *Client) do(ctx context.Context, url string) ([]byte, int, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("read response %s: %w", url, err)
	}
	return body, resp.StatusCode, resp.Header, nil
}

// retryAfter parses the Retry-After header as fractional seconds.
func retryAfter(header http.Header) (time.Duration, error) {
	raw := header.Get("Retry-After")
	if raw == "" {
		return 0, fmt.Errorf("throttled without Retry-After header")
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse Retry-After %q: %w", raw, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
