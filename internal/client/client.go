package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/genzchat/genzchat/internal/model/chat"
	"github.com/genzchat/genzchat/internal/model/persona"
)

// StatusError reports a non-2xx answer from the chat service.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat service returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("chat service returned %d: %s", e.Code, e.Message)
}

// Client talks to the remote chat endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithHeaderTimeout bounds how long a request may wait for response
// headers. The streamed body itself is bounded only by the request context.
func WithHeaderTimeout(d time.Duration) Option {
	return func(c *Client) {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = d
		c.http = &http.Client{Transport: transport}
	}
}

// WithLogger overrides the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New returns a Client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  log.With().Str("component", "client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type personalitiesResponse struct {
	Personalities []persona.Personality `json:"personalities"`
}

// Personalities fetches the personality list.
func (c *Client) Personalities(ctx context.Context) ([]persona.Personality, error) {
	var out personalitiesResponse
	if err := c.getJSON(ctx, "/api/personalities", &out); err != nil {
		return nil, errors.Wrap(err, "fetch personalities")
	}
	c.logger.Debug().Int("count", len(out.Personalities)).Msg("fetched personalities")
	return out.Personalities, nil
}

// Health checks that the service answers.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/api/health", &out); err != nil {
		return errors.Wrap(err, "health check")
	}
	if out.Status != "ok" {
		return errors.Errorf("health check: status %q", out.Status)
	}
	return nil
}

// OpenStream starts one streamed turn. The caller owns the returned body
// and must close it. Cancelling ctx aborts the read.
func (c *Client) OpenStream(ctx context.Context, req chat.StreamRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode stream request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/stream", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build stream request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "open chat stream")
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("session_id", req.SessionID).
		Str("personality", req.Personality).
		Msg("chat stream opened")
	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	if err := checkStatus(resp); err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}

// checkStatus closes the body of a failed response.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()

	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(raw))
	}
	return &StatusError{Code: resp.StatusCode, Message: payload.Error}
}
