// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Configuration constants for the chat backend.
const (
	// DefaultBaseURL is used when no backend URL is configured.
	DefaultBaseURL = "http://localhost:5000"

	// DefaultTimeout is the default timeout for backend requests. Replies
	// can take a while when the assistant generates CAD scripts.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024
)

// Error variables for client-side validation failures.
var (
	// ErrNoUser indicates a call that needs an identity was made without one.
	ErrNoUser = errors.New("no user id")

	// ErrEmptyText indicates an empty prompt.
	ErrEmptyText = errors.New("empty prompt text")

	// ErrNoChat indicates a call that needs a durable chat id was made
	// without one.
	ErrNoChat = errors.New("no chat id")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Endpoint string
	Status   int
	Message  string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s failed (HTTP %d): %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("backend %s failed (HTTP %d)", e.Endpoint, e.Status)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the ForgeMind chat backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: log.Default(),
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithLogger routes request logging to l.
func (c *Client) WithLogger(l *log.Logger) *Client {
	if l != nil {
		c.logger = l
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// SendPrompt posts one user turn to /chat.
func (c *Client) SendPrompt(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if req.UserID == "" {
		return nil, ErrNoUser
	}

	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UserChats lists the persisted chats of a user.
func (c *Client) UserChats(ctx context.Context, userID string) ([]ChatSummary, error) {
	if userID == "" {
		return nil, ErrNoUser
	}

	var resp chatsResponse
	q := url.Values{"user_id": {userID}}
	if err := c.do(ctx, http.MethodGet, "/get_chats", q, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Chats == nil {
		resp.Chats = []ChatSummary{}
	}
	return resp.Chats, nil
}

// ChatMessages fetches the message log of one chat.
//
// The returned slice is never nil: on any failure it is empty and the error
// says why, so callers that only want to degrade can ignore the error.
func (c *Client) ChatMessages(ctx context.Context, chatID string) ([]WireMessage, error) {
	if chatID == "" {
		return []WireMessage{}, ErrNoChat
	}

	var resp messagesResponse
	q := url.Values{"chat_id": {chatID}}
	if err := c.do(ctx, http.MethodGet, "/get_messages", q, nil, &resp); err != nil {
		return []WireMessage{}, err
	}
	if resp.Messages == nil {
		resp.Messages = []WireMessage{}
	}
	return resp.Messages, nil
}

// DeleteChat deletes a persisted chat and its messages.
func (c *Client) DeleteChat(ctx context.Context, chatID, userID string) (*DeleteResponse, error) {
	if chatID == "" {
		return nil, ErrNoChat
	}
	if userID == "" {
		return nil, ErrNoUser
	}

	var resp DeleteResponse
	body := deleteRequest{ChatID: chatID, UserID: userID}
	if err := c.do(ctx, http.MethodDelete, "/delete_chat", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PluginStatus asks whether the user's CAD plugin is connected.
func (c *Client) PluginStatus(ctx context.Context, userID string) (*PluginStatusResponse, error) {
	if userID == "" {
		return nil, ErrNoUser
	}

	var resp PluginStatusResponse
	q := url.Values{"user_id": {userID}}
	if err := c.do(ctx, http.MethodGet, "/check_plugin_login", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do performs one request and decodes a JSON answer into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logRequest(req)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logResponse(req, resp, time.Since(start))

	data, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Endpoint: path,
			Status:   resp.StatusCode,
			Message:  errorMessage(data, resp.Status),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return nil
}

// readResponse reads the body with a size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// errorMessage pulls a human message out of an error body. The service
// uses "message" for delete failures and "error" elsewhere.
func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fallback
}

// logRequest logs method and path only. Bodies carry user prompts.
func (c *Client) logRequest(req *http.Request) {
	c.logger.Printf("backend: request %s %s", req.Method, req.URL.Path)
}

func (c *Client) logResponse(req *http.Request, resp *http.Response, d time.Duration) {
	c.logger.Printf("backend: response %s %s %d (%v)", req.Method, req.URL.Path, resp.StatusCode, d.Round(time.Millisecond))
}
