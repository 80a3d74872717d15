// ABOUTME: Typed JSON client for the team/user/message/insight CRUD endpoints.
// ABOUTME: Write requests carry the correlation id as an Idempotency-Key header.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2389/coven-client/internal/state"
)

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Client calls the chat server's request/response API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates an API client. Pass nil httpClient for a default with a
// 15 second timeout.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		httpClient: httpClient,
	}
}

// do executes one JSON request. idempotencyKey, when non-empty, is sent as
// the Idempotency-Key header; the server echoes it as the push frame's
// event id so both paths share a dedup key.
func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return &HTTPError{StatusCode: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CreateMessageRequest is the body for message creation.
type CreateMessageRequest struct {
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

func (c *Client) CreateMessage(ctx context.Context, teamID, idempotencyKey string, req CreateMessageRequest) (*state.Message, error) {
	var out state.Message
	path := fmt.Sprintf("/api/teams/%s/messages", teamID)
	if err := c.do(ctx, http.MethodPost, path, idempotencyKey, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMessage(ctx context.Context, teamID, messageID, idempotencyKey, content string) (*state.Message, error) {
	var out state.Message
	path := fmt.Sprintf("/api/teams/%s/messages/%s", teamID, messageID)
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPatch, path, idempotencyKey, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMessage(ctx context.Context, teamID, messageID, idempotencyKey string) error {
	path := fmt.Sprintf("/api/teams/%s/messages/%s", teamID, messageID)
	return c.do(ctx, http.MethodDelete, path, idempotencyKey, nil, nil)
}

func (c *Client) ListMessages(ctx context.Context, teamID string) ([]*state.Message, error) {
	var out []*state.Message
	path := fmt.Sprintf("/api/teams/%s/messages", teamID)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInsightRequest is the body for insight creation.
type CreateInsightRequest struct {
	MessageID string `json:"messageId,omitempty"`
	Kind      string `json:"kind"`
	Content   string `json:"content"`
}

func (c *Client) CreateInsight(ctx context.Context, teamID, idempotencyKey string, req CreateInsightRequest) (*state.Insight, error) {
	var out state.Insight
	path := fmt.Sprintf("/api/teams/%s/insights", teamID)
	if err := c.do(ctx, http.MethodPost, path, idempotencyKey, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateInsight(ctx context.Context, teamID, insightID, idempotencyKey, content string) (*state.Insight, error) {
	var out state.Insight
	path := fmt.Sprintf("/api/teams/%s/insights/%s", teamID, insightID)
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPatch, path, idempotencyKey, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteInsight(ctx context.Context, teamID, insightID, idempotencyKey string) error {
	path := fmt.Sprintf("/api/teams/%s/insights/%s", teamID, insightID)
	return c.do(ctx, http.MethodDelete, path, idempotencyKey, nil, nil)
}

func (c *Client) ListInsights(ctx context.Context, teamID string) ([]*state.Insight, error) {
	var out []*state.Insight
	path := fmt.Sprintf("/api/teams/%s/insights", teamID)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTeam(ctx context.Context, idempotencyKey, name string) (*state.Team, error) {
	var out state.Team
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPost, "/api/teams", idempotencyKey, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTeams(ctx context.Context) ([]*state.Team, error) {
	var out []*state.Team
	if err := c.do(ctx, http.MethodGet, "/api/teams", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// JoinTeam adds the authenticated user to a team and returns their record.
func (c *Client) JoinTeam(ctx context.Context, teamID, idempotencyKey string) (*state.User, error) {
	var out state.User
	path := fmt.Sprintf("/api/teams/%s/members", teamID)
	if err := c.do(ctx, http.MethodPost, path, idempotencyKey, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTeamMembers(ctx context.Context, teamID string) ([]*state.User, error) {
	var out []*state.User
	path := fmt.Sprintf("/api/teams/%s/members", teamID)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*state.User, error) {
	var out state.User
	if err := c.do(ctx, http.MethodGet, "/api/me", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
