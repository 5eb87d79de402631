// Package agent is the client for the hosted agent platform: chat inference
// (blocking and streaming), and the provisioning surface for registering this
// service's tool endpoints and creating/updating the per-user agents that call
// them.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a platform client. The HTTP timeout is generous because a
// single chat call may cover the agent's entire reasoning loop, including a
// synchronous tool call back into this service that itself polls the search
// API for up to a minute.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 3 * time.Minute}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type ChatRequest struct {
	UserID                string         `json:"user_id"`
	AgentID               string         `json:"agent_id"`
	SessionID             string         `json:"session_id"`
	Message               string         `json:"message"`
	SystemPromptVariables map[string]any `json:"system_prompt_variables"`
	FilterVariables       map[string]any `json:"filter_variables"`
	Features              []any          `json:"features"`
	Assets                []any          `json:"assets"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// Chat runs a blocking chat-completion call. The platform invokes any tools
// the agent selects before this returns.
func (c *Client) Chat(ctx context.Context, apiKey string, req ChatRequest) (*ChatResponse, error) {
	if req.FilterVariables == nil {
		req.FilterVariables = map[string]any{}
	}
	if req.Features == nil {
		req.Features = []any{}
	}
	if req.Assets == nil {
		req.Assets = []any{}
	}

	var resp ChatResponse
	if err := c.post(ctx, apiKey, "/v3/inference/chat/", req, &resp); err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		resp.SessionID = req.SessionID
	}
	return &resp, nil
}

// StreamChat starts a streaming chat call and returns the raw SSE body. Lines
// are "data: <chunk>" terminated by a literal "data: [DONE]". The caller owns
// closing the stream.
func (c *Client) StreamChat(ctx context.Context, apiKey string, req ChatRequest) (io.ReadCloser, error) {
	if req.FilterVariables == nil {
		req.FilterVariables = map[string]any{}
	}
	if req.Features == nil {
		req.Features = []any{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/inference/stream/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to start agent stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("failed to start agent stream: %d %s", resp.StatusCode, string(errBody))
	}
	return resp.Body, nil
}

type createToolRequest struct {
	ToolSetName        string            `json:"tool_set_name"`
	OpenAPISchema      map[string]any    `json:"openapi_schema"`
	DefaultHeaders     map[string]string `json:"default_headers"`
	DefaultQueryParams map[string]any    `json:"default_query_params"`
	DefaultBodyParams  map[string]any    `json:"default_body_params"`
	EndpointDefaults   map[string]any    `json:"endpoint_defaults"`
	EnhanceDescriptions bool             `json:"enhance_descriptions"`
	OpenAIAPIKey       *string           `json:"openai_api_key"`
}

// CreateTool registers this service's tool endpoints with the platform for one
// user. The contextToken ends up as the x-token header on every tool call, so
// tools are created per-user rather than shared. Returns the platform-assigned
// tool names.
func (c *Client) CreateTool(ctx context.Context, apiKey, toolSetName string, schema map[string]any, contextToken string) ([]string, error) {
	req := createToolRequest{
		ToolSetName:        toolSetName,
		OpenAPISchema:      schema,
		DefaultHeaders:     map[string]string{"x-token": contextToken},
		DefaultQueryParams: map[string]any{},
		DefaultBodyParams:  map[string]any{},
		EndpointDefaults:   map[string]any{},
	}

	var resp struct {
		ToolIDs []struct {
			Name string `json:"name"`
		} `json:"tool_ids"`
	}
	if err := c.post(ctx, apiKey, "/v3/tools/", req, &resp); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.ToolIDs))
	for _, tool := range resp.ToolIDs {
		names = append(names, tool.Name)
	}
	return names, nil
}

// CreateAgent creates an agent from a definition plus its tool bindings and
// returns the platform agent id.
func (c *Client) CreateAgent(ctx context.Context, apiKey string, payload map[string]any) (string, error) {
	var resp struct {
		AgentID string `json:"agent_id"`
	}
	if err := c.post(ctx, apiKey, "/v3/agents/", payload, &resp); err != nil {
		return "", err
	}
	return resp.AgentID, nil
}

// UpdateAgent replaces an existing agent's definition in place.
func (c *Client) UpdateAgent(ctx context.Context, apiKey, agentID string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal agent update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/v3/agents/"+agentID, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build agent update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to update agent %s: %w", agentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("failed to update agent %s: %d %s", agentID, resp.StatusCode, string(errBody))
	}
	return nil
}

func (c *Client) post(ctx context.Context, apiKey, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent platform request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("agent platform request %s failed: %d %s", path, resp.StatusCode, string(errBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}
