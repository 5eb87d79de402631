// Package linkedin wraps the third-party candidate search API. The upstream
// only exposes asynchronous primitives (initiate a search job, poll its status,
// fetch its results); Client.Search hides that behind one blocking call with
// bounded polling.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxAttempts  = 30
)

// Search job states reported by the upstream status endpoint.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

// ExternalServiceError reports a non-success response from the search API.
// The upstream status code and body are kept for diagnostics.
type ExternalServiceError struct {
	Op         string
	StatusCode int
	Body       string
	Message    string
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %d %s", e.Message, e.StatusCode, e.Body)
	}
	return e.Message
}

// SearchTimeoutError is returned when the poll attempt cap is exhausted
// without the job reaching a terminal status.
type SearchTimeoutError struct {
	Attempts int
}

func (e *SearchTimeoutError) Error() string {
	return fmt.Sprintf("candidate search timed out after %d attempts", e.Attempts)
}

// SearchParams is the criteria object accepted by the search API.
type SearchParams struct {
	Keywords            string   `json:"keywords,omitempty"`
	TitleKeywords       []string `json:"title_keywords,omitempty"`
	CurrentCompanyNames []string `json:"current_company_names,omitempty"`
	PastCompanyNames    []string `json:"past_company_names,omitempty"`
	GeoCodes            []int    `json:"geo_codes,omitempty"`
	Limit               int      `json:"limit,omitempty"`
}

type StatusResponse struct {
	Status               string `json:"status"`
	TotalCount           int    `json:"total_count"`
	EmployeesScrapedSoFar int   `json:"employees_scraped_so_far"`
	Message              string `json:"message"`
}

type SearchResponse struct {
	Data       []Profile `json:"data"`
	TotalCount int       `json:"total_count"`
	Message    string    `json:"message"`
}

type Config struct {
	// Host is the RapidAPI host name, e.g. "linkedin-search.p.rapidapi.com".
	Host   string
	APIKey string

	PollInterval time.Duration
	MaxAttempts  int

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client

	// BaseURL overrides "https://<Host>" as the endpoint prefix, for tests.
	BaseURL string
}

type Client struct {
	host         string
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	maxAttempts  int
	httpClient   *http.Client
}

func NewClient(cfg Config) *Client {
	c := &Client{
		host:         cfg.Host,
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.MaxAttempts,
		httpClient:   cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = "https://" + c.host
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return c
}

// Initiate submits the search criteria and returns the upstream request id.
func (c *Client) Initiate(ctx context.Context, params SearchParams) (string, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal search params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search-employees", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build initiate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(req)

	var resp struct {
		RequestID string `json:"request_id"`
	}
	if err := c.do(req, "initiate candidate search", &resp); err != nil {
		return "", err
	}
	return resp.RequestID, nil
}

// CheckStatus polls the state of an initiated search job.
func (c *Client) CheckStatus(ctx context.Context, requestID string) (*StatusResponse, error) {
	u := c.baseURL + "/check-search-status?request_id=" + url.QueryEscape(requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	c.setAuthHeaders(req)

	var resp StatusResponse
	if err := c.do(req, "check candidate search status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchResults retrieves the result set of a completed search job.
func (c *Client) FetchResults(ctx context.Context, requestID string) (*SearchResponse, error) {
	u := c.baseURL + "/get-search-results?request_id=" + url.QueryEscape(requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build results request: %w", err)
	}
	c.setAuthHeaders(req)

	var resp SearchResponse
	if err := c.do(req, "fetch candidate search results", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Search runs the full initiate / poll / fetch flow, blocking until the job
// completes, fails, or the attempt cap is exhausted. No partial results are
// ever returned: the caller gets either the full result set or an error.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResponse, error) {
	requestID, err := c.Initiate(ctx, params)
	if err != nil {
		return nil, err
	}
	log.Printf("Candidate search initiated with request_id: %s", requestID)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		status, err := c.CheckStatus(ctx, requestID)
		if err != nil {
			return nil, err
		}
		log.Printf("Candidate search status (attempt %d/%d): %s", attempt, c.maxAttempts, status.Status)

		switch status.Status {
		case StatusDone:
			results, err := c.FetchResults(ctx, requestID)
			if err != nil {
				return nil, err
			}
			log.Printf("Candidate search completed. Found %d candidates.", results.TotalCount)
			return results, nil
		case StatusError:
			return nil, &ExternalServiceError{
				Op:      "search",
				Message: fmt.Sprintf("candidate search failed: %s", status.Message),
			}
		}
		// pending / processing: keep polling
	}

	return nil, &SearchTimeoutError{Attempts: c.maxAttempts}
}

func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("x-rapidapi-key", c.apiKey)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ExternalServiceError{Op: op, Message: fmt.Sprintf("failed to %s: %v", op, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ExternalServiceError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Message:    fmt.Sprintf("failed to %s", op),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ExternalServiceError{Op: op, Message: fmt.Sprintf("failed to decode %s response: %v", op, err)}
	}
	return nil
}
