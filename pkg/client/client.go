// Package client is a Go SDK for the jury-engine API. Client satisfies
// jury.Backend, so the lifecycle core can run against a remote service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/terra-clan/jury-engine/internal/models"
)

// Client is a Go SDK for the jury-engine API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new jury-engine client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error envelope returned by the service
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s - %s", e.Code, e.Message)
}

// UserMessage returns the text meant for the user
func (e *APIError) UserMessage() string {
	return e.Message
}

// Unwrap maps refusals back to their model sentinels
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "forbidden":
		return models.ErrForbidden
	case "previous_round_incomplete":
		return models.ErrPreviousRoundIncomplete
	case "round_not_activatable":
		return models.ErrRoundNotActivatable
	}
	return nil
}

// AdminRounds is the organizer round listing
type AdminRounds struct {
	Rounds []models.Round `json:"rounds"`
	Total  int            `json:"total"`
}

// CreateCampaign creates an empty campaign
func (c *Client) CreateCampaign(ctx context.Context, name string) (*models.CampaignResponse, error) {
	var out models.CampaignResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/admin/campaigns", models.CreateCampaignRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCampaign fetches a campaign with its rounds in creation order
func (c *Client) GetCampaign(ctx context.Context, id string) (*models.CampaignResponse, error) {
	var out models.CampaignResponse
	if err := c.call(ctx, http.MethodGet, "/api/v1/admin/campaigns/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCampaign renames a campaign
func (c *Client) UpdateCampaign(ctx context.Context, campaignID string, update models.CampaignUpdate) error {
	return c.call(ctx, http.MethodPut, "/api/v1/admin/campaigns/"+campaignID, update, nil)
}

// CreateRound appends a round to a campaign
func (c *Client) CreateRound(ctx context.Context, campaignID string, req models.CreateRoundRequest) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/api/v1/admin/campaigns/%s/rounds", campaignID), req, nil)
}

// ActivateRound asks the service to make a round active
func (c *Client) ActivateRound(ctx context.Context, roundID string) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/api/v1/admin/rounds/%s/activate", roundID), nil, nil)
}

// CompleteRound closes an active round
func (c *Client) CompleteRound(ctx context.Context, roundID string) (*models.Round, error) {
	return c.roundAction(ctx, http.MethodPost, roundID, "complete", nil)
}

// CancelRound cancels a round that has not completed
func (c *Client) CancelRound(ctx context.Context, roundID string) (*models.Round, error) {
	return c.roundAction(ctx, http.MethodPost, roundID, "cancel", nil)
}

// SetTasks records the number of tasks assigned in a round
func (c *Client) SetTasks(ctx context.Context, roundID string, total int) (*models.Round, error) {
	return c.roundAction(ctx, http.MethodPut, roundID, "tasks", models.SetTasksRequest{TotalTasks: total})
}

func (c *Client) roundAction(ctx context.Context, method, roundID, action string, body interface{}) (*models.Round, error) {
	var out models.Round
	if err := c.call(ctx, method, fmt.Sprintf("/api/v1/admin/rounds/%s/%s", roundID, action), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAdminRounds lists every round across campaigns
func (c *Client) ListAdminRounds(ctx context.Context) ([]models.Round, error) {
	var out AdminRounds
	if err := c.call(ctx, http.MethodGet, "/api/v1/admin/rounds", nil, &out); err != nil {
		return nil, err
	}
	return out.Rounds, nil
}

// ListJurorRounds lists the rounds the calling user is a juror in
func (c *Client) ListJurorRounds(ctx context.Context) (*models.JurorRounds, error) {
	var out models.JurorRounds
	if err := c.call(ctx, http.MethodGet, "/api/v1/juror/rounds", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddOrganizer grants organizer rights to a user
func (c *Client) AddOrganizer(ctx context.Context, req models.AddOrganizerRequest) error {
	_, err := c.GrantOrganizer(ctx, req.Username)
	return err
}

// GrantOrganizer grants organizer rights and returns the user with its API key
func (c *Client) GrantOrganizer(ctx context.Context, username string) (*models.OrganizerResponse, error) {
	var out models.OrganizerResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/admin/organizers", models.AddOrganizerRequest{Username: username}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks the API health
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	return err
}

// call sends body as JSON and decodes the envelope's data into out when out is non-nil
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	resp, err := c.doRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request. Error statuses come back as *APIError.
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, decodeAPIError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

func decodeAPIError(status int, body []byte) error {
	var result struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.Error == nil {
		return &APIError{Status: status, Code: "http_error", Message: fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body)))}
	}
	return &APIError{Status: status, Code: result.Error.Code, Message: result.Error.Message}
}

// IsNotFound reports whether err is a not_found API error
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "not_found"
}
