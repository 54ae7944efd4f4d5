package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/terra-clan/task-lobby/internal/models"
)

// Client is a Go SDK for the task-lobby API
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

// NewClient creates a new task-lobby client
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

// APIError is an error envelope returned by the server
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is an APIError with the given code
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// ListOptions contains options for listing tasks
type ListOptions struct {
	Level  string
	Origin string
	Tag    string
	Limit  int
	Offset int
}

// TagList is the tag catalog with its catch-all tag
type TagList struct {
	Tags []string `json:"tags"`
	Rest string   `json:"rest"`
}

// CatalogStatus describes the server's last catalog refresh
type CatalogStatus struct {
	Source      string     `json:"source"`
	Tasks       int        `json:"tasks"`
	Tags        []string   `json:"tags"`
	Levels      []string   `json:"levels"`
	Loaded      bool       `json:"loaded"`
	LoadedAt    *time.Time `json:"loaded_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
}

// ListTasks lists catalog tasks
func (c *Client) ListTasks(ctx context.Context, opts ListOptions) ([]models.Task, error) {
	params := url.Values{}
	if opts.Level != "" {
		params.Set("level", opts.Level)
	}
	if opts.Origin != "" {
		params.Set("origin", opts.Origin)
	}
	if opts.Tag != "" {
		params.Set("tag", opts.Tag)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := "/api/v1/tasks"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var data struct {
		Tasks []models.Task `json:"tasks"`
		Total int           `json:"total"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Tasks, nil
}

// GetTask retrieves a task by ID
func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := c.call(ctx, http.MethodGet, "/api/v1/tasks/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Tags retrieves the tag catalog
func (c *Client) Tags(ctx context.Context) (*TagList, error) {
	var tags TagList
	if err := c.call(ctx, http.MethodGet, "/api/v1/tags", nil, &tags); err != nil {
		return nil, err
	}
	return &tags, nil
}

// LevelGroup retrieves the tasks of level split by tag
func (c *Client) LevelGroup(ctx context.Context, level string) (*models.LevelGroup, error) {
	var group models.LevelGroup
	if err := c.call(ctx, http.MethodGet, "/api/v1/levels/"+url.PathEscape(level)+"/tasks", nil, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// FilterLevel returns the tasks of level visible under the tag filter
func (c *Client) FilterLevel(ctx context.Context, level string, tags []string) ([]models.Task, error) {
	path := "/api/v1/levels/" + url.PathEscape(level) + "/tasks?tags=" + url.QueryEscape(strings.Join(tags, ","))

	var data struct {
		Visible []models.Task `json:"visible"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Visible, nil
}

// RefreshCatalog asks the server to reload its catalog now
func (c *Client) RefreshCatalog(ctx context.Context) (*CatalogStatus, error) {
	var status CatalogStatus
	if err := c.call(ctx, http.MethodPost, "/api/v1/catalog/refresh", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// CatalogStatus reports the last catalog refresh
func (c *Client) CatalogStatus(ctx context.Context) (*CatalogStatus, error) {
	var status CatalogStatus
	if err := c.call(ctx, http.MethodGet, "/api/v1/catalog/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetUserStats retrieves a player's stats through the lobby
func (c *Client) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	if err := c.call(ctx, http.MethodGet, "/api/v1/users/"+url.PathEscape(userID)+"/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreateSelection opens a lobby session
func (c *Client) CreateSelection(ctx context.Context, userID, level string) (*models.SelectionView, error) {
	return c.selection(ctx, http.MethodPost, "/api/v1/selections", models.CreateSelectionRequest{UserID: userID, Level: level})
}

// GetSelection renders a lobby session
func (c *Client) GetSelection(ctx context.Context, id string) (*models.SelectionView, error) {
	return c.selection(ctx, http.MethodGet, selectionPath(id, ""), nil)
}

// SearchSelection renders a lobby session narrowed to tasks matching query
func (c *Client) SearchSelection(ctx context.Context, id, query string) (*models.SelectionView, error) {
	return c.selection(ctx, http.MethodGet, selectionPath(id, "/search?q="+url.QueryEscape(query)), nil)
}

// ToggleTag flips a tag of the session's filter
func (c *Client) ToggleTag(ctx context.Context, id, tag string) (*models.SelectionView, error) {
	return c.selection(ctx, http.MethodPost, selectionPath(id, "/tags/toggle"), models.ToggleTagRequest{Tag: tag})
}

// ChooseTask picks a concrete task
func (c *Client) ChooseTask(ctx context.Context, id, taskID string) (*models.SelectionView, error) {
	return c.selection(ctx, http.MethodPost, selectionPath(id, "/task"), models.ChooseTaskRequest{TaskID: taskID})
}

// ChooseRandom switches the session back to the random option
func (c *Client) ChooseRandom(ctx context.Context, id string) (*models.SelectionView, error) {
	return c.selection(ctx, http.MethodPost, selectionPath(id, "/random"), nil)
}

// SetLevel switches the session's difficulty
func (c *Client) SetLevel(ctx context.Context, id, level string) (*models.SelectionView, error) {
	return c.selection(ctx, http.MethodPut, selectionPath(id, "/level"), models.SetLevelRequest{Level: level})
}

// DeleteSelection closes a lobby session
func (c *Client) DeleteSelection(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, selectionPath(id, ""), nil, nil)
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

func selectionPath(id, suffix string) string {
	return "/api/v1/selections/" + url.PathEscape(id) + suffix
}

func (c *Client) selection(ctx context.Context, method, path string, body interface{}) (*models.SelectionView, error) {
	var view models.SelectionView
	if err := c.call(ctx, method, path, body, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// call sends body as JSON and decodes the envelope's data into out
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	status, resp, err := c.doRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		if status >= 400 {
			return fmt.Errorf("HTTP %d: %s", status, string(resp))
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		if result.Error == nil {
			return &APIError{Status: status, Code: "unknown", Message: string(resp)}
		}
		result.Error.Status = status
		return result.Error
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
