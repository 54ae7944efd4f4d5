package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/terra-clan/task-lobby/internal/models"
)

// upstreamTask is a task as the platform API serves it
type upstreamTask struct {
	ID        models.FlexID  `json:"id"`
	Name      string         `json:"name"`
	Level     string         `json:"level"`
	Tags      []string       `json:"tags"`
	Origin    string         `json:"origin"`
	CreatorID *models.FlexID `json:"creator_id"`
}

func (u upstreamTask) toModel() models.Task {
	task := models.Task{
		ID:     string(u.ID),
		Name:   u.Name,
		Level:  models.Level(u.Level),
		Tags:   u.Tags,
		Origin: models.Origin(u.Origin),
	}
	if u.CreatorID != nil && *u.CreatorID != "" {
		creator := string(*u.CreatorID)
		task.CreatorID = &creator
	}
	return task
}

// HTTPSource pulls tasks from the platform's GET /api/v1/tasks
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSource creates a source for the platform at baseURL
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Name() string {
	return "http"
}

// FetchTasks performs one request. Failures are not retried.
func (s *HTTPSource) FetchTasks(ctx context.Context) ([]models.Task, error) {
	body, err := getJSON(ctx, s.httpClient, s.baseURL+"/api/v1/tasks")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Tasks []upstreamTask `json:"tasks"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}

	tasks := make([]models.Task, 0, len(payload.Tasks))
	for _, u := range payload.Tasks {
		tasks = append(tasks, u.toModel())
	}
	return tasks, nil
}

// HealthCheck issues a HEAD against the tasks endpoint
func (s *HTTPSource) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.baseURL+"/api/v1/tasks", nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	return nil
}

// getJSON fetches url and returns the body of a 2xx response
func getJSON(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upstream %s returned status %d", url, resp.StatusCode)
	}
	return body, nil
}
