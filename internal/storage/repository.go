package storage

import (
	"context"

	"github.com/terra-clan/task-lobby/internal/models"
)

// Repository defines the persistence the lobby service owns
type Repository interface {
	// Tasks
	ListTasks(ctx context.Context, filters models.TaskFilters) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	UpsertTasks(ctx context.Context, tasks []models.Task) (int, error)
	DeleteTask(ctx context.Context, id string) error

	// Tag catalog
	GetTagCatalog(ctx context.Context) (models.TagCatalog, error)
	SetTagCatalog(ctx context.Context, tags models.TagCatalog) error

	// API Clients
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
