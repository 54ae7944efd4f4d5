package sources

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/terra-clan/task-lobby/internal/models"
)

// PlatformSource reads tasks straight from the platform's database through
// a read-only connection. Only active tasks visible to everyone are served.
type PlatformSource struct {
	db *sql.DB
}

// NewPlatformSource connects to the platform database at dsn
func NewPlatformSource(dsn string) (*PlatformSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to platform database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping platform database: %w", err)
	}

	db.SetMaxOpenConns(4)

	return &PlatformSource{db: db}, nil
}

func (s *PlatformSource) Name() string {
	return "platform"
}

const platformTasksQuery = `
	SELECT id::text, name, level, COALESCE(tags, '{}'), COALESCE(origin, 'other'), creator_id::text
	FROM tasks
	WHERE state = 'active' AND visibility = 'public'
	ORDER BY id
`

func (s *PlatformSource) FetchTasks(ctx context.Context) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, platformTasksQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query platform tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var task models.Task
		var level, origin string
		var creatorID sql.NullString

		if err := rows.Scan(&task.ID, &task.Name, &level, pq.Array(&task.Tags), &origin, &creatorID); err != nil {
			return nil, fmt.Errorf("failed to scan platform task: %w", err)
		}

		task.Level = models.Level(level)
		task.Origin = models.Origin(origin)
		if creatorID.Valid {
			creator := creatorID.String
			task.CreatorID = &creator
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating platform tasks: %w", err)
	}

	slog.Debug("platform tasks fetched", "count", len(tasks))
	return tasks, nil
}

func (s *PlatformSource) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PlatformSource) Close() error {
	return s.db.Close()
}
