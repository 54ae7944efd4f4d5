package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/task-lobby/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = 10
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	}

	poolConfig.MinConns = 2
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}

	poolConfig.MaxConnLifetime = 30 * time.Minute
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Catalog source ---

// Name identifies the repository as a catalog source
func (r *PostgresRepository) Name() string {
	return "postgres"
}

// FetchTasks returns every stored task
func (r *PostgresRepository) FetchTasks(ctx context.Context) ([]models.Task, error) {
	return r.ListTasks(ctx, models.TaskFilters{})
}

// FetchTags returns the stored tag catalog
func (r *PostgresRepository) FetchTags(ctx context.Context) (models.TagCatalog, error) {
	return r.GetTagCatalog(ctx)
}

// --- Tasks ---

const taskColumns = `id, name, level, tags, origin, creator_id`

func scanTask(row pgx.Row) (models.Task, error) {
	var task models.Task
	var level, origin string
	var creatorID sql.NullString

	if err := row.Scan(&task.ID, &task.Name, &level, &task.Tags, &origin, &creatorID); err != nil {
		return models.Task{}, err
	}

	task.Level = models.Level(level)
	task.Origin = models.Origin(origin)
	if task.Tags == nil {
		task.Tags = []string{}
	}
	if creatorID.Valid {
		task.CreatorID = &creatorID.String
	}
	return task, nil
}

// ListTasks returns tasks matching filters in insertion order
func (r *PostgresRepository) ListTasks(ctx context.Context, filters models.TaskFilters) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	args := make([]interface{}, 0)
	argNum := 1

	if filters.Level != "" {
		query += fmt.Sprintf(" AND level = $%d", argNum)
		args = append(args, string(filters.Level))
		argNum++
	}

	if filters.Origin != "" {
		query += fmt.Sprintf(" AND origin = $%d", argNum)
		args = append(args, string(filters.Origin))
		argNum++
	}

	if filters.Tag != "" {
		query += fmt.Sprintf(" AND $%d = ANY(tags)", argNum)
		args = append(args, filters.Tag)
		argNum++
	}

	query += " ORDER BY position, id"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// GetTask retrieves a task by ID
func (r *PostgresRepository) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// UpsertTasks inserts or replaces tasks in one transaction. Replaced tasks
// keep their place in the catalog order; new ones go after the rest.
func (r *PostgresRepository) UpsertTasks(ctx context.Context, tasks []models.Task) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `LOCK TABLE tasks IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return 0, fmt.Errorf("failed to lock tasks: %w", err)
	}

	// Known tasks keep their position; new ones are appended in request order.
	query := `
		INSERT INTO tasks (id, name, level, tags, origin, creator_id, position, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, (SELECT COALESCE(MAX(position), -1) + 1 FROM tasks), NOW())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, level = EXCLUDED.level, tags = EXCLUDED.tags,
		    origin = EXCLUDED.origin, creator_id = EXCLUDED.creator_id,
		    updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, task := range tasks {
		var creator sql.NullString
		if task.CreatorID != nil {
			creator = sql.NullString{String: *task.CreatorID, Valid: true}
		}
		batch.Queue(query, task.ID, task.Name, string(task.Level), task.Tags, string(task.Origin), creator)
	}

	results := tx.SendBatch(ctx, batch)
	for range tasks {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, fmt.Errorf("failed to upsert task: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit tasks: %w", err)
	}

	return len(tasks), nil
}

// DeleteTask deletes a task by ID
func (r *PostgresRepository) DeleteTask(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	return nil
}

// --- Tag catalog ---

// GetTagCatalog returns the tags ordered by position
func (r *PostgresRepository) GetTagCatalog(ctx context.Context) (models.TagCatalog, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM task_tags ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to get tag catalog: %w", err)
	}
	defer rows.Close()

	var tags models.TagCatalog
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, name)
	}

	return tags, rows.Err()
}

// SetTagCatalog replaces the stored catalog
func (r *PostgresRepository) SetTagCatalog(ctx context.Context, tags models.TagCatalog) error {
	if err := tags.Validate(); err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM task_tags`); err != nil {
		return fmt.Errorf("failed to clear tag catalog: %w", err)
	}

	rows := make([][]interface{}, 0, len(tags))
	for i, tag := range tags {
		rows = append(rows, []interface{}{tag, i})
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"task_tags"}, []string{"name", "position"}, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to write tag catalog: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tag catalog: %w", err)
	}
	return nil
}

// --- API clients ---

// GetClientByApiKey retrieves an API client by its key
func (r *PostgresRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	query := `
		SELECT id, name, api_key, is_active, created_at, last_used_at, permissions, metadata
		FROM api_clients
		WHERE api_key = $1
	`

	var client models.ApiClient
	var lastUsedAt sql.NullTime
	var permissionsJSON, metadataJSON []byte

	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&client.ID,
		&client.Name,
		&client.ApiKey,
		&client.IsActive,
		&client.CreatedAt,
		&lastUsedAt,
		&permissionsJSON,
		&metadataJSON,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	if lastUsedAt.Valid {
		client.LastUsedAt = &lastUsedAt.Time
	}

	if permissionsJSON != nil {
		if err := json.Unmarshal(permissionsJSON, &client.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &client.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &client, nil
}

// UpdateClientLastUsed updates the last_used_at timestamp for a client
func (r *PostgresRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`, apiKey)
	if err != nil {
		return fmt.Errorf("failed to update client last_used_at: %w", err)
	}
	return nil
}
