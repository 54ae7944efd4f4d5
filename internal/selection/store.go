package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/task-lobby/internal/models"
)

// Store persists selection snapshots so sessions survive a restart
type Store interface {
	Save(ctx context.Context, sel *models.Selection) error
	// Load returns nil, nil when nothing is stored under id
	Load(ctx context.Context, id string) (*models.Selection, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps snapshots in process
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]models.Selection
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]models.Selection)}
}

func (s *MemoryStore) Save(_ context.Context, sel *models.Selection) error {
	snapshot := *sel
	snapshot.State = sel.State.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sel.ID] = snapshot
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*models.Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sel, ok := s.data[id]
	if !ok {
		return nil, nil
	}
	sel.State = sel.State.Clone()
	return &sel, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// RedisStore keeps snapshots as JSON under "selection:<id>" with a TTL that
// is refreshed on every save.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func selectionKey(id string) string {
	return "selection:" + id
}

func (s *RedisStore) Save(ctx context.Context, sel *models.Selection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("failed to marshal selection: %w", err)
	}
	if err := s.client.Set(ctx, selectionKey(sel.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save selection %s: %w", sel.ID, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*models.Selection, error) {
	data, err := s.client.Get(ctx, selectionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load selection %s: %w", id, err)
	}

	var sel models.Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selection %s: %w", id, err)
	}
	return &sel, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, selectionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete selection %s: %w", id, err)
	}
	return nil
}
