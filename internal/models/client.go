package models

import (
	"strings"
	"time"
)

// ApiClient is a lobby front end or bot holding an API key
type ApiClient struct {
	ID          int               `json:"id"`
	Name        string            `json:"name"`
	ApiKey      string            `json:"-"`
	IsActive    bool              `json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
	LastUsedAt  *time.Time        `json:"last_used_at,omitempty"`
	Permissions []string          `json:"permissions"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// HasPermission checks a "resource:action" permission. "tasks:*" grants
// every tasks action and "*" grants everything.
func (c *ApiClient) HasPermission(required string) bool {
	if c == nil || !c.IsActive {
		return false
	}

	for _, perm := range c.Permissions {
		switch {
		case perm == "*", perm == required:
			return true
		case strings.HasSuffix(perm, ":*"):
			if strings.HasPrefix(required, strings.TrimSuffix(perm, "*")) {
				return true
			}
		}
	}

	return false
}

// MaskedApiKey returns the key prefix for logs
func (c *ApiClient) MaskedApiKey() string {
	return MaskKey(c.ApiKey)
}

// MaskKey keeps the first 8 characters of an API key
func MaskKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:8] + "..."
}
