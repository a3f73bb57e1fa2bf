// Package draftcache keeps the meeting-note text being edited so it
// survives a restart.
package draftcache

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Key is the fixed key under which the note text is cached.
const Key = "meeting_input_text"

// LegacyPlaceholder prefixes a sample note that older builds seeded into
// the cache. A cached value starting with it is treated as empty.
const LegacyPlaceholder = "일시: 2023년 10월 26일"

// Backend stores string values by key.
type Backend interface {
	GetDraft(ctx context.Context, key string) (string, bool, error)
	PutDraft(ctx context.Context, key, value string) error
	DeleteDraft(ctx context.Context, key string) error
}

// Cache reads and writes the note text through a Backend.
type Cache struct {
	backend Backend
	logger  *zap.Logger
}

// New returns a cache over backend.
func New(backend Backend, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{backend: backend, logger: logger}
}

// Load returns the cached note text, or "" when nothing usable is stored.
// Read failures are logged and reported as empty.
func (c *Cache) Load(ctx context.Context) string {
	value, ok, err := c.backend.GetDraft(ctx, Key)
	if err != nil {
		c.logger.Warn("draft cache read failed", zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	if strings.HasPrefix(value, LegacyPlaceholder) {
		c.logger.Info("discarding legacy placeholder draft")
		if err := c.backend.DeleteDraft(ctx, Key); err != nil {
			c.logger.Warn("draft cache cleanup failed", zap.Error(err))
		}
		return ""
	}
	return value
}

// Save stores text. An empty text clears the cache.
func (c *Cache) Save(ctx context.Context, text string) error {
	if text == "" {
		return c.Clear(ctx)
	}
	if err := c.backend.PutDraft(ctx, Key, text); err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

// Clear removes the cached text.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.backend.DeleteDraft(ctx, Key); err != nil {
		return fmt.Errorf("clearing draft: %w", err)
	}
	return nil
}
