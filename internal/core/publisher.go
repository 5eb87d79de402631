package core

import (
	"context"

	"talentwire.com/sourcing/internal/cache"
	"talentwire.com/sourcing/internal/store"
)

// ResultPublisher delivers a tool call's output to wherever the originating
// chat request will look for it. The session store is the authoritative path;
// the in-memory cache is the fallback for deployments without session
// persistence of tool results.
type ResultPublisher interface {
	Publish(ctx context.Context, sessionID, toolName string, results *store.ToolResults) error
}

// SessionPublisher writes into the session record's tool-results slot,
// overwriting whatever an earlier tool call left there.
type SessionPublisher struct {
	store *store.SQLiteStore
}

func NewSessionPublisher(s *store.SQLiteStore) *SessionPublisher {
	return &SessionPublisher{store: s}
}

func (p *SessionPublisher) Publish(_ context.Context, sessionID, _ string, results *store.ToolResults) error {
	return p.store.SetSessionToolResults(sessionID, results)
}

// CachePublisher appends to the process-wide result cache.
type CachePublisher struct {
	cache *cache.ResultCache
}

func NewCachePublisher(c *cache.ResultCache) *CachePublisher {
	return &CachePublisher{cache: c}
}

func (p *CachePublisher) Publish(_ context.Context, sessionID, toolName string, results *store.ToolResults) error {
	p.cache.Put(sessionID, toolName, results)
	return nil
}
