// Package cache holds tool-call results in memory, keyed by session id. A tool
// invocation has no return channel to the chat request that triggered it; the
// session record in the database is the primary bridge, and this cache is the
// fallback path when session persistence is not wired up for a deployment.
package cache

import (
	"log"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTTL           = 10 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
)

type ToolResult struct {
	SessionID string
	ToolName  string
	Result    any
	Timestamp time.Time
}

// ResultCache is safe for concurrent use: tool handlers write while the chat
// orchestrator reads and the sweeper prunes.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string][]ToolResult
	ttl     time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewResultCache starts the background sweeper immediately; callers own the
// teardown via Close.
func NewResultCache(ttl, sweepInterval time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	c := &ResultCache{
		entries: make(map[string][]ToolResult),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}

	go c.sweepLoop(sweepInterval)
	return c
}

// Put appends a result for the session. Entries accumulate; they are never
// replaced by later puts.
func (c *ResultCache) Put(sessionID, toolName string, result any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[sessionID] = append(c.entries[sessionID], ToolResult{
		SessionID: sessionID,
		ToolName:  toolName,
		Result:    result,
		Timestamp: time.Now(),
	})
	log.Printf("[ResultCache] Stored %s result for session %s", toolName, sessionID)
}

// GetAll returns every entry for the session, oldest first.
func (c *ResultCache) GetAll(sessionID string) []ToolResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.entries[sessionID]
	out := make([]ToolResult, len(entries))
	copy(out, entries)
	return out
}

// GetLatestByToolName returns the payload of the most recent entry whose tool
// name contains the given substring. Registered tool names carry version and
// user suffixes, so exact matching is not usable here.
func (c *ResultCache) GetLatestByToolName(sessionID, toolNameSubstring string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.entries[sessionID]
	for i := len(entries) - 1; i >= 0; i-- {
		if strings.Contains(entries[i].ToolName, toolNameSubstring) {
			return entries[i].Result, true
		}
	}
	return nil, false
}

// Clear drops all entries for the session.
func (c *ResultCache) Clear(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, sessionID)
	log.Printf("[ResultCache] Cleared session %s", sessionID)
}

// Len reports the number of sessions currently held.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the background sweeper. Safe to call more than once.
func (c *ResultCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *ResultCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *ResultCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-c.ttl)
	swept := 0

	for sessionID, entries := range c.entries {
		fresh := entries[:0:0]
		for _, e := range entries {
			if e.Timestamp.After(cutoff) {
				fresh = append(fresh, e)
			}
		}

		if len(fresh) == 0 {
			delete(c.entries, sessionID)
			swept++
		} else if len(fresh) < len(entries) {
			c.entries[sessionID] = fresh
		}
	}

	if swept > 0 {
		log.Printf("[ResultCache] Swept %d expired sessions", swept)
	}
}
