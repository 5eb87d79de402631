package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAccumulatesInOrder(t *testing.T) {
	c := NewResultCache(DefaultTTL, DefaultSweepInterval)
	defer c.Close()

	c.Put("session-1", "search_candidates_v1", "first")
	c.Put("session-1", "search_candidates_v1", "second")
	c.Put("session-2", "rank_candidates_v1", "other")

	entries := c.GetAll("session-1")
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Result)
	assert.Equal(t, "second", entries[1].Result)

	assert.Empty(t, c.GetAll("session-3"))
}

func TestGetLatestByToolNameMatchesSubstring(t *testing.T) {
	c := NewResultCache(DefaultTTL, DefaultSweepInterval)
	defer c.Close()

	c.Put("session-1", "search_candidates_v1.0.3_user-42", "old")
	c.Put("session-1", "rank_candidates_v1.0.3_user-42", "ranked")
	c.Put("session-1", "search_candidates_v1.0.3_user-42", "new")

	result, ok := c.GetLatestByToolName("session-1", "search_candidates")
	require.True(t, ok)
	assert.Equal(t, "new", result, "the most recent matching entry wins")

	_, ok = c.GetLatestByToolName("session-1", "generate_profile_summaries")
	assert.False(t, ok)

	_, ok = c.GetLatestByToolName("missing-session", "search_candidates")
	assert.False(t, ok)
}

func TestClearRemovesSession(t *testing.T) {
	c := NewResultCache(DefaultTTL, DefaultSweepInterval)
	defer c.Close()

	c.Put("session-1", "search_candidates", "payload")
	c.Clear("session-1")

	assert.Empty(t, c.GetAll("session-1"))
	assert.Equal(t, 0, c.Len())
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	ttl := 40 * time.Millisecond
	c := NewResultCache(ttl, 10*time.Millisecond)
	defer c.Close()

	c.Put("session-1", "search_candidates", "payload")

	// Still retrievable well inside the TTL.
	_, ok := c.GetLatestByToolName("session-1", "search_candidates")
	assert.True(t, ok)

	require.Eventually(t, func() bool {
		return c.Len() == 0
	}, time.Second, 5*time.Millisecond, "entry should be swept after TTL + sweep interval")

	assert.Empty(t, c.GetAll("session-1"))
}

func TestSweepKeepsFreshEntries(t *testing.T) {
	c := NewResultCache(time.Minute, 10*time.Millisecond)
	defer c.Close()

	c.Put("session-1", "search_candidates", "payload")
	time.Sleep(50 * time.Millisecond) // several sweeps pass

	entries := c.GetAll("session-1")
	require.Len(t, entries, 1, "sweep must not drop entries younger than the TTL")
}

func TestConcurrentWritersAndReaders(t *testing.T) {
	c := NewResultCache(time.Minute, 5*time.Millisecond)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("session-%d", n%2)
			for j := 0; j < 100; j++ {
				c.Put(sessionID, "search_candidates", j)
				c.GetAll(sessionID)
				c.GetLatestByToolName(sessionID, "search")
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, c.GetAll("session-0"), 400)
	assert.Len(t, c.GetAll("session-1"), 400)
}
