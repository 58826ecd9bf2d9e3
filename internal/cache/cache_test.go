package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryExpiresAfterTTL(t *testing.T) {
	c := New[string](30 * time.Minute)

	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return current })

	c.Put("41.1579,-8.6291", "snapshot")
	assert.True(t, c.IsValid("41.1579,-8.6291"))

	v, ok := c.Get("41.1579,-8.6291")
	require.True(t, ok)
	assert.Equal(t, "snapshot", v)

	// One second short of the TTL the entry is still served.
	current = current.Add(30*time.Minute - time.Second)
	assert.True(t, c.IsValid("41.1579,-8.6291"))

	// At exactly the TTL it is logically absent.
	current = current.Add(time.Second)
	assert.False(t, c.IsValid("41.1579,-8.6291"))

	_, ok = c.Get("41.1579,-8.6291")
	assert.False(t, ok)
}

func TestAbsentKeyIsInvalid(t *testing.T) {
	c := New[int](time.Minute)

	assert.False(t, c.IsValid("missing"))
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestPutOverwritesAndResetsStoredAt(t *testing.T) {
	c := New[int](time.Minute)

	current := time.Now()
	c.SetClock(func() time.Time { return current })

	c.Put("k", 1)
	current = current.Add(59 * time.Second)
	c.Put("k", 2)

	// The refresh restarted the clock for this key.
	current = current.Add(30 * time.Second)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestClearRemovesEverything(t *testing.T) {
	c := New[string](time.Hour)
	c.Put("a", "1")
	c.Put("b", "2")

	c.Clear()

	assert.False(t, c.IsValid("a"))
	assert.False(t, c.IsValid("b"))
	assert.Equal(t, 0, c.Info().Count)
}

func TestInfoSnapshot(t *testing.T) {
	c := New[string](time.Hour)
	c.Put("a", "1")
	c.Put("b", "2")

	info := c.Info()
	assert.Equal(t, 2, info.Count)
	assert.Equal(t, time.Hour, info.TTL)
	assert.ElementsMatch(t, []string{"a", "b"}, info.Keys)
}

func TestConcurrentPutGet(t *testing.T) {
	c := New[int](time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Put("shared", i)
			c.Get("shared")
			c.IsValid("shared")
		}()
	}
	wg.Wait()

	_, ok := c.Get("shared")
	assert.True(t, ok)
}

func TestFlightGroupCoalescesConcurrentCallers(t *testing.T) {
	var g FlightGroup[string]
	var calls atomic.Int64

	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		g.Do("key", func() (string, error) {
			close(started)
			calls.Add(1)
			<-release
			return "result", nil
		})
	}()

	<-started

	var ready, wg sync.WaitGroup
	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		i := i
		ready.Add(1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			ready.Done()
			v, err := g.Do("key", func() (string, error) {
				calls.Add(1)
				return "duplicate", nil
			})
			assert.NoError(t, err)
			results[i] = v
		}()
	}

	// Give the duplicates time to reach the in-flight wait before the first
	// call is allowed to finish.
	ready.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "result", r)
	}
}

func TestFlightGroupRunsAgainAfterCompletion(t *testing.T) {
	var g FlightGroup[int]
	var calls int

	for i := 0; i < 3; i++ {
		v, err := g.Do("key", func() (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
		assert.Equal(t, i+1, v)
	}
}
