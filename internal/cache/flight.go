package cache

import "sync"

// flight is one in-progress fetch that concurrent callers can wait on.
type flight[V any] struct {
	wg  sync.WaitGroup
	val V
	err error
}

// FlightGroup coalesces concurrent fetches for the same key so a cache miss
// hit by several goroutines at once triggers a single upstream call; the
// duplicates block until the first caller finishes and share its result.
type FlightGroup[V any] struct {
	mu      sync.Mutex
	flights map[string]*flight[V]
}

// Do runs fn for key unless another call for the same key is already in
// progress, in which case it waits for that call and returns its result.
func (g *FlightGroup[V]) Do(key string, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if g.flights == nil {
		g.flights = make(map[string]*flight[V])
	}
	if f, ok := g.flights[key]; ok {
		g.mu.Unlock()
		f.wg.Wait()
		return f.val, f.err
	}

	f := &flight[V]{}
	f.wg.Add(1)
	g.flights[key] = f
	g.mu.Unlock()

	f.val, f.err = fn()

	g.mu.Lock()
	delete(g.flights, key)
	g.mu.Unlock()
	f.wg.Done()

	return f.val, f.err
}
