// Package fanout runs independent lookups against a bounded worker pool and
// collects the subset that succeeded. It backs batch endpoints that fetch the
// same kind of data for many inputs, keeping the number of parallel outbound
// calls capped.
package fanout

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultWorkers bounds parallel outbound calls when no explicit count is set.
const DefaultWorkers = 5

// Job pairs an input with the identity used to report its failure.
type Job[T any] struct {
	ID    string
	Input T
}

// Config controls a batch run.
type Config struct {
	// Workers is the pool size; DefaultWorkers when <= 0.
	Workers int
	// Timeout bounds the whole batch. Zero means no batch deadline beyond
	// whatever the caller's context carries. Jobs unfinished at the deadline
	// are abandoned and excluded from the result.
	Timeout time.Duration
}

// Run executes fn for every job using at most cfg.Workers goroutines and
// returns the successful results in job order. Failed jobs are logged with
// their identity and dropped; they never fail the batch.
func Run[T, R any](ctx context.Context, cfg Config, jobs []Job[T], fn func(context.Context, T) (R, error)) []R {
	if len(jobs) == 0 {
		return nil
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	results := make([]R, len(jobs))
	succeeded := make([]bool, len(jobs))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				job := jobs[idx]

				if ctx.Err() != nil {
					logrus.WithFields(logrus.Fields{
						"job": job.ID,
					}).Warn("batch deadline reached; job abandoned")
					continue
				}

				value, err := fn(ctx, job.Input)
				if err != nil {
					logrus.WithFields(logrus.Fields{
						"job": job.ID,
					}).WithError(err).Warn("batch job failed")
					continue
				}
				results[idx] = value
				succeeded[idx] = true
			}
		}()
	}

	for idx := range jobs {
		indexes <- idx
	}
	close(indexes)
	wg.Wait()

	out := make([]R, 0, len(jobs))
	for idx, ok := range succeeded {
		if ok {
			out = append(out, results[idx])
		}
	}
	return out
}
