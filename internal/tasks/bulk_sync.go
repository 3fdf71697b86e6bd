package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
	"golang.org/x/time/rate"
)

// BulkSyncOpts contains configuration for syncing many resources.
type BulkSyncOpts struct {
	NumWorkers int        // Concurrent workers (default: 4, max: 10)
	RateLimit  float64    // Resource syncs started per second (default: 5)
	Engine     EngineOpts // Options applied to each per-resource engine
}

// ResourceResult pairs a resource with its sync outcome. Exactly one of Result and Err is set.
type ResourceResult struct {
	Resource models.Resource
	Result   *SyncResult
	Err      error
}

// BulkSyncResult summarizes a [SyncAll] run.
type BulkSyncResult struct {
	Total     int
	Succeeded int
	Failed    int
	Results   []ResourceResult // In input order
	Duration  time.Duration
}

type syncJob struct {
	index    int
	resource models.Resource
}

// SyncAll syncs resources concurrently with rate limiting and progress tracking.
//
// Each resource gets a fresh [Engine] so engine state is never shared between workers.
// A failing resource does not stop the others. If ctx is canceled the partial result is returned with ctx.Err().
func SyncAll(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	f Fetcher,
	resources []models.Resource,
	opts BulkSyncOpts,
) (*BulkSyncResult, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: fetcher not initialized", shared.ErrServiceUnavailable)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	start := time.Now()
	result := &BulkSyncResult{
		Total:   len(resources),
		Results: make([]ResourceResult, len(resources)),
	}
	sendProgress(prog, bulkSyncStartUpdate(len(resources)))

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan syncJob, len(resources))
	done := make(chan syncJob, len(resources))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go syncWorker(ctx, &wg, f, opts.Engine, jobs, done, result.Results)
	}

	go func() {
		defer close(jobs)
		for i, res := range resources {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			jobs <- syncJob{index: i, resource: res}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	finished := make([]bool, len(resources))
	completed := 0
	for job := range done {
		completed++
		finished[job.index] = true
		r := result.Results[job.index]
		if r.Err != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}
		sendProgress(prog, bulkSyncedUpdate(completed, len(resources), r))
	}

	result.Duration = time.Since(start)
	if err := ctx.Err(); err != nil {
		for i, ok := range finished {
			if !ok {
				result.Results[i] = ResourceResult{Resource: resources[i], Err: err}
				result.Failed++
			}
		}
		return result, err
	}
	return result, nil
}

// syncWorker syncs resources from the jobs channel, writing each outcome into its slot in out.
func syncWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	f Fetcher,
	opts EngineOpts,
	jobs <-chan syncJob,
	done chan<- syncJob,
	out []ResourceResult,
) {
	defer wg.Done()

	for job := range jobs {
		r := ResourceResult{Resource: job.resource}
		if err := ctx.Err(); err != nil {
			r.Err = err
		} else {
			engine := NewEngine(f, opts)
			r.Result, r.Err = engine.Sync(ctx, nil, job.resource)
		}
		out[job.index] = r
		done <- job
	}
}
