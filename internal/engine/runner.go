package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/adreel/adreel/internal/system"
)

// Runner assembles a batch of requests on a bounded worker pool.
// Requests are independent; one failure never stops the others.
type Runner struct {
	Project *Project
	Workers int
}

// NewRunner sizes the pool from configuration, falling back to the
// host when render_workers is unset.
func NewRunner(p *Project) *Runner {
	workers := p.Config.RenderWorkers
	if workers <= 0 {
		workers = system.RenderWorkers()
	}
	return &Runner{Project: p, Workers: workers}
}

// RenderAll assembles every request and returns results in request
// order.
func (r *Runner) RenderAll(ctx context.Context, reqs []*Request) []Result {
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(reqs) {
		workers = len(reqs)
	}
	r.Project.Logger.Info("starting batch",
		slog.Int("requests", len(reqs)),
		slog.Int("workers", workers))

	results := make([]Result, len(reqs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.Project.Assemble(ctx, reqs[i])
			}
		}()
	}

	for i := range reqs {
		select {
		case <-ctx.Done():
			results[i] = Result{RequestID: reqs[i].ID, Err: ctx.Err()}
			continue
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return results
}
