package indexer

import "context"

// pool runs tasks on goroutines bounded by a semaphore of worker slots.
// Go never blocks: the goroutine is spawned first and waits for a slot, so a
// task may submit further tasks without holding up its own slot.
type pool struct {
	ctx context.Context
	sem chan struct{}
	run *Run
}

func newPool(ctx context.Context, workers int, run *Run) *pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &pool{
		ctx: ctx,
		sem: make(chan struct{}, workers),
		run: run,
	}
}

// Go registers fn with the run and executes it once a slot is free.
// Tasks still waiting for a slot when the context ends are skipped.
func (p *pool) Go(fn func()) {
	p.run.Begin()
	go func() {
		defer p.run.End()

		select {
		case p.sem <- struct{}{}:
		case <-p.ctx.Done():
			return
		}
		defer func() { <-p.sem }()

		fn()
	}()
}
