package crawl

import (
	"sync"
	"time"
)

// drainTimeout bounds how long the coordinator waits for in-flight
// workers after it stops dispatching.
const drainTimeout = 5 * time.Second

// walk drains the frontier with a pool of workers. Workers fetch and
// parse; every outcome comes back to this goroutine, which is the only
// one that touches the frontier, the graph and the corpus.
//
// It reports whether the run stopped at MaxPages with work left over.
func (c *Crawler) walk(r *run) bool {
	ctx := r.ctx
	concurrency := r.cfg.Concurrency

	workCh := make(chan Item, concurrency)
	resultCh := make(chan outcome)

	var wg sync.WaitGroup
	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				out := c.process(ctx, r.cfg, item)
				select {
				case resultCh <- out:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	dispatched := 0
	pending := 0
	var next *Item
	pop := func() {
		if next == nil && dispatched < r.cfg.MaxPages {
			if item, ok := r.frontier.Pop(); ok {
				next = &item
			}
		}
	}
	pop()

loop:
	for {
		if pending == 0 && (next == nil || dispatched >= r.cfg.MaxPages) {
			break loop
		}
		if ctx.Err() != nil {
			break loop
		}

		if next != nil && dispatched < r.cfg.MaxPages {
			select {
			case <-ctx.Done():
				break loop
			case workCh <- *next:
				dispatched++
				pending++
				next = nil
			case out := <-resultCh:
				pending--
				c.handle(r, out)
			}
		} else {
			select {
			case <-ctx.Done():
				break loop
			case out, ok := <-resultCh:
				if !ok {
					break loop
				}
				pending--
				c.handle(r, out)
			}
		}

		pop()
	}

	close(workCh)

	timeout := time.After(drainTimeout)
drain:
	for {
		select {
		case out, ok := <-resultCh:
			if !ok {
				break drain
			}
			c.handle(r, out)
		case <-timeout:
			c.logger().Warn("workers still busy after drain timeout", "timeout", drainTimeout)
			break drain
		}
	}

	return dispatched >= r.cfg.MaxPages && (next != nil || r.frontier.Len() > 0)
}
