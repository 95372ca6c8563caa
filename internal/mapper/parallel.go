package mapper

import (
	"context"
	"runtime"
	"sync"

	"github.com/inodb/txmap/internal/cache"
)

// WorkItem is one group queued for mapping. Seq is its index in the input.
type WorkItem struct {
	Seq   int
	Batch Batch
}

// WorkResult carries a mapped group back with the Seq of its WorkItem.
type WorkResult struct {
	Seq    int
	Result *Result
}

// MapAll maps every batch on a pool of workers sharing reg read-only and
// calls fn with each group's result in batch order. If workers is 0,
// runtime.NumCPU() is used. Feeding stops when ctx is cancelled or fn
// returns an error.
func (m *Mapper) MapAll(ctx context.Context, reg *cache.Registry, batches []Batch, workers int, fn func(*Result) error) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	feedCtx, stop := context.WithCancel(ctx)
	defer stop()

	items := make(chan WorkItem)
	go func() {
		defer close(items)
		for i, b := range batches {
			select {
			case items <- WorkItem{Seq: i, Batch: b}:
			case <-feedCtx.Done():
				return
			}
		}
	}()

	err := OrderedCollect(m.startWorkers(reg, items, workers), func(r WorkResult) error {
		if err := fn(r.Result); err != nil {
			stop()
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	return ctx.Err()
}

// startWorkers maps items on n goroutines. Results arrive in completion
// order and the channel closes once items is drained.
func (m *Mapper) startWorkers(reg *cache.Registry, items <-chan WorkItem, n int) <-chan WorkResult {
	results := make(chan WorkResult, 2*n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			for item := range items {
				results <- WorkResult{Seq: item.Seq, Result: m.MapBatch(reg, item.Batch)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// OrderedCollect calls fn for each result in Seq order, holding early
// arrivals until their turn. After fn fails the rest of results is
// drained so senders never block.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	held := make(map[int]WorkResult)
	next := 0

	for r := range results {
		held[r.Seq] = r
		for {
			ready, ok := held[next]
			if !ok {
				break
			}
			delete(held, next)
			next++
			if err := fn(ready); err != nil {
				for range results {
				}
				return err
			}
		}
	}
	return nil
}
