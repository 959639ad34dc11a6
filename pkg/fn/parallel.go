package fn

import "sync"

// ParMapResult applies f to each item with bounded concurrency, returning
// Results in input order. The index-to-result mapping is preserved even
// when goroutines complete out of order.
func ParMapResult[T, U any](items []T, workers int, f func(int, T) Result[U]) []Result[U] {
	out := make([]Result[U], len(items))
	if len(items) == 0 {
		return out
	}
	if workers <= 0 || workers > len(items) {
		workers = len(items)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i, v := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, v T) {
			defer func() { <-sem; wg.Done() }()
			out[i] = f(i, v)
		}(i, v)
	}
	wg.Wait()
	return out
}
