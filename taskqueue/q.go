// Package taskqueue provides a bounded pool of workers draining one generic
// work queue.
package taskqueue

import "sync"

type Q[T any] struct {
	c    chan T
	wg   sync.WaitGroup
	work func(T)
}

// NewQ starts workerCount goroutines applying work to every submitted item.
func NewQ[T any](workerCount int, chanSize int, work func(T)) (q *Q[T]) {
	if work == nil {
		panic("work cannot be nil")
	}
	if workerCount <= 0 {
		panic("workerCount must be at least 1")
	}

	q = &Q[T]{
		c:    make(chan T, chanSize),
		work: work,
	}

	for n := 0; n < workerCount; n++ {
		go func() {
			for item := range q.c {
				q.runItem(item)
			}
		}()
	}

	return
}

func (q *Q[T]) runItem(item T) {
	defer q.wg.Done()
	q.work(item)
}

func (q *Q[T]) Submit(item T) {
	q.wg.Add(1)
	q.c <- item
}

// Wait blocks until every submitted item has been processed.
func (q *Q[T]) Wait() {
	q.wg.Wait()
}

func (q *Q[T]) Close() {
	close(q.c)
}
