// Package async runs independent named tasks on a bounded set of workers.
package async

import (
	"context"
	"fmt"
	"sync"
)

type Task struct {
	Name    string
	Execute func(ctx context.Context) (any, error)
}

type Result struct {
	Name string
	Data any
	Err  error
}

// Pool bounds how many tasks run at once. A Pool holds no per-run state and
// may be shared.
type Pool struct {
	workerCount int
}

func NewPool(workerCount int) *Pool {
	return &Pool{workerCount: max(workerCount, 1)}
}

// Execute runs every task and returns the results keyed by task name. Tasks
// not started before ctx is done report ctx.Err(). A panicking task reports
// an error instead of crashing the caller.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	queue := make(chan Task)
	results := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < min(p.workerCount, len(tasks)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				results <- run(ctx, task)
			}
		}()
	}

	for _, task := range tasks {
		select {
		case queue <- task:
		case <-ctx.Done():
			results <- Result{Name: task.Name, Err: ctx.Err()}
		}
	}
	close(queue)
	wg.Wait()
	close(results)

	out := make(map[string]Result, len(tasks))
	for r := range results {
		out[r.Name] = r
	}
	return out
}

func run(ctx context.Context, task Task) (res Result) {
	res.Name = task.Name
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	res.Data, res.Err = task.Execute(ctx)
	return res
}
