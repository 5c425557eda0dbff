// Package spin provides the goroutine-lifecycle manager behind each Node's
// background spin task: the parameter-service dispatch loop, the /clock
// feed when use_sim_time is set, and any other driver that must run for the
// duration of the Node and stop cleanly when it is torn down.
package spin

import (
	"context"
	"sync"
)

// Group manages a set of goroutines with a shared lifetime. The zero value
// is ready to use. Unlike a plain context.Context cancellation, Group
// guarantees every registered task has actually returned before RunUntil's
// caller regains control, so a Node can safely drop its last reader/writer
// handles right after spin exits.
type Group struct {
	mu    sync.Mutex
	tasks []func(context.Context)
}

// Add registers a task to run in its own goroutine once RunUntil is
// called. The context passed to the task is cancelled when the Group's
// RunUntil context is done; the task must return promptly afterward. Add
// must be called before RunUntil.
func (g *Group) Add(task func(context.Context)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tasks = append(g.tasks, task)
}

// RunUntil starts every registered task and blocks until ctx is done AND
// every task has returned. It is safe to call at most once per Group.
func (g *Group) RunUntil(ctx context.Context) {
	g.mu.Lock()
	tasks := g.tasks
	g.mu.Unlock()

	if len(tasks) == 0 {
		<-ctx.Done()
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, task := range tasks {
		go func(task func(context.Context)) {
			defer wg.Done()
			task(ctx)
		}(task)
	}
	<-ctx.Done()
	wg.Wait()
}
