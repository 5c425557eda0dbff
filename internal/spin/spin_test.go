package spin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGroupRunUntilWithNoTasksReturnsWhenCancelled(t *testing.T) {
	var g Group
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.RunUntil(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunUntil did not return after cancellation")
	}
}

func TestGroupRunUntilWaitsForAllTasksToExit(t *testing.T) {
	var g Group
	exited := make(chan int, 2)
	for i := 0; i < 2; i++ {
		i := i
		g.Add(func(ctx context.Context) {
			<-ctx.Done()
			exited <- i
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.RunUntil(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunUntil did not return after tasks were cancelled")
	}
	assert.Len(t, exited, 2)
}
