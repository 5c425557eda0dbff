package action_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ros2go/rclgo/action"
	"github.com/ros2go/rclgo/internal/dds"
	"github.com/ros2go/rclgo/internal/metrics"
	"github.com/ros2go/rclgo/names"
	"github.com/ros2go/rclgo/service"
)

type fibonacciGoal struct{ Order int32 }
type fibonacciFeedback struct{ PartialSequence []int32 }
type fibonacciResult struct{ Sequence []int32 }

func newFibonacciEntities(t *testing.T) (*action.Client[fibonacciGoal, fibonacciFeedback, fibonacciResult], *action.Server[fibonacciGoal, fibonacciFeedback, fibonacciResult]) {
	t.Helper()
	p := dds.NewParticipant(0)
	node, err := names.NewNodeName("/", "fibonacci_node")
	require.NoError(t, err)
	actionName, err := names.NewName("/", "fibonacci")
	require.NoError(t, err)
	typ := names.NewActionTypeName("example_interfaces", "Fibonacci")
	qos := action.DefaultQosPolicies()

	client := action.NewClient[fibonacciGoal, fibonacciFeedback, fibonacciResult](p, actionName, node, typ, service.Enhanced, qos, metrics.NopMetrics())
	server := action.NewServer[fibonacciGoal, fibonacciFeedback, fibonacciResult](p, actionName, node, typ, service.Enhanced, qos, metrics.NopMetrics())
	return client, server
}

func TestGoalAcceptedExecutesAndSucceeds(t *testing.T) {
	client, server := newFibonacciEntities(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	goalID, reqID, err := client.SendGoal(fibonacciGoal{Order: 5})
	require.NoError(t, err)

	newGoal, err := server.AsyncReceiveNewGoal(ctx)
	require.NoError(t, err)
	assert.Equal(t, goalID, newGoal.GoalId)
	assert.Equal(t, int32(5), newGoal.Goal.Order)

	require.NoError(t, server.AcceptGoal(newGoal))

	resp, err := client.AwaitGoalResponse(ctx, reqID)
	require.NoError(t, err)
	assert.True(t, resp.Accepted)

	require.NoError(t, server.StartExecuting(newGoal.GoalId))
	require.NoError(t, server.PublishFeedback(newGoal.GoalId, fibonacciFeedback{PartialSequence: []int32{0, 1, 1}}))

	fb, err := client.AwaitFeedback(ctx, newGoal.GoalId)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 1}, fb.PartialSequence)

	require.NoError(t, server.Succeed(newGoal.GoalId, fibonacciResult{Sequence: []int32{0, 1, 1, 2, 3}}))

	go func() { _ = server.AsyncProcessResultRequests(ctx) }()
	result, err := client.GetResult(ctx, newGoal.GoalId)
	require.NoError(t, err)
	assert.Equal(t, action.StatusSucceeded, result.Status)
	assert.Equal(t, []int32{0, 1, 1, 2, 3}, result.Result.Sequence)
}

func TestRejectedGoalNeverAppearsInStatus(t *testing.T) {
	client, server := newFibonacciEntities(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, reqID, err := client.SendGoal(fibonacciGoal{Order: -1})
	require.NoError(t, err)

	newGoal, err := server.AsyncReceiveNewGoal(ctx)
	require.NoError(t, err)

	require.NoError(t, server.RejectGoal(newGoal))

	resp, err := client.AwaitGoalResponse(ctx, reqID)
	require.NoError(t, err)
	assert.False(t, resp.Accepted)

	arr, ok := client.ReceiveStatus()
	if ok {
		for _, e := range arr.StatusList {
			assert.NotEqual(t, newGoal.GoalId, e.GoalInfo.GoalId, "a rejected goal must never be published in the status array")
		}
	}
}

func TestCancelSpecificGoalMovesItToCanceling(t *testing.T) {
	client, server := newFibonacciEntities(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	goalID, _, err := client.SendGoal(fibonacciGoal{Order: 10})
	require.NoError(t, err)

	newGoal, err := server.AsyncReceiveNewGoal(ctx)
	require.NoError(t, err)
	require.NoError(t, server.AcceptGoal(newGoal))
	require.NoError(t, server.StartExecuting(newGoal.GoalId))

	go func() {
		handled, err := server.ProcessCancelRequests()
		assert.NoError(t, err)
		assert.True(t, handled)
	}()

	cancelResp, err := client.CancelGoal(ctx, goalID)
	require.NoError(t, err)
	assert.Equal(t, action.CancelErrorNone, cancelResp.ReturnCode)
	require.Len(t, cancelResp.GoalsCanceling, 1)
	assert.Equal(t, goalID, cancelResp.GoalsCanceling[0].GoalId)

	require.NoError(t, server.Cancel(newGoal.GoalId, fibonacciResult{}))

	go func() { _ = server.AsyncProcessResultRequests(ctx) }()
	result, err := client.GetResult(ctx, newGoal.GoalId)
	require.NoError(t, err)
	assert.Equal(t, action.StatusCanceled, result.Status)
}

func TestCancelUnknownGoalIsRejected(t *testing.T) {
	client, server := newFibonacciEntities(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		handled, err := server.ProcessCancelRequests()
		assert.NoError(t, err)
		assert.True(t, handled)
	}()

	resp, err := client.CancelGoal(ctx, action.NewGoalId())
	require.NoError(t, err)
	assert.Equal(t, action.CancelErrorUnknownGoalID, resp.ReturnCode)
}

func TestGetResultBeforeTerminalBlocksUntilAnswered(t *testing.T) {
	client, server := newFibonacciEntities(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, _, err := client.SendGoal(fibonacciGoal{Order: 3})
	require.NoError(t, err)

	newGoal, err := server.AsyncReceiveNewGoal(ctx)
	require.NoError(t, err)
	require.NoError(t, server.AcceptGoal(newGoal))
	require.NoError(t, server.StartExecuting(newGoal.GoalId))

	resultCh := make(chan action.GetResultResponse[fibonacciResult], 1)
	errCh := make(chan error, 1)
	go func() {
		r, err := client.GetResult(ctx, newGoal.GoalId)
		resultCh <- r
		errCh <- err
	}()

	// Give the get_result request time to arrive and queue before the goal
	// finishes, proving the server answers it only once terminal.
	time.Sleep(20 * time.Millisecond)
	handled, err := server.ProcessResultRequests()
	require.NoError(t, err)
	assert.True(t, handled)

	require.NoError(t, server.Succeed(newGoal.GoalId, fibonacciResult{Sequence: []int32{0, 1, 1}}))

	select {
	case r := <-resultCh:
		require.NoError(t, <-errCh)
		assert.Equal(t, action.StatusSucceeded, r.Status)
	case <-time.After(time.Second):
		t.Fatal("get_result did not complete once the goal reached a terminal state")
	}
}
