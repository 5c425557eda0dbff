package action

import (
	"context"

	"github.com/ros2go/rclgo/internal/dds"
	"github.com/ros2go/rclgo/internal/metrics"
	"github.com/ros2go/rclgo/names"
	"github.com/ros2go/rclgo/rerrors"
	"github.com/ros2go/rclgo/rmwid"
	"github.com/ros2go/rclgo/rtime"
	"github.com/ros2go/rclgo/service"
)

// Client is an action client: one service.Client per sub-service plus raw
// subscriptions on the feedback and status topics, generic over the goal,
// feedback, and result payload types.
type Client[G, F, R any] struct {
	goalClient   *service.Client[SendGoalRequest[G], SendGoalResponse]
	cancelClient *service.Client[CancelGoalRequest, CancelGoalResponse]
	resultClient *service.Client[GetResultRequest, GetResultResponse[R]]
	feedbackSub  *dds.Subscription[FeedbackMessage[F]]
	statusSub    *dds.Subscription[GoalStatusArray]
}

// NewClient builds an action Client for the action named actionName, owned
// by node, of action type typ, using mapping kind for its three services.
// m may be nil; if non-nil, every sub-service's writes are recorded against
// it under the "request" kind.
func NewClient[G, F, R any](p *dds.Participant, actionName names.Name, node names.NodeName, typ names.ActionTypeName, kind service.Kind, qos ClientQosPolicies, m *metrics.Metrics) *Client[G, F, R] {
	en := buildEntityNames(actionName, node, typ)
	goalReq, goalResp, cancelReq, cancelResp, resultReq, resultResp, feedback, status := createTopics(p, en, qos)

	goalClient := service.NewClient[SendGoalRequest[G], SendGoalResponse](p, goalReq, goalResp, kind)
	cancelClient := service.NewClient[CancelGoalRequest, CancelGoalResponse](p, cancelReq, cancelResp, kind)
	resultClient := service.NewClient[GetResultRequest, GetResultResponse[R]](p, resultReq, resultResp, kind)
	goalClient.SetMetrics(m, "request")
	cancelClient.SetMetrics(m, "request")
	resultClient.SetMetrics(m, "request")

	return &Client[G, F, R]{
		goalClient:   goalClient,
		cancelClient: cancelClient,
		resultClient: resultClient,
		feedbackSub:  dds.CreateSubscription[FeedbackMessage[F]](p, feedback),
		statusSub:    dds.CreateSubscription[GoalStatusArray](p, status),
	}
}

// SendGoal mints a fresh GoalId, sends the send_goal request, and returns
// the id alongside the id of the underlying service call so the caller can
// await the accept/reject decision with AwaitGoalResponse.
func (c *Client[G, F, R]) SendGoal(goal G) (GoalId, rmwid.RmwRequestId, error) {
	goalID := NewGoalId()
	reqID, err := c.goalClient.SendRequest(SendGoalRequest[G]{GoalId: goalID, Goal: goal})
	if err != nil {
		return GoalIdZero, rmwid.RmwRequestId{}, err
	}
	return goalID, reqID, nil
}

// AwaitGoalResponse blocks until the server answers the send_goal request
// reqID with its accept/reject decision.
func (c *Client[G, F, R]) AwaitGoalResponse(ctx context.Context, reqID rmwid.RmwRequestId) (SendGoalResponse, error) {
	return c.goalClient.AsyncReceiveResponse(ctx, reqID)
}

// CancelGoal requests cancellation of one specific goal irrespective of
// when it was accepted.
func (c *Client[G, F, R]) CancelGoal(ctx context.Context, id GoalId) (CancelGoalResponse, error) {
	return c.cancelClient.AsyncCall(ctx, CancelGoalRequest{GoalInfo: GoalInfo{GoalId: id}})
}

// CancelGoalsBefore requests cancellation of every goal accepted at or
// before stamp.
func (c *Client[G, F, R]) CancelGoalsBefore(ctx context.Context, stamp rtime.Time) (CancelGoalResponse, error) {
	return c.cancelClient.AsyncCall(ctx, CancelGoalRequest{GoalInfo: GoalInfo{GoalId: GoalIdZero, Stamp: stamp}})
}

// CancelAllGoals requests cancellation of every goal the server is
// currently tracking.
func (c *Client[G, F, R]) CancelAllGoals(ctx context.Context) (CancelGoalResponse, error) {
	return c.cancelClient.AsyncCall(ctx, CancelGoalRequest{})
}

// GetResult requests the terminal result of id, blocking until the server
// answers (which it only does once the goal reaches a terminal state).
func (c *Client[G, F, R]) GetResult(ctx context.Context, id GoalId) (GetResultResponse[R], error) {
	return c.resultClient.AsyncCall(ctx, GetResultRequest{GoalId: id})
}

// ReceiveFeedback performs a non-blocking take of one feedback sample for
// id, skipping (and discarding) feedback for any other goal.
func (c *Client[G, F, R]) ReceiveFeedback(id GoalId) (F, bool) {
	for {
		msg, _, ok := c.feedbackSub.Take()
		if !ok {
			var zero F
			return zero, false
		}
		if msg.GoalId == id {
			return msg.Feedback, true
		}
	}
}

// AwaitFeedback blocks until feedback for id arrives or ctx is done.
func (c *Client[G, F, R]) AwaitFeedback(ctx context.Context, id GoalId) (F, error) {
	for {
		if fb, ok := c.ReceiveFeedback(id); ok {
			return fb, nil
		}
		if err := c.feedbackSub.Wait(ctx); err != nil {
			var zero F
			return zero, &rerrors.ReadError{Cause: err}
		}
	}
}

// ReceiveStatus performs a non-blocking take of the latest GoalStatusArray,
// draining any older samples still queued.
func (c *Client[G, F, R]) ReceiveStatus() (GoalStatusArray, bool) {
	var latest GoalStatusArray
	found := false
	for {
		arr, _, ok := c.statusSub.Take()
		if !ok {
			break
		}
		latest = arr
		found = true
	}
	return latest, found
}

// WriterGUIDs returns the GUIDs of every DataWriter this Client owns (the
// three request writers), for the owning Node to register.
func (c *Client[G, F, R]) WriterGUIDs() []dds.GUID {
	return []dds.GUID{
		c.goalClient.RequestWriterGUID(),
		c.cancelClient.RequestWriterGUID(),
		c.resultClient.RequestWriterGUID(),
	}
}

// ReaderGUIDs returns the GUIDs of every DataReader this Client owns (the
// three response readers plus the feedback and status subscriptions), for
// the owning Node to register.
func (c *Client[G, F, R]) ReaderGUIDs() []dds.GUID {
	return []dds.GUID{
		c.goalClient.ResponseReaderGUID(),
		c.cancelClient.ResponseReaderGUID(),
		c.resultClient.ResponseReaderGUID(),
		c.feedbackSub.GUID(),
		c.statusSub.GUID(),
	}
}

// Close releases every sub-entity this Client owns.
func (c *Client[G, F, R]) Close() {
	c.goalClient.Close()
	c.cancelClient.Close()
	c.resultClient.Close()
	c.feedbackSub.Close()
	c.statusSub.Close()
}
