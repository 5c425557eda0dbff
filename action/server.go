package action

import (
	"context"
	"sync"

	"github.com/ros2go/rclgo/internal/dds"
	"github.com/ros2go/rclgo/internal/metrics"
	"github.com/ros2go/rclgo/names"
	"github.com/ros2go/rclgo/rmwid"
	"github.com/ros2go/rclgo/rtime"
	"github.com/ros2go/rclgo/service"
)

// Server is an action server: the raw send_goal/cancel_goal/get_result
// service.Server endpoints plus the feedback/status publishers, wired
// together through a goalTable that funnels every state change through one
// function and republishes the status array on every transition.
//
// Server itself never decides whether to accept a goal, when execution
// starts, or how it ends: those are application decisions, made by calling
// AcceptGoal/RejectGoal/StartExecuting/Succeed/Abort. Server's own
// responsibility is the plumbing all actions share: goal id bookkeeping,
// the cancel-request policy table, result caching and retirement, and
// keeping the status array current.
type Server[G, F, R any] struct {
	goalServer   *service.Server[SendGoalRequest[G], SendGoalResponse]
	cancelServer *service.Server[CancelGoalRequest, CancelGoalResponse]
	resultServer *service.Server[GetResultRequest, GetResultResponse[R]]
	feedbackPub  *dds.Publisher[FeedbackMessage[F]]
	statusPub    *dds.Publisher[GoalStatusArray]

	goals *goalTable[R]

	pendingMu      sync.Mutex
	pendingResults map[GoalId][]rmwid.RmwRequestId

	metrics *metrics.Metrics
}

// NewServer builds an action Server for the action named actionName, owned
// by node, of action type typ. m may be nil; if non-nil, every sub-service's
// writes, plus feedback and status publishes, are recorded against it.
func NewServer[G, F, R any](p *dds.Participant, actionName names.Name, node names.NodeName, typ names.ActionTypeName, kind service.Kind, qos ServerQosPolicies, m *metrics.Metrics) *Server[G, F, R] {
	en := buildEntityNames(actionName, node, typ)
	goalReq, goalResp, cancelReq, cancelResp, resultReq, resultResp, feedback, status := createTopics(p, en, qos)

	goalServer := service.NewServer[SendGoalRequest[G], SendGoalResponse](p, goalReq, goalResp, kind)
	cancelServer := service.NewServer[CancelGoalRequest, CancelGoalResponse](p, cancelReq, cancelResp, kind)
	resultServer := service.NewServer[GetResultRequest, GetResultResponse[R]](p, resultReq, resultResp, kind)
	goalServer.SetMetrics(m, "response")
	cancelServer.SetMetrics(m, "response")
	resultServer.SetMetrics(m, "response")

	return &Server[G, F, R]{
		goalServer:     goalServer,
		cancelServer:   cancelServer,
		resultServer:   resultServer,
		feedbackPub:    dds.CreatePublisher[FeedbackMessage[F]](p, feedback),
		statusPub:      dds.CreatePublisher[GoalStatusArray](p, status),
		goals:          newGoalTable[R](m),
		pendingResults: make(map[GoalId][]rmwid.RmwRequestId),
		metrics:        m,
	}
}

// NewGoal is a pending send_goal request the application must answer with
// AcceptGoal or RejectGoal.
type NewGoal[G any] struct {
	ReqID  rmwid.RmwRequestId
	GoalId GoalId
	Goal   G
}

// ReceiveNewGoal performs a non-blocking take of one send_goal request,
// recording it in the goal table in the NEW state.
func (s *Server[G, F, R]) ReceiveNewGoal() (NewGoal[G], bool) {
	reqID, req, ok := s.goalServer.ReceiveRequest()
	if !ok {
		return NewGoal[G]{}, false
	}
	s.goals.insert(req.GoalId, rtime.FromROSTime(rtime.Now()))
	return NewGoal[G]{ReqID: reqID, GoalId: req.GoalId, Goal: req.Goal}, true
}

// AsyncReceiveNewGoal blocks until a send_goal request is available or ctx
// is done.
func (s *Server[G, F, R]) AsyncReceiveNewGoal(ctx context.Context) (NewGoal[G], error) {
	reqID, req, err := s.goalServer.AsyncReceiveRequest(ctx)
	if err != nil {
		return NewGoal[G]{}, err
	}
	s.goals.insert(req.GoalId, rtime.FromROSTime(rtime.Now()))
	return NewGoal[G]{ReqID: reqID, GoalId: req.GoalId, Goal: req.Goal}, nil
}

// AcceptGoal transitions a NEW goal to ACCEPTED, answers the pending
// send_goal request, and republishes the status array.
func (s *Server[G, F, R]) AcceptGoal(g NewGoal[G]) error {
	if err := s.goals.transition(g.GoalId, stateAccepted); err != nil {
		return err
	}
	now := rtime.FromROSTime(rtime.Now())
	if err := s.goalServer.SendResponse(g.ReqID, SendGoalResponse{Accepted: true, Stamp: now}); err != nil {
		return err
	}
	return s.publishStatus()
}

// RejectGoal answers the pending send_goal request with Accepted=false and
// marks the goal REJECTED in the table: a rejected goal never appears on the
// wire.
func (s *Server[G, F, R]) RejectGoal(g NewGoal[G]) error {
	_ = s.goals.transition(g.GoalId, stateRejected)
	now := rtime.FromROSTime(rtime.Now())
	return s.goalServer.SendResponse(g.ReqID, SendGoalResponse{Accepted: false, Stamp: now})
}

// StartExecuting transitions an ACCEPTED goal to EXECUTING.
func (s *Server[G, F, R]) StartExecuting(id GoalId) error {
	if err := s.goals.transition(id, stateExecuting); err != nil {
		return err
	}
	return s.publishStatus()
}

// PublishFeedback writes one feedback sample for id. Callers are expected
// to only do this while id is EXECUTING, but Server does not enforce it:
// feedback for a goal that is no longer executing is merely stale, not
// unsafe.
func (s *Server[G, F, R]) PublishFeedback(id GoalId, feedback F) error {
	err := s.feedbackPub.Write(FeedbackMessage[F]{GoalId: id, Feedback: feedback})
	s.metrics.RecordWrite("feedback", false, err)
	return err
}

// Succeed transitions an EXECUTING goal to SUCCEEDED, caches result, and
// answers any get_result requests already waiting on it.
func (s *Server[G, F, R]) Succeed(id GoalId, result R) error {
	return s.finishGoal(id, stateSucceeded, result)
}

// Abort transitions an ACCEPTED, EXECUTING, or CANCELING goal to ABORTED.
func (s *Server[G, F, R]) Abort(id GoalId, result R) error {
	return s.finishGoal(id, stateAborted, result)
}

// Cancel transitions a CANCELING goal to CANCELED, the only way a
// cancellation actually completes.
func (s *Server[G, F, R]) Cancel(id GoalId, result R) error {
	return s.finishGoal(id, stateCanceled, result)
}

func (s *Server[G, F, R]) finishGoal(id GoalId, terminal internalState, result R) error {
	if err := s.goals.transition(id, terminal); err != nil {
		return err
	}
	_ = s.goals.setResult(id, result)
	if err := s.publishStatus(); err != nil {
		return err
	}
	return s.answerPendingResults(id)
}

func (s *Server[G, F, R]) answerPendingResults(id GoalId) error {
	s.pendingMu.Lock()
	waiters := s.pendingResults[id]
	delete(s.pendingResults, id)
	s.pendingMu.Unlock()

	if len(waiters) == 0 {
		return nil
	}
	e, ok := s.goals.get(id)
	if !ok {
		return errUnknownGoal
	}
	ws, _ := e.state.wireStatus()
	for _, reqID := range waiters {
		if err := s.resultServer.SendResponse(reqID, GetResultResponse[R]{Status: ws, Result: e.result}); err != nil {
			return err
		}
	}
	s.goals.markResultRead(id)
	return s.publishStatus()
}

// ProcessCancelRequests performs a non-blocking take of one cancel_goal
// request, applies the cancel-request policy table, transitions every
// matched goal to CANCELING, and answers the request.
func (s *Server[G, F, R]) ProcessCancelRequests() (bool, error) {
	reqID, req, ok := s.cancelServer.ReceiveRequest()
	if !ok {
		return false, nil
	}
	return true, s.handleCancelRequest(reqID, req)
}

func (s *Server[G, F, R]) handleCancelRequest(reqID rmwid.RmwRequestId, req CancelGoalRequest) error {
	if !req.GoalInfo.GoalId.IsZero() {
		if e, found := s.goals.get(req.GoalInfo.GoalId); !found {
			return s.cancelServer.SendResponse(reqID, CancelGoalResponse{ReturnCode: CancelErrorUnknownGoalID})
		} else if e.state.isTerminal() {
			return s.cancelServer.SendResponse(reqID, CancelGoalResponse{ReturnCode: CancelErrorGoalTerminated})
		}
	}

	moved := s.goals.processCancel(req)
	if err := s.publishStatus(); err != nil {
		return err
	}
	return s.cancelServer.SendResponse(reqID, CancelGoalResponse{ReturnCode: CancelErrorNone, GoalsCanceling: moved})
}

// AsyncProcessCancelRequests blocks, processing one cancel_goal request at
// a time, until ctx is done.
func (s *Server[G, F, R]) AsyncProcessCancelRequests(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		reqID, req, err := s.cancelServer.AsyncReceiveRequest(ctx)
		if err != nil {
			return err
		}
		if err := s.handleCancelRequest(reqID, req); err != nil {
			return err
		}
	}
}

// ProcessResultRequests performs a non-blocking take of one get_result
// request: if the goal is already terminal, answers it immediately and
// retires the goal on the next status publish; otherwise queues the
// request to be answered once the goal finishes.
func (s *Server[G, F, R]) ProcessResultRequests() (bool, error) {
	reqID, req, ok := s.resultServer.ReceiveRequest()
	if !ok {
		return false, nil
	}
	return true, s.handleResultRequest(reqID, req)
}

func (s *Server[G, F, R]) handleResultRequest(reqID rmwid.RmwRequestId, req GetResultRequest) error {
	e, found := s.goals.get(req.GoalId)
	if !found {
		return nil
	}
	if !e.state.isTerminal() {
		s.pendingMu.Lock()
		s.pendingResults[req.GoalId] = append(s.pendingResults[req.GoalId], reqID)
		s.pendingMu.Unlock()
		return nil
	}

	ws, _ := e.state.wireStatus()
	if err := s.resultServer.SendResponse(reqID, GetResultResponse[R]{Status: ws, Result: e.result}); err != nil {
		return err
	}
	s.goals.markResultRead(req.GoalId)
	return s.publishStatus()
}

// AsyncProcessResultRequests blocks, processing one get_result request at a
// time, until ctx is done.
func (s *Server[G, F, R]) AsyncProcessResultRequests(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		reqID, req, err := s.resultServer.AsyncReceiveRequest(ctx)
		if err != nil {
			return err
		}
		if err := s.handleResultRequest(reqID, req); err != nil {
			return err
		}
	}
}

func (s *Server[G, F, R]) publishStatus() error {
	err := s.statusPub.Write(s.goals.snapshotStatus())
	s.metrics.RecordWrite("status", false, err)
	return err
}

// ReaderGUIDs returns the GUIDs of every DataReader this Server owns (the
// three request readers), for the owning Node to register.
func (s *Server[G, F, R]) ReaderGUIDs() []dds.GUID {
	return []dds.GUID{
		s.goalServer.RequestReaderGUID(),
		s.cancelServer.RequestReaderGUID(),
		s.resultServer.RequestReaderGUID(),
	}
}

// WriterGUIDs returns the GUIDs of every DataWriter this Server owns (the
// three response writers plus the feedback and status publishers), for the
// owning Node to register.
func (s *Server[G, F, R]) WriterGUIDs() []dds.GUID {
	return []dds.GUID{
		s.goalServer.ResponseWriterGUID(),
		s.cancelServer.ResponseWriterGUID(),
		s.resultServer.ResponseWriterGUID(),
		s.feedbackPub.GUID(),
		s.statusPub.GUID(),
	}
}

// Close releases every sub-entity this Server owns.
func (s *Server[G, F, R]) Close() {
	s.goalServer.Close()
	s.cancelServer.Close()
	s.resultServer.Close()
	s.feedbackPub.Close()
	s.statusPub.Close()
}
