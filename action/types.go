// Package action implements the ROS 2 action protocol on top of this
// library's service package: an action is three services (send_goal,
// cancel_goal, get_result) plus two topics (feedback, status) sharing one
// name prefix, coordinating a goal through the standard NEW/ACCEPTED/
// EXECUTING/CANCELING/terminal state machine.
package action

import (
	"github.com/google/uuid"

	"github.com/ros2go/rclgo/internal/dds"
	"github.com/ros2go/rclgo/rtime"
)

// GoalId is the 128-bit identifier a client mints for a new goal, matching
// unique_identifier_msgs/UUID on the wire.
type GoalId uuid.UUID

// GoalIdZero is the all-zero goal id used as a wildcard in CancelGoalRequest
// (cancel goals matching criteria other than a specific id).
var GoalIdZero = GoalId(uuid.Nil)

// NewGoalId mints a random (v4) goal id, as every action client does when
// starting a new goal.
func NewGoalId() GoalId { return GoalId(uuid.New()) }

func (g GoalId) IsZero() bool { return g == GoalIdZero }
func (g GoalId) String() string { return uuid.UUID(g).String() }

// GoalStatus is action_msgs/GoalStatus's status enum. Only goals that have
// been accepted ever carry one of these on the wire; NEW and REJECTED goals
// are never published in a GoalStatusArray.
type GoalStatus int32

const (
	StatusUnknown GoalStatus = iota
	StatusAccepted
	StatusExecuting
	StatusCanceling
	StatusSucceeded
	StatusCanceled
	StatusAborted
)

func (s GoalStatus) String() string {
	switch s {
	case StatusAccepted:
		return "ACCEPTED"
	case StatusExecuting:
		return "EXECUTING"
	case StatusCanceling:
		return "CANCELING"
	case StatusSucceeded:
		return "SUCCEEDED"
	case StatusCanceled:
		return "CANCELED"
	case StatusAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// GoalInfo identifies a goal and, in a cancel request, the cutoff time the
// request applies to.
type GoalInfo struct {
	GoalId GoalId
	Stamp  rtime.Time
}

// SendGoalRequest is the send_goal service's request, carrying the
// client-minted id and the opaque goal payload.
type SendGoalRequest[G any] struct {
	GoalId GoalId
	Goal   G
}

// SendGoalResponse is the send_goal service's response.
type SendGoalResponse struct {
	Accepted bool
	Stamp    rtime.Time
}

// Cancel-goal return codes, matching action_msgs/srv/CancelGoal's
// ERROR_* constants.
const (
	CancelErrorNone           uint8 = 0
	CancelErrorRejected       uint8 = 1
	CancelErrorUnknownGoalID  uint8 = 2
	CancelErrorGoalTerminated uint8 = 3
)

// CancelGoalRequest is the cancel_goal service's request. The combination
// of a zero or non-zero GoalId and a zero or non-zero Stamp selects one of
// four cancellation policies (see Server.ProcessCancelRequests).
type CancelGoalRequest struct {
	GoalInfo GoalInfo
}

// CancelGoalResponse is the cancel_goal service's response: a return code
// plus the GoalInfo of every goal the server agreed to start canceling.
type CancelGoalResponse struct {
	ReturnCode     uint8
	GoalsCanceling []GoalInfo
}

// GetResultRequest is the get_result service's request.
type GetResultRequest struct {
	GoalId GoalId
}

// GetResultResponse is the get_result service's response: the terminal
// status the goal reached and its result payload.
type GetResultResponse[R any] struct {
	Status GoalStatus
	Result R
}

// FeedbackMessage is one sample on the feedback topic.
type FeedbackMessage[F any] struct {
	GoalId   GoalId
	Feedback F
}

// GoalStatusEntry is one row of a GoalStatusArray.
type GoalStatusEntry struct {
	GoalInfo GoalInfo
	Status   GoalStatus
}

// GoalStatusArray is the full table of non-retired goals, published any
// time a goal transitions state.
type GoalStatusArray struct {
	StatusList []GoalStatusEntry
}

// ClientQosPolicies and ServerQosPolicies bundle the five DDS QoS profiles
// an action's five sub-entities need: one per service, one for the
// feedback topic, one for the status topic (status is always
// transient-local; the in-process dds package treats durability as
// informational and does not replay the table to late-joining clients).
type ClientQosPolicies struct {
	GoalService   dds.QosPolicies
	CancelService dds.QosPolicies
	ResultService dds.QosPolicies
	Feedback      dds.QosPolicies
	Status        dds.QosPolicies
}

type ServerQosPolicies = ClientQosPolicies

// DefaultQosPolicies matches the profile rclcpp/rclpy actions use: reliable
// services, a best-effort feedback topic, and a transient-local,
// keep-last(1) status topic.
func DefaultQosPolicies() ClientQosPolicies {
	statusQos := dds.DefaultPublisherQos
	statusQos.TransientLocal = true
	statusQos.KeepLast = 1
	return ClientQosPolicies{
		GoalService:   dds.DefaultPublisherQos,
		CancelService: dds.DefaultPublisherQos,
		ResultService: dds.DefaultPublisherQos,
		Feedback:      dds.QosPolicies{Reliable: false, KeepLast: 1},
		Status:        statusQos,
	}
}
