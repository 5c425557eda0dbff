package action

import (
	"github.com/ros2go/rclgo/internal/dds"
	"github.com/ros2go/rclgo/names"
)

// entityNames derives the DDS topic/type names for an action's five
// sub-entities from its base Name, owning node, and ActionTypeName,
// following the same "_action/<sub-entity>" convention rclcpp/rclpy use.
type entityNames struct {
	goalReq, goalResp     string
	goalReqType, goalRespType string

	cancelReq, cancelResp string
	cancelReqType, cancelRespType string

	resultReq, resultResp string
	resultReqType, resultRespType string

	feedback     string
	feedbackType string

	status     string
	statusType string
}

func buildEntityNames(actionName names.Name, node names.NodeName, typ names.ActionTypeName) entityNames {
	goalSrv := actionName.Push("_action").Push("send_goal")
	cancelSrv := actionName.Push("_action").Push("cancel_goal")
	resultSrv := actionName.Push("_action").Push("get_result")
	feedbackTopic := actionName.Push("_action").Push("feedback")
	statusTopic := actionName.Push("_action").Push("status")

	goalSrvType := typ.DDSActionService("_SendGoal")
	cancelSrvType := typ.DDSActionService("_CancelGoal")
	resultSrvType := typ.DDSActionService("_GetResult")
	feedbackMsgType := typ.DDSActionTopic("_FeedbackMessage")
	statusMsgType := typ.DDSActionTopic("_GoalStatusArray")

	return entityNames{
		goalReq:  goalSrv.ToDDSName("rq", node, "Request"),
		goalResp: goalSrv.ToDDSName("rr", node, "Reply"),
		goalReqType:  goalSrvType.DDSRequestType(),
		goalRespType: goalSrvType.DDSResponseType(),

		cancelReq:  cancelSrv.ToDDSName("rq", node, "Request"),
		cancelResp: cancelSrv.ToDDSName("rr", node, "Reply"),
		cancelReqType:  cancelSrvType.DDSRequestType(),
		cancelRespType: cancelSrvType.DDSResponseType(),

		resultReq:  resultSrv.ToDDSName("rq", node, "Request"),
		resultResp: resultSrv.ToDDSName("rr", node, "Reply"),
		resultReqType:  resultSrvType.DDSRequestType(),
		resultRespType: resultSrvType.DDSResponseType(),

		feedback:     feedbackTopic.ToDDSName("rt", node, ""),
		feedbackType: feedbackMsgType.DDSMsgType(),

		status:     statusTopic.ToDDSName("rt", node, ""),
		statusType: statusMsgType.DDSMsgType(),
	}
}

func createTopics(p *dds.Participant, en entityNames, qos ClientQosPolicies) (
	goalReq, goalResp, cancelReq, cancelResp, resultReq, resultResp, feedback, status dds.Topic,
) {
	goalReq = p.CreateTopic(en.goalReq, en.goalReqType, qos.GoalService)
	goalResp = p.CreateTopic(en.goalResp, en.goalRespType, qos.GoalService)
	cancelReq = p.CreateTopic(en.cancelReq, en.cancelReqType, qos.CancelService)
	cancelResp = p.CreateTopic(en.cancelResp, en.cancelRespType, qos.CancelService)
	resultReq = p.CreateTopic(en.resultReq, en.resultReqType, qos.ResultService)
	resultResp = p.CreateTopic(en.resultResp, en.resultRespType, qos.ResultService)
	feedback = p.CreateTopic(en.feedback, en.feedbackType, qos.Feedback)
	status = p.CreateTopic(en.status, en.statusType, qos.Status)
	return
}
