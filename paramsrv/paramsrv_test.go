package paramsrv_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ros2go/rclgo/internal/dds"
	"github.com/ros2go/rclgo/internal/metrics"
	"github.com/ros2go/rclgo/names"
	"github.com/ros2go/rclgo/paramsrv"
	"github.com/ros2go/rclgo/service"
)

func TestStoreSetGetListRoundTrip(t *testing.T) {
	store := paramsrv.NewStore(nil)

	assert.False(t, store.UseSimTime())

	_, wasNew := store.Set("robot.max_speed", paramsrv.DoubleParam(2.5))
	assert.True(t, wasNew)

	v, ok := store.Get("robot.max_speed")
	require.True(t, ok)
	assert.Equal(t, paramsrv.TypeDouble, v.Type)
	assert.Equal(t, 2.5, v.DoubleValue)

	_, wasNew = store.Set("robot.max_speed", paramsrv.DoubleParam(3.0))
	assert.False(t, wasNew)

	names := store.List([]string{"robot"})
	assert.Contains(t, names, "robot.max_speed")
	assert.NotContains(t, names, "use_sim_time")

	assert.True(t, store.Delete("robot.max_speed"))
	_, ok = store.Get("robot.max_speed")
	assert.False(t, ok)
}

func TestStoreSeedsUseSimTimeOverride(t *testing.T) {
	store := paramsrv.NewStore([]paramsrv.Parameter{
		{Name: "use_sim_time", Value: paramsrv.BoolParam(true)},
	})
	assert.True(t, store.UseSimTime())
}

type paramServiceFixture struct {
	store    *paramsrv.Store
	services *paramsrv.Services

	list     *service.Client[paramsrv.ListParametersRequest, paramsrv.ListParametersResponse]
	get      *service.Client[paramsrv.GetParametersRequest, paramsrv.GetParametersResponse]
	set      *service.Client[paramsrv.SetParametersRequest, paramsrv.SetParametersResponse]
	describe *service.Client[paramsrv.DescribeParametersRequest, paramsrv.DescribeParametersResponse]

	events *dds.Subscription[paramsrv.ParameterEvent]
}

func newParamServiceFixture(t *testing.T) *paramServiceFixture {
	t.Helper()
	p := dds.NewParticipant(0)
	node, err := names.NewNodeName("/", "param_node")
	require.NoError(t, err)

	eventsTopic := p.CreateTopic("rt/parameter_events", "rcl_interfaces::msg::dds_::ParameterEvent_", dds.DefaultPublisherQos)
	eventsPub := dds.CreatePublisher[paramsrv.ParameterEvent](p, eventsTopic)
	eventsSub := dds.CreateSubscription[paramsrv.ParameterEvent](p, eventsTopic)

	store := paramsrv.NewStore([]paramsrv.Parameter{
		{Name: "robot.name", Value: paramsrv.StringParam("r2d2")},
	})
	services := paramsrv.NewServices(p, node, node.FullyQualifiedName(), store, eventsPub, service.Enhanced, metrics.NopMetrics())

	const rclInterfacesSrvType = "rcl_interfaces::srv::dds_::"
	mkClient := func(base, reqType, respType string) (req, resp dds.Topic) {
		n, err := names.NewName("", base)
		require.NoError(t, err)
		req = p.CreateTopic(n.ToDDSName("rq", node, "Request"), rclInterfacesSrvType+reqType, dds.DefaultPublisherQos)
		resp = p.CreateTopic(n.ToDDSName("rr", node, "Reply"), rclInterfacesSrvType+respType, dds.DefaultPublisherQos)
		return req, resp
	}

	listReq, listResp := mkClient("list_parameters", "ListParameters_Request_", "ListParameters_Response_")
	getReq, getResp := mkClient("get_parameters", "GetParameters_Request_", "GetParameters_Response_")
	setReq, setResp := mkClient("set_parameters", "SetParameters_Request_", "SetParameters_Response_")
	describeReq, describeResp := mkClient("describe_parameters", "DescribeParameters_Request_", "DescribeParameters_Response_")

	return &paramServiceFixture{
		store:    store,
		services: services,
		list:     service.NewClient[paramsrv.ListParametersRequest, paramsrv.ListParametersResponse](p, listReq, listResp, service.Enhanced),
		get:      service.NewClient[paramsrv.GetParametersRequest, paramsrv.GetParametersResponse](p, getReq, getResp, service.Enhanced),
		set:      service.NewClient[paramsrv.SetParametersRequest, paramsrv.SetParametersResponse](p, setReq, setResp, service.Enhanced),
		describe: service.NewClient[paramsrv.DescribeParametersRequest, paramsrv.DescribeParametersResponse](p, describeReq, describeResp, service.Enhanced),
		events:   eventsSub,
	}
}

func TestParameterServicesEndToEnd(t *testing.T) {
	f := newParamServiceFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	runCtx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.services.Run(runCtx)
		close(done)
	}()
	defer func() {
		stop()
		<-done
	}()

	listResp, err := f.list.AsyncCall(ctx, paramsrv.ListParametersRequest{})
	require.NoError(t, err)
	assert.Contains(t, listResp.Result.Names, "robot.name")

	getResp, err := f.get.AsyncCall(ctx, paramsrv.GetParametersRequest{Names: []string{"robot.name"}})
	require.NoError(t, err)
	require.Len(t, getResp.Values, 1)
	assert.Equal(t, "r2d2", getResp.Values[0].StringValue)

	setResp, err := f.set.AsyncCall(ctx, paramsrv.SetParametersRequest{
		Parameters: []paramsrv.Parameter{{Name: "robot.max_speed", Value: paramsrv.DoubleParam(1.5)}},
	})
	require.NoError(t, err)
	require.Len(t, setResp.Results, 1)
	assert.True(t, setResp.Results[0].Successful)

	v, ok := f.store.Get("robot.max_speed")
	require.True(t, ok)
	assert.Equal(t, 1.5, v.DoubleValue)

	describeResp, err := f.describe.AsyncCall(ctx, paramsrv.DescribeParametersRequest{Names: []string{"robot.max_speed"}})
	require.NoError(t, err)
	require.Len(t, describeResp.Descriptors, 1)
	assert.Equal(t, paramsrv.TypeDouble, describeResp.Descriptors[0].Type)

	require.NoError(t, f.events.Wait(ctx))
	event, _, ok := f.events.Take()
	require.True(t, ok)
	require.Len(t, event.NewParameters, 1)
	assert.Equal(t, "robot.max_speed", event.NewParameters[0].Name)
}
