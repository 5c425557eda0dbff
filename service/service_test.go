package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ros2go/rclgo/internal/dds"
	"github.com/ros2go/rclgo/service"
)

type addTwoIntsRequest struct{ A, B int64 }
type addTwoIntsResponse struct{ Sum int64 }

func newTopics(p *dds.Participant) (reqTopic, respTopic dds.Topic) {
	reqTopic = p.CreateTopic("rq/add_two_ints/_request", "example_interfaces::srv::dds_::AddTwoInts_Request_", dds.DefaultSubscriptionQos)
	respTopic = p.CreateTopic("rr/add_two_ints/_response", "example_interfaces::srv::dds_::AddTwoInts_Response_", dds.DefaultPublisherQos)
	return
}

func TestEnhancedMappingAddTwoInts(t *testing.T) {
	p := dds.NewParticipant(0)
	reqTopic, respTopic := newTopics(p)

	client := service.NewClient[addTwoIntsRequest, addTwoIntsResponse](p, reqTopic, respTopic, service.Enhanced)
	server := service.NewServer[addTwoIntsRequest, addTwoIntsResponse](p, reqTopic, respTopic, service.Enhanced)

	reqID, err := client.SendRequest(addTwoIntsRequest{A: 2, B: 3})
	require.NoError(t, err)

	srvID, req, ok := server.ReceiveRequest()
	require.True(t, ok)
	assert.Equal(t, reqID, srvID)
	assert.Equal(t, int64(5), req.A+req.B)

	require.NoError(t, server.SendResponse(srvID, addTwoIntsResponse{Sum: req.A + req.B}))

	gotID, resp, ok := client.ReceiveResponse()
	require.True(t, ok)
	assert.Equal(t, reqID, gotID)
	assert.Equal(t, int64(5), resp.Sum)
}

func TestCycloneMappingCorrelation(t *testing.T) {
	p := dds.NewParticipant(0)
	reqTopic, respTopic := newTopics(p)

	client := service.NewClient[addTwoIntsRequest, addTwoIntsResponse](p, reqTopic, respTopic, service.Cyclone)
	server := service.NewServer[addTwoIntsRequest, addTwoIntsResponse](p, reqTopic, respTopic, service.Cyclone)

	reqID, err := client.SendRequest(addTwoIntsRequest{A: 2, B: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(1), reqID.SequenceNumber, "first Cyclone request must use sequence number 1")
	assert.Equal(t, client.RequestWriterGUID(), reqID.WriterGUID)

	srvID, _, ok := server.ReceiveRequest()
	require.True(t, ok)
	assert.Equal(t, reqID, srvID)

	require.NoError(t, server.SendResponse(srvID, addTwoIntsResponse{Sum: 5}))

	gotID, resp, ok := client.ReceiveResponse()
	require.True(t, ok)
	assert.Equal(t, reqID, gotID)
	assert.Equal(t, int64(5), resp.Sum)
}

func TestMismatchedResponseDoesNotConsumeWaiter(t *testing.T) {
	p := dds.NewParticipant(0)
	reqTopic, respTopic := newTopics(p)

	client := service.NewClient[addTwoIntsRequest, addTwoIntsResponse](p, reqTopic, respTopic, service.Enhanced)
	server := service.NewServer[addTwoIntsRequest, addTwoIntsResponse](p, reqTopic, respTopic, service.Enhanced)

	_, err := client.SendRequest(addTwoIntsRequest{A: 1, B: 1})
	require.NoError(t, err)
	id1, _, ok := server.ReceiveRequest()
	require.True(t, ok)

	_, err = client.SendRequest(addTwoIntsRequest{A: 2, B: 2})
	require.NoError(t, err)
	id2, _, ok := server.ReceiveRequest()
	require.True(t, ok)

	// Respond out of order: id2 first, then id1.
	require.NoError(t, server.SendResponse(id2, addTwoIntsResponse{Sum: 4}))
	require.NoError(t, server.SendResponse(id1, addTwoIntsResponse{Sum: 2}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := client.AsyncReceiveResponse(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Sum, "a mismatched id2 response must not end the wait on id1")
}

func TestWaitForServiceCompletesOnceMatched(t *testing.T) {
	p := dds.NewParticipant(0)
	reqTopic, respTopic := newTopics(p)

	client := service.NewClient[addTwoIntsRequest, addTwoIntsResponse](p, reqTopic, respTopic, service.Enhanced)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.WaitForService(ctx) }()

	server := service.NewServer[addTwoIntsRequest, addTwoIntsResponse](p, reqTopic, respTopic, service.Enhanced)
	_ = server

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait_for_service did not complete once a server matched")
	}
}
