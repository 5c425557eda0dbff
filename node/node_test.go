package node_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ros2go/rclgo/gid"
	"github.com/ros2go/rclgo/internal/dds"
	"github.com/ros2go/rclgo/names"
	"github.com/ros2go/rclgo/node"
	"github.com/ros2go/rclgo/paramsrv"
)

type stringMsg struct{ Data string }

func TestNodeRegistersAndRetractsDiscoveryEntities(t *testing.T) {
	ctx := node.New()
	defer ctx.Close()

	n, err := ctx.NewNode("/", "talker")
	require.NoError(t, err)

	topicName, err := names.NewName("", "chatter")
	require.NoError(t, err)
	msgType := names.NewMessageTypeName("std_msgs", "String")
	topic := n.CreateTopic(topicName, msgType, dds.DefaultPublisherQos)

	pub := node.CreatePublisher[stringMsg](n, topic)
	sub := node.CreateSubscription[stringMsg](n, topic)

	pei := ctx.ParticipantEntitiesInfo()
	require.Len(t, pei.Nodes, 1)
	info := pei.Nodes[0]
	assert.Equal(t, "talker", info.Name)
	assert.Contains(t, info.WriterGids, gid.FromGUID(pub.GUID()))
	assert.Contains(t, info.ReaderGids, gid.FromGUID(sub.GUID()))

	n.Close()

	pei = ctx.ParticipantEntitiesInfo()
	assert.Len(t, pei.Nodes, 0)
}

func TestNodeTimeNowFallsBackToSystemClockByDefault(t *testing.T) {
	ctx := node.New()
	defer ctx.Close()

	n, err := ctx.NewNode("/", "clock_user")
	require.NoError(t, err)
	defer n.Close()

	before := time.Now().UnixNano()
	now := n.TimeNow()
	after := time.Now().UnixNano()

	assert.GreaterOrEqual(t, now.NanosSinceEpoch, before)
	assert.LessOrEqual(t, now.NanosSinceEpoch, after)
}

func TestNodeUseSimTimeFallsBackToLastKnownTimeUntilClockArrives(t *testing.T) {
	ctx := node.New()
	defer ctx.Close()

	opts := node.DefaultNodeOptions()
	n, err := ctx.NewNodeWithOptions("/", "sim_user", opts)
	require.NoError(t, err)
	defer n.Close()

	// Prime lastSystemTime with a real reading before sim time is enabled.
	primed := n.TimeNow()

	require.NotNil(t, n.Parameters())
	_, _ = n.Parameters().Set("use_sim_time", paramsrv.BoolParam(true))

	stillFallback := n.TimeNow()
	assert.Equal(t, primed.NanosSinceEpoch, stillFallback.NanosSinceEpoch)
}

func TestNodeSpinCancelsCleanly(t *testing.T) {
	ctx := node.New()
	defer ctx.Close()

	n, err := ctx.NewNode("/", "spinner")
	require.NoError(t, err)
	defer n.Close()

	spinCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		n.Spin(spinCtx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Spin did not return after context cancellation")
	}
}
