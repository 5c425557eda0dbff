package node

import (
	"sync"

	"github.com/ros2go/rclgo/gid"
	"github.com/ros2go/rclgo/internal/dds"
	"github.com/ros2go/rclgo/internal/log"
	"github.com/ros2go/rclgo/internal/metrics"
)

const (
	rosDiscoveryTopicName = "ros_discovery_info"
	rosDiscoveryTypeName  = "rmw_dds_common::msg::dds_::ParticipantEntitiesInfo_"

	parameterEventsTopicName = "rt/parameter_events"
	parameterEventsTypeName  = "rcl_interfaces::msg::dds_::ParameterEvent_"

	rosoutTopicName = "rt/rosout"
	rosoutTypeName  = "rcl_interfaces::msg::dds_::Log_"
)

// rosDiscoveryQos matches the recommended ros_discovery_info QoS: reliable,
// transient-local, keep-last(1).
var rosDiscoveryQos = dds.QosPolicies{Reliable: true, TransientLocal: true, KeepLast: 1}

// parameterEventsQos matches rt/parameter_events: reliable, transient-local,
// keep-last(1).
var parameterEventsQos = dds.QosPolicies{Reliable: true, TransientLocal: true, KeepLast: 1}

// rosoutQos matches rt/rosout: reliable, transient-local, keep-last(1),
// 10s lifespan.
var rosoutQos = dds.QosPolicies{Reliable: true, TransientLocal: true, KeepLast: 1, Lifespan: rosoutLifespan}

const rosoutLifespan = 10_000_000_000 // 10s in nanoseconds, matches the reference's Lifespan{duration: 10s}

// ContextOptions configures a Context's underlying DDS participant.
type ContextOptions struct {
	// DomainID selects the DDS domain, mirroring ROS_DOMAIN_ID (default 0).
	DomainID uint16
	// Logger receives diagnostic messages from the Context and the Nodes it
	// creates. Defaults to a discarding logger.
	Logger log.Logger
	// Metrics receives Prometheus counters/gauges for writes, discovery
	// broadcasts, and goal transitions across every Node this Context owns.
	// Defaults to an unregistered no-op set.
	Metrics *metrics.Metrics
}

// DefaultContextOptions returns the options a bare Context.New() uses:
// domain id 0, a discarding logger, and unregistered metrics.
func DefaultContextOptions() ContextOptions {
	return ContextOptions{DomainID: 0, Logger: log.Discard(), Metrics: metrics.NopMetrics()}
}

// Context is process-wide-ish shared state: one DDS participant, the
// ros_discovery_info publisher/subscription pair, the parameter-event and
// rosout topic handles every Node shares, and the map of locally owned
// nodes that backs the broadcast ParticipantEntitiesInfo.
type Context struct {
	opts        ContextOptions
	participant *dds.Participant
	log         log.Logger
	metrics     *metrics.Metrics

	discoveryPub *dds.Publisher[ParticipantEntitiesInfo]
	discoverySub *dds.Subscription[ParticipantEntitiesInfo]

	parameterEventsTopic dds.Topic
	rosoutTopic          dds.Topic

	mu         sync.Mutex
	localNodes map[string]NodeEntitiesInfo
	closed     bool
}

// New creates a Context with default options (domain id 0).
func New() *Context {
	return NewWithOptions(DefaultContextOptions())
}

// NewWithOptions creates a Context against the given options, standing up
// the ros_discovery_info publisher/subscription and the parameter-event and
// rosout topic handles every Node built from it will share.
func NewWithOptions(opts ContextOptions) *Context {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NopMetrics()
	}

	p := dds.NewParticipant(opts.DomainID)
	discoveryTopic := p.CreateTopic(rosDiscoveryTopicName, rosDiscoveryTypeName, rosDiscoveryQos)

	c := &Context{
		opts:                 opts,
		participant:          p,
		log:                  opts.Logger.WithPrefix("context"),
		metrics:              opts.Metrics,
		discoveryPub:         dds.CreatePublisher[ParticipantEntitiesInfo](p, discoveryTopic),
		discoverySub:         dds.CreateSubscription[ParticipantEntitiesInfo](p, discoveryTopic),
		parameterEventsTopic: p.CreateTopic(parameterEventsTopicName, parameterEventsTypeName, parameterEventsQos),
		rosoutTopic:          p.CreateTopic(rosoutTopicName, rosoutTypeName, rosoutQos),
		localNodes:           make(map[string]NodeEntitiesInfo),
	}
	return c
}

// DomainID returns the DDS domain this Context's participant was created on.
func (c *Context) DomainID() uint16 { return c.participant.DomainID() }

// ParticipantGid returns the Gid of this Context's DDS participant.
func (c *Context) ParticipantGid() gid.Gid { return gid.FromGUID(c.participant.GUID()) }

// Participant returns the underlying DDS participant, used by Node to
// create entities directly.
func (c *Context) Participant() *dds.Participant { return c.participant }

// ParticipantEntitiesInfo returns the value currently broadcast over
// ros_discovery_info: this participant's Gid paired with every locally
// owned node's NodeEntitiesInfo.
func (c *Context) ParticipantEntitiesInfo() ParticipantEntitiesInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Context) snapshotLocked() ParticipantEntitiesInfo {
	nodes := make([]NodeEntitiesInfo, 0, len(c.localNodes))
	for _, n := range c.localNodes {
		nodes = append(nodes, n)
	}
	return ParticipantEntitiesInfo{Gid: gid.FromGUID(c.participant.GUID()), Nodes: nodes}
}

// updateNode inserts/replaces node's NodeEntitiesInfo (keyed by its full
// name) and broadcasts the new ParticipantEntitiesInfo. Every Node entity
// mutation funnels through here, matching ContextInner::update_node.
func (c *Context) updateNode(info NodeEntitiesInfo) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	// Every node also reads/writes the discovery topic itself (ROS
	// convention): fold those two GIDs in before storing.
	info.addReader(gid.FromGUID(c.discoverySub.GUID()))
	info.addWriter(gid.FromGUID(c.discoveryPub.GUID()))
	c.localNodes[info.FullName()] = info
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.broadcast(snapshot)
}

// removeNode drops fullName from the local-node map and broadcasts the
// updated ParticipantEntitiesInfo, used when a Node is closed.
func (c *Context) removeNode(fullName string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.localNodes, fullName)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.broadcast(snapshot)
}

func (c *Context) broadcast(pei ParticipantEntitiesInfo) {
	if err := c.discoveryPub.Write(pei); err != nil {
		c.log.Errorf("ros_discovery_info publish failed: %v", err)
		return
	}
	c.metrics.DiscoveryBroadcasts.Inc()
}

// Close clears every locally owned node, emits one final broadcast so peers
// remove this participant's nodes, and releases the discovery entities.
// Matches ContextInner's Drop: clear local_nodes, then broadcast once more.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.localNodes = make(map[string]NodeEntitiesInfo)
	c.closed = true
	snapshot := ParticipantEntitiesInfo{Gid: gid.FromGUID(c.participant.GUID())}
	c.mu.Unlock()

	c.broadcast(snapshot)
	c.discoveryPub.Close()
	c.discoverySub.Close()
}
