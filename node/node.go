package node

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ros2go/rclgo/action"
	"github.com/ros2go/rclgo/gid"
	"github.com/ros2go/rclgo/internal/dds"
	"github.com/ros2go/rclgo/internal/log"
	"github.com/ros2go/rclgo/internal/metrics"
	"github.com/ros2go/rclgo/internal/spin"
	"github.com/ros2go/rclgo/names"
	"github.com/ros2go/rclgo/paramsrv"
	"github.com/ros2go/rclgo/rtime"
	"github.com/ros2go/rclgo/service"
)

// Log is rcl_interfaces/msg/Log, the rosout message type.
type Log struct {
	Stamp    rtime.Time
	Level    uint8
	Name     string
	Msg      string
	File     string
	Function string
	Line     uint32
}

// rosout levels, matching rcl_interfaces/msg/Log's severity constants.
const (
	LogDebug uint8 = 10
	LogInfo  uint8 = 20
	LogWarn  uint8 = 30
	LogError uint8 = 40
	LogFatal uint8 = 50
)

const clockTopicName = "rt/clock"
const clockTypeName = "builtin_interfaces::msg::dds_::Time_"

var clockQos = dds.QosPolicies{Reliable: false, KeepLast: 1}

// NodeOptions configures a Node at creation time, mirroring the reference
// client's NodeOptions builder (defaults taken from the rclpy reference
// cited in its doc comment: rosout enabled, parameter services started,
// global CLI arguments honored).
type NodeOptions struct {
	CLIArgs                                     []string
	UseGlobalArguments                          bool
	EnableRosout                                bool
	StartParameterServices                      bool
	ParameterOverrides                          []paramsrv.Parameter
	AllowUndeclaredParameters                   bool
	AutomaticallyDeclareParametersFromOverrides bool
}

// DefaultNodeOptions returns the reference client's defaults.
func DefaultNodeOptions() NodeOptions {
	return NodeOptions{
		UseGlobalArguments:     true,
		EnableRosout:           true,
		StartParameterServices: true,
	}
}

// Node owns a name, a set of reader/writer GIDs it has created, an optional
// rosout publisher, a parameter-event publisher, and (if enabled) the
// parameter store and six built-in parameter services. Every entity it
// creates registers its GID(s) here and republishes NodeEntitiesInfo through
// the owning Context.
type Node struct {
	name    names.NodeName
	options NodeOptions
	ctx     *Context
	log     log.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	readerGids map[gid.Gid]struct{}
	writerGids map[gid.Gid]struct{}
	closed     bool

	rosoutPub      *dds.Publisher[Log]
	paramEventsPub *dds.Publisher[paramsrv.ParameterEvent]

	paramStore    *paramsrv.Store
	paramServices *paramsrv.Services

	clockSub       *dds.Subscription[rtime.Time]
	lastSystemTime atomic.Int64 // nanoseconds; updated lazily by TimeNow itself
	lastSimTime    atomic.Int64 // nanoseconds from the latest /clock sample, 0 if none yet
	sawSimTime     atomic.Bool
}

// NewNode creates a Node named name/namespace from ctx, with default
// options.
func (c *Context) NewNode(namespace, name string) (*Node, error) {
	return c.NewNodeWithOptions(namespace, name, DefaultNodeOptions())
}

// NewNodeWithOptions creates a Node named name/namespace from ctx. It
// immediately creates the parameter-event publisher and, if
// options.EnableRosout, the rosout publisher; both writer GIDs enter the
// node's writer set before the first discovery broadcast.
func (c *Context) NewNodeWithOptions(namespace, name string, options NodeOptions) (*Node, error) {
	nodeName, err := names.NewNodeName(namespace, name)
	if err != nil {
		return nil, err
	}

	n := &Node{
		name:       nodeName,
		options:    options,
		ctx:        c,
		log:        c.opts.Logger.WithPrefix("node:" + nodeName.FullyQualifiedName()),
		metrics:    c.metrics,
		readerGids: make(map[gid.Gid]struct{}),
		writerGids: make(map[gid.Gid]struct{}),
	}

	n.paramEventsPub = dds.CreatePublisher[paramsrv.ParameterEvent](c.participant, c.parameterEventsTopic)
	n.writerGids[gid.FromGUID(n.paramEventsPub.GUID())] = struct{}{}

	if options.EnableRosout {
		n.rosoutPub = dds.CreatePublisher[Log](c.participant, c.rosoutTopic)
		n.writerGids[gid.FromGUID(n.rosoutPub.GUID())] = struct{}{}
	}

	n.clockSub = dds.CreateSubscription[rtime.Time](c.participant, c.participant.CreateTopic(clockTopicName, clockTypeName, clockQos))
	n.readerGids[gid.FromGUID(n.clockSub.GUID())] = struct{}{}

	if options.StartParameterServices {
		n.paramStore = paramsrv.NewStore(options.ParameterOverrides)
		n.paramServices = paramsrv.NewServices(c.participant, nodeName, nodeName.FullyQualifiedName(), n.paramStore, n.paramEventsPub, service.Enhanced, n.metrics)
		for _, e := range n.paramServices.Entities() {
			n.readerGids[gid.FromGUID(e.Reader)] = struct{}{}
			n.writerGids[gid.FromGUID(e.Writer)] = struct{}{}
		}
	}

	n.publishInfo()
	return n, nil
}

func (n *Node) Name() string               { return n.name.BaseName() }
func (n *Node) Namespace() string          { return n.name.Namespace() }
func (n *Node) FullyQualifiedName() string { return n.name.FullyQualifiedName() }
func (n *Node) Options() NodeOptions       { return n.options }
func (n *Node) Context() *Context          { return n.ctx }

// Parameters returns the Node's parameter store, or nil if
// StartParameterServices was disabled.
func (n *Node) Parameters() *paramsrv.Store { return n.paramStore }

// publishInfo rebuilds this Node's NodeEntitiesInfo from its current GID
// sets and pushes it to the Context, matching the reference's
// generate_node_info + add_node_info pattern: every entity mutation
// funnels through here.
func (n *Node) publishInfo() {
	n.mu.Lock()
	info := newNodeEntitiesInfo(n.name.Namespace(), n.name.BaseName())
	for g := range n.readerGids {
		info.addReader(g)
	}
	for g := range n.writerGids {
		info.addWriter(g)
	}
	n.mu.Unlock()
	n.ctx.updateNode(info)
}

func (n *Node) registerReader(g dds.GUID) {
	n.mu.Lock()
	n.readerGids[gid.FromGUID(g)] = struct{}{}
	n.mu.Unlock()
	n.publishInfo()
}

func (n *Node) registerWriter(g dds.GUID) {
	n.mu.Lock()
	n.writerGids[gid.FromGUID(g)] = struct{}{}
	n.mu.Unlock()
	n.publishInfo()
}

// RemoveReader/RemoveWriter drop a previously registered GID, e.g. when the
// owning entity (Publisher/Subscription/Client/Server) is closed
// independently of the Node itself.
func (n *Node) RemoveReader(g dds.GUID) {
	n.mu.Lock()
	delete(n.readerGids, gid.FromGUID(g))
	n.mu.Unlock()
	n.publishInfo()
}

func (n *Node) RemoveWriter(g dds.GUID) {
	n.mu.Lock()
	delete(n.writerGids, gid.FromGUID(g))
	n.mu.Unlock()
	n.publishInfo()
}

// CreateTopic validates topicName/typeName and returns the DDS Topic handle
// ROS 2 peers expect, relative to this Node's namespace.
func (n *Node) CreateTopic(topicName names.Name, typeName names.MessageTypeName, qos dds.QosPolicies) dds.Topic {
	ddsName := topicName.ToDDSName("rt", n.name, "")
	return n.ctx.participant.CreateTopic(ddsName, typeName.DDSMsgType(), qos)
}

// CreatePublisher creates a publisher on topic and registers its GID with
// n.
func CreatePublisher[M any](n *Node, topic dds.Topic) *dds.Publisher[M] {
	p := dds.CreatePublisher[M](n.ctx.participant, topic)
	n.registerWriter(p.GUID())
	return p
}

// CreateSubscription creates a subscription on topic and registers its GID
// with n.
func CreateSubscription[M any](n *Node, topic dds.Topic) *dds.Subscription[M] {
	s := dds.CreateSubscription[M](n.ctx.participant, topic)
	n.registerReader(s.GUID())
	return s
}

// serviceDDSTopics builds the request/response dds.Topic pair for a named
// service relative to n's namespace, following the rq/<name>Request,
// rr/<name>Reply convention §6 specifies.
func (n *Node) serviceDDSTopics(svcName names.Name, typ names.ServiceTypeName, qos dds.QosPolicies) (req, resp dds.Topic) {
	req = n.ctx.participant.CreateTopic(svcName.ToDDSName("rq", n.name, "Request"), typ.DDSRequestType(), qos)
	resp = n.ctx.participant.CreateTopic(svcName.ToDDSName("rr", n.name, "Reply"), typ.DDSResponseType(), qos)
	return req, resp
}

// CreateClient builds a service.Client for svcName/typ using kind, and
// registers its request-writer and response-reader GIDs with n.
func CreateClient[Req, Resp any](n *Node, svcName names.Name, typ names.ServiceTypeName, kind service.Kind, qos dds.QosPolicies) *service.Client[Req, Resp] {
	req, resp := n.serviceDDSTopics(svcName, typ, qos)
	c := service.NewClient[Req, Resp](n.ctx.participant, req, resp, kind)
	c.SetMetrics(n.metrics, "request")
	n.registerWriter(c.RequestWriterGUID())
	n.registerReader(c.ResponseReaderGUID())
	return c
}

// CreateServer builds a service.Server for svcName/typ using kind, and
// registers its request-reader and response-writer GIDs with n.
func CreateServer[Req, Resp any](n *Node, svcName names.Name, typ names.ServiceTypeName, kind service.Kind, qos dds.QosPolicies) *service.Server[Req, Resp] {
	req, resp := n.serviceDDSTopics(svcName, typ, qos)
	s := service.NewServer[Req, Resp](n.ctx.participant, req, resp, kind)
	s.SetMetrics(n.metrics, "response")
	n.registerReader(s.RequestReaderGUID())
	n.registerWriter(s.ResponseWriterGUID())
	return s
}

// CreateActionClient builds an action.Client for actionName/typ and
// registers all five of its sub-entity GIDs with n.
func CreateActionClient[G, F, R any](n *Node, actionName names.Name, typ names.ActionTypeName, kind service.Kind, qos action.ClientQosPolicies) *action.Client[G, F, R] {
	c := action.NewClient[G, F, R](n.ctx.participant, actionName, n.name, typ, kind, qos, n.metrics)
	for _, g := range c.WriterGUIDs() {
		n.registerWriter(g)
	}
	for _, g := range c.ReaderGUIDs() {
		n.registerReader(g)
	}
	return c
}

// CreateActionServer builds an action.Server for actionName/typ and
// registers all five of its sub-entity GIDs with n.
func CreateActionServer[G, F, R any](n *Node, actionName names.Name, typ names.ActionTypeName, kind service.Kind, qos action.ServerQosPolicies) *action.Server[G, F, R] {
	s := action.NewServer[G, F, R](n.ctx.participant, actionName, n.name, typ, kind, qos, n.metrics)
	for _, g := range s.ReaderGUIDs() {
		n.registerReader(g)
	}
	for _, g := range s.WriterGUIDs() {
		n.registerWriter(g)
	}
	return s
}

// RosoutLog writes one Log sample on rt/rosout if rosout is enabled for this
// Node; a no-op otherwise. The timestamp uses TimeNow so rosout timestamps
// honor use_sim_time like every other stamp this library produces.
func (n *Node) RosoutLog(level uint8, name, msg string) {
	if n.rosoutPub == nil {
		return
	}
	_ = n.rosoutPub.Write(Log{
		Stamp: rtime.FromROSTime(n.TimeNow()),
		Level: level,
		Name:  name,
		Msg:   msg,
	})
}

// TimeNow returns the current time as a ROSTime. If the use_sim_time
// parameter is true, it returns the latest timestamp observed on /clock
// (falling back to the last known system time, with a logged warning, if no
// /clock sample has arrived yet — spec.md §9's recommended resolution of its
// own open question); otherwise it returns the system wall clock.
func (n *Node) TimeNow() rtime.ROSTime {
	n.drainClock()
	if n.paramStore != nil && n.paramStore.UseSimTime() {
		if n.sawSimTime.Load() {
			return rtime.ROSTime{NanosSinceEpoch: n.lastSimTime.Load()}
		}
		n.log.Infof("use_sim_time is set but no /clock sample has been received yet; returning last known system time")
		last := n.lastSystemTime.Load()
		if last == 0 {
			now := rtime.Now()
			n.lastSystemTime.Store(now.NanosSinceEpoch)
			return now
		}
		return rtime.ROSTime{NanosSinceEpoch: last}
	}
	now := rtime.Now()
	n.lastSystemTime.Store(now.NanosSinceEpoch)
	return now
}

// drainClock performs a non-blocking drain of every /clock sample currently
// queued, keeping only the most recent. Called from TimeNow so a Node that
// never calls Spin still tracks the clock eventually-consistently; Spin
// drains it continuously for timelier updates.
func (n *Node) drainClock() {
	for {
		t, _, ok := n.clockSub.Take()
		if !ok {
			return
		}
		n.lastSimTime.Store(t.ToNanos())
		n.sawSimTime.Store(true)
	}
}

// Spin runs this Node's background duties — draining parameter-service
// requests and feeding the /clock subscription — until ctx is done. It must
// run for wait_for_service, the parameter services, and rosout timestamping
// under simulated time to work, matching spec.md §4.6's Spinner contract.
func (n *Node) Spin(ctx context.Context) {
	var g spin.Group
	if n.paramServices != nil {
		g.Add(n.paramServices.Run)
	}
	g.Add(n.spinClock)
	g.RunUntil(ctx)
}

func (n *Node) spinClock(ctx context.Context) {
	for {
		n.drainClock()
		if err := n.clockSub.Wait(ctx); err != nil {
			return
		}
	}
}

// Close removes this Node from its Context (triggering one final discovery
// broadcast without it) and releases its built-in publishers/subscriptions
// and parameter services.
func (n *Node) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	if n.paramServices != nil {
		n.paramServices.Close()
	}
	n.clockSub.Close()
	if n.rosoutPub != nil {
		n.rosoutPub.Close()
	}
	n.paramEventsPub.Close()
	n.ctx.removeNode(n.name.FullyQualifiedName())
}
