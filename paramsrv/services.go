package paramsrv

import (
	"context"

	"github.com/ros2go/rclgo/internal/dds"
	"github.com/ros2go/rclgo/internal/metrics"
	"github.com/ros2go/rclgo/internal/spin"
	"github.com/ros2go/rclgo/names"
	"github.com/ros2go/rclgo/rtime"
	"github.com/ros2go/rclgo/service"
)

// EntityGUIDs is the (request-reader, response-writer) GUID pair of one
// built-in parameter service, handed back to the owning Node so it can fold
// them into its NodeEntitiesInfo the same way every other service it
// creates does.
type EntityGUIDs struct {
	Reader dds.GUID
	Writer dds.GUID
}

// Services bundles the six built-in parameter services a Node exposes when
// NodeOptions.StartParameterServices is set: list_parameters,
// get_parameters, get_parameter_types, set_parameters,
// set_parameters_atomically, describe_parameters. Each is a plain
// service.Server instance over the matching rcl_interfaces request/response
// pair, backed by one shared Store.
type Services struct {
	store     *Store
	eventsPub *dds.Publisher[ParameterEvent]
	nodeFQN   string

	list      *service.Server[ListParametersRequest, ListParametersResponse]
	get       *service.Server[GetParametersRequest, GetParametersResponse]
	getTypes  *service.Server[GetParameterTypesRequest, GetParameterTypesResponse]
	set       *service.Server[SetParametersRequest, SetParametersResponse]
	setAtomic *service.Server[SetParametersRequest, SetParametersResponse]
	describe  *service.Server[DescribeParametersRequest, DescribeParametersResponse]

	metrics *metrics.Metrics
}

func serviceTopics(p *dds.Participant, node names.NodeName, serviceBase, reqType, respType string, qos dds.QosPolicies) (req, resp dds.Topic) {
	n, err := names.NewName("", serviceBase)
	if err != nil {
		panic(err) // service base names are compile-time constants below; never invalid
	}
	req = p.CreateTopic(n.ToDDSName("rq", node, "Request"), reqType, qos)
	resp = p.CreateTopic(n.ToDDSName("rr", node, "Reply"), respType, qos)
	return req, resp
}

const rclInterfacesSrvType = "rcl_interfaces::srv::dds_::"

// NewServices builds the six built-in parameter services under node's
// namespace, using kind for request/response correlation (the owning Node
// passes service.Enhanced) and eventsPub to publish a
// ParameterEvent after every successful set. m may be nil; if non-nil, every
// service's writes and every parameter-event publish are recorded against it.
func NewServices(p *dds.Participant, node names.NodeName, nodeFQN string, store *Store, eventsPub *dds.Publisher[ParameterEvent], kind service.Kind, m *metrics.Metrics) *Services {
	qos := dds.DefaultPublisherQos

	listReq, listResp := serviceTopics(p, node, "list_parameters", rclInterfacesSrvType+"ListParameters_Request_", rclInterfacesSrvType+"ListParameters_Response_", qos)
	getReq, getResp := serviceTopics(p, node, "get_parameters", rclInterfacesSrvType+"GetParameters_Request_", rclInterfacesSrvType+"GetParameters_Response_", qos)
	getTypesReq, getTypesResp := serviceTopics(p, node, "get_parameter_types", rclInterfacesSrvType+"GetParameterTypes_Request_", rclInterfacesSrvType+"GetParameterTypes_Response_", qos)
	setReq, setResp := serviceTopics(p, node, "set_parameters", rclInterfacesSrvType+"SetParameters_Request_", rclInterfacesSrvType+"SetParameters_Response_", qos)
	setAtomicReq, setAtomicResp := serviceTopics(p, node, "set_parameters_atomically", rclInterfacesSrvType+"SetParametersAtomically_Request_", rclInterfacesSrvType+"SetParametersAtomically_Response_", qos)
	describeReq, describeResp := serviceTopics(p, node, "describe_parameters", rclInterfacesSrvType+"DescribeParameters_Request_", rclInterfacesSrvType+"DescribeParameters_Response_", qos)

	list := service.NewServer[ListParametersRequest, ListParametersResponse](p, listReq, listResp, kind)
	get := service.NewServer[GetParametersRequest, GetParametersResponse](p, getReq, getResp, kind)
	getTypes := service.NewServer[GetParameterTypesRequest, GetParameterTypesResponse](p, getTypesReq, getTypesResp, kind)
	set := service.NewServer[SetParametersRequest, SetParametersResponse](p, setReq, setResp, kind)
	setAtomic := service.NewServer[SetParametersRequest, SetParametersResponse](p, setAtomicReq, setAtomicResp, kind)
	describe := service.NewServer[DescribeParametersRequest, DescribeParametersResponse](p, describeReq, describeResp, kind)
	for _, srv := range []interface{ SetMetrics(*metrics.Metrics, string) }{list, get, getTypes, set, setAtomic, describe} {
		srv.SetMetrics(m, "response")
	}

	return &Services{
		store:     store,
		eventsPub: eventsPub,
		nodeFQN:   nodeFQN,
		list:      list,
		get:       get,
		getTypes:  getTypes,
		set:       set,
		setAtomic: setAtomic,
		describe:  describe,
		metrics:   m,
	}
}

// Entities returns the reader/writer GUID pairs of all six services, for
// the owning Node to register.
func (s *Services) Entities() []EntityGUIDs {
	return []EntityGUIDs{
		{s.list.RequestReaderGUID(), s.list.ResponseWriterGUID()},
		{s.get.RequestReaderGUID(), s.get.ResponseWriterGUID()},
		{s.getTypes.RequestReaderGUID(), s.getTypes.ResponseWriterGUID()},
		{s.set.RequestReaderGUID(), s.set.ResponseWriterGUID()},
		{s.setAtomic.RequestReaderGUID(), s.setAtomic.ResponseWriterGUID()},
		{s.describe.RequestReaderGUID(), s.describe.ResponseWriterGUID()},
	}
}

// Run drives all six services until ctx is done, one goroutine per service,
// matching the "spinner drives the parameter request queue" duty spec.md
// assigns to Node.Spin.
func (s *Services) Run(ctx context.Context) {
	var g spin.Group
	g.Add(s.runList)
	g.Add(s.runGet)
	g.Add(s.runGetTypes)
	g.Add(s.runSet)
	g.Add(s.runSetAtomic)
	g.Add(s.runDescribe)
	g.RunUntil(ctx)
}

func (s *Services) runList(ctx context.Context) {
	for {
		id, req, err := s.list.AsyncReceiveRequest(ctx)
		if err != nil {
			return
		}
		_ = s.list.SendResponse(id, s.handleList(req))
	}
}

func (s *Services) handleList(req ListParametersRequest) ListParametersResponse {
	return ListParametersResponse{Result: ListParametersResult{
		Names:    s.store.List(req.Prefixes),
		Prefixes: req.Prefixes,
	}}
}

func (s *Services) runGet(ctx context.Context) {
	for {
		id, req, err := s.get.AsyncReceiveRequest(ctx)
		if err != nil {
			return
		}
		_ = s.get.SendResponse(id, s.handleGet(req))
	}
}

func (s *Services) handleGet(req GetParametersRequest) GetParametersResponse {
	values := make([]ParameterValue, len(req.Names))
	for i, name := range req.Names {
		if v, ok := s.store.Get(name); ok {
			values[i] = v
		}
	}
	return GetParametersResponse{Values: values}
}

func (s *Services) runGetTypes(ctx context.Context) {
	for {
		id, req, err := s.getTypes.AsyncReceiveRequest(ctx)
		if err != nil {
			return
		}
		_ = s.getTypes.SendResponse(id, s.handleGetTypes(req))
	}
}

func (s *Services) handleGetTypes(req GetParameterTypesRequest) GetParameterTypesResponse {
	types := make([]ParameterType, len(req.Names))
	for i, name := range req.Names {
		if v, ok := s.store.Get(name); ok {
			types[i] = v.Type
		} else {
			types[i] = TypeNotSet
		}
	}
	return GetParameterTypesResponse{Types: types}
}

func (s *Services) runSet(ctx context.Context) {
	for {
		id, req, err := s.set.AsyncReceiveRequest(ctx)
		if err != nil {
			return
		}
		_ = s.set.SendResponse(id, s.handleSet(req))
	}
}

// handleSet and handleSetAtomically share the same semantics in this
// library: neither models parameter constraints, so there is nothing that
// could make "atomically" behave differently from the plain set path (see
// DESIGN.md).
func (s *Services) handleSet(req SetParametersRequest) SetParametersResponse {
	results := make([]SetParametersResult, len(req.Parameters))
	var newParams, changedParams []Parameter
	for i, p := range req.Parameters {
		_, wasNew := s.store.Set(p.Name, p.Value)
		results[i] = SetParametersResult{Successful: true}
		if wasNew {
			newParams = append(newParams, p)
		} else {
			changedParams = append(changedParams, p)
		}
	}
	s.publishEvent(newParams, changedParams, nil)
	return SetParametersResponse{Results: results}
}

func (s *Services) runSetAtomic(ctx context.Context) {
	for {
		id, req, err := s.setAtomic.AsyncReceiveRequest(ctx)
		if err != nil {
			return
		}
		_ = s.setAtomic.SendResponse(id, s.handleSet(req))
	}
}

func (s *Services) runDescribe(ctx context.Context) {
	for {
		id, req, err := s.describe.AsyncReceiveRequest(ctx)
		if err != nil {
			return
		}
		_ = s.describe.SendResponse(id, s.handleDescribe(req))
	}
}

func (s *Services) handleDescribe(req DescribeParametersRequest) DescribeParametersResponse {
	descs := make([]ParameterDescriptor, len(req.Names))
	for i, name := range req.Names {
		typ := TypeNotSet
		if v, ok := s.store.Get(name); ok {
			typ = v.Type
		}
		descs[i] = ParameterDescriptor{Name: name, Type: typ}
	}
	return DescribeParametersResponse{Descriptors: descs}
}

func (s *Services) publishEvent(newP, changedP, deletedP []Parameter) {
	if len(newP) == 0 && len(changedP) == 0 && len(deletedP) == 0 {
		return
	}
	err := s.eventsPub.Write(ParameterEvent{
		Stamp:             rtime.FromROSTime(rtime.Now()),
		Node:              s.nodeFQN,
		NewParameters:     newP,
		ChangedParameters: changedP,
		DeletedParameters: deletedP,
	})
	s.metrics.RecordWrite("parameter_event", false, err)
}

// Close releases all six services' request readers and response writers.
func (s *Services) Close() {
	s.list.Close()
	s.get.Close()
	s.getTypes.Close()
	s.set.Close()
	s.setAtomic.Close()
	s.describe.Close()
}
