package service

import (
	"context"

	"github.com/ros2go/rclgo/internal/dds"
	"github.com/ros2go/rclgo/internal/metrics"
	"github.com/ros2go/rclgo/rerrors"
	"github.com/ros2go/rclgo/rmwid"
	"github.com/ros2go/rclgo/rtime"
)

// Server is the server-side counterpart of Client: one request-reader and
// one response-writer sharing a mapping Kind with whichever Clients talk
// to it.
type Server[Req, Resp any] struct {
	reqSub  *dds.Subscription[RequestEnvelope[Req]]
	respPub *dds.Publisher[ResponseEnvelope[Resp]]
	mapping Mapping[Req, Resp]

	metrics *metrics.Metrics
	kind    string
}

// SetMetrics attaches a Metrics to the Server; kind labels the writes this
// Server records (e.g. "response"). A Server with no Metrics attached
// records nothing.
func (s *Server[Req, Resp]) SetMetrics(m *metrics.Metrics, kind string) {
	s.metrics = m
	s.kind = kind
}

// NewServer creates a Server on the given request/response topics using
// the given mapping Kind.
func NewServer[Req, Resp any](p *dds.Participant, reqTopic, respTopic dds.Topic, kind Kind) *Server[Req, Resp] {
	return &Server[Req, Resp]{
		reqSub:  dds.CreateSubscription[RequestEnvelope[Req]](p, reqTopic),
		respPub: dds.CreatePublisher[ResponseEnvelope[Resp]](p, respTopic),
		mapping: NewMapping[Req, Resp](kind),
	}
}

func (s *Server[Req, Resp]) RequestReaderGUID() dds.GUID { return s.reqSub.GUID() }
func (s *Server[Req, Resp]) ResponseWriterGUID() dds.GUID { return s.respPub.GUID() }

// ReceiveRequest performs a non-blocking take of one request. The id is
// opaque to the server and must be passed back verbatim to SendResponse.
func (s *Server[Req, Resp]) ReceiveRequest() (rmwid.RmwRequestId, Req, bool) {
	env, info, ok := s.reqSub.Take()
	if !ok {
		var zero Req
		return rmwid.RmwRequestId{}, zero, false
	}
	id, req := s.mapping.UnwrapRequest(env, info)
	return id, req, true
}

// AsyncReceiveRequest blocks until a request is available or ctx is done.
func (s *Server[Req, Resp]) AsyncReceiveRequest(ctx context.Context) (rmwid.RmwRequestId, Req, error) {
	for {
		if id, req, ok := s.ReceiveRequest(); ok {
			return id, req, nil
		}
		if err := s.reqSub.Wait(ctx); err != nil {
			var zero Req
			return rmwid.RmwRequestId{}, zero, err
		}
	}
}

// ReceiveRequestStream returns a function that, called repeatedly, yields
// one (id, request) pair per request readable from the request topic, or
// ok=false once ctx is done. It is not restartable: call it once and drain
// it until ok is false.
func (s *Server[Req, Resp]) ReceiveRequestStream(ctx context.Context) func() (rmwid.RmwRequestId, Req, bool) {
	return func() (rmwid.RmwRequestId, Req, bool) {
		id, req, err := s.AsyncReceiveRequest(ctx)
		if err != nil {
			var zero Req
			return rmwid.RmwRequestId{}, zero, false
		}
		return id, req, true
	}
}

// SendResponse writes a response with a source timestamp, always setting
// related_sample_identity = id regardless of mapping: harmless for
// Cyclone (which does not consult it), required for Basic/Enhanced.
func (s *Server[Req, Resp]) SendResponse(id rmwid.RmwRequestId, resp Resp) error {
	env, relatedFromMapping := s.mapping.WrapResponse(id, resp)
	now := rtime.Now().Time()
	sid := id.SampleIdentity()
	related := &sid
	if relatedFromMapping != nil {
		related = relatedFromMapping
	}
	_, err := s.respPub.WriteWithOptions(env, dds.WriteOptions{
		SourceTimestamp:       &now,
		RelatedSampleIdentity: related,
	})
	if err != nil {
		var we *dds.WriteError
		wouldBlock := false
		if w, ok := err.(*dds.WriteError); ok {
			we = w
			wouldBlock = we.WouldBlock
		}
		s.metrics.RecordWrite(s.kind, wouldBlock, err)
		return &rerrors.WriteError{WouldBlock: wouldBlock, Cause: err}
	}
	s.metrics.RecordWrite(s.kind, false, nil)
	return nil
}

// AsyncSendResponse is SendResponse exposed under the async-suffixed name
// used consistently across this library's cancellation-safe operations.
func (s *Server[Req, Resp]) AsyncSendResponse(ctx context.Context, id rmwid.RmwRequestId, resp Resp) error {
	return s.SendResponse(id, resp)
}

// Close releases the Server's request reader and response writer.
func (s *Server[Req, Resp]) Close() {
	s.reqSub.Close()
	s.respPub.Close()
}
