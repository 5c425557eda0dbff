package service

import (
	"context"

	"github.com/ros2go/rclgo/internal/dds"
	"github.com/ros2go/rclgo/internal/metrics"
	"github.com/ros2go/rclgo/rerrors"
	"github.com/ros2go/rclgo/rmwid"
	"github.com/ros2go/rclgo/rtime"
)

// Client is a long-lived RPC endpoint built from one request-writer, one
// response-reader, and a mapping strategy. A Client holds exactly one
// request-writer and one response-reader, and lives until dropped (Close).
type Client[Req, Resp any] struct {
	participant *dds.Participant
	reqTopic    dds.Topic
	respTopic   dds.Topic

	reqPub  *dds.Publisher[RequestEnvelope[Req]]
	respSub *dds.Subscription[ResponseEnvelope[Resp]]

	mapping Mapping[Req, Resp]
	state   *ClientState

	metrics *metrics.Metrics
	kind    string
}

// SetMetrics attaches a Metrics to the Client; kind labels the writes this
// Client records (e.g. "request"). Metrics may be attached at any time,
// including after construction; a Client with no Metrics attached records
// nothing.
func (c *Client[Req, Resp]) SetMetrics(m *metrics.Metrics, kind string) {
	c.metrics = m
	c.kind = kind
}

// NewClient creates a Client on the given request/response topics using
// the given mapping Kind.
func NewClient[Req, Resp any](p *dds.Participant, reqTopic, respTopic dds.Topic, kind Kind) *Client[Req, Resp] {
	mapping := NewMapping[Req, Resp](kind)
	reqPub := dds.CreatePublisher[RequestEnvelope[Req]](p, reqTopic)
	return &Client[Req, Resp]{
		participant: p,
		reqTopic:    reqTopic,
		respTopic:   respTopic,
		reqPub:      reqPub,
		respSub:     dds.CreateSubscription[ResponseEnvelope[Resp]](p, respTopic),
		mapping:     mapping,
		state:       mapping.NewClientState(reqPub.GUID()),
	}
}

// RequestWriterGUID returns the GUID of this Client's request writer,
// needed by Node to track the Client's entities.
func (c *Client[Req, Resp]) RequestWriterGUID() dds.GUID { return c.reqPub.GUID() }

// ResponseReaderGUID returns the GUID of this Client's response reader.
func (c *Client[Req, Resp]) ResponseReaderGUID() dds.GUID { return c.respSub.GUID() }

// SendRequest writes exactly one sample on the request topic with a
// source timestamp, and returns the id the mapping assigned it. Fails only
// if the underlying write fails.
func (c *Client[Req, Resp]) SendRequest(req Req) (rmwid.RmwRequestId, error) {
	env, id := c.mapping.WrapRequest(c.state, req)
	now := rtime.Now().Time()
	written, err := c.reqPub.WriteWithOptions(env, dds.WriteOptions{SourceTimestamp: &now})
	if err != nil {
		var we *dds.WriteError
		wouldBlock := false
		if ok := asWriteError(err, &we); ok {
			wouldBlock = we.WouldBlock
		}
		c.metrics.RecordWrite(c.kind, wouldBlock, err)
		return rmwid.RmwRequestId{}, &rerrors.WriteError{WouldBlock: wouldBlock, Cause: err}
	}
	c.metrics.RecordWrite(c.kind, false, nil)
	if id != nil {
		return *id, nil
	}
	return c.mapping.RequestIDAfterWrap(c.state, written), nil
}

func asWriteError(err error, target **dds.WriteError) bool {
	if we, ok := err.(*dds.WriteError); ok {
		*target = we
		return true
	}
	return false
}

// ReceiveResponse performs a non-blocking take of one response. Returns
// ok=false if the queue is empty. The caller must compare the returned id
// against their outstanding request id themselves: mismatched responses
// are returned, not dropped silently.
func (c *Client[Req, Resp]) ReceiveResponse() (rmwid.RmwRequestId, Resp, bool) {
	env, info, ok := c.respSub.Take()
	if !ok {
		var zero Resp
		return rmwid.RmwRequestId{}, zero, false
	}
	id, resp := c.mapping.UnwrapResponse(c.state, env, info)
	return id, resp, true
}

// AsyncSendRequest is SendRequest, written to await write completion; in
// this library's in-process transport the write is already synchronous, so
// this simply exposes the same operation under the async-suffixed name the
// rest of the API uses consistently for cancellation-safe operations.
func (c *Client[Req, Resp]) AsyncSendRequest(ctx context.Context, req Req) (rmwid.RmwRequestId, error) {
	return c.SendRequest(req)
}

// AsyncReceiveResponse awaits responses on the stream, discarding
// mismatches, and completes on the first one matching expectedID.
// Cancelling ctx drops only the waiter; the response stream itself is
// untouched, so a later wait can still observe responses that arrived
// while nobody was waiting.
func (c *Client[Req, Resp]) AsyncReceiveResponse(ctx context.Context, expectedID rmwid.RmwRequestId) (Resp, error) {
	for {
		if id, resp, ok := c.ReceiveResponse(); ok {
			if id == expectedID {
				return resp, nil
			}
			// Mismatch: not ours, keep draining.
			c.metrics.RecordMismatch()
			continue
		}
		if err := c.respSub.Wait(ctx); err != nil {
			var zero Resp
			return zero, &rerrors.ReadError{Cause: err}
		}
	}
}

// AsyncCall composes AsyncSendRequest and AsyncReceiveResponse.
func (c *Client[Req, Resp]) AsyncCall(ctx context.Context, req Req) (Resp, error) {
	id, err := c.AsyncSendRequest(ctx, req)
	if err != nil {
		var zero Resp
		return zero, rerrors.FromWrite(err.(*rerrors.WriteError))
	}
	resp, err := c.AsyncReceiveResponse(ctx, id)
	if err != nil {
		var zero Resp
		return zero, rerrors.FromRead(err.(*rerrors.ReadError))
	}
	return resp, nil
}

// WaitForService completes when at least one peer reader exists for the
// request topic and at least one peer writer exists for the response
// topic.
func (c *Client[Req, Resp]) WaitForService(ctx context.Context) error {
	if err := dds.WaitForMatch(ctx, c.participant, c.reqTopic, (*dds.Participant).HasMatchedReader); err != nil {
		return err
	}
	return dds.WaitForMatch(ctx, c.participant, c.respTopic, (*dds.Participant).HasMatchedWriter)
}

// Close releases the Client's request writer and response reader.
func (c *Client[Req, Resp]) Close() {
	c.reqPub.Close()
	c.respSub.Close()
}
