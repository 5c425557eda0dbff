// Package service implements the three interchangeable RPC-over-DDS
// correlation strategies ("mappings") and the Client/Server types built on
// top of them.
//
// The three mappings share one contract but differ in where request/response
// correlation information lives: in DDS write metadata (Enhanced), in a
// fixed-size header prefixed to the payload (Cyclone), or in a small
// wrapper struct around the whole payload (Basic, per the RPC-over-DDS
// specification section 7.5.1.1.1). Following this package's own design
// notes, the three are modeled as one tagged type dispatching on a Kind
// field rather than as three separate implementations of a shared
// interface: each variant's client-side state (a sequence counter plus the
// client writer's GUID, or nothing at all for Enhanced) is cheap enough
// that the indirection of an interface buys nothing a switch doesn't give
// more simply.
package service

import (
	"github.com/ros2go/rclgo/internal/dds"
	"github.com/ros2go/rclgo/rmwid"
)

// Kind selects which of the three RPC-over-DDS correlation strategies a
// Client or Server uses. A Client only interoperates with a Server using
// the same Kind.
type Kind int

const (
	// Enhanced carries no payload wrapper; correlation rides entirely on
	// DDS write/read metadata (SampleIdentity, related_sample_identity).
	Enhanced Kind = iota
	// Cyclone prefixes the payload with a fixed 16-byte header: the last
	// 8 bytes of the client writer's GUID plus a 64-bit sequence number
	// split into a signed high half and an unsigned low half, matching
	// the Eclipse Cyclone DDS request/reply convention.
	Cyclone
	// Basic implements the OMG RPC-over-DDS specification's basic
	// request/reply mapping (section 7.5.1.1.1): the request wrapper
	// carries a full SampleIdentity and an (always-empty) instance name;
	// the response wrapper carries a related SampleIdentity and a remote
	// exception code.
	Basic
)

func (k Kind) String() string {
	switch k {
	case Enhanced:
		return "enhanced"
	case Cyclone:
		return "cyclone"
	case Basic:
		return "basic"
	default:
		return "unknown"
	}
}

// RequestEnvelope is what travels over the request topic. Only the fields
// relevant to the Client's configured Kind are populated; the rest are
// left zero. Because payload (de)serialization is outside this library's
// scope, the "wrapper" is represented as envelope metadata carried
// alongside the opaque payload rather than a literal byte prefix — the
// correlation semantics this package is responsible for are identical
// either way.
type RequestEnvelope[Req any] struct {
	// Basic fields.
	BasicSampleID     dds.SampleIdentity
	BasicInstanceName string

	// Cyclone fields: the wire header is the last 8 bytes of the client
	// writer's GUID followed by the sequence number split in half.
	CycloneGUIDSecondHalf [8]byte
	CycloneSeqHigh        int32
	CycloneSeqLow         uint32

	Payload Req
}

// ResponseEnvelope is what travels over the response topic.
type ResponseEnvelope[Resp any] struct {
	// Basic fields.
	BasicRelatedSampleID     dds.SampleIdentity
	BasicRemoteExceptionCode uint32

	// Cyclone fields, same layout as RequestEnvelope.
	CycloneGUIDSecondHalf [8]byte
	CycloneSeqHigh        int32
	CycloneSeqLow         uint32

	Payload Resp
}

// ClientState is the per-Client state a mapping needs to wrap outgoing
// requests: the client's own writer GUID (needed by Basic and Cyclone) and
// a strictly-increasing sequence counter (needed by Basic and Cyclone;
// unused by Enhanced, which lets the DDS write itself assign a sequence
// number).
type ClientState struct {
	WriterGUID dds.GUID
	Seq        rmwid.SequenceNumber
}

// Mapping dispatches request/response wrapping and correlation for one of
// the three RPC-over-DDS strategies, generic over the request and response
// payload types.
type Mapping[Req, Resp any] struct {
	Kind Kind
}

// NewMapping returns a Mapping of the given Kind.
func NewMapping[Req, Resp any](kind Kind) Mapping[Req, Resp] {
	return Mapping[Req, Resp]{Kind: kind}
}

// NewClientState builds the per-Client state appropriate for this mapping.
func (m Mapping[Req, Resp]) NewClientState(clientWriterGUID dds.GUID) *ClientState {
	return &ClientState{WriterGUID: clientWriterGUID}
}

func splitSeq(sn int64) (high int32, low uint32) {
	return int32(sn >> 32), uint32(sn)
}

func joinSeq(high int32, low uint32) int64 {
	return int64(high)<<32 | int64(low)
}

func lastEight(g dds.GUID) (out [8]byte) {
	copy(out[:], g[8:16])
	return out
}

// WrapRequest prepares a request for the wire and, for mappings that
// assign the request id themselves (Basic, Cyclone), returns it directly;
// Enhanced returns nil because the id is only known after the DDS write
// completes (see RequestIDAfterWrap).
func (m Mapping[Req, Resp]) WrapRequest(cs *ClientState, req Req) (RequestEnvelope[Req], *rmwid.RmwRequestId) {
	switch m.Kind {
	case Enhanced:
		return RequestEnvelope[Req]{Payload: req}, nil

	case Cyclone:
		sn := cs.Seq.Next()
		high, low := splitSeq(sn)
		env := RequestEnvelope[Req]{
			CycloneGUIDSecondHalf: lastEight(cs.WriterGUID),
			CycloneSeqHigh:        high,
			CycloneSeqLow:         low,
			Payload:               req,
		}
		id := rmwid.RmwRequestId{WriterGUID: cs.WriterGUID, SequenceNumber: sn}
		return env, &id

	case Basic:
		sn := cs.Seq.Next()
		id := rmwid.RmwRequestId{WriterGUID: cs.WriterGUID, SequenceNumber: sn}
		env := RequestEnvelope[Req]{
			BasicSampleID:     id.SampleIdentity(),
			BasicInstanceName: "",
			Payload:           req,
		}
		return env, &id

	default:
		panic("service: unknown mapping kind")
	}
}

// RequestIDAfterWrap derives the RmwRequestId for a just-written request
// from the SampleIdentity the DDS write returned. Only Enhanced needs
// this: Basic and Cyclone already know the id before writing.
func (m Mapping[Req, Resp]) RequestIDAfterWrap(cs *ClientState, written dds.SampleIdentity) rmwid.RmwRequestId {
	switch m.Kind {
	case Enhanced:
		return rmwid.FromSampleIdentity(written)
	default:
		return rmwid.RmwRequestId{WriterGUID: cs.WriterGUID, SequenceNumber: written.SequenceNumber}
	}
}

// UnwrapRequest extracts the RmwRequestId and payload from a request
// sample, server-side.
func (m Mapping[Req, Resp]) UnwrapRequest(env RequestEnvelope[Req], info dds.SampleInfo) (rmwid.RmwRequestId, Req) {
	switch m.Kind {
	case Enhanced:
		return rmwid.FromSampleIdentity(info.SampleIdentity()), env.Payload

	case Cyclone:
		sn := joinSeq(env.CycloneSeqHigh, env.CycloneSeqLow)
		return rmwid.RmwRequestId{WriterGUID: info.WriterGUID, SequenceNumber: sn}, env.Payload

	case Basic:
		return rmwid.FromSampleIdentity(env.BasicSampleID), env.Payload

	default:
		panic("service: unknown mapping kind")
	}
}

// WrapResponse prepares a response for the wire given the request id it is
// answering. It also returns the SampleIdentity to set as
// related_sample_identity in WriteOptions when one is required
// (Basic/Enhanced); Cyclone returns nil since its correlation lives
// entirely in the payload wrapper.
func (m Mapping[Req, Resp]) WrapResponse(id rmwid.RmwRequestId, resp Resp) (ResponseEnvelope[Resp], *dds.SampleIdentity) {
	switch m.Kind {
	case Enhanced:
		sid := id.SampleIdentity()
		return ResponseEnvelope[Resp]{Payload: resp}, &sid

	case Cyclone:
		return ResponseEnvelope[Resp]{
			CycloneGUIDSecondHalf: lastEight(id.WriterGUID),
			CycloneSeqHigh:        int32(id.SequenceNumber >> 32),
			CycloneSeqLow:         uint32(id.SequenceNumber),
			Payload:               resp,
		}, nil

	case Basic:
		sid := id.SampleIdentity()
		return ResponseEnvelope[Resp]{
			BasicRelatedSampleID: sid,
			Payload:              resp,
		}, &sid

	default:
		panic("service: unknown mapping kind")
	}
}

// UnwrapResponse extracts the RmwRequestId and payload from a response
// sample, client-side. For Cyclone, the writer GUID is reconstructed as
// the first 8 bytes of the client's own writer GUID concatenated with the
// 8-byte GUID fragment carried in the reply: Cyclone's own replies carry
// only a GUID fragment, and the client already knows the other half because
// it is the same client that sent the request. The second half is read from
// env.CycloneGUIDSecondHalf, which WrapResponse fills with the last 8 bytes
// of the request's writer GUID; the responding sample's own writer GUID
// (info.WriterGUID, the server's response writer) is not consulted.
func (m Mapping[Req, Resp]) UnwrapResponse(cs *ClientState, env ResponseEnvelope[Resp], info dds.SampleInfo) (rmwid.RmwRequestId, Resp) {
	switch m.Kind {
	case Enhanced:
		if info.RelatedSampleIdentity == nil {
			return rmwid.Zero, env.Payload
		}
		return rmwid.FromSampleIdentity(*info.RelatedSampleIdentity), env.Payload

	case Cyclone:
		var writerGUID dds.GUID
		copy(writerGUID[0:8], cs.WriterGUID[0:8])
		copy(writerGUID[8:16], env.CycloneGUIDSecondHalf[:])
		sn := joinSeq(env.CycloneSeqHigh, env.CycloneSeqLow)
		return rmwid.RmwRequestId{WriterGUID: writerGUID, SequenceNumber: sn}, env.Payload

	case Basic:
		return rmwid.FromSampleIdentity(env.BasicRelatedSampleID), env.Payload

	default:
		panic("service: unknown mapping kind")
	}
}
