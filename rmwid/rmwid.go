// Package rmwid defines RmwRequestId, the correlation identifier shared by
// every service mapping strategy, and the per-client SequenceNumber
// counter used to mint them.
package rmwid

import (
	"sync/atomic"

	"github.com/ros2go/rclgo/internal/dds"
)

// RmwRequestId correlates a service request to its response. It is
// identical in layout to a DDS SampleIdentity; conversions between the two
// are total in both directions.
type RmwRequestId struct {
	WriterGUID     dds.GUID
	SequenceNumber int64
}

// Zero is the wildcard RmwRequestId: a zero writer GUID with sequence
// number zero. Used by the Enhanced mapping when a response carries no
// related_sample_identity, and as the cancel-all sentinel in GoalId/GoalInfo
// contexts (a different zero value, but the same "wildcard" idea).
var Zero RmwRequestId

// FromSampleIdentity converts a dds.SampleIdentity into an RmwRequestId.
// This conversion never fails: the two types have identical layout.
func FromSampleIdentity(si dds.SampleIdentity) RmwRequestId {
	return RmwRequestId{WriterGUID: si.WriterGUID, SequenceNumber: si.SequenceNumber}
}

// SampleIdentity converts back to a dds.SampleIdentity. The exact inverse
// of FromSampleIdentity.
func (id RmwRequestId) SampleIdentity() dds.SampleIdentity {
	return dds.SampleIdentity{WriterGUID: id.WriterGUID, SequenceNumber: id.SequenceNumber}
}

// SequenceNumber is a per-client, strictly-increasing counter used by the
// Basic and Cyclone mappings. The zero value is ready to use; the first
// Next() call returns 1, matching the reference client's fetch-and-increment
// starting from zero.
type SequenceNumber struct {
	counter int64
}

// Next atomically increments and returns the counter. Safe for concurrent
// use, so a Client can be shared across goroutines/threads as the spec
// requires.
func (s *SequenceNumber) Next() int64 {
	return atomic.AddInt64(&s.counter, 1)
}
