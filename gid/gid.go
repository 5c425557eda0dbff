// Package gid defines the ROS 2 Gid type, a fixed 16-byte identifier used to
// name DDS participants and entities in ros_discovery_info.
package gid

import (
	"encoding/hex"

	"github.com/ros2go/rclgo/internal/dds"
)

// Length is the wire length of a Gid. Pre-Iron ROS 2 releases used a 24-byte
// Gid; this library targets the 16-byte Iron-and-later layout exclusively.
const Length = 16

// Gid is a 16-byte DDS participant/entity identifier, formed by copying the
// first Length bytes of a DDS GUID. Since dds.GUID is itself exactly 16
// bytes in this library's RTPS model, the conversion never truncates or
// pads in practice, but the API is kept total in both directions to match
// the reference semantics for GUID layouts that are not 16 bytes.
type Gid [Length]byte

// Zero is the all-zero Gid, used as a wildcard/unknown sentinel.
var Zero Gid

// FromGUID copies the first Length bytes of g into a Gid, zero-padding if g
// were ever shorter than Length (never the case for dds.GUID, but kept for
// symmetry with the reference conversion).
func FromGUID(g dds.GUID) Gid {
	var out Gid
	copy(out[:], g[:])
	return out
}

// GUID reconstructs a dds.GUID from a Gid. Since both are 16 bytes here this
// is a straight copy; it is the exact inverse of FromGUID.
func (id Gid) GUID() dds.GUID {
	var g dds.GUID
	copy(g[:], id[:])
	return g
}

func (id Gid) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether id is the nil Gid.
func (id Gid) IsZero() bool {
	return id == Zero
}
