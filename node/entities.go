// Package node implements the ROS 2 Node/Context glue: a Context owns one
// DDS participant and broadcasts ROS-discovery metadata for every Node
// created from it; a Node owns its reader/writer GID sets, its optional
// rosout and parameter-event publishers, and vends publishers, subscriptions,
// clients, servers, and action endpoints whose GIDs it registers back with
// the Context on every change.
package node

import (
	"github.com/ros2go/rclgo/gid"
)

// NodeEntitiesInfo mirrors rmw_dds_common/msg/NodeEntitiesInfo: the GIDs of
// every reader and writer a single Node owns. Each GID appears at most once
// per list, matching the reference client's add_reader/add_writer dedup.
type NodeEntitiesInfo struct {
	Namespace  string
	Name       string
	ReaderGids []gid.Gid
	WriterGids []gid.Gid
}

func newNodeEntitiesInfo(namespace, name string) NodeEntitiesInfo {
	return NodeEntitiesInfo{Namespace: namespace, Name: name}
}

func containsGid(gids []gid.Gid, g gid.Gid) bool {
	for _, x := range gids {
		if x == g {
			return true
		}
	}
	return false
}

func (n *NodeEntitiesInfo) addReader(g gid.Gid) {
	if !containsGid(n.ReaderGids, g) {
		n.ReaderGids = append(n.ReaderGids, g)
	}
}

func (n *NodeEntitiesInfo) addWriter(g gid.Gid) {
	if !containsGid(n.WriterGids, g) {
		n.WriterGids = append(n.WriterGids, g)
	}
}

// FullName returns namespace + "/" + name (just "/" + name for the root
// namespace "/"), the key used in Context's local-node map. It equals the
// owning Node's FullyQualifiedName.
func (n NodeEntitiesInfo) FullName() string {
	if n.Namespace == "/" {
		return n.Namespace + n.Name
	}
	return n.Namespace + "/" + n.Name
}

// ParticipantEntitiesInfo mirrors rmw_dds_common/msg/ParticipantEntitiesInfo:
// the GID of the owning DomainParticipant plus the NodeEntitiesInfo of every
// ROS Node it locally implements. This is the exact value broadcast over
// ros_discovery_info on every membership change.
type ParticipantEntitiesInfo struct {
	Gid   gid.Gid
	Nodes []NodeEntitiesInfo
}
