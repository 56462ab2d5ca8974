// Package node provides a minimal routing-node collaborator used to
// exercise the forwarder router end to end. It is NOT a distance-vector
// overlay; it is just enough structure to name several endpoints and wire
// forwarders between them by name instead of juggling bare *rpc.Endpoint
// variables.
package node

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gristlabs/grain-rpc/rpc"
)

// Node owns a set of named endpoints, each representing one hop of a
// channel to a distinct peer (e.g. a chain A-B-C would have node A own
// endpoints "toB" and, via forwarding, reach C).
type Node struct {
	mu        sync.RWMutex
	endpoints map[string]*rpc.Endpoint
}

// New creates an empty Node.
func New() *Node {
	return &Node{endpoints: make(map[string]*rpc.Endpoint)}
}

// AddEndpoint registers a named endpoint with this node.
func (n *Node) AddEndpoint(name string, ep *rpc.Endpoint) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, exists := n.endpoints[name]; exists {
		return fmt.Errorf("node: endpoint %q already added", name)
	}
	n.endpoints[name] = ep
	return nil
}

// AddAnonymousEndpoint registers ep under a freshly minted, mesh-unique
// name, for topologies where endpoints are created dynamically (e.g. one
// per accepted connection) and have no natural caller-supplied name. The
// request ids a call allocates stay small monotonic uint64s regardless
// (pendingTable.allocate); this id only identifies the endpoint itself
// within the node.
func (n *Node) AddAnonymousEndpoint(ep *rpc.Endpoint) string {
	name := uuid.NewString()
	n.mu.Lock()
	n.endpoints[name] = ep
	n.mu.Unlock()
	return name
}

// Endpoint returns the named endpoint, or nil if not present.
func (n *Node) Endpoint(name string) *rpc.Endpoint {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.endpoints[name]
}

// Forward wires a forwarder named fwdName on the "from" endpoint, routing
// to the "to" endpoint with the given fwdDest rewrite policy. It is sugar
// over rpc.Endpoint.RegisterForwarder that looks both endpoints up by the
// names they were added under, so a multi-hop topology can be declared
// entirely in terms of this node's endpoint names.
func (n *Node) Forward(from, fwdName, to string, fwdDest ...string) error {
	n.mu.RLock()
	fromEp := n.endpoints[from]
	toEp := n.endpoints[to]
	n.mu.RUnlock()

	if fromEp == nil {
		return fmt.Errorf("node: unknown endpoint %q", from)
	}
	if toEp == nil {
		return fmt.Errorf("node: unknown endpoint %q", to)
	}
	return fromEp.RegisterForwarder(fwdName, toEp, fwdDest...)
}
