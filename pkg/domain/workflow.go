package domain

import (
	"errors"
	"fmt"
	"sort"
)

// ComponentLink is a directed edge: an output port of the source node feeds
// an input port of the target node.
type ComponentLink struct {
	SourceNodeId string
	Output       string

	TargetNodeId string
	Input        string
}

func (l ComponentLink) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", l.SourceNodeId, l.Output, l.TargetNodeId, l.Input)
}

// WorkflowNodeDescriptor is a node of a workflow, as the workflow editor saved it.
//
// This is read-only for the orchestrator.
type WorkflowNodeDescriptor struct {
	Id         string
	WorkflowId string
	Name       string

	ComponentId   string
	ComponentKind ComponentKind

	// Id of the group node containing this node. Empty for top-level nodes.
	GroupId string

	// Links whose TargetNodeId is this node.
	IncomingLinks []ComponentLink
}

var (
	ErrCyclicGraph     = errors.New("workflow graph has a cycle")
	ErrDanglingLink    = errors.New("workflow link refers unknown node")
	ErrDuplicatedNodes = errors.New("workflow node is duplicated")
)

// Graph is an immutable adjacency representation of a workflow.
//
// It is built once per job launch, so traversals never go back to the
// persistence layer for links.
type Graph struct {
	nodes    map[string]WorkflowNodeDescriptor
	incoming map[string][]ComponentLink
	outgoing map[string][]ComponentLink
	order    []string
}

// NewGraph builds a Graph from nodes.
//
// # Returns
//
// - *Graph
//
// - error: ErrDuplicatedNodes, ErrDanglingLink or ErrCyclicGraph.
func NewGraph(nodes []WorkflowNodeDescriptor) (*Graph, error) {
	g := &Graph{
		nodes:    map[string]WorkflowNodeDescriptor{},
		incoming: map[string][]ComponentLink{},
		outgoing: map[string][]ComponentLink{},
	}
	for _, n := range nodes {
		if _, ok := g.nodes[n.Id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatedNodes, n.Id)
		}
		g.nodes[n.Id] = n
	}

	for _, n := range nodes {
		for _, l := range n.IncomingLinks {
			if l.TargetNodeId == "" {
				l.TargetNodeId = n.Id
			}
			if _, ok := g.nodes[l.SourceNodeId]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrDanglingLink, l)
			}
			g.incoming[n.Id] = append(g.incoming[n.Id], l)
			g.outgoing[l.SourceNodeId] = append(g.outgoing[l.SourceNodeId], l)
		}
	}

	order, err := g.sort()
	if err != nil {
		return nil, err
	}
	g.order = order
	return g, nil
}

// Kahn's algorithm. Ties are broken by node id, to be stable.
func (g *Graph) sort() ([]string, error) {
	indegree := map[string]int{}
	for id := range g.nodes {
		parents := map[string]struct{}{}
		for _, l := range g.incoming[id] {
			parents[l.SourceNodeId] = struct{}{}
		}
		indegree[id] = len(parents)
	}

	ready := []string{}
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) != 0 {
		head := ready[0]
		ready = ready[1:]
		order = append(order, head)

		released := []string{}
		seen := map[string]struct{}{}
		for _, l := range g.outgoing[head] {
			if _, ok := seen[l.TargetNodeId]; ok {
				continue
			}
			seen[l.TargetNodeId] = struct{}{}
			indegree[l.TargetNodeId] -= 1
			if indegree[l.TargetNodeId] == 0 {
				released = append(released, l.TargetNodeId)
			}
		}
		ready = append(ready, released...)
		sort.Strings(ready)
	}

	if len(order) != len(g.nodes) {
		return nil, ErrCyclicGraph
	}
	return order, nil
}

func (g *Graph) Node(id string) (WorkflowNodeDescriptor, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Incoming returns links into the node.
func (g *Graph) Incoming(nodeId string) []ComponentLink {
	return g.incoming[nodeId]
}

// Outgoing returns links from the node.
func (g *Graph) Outgoing(nodeId string) []ComponentLink {
	return g.outgoing[nodeId]
}

// Order returns node ids in a topological order.
func (g *Graph) Order() []string {
	return append([]string{}, g.order...)
}

// position of the node in topological order, or -1.
func (g *Graph) position(nodeId string) int {
	for i, id := range g.order {
		if id == nodeId {
			return i
		}
	}
	return -1
}

// Roots returns ids of nodes without incoming links, in topological order.
func (g *Graph) Roots() []string {
	roots := []string{}
	for _, id := range g.order {
		if len(g.incoming[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Ancestors returns ids of all nodes which the node depends on, transitively.
func (g *Graph) Ancestors(nodeId string) []string {
	visited := map[string]struct{}{}
	stack := []string{nodeId}
	for len(stack) != 0 {
		head := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, l := range g.incoming[head] {
			if _, ok := visited[l.SourceNodeId]; ok {
				continue
			}
			visited[l.SourceNodeId] = struct{}{}
			stack = append(stack, l.SourceNodeId)
		}
	}

	ancestors := make([]string, 0, len(visited))
	for _, id := range g.order {
		if _, ok := visited[id]; ok {
			ancestors = append(ancestors, id)
		}
	}
	return ancestors
}
