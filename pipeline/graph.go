package pipeline

import (
	"fmt"
)

// Graph is the set of task nodes and the edges between them.
// Nodes and Edges are held in deterministic build order.
type Graph struct {
	Nodes []TaskNode `json:"nodes"`
	Edges []Edge     `json:"edges"`
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (TaskNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n.clone(), true
		}
	}
	return TaskNode{}, false
}

// Upstream returns the ids of nodes with an edge into id.
func (g *Graph) Upstream(id string) []string {
	var ids []string
	for _, e := range g.Edges {
		if e.Downstream == id {
			ids = append(ids, e.Upstream)
		}
	}
	return ids
}

// Downstream returns the ids of nodes that id has an edge into.
func (g *Graph) Downstream(id string) []string {
	var ids []string
	for _, e := range g.Edges {
		if e.Upstream == id {
			ids = append(ids, e.Downstream)
		}
	}
	return ids
}

// Sources returns the ids of nodes without upstream edges.
func (g *Graph) Sources() []string {
	in := g.degrees(func(e Edge) string { return e.Downstream })
	var ids []string
	for _, n := range g.Nodes {
		if in[n.ID] == 0 {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Sinks returns the ids of nodes without downstream edges.
func (g *Graph) Sinks() []string {
	out := g.degrees(func(e Edge) string { return e.Upstream })
	var ids []string
	for _, n := range g.Nodes {
		if out[n.ID] == 0 {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

func (g *Graph) degrees(end func(Edge) string) map[string]int {
	m := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		m[end(e)]++
	}
	return m
}

// TopologicalOrder returns node ids so that every edge points forwards.
// Ties are broken by node order. An error is returned if the edges contain a cycle.
func (g *Graph) TopologicalOrder() ([]string, error) {
	in := g.degrees(func(e Edge) string { return e.Downstream })
	done := make(map[string]bool, len(g.Nodes))
	order := make([]string, 0, len(g.Nodes))
	for len(order) < len(g.Nodes) {
		progressed := false
		for _, n := range g.Nodes {
			if done[n.ID] || in[n.ID] > 0 {
				continue
			}
			done[n.ID] = true
			order = append(order, n.ID)
			for _, d := range g.Downstream(n.ID) {
				in[d]--
			}
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("graph contains a cycle")
		}
	}
	return order, nil
}

// Validate checks the graph is a connected DAG with unique node ids, exactly one source and exactly one sink.
func (g *Graph) Validate() error {
	if len(g.Nodes) == 0 {
		return fmt.Errorf("graph has no nodes")
	}
	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("graph contains a node without an id")
		}
		if ids[n.ID] {
			return fmt.Errorf("duplicate task id %q", n.ID)
		}
		ids[n.ID] = true
	}
	edges := make(map[Edge]bool, len(g.Edges))
	for _, e := range g.Edges {
		if !ids[e.Upstream] || !ids[e.Downstream] {
			return fmt.Errorf("edge %v references an unknown task", e)
		}
		if e.Upstream == e.Downstream {
			return fmt.Errorf("edge %v is a self loop", e)
		}
		if edges[e] {
			return fmt.Errorf("duplicate edge %v", e)
		}
		edges[e] = true
	}
	if _, err := g.TopologicalOrder(); err != nil {
		return err
	}
	if s := g.Sources(); len(s) != 1 {
		return fmt.Errorf("graph must have exactly one source, found %v", s)
	}
	if s := g.Sinks(); len(s) != 1 {
		return fmt.Errorf("graph must have exactly one sink, found %v", s)
	}
	return nil
}
