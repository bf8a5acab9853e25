package scan

import (
	"fmt"
	"slices"
	"sync/atomic"
)

// Graph is an arena of nodes wired into a directed acyclic graph.
type Graph struct {
	nodes   []*Node
	byName  map[string]int
	running atomic.Bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{byName: make(map[string]int)}
}

// AddNode appends a node for stage and returns its index.
func (g *Graph) AddNode(stage Stage) (int, error) {
	if stage.Name == "" {
		return 0, fmt.Errorf("%w: stage name is required", ErrInvalidGraph)
	}
	if stage.Transform == nil {
		return 0, fmt.Errorf("%w: stage %s has no transform", ErrInvalidGraph, stage.Name)
	}
	if _, exists := g.byName[stage.Name]; exists {
		return 0, fmt.Errorf("%w: duplicate stage %s", ErrInvalidGraph, stage.Name)
	}
	id := len(g.nodes)
	op := stage.Operation
	if op == "" {
		op = stage.Name
	}
	g.nodes = append(g.nodes, &Node{ID: id, Name: stage.Name, operation: op, transform: stage.Transform})
	g.byName[stage.Name] = id
	return id, nil
}

// Link adds an edge from parent to child, updating both adjacency lists.
func (g *Graph) Link(parent, child int) error {
	if !g.valid(parent) || !g.valid(child) {
		return fmt.Errorf("%w: edge %d -> %d references unknown node", ErrInvalidGraph, parent, child)
	}
	if parent == child {
		return fmt.Errorf("%w: node %s cannot depend on itself", ErrCycle, g.nodes[parent].Name)
	}
	p, c := g.nodes[parent], g.nodes[child]
	if slices.Contains(p.Children, child) {
		return fmt.Errorf("%w: duplicate edge %s -> %s", ErrInvalidGraph, p.Name, c.Name)
	}
	p.Children = append(p.Children, child)
	c.Parents = append(c.Parents, parent)
	return nil
}

// Node returns the node at id, or nil.
func (g *Graph) Node(id int) *Node {
	if !g.valid(id) {
		return nil
	}
	return g.nodes[id]
}

// Lookup returns the node with the given stage name.
func (g *Graph) Lookup(name string) (*Node, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Nodes returns the arena in construction order.
func (g *Graph) Nodes() []*Node {
	return slices.Clone(g.nodes)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Roots returns the indexes of nodes without parents.
func (g *Graph) Roots() []int {
	var roots []int
	for _, n := range g.nodes {
		if n.IsRoot() {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// Validate checks that adjacency lists agree in both directions and that
// the graph is acyclic.
func (g *Graph) Validate() error {
	if len(g.nodes) == 0 {
		return fmt.Errorf("%w: graph has no nodes", ErrInvalidGraph)
	}
	for _, n := range g.nodes {
		for _, child := range n.Children {
			if !g.valid(child) || !slices.Contains(g.nodes[child].Parents, n.ID) {
				return fmt.Errorf("%w: %s lists child %d without back reference", ErrInvalidGraph, n.Name, child)
			}
		}
		for _, parent := range n.Parents {
			if !g.valid(parent) || !slices.Contains(g.nodes[parent].Children, n.ID) {
				return fmt.Errorf("%w: %s lists parent %d without forward edge", ErrInvalidGraph, n.Name, parent)
			}
		}
	}
	if len(g.Roots()) == 0 {
		return fmt.Errorf("%w: graph has no root", ErrCycle)
	}
	return g.detectCycles()
}

// detectCycles runs a depth-first search with temporary and permanent marks.
func (g *Graph) detectCycles() error {
	const (
		unvisited = iota
		visiting
		visited
	)
	marks := make([]int, len(g.nodes))
	var visit func(id int, path []string) error
	visit = func(id int, path []string) error {
		switch marks[id] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("%w: %v", ErrCycle, append(path, g.nodes[id].Name))
		}
		marks[id] = visiting
		path = append(slices.Clone(path), g.nodes[id].Name)
		for _, child := range g.nodes[id].Children {
			if err := visit(child, path); err != nil {
				return err
			}
		}
		marks[id] = visited
		return nil
	}
	for id := range g.nodes {
		if marks[id] == unvisited {
			if err := visit(id, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Graph) valid(id int) bool {
	return id >= 0 && id < len(g.nodes)
}

func (g *Graph) reset() {
	for _, n := range g.nodes {
		n.reset()
	}
}
