// Package graph holds the in-memory view of a project's task relations:
// the parent/child tree and the predecessor/successor dependency graph.
//
// Tasks live in an arena keyed by id; every relation is stored as ids, never pointers.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"gantt-tracker/internal/model"
)

var (
	// ErrInvalidEdge covers self-dependencies, duplicate edges and edges to unknown tasks.
	ErrInvalidEdge = errors.New("invalid edge")
	// ErrCycle is returned when an edge or a parent link would close a cycle.
	ErrCycle = errors.New("cycle")
	// ErrUnknownTask is returned for ids missing from the arena.
	ErrUnknownTask = errors.New("unknown task")
)

type node struct {
	parent *uint
	preds  map[uint]struct{}
	succs  map[uint]struct{}
}

// Graph is not safe for concurrent use; build one per request.
type Graph struct {
	nodes map[uint]*node
	// Acyclic rejects dependency edges that would close a multi-hop cycle.
	Acyclic bool
}

func New(acyclic bool) *Graph {
	return &Graph{nodes: make(map[uint]*node), Acyclic: acyclic}
}

// Build loads tasks and edges into a new graph. Edges that reference unknown tasks are ignored.
func Build(tasks []model.Task, edges []model.TaskDependency, acyclic bool) *Graph {
	g := New(acyclic)
	for _, t := range tasks {
		g.AddTask(t.ID, t.ParentID)
	}
	for _, e := range edges {
		p, okP := g.nodes[e.PredecessorID]
		s, okS := g.nodes[e.SuccessorID]
		if !okP || !okS || e.PredecessorID == e.SuccessorID {
			continue
		}
		p.succs[e.SuccessorID] = struct{}{}
		s.preds[e.PredecessorID] = struct{}{}
	}
	return g
}

// AddTask registers a task id. Re-adding an id only updates its parent.
func (g *Graph) AddTask(id uint, parent *uint) {
	n, ok := g.nodes[id]
	if !ok {
		n = &node{preds: make(map[uint]struct{}), succs: make(map[uint]struct{})}
		g.nodes[id] = n
	}
	n.parent = copyID(parent)
}

func (g *Graph) Has(id uint) bool {
	_, ok := g.nodes[id]
	return ok
}

// AddEdge inserts predecessor -> successor.
func (g *Graph) AddEdge(predecessor, successor uint) error {
	if predecessor == successor {
		return fmt.Errorf("%w: task %d cannot depend on itself", ErrInvalidEdge, predecessor)
	}
	p, ok := g.nodes[predecessor]
	if !ok {
		return fmt.Errorf("%w: %w %d", ErrInvalidEdge, ErrUnknownTask, predecessor)
	}
	s, ok := g.nodes[successor]
	if !ok {
		return fmt.Errorf("%w: %w %d", ErrInvalidEdge, ErrUnknownTask, successor)
	}
	if _, dup := p.succs[successor]; dup {
		return fmt.Errorf("%w: dependency %d->%d already exists", ErrInvalidEdge, predecessor, successor)
	}
	if g.Acyclic && g.reaches(successor, predecessor) {
		return fmt.Errorf("%w: %w: %d->%d", ErrInvalidEdge, ErrCycle, predecessor, successor)
	}
	p.succs[successor] = struct{}{}
	s.preds[predecessor] = struct{}{}
	return nil
}

// RemoveEdge deletes predecessor -> successor and reports whether it existed.
func (g *Graph) RemoveEdge(predecessor, successor uint) bool {
	p, ok := g.nodes[predecessor]
	if !ok {
		return false
	}
	if _, ok := p.succs[successor]; !ok {
		return false
	}
	delete(p.succs, successor)
	if s, ok := g.nodes[successor]; ok {
		delete(s.preds, predecessor)
	}
	return true
}

// ReplaceSuccessorEdges drops every incoming edge of id and inserts one per predecessor.
// The list is deduplicated and self references are skipped. It returns the ids actually
// linked, in input order. On error the previous incoming edges are restored.
func (g *Graph) ReplaceSuccessorEdges(id uint, predecessors []uint) ([]uint, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrUnknownTask, id)
	}
	previous := g.PredecessorsOf(id)
	for p := range n.preds {
		delete(g.nodes[p].succs, id)
	}
	n.preds = make(map[uint]struct{})

	linked := make([]uint, 0, len(predecessors))
	for _, p := range NormalizePredecessors(id, predecessors) {
		if err := g.AddEdge(p, id); err != nil {
			for _, done := range linked {
				g.RemoveEdge(done, id)
			}
			for _, old := range previous {
				_ = g.AddEdge(old, id)
			}
			return nil, err
		}
		linked = append(linked, p)
	}
	return linked, nil
}

// NormalizePredecessors removes duplicates and self references, keeping the first occurrence order.
func NormalizePredecessors(id uint, predecessors []uint) []uint {
	seen := make(map[uint]struct{}, len(predecessors))
	out := make([]uint, 0, len(predecessors))
	for _, p := range predecessors {
		if p == id {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// PredecessorsOf returns the direct predecessors of id in ascending order.
func (g *Graph) PredecessorsOf(id uint) []uint {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return sortedIDs(n.preds)
}

// SuccessorsOf returns the direct successors of id in ascending order.
func (g *Graph) SuccessorsOf(id uint) []uint {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return sortedIDs(n.succs)
}

// reaches reports whether to is reachable from from along successor edges.
func (g *Graph) reaches(from, to uint) bool {
	if from == to {
		return true
	}
	visited := map[uint]bool{from: true}
	stack := []uint{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range g.nodes[cur].succs {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

func sortedIDs(set map[uint]struct{}) []uint {
	ids := make([]uint, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func copyID(id *uint) *uint {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
