package graph

import (
	"fmt"
	"sort"
)

// SetParent moves id under parent (nil makes it a root).
// It fails with ErrCycle when parent is id itself or one of its descendants.
func (g *Graph) SetParent(id uint, parent *uint) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w %d", ErrUnknownTask, id)
	}
	if parent != nil {
		if _, ok := g.nodes[*parent]; !ok {
			return fmt.Errorf("%w %d", ErrUnknownTask, *parent)
		}
		if g.isAncestorOrSelf(id, *parent) {
			return fmt.Errorf("%w: task %d cannot be placed under %d", ErrCycle, id, *parent)
		}
	}
	n.parent = copyID(parent)
	return nil
}

// isAncestorOrSelf walks up from node and reports whether it meets ancestor.
// Parents missing from the arena end the walk.
func (g *Graph) isAncestorOrSelf(ancestor, node uint) bool {
	seen := make(map[uint]bool)
	cur := &node
	for cur != nil {
		if *cur == ancestor {
			return true
		}
		if seen[*cur] {
			return false
		}
		seen[*cur] = true
		n, ok := g.nodes[*cur]
		if !ok {
			return false
		}
		cur = n.parent
	}
	return false
}

// Children returns the direct children of id in ascending order.
func (g *Graph) Children(id uint) []uint {
	var out []uint
	for cid, n := range g.nodes {
		if n.parent != nil && *n.parent == id {
			out = append(out, cid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Roots returns tasks without a parent, including tasks whose parent is missing.
func (g *Graph) Roots() []uint {
	var out []uint
	for id, n := range g.nodes {
		if n.parent == nil {
			out = append(out, id)
			continue
		}
		if _, ok := g.nodes[*n.parent]; !ok {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Depth is the number of known ancestors of id.
func (g *Graph) Depth(id uint) int {
	depth := 0
	seen := map[uint]bool{id: true}
	n, ok := g.nodes[id]
	for ok && n.parent != nil {
		if seen[*n.parent] {
			break
		}
		seen[*n.parent] = true
		n, ok = g.nodes[*n.parent]
		if !ok {
			break
		}
		depth++
	}
	return depth
}

// Descendants returns every task below id, depth first, children in ascending order.
func (g *Graph) Descendants(id uint) []uint {
	var out []uint
	seen := map[uint]bool{id: true}
	var walk func(uint)
	walk = func(cur uint) {
		for _, c := range g.Children(cur) {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// TopoOrder orders tasks so every predecessor comes before its successors.
// Ties are broken by id. It fails with ErrCycle when the dependency graph has a cycle.
func (g *Graph) TopoOrder() ([]uint, error) {
	indegree := make(map[uint]int, len(g.nodes))
	for id, n := range g.nodes {
		indegree[id] = len(n.preds)
	}
	var ready []uint
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	out := make([]uint, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		cur := ready[0]
		ready = ready[1:]
		out = append(out, cur)
		for next := range g.nodes[cur].succs {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	if len(out) != len(g.nodes) {
		return nil, fmt.Errorf("%w in dependency graph", ErrCycle)
	}
	return out, nil
}
