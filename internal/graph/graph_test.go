package graph

import (
	"errors"
	"reflect"
	"testing"

	"gantt-tracker/internal/model"
)

func newGraph(acyclic bool, ids ...uint) *Graph {
	g := New(acyclic)
	for _, id := range ids {
		g.AddTask(id, nil)
	}
	return g
}

func uintPtr(v uint) *uint { return &v }

func TestAddEdge_Rejects(t *testing.T) {
	g := newGraph(true, 1, 2, 3)
	if err := g.AddEdge(1, 2); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	tests := []struct {
		name      string
		pred, suc uint
		cycle     bool
	}{
		{"self loop", 1, 1, false},
		{"duplicate", 1, 2, false},
		{"unknown predecessor", 9, 2, false},
		{"unknown successor", 1, 9, false},
		{"direct cycle", 2, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.AddEdge(tt.pred, tt.suc)
			if !errors.Is(err, ErrInvalidEdge) {
				t.Fatalf("err = %v, want ErrInvalidEdge", err)
			}
			if tt.cycle != errors.Is(err, ErrCycle) {
				t.Errorf("cycle flag mismatch: %v", err)
			}
		})
	}
	if !reflect.DeepEqual(g.SuccessorsOf(1), []uint{2}) || len(g.SuccessorsOf(2)) != 0 {
		t.Errorf("rejected edges were stored: 1->%v 2->%v", g.SuccessorsOf(1), g.SuccessorsOf(2))
	}
}

func TestAddEdge_MultiHopCycleConfigurable(t *testing.T) {
	strict := newGraph(true, 1, 2, 3)
	_ = strict.AddEdge(1, 2)
	_ = strict.AddEdge(2, 3)
	if err := strict.AddEdge(3, 1); !errors.Is(err, ErrCycle) {
		t.Errorf("acyclic graph accepted 3->1: %v", err)
	}

	lenient := newGraph(false, 1, 2, 3)
	_ = lenient.AddEdge(1, 2)
	_ = lenient.AddEdge(2, 3)
	if err := lenient.AddEdge(3, 1); err != nil {
		t.Errorf("lenient graph rejected 3->1: %v", err)
	}
	if _, err := lenient.TopoOrder(); !errors.Is(err, ErrCycle) {
		t.Errorf("TopoOrder err = %v, want ErrCycle", err)
	}
}

func TestReplaceSuccessorEdges_Idempotent(t *testing.T) {
	g := newGraph(true, 1, 2, 3, 4)
	_ = g.AddEdge(4, 3)

	linked, err := g.ReplaceSuccessorEdges(3, []uint{1, 2, 2, 3, 1})
	if err != nil {
		t.Fatalf("ReplaceSuccessorEdges: %v", err)
	}
	if !reflect.DeepEqual(linked, []uint{1, 2}) {
		t.Errorf("linked = %v, want [1 2]", linked)
	}
	first := g.PredecessorsOf(3)

	if _, err := g.ReplaceSuccessorEdges(3, []uint{1, 2, 2, 3, 1}); err != nil {
		t.Fatalf("second ReplaceSuccessorEdges: %v", err)
	}
	if !reflect.DeepEqual(first, g.PredecessorsOf(3)) {
		t.Errorf("not idempotent: %v vs %v", first, g.PredecessorsOf(3))
	}
	if len(g.SuccessorsOf(4)) != 0 {
		t.Errorf("old edge 4->3 survived the replace")
	}
}

func TestReplaceSuccessorEdges_RestoresOnError(t *testing.T) {
	g := newGraph(true, 1, 2, 3)
	_ = g.AddEdge(1, 2)
	_ = g.AddEdge(2, 3)

	if _, err := g.ReplaceSuccessorEdges(1, []uint{3}); !errors.Is(err, ErrCycle) {
		t.Fatalf("err = %v, want ErrCycle", err)
	}
	if _, err := g.ReplaceSuccessorEdges(2, []uint{99}); !errors.Is(err, ErrInvalidEdge) {
		t.Fatalf("err = %v, want ErrInvalidEdge", err)
	}
	if !reflect.DeepEqual(g.PredecessorsOf(2), []uint{1}) {
		t.Errorf("predecessors of 2 = %v, want [1]", g.PredecessorsOf(2))
	}
}

func TestBuild_SkipsDanglingEdges(t *testing.T) {
	tasks := []model.Task{{ID: 1}, {ID: 2, ParentID: uintPtr(1)}}
	edges := []model.TaskDependency{
		{PredecessorID: 1, SuccessorID: 2},
		{PredecessorID: 1, SuccessorID: 7},
		{PredecessorID: 2, SuccessorID: 2},
	}
	g := Build(tasks, edges, true)
	if !reflect.DeepEqual(g.SuccessorsOf(1), []uint{2}) || len(g.SuccessorsOf(2)) != 0 {
		t.Errorf("edges = 1->%v 2->%v, want only 1->2", g.SuccessorsOf(1), g.SuccessorsOf(2))
	}
	if !reflect.DeepEqual(g.Children(1), []uint{2}) {
		t.Errorf("Children(1) = %v", g.Children(1))
	}
}

func TestSetParent_RejectsCycles(t *testing.T) {
	g := newGraph(true, 1, 2, 3)
	if err := g.SetParent(2, uintPtr(1)); err != nil {
		t.Fatalf("SetParent: %v", err)
	}
	if err := g.SetParent(3, uintPtr(2)); err != nil {
		t.Fatalf("SetParent: %v", err)
	}

	if err := g.SetParent(1, uintPtr(3)); !errors.Is(err, ErrCycle) {
		t.Errorf("grandchild as parent: err = %v", err)
	}
	if err := g.SetParent(1, uintPtr(1)); !errors.Is(err, ErrCycle) {
		t.Errorf("self parent: err = %v", err)
	}
	if err := g.SetParent(1, uintPtr(42)); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("unknown parent: err = %v", err)
	}

	if g.Depth(3) != 2 {
		t.Errorf("Depth(3) = %d, want 2", g.Depth(3))
	}
	if !reflect.DeepEqual(g.Descendants(1), []uint{2, 3}) {
		t.Errorf("Descendants(1) = %v", g.Descendants(1))
	}
	if !reflect.DeepEqual(g.Roots(), []uint{1}) {
		t.Errorf("Roots = %v", g.Roots())
	}
}

func TestRoots_IncludesOrphans(t *testing.T) {
	g := New(true)
	g.AddTask(1, nil)
	g.AddTask(2, uintPtr(99))
	if !reflect.DeepEqual(g.Roots(), []uint{1, 2}) {
		t.Errorf("Roots = %v", g.Roots())
	}
	if g.Depth(2) != 0 {
		t.Errorf("Depth of orphan = %d", g.Depth(2))
	}
}

func TestTopoOrder(t *testing.T) {
	g := newGraph(true, 1, 2, 3, 4)
	_ = g.AddEdge(3, 1)
	_ = g.AddEdge(1, 2)
	order, err := g.TopoOrder()
	if err != nil {
		t.Fatalf("TopoOrder: %v", err)
	}
	if !reflect.DeepEqual(order, []uint{3, 1, 2, 4}) {
		t.Errorf("order = %v", order)
	}
}
