/*
Copyright © 2025 the larray authors.
This file is part of larray.

larray is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

larray is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with larray.  If not, see <http://www.gnu.org/licenses/>.
*/

package larray

import (
	"context"
	"fmt"
	"sync"

	"github.com/ctessum/sparse"
)

// runFunc calculates one chunk from the chunks produced by the
// task's dependencies, in dependency order.
type runFunc func(ctx context.Context, deps []*sparse.DenseArray) (*sparse.DenseArray, error)

// Task is one node of the dependency graph: a deferred calculation
// producing a single chunk.
type Task struct {
	key   string
	label string
	deps  []*Task
	run   runFunc

	mu   sync.Mutex
	done bool
	res  *sparse.DenseArray
	err  error
}

// Key returns the task's identity. Tasks with equal keys produce
// equal chunks and are merged when recorded in a Graph.
func (t *Task) Key() string { return t.key }

// Label returns the operation name the task was recorded under.
func (t *Task) Label() string { return t.label }

// result returns the stored chunk, or ok=false if the task has not
// run yet.
func (t *Task) result() (d *sparse.DenseArray, err error, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.res, t.err, t.done
}

// setResult stores the outcome of running the task. Results are
// write-once; later calls are ignored.
func (t *Task) setResult(d *sparse.DenseArray, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	t.res = d
	t.err = err
}

// invalidate drops a stored chunk so it will be recalculated.
func (t *Task) invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = false
	t.res = nil
	t.err = nil
}

// Graph records the tasks that lazy array operations create.
// The graph is acyclic by construction: a task can only depend on
// tasks that already exist. Methods are safe for concurrent use.
type Graph struct {
	mu    sync.Mutex
	tasks map[string]*Task
	order []*Task // insertion order, for stable DOT output
	next  int
}

// NewGraph creates an empty task graph.
func NewGraph() *Graph {
	return &Graph{tasks: make(map[string]*Task)}
}

// task records a task under the given key, or returns the existing
// task if an equal key was already recorded. This merges shared
// subexpressions so they only execute once.
func (g *Graph) task(label, key string, deps []*Task, run runFunc) *Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok := g.tasks[key]; ok {
		return t
	}
	t := &Task{key: key, label: label, deps: deps, run: run}
	g.tasks[key] = t
	g.order = append(g.order, t)
	return t
}

// fresh returns a graph-unique id for tasks whose identity cannot be
// derived from their inputs, such as those wrapping arbitrary Go
// functions.
func (g *Graph) fresh() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.next
}

// Len returns the number of tasks recorded in the graph.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tasks)
}

// Invalidate drops all stored chunks in the graph so the next
// Compute recalculates everything.
func (g *Graph) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range g.order {
		t.invalidate()
	}
}

// pending walks the dependency closure of the given roots and
// returns the tasks that still need to run, in an order where
// dependencies precede dependents.
func pending(roots []*Task) []*Task {
	var order []*Task
	seen := make(map[*Task]bool)
	var visit func(t *Task)
	visit = func(t *Task) {
		if seen[t] {
			return
		}
		seen[t] = true
		if _, _, ok := t.result(); ok {
			return
		}
		for _, d := range t.deps {
			visit(d)
		}
		order = append(order, t)
	}
	for _, t := range roots {
		visit(t)
	}
	return order
}

// tasksOf returns the chunk tasks of the arrays in order.
func tasksOf(arrays ...*Array) ([]*Task, error) {
	var roots []*Task
	for _, a := range arrays {
		if a == nil {
			return nil, fmt.Errorf("larray: nil array")
		}
		for _, c := range a.chunks {
			roots = append(roots, c.task)
		}
	}
	return roots, nil
}
