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
	"fmt"
	"io"
)

// Dot writes the dependency closure of the array in Graphviz DOT
// format, one node per task labeled with its operation name.
// Tasks are written in an order where dependencies come first.
func (a *Array) Dot(w io.Writer) error {
	roots, err := tasksOf(a)
	if err != nil {
		return err
	}
	return writeDot(w, closure(roots))
}

// Dot writes every task recorded in the graph in Graphviz DOT
// format.
func (g *Graph) Dot(w io.Writer) error {
	g.mu.Lock()
	tasks := make([]*Task, len(g.order))
	copy(tasks, g.order)
	g.mu.Unlock()
	return writeDot(w, tasks)
}

// closure returns the dependency closure of roots with dependencies
// before dependents, including tasks that already hold results.
func closure(roots []*Task) []*Task {
	var order []*Task
	seen := make(map[*Task]bool)
	var visit func(t *Task)
	visit = func(t *Task) {
		if seen[t] {
			return
		}
		seen[t] = true
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

func writeDot(w io.Writer, tasks []*Task) error {
	if _, err := fmt.Fprintln(w, "digraph tasks {"); err != nil {
		return err
	}
	fmt.Fprintln(w, "\trankdir=BT;")
	id := make(map[*Task]int, len(tasks))
	for i, t := range tasks {
		id[t] = i
		fmt.Fprintf(w, "\tn%d [label=%q];\n", i, t.label)
	}
	for _, t := range tasks {
		for _, d := range t.deps {
			if _, ok := id[d]; !ok {
				continue
			}
			fmt.Fprintf(w, "\tn%d -> n%d;\n", id[d], id[t])
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
