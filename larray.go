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

// Package larray implements lazy, chunked, parallel computation on
// arrays that may be larger than memory.
//
// An Array is split into blocks ("chunks") along its leading
// dimension. Operations on Arrays do not calculate anything
// immediately; they record tasks in a dependency graph. Compute
// triggers execution of exactly the tasks the requested result
// depends on, running independent tasks concurrently on a worker
// pool. Chunks that have already been calculated are held by their
// tasks and are not recalculated by later Compute calls.
package larray

import (
	"context"
	"fmt"
	"strings"

	"github.com/ctessum/sparse"

	"github.com/larray-project/larray/internal/hash"
)

// Version gives the version number of this version of larray.
const Version = "0.1.0"

// Array is an n-dimensional array of float64 values split into
// chunks along its leading (slowest-varying) dimension.
// Arrays are immutable: every operation returns a new Array backed
// by new tasks in the same graph.
type Array struct {
	g     *Graph
	shape []int
	// chunks are ordered by increasing leading-axis offset and
	// tile the leading dimension exactly.
	chunks []*chunk
}

// chunk is one leading-axis block of an Array.
type chunk struct {
	task *Task
	rows int // length along the leading axis
	off  int // leading-axis offset of the first row
}

// checkShape returns an error if shape is not a valid array shape.
func checkShape(shape []int) error {
	if len(shape) == 0 {
		return fmt.Errorf("larray: array must have at least one dimension")
	}
	for i, d := range shape {
		if d <= 0 {
			return fmt.Errorf("larray: dimension %d has invalid length %d", i, d)
		}
	}
	return nil
}

// chunkLayout splits n rows into blocks of at most chunkRows rows.
// chunkRows <= 0 means a single block.
func chunkLayout(n, chunkRows int) []int {
	if chunkRows <= 0 || chunkRows >= n {
		return []int{n}
	}
	var layout []int
	for n > 0 {
		r := chunkRows
		if r > n {
			r = n
		}
		layout = append(layout, r)
		n -= r
	}
	return layout
}

// rowSize returns the number of elements in one leading-axis row.
func rowSize(shape []int) int {
	n := 1
	for _, d := range shape[1:] {
		n *= d
	}
	return n
}

// chunkShape gives the shape of a chunk holding rows leading-axis
// rows of an array with the given overall shape.
func chunkShape(shape []int, rows int) []int {
	s := make([]int, len(shape))
	copy(s, shape)
	s[0] = rows
	return s
}

// newArray assembles an Array from tasks which each produce one
// leading-axis block with the given number of rows.
func newArray(g *Graph, shape []int, rows []int, tasks []*Task) *Array {
	a := &Array{g: g, shape: shape}
	off := 0
	for i, t := range tasks {
		a.chunks = append(a.chunks, &chunk{task: t, rows: rows[i], off: off})
		off += rows[i]
	}
	return a
}

// Zeros creates a lazy array of the given shape filled with zeros,
// split into chunks of at most chunkRows leading-axis rows.
func Zeros(g *Graph, shape []int, chunkRows int) (*Array, error) {
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	layout := chunkLayout(shape[0], chunkRows)
	tasks := make([]*Task, len(layout))
	off := 0
	for i, rows := range layout {
		cs := chunkShape(shape, rows)
		key := hash.Key("zeros", cs, off)
		tasks[i] = g.task("zeros", key, nil,
			func(ctx context.Context, in []*sparse.DenseArray) (*sparse.DenseArray, error) {
				return sparse.ZerosDense(cs...), nil
			})
		off += rows
	}
	return newArray(g, shape, layout, tasks), nil
}

// FromDense creates a lazy array from data that is already in
// memory, split into chunks of at most chunkRows leading-axis rows.
// The data is not copied until tasks run, so d must not be modified
// afterwards.
func FromDense(g *Graph, d *sparse.DenseArray, chunkRows int) (*Array, error) {
	if err := checkShape(d.Shape); err != nil {
		return nil, err
	}
	shape := make([]int, len(d.Shape))
	copy(shape, d.Shape)
	layout := chunkLayout(shape[0], chunkRows)
	stride := rowSize(shape)
	tasks := make([]*Task, len(layout))
	off := 0
	for i, rows := range layout {
		lo, hi := off, off+rows
		cs := chunkShape(shape, rows)
		key := hash.Key("dense", g.fresh(), lo, hi)
		tasks[i] = g.task("dense", key, nil,
			func(ctx context.Context, in []*sparse.DenseArray) (*sparse.DenseArray, error) {
				out := sparse.ZerosDense(cs...)
				copy(out.Elements, d.Elements[lo*stride:hi*stride])
				return out, nil
			})
		off += rows
	}
	return newArray(g, shape, layout, tasks), nil
}

// Generate creates a lazy array whose elements are calculated by f,
// which receives the n-dimensional index of each element.
// Generated arrays are not content-addressed: two Generate calls
// with identical arguments produce independent tasks.
func Generate(g *Graph, shape []int, chunkRows int, f func(index []int) float64) (*Array, error) {
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	layout := chunkLayout(shape[0], chunkRows)
	id := g.fresh()
	tasks := make([]*Task, len(layout))
	off := 0
	for i, rows := range layout {
		o := off
		cs := chunkShape(shape, rows)
		key := hash.Key("generate", id, o)
		tasks[i] = g.task("generate", key, nil,
			func(ctx context.Context, in []*sparse.DenseArray) (*sparse.DenseArray, error) {
				out := sparse.ZerosDense(cs...)
				for j := range out.Elements {
					index := out.IndexNd(j)
					index[0] += o
					out.Elements[j] = f(index)
				}
				return out, nil
			})
		off += rows
	}
	return newArray(g, shape, layout, tasks), nil
}

// SourceChunk describes one leading-axis block of externally stored
// data, for example a slab of a NetCDF variable. Key must uniquely
// identify the block contents; Load is called at most once per
// computation to materialize it.
type SourceChunk struct {
	Rows int
	Key  string
	Load func(ctx context.Context) (*sparse.DenseArray, error)
}

// NewSource creates a lazy array backed by externally stored chunks.
// The chunk row counts must sum to shape[0], and each loaded block
// must have the corresponding chunk shape.
func NewSource(g *Graph, shape []int, chunks []SourceChunk) (*Array, error) {
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	total := 0
	for _, c := range chunks {
		total += c.Rows
	}
	if total != shape[0] {
		return nil, fmt.Errorf("larray: source chunks cover %d rows but the leading dimension has %d", total, shape[0])
	}
	layout := make([]int, len(chunks))
	tasks := make([]*Task, len(chunks))
	for i, c := range chunks {
		layout[i] = c.Rows
		cs := chunkShape(shape, c.Rows)
		load := c.Load
		tasks[i] = g.task("source", hash.Key("source", c.Key), nil,
			func(ctx context.Context, in []*sparse.DenseArray) (*sparse.DenseArray, error) {
				d, err := load(ctx)
				if err != nil {
					return nil, err
				}
				if err := sameShape(d.Shape, cs); err != nil {
					return nil, fmt.Errorf("larray: loading source chunk: %v", err)
				}
				return d, nil
			})
	}
	return newArray(g, shape, layout, tasks), nil
}

func sameShape(a, b []int) error {
	if len(a) != len(b) {
		return fmt.Errorf("rank %d does not match rank %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			return fmt.Errorf("shape %v does not match shape %v", a, b)
		}
	}
	return nil
}

// Shape returns a copy of the array shape.
func (a *Array) Shape() []int {
	s := make([]int, len(a.shape))
	copy(s, a.shape)
	return s
}

// Size returns the total number of elements.
func (a *Array) Size() int {
	n := 1
	for _, d := range a.shape {
		n *= d
	}
	return n
}

// NChunks returns the number of leading-axis chunks.
func (a *Array) NChunks() int { return len(a.chunks) }

// ChunkRows returns the number of leading-axis rows in each chunk.
func (a *Array) ChunkRows() []int {
	rows := make([]int, len(a.chunks))
	for i, c := range a.chunks {
		rows[i] = c.rows
	}
	return rows
}

// Graph returns the task graph this array records its operations in.
func (a *Array) Graph() *Graph { return a.g }

func (a *Array) String() string {
	rows := make([]string, len(a.chunks))
	for i, c := range a.chunks {
		rows[i] = fmt.Sprint(c.rows)
	}
	return fmt.Sprintf("larray.Array{shape: %v, chunks: [%s]}", a.shape, strings.Join(rows, " "))
}
