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

	"github.com/ctessum/sparse"

	"github.com/larray-project/larray/internal/hash"
)

// Rechunk records a lazy re-blocking of the array into chunks of at
// most chunkRows leading-axis rows. Chunks that already match are
// passed through unchanged.
func (a *Array) Rechunk(chunkRows int) (*Array, error) {
	return a.rechunkTo(chunkLayout(a.shape[0], chunkRows))
}

// rechunkTo re-blocks the array to the exact leading-axis layout
// given. Each output chunk depends only on the input chunks it
// overlaps.
func (a *Array) rechunkTo(layout []int) (*Array, error) {
	total := 0
	for _, r := range layout {
		total += r
	}
	if total != a.shape[0] {
		return nil, fmt.Errorf("larray: rechunk layout %v covers %d rows but the leading dimension has %d", layout, total, a.shape[0])
	}
	tasks := make([]*Task, len(layout))
	off := 0
	for i, rows := range layout {
		lo, hi := off, off+rows
		overlap := a.overlapping(lo, hi)
		if len(overlap) == 1 && overlap[0].off == lo && overlap[0].rows == rows {
			tasks[i] = overlap[0].task
			off += rows
			continue
		}
		cs := chunkShape(a.shape, rows)
		stride := rowSize(a.shape)
		deps := make([]*Task, len(overlap))
		keyParts := []interface{}{"rechunk", lo, hi}
		for j, c := range overlap {
			deps[j] = c.task
			keyParts = append(keyParts, c.task.key)
		}
		srcOffs := make([]int, len(overlap))
		for j, c := range overlap {
			srcOffs[j] = c.off
		}
		tasks[i] = a.g.task("rechunk", hash.Key(keyParts...), deps,
			func(ctx context.Context, in []*sparse.DenseArray) (*sparse.DenseArray, error) {
				out := sparse.ZerosDense(cs...)
				for j, d := range in {
					// Intersect [srcOffs[j], srcOffs[j]+rows(d)) with [lo, hi).
					sLo, sHi := srcOffs[j], srcOffs[j]+d.Shape[0]
					if sLo < lo {
						sLo = lo
					}
					if sHi > hi {
						sHi = hi
					}
					copy(out.Elements[(sLo-lo)*stride:(sHi-lo)*stride],
						d.Elements[(sLo-srcOffs[j])*stride:(sHi-srcOffs[j])*stride])
				}
				return out, nil
			})
		off += rows
	}
	return newArray(a.g, a.shape, layout, tasks), nil
}

// overlapping returns the chunks intersecting leading-axis rows
// [lo, hi).
func (a *Array) overlapping(lo, hi int) []*chunk {
	var out []*chunk
	for _, c := range a.chunks {
		if c.off < hi && c.off+c.rows > lo {
			out = append(out, c)
		}
	}
	return out
}

// Slice records a lazy hyperslab of leading-axis rows [lo, hi).
// Chunks fully inside the slab are reused without copying.
func (a *Array) Slice(lo, hi int) (*Array, error) {
	if lo < 0 || hi > a.shape[0] || lo >= hi {
		return nil, fmt.Errorf("larray: slice [%d, %d) out of range for leading dimension %d", lo, hi, a.shape[0])
	}
	outShape := make([]int, len(a.shape))
	copy(outShape, a.shape)
	outShape[0] = hi - lo
	stride := rowSize(a.shape)

	var layout []int
	var tasks []*Task
	for _, c := range a.overlapping(lo, hi) {
		sLo, sHi := c.off, c.off+c.rows
		if sLo < lo {
			sLo = lo
		}
		if sHi > hi {
			sHi = hi
		}
		rows := sHi - sLo
		layout = append(layout, rows)
		if sLo == c.off && sHi == c.off+c.rows {
			tasks = append(tasks, c.task)
			continue
		}
		cLo, cHi := sLo-c.off, sHi-c.off
		cs := chunkShape(a.shape, rows)
		key := hash.Key("slice", cLo, cHi, c.task.key)
		tasks = append(tasks, a.g.task("slice", key, []*Task{c.task},
			func(ctx context.Context, in []*sparse.DenseArray) (*sparse.DenseArray, error) {
				out := sparse.ZerosDense(cs...)
				copy(out.Elements, in[0].Elements[cLo*stride:cHi*stride])
				return out, nil
			}))
	}
	return newArray(a.g, outShape, layout, tasks), nil
}

// SubsetAxis records a lazy subset of indexes [lo, hi) along a
// non-leading axis; the chunk layout is unchanged. Use Slice for
// axis 0.
func (a *Array) SubsetAxis(axis, lo, hi int) (*Array, error) {
	if axis <= 0 || axis >= len(a.shape) {
		return nil, fmt.Errorf("larray: subset axis %d out of range for shape %v (use Slice for axis 0)", axis, a.shape)
	}
	if lo < 0 || hi > a.shape[axis] || lo >= hi {
		return nil, fmt.Errorf("larray: subset [%d, %d) out of range for axis %d of length %d", lo, hi, axis, a.shape[axis])
	}
	outShape := make([]int, len(a.shape))
	copy(outShape, a.shape)
	outShape[axis] = hi - lo

	tasks := make([]*Task, len(a.chunks))
	for i, c := range a.chunks {
		cs := chunkShape(outShape, c.rows)
		key := hash.Key("subset", axis, lo, hi, c.task.key)
		tasks[i] = a.g.task("subset", key, []*Task{c.task},
			func(ctx context.Context, in []*sparse.DenseArray) (*sparse.DenseArray, error) {
				d := in[0]
				out := sparse.ZerosDense(cs...)
				for j := range out.Elements {
					index := out.IndexNd(j)
					index[axis] += lo
					out.Elements[j] = d.Get(index...)
				}
				return out, nil
			})
	}
	return newArray(a.g, outShape, a.ChunkRows(), tasks), nil
}
