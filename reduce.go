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
	"math"

	"github.com/ctessum/sparse"

	"github.com/larray-project/larray/internal/hash"
)

// reduceOp is an associative, commutative pairwise combination with
// an identity element, suitable for tree reduction across chunks.
type reduceOp struct {
	name    string
	init    float64
	combine func(x, y float64) float64
}

var (
	opSum = reduceOp{"sum", 0, func(x, y float64) float64 { return x + y }}
	opMax = reduceOp{"max", math.Inf(-1), math.Max}
	opMin = reduceOp{"min", math.Inf(1), math.Min}
)

// reduceDense reduces d along the given axis, producing an array of
// rank len(d.Shape)-1, or shape [1] when d is one-dimensional.
func reduceDense(d *sparse.DenseArray, axis int, op reduceOp) *sparse.DenseArray {
	outShape := dropAxis(d.Shape, axis)
	out := sparse.ZerosDense(outShape...)
	for i := range out.Elements {
		out.Elements[i] = op.init
	}
	for i, v := range d.Elements {
		index := d.IndexNd(i)
		j := out.Index1d(dropAxis(index, axis)...)
		out.Elements[j] = op.combine(out.Elements[j], v)
	}
	return out
}

// dropAxis removes element axis from s, returning [1] when that
// would leave nothing.
func dropAxis(s []int, axis int) []int {
	out := make([]int, 0, len(s)-1)
	out = append(out, s[:axis]...)
	out = append(out, s[axis+1:]...)
	if len(out) == 0 {
		out = []int{1}
	}
	return out
}

// Reduce records a lazy reduction along the given axis. Axis 0
// reduces each chunk and then combines the per-chunk partials
// pairwise; trailing axes reduce within each chunk, keeping the
// chunk layout.
func (a *Array) Reduce(op string, axis int) (*Array, error) {
	switch op {
	case "sum":
		return a.reduce(opSum, axis)
	case "mean":
		return a.Mean(axis)
	case "max":
		return a.reduce(opMax, axis)
	case "min":
		return a.reduce(opMin, axis)
	case "std":
		return a.Std(axis)
	}
	return nil, fmt.Errorf("larray: unknown reduction %q (want sum, mean, max, min, or std)", op)
}

// Sum records a lazy sum along the given axis.
func (a *Array) Sum(axis int) (*Array, error) { return a.reduce(opSum, axis) }

// Max records a lazy maximum along the given axis.
func (a *Array) Max(axis int) (*Array, error) { return a.reduce(opMax, axis) }

// Min records a lazy minimum along the given axis.
func (a *Array) Min(axis int) (*Array, error) { return a.reduce(opMin, axis) }

// Mean records a lazy arithmetic mean along the given axis.
func (a *Array) Mean(axis int) (*Array, error) {
	s, err := a.reduce(opSum, axis)
	if err != nil {
		return nil, err
	}
	return s.Scale(1 / float64(a.shape[axis])), nil
}

// Std records a lazy population standard deviation along the given
// axis, calculated from the sum and the sum of squares.
func (a *Array) Std(axis int) (*Array, error) {
	sum, err := a.reduce(opSum, axis)
	if err != nil {
		return nil, err
	}
	sumsq, err := a.Apply("square", func(v float64) float64 { return v * v }).reduce(opSum, axis)
	if err != nil {
		return nil, err
	}
	n := float64(a.shape[axis])
	return Map("std", func(vals []float64) float64 {
		mean := vals[0] / n
		return math.Sqrt(vals[1]/n - mean*mean)
	}, sum, sumsq)
}

func (a *Array) reduce(op reduceOp, axis int) (*Array, error) {
	if axis < 0 || axis >= len(a.shape) {
		return nil, fmt.Errorf("larray: reduction axis %d out of range for shape %v", axis, a.shape)
	}
	if axis > 0 {
		return a.reduceTrailing(op, axis), nil
	}
	return a.reduceLeading(op), nil
}

// reduceTrailing reduces within each chunk along a non-leading axis;
// the chunk layout is unchanged.
func (a *Array) reduceTrailing(op reduceOp, axis int) *Array {
	tasks := make([]*Task, len(a.chunks))
	for i, c := range a.chunks {
		key := hash.Key("reduce", op.name, axis, c.task.key)
		tasks[i] = a.g.task(op.name, key, []*Task{c.task},
			func(ctx context.Context, deps []*sparse.DenseArray) (*sparse.DenseArray, error) {
				return reduceDense(deps[0], axis, op), nil
			})
	}
	return newArray(a.g, dropAxis(a.shape, axis), a.ChunkRows(), tasks)
}

// reduceLeading reduces each chunk along axis 0 to one partial and
// combines the partials pairwise until one remains. The result is a
// single-chunk array with the leading axis dropped.
func (a *Array) reduceLeading(op reduceOp) *Array {
	outShape := dropAxis(a.shape, 0)
	partials := make([]*Task, len(a.chunks))
	for i, c := range a.chunks {
		key := hash.Key("reduce", op.name, 0, c.task.key)
		partials[i] = a.g.task(op.name, key, []*Task{c.task},
			func(ctx context.Context, deps []*sparse.DenseArray) (*sparse.DenseArray, error) {
				return reduceDense(deps[0], 0, op), nil
			})
	}
	for len(partials) > 1 {
		var next []*Task
		for i := 0; i < len(partials); i += 2 {
			if i+1 == len(partials) {
				next = append(next, partials[i])
				break
			}
			x, y := partials[i], partials[i+1]
			key := hash.Key("combine", op.name, x.key, y.key)
			next = append(next, a.g.task(op.name+"-combine", key, []*Task{x, y},
				func(ctx context.Context, deps []*sparse.DenseArray) (*sparse.DenseArray, error) {
					out := deps[0].Copy()
					for j, v := range deps[1].Elements {
						out.Elements[j] = op.combine(out.Elements[j], v)
					}
					return out, nil
				}))
		}
		partials = next
	}
	return newArray(a.g, outShape, []int{outShape[0]}, partials)
}

// totalReduce collapses all axes to one deferred number.
func (a *Array) totalReduce(op reduceOp) *Scalar {
	partials := make([]*Task, len(a.chunks))
	for i, c := range a.chunks {
		key := hash.Key("total", op.name, c.task.key)
		partials[i] = a.g.task("total-"+op.name, key, []*Task{c.task},
			func(ctx context.Context, deps []*sparse.DenseArray) (*sparse.DenseArray, error) {
				acc := op.init
				for _, v := range deps[0].Elements {
					acc = op.combine(acc, v)
				}
				out := sparse.ZerosDense(1)
				out.Elements[0] = acc
				return out, nil
			})
	}
	for len(partials) > 1 {
		var next []*Task
		for i := 0; i < len(partials); i += 2 {
			if i+1 == len(partials) {
				next = append(next, partials[i])
				break
			}
			x, y := partials[i], partials[i+1]
			key := hash.Key("total-combine", op.name, x.key, y.key)
			next = append(next, a.g.task("total-"+op.name+"-combine", key, []*Task{x, y},
				func(ctx context.Context, deps []*sparse.DenseArray) (*sparse.DenseArray, error) {
					out := sparse.ZerosDense(1)
					out.Elements[0] = op.combine(deps[0].Elements[0], deps[1].Elements[0])
					return out, nil
				}))
		}
		partials = next
	}
	return &Scalar{a: newArray(a.g, []int{1}, []int{1}, partials)}
}

// TotalSum records the lazy sum of all elements.
func (a *Array) TotalSum() *Scalar { return a.totalReduce(opSum) }

// TotalMax records the lazy maximum of all elements.
func (a *Array) TotalMax() *Scalar { return a.totalReduce(opMax) }

// TotalMin records the lazy minimum of all elements.
func (a *Array) TotalMin() *Scalar { return a.totalReduce(opMin) }

// TotalMean records the lazy mean of all elements.
func (a *Array) TotalMean() *Scalar {
	s := a.totalReduce(opSum)
	return &Scalar{a: s.a.Scale(1 / float64(a.Size()))}
}

// TotalStd records the lazy population standard deviation of all
// elements.
func (a *Array) TotalStd() (*Scalar, error) {
	sum := a.totalReduce(opSum)
	sumsq := a.Apply("square", func(v float64) float64 { return v * v }).totalReduce(opSum)
	n := float64(a.Size())
	out, err := Map("total-std", func(vals []float64) float64 {
		mean := vals[0] / n
		return math.Sqrt(vals[1]/n - mean*mean)
	}, sum.a, sumsq.a)
	if err != nil {
		return nil, err
	}
	return &Scalar{a: out}, nil
}
