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

// zip records a lazy elementwise combination of two arrays with the
// same shape. The second array is re-blocked to the first array's
// chunk layout if the layouts differ.
func (a *Array) zip(label string, b *Array, f func(x, y float64) float64) (*Array, error) {
	if err := sameShape(a.shape, b.shape); err != nil {
		return nil, fmt.Errorf("larray: %s: %v", label, err)
	}
	if !sameLayout(a, b) {
		var err error
		if b, err = b.rechunkTo(a.ChunkRows()); err != nil {
			return nil, err
		}
	}
	tasks := make([]*Task, len(a.chunks))
	for i := range a.chunks {
		ca, cb := a.chunks[i], b.chunks[i]
		key := hash.Key(label, ca.task.key, cb.task.key)
		tasks[i] = a.g.task(label, key, []*Task{ca.task, cb.task},
			func(ctx context.Context, deps []*sparse.DenseArray) (*sparse.DenseArray, error) {
				x, y := deps[0], deps[1]
				out := sparse.ZerosDense(x.Shape...)
				for j, v := range x.Elements {
					out.Elements[j] = f(v, y.Elements[j])
				}
				return out, nil
			})
	}
	return newArray(a.g, a.shape, a.ChunkRows(), tasks), nil
}

func sameLayout(a, b *Array) bool {
	if len(a.chunks) != len(b.chunks) {
		return false
	}
	for i := range a.chunks {
		if a.chunks[i].rows != b.chunks[i].rows {
			return false
		}
	}
	return true
}

// Add records lazy elementwise addition a + b.
func (a *Array) Add(b *Array) (*Array, error) {
	return a.zip("add", b, func(x, y float64) float64 { return x + y })
}

// Sub records lazy elementwise subtraction a - b.
func (a *Array) Sub(b *Array) (*Array, error) {
	return a.zip("sub", b, func(x, y float64) float64 { return x - y })
}

// Mul records lazy elementwise multiplication a * b.
func (a *Array) Mul(b *Array) (*Array, error) {
	return a.zip("mul", b, func(x, y float64) float64 { return x * y })
}

// Div records lazy elementwise division a / b. Division by zero
// follows IEEE 754 (Inf or NaN), as in the underlying dense arrays.
func (a *Array) Div(b *Array) (*Array, error) {
	return a.zip("div", b, func(x, y float64) float64 { return x / y })
}

// Scale records lazy multiplication by a constant.
func (a *Array) Scale(v float64) *Array {
	return a.mapChunks("scale", hash.Key("scale", v),
		func(d *sparse.DenseArray) *sparse.DenseArray {
			out := d.Copy()
			out.Scale(v)
			return out
		})
}

// AddScalar records lazy addition of a constant to every element.
func (a *Array) AddScalar(v float64) *Array {
	return a.mapChunks("addscalar", hash.Key("addscalar", v),
		func(d *sparse.DenseArray) *sparse.DenseArray {
			out := sparse.ZerosDense(d.Shape...)
			for j, x := range d.Elements {
				out.Elements[j] = x + v
			}
			return out
		})
}

// Apply records a lazy elementwise application of f. label must
// uniquely identify f within the graph: it is the only part of the
// task identity that distinguishes one function from another.
func (a *Array) Apply(label string, f func(v float64) float64) *Array {
	return a.mapChunks(label, hash.Key("apply", label),
		func(d *sparse.DenseArray) *sparse.DenseArray {
			out := sparse.ZerosDense(d.Shape...)
			for j, x := range d.Elements {
				out.Elements[j] = f(x)
			}
			return out
		})
}

// mapChunks records a chunk-local transformation that preserves the
// chunk layout. opKey distinguishes operations with equal inputs.
func (a *Array) mapChunks(label, opKey string, f func(d *sparse.DenseArray) *sparse.DenseArray) *Array {
	tasks := make([]*Task, len(a.chunks))
	for i, c := range a.chunks {
		key := hash.Key(opKey, c.task.key)
		tasks[i] = a.g.task(label, key, []*Task{c.task},
			func(ctx context.Context, deps []*sparse.DenseArray) (*sparse.DenseArray, error) {
				return f(deps[0]), nil
			})
	}
	return newArray(a.g, a.shape, a.ChunkRows(), tasks)
}

// Map records a lazy elementwise combination of several same-shaped
// arrays: out[i] = f(arrays[0][i], arrays[1][i], ...). label must
// uniquely identify f within the graph. All arrays are re-blocked to
// the first array's chunk layout if needed.
func Map(label string, f func(vals []float64) float64, arrays ...*Array) (*Array, error) {
	if len(arrays) == 0 {
		return nil, fmt.Errorf("larray: map %s: no input arrays", label)
	}
	a := arrays[0]
	aligned := make([]*Array, len(arrays))
	for i, b := range arrays {
		if err := sameShape(a.shape, b.shape); err != nil {
			return nil, fmt.Errorf("larray: map %s: %v", label, err)
		}
		if !sameLayout(a, b) {
			var err error
			if b, err = b.rechunkTo(a.ChunkRows()); err != nil {
				return nil, err
			}
		}
		aligned[i] = b
	}
	tasks := make([]*Task, len(a.chunks))
	for i := range a.chunks {
		deps := make([]*Task, len(aligned))
		keyParts := []interface{}{"map", label}
		for j, b := range aligned {
			deps[j] = b.chunks[i].task
			keyParts = append(keyParts, b.chunks[i].task.key)
		}
		tasks[i] = a.g.task(label, hash.Key(keyParts...), deps,
			func(ctx context.Context, in []*sparse.DenseArray) (*sparse.DenseArray, error) {
				out := sparse.ZerosDense(in[0].Shape...)
				vals := make([]float64, len(in))
				for j := range out.Elements {
					for k, d := range in {
						vals[k] = d.Elements[j]
					}
					out.Elements[j] = f(vals)
				}
				return out, nil
			})
	}
	return newArray(a.g, a.shape, a.ChunkRows(), tasks), nil
}
