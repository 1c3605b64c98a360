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

package dataset

import (
	"fmt"

	"github.com/larray-project/larray"
)

// axis returns the position of the named dimension.
func (d *DataArray) axis(dim string) (int, error) {
	for i, name := range d.Dims {
		if name == dim {
			return i, nil
		}
	}
	return 0, fmt.Errorf("dataset: variable %q has no dimension %q (has %v)", d.Name, dim, d.Dims)
}

// Reduce records a lazy reduction (sum, mean, max, min, or std)
// over the named dimension, which is dropped from the result.
func (d *DataArray) Reduce(op, dim string) (*DataArray, error) {
	axis, err := d.axis(dim)
	if err != nil {
		return nil, err
	}
	a, err := d.data.Reduce(op, axis)
	if err != nil {
		return nil, err
	}
	dims := make([]string, 0, len(d.Dims)-1)
	dims = append(dims, d.Dims[:axis]...)
	dims = append(dims, d.Dims[axis+1:]...)
	if len(dims) == 0 {
		dims = []string{"scalar"}
	}
	return &DataArray{
		Name:  d.Name,
		Dims:  dims,
		Attrs: d.Attrs,
		ds:    d.ds,
		data:  a,
	}, nil
}

// Sum records a lazy sum over the named dimension.
func (d *DataArray) Sum(dim string) (*DataArray, error) { return d.Reduce("sum", dim) }

// Mean records a lazy mean over the named dimension.
func (d *DataArray) Mean(dim string) (*DataArray, error) { return d.Reduce("mean", dim) }

// Max records a lazy maximum over the named dimension.
func (d *DataArray) Max(dim string) (*DataArray, error) { return d.Reduce("max", dim) }

// Min records a lazy minimum over the named dimension.
func (d *DataArray) Min(dim string) (*DataArray, error) { return d.Reduce("min", dim) }

// Std records a lazy population standard deviation over the named
// dimension.
func (d *DataArray) Std(dim string) (*DataArray, error) { return d.Reduce("std", dim) }

// Total records a lazy reduction of all elements to one number.
func (d *DataArray) Total(op string) (*larray.Scalar, error) {
	switch op {
	case "sum":
		return d.data.TotalSum(), nil
	case "mean":
		return d.data.TotalMean(), nil
	case "max":
		return d.data.TotalMax(), nil
	case "min":
		return d.data.TotalMin(), nil
	case "std":
		return d.data.TotalStd()
	}
	return nil, fmt.Errorf("dataset: unknown reduction %q (want sum, mean, max, min, or std)", op)
}

// ISel records a lazy integer selection of indexes [lo, hi) along
// the named dimension. Selections along the leading dimension reuse
// whole chunks where they align; selections along trailing
// dimensions subset within each chunk.
func (d *DataArray) ISel(dim string, lo, hi int) (*DataArray, error) {
	axis, err := d.axis(dim)
	if err != nil {
		return nil, err
	}
	var a *larray.Array
	if axis == 0 {
		a, err = d.data.Slice(lo, hi)
	} else {
		a, err = d.data.SubsetAxis(axis, lo, hi)
	}
	if err != nil {
		return nil, err
	}
	return &DataArray{
		Name:  d.Name,
		Dims:  d.Dims,
		Attrs: d.Attrs,
		ds:    d.ds,
		data:  a,
	}, nil
}
