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

// Package dataset provides labeled multi-variable arrays backed by
// NetCDF files, with named dimensions, coordinates and attributes.
// Data is read lazily: opening a file only reads the header, and
// variable chunks are loaded on demand when a computation needs
// them.
package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/ctessum/cdf"
	"github.com/ctessum/requestcache"
	"github.com/ctessum/sparse"

	"github.com/larray-project/larray"
)

// Options adjust how a Dataset is opened.
type Options struct {
	// Chunks gives the maximum block length along named
	// dimensions. Data is stored row-major, so only dimensions
	// that appear as the leading dimension of every variable
	// using them can be chunked; other dimensions are rejected.
	Chunks map[string]int

	// CacheSize is the number of file slabs held in memory while
	// computing. The default is 100.
	CacheSize int

	// Graph is the task graph to record operations in. A new
	// graph is created if nil.
	Graph *larray.Graph
}

// Dataset is a set of named variables sharing dimensions,
// coordinates and attributes.
type Dataset struct {
	// Path is the backing file, if any.
	Path string
	// Attrs holds the global attributes.
	Attrs map[string]interface{}

	g       *larray.Graph
	file    *os.File
	cdf     *cdf.File
	vars    map[string]*DataArray
	coords  map[string][]float64
	dimLens map[string]int

	cacheOnce sync.Once
	cache     *requestcache.Cache
	cacheSize int
}

// DataArray is one variable of a Dataset: a lazy chunked array plus
// its dimension names and attributes.
type DataArray struct {
	Name  string
	Dims  []string
	Attrs map[string]interface{}

	ds   *Dataset
	data *larray.Array
}

// New creates an empty in-memory Dataset recording into a fresh
// task graph.
func New() *Dataset {
	return &Dataset{
		Attrs:   make(map[string]interface{}),
		g:       larray.NewGraph(),
		vars:    make(map[string]*DataArray),
		coords:  make(map[string][]float64),
		dimLens: make(map[string]int),
	}
}

// Graph returns the task graph the dataset records operations in.
func (ds *Dataset) Graph() *larray.Graph { return ds.g }

// Variables returns the variable names in alphabetical order.
func (ds *Dataset) Variables() []string {
	names := make([]string, 0, len(ds.vars))
	for n := range ds.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Var returns the named variable.
func (ds *Dataset) Var(name string) (*DataArray, error) {
	d, ok := ds.vars[name]
	if !ok {
		return nil, fmt.Errorf("dataset: no variable %q (have %v)", name, ds.Variables())
	}
	return d, nil
}

// Coord returns the coordinate values of the named dimension, if
// the dataset has them.
func (ds *Dataset) Coord(dim string) ([]float64, bool) {
	c, ok := ds.coords[dim]
	return c, ok
}

// SetCoord sets coordinate values for a dimension. The number of
// values must match the dimension length if the dimension is
// already in use.
func (ds *Dataset) SetCoord(dim string, vals []float64) error {
	if n, ok := ds.dimLens[dim]; ok && n != len(vals) {
		return fmt.Errorf("dataset: %d coordinate values for dimension %q of length %d", len(vals), dim, n)
	}
	ds.dimLens[dim] = len(vals)
	ds.coords[dim] = vals
	return nil
}

// Add registers a lazy array as a named variable with the given
// dimension names. Dimension lengths must agree with any other
// variables sharing the dimensions.
func (ds *Dataset) Add(name string, dims []string, a *larray.Array, attrs map[string]interface{}) (*DataArray, error) {
	shape := a.Shape()
	if len(dims) != len(shape) {
		return nil, fmt.Errorf("dataset: variable %q has %d dimension names for rank %d", name, len(dims), len(shape))
	}
	if _, ok := ds.vars[name]; ok {
		return nil, fmt.Errorf("dataset: variable %q already exists", name)
	}
	for i, dim := range dims {
		if n, ok := ds.dimLens[dim]; ok && n != shape[i] {
			return nil, fmt.Errorf("dataset: variable %q dimension %q has length %d but the dataset has %d", name, dim, shape[i], n)
		}
	}
	for i, dim := range dims {
		ds.dimLens[dim] = shape[i]
	}
	if attrs == nil {
		attrs = make(map[string]interface{})
	}
	d := &DataArray{Name: name, Dims: dims, Attrs: attrs, ds: ds, data: a}
	ds.vars[name] = d
	return d, nil
}

// Close releases the backing file, if any. Lazy chunks that have
// not been computed cannot be read afterwards.
func (ds *Dataset) Close() error {
	if ds.file == nil {
		return nil
	}
	return ds.file.Close()
}

// Info writes a human-readable summary of the dataset: dimensions,
// variables with their dimensions and attributes, and global
// attributes.
func (ds *Dataset) Info(w io.Writer) {
	fmt.Fprintf(w, "dataset: %s\n", ds.Path)
	dims := make([]string, 0, len(ds.dimLens))
	for d := range ds.dimLens {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	fmt.Fprintln(w, "dimensions:")
	for _, d := range dims {
		if _, ok := ds.coords[d]; ok {
			fmt.Fprintf(w, "\t%s = %d (coordinate)\n", d, ds.dimLens[d])
		} else {
			fmt.Fprintf(w, "\t%s = %d\n", d, ds.dimLens[d])
		}
	}
	fmt.Fprintln(w, "variables:")
	for _, name := range ds.Variables() {
		v := ds.vars[name]
		fmt.Fprintf(w, "\t%s%v chunks=%v\n", name, v.Dims, v.data.ChunkRows())
		for _, a := range sortedKeys(v.Attrs) {
			fmt.Fprintf(w, "\t\t%s: %v\n", a, v.Attrs[a])
		}
	}
	if len(ds.Attrs) > 0 {
		fmt.Fprintln(w, "attributes:")
		for _, a := range sortedKeys(ds.Attrs) {
			fmt.Fprintf(w, "\t%s: %v\n", a, ds.Attrs[a])
		}
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Array returns the lazy array holding the variable data.
func (d *DataArray) Array() *larray.Array { return d.data }

// Shape returns the variable shape.
func (d *DataArray) Shape() []int { return d.data.Shape() }

// Dataset returns the dataset the variable belongs to.
func (d *DataArray) Dataset() *Dataset { return d.ds }

// Compute materializes the variable.
func (d *DataArray) Compute(ctx context.Context, options ...larray.ComputeOption) (*sparse.DenseArray, error) {
	return d.data.Compute(ctx, options...)
}

// slabRequest identifies one leading-axis slab of a file variable.
type slabRequest struct {
	v      string
	lo, hi int
}

// slab reads leading-axis rows [lo, hi) of a file variable through
// the dataset's request cache, deduplicating concurrent reads of
// the same slab and keeping recently read slabs in memory.
func (ds *Dataset) slab(ctx context.Context, v string, lo, hi int) (*sparse.DenseArray, error) {
	ds.cacheOnce.Do(func() {
		ds.cache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			r := request.(slabRequest)
			return ds.readSlab(r.v, r.lo, r.hi)
		}, runtime.GOMAXPROCS(-1),
			requestcache.Deduplicate(), requestcache.Memory(ds.cacheSize))
	})
	req := ds.cache.NewRequest(ctx, slabRequest{v: v, lo: lo, hi: hi},
		fmt.Sprintf("%s_%s_%d_%d", ds.Path, v, lo, hi))
	result, err := req.Result()
	if err != nil {
		return nil, err
	}
	return result.(*sparse.DenseArray), nil
}
