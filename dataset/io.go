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
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"

	"github.com/larray-project/larray"
)

// Open reads the header of a NetCDF file and builds a Dataset whose
// variables load their data lazily during computation. A chunk
// specification in o splits variables into file-backed blocks along
// their leading dimension; without one, each variable is a single
// block.
func Open(path string, o Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening %s: %v", path, err)
	}
	ff, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("dataset: reading header of %s: %v", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("dataset: opening %s: %v", path, err)
	}
	numRecs := int(ff.Header.NumRecs(fi.Size()))

	ds := New()
	ds.Path = path
	ds.file = f
	ds.cdf = ff
	if o.Graph != nil {
		ds.g = o.Graph
	}
	ds.cacheSize = o.CacheSize
	if ds.cacheSize <= 0 {
		ds.cacheSize = 100
	}

	for _, a := range ff.Header.Attributes("") {
		ds.Attrs[a] = ff.Header.GetAttribute("", a)
	}

	// Coordinate variables: one-dimensional variables named after
	// their dimension. Read them eagerly; they are small.
	names := ff.Header.Variables()
	sort.Strings(names)
	for _, v := range names {
		dims := ff.Header.Dimensions(v)
		if len(dims) == 1 && dims[0] == v {
			vals, err := readCoord(ff, v, resolveLengths(ff, v, numRecs)[0])
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := ds.SetCoord(v, vals); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	for _, v := range names {
		dims := ff.Header.Dimensions(v)
		if len(dims) == 1 && dims[0] == v {
			continue
		}
		lengths := resolveLengths(ff, v, numRecs)
		chunkRows, err := chunkRowsFor(v, dims, o.Chunks)
		if err != nil {
			f.Close()
			return nil, err
		}
		a, err := ds.sourceArray(v, lengths, chunkRows)
		if err != nil {
			f.Close()
			return nil, err
		}
		attrs := make(map[string]interface{})
		for _, at := range ff.Header.Attributes(v) {
			attrs[at] = ff.Header.GetAttribute(v, at)
		}
		if _, err := ds.Add(v, dims, a, attrs); err != nil {
			f.Close()
			return nil, err
		}
	}
	return ds, nil
}

// resolveLengths returns the variable lengths with the record
// dimension, stored as zero in the header, replaced by the actual
// record count.
func resolveLengths(ff *cdf.File, v string, numRecs int) []int {
	lengths := ff.Header.Lengths(v)
	out := make([]int, len(lengths))
	copy(out, lengths)
	if len(out) > 0 && out[0] == 0 {
		out[0] = numRecs
	}
	return out
}

// chunkRowsFor returns the chunk size for variable v, checking that
// chunked dimensions only appear as leading dimensions.
func chunkRowsFor(v string, dims []string, chunks map[string]int) (int, error) {
	rows := 0
	for i, dim := range dims {
		n, ok := chunks[dim]
		if !ok {
			continue
		}
		if i != 0 {
			return 0, fmt.Errorf("dataset: chunks along %q: not the leading dimension of variable %q (data is stored row-major)", dim, v)
		}
		rows = n
	}
	return rows, nil
}

// sourceArray builds the lazy file-backed array for one variable.
func (ds *Dataset) sourceArray(v string, lengths []int, chunkRows int) (*larray.Array, error) {
	n := lengths[0]
	if chunkRows <= 0 || chunkRows > n {
		chunkRows = n
	}
	var chunks []larray.SourceChunk
	for lo := 0; lo < n; lo += chunkRows {
		hi := lo + chunkRows
		if hi > n {
			hi = n
		}
		lo, hi := lo, hi
		chunks = append(chunks, larray.SourceChunk{
			Rows: hi - lo,
			Key:  fmt.Sprintf("%s|%s|%d|%d", ds.Path, v, lo, hi),
			Load: func(ctx context.Context) (*sparse.DenseArray, error) {
				return ds.slab(ctx, v, lo, hi)
			},
		})
	}
	return larray.NewSource(ds.g, lengths, chunks)
}

// readSlab reads leading-axis rows [lo, hi) of a variable from the
// backing file.
func (ds *Dataset) readSlab(v string, lo, hi int) (*sparse.DenseArray, error) {
	dims := ds.vars[v].Shape()
	nread := hi - lo
	for _, d := range dims[1:] {
		nread *= d
	}
	start, end := make([]int, len(dims)), make([]int, len(dims))
	start[0], end[0] = lo, hi
	r := ds.cdf.Reader(v, start, end)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("dataset: reading %s rows %d-%d of %s: %v", v, lo, hi, ds.Path, err)
	}
	outShape := make([]int, len(dims))
	copy(outShape, dims)
	outShape[0] = hi - lo
	out := sparse.ZerosDense(outShape...)
	if err := copyValues(out.Elements, buf); err != nil {
		return nil, fmt.Errorf("dataset: reading %s from %s: %v", v, ds.Path, err)
	}
	return out, nil
}

// readCoord reads a one-dimensional coordinate variable eagerly.
func readCoord(ff *cdf.File, v string, n int) ([]float64, error) {
	r := ff.Reader(v, []int{0}, []int{n})
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("dataset: reading coordinate %s: %v", v, err)
	}
	out := make([]float64, n)
	if err := copyValues(out, buf); err != nil {
		return nil, fmt.Errorf("dataset: reading coordinate %s: %v", v, err)
	}
	return out, nil
}

// copyValues converts a typed buffer read from a NetCDF file into
// float64 values.
func copyValues(dst []float64, buf interface{}) error {
	switch b := buf.(type) {
	case []float64:
		copy(dst, b)
	case []float32:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []int32:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []int16:
		for i, v := range b {
			dst[i] = float64(v)
		}
	case []uint8:
		for i, v := range b {
			dst[i] = float64(v)
		}
	default:
		return fmt.Errorf("unsupported data type %T", buf)
	}
	return nil
}

// Save computes all variables and writes them, with coordinates and
// attributes, to a new NetCDF file. Data variables are stored as
// float32 and coordinates as float64.
func (ds *Dataset) Save(ctx context.Context, path string, options ...larray.ComputeOption) error {
	names := ds.Variables()
	arrays := make([]*larray.Array, len(names))
	for i, name := range names {
		arrays[i] = ds.vars[name].data
	}
	data, err := larray.ComputeAll(ctx, arrays, options...)
	if err != nil {
		return err
	}

	dimNames := make([]string, 0, len(ds.dimLens))
	for d := range ds.dimLens {
		dimNames = append(dimNames, d)
	}
	sort.Strings(dimNames)
	dimLens := make([]int, len(dimNames))
	for i, d := range dimNames {
		dimLens[i] = ds.dimLens[d]
	}
	h := cdf.NewHeader(dimNames, dimLens)
	for _, a := range sortedKeys(ds.Attrs) {
		h.AddAttribute("", a, ds.Attrs[a])
	}
	coordNames := make([]string, 0, len(ds.coords))
	for d := range ds.coords {
		coordNames = append(coordNames, d)
	}
	sort.Strings(coordNames)
	for _, d := range coordNames {
		h.AddVariable(d, []string{d}, []float64{0})
	}
	for _, name := range names {
		v := ds.vars[name]
		h.AddVariable(name, v.Dims, []float32{0})
		for _, a := range sortedKeys(v.Attrs) {
			h.AddAttribute(name, a, v.Attrs[a])
		}
	}
	h.Define()

	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: creating %s: %v", path, err)
	}
	defer w.Close()
	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("dataset: writing header of %s: %v", path, err)
	}
	for _, d := range coordNames {
		if err := writeVar(f, d, ds.coords[d]); err != nil {
			return fmt.Errorf("dataset: writing coordinate %s to %s: %v", d, path, err)
		}
	}
	for i, name := range names {
		data32 := make([]float32, len(data[i].Elements))
		for j, v := range data[i].Elements {
			data32[j] = float32(v)
		}
		if err := writeVar(f, name, data32); err != nil {
			return fmt.Errorf("dataset: writing variable %s to %s: %v", name, path, err)
		}
	}
	return nil
}

// writeVar writes the full extent of one variable.
func writeVar(f *cdf.File, v string, data interface{}) error {
	end := f.Header.Lengths(v)
	start := make([]int, len(end))
	w := f.Writer(v, start, end)
	_, err := w.Write(data)
	return err
}
