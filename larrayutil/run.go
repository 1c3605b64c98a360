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

package larrayutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"gonum.org/v1/plot/vg"

	"github.com/larray-project/larray"
	"github.com/larray-project/larray/dataset"
	"github.com/larray-project/larray/fetch"
	"github.com/larray-project/larray/figure"
)

// Fetch downloads the named datasets and returns their local paths.
// registryPath optionally replaces the built-in registry, and dir
// optionally replaces the default cache directory.
func Fetch(ctx context.Context, names []string, registryPath, dir string) ([]string, error) {
	f := &fetch.Fetcher{Dir: dir}
	if registryPath != "" {
		r, err := fetch.LoadRegistry(registryPath)
		if err != nil {
			return nil, err
		}
		f.Registry = r
	}
	paths := make([]string, len(names))
	for i, name := range names {
		p, err := f.Fetch(ctx, name)
		if err != nil {
			return nil, err
		}
		paths[i] = p
	}
	return paths, nil
}

// Info writes a summary of the dataset file to w.
func Info(_ context.Context, w io.Writer, path string) error {
	ds, err := dataset.Open(path, dataset.Options{})
	if err != nil {
		return err
	}
	defer ds.Close()
	ds.Info(w)
	return nil
}

// prepare opens the input file and records the lazy operations the
// reduce and graph commands share: derived variables, then the
// requested reduction. A nil DataArray with a non-nil Scalar means
// the reduction was over all dimensions.
func prepare(cfg *ReduceCfg) (*dataset.Dataset, *dataset.DataArray, *larray.Scalar, error) {
	ds, err := dataset.Open(cfg.InputFile, dataset.Options{Chunks: cfg.Chunks})
	if err != nil {
		return nil, nil, nil, err
	}
	if err := derive(ds, cfg.Derive); err != nil {
		ds.Close()
		return nil, nil, nil, err
	}
	v, err := ds.Var(cfg.Var)
	if err != nil {
		ds.Close()
		return nil, nil, nil, err
	}
	if cfg.Dim == "" {
		total, err := v.Total(cfg.Op)
		if err != nil {
			ds.Close()
			return nil, nil, nil, err
		}
		return ds, nil, total, nil
	}
	red, err := v.Reduce(cfg.Op, cfg.Dim)
	if err != nil {
		ds.Close()
		return nil, nil, nil, err
	}
	return ds, red, nil, nil
}

// derive adds the configured derived variables in name order, so
// runs with the same configuration build the same graph.
func derive(ds *dataset.Dataset, exprs map[string]string) error {
	names := make([]string, 0, len(exprs))
	for name := range exprs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := ds.Derive(name, exprs[name], nil); err != nil {
			return err
		}
	}
	return nil
}

// Reduce runs the configured reduction, writing the result to the
// configured NetCDF output file or printing it to w.
func Reduce(ctx context.Context, w io.Writer, cfg *ReduceCfg) error {
	ds, red, total, err := prepare(cfg)
	if err != nil {
		return err
	}
	defer ds.Close()
	opts := computeOptions(cfg.Workers, cfg.Progress)

	if total != nil {
		v, err := total.Value(ctx, opts...)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s(%s) = %g\n", cfg.Op, cfg.Var, v)
		return nil
	}

	if cfg.OutputFile != "" {
		out := dataset.New()
		for k, v := range ds.Attrs {
			out.Attrs[k] = v
		}
		for _, dim := range red.Dims {
			if c, ok := ds.Coord(dim); ok {
				if err := out.SetCoord(dim, c); err != nil {
					return err
				}
			}
		}
		if _, err := out.Add(red.Name, red.Dims, red.Array(), red.Attrs); err != nil {
			return err
		}
		return out.Save(ctx, cfg.OutputFile, opts...)
	}

	dense, err := red.Compute(ctx, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s(%s) over %s, shape %v:\n", cfg.Op, cfg.Var, cfg.Dim, dense.Shape)
	if len(dense.Elements) <= 120 {
		for _, v := range dense.Elements {
			fmt.Fprintf(w, "%g\n", v)
		}
		return nil
	}
	s, err := red.Describe(ctx, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, s)
	return nil
}

// WriteGraph records the configured reduction without computing it
// and writes the task dependency graph to w in DOT format.
func WriteGraph(_ context.Context, w io.Writer, cfg *ReduceCfg) error {
	ds, red, total, err := prepare(cfg)
	if err != nil {
		return err
	}
	defer ds.Close()
	if total != nil {
		return total.Array().Dot(w)
	}
	return red.Array().Dot(w)
}

// Plot renders the configured variable as a PNG figure with a
// heatmap, a histogram of the values, and a shared colorbar.
func Plot(ctx context.Context, cfg *PlotCfg) error {
	ds, err := dataset.Open(cfg.InputFile, dataset.Options{Chunks: cfg.Chunks})
	if err != nil {
		return err
	}
	defer ds.Close()
	v, err := ds.Var(cfg.Var)
	if err != nil {
		return err
	}
	// Average away leading dimensions until the data is a 2-d field.
	for len(v.Dims) > 2 {
		if v, err = v.Mean(v.Dims[0]); err != nil {
			return err
		}
	}
	if len(v.Dims) != 2 {
		return fmt.Errorf("larray: plotting %s: need at least 2 dimensions; got %v", cfg.Var, v.Dims)
	}
	dense, err := v.Compute(ctx, computeOptions(cfg.Workers, cfg.Progress)...)
	if err != nil {
		return err
	}

	var norm figure.Normalize
	if cfg.LogScale {
		n, err := figure.AutoLog(dense)
		if err != nil {
			return err
		}
		norm = n
	} else {
		norm = figure.AutoLin(dense)
	}
	cm, err := figure.SmoothBlueRed(norm, 64)
	if err != nil {
		return err
	}

	f := figure.New(8*vg.Inch, 5*vg.Inch)
	m, err := figure.ParseMosaic("AAB\nAAB\nCCC")
	if err != nil {
		return err
	}
	panels := m.Panels(f.Canvas(), vg.Points(3))

	grid := figure.Grid{Data: dense}
	if c, ok := ds.Coord(v.Dims[1]); ok {
		grid.XCoords = c
	}
	if c, ok := ds.Coord(v.Dims[0]); ok {
		grid.YCoords = c
	}
	hm, err := figure.Heatmap(grid, cm, cfg.Var)
	if err != nil {
		return err
	}
	hm.Draw(panels["A"])

	hist, err := figure.Histogram(dense.Elements, cfg.Bins, "distribution")
	if err != nil {
		return err
	}
	hist.Draw(panels["B"])

	label := cfg.Var
	if u, ok := v.Attrs["units"].(string); ok && u != "" {
		label += " (" + u + ")"
	}
	cb := &figure.Colorbar{ColorMap: cm, Label: label}
	if err := cb.Draw(panels["C"]); err != nil {
		return err
	}
	return f.SavePNG(cfg.OutputFile)
}

func computeOptions(workers int, progress bool) []larray.ComputeOption {
	var opts []larray.ComputeOption
	if workers > 0 {
		opts = append(opts, larray.Workers(workers))
	}
	if progress {
		opts = append(opts, larray.Progress(os.Stderr))
	}
	return opts
}
