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

package figure

import (
	"fmt"

	"github.com/ctessum/sparse"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
)

// Grid adapts a two-dimensional dense array to the gonum/plot grid
// interface. Row 0 of the array is the bottom row of the plot.
// XCoords and YCoords are optional axis coordinates; cell indexes
// are used when they are nil.
type Grid struct {
	Data             *sparse.DenseArray
	XCoords, YCoords []float64
}

// Dims returns the number of columns and rows.
func (g Grid) Dims() (int, int) { return g.Data.Shape[1], g.Data.Shape[0] }

// Z returns the value of the cell in column c, row r.
func (g Grid) Z(c, r int) float64 { return g.Data.Get(r, c) }

// X returns the coordinate of column c.
func (g Grid) X(c int) float64 {
	if g.XCoords != nil {
		return g.XCoords[c]
	}
	return float64(c)
}

// Y returns the coordinate of row r.
func (g Grid) Y(r int) float64 {
	if g.YCoords != nil {
		return g.YCoords[r]
	}
	return float64(r)
}

// Heatmap builds a plot rendering a two-dimensional array through a
// colormap. The colormap's normalization range sets the color
// scale, so several heatmaps sharing one colormap share a scale.
func Heatmap(g Grid, cm *ColorMap, title string) (*plot.Plot, error) {
	if len(g.Data.Shape) != 2 {
		return nil, fmt.Errorf("figure: heatmap needs a 2-d array; got shape %v", g.Data.Shape)
	}
	p, err := plot.New()
	if err != nil {
		return nil, fmt.Errorf("figure: %v", err)
	}
	h := plotter.NewHeatMap(g, cm)
	h.Min, h.Max = cm.Norm.Range()
	p.Add(h)
	p.Title.Text = title
	return p, nil
}

// Histogram builds a plot of the distribution of the given values
// with n bins.
func Histogram(vals []float64, n int, title string) (*plot.Plot, error) {
	p, err := plot.New()
	if err != nil {
		return nil, fmt.Errorf("figure: %v", err)
	}
	h, err := plotter.NewHist(plotter.Values(vals), n)
	if err != nil {
		return nil, fmt.Errorf("figure: histogram: %v", err)
	}
	p.Add(h)
	p.Title.Text = title
	return p, nil
}
