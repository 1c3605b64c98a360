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
	"image/color"
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// Normalize maps data values into [0, 1] before color lookup.
type Normalize interface {
	// Normalize maps v into [0, 1]. Values outside the range
	// clamp to 0 or 1.
	Normalize(v float64) float64
	// Denormalize is the inverse mapping, used for tick
	// placement.
	Denormalize(t float64) float64
	// Range returns the value range.
	Range() (min, max float64)
}

// LinNorm maps [Min, Max] linearly onto [0, 1].
type LinNorm struct {
	Min, Max float64
}

func (n LinNorm) Normalize(v float64) float64 {
	if n.Max == n.Min {
		return 0
	}
	return clamp((v - n.Min) / (n.Max - n.Min))
}

func (n LinNorm) Denormalize(t float64) float64 {
	return n.Min + t*(n.Max-n.Min)
}

func (n LinNorm) Range() (float64, float64) { return n.Min, n.Max }

// LogNorm maps [Min, Max] logarithmically onto [0, 1]. Min and Max
// must be positive.
type LogNorm struct {
	Min, Max float64
}

func (n LogNorm) Normalize(v float64) float64 {
	if v <= 0 || n.Min <= 0 || n.Max <= n.Min {
		return 0
	}
	return clamp(math.Log(v/n.Min) / math.Log(n.Max/n.Min))
}

func (n LogNorm) Denormalize(t float64) float64 {
	return n.Min * math.Exp(t*math.Log(n.Max/n.Min))
}

func (n LogNorm) Range() (float64, float64) { return n.Min, n.Max }

// clamp restricts t to [0, 1]. NaN maps to 0, so color lookups on
// missing data hit the low end of the scale instead of panicking.
func clamp(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// AutoLin returns a linear normalization spanning the data range,
// ignoring NaN values.
func AutoLin(d *sparse.DenseArray) LinNorm {
	vals := finite(d.Elements, false)
	if len(vals) == 0 {
		return LinNorm{}
	}
	return LinNorm{Min: floats.Min(vals), Max: floats.Max(vals)}
}

// AutoLog returns a logarithmic normalization spanning the positive
// part of the data range.
func AutoLog(d *sparse.DenseArray) (LogNorm, error) {
	vals := finite(d.Elements, true)
	if len(vals) == 0 {
		return LogNorm{}, fmt.Errorf("figure: no positive values for logarithmic normalization")
	}
	return LogNorm{Min: floats.Min(vals), Max: floats.Max(vals)}, nil
}

// finite drops NaN values, and non-positive values when positiveOnly
// is set.
func finite(elements []float64, positiveOnly bool) []float64 {
	vals := make([]float64, 0, len(elements))
	for _, v := range elements {
		if math.IsNaN(v) || (positiveOnly && v <= 0) {
			continue
		}
		vals = append(vals, v)
	}
	return vals
}

// ColorMap combines a normalization with a color lookup table.
type ColorMap struct {
	Norm   Normalize
	colors []color.Color
}

// NewColorMap builds a colormap from a palette.
func NewColorMap(norm Normalize, p palette.Palette) *ColorMap {
	return &ColorMap{Norm: norm, colors: p.Colors()}
}

// Heat builds a colormap using a black-red-yellow-white heat
// palette with n steps.
func Heat(norm Normalize, n int) *ColorMap {
	return NewColorMap(norm, palette.Heat(n, 1))
}

// SmoothBlueRed builds a colormap using the smooth diverging
// blue-red palette sampled at n steps.
func SmoothBlueRed(norm Normalize, n int) (*ColorMap, error) {
	cm := moreland.SmoothBlueRed()
	cm.SetMin(0)
	cm.SetMax(1)
	colors := make([]color.Color, n)
	for i := range colors {
		c, err := cm.At(float64(i) / float64(n-1))
		if err != nil {
			return nil, fmt.Errorf("figure: sampling palette: %v", err)
		}
		colors[i] = c
	}
	return &ColorMap{Norm: norm, colors: colors}, nil
}

// At returns the color for data value v. NaN values take the color
// of the low end of the scale.
func (m *ColorMap) At(v float64) color.Color {
	t := clamp(m.Norm.Normalize(v))
	i := int(t*float64(len(m.colors)-1) + 0.5)
	return m.colors[i]
}

// AtNorm returns the color for an already-normalized position
// t in [0, 1].
func (m *ColorMap) AtNorm(t float64) color.Color {
	i := int(clamp(t)*float64(len(m.colors)-1) + 0.5)
	return m.colors[i]
}

// Colors returns the lookup table, so the colormap can serve as a
// gonum/plot palette.
func (m *ColorMap) Colors() []color.Color { return m.colors }
