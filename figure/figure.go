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

// Package figure composes multi-panel raster figures: mosaic
// layouts, heatmaps, colormaps with value normalization, shared
// colorbars, and text and arrow annotations.
package figure

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Figure is a raster drawing surface that panels and annotations
// are drawn onto.
type Figure struct {
	img *vgimg.Canvas
	c   draw.Canvas
}

// New creates a figure of the given size drawn at 96 DPI.
func New(width, height vg.Length) *Figure {
	img := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(96))
	return &Figure{img: img, c: draw.New(img)}
}

// Canvas returns the full drawing area.
func (f *Figure) Canvas() draw.Canvas { return f.c }

// SavePNG writes the figure to a PNG file.
func (f *Figure) SavePNG(path string) error {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("figure: creating %s: %v", path, err)
	}
	defer w.Close()
	png := vgimg.PngCanvas{Canvas: f.img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("figure: writing %s: %v", path, err)
	}
	return nil
}

// TextStyle returns a black text style in the default font at the
// given size.
func TextStyle(size vg.Length) (draw.TextStyle, error) {
	font, err := vg.MakeFont(plot.DefaultFont, size)
	if err != nil {
		return draw.TextStyle{}, fmt.Errorf("figure: %v", err)
	}
	return draw.TextStyle{Color: color.Black, Font: font}, nil
}
