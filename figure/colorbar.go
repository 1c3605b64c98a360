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

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Colorbar renders a colormap as a labeled gradient bar. Drawing
// into a canvas region shared by several panels gives those panels
// a common scale.
type Colorbar struct {
	ColorMap *ColorMap
	// Label is drawn along the bar (above a horizontal bar, or
	// beside a vertical one).
	Label string
	// Vertical draws the bar bottom-to-top instead of
	// left-to-right.
	Vertical bool
	// Ticks is the number of tick marks; the default is 5.
	Ticks int
	// FontSize is the tick and label text size; the default is
	// 7 points.
	FontSize vg.Length
}

const (
	barPad       = vg.Length(10) // points between canvas edge and bar ends
	tickLength   = vg.Length(3)
	tickPad      = vg.Length(2)
	labelPad     = vg.Length(2)
	gradLineWide = vg.Length(1)
)

// Draw renders the colorbar into the canvas region.
func (cb *Colorbar) Draw(c draw.Canvas) error {
	if cb.ColorMap == nil {
		return fmt.Errorf("figure: colorbar has no colormap")
	}
	ticks := cb.Ticks
	if ticks <= 0 {
		ticks = 5
	}
	size := cb.FontSize
	if size == 0 {
		size = vg.Points(7)
	}
	ts, err := TextStyle(size)
	if err != nil {
		return err
	}
	if cb.Vertical {
		cb.drawVertical(c, ts, ticks)
	} else {
		cb.drawHorizontal(c, ts, ticks)
	}
	return nil
}

func (cb *Colorbar) drawHorizontal(c draw.Canvas, ts draw.TextStyle, ticks int) {
	barLeft := c.Min.X + barPad
	barRight := c.Max.X - barPad
	barTop := c.Max.Y - ts.Height(cb.Label) - labelPad
	barBottom := c.Min.Y + ts.Height("2.0e2") + tickPad + tickLength

	// Gradient from many thin vertical lines.
	for x := barLeft; x < barRight; x += gradLineWide * 0.9 {
		t := float64((x - barLeft) / (barRight - barLeft))
		ls := draw.LineStyle{Color: cb.ColorMap.AtNorm(t), Width: gradLineWide}
		c.StrokeLine2(ls, x, barBottom, x, barTop)
	}
	edge := draw.LineStyle{Color: color.Black, Width: vg.Points(0.5)}
	c.StrokeLines(edge, []vg.Point{
		{X: barLeft, Y: barBottom}, {X: barRight, Y: barBottom},
		{X: barRight, Y: barTop}, {X: barLeft, Y: barTop},
		{X: barLeft, Y: barBottom}})

	for i := 0; i < ticks; i++ {
		t := float64(i) / float64(ticks-1)
		x := barLeft + vg.Length(t)*(barRight-barLeft)
		c.StrokeLine2(edge, x, barBottom, x, barBottom-tickLength)
		sty := ts
		sty.XAlign = -0.5
		sty.YAlign = -1
		c.FillText(sty, vg.Point{X: x, Y: barBottom - tickLength - tickPad}, tickLabel(cb.ColorMap.Norm.Denormalize(t)))
	}
	if cb.Label != "" {
		sty := ts
		sty.XAlign = -0.5
		sty.YAlign = -1
		c.FillText(sty, vg.Point{X: (barLeft + barRight) / 2, Y: c.Max.Y}, cb.Label)
	}
}

func (cb *Colorbar) drawVertical(c draw.Canvas, ts draw.TextStyle, ticks int) {
	barBottom := c.Min.Y + barPad
	barTop := c.Max.Y - barPad
	barLeft := c.Min.X
	barRight := c.Min.X + (c.Max.X-c.Min.X)*0.4

	for y := barBottom; y < barTop; y += gradLineWide * 0.9 {
		t := float64((y - barBottom) / (barTop - barBottom))
		ls := draw.LineStyle{Color: cb.ColorMap.AtNorm(t), Width: gradLineWide}
		c.StrokeLine2(ls, barLeft, y, barRight, y)
	}
	edge := draw.LineStyle{Color: color.Black, Width: vg.Points(0.5)}
	c.StrokeLines(edge, []vg.Point{
		{X: barLeft, Y: barBottom}, {X: barRight, Y: barBottom},
		{X: barRight, Y: barTop}, {X: barLeft, Y: barTop},
		{X: barLeft, Y: barBottom}})

	for i := 0; i < ticks; i++ {
		t := float64(i) / float64(ticks-1)
		y := barBottom + vg.Length(t)*(barTop-barBottom)
		c.StrokeLine2(edge, barRight, y, barRight+tickLength, y)
		sty := ts
		sty.XAlign = 0
		sty.YAlign = -0.5
		c.FillText(sty, vg.Point{X: barRight + tickLength + tickPad, Y: y}, tickLabel(cb.ColorMap.Norm.Denormalize(t)))
	}
	if cb.Label != "" {
		sty := ts
		sty.XAlign = -0.5
		sty.YAlign = -1
		c.FillText(sty, vg.Point{X: (c.Min.X + c.Max.X) / 2, Y: c.Max.Y}, cb.Label)
	}
}

func tickLabel(v float64) string {
	return fmt.Sprintf("%.3g", v)
}
