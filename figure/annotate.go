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
	"math"
	"strings"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Align describes where the anchor point sits relative to a text
// label.
type Align int

const (
	// Center centers the text on the anchor.
	Center Align = iota
	// Left puts the anchor at the left edge of the text.
	Left
	// Right puts the anchor at the right edge of the text.
	Right
)

// Label draws text at fractional canvas coordinates: (0, 0) is the
// bottom left corner and (1, 1) the top right.
func Label(c draw.Canvas, fx, fy float64, text string, ts draw.TextStyle, align Align) {
	sty := ts
	switch align {
	case Center:
		sty.XAlign = -0.5
	case Right:
		sty.XAlign = -1
	}
	sty.YAlign = -0.5
	pt := vg.Point{
		X: c.Min.X + vg.Length(fx)*(c.Max.X-c.Min.X),
		Y: c.Min.Y + vg.Length(fy)*(c.Max.Y-c.Min.Y),
	}
	c.FillText(sty, pt, text)
}

// Arrow draws a straight arrow between fractional canvas
// coordinates, with a filled head at the destination.
func Arrow(c draw.Canvas, fromX, fromY, toX, toY float64, sty draw.LineStyle) {
	from := vg.Point{
		X: c.Min.X + vg.Length(fromX)*(c.Max.X-c.Min.X),
		Y: c.Min.Y + vg.Length(fromY)*(c.Max.Y-c.Min.Y),
	}
	to := vg.Point{
		X: c.Min.X + vg.Length(toX)*(c.Max.X-c.Min.X),
		Y: c.Min.Y + vg.Length(toY)*(c.Max.Y-c.Min.Y),
	}
	c.StrokeLine2(sty, from.X, from.Y, to.X, to.Y)

	headLen := 4 * sty.Width
	if headLen == 0 {
		headLen = vg.Points(4)
	}
	angle := math.Atan2(float64(to.Y-from.Y), float64(to.X-from.X))
	const spread = 0.4 // radians either side of the shaft
	left := vg.Point{
		X: to.X - headLen*vg.Length(math.Cos(angle-spread)),
		Y: to.Y - headLen*vg.Length(math.Sin(angle-spread)),
	}
	right := vg.Point{
		X: to.X - headLen*vg.Length(math.Cos(angle+spread)),
		Y: to.Y - headLen*vg.Length(math.Sin(angle+spread)),
	}
	c.FillPolygon(sty.Color, []vg.Point{to, left, right})
}

var superscripts = strings.NewReplacer(
	"0", "⁰", "1", "¹", "2", "²", "3", "³", "4", "⁴",
	"5", "⁵", "6", "⁶", "7", "⁷", "8", "⁸", "9", "⁹",
	"-", "⁻", "+", "⁺",
)

var subscripts = strings.NewReplacer(
	"0", "₀", "1", "₁", "2", "₂", "3", "₃", "4", "₄",
	"5", "₅", "6", "₆", "7", "₇", "8", "₈", "9", "₉",
	"-", "₋", "+", "₊",
)

// Super converts digits and signs to unicode superscripts, for
// exponents in axis and annotation labels ("m s" + Super("-2")).
func Super(s string) string { return superscripts.Replace(s) }

// Sub converts digits and signs to unicode subscripts, for chemical
// and index notation ("PM" + Sub("2.5")).
func Sub(s string) string { return subscripts.Replace(s) }
